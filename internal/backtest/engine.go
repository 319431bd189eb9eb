// Package backtest simulates a rules-based daily trading strategy over
// historical prices: it consumes an externally produced signal feed and
// prepared OHLCV series, applies stop-loss and periodic rebalancing rules,
// and produces per-day snapshots plus aggregate performance statistics. The
// engine is deterministic: identical inputs yield identical numbers.
package backtest

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fairweather/keel/internal/core"
	"github.com/fairweather/keel/internal/logger"
	"github.com/fairweather/keel/internal/signalfeed"
)

// PriceSource supplies daily bars for instruments. Lookups use typed
// absence: an instrument without a bar on a date is skipped for that day's
// action, not an error.
type PriceSource interface {
	Bar(instrument string, date time.Time) (core.Bar, bool)
	Dates() []time.Time
}

// SignalSource supplies each date's ordered buy candidates. A date without
// signals means "no new entries", not "market closed".
type SignalSource interface {
	On(date time.Time) []signalfeed.Candidate
	Dates() []time.Time
}

// Engine runs one simulation at a time. It owns the ledger and cash account
// for the duration of a run; concurrent runs need separate Engines but may
// share the read-only price and signal sources.
type Engine struct {
	cfg     Config
	prices  PriceSource
	signals SignalSource
	log     *zap.Logger
}

// New validates the configuration and creates an Engine. Configuration
// errors fail here, before anything is simulated.
func New(cfg Config, prices PriceSource, signals SignalSource, log *zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if prices == nil || signals == nil {
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("price and signal sources are required"))
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{cfg: cfg, prices: prices, signals: signals, log: log}, nil
}

// Run executes the simulation over the full trading-date universe and
// returns the aggregate result. There are no suspension points inside the
// loop; a caller wanting a shorter run bounds the horizon via EndDate.
func (e *Engine) Run() (*Result, error) {
	dates := e.horizon()
	if len(dates) == 0 {
		return nil, core.WrapError(core.ErrEmptyHorizon,
			fmt.Errorf("no trading dates between %s and %s",
				boundString(e.cfg.StartDate), boundString(e.cfg.EndDate)))
	}

	runID := uuid.NewString()
	log := logger.WithRun(e.log, runID)
	log.Info("backtest starting",
		zap.String("from", core.FormatDate(dates[0])),
		zap.String("to", core.FormatDate(dates[len(dates)-1])),
		zap.Int("trading_days", len(dates)),
		zap.Float64("initial_capital", e.cfg.InitialCapital),
		zap.Float64("stop_loss_threshold", e.cfg.StopLossThreshold),
		zap.Bool("rebalance", e.cfg.RebalanceEnabled))

	ledger := NewLedger()
	cash := NewCashAccount(e.cfg.InitialCapital)
	snapshots := make([]DailySnapshot, 0, len(dates))
	var trades []Trade

	for i, d := range dates {
		// Order is contractual: high-water update, stop-loss, entries,
		// rebalance, valuation, snapshot. Reordering changes every number.
		e.updateHighWater(ledger, d)

		dayTrades := e.applyStopLoss(ledger, cash, d)

		if candidates := e.signals.On(d); len(candidates) > 0 {
			dayTrades = append(dayTrades, e.executeEntries(ledger, cash, candidates, d)...)
		}

		if e.cfg.RebalanceEnabled && core.Weekday(d) == e.cfg.RebalanceWeekday {
			dayTrades = append(dayTrades, e.rebalance(log, ledger, cash, d)...)
		}

		value := e.valuation(ledger, cash, d)
		snapshots = append(snapshots, DailySnapshot{
			Date:          d,
			Cash:          cash.Balance(),
			PositionCount: ledger.Len(),
			TotalValue:    value,
			ReturnPct:     (value/e.cfg.InitialCapital - 1) * 100,
		})
		trades = append(trades, dayTrades...)

		if (i+1)%50 == 0 || i == len(dates)-1 {
			log.Info("progress",
				zap.Int("day", i+1),
				zap.Int("of", len(dates)),
				zap.String("date", core.FormatDate(d)),
				zap.Float64("portfolio_value", value))
		}
	}

	result := Compute(e.cfg.InitialCapital, snapshots, trades)
	result.RunID = runID
	result.StartDate = dates[0]
	result.EndDate = dates[len(dates)-1]

	log.Info("backtest complete",
		zap.Float64("final_value", result.FinalValue),
		zap.Float64("total_return_pct", result.TotalReturnPct),
		zap.Int("trades", result.TotalTrades))
	return result, nil
}

// horizon builds the trading-date universe: the union of all dates carrying
// signals or bars, sorted ascending and clipped to the configured bounds.
func (e *Engine) horizon() []time.Time {
	seen := make(map[string]time.Time)
	for _, d := range e.prices.Dates() {
		seen[core.FormatDate(d)] = d
	}
	for _, d := range e.signals.Dates() {
		seen[core.FormatDate(d)] = d
	}

	out := make([]time.Time, 0, len(seen))
	for _, d := range seen {
		if e.cfg.StartDate != nil && d.Before(*e.cfg.StartDate) {
			continue
		}
		if e.cfg.EndDate != nil && d.After(*e.cfg.EndDate) {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// updateHighWater ratchets each held position's high-water mark up to
// today's close. Positions without a bar today are left untouched.
func (e *Engine) updateHighWater(ledger *Ledger, d time.Time) {
	for _, pos := range ledger.Positions() {
		if bar, ok := e.prices.Bar(pos.Instrument, d); ok && bar.Close > pos.HighWater {
			pos.HighWater = bar.Close
		}
	}
}

// applyStopLoss liquidates every position whose drawdown from its high-water
// mark reaches the threshold. Each position is judged independently against
// its own mark; there are no partial exits.
func (e *Engine) applyStopLoss(ledger *Ledger, cash *CashAccount, d time.Time) []Trade {
	var out []Trade
	for _, pos := range ledger.Positions() {
		bar, ok := e.prices.Bar(pos.Instrument, d)
		if !ok {
			continue
		}
		drawdown := (pos.HighWater - bar.Close) / pos.HighWater
		if drawdown < e.cfg.StopLossThreshold {
			continue
		}

		detail := fmt.Sprintf("drawdown %.1f%% >= %.1f%%",
			drawdown*100, e.cfg.StopLossThreshold*100)
		trade := e.closePosition(pos, bar.Close, d, ReasonStopLoss, detail)
		cash.Credit(trade.NetProceeds())
		ledger.Close(pos.Instrument)
		out = append(out, trade)
	}
	return out
}

// executeEntries attempts a new position for every candidate not already
// held. Allocation is current cash divided by the number of fresh
// candidates, capped at MaxPositionPct of current cash, rounded down to
// whole lots. Entries settle sequentially against shared cash, so earlier
// candidates in feed order win when capital is scarce.
func (e *Engine) executeEntries(ledger *Ledger, cash *CashAccount, candidates []signalfeed.Candidate, d time.Time) []Trade {
	fresh := candidates[:0:0]
	for _, c := range candidates {
		if !ledger.Has(c.Instrument) {
			fresh = append(fresh, c)
		}
	}
	n := len(fresh)
	if n == 0 {
		return nil
	}

	var out []Trade
	for _, c := range fresh {
		bar, ok := e.prices.Bar(c.Instrument, d)
		if !ok || bar.Close <= 0 {
			continue
		}
		price := bar.Close

		allocation := cash.Balance() / float64(n)
		if limit := cash.Balance() * e.cfg.MaxPositionPct; allocation > limit {
			allocation = limit
		}

		lotCost := price * float64(e.cfg.LotSize)
		shares := int64(allocation/lotCost) * e.cfg.LotSize
		if shares <= 0 {
			continue // insufficient capital is a normal outcome, not an error
		}

		gross := price * float64(shares)
		commission := gross * e.cfg.CommissionRate
		if !cash.Debit(gross + commission) {
			continue
		}

		pos := &Position{
			Instrument:  c.Instrument,
			Name:        c.Name,
			Shares:      shares,
			AverageCost: price,
			HighWater:   price,
			EntryDate:   d,
		}
		if err := ledger.Open(pos); err != nil {
			// Unreachable given the fresh filter above; refund to keep the
			// cash invariant intact regardless.
			cash.Credit(gross + commission)
			continue
		}

		out = append(out, Trade{
			Date:        d,
			Instrument:  c.Instrument,
			Name:        c.Name,
			Side:        SideBuy,
			Price:       price,
			Shares:      shares,
			GrossAmount: gross,
			Commission:  commission,
			Reason:      ReasonSignal,
		})
	}
	return out
}

// rebalance liquidates every position that has a bar today, then re-enters
// using today's signal list. It supersedes any entries made earlier the same
// day: those are sold and re-bought along with everything else. Positions
// that cannot be priced today stay on the books for a later exit.
func (e *Engine) rebalance(log *zap.Logger, ledger *Ledger, cash *CashAccount, d time.Time) []Trade {
	held := ledger.Len()
	var out []Trade
	for _, pos := range ledger.Positions() {
		bar, ok := e.prices.Bar(pos.Instrument, d)
		if !ok {
			continue
		}
		trade := e.closePosition(pos, bar.Close, d, ReasonRebalance, "")
		cash.Credit(trade.NetProceeds())
		ledger.Close(pos.Instrument)
		out = append(out, trade)
	}

	var reentered int
	if candidates := e.signals.On(d); len(candidates) > 0 {
		entries := e.executeEntries(ledger, cash, candidates, d)
		reentered = len(entries)
		out = append(out, entries...)
	}

	if held > 0 || reentered > 0 {
		log.Info("weekly rebalance",
			zap.String("date", core.FormatDate(d)),
			zap.Int("liquidated", len(out)-reentered),
			zap.Int("reentered", reentered))
	}
	return out
}

// closePosition builds the SELL trade for a full liquidation at price.
// Realized P&L is measured against the entry cost grown by a symmetric
// entry commission.
func (e *Engine) closePosition(pos *Position, price float64, d time.Time, reason Reason, detail string) Trade {
	gross := price * float64(pos.Shares)
	commission := gross * e.cfg.CommissionRate
	net := gross - commission

	cost := pos.AverageCost * float64(pos.Shares)
	totalCost := cost + cost*e.cfg.CommissionRate
	pnl := net - totalCost
	var pnlPct float64
	if totalCost > 0 {
		pnlPct = pnl / totalCost * 100
	}

	return Trade{
		Date:           d,
		Instrument:     pos.Instrument,
		Name:           pos.Name,
		Side:           SideSell,
		Price:          price,
		Shares:         pos.Shares,
		GrossAmount:    gross,
		Commission:     commission,
		RealizedPnL:    pnl,
		RealizedPnLPct: pnlPct,
		HoldingDays:    int(d.Sub(pos.EntryDate).Hours() / 24),
		Reason:         reason,
		Detail:         detail,
	}
}

// valuation marks the portfolio to market: cash plus today's close value of
// every position with a bar today. A position without a bar is omitted from
// today's mark entirely; it stays on the books and re-enters the sum when a
// bar appears. Documented approximation for suspended instruments.
func (e *Engine) valuation(ledger *Ledger, cash *CashAccount, d time.Time) float64 {
	value := cash.Balance()
	for _, pos := range ledger.Positions() {
		if bar, ok := e.prices.Bar(pos.Instrument, d); ok {
			value += pos.MarketValue(bar.Close)
		}
	}
	return value
}

func boundString(t *time.Time) string {
	if t == nil {
		return "unbounded"
	}
	return core.FormatDate(*t)
}
