package backtest

import (
	"time"
)

// Side identifies the direction of a trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Reason identifies what rule produced a trade.
type Reason string

const (
	// ReasonSignal marks an entry driven by the day's buy candidates,
	// including re-entries right after a rebalance liquidation.
	ReasonSignal Reason = "signal"
	// ReasonStopLoss marks a forced exit after drawing down from the
	// high-water mark by at least the configured threshold.
	ReasonStopLoss Reason = "stop_loss"
	// ReasonRebalance marks a liquidation on the configured weekday,
	// independent of drawdown.
	ReasonRebalance Reason = "rebalance"
)

// Position is one open holding. A given instrument has at most one open
// Position at any time; it is created by a BUY, its high-water mark is
// ratcheted up daily while held, and it is destroyed by a SELL.
type Position struct {
	Instrument  string
	Name        string
	Shares      int64
	AverageCost float64
	// HighWater is the maximum daily close observed since entry. It never
	// decreases while the position is held.
	HighWater float64
	EntryDate time.Time
}

// MarketValue returns the position's value at the given price.
func (p *Position) MarketValue(price float64) float64 {
	return price * float64(p.Shares)
}

// Trade is an immutable record of one executed buy or sell.
type Trade struct {
	Date       time.Time `json:"date"`
	Instrument string    `json:"instrument"`
	Name       string    `json:"name,omitempty"`
	Side       Side      `json:"side"`
	Price      float64   `json:"price"`
	Shares     int64     `json:"shares"`
	// GrossAmount is price × shares before commission.
	GrossAmount float64 `json:"gross_amount"`
	Commission  float64 `json:"commission"`
	// RealizedPnL and RealizedPnLPct are set on SELL trades only; both are
	// measured against the entry cost grown by the symmetric entry
	// commission. RealizedPnLPct is a percentage.
	RealizedPnL    float64 `json:"realized_pnl"`
	RealizedPnLPct float64 `json:"realized_pnl_pct"`
	// HoldingDays is calendar days between entry and exit (SELL only).
	HoldingDays int    `json:"holding_days"`
	Reason      Reason `json:"reason"`
	// Detail carries rule-specific context, e.g. the realized drawdown that
	// tripped a stop-loss.
	Detail string `json:"detail,omitempty"`
}

// NetProceeds returns the cash credited by a SELL.
func (t Trade) NetProceeds() float64 {
	return t.GrossAmount - t.Commission
}

// TotalCost returns the cash debited by a BUY.
func (t Trade) TotalCost() float64 {
	return t.GrossAmount + t.Commission
}

// IsWin reports whether a closed trade realized a profit.
func (t Trade) IsWin() bool {
	return t.Side == SideSell && t.RealizedPnL > 0
}

// DailySnapshot is the recorded portfolio state for one trading date.
type DailySnapshot struct {
	Date          time.Time `json:"date"`
	Cash          float64   `json:"cash"`
	PositionCount int       `json:"position_count"`
	TotalValue    float64   `json:"total_value"`
	// ReturnPct is the cumulative return versus initial capital, in percent.
	ReturnPct float64 `json:"return_pct"`
}

// Result is the aggregate outcome of one simulation run. It is computed once
// after the final trading date and never mutated afterwards.
type Result struct {
	RunID          string    `json:"run_id"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	InitialCapital float64   `json:"initial_capital"`
	FinalValue     float64   `json:"final_value"`
	TotalReturnPct float64   `json:"total_return_pct"`
	// AnnualReturnPct is the compound annual growth rate over the elapsed
	// calendar span (365.25-day years).
	AnnualReturnPct float64 `json:"annual_return_pct"`
	// MaxDrawdownPct is the worst peak-to-trough decline of total portfolio
	// value, in percent. Always ≤ 0.
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	SharpeRatio    float64 `json:"sharpe_ratio"`
	TotalTrades    int     `json:"total_trades"`
	WinRatePct     float64 `json:"win_rate_pct"`
	AvgWinPct      float64 `json:"avg_win_pct"`
	AvgLossPct     float64 `json:"avg_loss_pct"`
	AvgHoldingDays float64 `json:"avg_holding_days"`

	Snapshots []DailySnapshot `json:"snapshots"`
	Trades    []Trade         `json:"trades"`
}
