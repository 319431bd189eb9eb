package backtest

import (
	"fmt"
	"time"

	"github.com/fairweather/keel/internal/core"
)

// Config is the complete, immutable parameter set of one simulation run. It
// is passed to New by value; nothing mutates it afterwards, so independent
// engines can share one Config.
type Config struct {
	InitialCapital float64
	// StopLossThreshold is the drawdown fraction from the high-water mark
	// that forces an exit, e.g. 0.04.
	StopLossThreshold float64
	// CommissionRate is applied to the gross amount of every trade.
	CommissionRate float64

	RebalanceEnabled bool
	// RebalanceWeekday is 0–6 with Monday=0.
	RebalanceWeekday int

	// StartDate and EndDate optionally bound the trading-date universe
	// (inclusive). Nil means unbounded.
	StartDate *time.Time
	EndDate   *time.Time

	// LotSize is the minimum tradable share increment, e.g. 100.
	LotSize int64
	// MaxPositionPct caps a single entry at this fraction of current cash,
	// e.g. 0.20.
	MaxPositionPct float64
}

// Validate checks every parameter before a run starts. A failure here means
// nothing gets simulated.
func (c Config) Validate() error {
	if c.InitialCapital <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("initial_capital must be positive, got %v", c.InitialCapital))
	}
	if c.StopLossThreshold <= 0 || c.StopLossThreshold >= 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("stop_loss_threshold must be in (0,1), got %v", c.StopLossThreshold))
	}
	if c.CommissionRate < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("commission_rate cannot be negative, got %v", c.CommissionRate))
	}
	if c.RebalanceWeekday < 0 || c.RebalanceWeekday > 6 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("rebalance_weekday must be 0-6 (Monday=0), got %d", c.RebalanceWeekday))
	}
	if c.LotSize <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("lot_size must be positive, got %d", c.LotSize))
	}
	if c.MaxPositionPct <= 0 || c.MaxPositionPct > 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("max_position_pct must be in (0,1], got %v", c.MaxPositionPct))
	}
	if c.StartDate != nil && c.EndDate != nil && c.EndDate.Before(*c.StartDate) {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("end_date %s precedes start_date %s",
				core.FormatDate(*c.EndDate), core.FormatDate(*c.StartDate)))
	}
	return nil
}
