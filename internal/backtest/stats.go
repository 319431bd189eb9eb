package backtest

import (
	"math"
)

const (
	// tradingDaysPerYear is used for Sharpe annualization.
	tradingDaysPerYear = 252
	// annualRiskFreePct is the assumed risk-free rate, in percent per year.
	annualRiskFreePct = 3.0
	// daysPerYear converts calendar spans to years for CAGR.
	daysPerYear = 365.25
)

// Compute post-processes a run's snapshot and trade history into the
// aggregate Result. It is a pure function: calling it twice on the same
// history yields identical results, and every degenerate input (no trades,
// a single snapshot, zero-variance returns, zero elapsed time) degrades to
// zeros instead of failing.
func Compute(initialCapital float64, snapshots []DailySnapshot, trades []Trade) *Result {
	result := &Result{
		InitialCapital: initialCapital,
		FinalValue:     initialCapital,
		TotalTrades:    len(trades),
		Snapshots:      snapshots,
		Trades:         trades,
	}
	if len(snapshots) > 0 {
		result.FinalValue = snapshots[len(snapshots)-1].TotalValue
		result.TotalReturnPct = (result.FinalValue/initialCapital - 1) * 100
		result.AnnualReturnPct = annualReturn(initialCapital, result.FinalValue, snapshots)
		result.MaxDrawdownPct = maxDrawdown(snapshots)
		result.SharpeRatio = sharpeRatio(snapshots)
	}

	sells := make([]Trade, 0, len(trades))
	for _, t := range trades {
		if t.Side == SideSell {
			sells = append(sells, t)
		}
	}
	if len(sells) == 0 {
		return result
	}

	var wins, losses int
	var winPctSum, lossPctSum, holdingSum float64
	for _, t := range sells {
		holdingSum += float64(t.HoldingDays)
		if t.RealizedPnL > 0 {
			wins++
			winPctSum += t.RealizedPnLPct
		} else {
			losses++
			lossPctSum += t.RealizedPnLPct
		}
	}

	result.WinRatePct = float64(wins) / float64(len(sells)) * 100
	if wins > 0 {
		result.AvgWinPct = winPctSum / float64(wins)
	}
	if losses > 0 {
		result.AvgLossPct = lossPctSum / float64(losses)
	}
	result.AvgHoldingDays = holdingSum / float64(len(sells))
	return result
}

// annualReturn computes the compound annual growth rate over the elapsed
// calendar span. Zero or negative elapsed time reports 0.
func annualReturn(initial, final float64, snapshots []DailySnapshot) float64 {
	days := snapshots[len(snapshots)-1].Date.Sub(snapshots[0].Date).Hours() / 24
	years := days / daysPerYear
	if years <= 0 || initial <= 0 {
		return 0
	}
	return (math.Pow(final/initial, 1/years) - 1) * 100
}

// maxDrawdown is the minimum over time of the percentage gap between the
// portfolio value and its running maximum. Always ≤ 0; exactly 0 for a
// non-decreasing equity curve.
func maxDrawdown(snapshots []DailySnapshot) float64 {
	var maxDD float64
	peak := snapshots[0].TotalValue
	for _, s := range snapshots {
		if s.TotalValue > peak {
			peak = s.TotalValue
		}
		if peak > 0 {
			dd := (s.TotalValue - peak) / peak * 100
			if dd < maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// sharpeRatio computes risk-adjusted return from day-over-day snapshot
// returns: mean daily return in percent minus a per-day risk-free rate
// (3% annual over 252 days), over the sample standard deviation, annualized
// by √252. Fewer than two returns, or zero variance, reports 0.
func sharpeRatio(snapshots []DailySnapshot) float64 {
	var returns []float64
	for i := 1; i < len(snapshots); i++ {
		prev := snapshots[i-1].TotalValue
		if prev == 0 {
			continue
		}
		returns = append(returns, (snapshots[i].TotalValue/prev-1)*100)
	}
	if len(returns) < 2 {
		return 0
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	stdDev := math.Sqrt(variance / float64(len(returns)-1))
	if stdDev == 0 {
		return 0
	}

	return (mean - annualRiskFreePct/tradingDaysPerYear) / stdDev * math.Sqrt(tradingDaysPerYear)
}
