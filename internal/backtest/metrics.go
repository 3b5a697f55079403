package backtest

import (
	"math"

	"backtester/internal/domain"
)

// Annualization constants: calendar days per year for CAGR, trading periods
// per year for the Sharpe ratio.
const (
	daysPerYear    = 365.25
	periodsPerYear = 252
	hoursPerDay    = 24
)

// ComputeMetrics derives the summary statistics from an equity curve
// (length >= 2) and the completed trade list. Mathematically undefined
// results (zero elapsed days, zero return variance, zero trades) resolve to
// undefined Floats, never to 0 and never to an error.
func ComputeMetrics(equity []domain.EquityPoint, trades []domain.Trade) domain.MetricsBundle {
	first, last := equity[0].Equity, equity[len(equity)-1].Equity

	m := domain.MetricsBundle{
		TotalReturnPct: (last/first - 1) * 100,
		TradeCount:     len(trades),
	}

	// CAGR over elapsed calendar days.
	days := equity[len(equity)-1].Timestamp.Sub(equity[0].Timestamp).Hours() / hoursPerDay
	if days > 0 {
		m.CAGRPct = domain.FloatOf((math.Pow(last/first, daysPerYear/days) - 1) * 100)
	}

	// Sharpe over per-bar returns, sample standard deviation, annualized.
	returns := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		returns = append(returns, equity[i].Equity/equity[i-1].Equity-1)
	}
	if sd := stdev(returns); sd > 0 {
		m.Sharpe = domain.FloatOf(mean(returns) / sd * math.Sqrt(periodsPerYear))
	}

	m.MaxDrawdownPct = maxDrawdownPct(equity)

	if len(trades) > 0 {
		wins := 0
		for _, t := range trades {
			if t.PnL > 0 {
				wins++
			}
		}
		m.WinRatePct = domain.FloatOf(100 * float64(wins) / float64(len(trades)))
	}

	return m
}

// maxDrawdownPct returns the largest percentage decline from a running peak.
// Always >= 0; exactly 0 iff the curve is non-decreasing.
func maxDrawdownPct(equity []domain.EquityPoint) float64 {
	peak := equity[0].Equity
	maxDD := 0.0
	for _, p := range equity {
		if p.Equity > peak {
			peak = p.Equity
		}
		if dd := (peak - p.Equity) / peak * 100; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stdev is the sample standard deviation (N-1). Returns 0 for fewer than
// two samples.
func stdev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}
