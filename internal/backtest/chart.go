package backtest

import (
	"backtester/internal/domain"
)

// Chart series are the renderer contract: every series in both charts is
// aligned to the same bar axis and every timestamp is encoded as Unix
// milliseconds. One unit, applied uniformly, never mixed per series.

// BuildPriceChart projects bars, strategy overlays, and the trade list into
// the price panel series. Buy markers carry the entry price at the bar a
// trade opened; sell markers carry the exit price at the bar it closed; all
// other positions are null. Overlay warm-up gaps stay null rather than 0.
func BuildPriceChart(bars []domain.Bar, overlays []domain.Overlay, trades []domain.Trade) domain.PriceChart {
	chart := domain.PriceChart{
		Dates:       make([]int64, len(bars)),
		Close:       make([]float64, len(bars)),
		Overlays:    overlays,
		BuyMarkers:  make([]domain.Float, len(bars)),
		SellMarkers: make([]domain.Float, len(bars)),
	}

	index := make(map[int64]int, len(bars))
	for i, b := range bars {
		ms := b.Timestamp.UnixMilli()
		chart.Dates[i] = ms
		chart.Close[i] = b.Close
		index[ms] = i
	}

	for _, t := range trades {
		if i, ok := index[t.EntryTime.UnixMilli()]; ok {
			chart.BuyMarkers[i] = domain.FloatOf(t.EntryPrice)
		}
		if i, ok := index[t.ExitTime.UnixMilli()]; ok {
			chart.SellMarkers[i] = domain.FloatOf(t.ExitPrice)
		}
	}
	return chart
}

// BuildEquityChart projects the equity curve into the equity panel series,
// using the same millisecond timestamp encoding as the price chart.
func BuildEquityChart(equity []domain.EquityPoint) domain.EquityChart {
	chart := domain.EquityChart{
		Dates:  make([]int64, len(equity)),
		Equity: make([]float64, len(equity)),
	}
	for i, p := range equity {
		chart.Dates[i] = p.Timestamp.UnixMilli()
		chart.Equity[i] = p.Equity
	}
	return chart
}
