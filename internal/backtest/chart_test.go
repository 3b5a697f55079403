package backtest

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backtester/internal/domain"
)

func TestBuildPriceChartMarkers(t *testing.T) {
	bars := dailyBars(100, 105, 103, 110)
	trades := []domain.Trade{
		{
			EntryTime:  bars[0].Timestamp,
			ExitTime:   bars[2].Timestamp,
			EntryPrice: 100,
			ExitPrice:  103,
		},
	}

	chart := BuildPriceChart(bars, nil, trades)

	require.Len(t, chart.Dates, 4)
	require.Len(t, chart.BuyMarkers, 4)
	require.Len(t, chart.SellMarkers, 4)

	// Buy marker only at the entry bar, carrying the entry price.
	require.True(t, chart.BuyMarkers[0].Valid)
	assert.Equal(t, 100.0, chart.BuyMarkers[0].Value)
	for i := 1; i < 4; i++ {
		assert.Falsef(t, chart.BuyMarkers[i].Valid, "bar %d should have no buy marker", i)
	}

	// Sell marker only at the exit bar.
	require.True(t, chart.SellMarkers[2].Valid)
	assert.Equal(t, 103.0, chart.SellMarkers[2].Value)
	for _, i := range []int{0, 1, 3} {
		assert.Falsef(t, chart.SellMarkers[i].Valid, "bar %d should have no sell marker", i)
	}
}

func TestChartTimestampUnitIsConsistent(t *testing.T) {
	bars := dailyBars(100, 101, 102)
	equity := []domain.EquityPoint{
		{Timestamp: bars[0].Timestamp, Equity: 1000},
		{Timestamp: bars[1].Timestamp, Equity: 1000},
		{Timestamp: bars[2].Timestamp, Equity: 1000},
	}

	price := BuildPriceChart(bars, nil, nil)
	eq := BuildEquityChart(equity)

	// Both charts encode the same instants with the same numeric values:
	// Unix milliseconds across the board.
	require.Equal(t, price.Dates, eq.Dates)
	want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	assert.Equal(t, want, price.Dates[0])
	assert.Equal(t, want+24*3600*1000, price.Dates[1])
}

func TestPriceChartOverlayWarmupMarshalsAsNull(t *testing.T) {
	bars := dailyBars(100, 101, 102)
	overlays := []domain.Overlay{{
		Name:   "sma_2",
		Values: []domain.Float{{}, domain.FloatOf(100.5), domain.FloatOf(101.5)},
	}}

	chart := BuildPriceChart(bars, overlays, nil)
	b, err := json.Marshal(chart)
	require.NoError(t, err)

	var decoded struct {
		Overlays []struct {
			Name   string     `json:"name"`
			Values []*float64 `json:"values"`
		} `json:"overlays"`
		BuyMarkers []*float64 `json:"buy_markers"`
	}
	require.NoError(t, json.Unmarshal(b, &decoded))
	require.Len(t, decoded.Overlays, 1)

	// Warm-up is null, not 0.
	assert.Nil(t, decoded.Overlays[0].Values[0])
	require.NotNil(t, decoded.Overlays[0].Values[1])
	assert.Equal(t, 100.5, *decoded.Overlays[0].Values[1])

	// No trades: marker series are all null.
	for i, v := range decoded.BuyMarkers {
		assert.Nilf(t, v, "buy marker %d should be null", i)
	}
}

func TestBuildEquityChart(t *testing.T) {
	equity := []domain.EquityPoint{
		{Timestamp: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Equity: 1000},
		{Timestamp: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), Equity: 1030},
	}
	chart := BuildEquityChart(equity)

	require.Len(t, chart.Dates, 2)
	assert.Equal(t, equity[0].Timestamp.UnixMilli(), chart.Dates[0])
	assert.Equal(t, []float64{1000, 1030}, chart.Equity)
}
