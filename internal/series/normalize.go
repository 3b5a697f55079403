// Package series validates and shapes raw tabular OHLCV data into the
// canonical bar sequence the simulation engine consumes.
package series

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"backtester/internal/domain"
)

// RequiredColumns are the columns every raw series must carry.
var RequiredColumns = []string{"open", "high", "low", "close", "volume"}

// ErrInsufficientData is returned when fewer than 2 bars remain after range
// filtering. No strategy can act on 0 or 1 bars.
var ErrInsufficientData = errors.New("insufficient data: need at least 2 bars")

// MalformedDataError reports an unusable raw series: a missing column, a
// column/index length mismatch, or a non-finite value.
type MalformedDataError struct {
	Column string
	Reason string
}

func (e *MalformedDataError) Error() string {
	return fmt.Sprintf("malformed data in column %q: %s", e.Column, e.Reason)
}

// Table is a raw tabular price series: a timestamp index plus named float
// columns, as delivered by a market data provider.
type Table struct {
	Symbol     string
	Timestamps []time.Time
	Columns    map[string][]float64
}

// Normalize validates tbl and shapes it into an ordered bar sequence:
// timestamps are forced to UTC, sorted strictly increasing with duplicates
// dropped (last sample wins), and filtered to [start, end]. It is a pure
// transform; tbl is not modified.
//
// Returns a MalformedDataError when a required column is absent, has a
// length different from the timestamp index, or contains a non-finite value,
// and ErrInsufficientData when fewer than 2 bars remain.
func Normalize(tbl Table, start, end time.Time) ([]domain.Bar, error) {
	n := len(tbl.Timestamps)
	for _, name := range RequiredColumns {
		col, ok := tbl.Columns[name]
		if !ok {
			return nil, &MalformedDataError{Column: name, Reason: "column missing"}
		}
		if len(col) != n {
			return nil, &MalformedDataError{
				Column: name,
				Reason: fmt.Sprintf("length %d does not match %d timestamps", len(col), n),
			}
		}
		for i, v := range col {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, &MalformedDataError{
					Column: name,
					Reason: fmt.Sprintf("non-finite value at row %d", i),
				}
			}
		}
	}

	// Dedup by timestamp, keeping the last occurrence.
	byTime := make(map[time.Time]domain.Bar, n)
	for i := 0; i < n; i++ {
		ts := tbl.Timestamps[i].UTC()
		if !start.IsZero() && ts.Before(start) {
			continue
		}
		if !end.IsZero() && ts.After(end) {
			continue
		}
		byTime[ts] = domain.Bar{
			Symbol:    tbl.Symbol,
			Timestamp: ts,
			Open:      tbl.Columns["open"][i],
			High:      tbl.Columns["high"][i],
			Low:       tbl.Columns["low"][i],
			Close:     tbl.Columns["close"][i],
			Volume:    tbl.Columns["volume"][i],
		}
	}

	bars := make([]domain.Bar, 0, len(byTime))
	for _, b := range byTime {
		bars = append(bars, b)
	}
	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Timestamp.Before(bars[j].Timestamp)
	})

	if len(bars) < 2 {
		return nil, ErrInsufficientData
	}
	return bars, nil
}

// FromBars rebuilds a Table from an already-shaped bar sequence. Used when
// serving cached bars through the same normalization path as fresh ones.
func FromBars(symbol string, bars []domain.Bar) Table {
	tbl := Table{
		Symbol:     symbol,
		Timestamps: make([]time.Time, len(bars)),
		Columns: map[string][]float64{
			"open":   make([]float64, len(bars)),
			"high":   make([]float64, len(bars)),
			"low":    make([]float64, len(bars)),
			"close":  make([]float64, len(bars)),
			"volume": make([]float64, len(bars)),
		},
	}
	for i, b := range bars {
		tbl.Timestamps[i] = b.Timestamp
		tbl.Columns["open"][i] = b.Open
		tbl.Columns["high"][i] = b.High
		tbl.Columns["low"][i] = b.Low
		tbl.Columns["close"][i] = b.Close
		tbl.Columns["volume"][i] = b.Volume
	}
	return tbl
}
