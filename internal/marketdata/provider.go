// Package marketdata fetches OHLCV bar history from external providers and
// serves it through a local Parquet cache.
package marketdata

import (
	"context"
	"fmt"
	"time"

	"backtester/internal/series"
)

// Supported bar intervals.
const (
	IntervalDay    = "1d"
	IntervalWeek   = "1wk"
	IntervalHourly = "1h"
)

// Provider fetches raw bar history for one symbol. Implementations return
// data exactly as the upstream supplies it; validation and normalization
// happen downstream.
type Provider interface {
	// Fetch returns raw bars for symbol at the given interval within
	// [start, end]. An empty result is an error: every valid request
	// yields at least one bar.
	Fetch(ctx context.Context, symbol, interval string, start, end time.Time) (series.Table, error)
}

// DataFetchError wraps a provider failure or an empty upstream response. It
// separates upstream faults from client input errors and internal errors.
type DataFetchError struct {
	Symbol string
	Err    error
}

func (e *DataFetchError) Error() string {
	return fmt.Sprintf("fetching data for %s: %v", e.Symbol, e.Err)
}

func (e *DataFetchError) Unwrap() error { return e.Err }

// ValidInterval reports whether the interval string names a supported bar
// interval.
func ValidInterval(interval string) bool {
	switch interval {
	case IntervalDay, IntervalWeek, IntervalHourly:
		return true
	}
	return false
}
