// Package store defines storage interfaces for persisting and retrieving
// domain objects: cached OHLCV bars and completed backtest runs with their
// trade lists and equity curves.
package store

import (
	"context"
	"errors"
	"time"

	"backtester/internal/domain"
)

// ErrRunNotFound is returned when a run ID does not exist in storage.
var ErrRunNotFound = errors.New("run not found")

// BarStore persists and retrieves OHLCV bar data.
type BarStore interface {
	// WriteBars persists a batch of bars, merging with any already stored.
	WriteBars(ctx context.Context, bars []domain.Bar) error

	// ReadBars returns bars for the given symbol within [start, end],
	// sorted by timestamp.
	ReadBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols with stored bars.
	ListSymbols(ctx context.Context) ([]string, error)
}

// RunStore persists completed backtest runs. A run and its trades and
// equity points are written atomically; readers never observe a partial run.
type RunStore interface {
	// SaveRun inserts a run record together with its trades and equity
	// curve. All rows commit or none do.
	SaveRun(ctx context.Context, run *domain.Run, trades []domain.Trade, equity []domain.EquityPoint) error

	// GetRun retrieves a single run by ID, or ErrRunNotFound.
	GetRun(ctx context.Context, id string) (*domain.Run, error)

	// ListRuns returns runs ordered newest first, up to limit. A limit of
	// 0 means no limit.
	ListRuns(ctx context.Context, limit int) ([]domain.Run, error)

	// TradesForRun returns the trades of a run in entry-time order.
	TradesForRun(ctx context.Context, runID string) ([]domain.Trade, error)

	// EquityForRun returns the equity curve of a run in timestamp order.
	EquityForRun(ctx context.Context, runID string) ([]domain.EquityPoint, error)
}
