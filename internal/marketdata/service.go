package marketdata

import (
	"context"
	"log/slog"
	"time"

	"backtester/internal/domain"
	"backtester/internal/series"
	"backtester/internal/store"
)

// cacheEdgeSlack is how far a cached range's edges may sit inside the
// requested range before we refetch. Daily bars never land on weekends or
// market holidays, so exact edge matches are not expected.
const cacheEdgeSlack = 5 * 24 * time.Hour

// Service serves normalized bars, reading daily bars through a local cache
// and falling back to the provider on a miss. Non-daily intervals always go
// to the provider.
type Service struct {
	provider Provider
	cache    store.BarStore
	log      *slog.Logger
}

// NewService creates a Service over the given provider and bar cache. A nil
// cache disables caching.
func NewService(provider Provider, cache store.BarStore) *Service {
	return &Service{
		provider: provider,
		cache:    cache,
		log:      slog.Default().With("component", "marketdata"),
	}
}

// GetBars returns the normalized bar sequence for symbol at the given
// interval within [start, end]. Fresh provider data is cached before it is
// returned; cache write failures are logged and do not fail the request.
func (s *Service) GetBars(ctx context.Context, symbol, interval string, start, end time.Time) ([]domain.Bar, error) {
	if s.cache != nil && interval == IntervalDay {
		cached, err := s.cache.ReadBars(ctx, symbol, start, end)
		if err == nil && covers(cached, start, end) {
			s.log.Debug("cache hit", "symbol", symbol, "bars", len(cached))
			return series.Normalize(series.FromBars(symbol, cached), start, end)
		}
	}

	tbl, err := s.provider.Fetch(ctx, symbol, interval, start, end)
	if err != nil {
		return nil, err
	}

	bars, err := series.Normalize(tbl, start, end)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && interval == IntervalDay {
		if err := s.cache.WriteBars(ctx, bars); err != nil {
			s.log.Warn("caching bars failed", "symbol", symbol, "err", err)
		}
	}
	return bars, nil
}

// covers reports whether cached bars span the requested range closely
// enough to skip the provider.
func covers(bars []domain.Bar, start, end time.Time) bool {
	if len(bars) < 2 {
		return false
	}
	first := bars[0].Timestamp
	last := bars[len(bars)-1].Timestamp
	return first.Sub(start) <= cacheEdgeSlack && end.Sub(last) <= cacheEdgeSlack
}
