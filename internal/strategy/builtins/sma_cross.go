package builtins

import (
	"context"
	"fmt"

	"backtester/internal/domain"
	"backtester/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*SMACross)(nil)

var smaCrossParams = []strategy.ParamSpec{
	{Name: "fast", Kind: strategy.ParamInteger, Default: 50, Min: fptr(2), Max: fptr(500)},
	{Name: "slow", Kind: strategy.ParamInteger, Default: 100, Min: fptr(3), Max: fptr(1000)},
}

// SMACross is a simple moving average crossover strategy: buy when the fast
// SMA crosses above the slow SMA, sell when it crosses below.
type SMACross struct {
	fast, slow int
	fastMA     []domain.Float
	slowMA     []domain.Float
}

// Name returns "sma-cross".
func (s *SMACross) Name() string { return "sma-cross" }

// Init precomputes both moving averages over the full close series.
func (s *SMACross) Init(_ context.Context, bars []domain.Bar, params strategy.Params) error {
	s.fast = params.Int("fast", 50)
	s.slow = params.Int("slow", 100)
	if s.fast < 2 || s.slow <= s.fast {
		return fmt.Errorf("sma-cross: need 2 <= fast < slow, got fast=%d slow=%d", s.fast, s.slow)
	}

	closes := strategy.Closes(bars)
	s.fastMA = strategy.SMA(closes, s.fast)
	s.slowMA = strategy.SMA(closes, s.slow)
	return nil
}

// OnBar signals on crossovers between the two averages.
func (s *SMACross) OnBar(_ context.Context, i int) (domain.Signal, error) {
	switch {
	case strategy.Crossover(s.fastMA, s.slowMA, i):
		return domain.SignalBuy, nil
	case strategy.Crossover(s.slowMA, s.fastMA, i):
		return domain.SignalSell, nil
	default:
		return domain.SignalHold, nil
	}
}

// Overlays exposes both averages for the price chart.
func (s *SMACross) Overlays() []domain.Overlay {
	return []domain.Overlay{
		{Name: fmt.Sprintf("sma_%d", s.fast), Values: s.fastMA},
		{Name: fmt.Sprintf("sma_%d", s.slow), Values: s.slowMA},
	}
}
