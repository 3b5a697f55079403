package builtins

import (
	"context"
	"fmt"

	"backtester/internal/domain"
	"backtester/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*RSIReversion)(nil)

var rsiParams = []strategy.ParamSpec{
	{Name: "period", Kind: strategy.ParamInteger, Default: 14, Min: fptr(2), Max: fptr(200)},
	{Name: "oversold", Kind: strategy.ParamNumeric, Default: 30.0, Min: fptr(0), Max: fptr(100)},
	{Name: "overbought", Kind: strategy.ParamNumeric, Default: 70.0, Min: fptr(0), Max: fptr(100)},
}

// RSIReversion is a mean-reversion strategy on the relative strength index:
// buy when RSI drops below the oversold level, sell when it rises above the
// overbought level.
type RSIReversion struct {
	period               int
	oversold, overbought float64
	rsi                  []domain.Float
}

// Name returns "rsi".
func (s *RSIReversion) Name() string { return "rsi" }

// Init precomputes the RSI series.
func (s *RSIReversion) Init(_ context.Context, bars []domain.Bar, params strategy.Params) error {
	s.period = params.Int("period", 14)
	s.oversold = params.Float("oversold", 30)
	s.overbought = params.Float("overbought", 70)
	if s.period < 2 {
		return fmt.Errorf("rsi: period must be >= 2, got %d", s.period)
	}
	if s.oversold >= s.overbought {
		return fmt.Errorf("rsi: oversold %.1f must be below overbought %.1f", s.oversold, s.overbought)
	}

	s.rsi = strategy.RSI(strategy.Closes(bars), s.period)
	return nil
}

// OnBar signals on the RSI thresholds. Repeated signals in the same zone are
// no-ops for the engine's state machine.
func (s *RSIReversion) OnBar(_ context.Context, i int) (domain.Signal, error) {
	v := s.rsi[i]
	if !v.Valid {
		return domain.SignalHold, nil
	}
	switch {
	case v.Value < s.oversold:
		return domain.SignalBuy, nil
	case v.Value > s.overbought:
		return domain.SignalSell, nil
	default:
		return domain.SignalHold, nil
	}
}

// Overlays exposes the RSI series.
func (s *RSIReversion) Overlays() []domain.Overlay {
	return []domain.Overlay{{Name: fmt.Sprintf("rsi_%d", s.period), Values: s.rsi}}
}
