package builtins

import (
	"context"
	"fmt"

	"backtester/internal/domain"
	"backtester/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*MACDCross)(nil)

var macdParams = []strategy.ParamSpec{
	{Name: "fast", Kind: strategy.ParamInteger, Default: 12, Min: fptr(2), Max: fptr(200)},
	{Name: "slow", Kind: strategy.ParamInteger, Default: 26, Min: fptr(3), Max: fptr(400)},
	{Name: "signal", Kind: strategy.ParamInteger, Default: 9, Min: fptr(2), Max: fptr(200)},
}

// MACDCross trades crossings of the MACD line against its signal line: buy
// when MACD crosses above the signal, sell when it crosses below.
type MACDCross struct {
	fast, slow, signal int
	macd               []domain.Float
	signalLine         []domain.Float
}

// Name returns "macd".
func (s *MACDCross) Name() string { return "macd" }

// Init precomputes the MACD and signal series.
func (s *MACDCross) Init(_ context.Context, bars []domain.Bar, params strategy.Params) error {
	s.fast = params.Int("fast", 12)
	s.slow = params.Int("slow", 26)
	s.signal = params.Int("signal", 9)
	if s.fast < 2 || s.slow <= s.fast || s.signal < 2 {
		return fmt.Errorf("macd: need 2 <= fast < slow and signal >= 2, got %d/%d/%d",
			s.fast, s.slow, s.signal)
	}

	s.macd, s.signalLine = strategy.MACD(strategy.Closes(bars), s.fast, s.slow, s.signal)
	return nil
}

// OnBar signals on MACD/signal-line crossovers.
func (s *MACDCross) OnBar(_ context.Context, i int) (domain.Signal, error) {
	switch {
	case strategy.Crossover(s.macd, s.signalLine, i):
		return domain.SignalBuy, nil
	case strategy.Crossover(s.signalLine, s.macd, i):
		return domain.SignalSell, nil
	default:
		return domain.SignalHold, nil
	}
}

// Overlays exposes the MACD and signal series.
func (s *MACDCross) Overlays() []domain.Overlay {
	return []domain.Overlay{
		{Name: "macd", Values: s.macd},
		{Name: "macd_signal", Values: s.signalLine},
	}
}
