package builtins

import (
	"context"
	"fmt"

	"backtester/internal/domain"
	"backtester/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*LaBomba)(nil)

var laBombaParams = []strategy.ParamSpec{
	{Name: "fast", Kind: strategy.ParamInteger, Default: 10, Min: fptr(2), Max: fptr(200)},
	{Name: "slow", Kind: strategy.ParamInteger, Default: 50, Min: fptr(3), Max: fptr(500)},
	{Name: "stop_loss_pct", Kind: strategy.ParamNumeric, Default: 0.01, Min: fptr(0.001), Max: fptr(0.5)},
	{Name: "take_profit_pct", Kind: strategy.ParamNumeric, Default: 0.02, Min: fptr(0.001), Max: fptr(1)},
	{Name: "breakeven_pct", Kind: strategy.ParamNumeric, Default: 0.01, Min: fptr(0.001), Max: fptr(0.5)},
}

// LaBomba is a fast/slow SMA crossover with in-strategy risk management:
// entries on the 10/50 upward cross, exits on stop-loss, take-profit, the
// downward cross, or whichever comes first. Once the position gains
// breakeven_pct, the stop is raised to the entry price. Long entries only.
type LaBomba struct {
	fast, slow    int
	stopLossPct   float64
	takeProfitPct float64
	breakevenPct  float64

	bars   []domain.Bar
	fastMA []domain.Float
	slowMA []domain.Float

	// Implied engine state mirrored locally so exit levels follow the
	// position the engine actually holds.
	inPosition bool
	entryPrice float64
	stop       float64
	target     float64
}

// Name returns "la-bomba".
func (s *LaBomba) Name() string { return "la-bomba" }

// Init precomputes the moving averages and resets position state.
func (s *LaBomba) Init(_ context.Context, bars []domain.Bar, params strategy.Params) error {
	s.fast = params.Int("fast", 10)
	s.slow = params.Int("slow", 50)
	s.stopLossPct = params.Float("stop_loss_pct", 0.01)
	s.takeProfitPct = params.Float("take_profit_pct", 0.02)
	s.breakevenPct = params.Float("breakeven_pct", 0.01)
	if s.fast < 2 || s.slow <= s.fast {
		return fmt.Errorf("la-bomba: need 2 <= fast < slow, got fast=%d slow=%d", s.fast, s.slow)
	}

	s.bars = bars
	closes := strategy.Closes(bars)
	s.fastMA = strategy.SMA(closes, s.fast)
	s.slowMA = strategy.SMA(closes, s.slow)
	s.inPosition = false
	return nil
}

// OnBar manages the exit levels of an open position first, then looks for a
// new entry. All decisions use the bar close, matching the engine's
// execution price.
func (s *LaBomba) OnBar(_ context.Context, i int) (domain.Signal, error) {
	price := s.bars[i].Close

	if s.inPosition {
		// Move the stop to break even once the gain threshold is reached.
		if price/s.entryPrice-1 >= s.breakevenPct && s.stop < s.entryPrice {
			s.stop = s.entryPrice
		}
		if price <= s.stop || price >= s.target || strategy.Crossover(s.slowMA, s.fastMA, i) {
			s.inPosition = false
			return domain.SignalSell, nil
		}
		return domain.SignalHold, nil
	}

	if strategy.Crossover(s.fastMA, s.slowMA, i) {
		s.inPosition = true
		s.entryPrice = price
		s.stop = price * (1 - s.stopLossPct)
		s.target = price * (1 + s.takeProfitPct)
		return domain.SignalBuy, nil
	}
	return domain.SignalHold, nil
}

// Overlays exposes both averages for the price chart.
func (s *LaBomba) Overlays() []domain.Overlay {
	return []domain.Overlay{
		{Name: fmt.Sprintf("sma_%d", s.fast), Values: s.fastMA},
		{Name: fmt.Sprintf("sma_%d", s.slow), Values: s.slowMA},
	}
}
