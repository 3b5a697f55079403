package builtins

import (
	"context"

	"backtester/internal/domain"
	"backtester/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*BuyAndHold)(nil)

// BuyAndHold buys on the first bar and never sells; the engine's forced
// close at the final bar realizes the position.
type BuyAndHold struct{}

// Name returns "buy-and-hold".
func (s *BuyAndHold) Name() string { return "buy-and-hold" }

// Init is a no-op; the strategy needs no history or parameters.
func (s *BuyAndHold) Init(_ context.Context, _ []domain.Bar, _ strategy.Params) error {
	return nil
}

// OnBar buys on bar 0 and holds thereafter.
func (s *BuyAndHold) OnBar(_ context.Context, i int) (domain.Signal, error) {
	if i == 0 {
		return domain.SignalBuy, nil
	}
	return domain.SignalHold, nil
}

// Overlays returns nil; buy-and-hold exposes no indicators.
func (s *BuyAndHold) Overlays() []domain.Overlay { return nil }
