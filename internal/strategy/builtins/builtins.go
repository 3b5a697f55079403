// Package builtins provides the built-in strategy variants that ship with
// the backtester. The set is closed: adding a variant means adding a file
// here and registering it in Register.
package builtins

import (
	"backtester/internal/strategy"
)

// Register adds every built-in strategy to the registry. Called once at
// process start; the registry is read-only afterwards.
func Register(r *strategy.Registry) {
	r.Register("buy-and-hold", func() strategy.Strategy { return &BuyAndHold{} }, nil)
	r.Register("sma-cross", func() strategy.Strategy { return &SMACross{} }, smaCrossParams)
	r.Register("rsi", func() strategy.Strategy { return &RSIReversion{} }, rsiParams)
	r.Register("macd", func() strategy.Strategy { return &MACDCross{} }, macdParams)
	r.Register("la-bomba", func() strategy.Strategy { return &LaBomba{} }, laBombaParams)
}

func fptr(v float64) *float64 { return &v }
