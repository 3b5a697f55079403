package backtest

import (
	"context"
	"fmt"
	"log/slog"

	"backtester/internal/domain"
	"backtester/internal/strategy"
)

// Runner wires the strategy registry to the simulation engine and assembles
// the full BacktestResult: metrics, trades, equity curve, and chart series.
// A single Runner serves concurrent runs; the registry is its only shared
// state and is read-only.
type Runner struct {
	registry *strategy.Registry
	log      *slog.Logger
}

// NewRunner creates a Runner over the given registry.
func NewRunner(registry *strategy.Registry) *Runner {
	return &Runner{
		registry: registry,
		log:      slog.Default().With("component", "backtest"),
	}
}

// Registry exposes the runner's strategy registry for introspection
// endpoints.
func (r *Runner) Registry() *strategy.Registry { return r.registry }

// Run executes one backtest over normalized bars: resolve the strategy,
// construct a fresh instance, initialize it with the full history and
// parameters, replay, then derive metrics and chart series. The result is
// all-or-nothing: any failure returns a nil result.
func (r *Runner) Run(
	ctx context.Context,
	bars []domain.Bar,
	name string,
	params strategy.Params,
	startingCapital float64,
) (*domain.BacktestResult, error) {
	ctor, err := r.registry.Resolve(name)
	if err != nil {
		return nil, err
	}

	strat := ctor()
	if err := strat.Init(ctx, bars, params); err != nil {
		return nil, &StrategyExecutionError{Strategy: name, Bar: -1, Err: fmt.Errorf("init: %w", err)}
	}

	outcome, err := NewEngine(bars, startingCapital).Run(ctx, strat)
	if err != nil {
		return nil, err
	}

	result := &domain.BacktestResult{
		Metrics:     ComputeMetrics(outcome.EquityCurve, outcome.Trades),
		Trades:      outcome.Trades,
		EquityCurve: outcome.EquityCurve,
		PriceChart:  BuildPriceChart(bars, strat.Overlays(), outcome.Trades),
		EquityChart: BuildEquityChart(outcome.EquityCurve),
	}

	r.log.Info("backtest complete",
		"strategy", name,
		"bars", len(bars),
		"trades", result.Metrics.TradeCount,
		"total_return_pct", result.Metrics.TotalReturnPct,
	)
	return result, nil
}
