// Package backtest replays historical bars through a strategy, tracks
// cash/position/equity, and derives performance statistics and chart series
// from the result.
package backtest

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"backtester/internal/domain"
	"backtester/internal/strategy"
)

// StrategyExecutionError reports a strategy fault mid-run. The run is
// abandoned; no partial result is ever returned.
type StrategyExecutionError struct {
	Strategy string
	Bar      int
	Err      error
}

func (e *StrategyExecutionError) Error() string {
	return fmt.Sprintf("strategy %q failed at bar %d: %v", e.Strategy, e.Bar, e.Err)
}

func (e *StrategyExecutionError) Unwrap() error { return e.Err }

// Outcome is the raw engine output before metrics and chart projection.
type Outcome struct {
	Trades      []domain.Trade
	EquityCurve []domain.EquityPoint
	FinalEquity float64
}

// Engine replays a bar sequence through a strategy instance. Each run is a
// pure, deterministic, single-goroutine computation: same bars, strategy,
// parameters, and capital always produce the same outcome. A caller that
// wants to bound run time imposes a deadline around Run and discards the
// result; the engine itself never blocks.
type Engine struct {
	bars    []domain.Bar
	capital float64
	log     *slog.Logger
}

// NewEngine creates an engine over an already-normalized bar sequence with
// the given starting capital.
func NewEngine(bars []domain.Bar, startingCapital float64) *Engine {
	return &Engine{
		bars:    bars,
		capital: startingCapital,
		log:     slog.Default().With("component", "engine"),
	}
}

// Run executes the strategy bar by bar. The position state machine is
// long-only with at most one open position: Buy while flat opens a position
// sized floor(cash/close) (a zero-size buy is silently ignored), Sell while
// long closes it at the bar close, and every other signal/state combination
// is a no-op. An open position at the end of the sequence is force-closed
// against the final bar's close so the last trade and final equity are
// realized.
func (e *Engine) Run(ctx context.Context, strat strategy.Strategy) (*Outcome, error) {
	cash := e.capital
	var pos *domain.Position

	out := &Outcome{
		Trades:      []domain.Trade{},
		EquityCurve: make([]domain.EquityPoint, 0, len(e.bars)),
	}

	for i, bar := range e.bars {
		// Mark to market before acting on this bar's signal. Executions
		// happen at the same close, so they don't move this value.
		equity := cash
		if pos != nil {
			equity = cash + pos.Size*bar.Close
		}
		out.EquityCurve = append(out.EquityCurve, domain.EquityPoint{
			Timestamp: bar.Timestamp,
			Equity:    equity,
		})

		sig, err := strat.OnBar(ctx, i)
		if err != nil {
			return nil, &StrategyExecutionError{Strategy: strat.Name(), Bar: i, Err: err}
		}

		switch {
		case sig == domain.SignalBuy && pos == nil:
			// A buy on the final bar would be force-closed on the same
			// bar, producing a trade with entry_time == exit_time.
			if i == len(e.bars)-1 {
				continue
			}
			size := math.Floor(cash / bar.Close)
			if size <= 0 {
				continue
			}
			cash -= size * bar.Close
			pos = &domain.Position{
				EntryTime:  bar.Timestamp,
				EntryPrice: bar.Close,
				Size:       size,
			}

		case sig == domain.SignalSell && pos != nil:
			cash += pos.Size * bar.Close
			out.Trades = append(out.Trades, closeTrade(pos, bar))
			pos = nil
		}
	}

	// Mark-to-close: realize any open position at the final bar.
	if pos != nil {
		last := e.bars[len(e.bars)-1]
		cash += pos.Size * last.Close
		out.Trades = append(out.Trades, closeTrade(pos, last))
		pos = nil
	}

	out.FinalEquity = cash
	e.log.Debug("run complete",
		"strategy", strat.Name(),
		"bars", len(e.bars),
		"trades", len(out.Trades),
		"final_equity", out.FinalEquity,
	)
	return out, nil
}

// closeTrade converts an open position into a completed trade at the bar's
// close price.
func closeTrade(pos *domain.Position, bar domain.Bar) domain.Trade {
	exit := bar.Close
	return domain.Trade{
		EntryTime:  pos.EntryTime,
		ExitTime:   bar.Timestamp,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  exit,
		Size:       pos.Size,
		PnL:        pos.Size * (exit - pos.EntryPrice),
		ReturnPct:  (exit/pos.EntryPrice - 1) * 100,
		Duration:   bar.Timestamp.Sub(pos.EntryTime),
	}
}
