package httpapi

import (
	"fmt"
	"strings"
	"time"

	"backtester/internal/domain"
	"backtester/internal/strategy"
)

// strategyAliases maps UI labels to registry identifiers. Unknown names pass
// through unchanged so logical identifiers always work directly.
var strategyAliases = map[string]string{
	"SMA":          "sma-cross",
	"EMA":          "sma-cross",
	"RSI":          "rsi",
	"MACD":         "macd",
	"LA_BOMBA":     "la-bomba",
	"buy_and_hold": "buy-and-hold",
	"sma_cross":    "sma-cross",
	"la_bomba":     "la-bomba",
}

// canonicalStrategy resolves a UI label or identifier to the registry
// identifier.
func canonicalStrategy(name string) string {
	if id, ok := strategyAliases[name]; ok {
		return id
	}
	return name
}

// BacktestRequest is the POST /api/backtest body. Dates are "YYYY-MM-DD".
type BacktestRequest struct {
	Ticker    string         `json:"ticker"`
	StartDate string         `json:"start_date"`
	EndDate   string         `json:"end_date"`
	Strategy  string         `json:"strategy"`
	Capital   float64        `json:"capital"`
	Interval  string         `json:"interval"`
	Params    map[string]any `json:"params"`
}

// ValidationError reports a rejected request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// validate checks field-level constraints and parses the date range. The
// strategy name is resolved separately against the registry.
func (r *BacktestRequest) validate() (start, end time.Time, err error) {
	if strings.TrimSpace(r.Ticker) == "" {
		return start, end, &ValidationError{Field: "ticker", Reason: "required"}
	}
	if r.Strategy == "" {
		return start, end, &ValidationError{Field: "strategy", Reason: "required"}
	}
	if r.Capital < 0 {
		return start, end, &ValidationError{Field: "capital", Reason: "must not be negative"}
	}

	start, err = time.Parse("2006-01-02", r.StartDate)
	if err != nil {
		return start, end, &ValidationError{Field: "start_date", Reason: "expected YYYY-MM-DD"}
	}
	end, err = time.Parse("2006-01-02", r.EndDate)
	if err != nil {
		return start, end, &ValidationError{Field: "end_date", Reason: "expected YYYY-MM-DD"}
	}
	if !start.Before(end) {
		return start, end, &ValidationError{Field: "end_date", Reason: "must be after start_date"}
	}
	return start, end, nil
}

// BacktestResponse is the POST /api/backtest reply: the run ID (empty when
// persistence is disabled) plus the full simulation result.
type BacktestResponse struct {
	ID     string                `json:"id,omitempty"`
	Result domain.BacktestResult `json:"result"`
}

// ErrorResponse is the JSON error body. Field is set for validation errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// StrategyInfo describes one registered strategy.
type StrategyInfo struct {
	ID     string   `json:"id"`
	Labels []string `json:"labels,omitempty"`
}

// StrategiesResponse is the GET /api/strategies reply.
type StrategiesResponse struct {
	Strategies []StrategyInfo `json:"strategies"`
}

// ParamsResponse is the GET /api/strategies/{id}/params reply.
type ParamsResponse struct {
	ID     string               `json:"id"`
	Params []strategy.ParamSpec `json:"params"`
}

// RunsResponse is the GET /api/runs reply.
type RunsResponse struct {
	Runs []domain.Run `json:"runs"`
}

// RunDetailResponse is the GET /api/runs/{id} reply: the run record plus its
// stored trades and equity curve.
type RunDetailResponse struct {
	Run    domain.Run           `json:"run"`
	Trades []domain.Trade       `json:"trades"`
	Equity []domain.EquityPoint `json:"equity_curve"`
}
