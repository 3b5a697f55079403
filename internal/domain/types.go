// Package domain defines the shared data model for the backtester: OHLCV
// bars, strategy signals, simulated trades, equity points, and the metrics
// bundle produced by a run. All values are immutable once constructed.
package domain

import "time"

// Signal is a strategy's per-bar decision.
type Signal string

const (
	SignalHold Signal = "hold"
	SignalBuy  Signal = "buy"
	SignalSell Signal = "sell"
)

// Bar is a single OHLCV sample for a fixed time interval. Timestamps are UTC
// and strictly increasing within a series.
type Bar struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Position is an open long holding. The simulation engine owns at most one
// at a time; it is destroyed when closed into a Trade.
type Position struct {
	EntryTime  time.Time
	EntryPrice float64
	Size       float64
}

// Trade is a completed round trip. Recorded only when a position closes,
// including the forced close against the final bar.
type Trade struct {
	EntryTime  time.Time     `json:"entry_time"`
	ExitTime   time.Time     `json:"exit_time"`
	EntryPrice float64       `json:"entry_price"`
	ExitPrice  float64       `json:"exit_price"`
	Size       float64       `json:"size"`
	PnL        float64       `json:"pnl"`
	ReturnPct  float64       `json:"return_pct"`
	Duration   time.Duration `json:"duration"`
}

// EquityPoint is the mark-to-market portfolio value at one bar. A run emits
// exactly one per bar.
type EquityPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Equity    float64   `json:"equity"`
}

// MetricsBundle holds the summary statistics derived from a run. Metrics
// that are mathematically undefined (zero variance, zero elapsed days, zero
// trades) carry an invalid Float and marshal as null, never as 0.
type MetricsBundle struct {
	TotalReturnPct float64 `json:"total_return_pct"`
	CAGRPct        Float   `json:"cagr_pct"`
	Sharpe         Float   `json:"sharpe"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	TradeCount     int     `json:"trades"`
	WinRatePct     Float   `json:"winrate_pct"`
}

// Overlay is one named indicator series a strategy exposes for charting.
// Warm-up positions are invalid Floats and marshal as null.
type Overlay struct {
	Name   string  `json:"name"`
	Values []Float `json:"values"`
}

// PriceChart is the renderer contract for the price panel. Dates are Unix
// milliseconds; the same unit is used by EquityChart. Marker series are
// null except at bars where a trade opened or closed, where they carry the
// execution price.
type PriceChart struct {
	Dates       []int64   `json:"dates"`
	Close       []float64 `json:"close"`
	Overlays    []Overlay `json:"overlays,omitempty"`
	BuyMarkers  []Float   `json:"buy_markers"`
	SellMarkers []Float   `json:"sell_markers"`
}

// EquityChart is the renderer contract for the equity panel.
type EquityChart struct {
	Dates  []int64   `json:"dates"`
	Equity []float64 `json:"equity"`
}

// BacktestResult is the engine's sole output: metrics, the ordered trade
// list, the equity curve, and the UI-ready chart series. Never mutated after
// construction.
type BacktestResult struct {
	Metrics     MetricsBundle `json:"metrics"`
	Trades      []Trade       `json:"trades"`
	EquityCurve []EquityPoint `json:"equity_curve"`
	PriceChart  PriceChart    `json:"price_chart"`
	EquityChart EquityChart   `json:"equity_chart"`
}

// Run is the persisted record of one backtest: the request configuration
// plus the summary metrics. Trades and equity points are stored alongside,
// keyed by ID.
type Run struct {
	ID              string    `json:"id"`
	Ticker          string    `json:"ticker"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
	Strategy        string    `json:"strategy"`
	StartingCapital float64   `json:"starting_capital"`
	Interval        string    `json:"interval"`

	TotalReturnPct float64 `json:"total_return_pct"`
	CAGRPct        Float   `json:"cagr_pct"`
	Sharpe         Float   `json:"sharpe"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	TradeCount     int     `json:"trades"`
	WinRatePct     Float   `json:"winrate_pct"`

	CreatedAt time.Time `json:"created_at"`
}
