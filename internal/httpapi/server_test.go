package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"backtester/internal/backtest"
	"backtester/internal/domain"
	"backtester/internal/marketdata"
	"backtester/internal/series"
	"backtester/internal/store"
	"backtester/internal/strategy"
	"backtester/internal/strategy/builtins"
)

// stubBars serves a fixed bar sequence or a fixed error.
type stubBars struct {
	bars []domain.Bar
	err  error
}

func (s *stubBars) GetBars(_ context.Context, symbol, _ string, _, _ time.Time) ([]domain.Bar, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.bars, nil
}

func fixtureBars(n int) []domain.Bar {
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]domain.Bar, n)
	for i := range bars {
		c := 100 + float64(i)
		bars[i] = domain.Bar{
			Symbol:    "AAPL",
			Timestamp: base.AddDate(0, 0, i),
			Open:      c, High: c + 1, Low: c - 1, Close: c,
			Volume: 10000,
		}
	}
	return bars
}

func newTestServer(t *testing.T, bars BarSource, withStore bool) *Server {
	t.Helper()
	reg := strategy.NewRegistry()
	builtins.Register(reg)

	var runs store.RunStore
	if withStore {
		s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
		if err != nil {
			t.Fatalf("NewSQLiteStore: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		runs = s
	}

	return NewServer(bars, backtest.NewRunner(reg), runs, 10000, marketdata.IntervalDay)
}

func postBacktest(t *testing.T, srv *Server, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshaling request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/backtest", bytes.NewReader(b))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func validRequest() BacktestRequest {
	return BacktestRequest{
		Ticker:    "AAPL",
		StartDate: "2024-01-01",
		EndDate:   "2024-02-01",
		Strategy:  "buy-and-hold",
		Capital:   10000,
	}
}

func TestBacktestEndToEnd(t *testing.T) {
	srv := newTestServer(t, &stubBars{bars: fixtureBars(20)}, true)

	w := postBacktest(t, srv, validRequest())
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp BacktestResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.ID == "" {
		t.Error("response should carry a persisted run ID")
	}
	if resp.Result.Metrics.TradeCount != 1 {
		t.Errorf("trade count = %d, want 1", resp.Result.Metrics.TradeCount)
	}
	if len(resp.Result.EquityCurve) != 20 {
		t.Errorf("equity curve has %d points, want 20", len(resp.Result.EquityCurve))
	}

	// The run is retrievable through the history endpoints.
	req := httptest.NewRequest(http.MethodGet, "/api/runs/"+resp.ID, nil)
	rw := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rw, req)
	if rw.Code != http.StatusOK {
		t.Fatalf("GET run status = %d", rw.Code)
	}
	var detail RunDetailResponse
	if err := json.Unmarshal(rw.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decoding run detail: %v", err)
	}
	if detail.Run.Ticker != "AAPL" || detail.Run.Strategy != "buy-and-hold" {
		t.Errorf("run = %+v", detail.Run)
	}
	if len(detail.Trades) != 1 || len(detail.Equity) != 20 {
		t.Errorf("detail has %d trades and %d equity points", len(detail.Trades), len(detail.Equity))
	}
}

func TestBacktestAliasResolves(t *testing.T) {
	srv := newTestServer(t, &stubBars{bars: fixtureBars(120)}, false)

	req := validRequest()
	req.Strategy = "SMA"
	req.Params = map[string]any{"fast": 5, "slow": 10}

	w := postBacktest(t, srv, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestBacktestValidation(t *testing.T) {
	srv := newTestServer(t, &stubBars{bars: fixtureBars(20)}, false)

	cases := []struct {
		name   string
		mutate func(*BacktestRequest)
		field  string
	}{
		{"missing ticker", func(r *BacktestRequest) { r.Ticker = " " }, "ticker"},
		{"missing strategy", func(r *BacktestRequest) { r.Strategy = "" }, "strategy"},
		{"negative capital", func(r *BacktestRequest) { r.Capital = -1 }, "capital"},
		{"bad start date", func(r *BacktestRequest) { r.StartDate = "01/01/2024" }, "start_date"},
		{"end before start", func(r *BacktestRequest) { r.EndDate = "2023-01-01" }, "end_date"},
		{"end equals start", func(r *BacktestRequest) { r.EndDate = r.StartDate }, "end_date"},
		{"bad interval", func(r *BacktestRequest) { r.Interval = "5m" }, "interval"},
		{"unknown strategy", func(r *BacktestRequest) { r.Strategy = "nope" }, "strategy"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mutate(&req)

			w := postBacktest(t, srv, req)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			var resp ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decoding error body: %v", err)
			}
			if resp.Field != tc.field {
				t.Errorf("field = %q, want %q", resp.Field, tc.field)
			}
		})
	}
}

func TestBacktestProviderFailure(t *testing.T) {
	fetchErr := &marketdata.DataFetchError{Symbol: "AAPL", Err: errors.New("upstream timeout")}
	srv := newTestServer(t, &stubBars{err: fetchErr}, false)

	w := postBacktest(t, srv, validRequest())
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
}

func TestBacktestInsufficientData(t *testing.T) {
	srv := newTestServer(t, &stubBars{err: series.ErrInsufficientData}, false)

	w := postBacktest(t, srv, validRequest())
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
}

func TestBacktestMalformedData(t *testing.T) {
	srv := newTestServer(t, &stubBars{err: &series.MalformedDataError{Column: "close", Reason: "column missing"}}, false)

	w := postBacktest(t, srv, validRequest())
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
}

func TestStrategiesEndpoint(t *testing.T) {
	srv := newTestServer(t, &stubBars{}, false)

	req := httptest.NewRequest(http.MethodGet, "/api/strategies", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp StrategiesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Strategies) != 5 {
		t.Fatalf("got %d strategies, want 5", len(resp.Strategies))
	}
	found := false
	for _, s := range resp.Strategies {
		if s.ID == "sma-cross" {
			found = true
			if len(s.Labels) == 0 {
				t.Error("sma-cross should list its UI labels")
			}
		}
	}
	if !found {
		t.Error("sma-cross missing from strategy list")
	}
}

func TestStrategyParamsEndpoint(t *testing.T) {
	srv := newTestServer(t, &stubBars{}, false)

	req := httptest.NewRequest(http.MethodGet, "/api/strategies/sma-cross/params", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp ParamsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Params) == 0 {
		t.Error("sma-cross should expose parameter specs")
	}

	// Unknown strategy is a 404.
	req = httptest.NewRequest(http.MethodGet, "/api/strategies/nope/params", nil)
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestRunsEndpointWithoutStore(t *testing.T) {
	srv := newTestServer(t, &stubBars{}, false)

	req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp RunsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Runs) != 0 {
		t.Errorf("got %d runs, want 0", len(resp.Runs))
	}
}

func TestRunNotFound(t *testing.T) {
	srv := newTestServer(t, &stubBars{}, true)

	req := httptest.NewRequest(http.MethodGet, "/api/runs/does-not-exist", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestCanonicalStrategy(t *testing.T) {
	cases := map[string]string{
		"SMA":          "sma-cross",
		"EMA":          "sma-cross",
		"RSI":          "rsi",
		"MACD":         "macd",
		"LA_BOMBA":     "la-bomba",
		"buy_and_hold": "buy-and-hold",
		"buy-and-hold": "buy-and-hold",
		"custom":       "custom",
	}
	for in, want := range cases {
		if got := canonicalStrategy(in); got != want {
			t.Errorf("canonicalStrategy(%q) = %q, want %q", in, got, want)
		}
	}
}
