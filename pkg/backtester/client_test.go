package backtester

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"backtester/internal/backtest"
	"backtester/internal/domain"
	"backtester/internal/httpapi"
	"backtester/internal/strategy"
	"backtester/internal/strategy/builtins"
)

type fixedBars struct{ bars []domain.Bar }

func (f *fixedBars) GetBars(_ context.Context, _, _ string, _, _ time.Time) ([]domain.Bar, error) {
	return f.bars, nil
}

func startTestServer(t *testing.T) *Client {
	t.Helper()

	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]domain.Bar, 10)
	for i := range bars {
		c := 100 + float64(i)
		bars[i] = domain.Bar{
			Symbol: "AAPL", Timestamp: base.AddDate(0, 0, i),
			Open: c, High: c, Low: c, Close: c, Volume: 1000,
		}
	}

	reg := strategy.NewRegistry()
	builtins.Register(reg)
	srv := httpapi.NewServer(&fixedBars{bars: bars}, backtest.NewRunner(reg), nil, 10000, "1d")

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return NewClient(ts.URL)
}

func TestClientRunBacktest(t *testing.T) {
	c := startTestServer(t)

	resp, err := c.RunBacktest(context.Background(), httpapi.BacktestRequest{
		Ticker:    "AAPL",
		StartDate: "2024-01-01",
		EndDate:   "2024-02-01",
		Strategy:  "buy-and-hold",
		Capital:   10000,
	})
	if err != nil {
		t.Fatalf("RunBacktest: %v", err)
	}
	if resp.Result.Metrics.TradeCount != 1 {
		t.Errorf("trade count = %d, want 1", resp.Result.Metrics.TradeCount)
	}
}

func TestClientValidationError(t *testing.T) {
	c := startTestServer(t)

	_, err := c.RunBacktest(context.Background(), httpapi.BacktestRequest{
		Ticker:    "",
		StartDate: "2024-01-01",
		EndDate:   "2024-02-01",
		Strategy:  "buy-and-hold",
	})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want APIError", err)
	}
	if apiErr.StatusCode != 400 || apiErr.Field != "ticker" {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestClientStrategies(t *testing.T) {
	c := startTestServer(t)

	strategies, err := c.Strategies(context.Background())
	if err != nil {
		t.Fatalf("Strategies: %v", err)
	}
	if len(strategies) != 5 {
		t.Errorf("got %d strategies, want 5", len(strategies))
	}

	params, err := c.StrategyParams(context.Background(), "sma-cross")
	if err != nil {
		t.Fatalf("StrategyParams: %v", err)
	}
	if len(params.Params) == 0 {
		t.Error("sma-cross should expose parameters")
	}
}

func TestClientRunsWithoutPersistence(t *testing.T) {
	c := startTestServer(t)

	runs, err := c.Runs(context.Background(), 0)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("got %d runs, want 0", len(runs))
	}
}
