// Package backtester provides a Go SDK for the backtester-server API.
package backtester

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"backtester/internal/domain"
	"backtester/internal/httpapi"
)

// Client talks to a running backtester-server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client for the given base URL, e.g.
// "http://localhost:8080".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
	Field      string
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("api error %d: %s (field %s)", e.StatusCode, e.Message, e.Field)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// RunBacktest submits a backtest and returns the result.
func (c *Client) RunBacktest(ctx context.Context, req httpapi.BacktestRequest) (*httpapi.BacktestResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	var resp httpapi.BacktestResponse
	if err := c.do(ctx, http.MethodPost, "/api/backtest", bytes.NewReader(body), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Strategies lists the registered strategies.
func (c *Client) Strategies(ctx context.Context) ([]httpapi.StrategyInfo, error) {
	var resp httpapi.StrategiesResponse
	if err := c.do(ctx, http.MethodGet, "/api/strategies", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Strategies, nil
}

// StrategyParams returns the parameter schema for a strategy.
func (c *Client) StrategyParams(ctx context.Context, id string) (*httpapi.ParamsResponse, error) {
	var resp httpapi.ParamsResponse
	path := "/api/strategies/" + url.PathEscape(id) + "/params"
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Runs lists persisted runs, newest first. A limit of 0 means no limit.
func (c *Client) Runs(ctx context.Context, limit int) ([]domain.Run, error) {
	path := "/api/runs"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var resp httpapi.RunsResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Runs, nil
}

// Run retrieves one persisted run with its trades and equity curve.
func (c *Client) Run(ctx context.Context, id string) (*httpapi.RunDetailResponse, error) {
	var resp httpapi.RunDetailResponse
	path := "/api/runs/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body *bytes.Reader, out any) error {
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	}
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr httpapi.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil || apiErr.Error == "" {
			return &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: apiErr.Error, Field: apiErr.Field}
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
