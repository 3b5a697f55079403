// Package httpapi exposes the backtester over HTTP: run submission,
// strategy introspection, and run history.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"backtester/internal/backtest"
	"backtester/internal/domain"
	"backtester/internal/marketdata"
	"backtester/internal/series"
	"backtester/internal/store"
	"backtester/internal/strategy"
)

// BarSource supplies normalized bars for a run.
type BarSource interface {
	GetBars(ctx context.Context, symbol, interval string, start, end time.Time) ([]domain.Bar, error)
}

// Server serves the backtester HTTP API.
type Server struct {
	bars            BarSource
	runner          *backtest.Runner
	runs            store.RunStore // nil disables persistence and history routes' data
	defaultCapital  float64
	defaultInterval string
	log             *slog.Logger
}

// NewServer creates a Server. runs may be nil, in which case results are not
// persisted and the history endpoints serve empty lists.
func NewServer(bars BarSource, runner *backtest.Runner, runs store.RunStore, defaultCapital float64, defaultInterval string) *Server {
	return &Server{
		bars:            bars,
		runner:          runner,
		runs:            runs,
		defaultCapital:  defaultCapital,
		defaultInterval: defaultInterval,
		log:             slog.Default().With("component", "httpapi"),
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/backtest", s.handleBacktest)
	mux.HandleFunc("GET /api/strategies", s.handleStrategies)
	mux.HandleFunc("GET /api/strategies/{id}/params", s.handleStrategyParams)
	mux.HandleFunc("GET /api/runs", s.handleRuns)
	mux.HandleFunc("GET /api/runs/{id}", s.handleRun)
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeErrorField(w, status, msg, "")
}

func writeErrorField(w http.ResponseWriter, status int, msg, field string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: msg, Field: field})
}

func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	var req BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	start, end, err := req.validate()
	if err != nil {
		var verr *ValidationError
		errors.As(err, &verr)
		writeErrorField(w, http.StatusBadRequest, verr.Error(), verr.Field)
		return
	}

	capital := req.Capital
	if capital == 0 {
		capital = s.defaultCapital
	}
	interval := req.Interval
	if interval == "" {
		interval = s.defaultInterval
	}
	if !marketdata.ValidInterval(interval) {
		writeErrorField(w, http.StatusBadRequest,
			fmt.Sprintf("unsupported interval %q", interval), "interval")
		return
	}

	name := canonicalStrategy(req.Strategy)
	if _, err := s.runner.Registry().Resolve(name); err != nil {
		writeErrorField(w, http.StatusBadRequest, err.Error(), "strategy")
		return
	}

	ctx := r.Context()
	bars, err := s.bars.GetBars(ctx, req.Ticker, interval, start, end)
	if err != nil {
		s.writeDataError(w, err)
		return
	}

	result, err := s.runner.Run(ctx, bars, name, req.Params, capital)
	if err != nil {
		var execErr *backtest.StrategyExecutionError
		if errors.As(err, &execErr) {
			writeError(w, http.StatusInternalServerError, execErr.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := BacktestResponse{Result: *result}
	if s.runs != nil {
		resp.ID = s.persistRun(ctx, &req, name, capital, interval, start, end, result)
	}
	writeJSON(w, resp)
}

// writeDataError maps data pipeline failures to status codes: malformed or
// insufficient series are unprocessable, provider faults are a bad gateway.
func (s *Server) writeDataError(w http.ResponseWriter, err error) {
	var fetchErr *marketdata.DataFetchError
	if errors.As(err, &fetchErr) {
		writeError(w, http.StatusBadGateway, fetchErr.Error())
		return
	}
	var malformed *series.MalformedDataError
	if errors.As(err, &malformed) || errors.Is(err, series.ErrInsufficientData) {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

// persistRun saves the run record with its trades and equity curve. A
// storage failure is logged and the response still succeeds; the simulation
// result is the product, persistence is bookkeeping.
func (s *Server) persistRun(ctx context.Context, req *BacktestRequest, name string, capital float64, interval string, start, end time.Time, result *domain.BacktestResult) string {
	run := &domain.Run{
		ID:              uuid.NewString(),
		Ticker:          req.Ticker,
		StartDate:       start,
		EndDate:         end,
		Strategy:        name,
		StartingCapital: capital,
		Interval:        interval,
		TotalReturnPct:  result.Metrics.TotalReturnPct,
		CAGRPct:         result.Metrics.CAGRPct,
		Sharpe:          result.Metrics.Sharpe,
		MaxDrawdownPct:  result.Metrics.MaxDrawdownPct,
		TradeCount:      result.Metrics.TradeCount,
		WinRatePct:      result.Metrics.WinRatePct,
		CreatedAt:       time.Now().UTC(),
	}

	if err := s.runs.SaveRun(ctx, run, result.Trades, result.EquityCurve); err != nil {
		s.log.Warn("persisting run failed", "run", run.ID, "err", err)
		return ""
	}
	return run.ID
}

func (s *Server) handleStrategies(w http.ResponseWriter, r *http.Request) {
	// Invert the alias map so each strategy lists its accepted UI labels.
	labels := make(map[string][]string)
	for label, id := range strategyAliases {
		if label != id {
			labels[id] = append(labels[id], label)
		}
	}

	ids := s.runner.Registry().List()
	infos := make([]StrategyInfo, 0, len(ids))
	for _, id := range ids {
		infos = append(infos, StrategyInfo{ID: id, Labels: labels[id]})
	}
	writeJSON(w, StrategiesResponse{Strategies: infos})
}

func (s *Server) handleStrategyParams(w http.ResponseWriter, r *http.Request) {
	id := canonicalStrategy(r.PathValue("id"))
	specs, err := s.runner.Registry().ParamSpecs(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if specs == nil {
		specs = []strategy.ParamSpec{}
	}
	writeJSON(w, ParamsResponse{ID: id, Params: specs})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeJSON(w, RunsResponse{Runs: []domain.Run{}})
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeErrorField(w, http.StatusBadRequest, "limit must be a non-negative integer", "limit")
			return
		}
		limit = n
	}

	runs, err := s.runs.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "listing runs failed")
		return
	}
	if runs == nil {
		runs = []domain.Run{}
	}
	writeJSON(w, RunsResponse{Runs: runs})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeError(w, http.StatusNotFound, "run persistence disabled")
		return
	}

	id := r.PathValue("id")
	run, err := s.runs.GetRun(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "loading run failed")
		return
	}

	trades, err := s.runs.TradesForRun(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "loading trades failed")
		return
	}
	equity, err := s.runs.EquityForRun(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "loading equity curve failed")
		return
	}

	if trades == nil {
		trades = []domain.Trade{}
	}
	if equity == nil {
		equity = []domain.EquityPoint{}
	}
	writeJSON(w, RunDetailResponse{Run: *run, Trades: trades, Equity: equity})
}
