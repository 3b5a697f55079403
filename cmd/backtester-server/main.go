package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backtester/internal/backtest"
	"backtester/internal/config"
	"backtester/internal/httpapi"
	"backtester/internal/marketdata"
	"backtester/internal/store"
	"backtester/internal/strategy"
	"backtester/internal/strategy/builtins"
	"backtester/internal/util"
)

func main() {
	cfgPath := os.Getenv("BACKTESTER_CONFIG")

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	// Storage.
	barCache := store.NewParquetStore(cfg.Storage.DataDir)
	runStore, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("opening run store: %v", err)
	}
	defer runStore.Close()

	// Market data.
	provider := marketdata.NewAlpacaProvider(
		cfg.Alpaca.APIKey,
		cfg.Alpaca.APISecret,
		cfg.Alpaca.DataURL,
		cfg.Alpaca.RateLimitPerMin,
	)
	bars := marketdata.NewService(provider, barCache)

	// Strategies and engine.
	registry := strategy.NewRegistry()
	builtins.Register(registry)
	runner := backtest.NewRunner(registry)

	srv := httpapi.NewServer(bars, runner, runStore, cfg.Backtest.DefaultCapital, cfg.Backtest.DefaultInterval)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: srv.Handler(),
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		logger.Info("backtester server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down backtester server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
