package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backtester/internal/backtest"
	"backtester/internal/config"
	"backtester/internal/domain"
	"backtester/internal/marketdata"
	"backtester/internal/store"
	"backtester/internal/strategy"
	"backtester/internal/strategy/builtins"
	"backtester/internal/util"
)

const version = "0.1.0"

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: backtester-cli <command> [options]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  run         Run a backtest and print metrics and trades\n")
		fmt.Fprintf(os.Stderr, "  strategies  List registered strategies and their parameters\n")
		fmt.Fprintf(os.Stderr, "  version     Print the CLI version\n")
		fmt.Fprintf(os.Stderr, "\n")
	}

	if len(os.Args) < 2 {
		flag.Usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "version":
		fmt.Printf("backtester-cli %s\n", version)

	case "strategies":
		cmdStrategies()

	case "run":
		cmdRun(os.Args[2:])

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		flag.Usage()
		os.Exit(1)
	}
}

func cmdStrategies() {
	registry := strategy.NewRegistry()
	builtins.Register(registry)

	for _, id := range registry.List() {
		fmt.Println(id)
		specs, _ := registry.ParamSpecs(id)
		for _, spec := range specs {
			fmt.Printf("  %-18s %-8s default=%v\n", spec.Name, spec.Kind, spec.Default)
		}
	}
}

func cmdRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	ticker := fs.String("ticker", "", "symbol to backtest (required)")
	start := fs.String("start", "", "range start, YYYY-MM-DD (required)")
	end := fs.String("end", "", "range end, YYYY-MM-DD (required)")
	stratName := fs.String("strategy", "buy-and-hold", "strategy identifier")
	capital := fs.Float64("capital", 0, "starting capital (default from config)")
	interval := fs.String("interval", "", "bar interval: 1d, 1wk, 1h (default from config)")
	paramsJSON := fs.String("params", "", "strategy parameters as JSON, e.g. '{\"fast\":20}'")
	fs.Parse(args)

	if *ticker == "" || *start == "" || *end == "" {
		fs.Usage()
		os.Exit(1)
	}

	startT, err := time.Parse("2006-01-02", *start)
	if err != nil {
		log.Fatalf("parsing -start: %v", err)
	}
	endT, err := time.Parse("2006-01-02", *end)
	if err != nil {
		log.Fatalf("parsing -end: %v", err)
	}
	if !startT.Before(endT) {
		log.Fatal("-end must be after -start")
	}

	var params strategy.Params
	if *paramsJSON != "" {
		if err := json.Unmarshal([]byte(*paramsJSON), &params); err != nil {
			log.Fatalf("parsing -params: %v", err)
		}
	}

	cfg, err := config.Load(os.Getenv("BACKTESTER_CONFIG"))
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	util.SetDefault(util.NewLogger("warn", "text"))

	if *capital == 0 {
		*capital = cfg.Backtest.DefaultCapital
	}
	if *interval == "" {
		*interval = cfg.Backtest.DefaultInterval
	}
	if !marketdata.ValidInterval(*interval) {
		log.Fatalf("unsupported interval %q", *interval)
	}

	registry := strategy.NewRegistry()
	builtins.Register(registry)
	if _, err := registry.Resolve(*stratName); err != nil {
		log.Fatalf("%v (try 'backtester-cli strategies')", err)
	}

	provider := marketdata.NewAlpacaProvider(
		cfg.Alpaca.APIKey,
		cfg.Alpaca.APISecret,
		cfg.Alpaca.DataURL,
		cfg.Alpaca.RateLimitPerMin,
	)
	svc := marketdata.NewService(provider, store.NewParquetStore(cfg.Storage.DataDir))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	bars, err := svc.GetBars(ctx, *ticker, *interval, startT, endT)
	if err != nil {
		log.Fatalf("fetching bars: %v", err)
	}

	result, err := backtest.NewRunner(registry).Run(ctx, bars, *stratName, params, *capital)
	if err != nil {
		log.Fatalf("running backtest: %v", err)
	}

	m := result.Metrics
	fmt.Printf("%s %s %s..%s (%d bars)\n\n", *ticker, *stratName, *start, *end, len(bars))
	fmt.Printf("  total return:  %9.2f%%\n", m.TotalReturnPct)
	fmt.Printf("  cagr:          %s\n", fmtFloat(m.CAGRPct, "%.2f%%"))
	fmt.Printf("  sharpe:        %s\n", fmtFloat(m.Sharpe, "%.2f"))
	fmt.Printf("  max drawdown:  %9.2f%%\n", m.MaxDrawdownPct)
	fmt.Printf("  trades:        %9d\n", m.TradeCount)
	fmt.Printf("  win rate:      %s\n", fmtFloat(m.WinRatePct, "%.2f%%"))

	if len(result.Trades) > 0 {
		fmt.Printf("\n  %-12s %-12s %10s %10s %8s %12s %9s\n",
			"entry", "exit", "entry px", "exit px", "size", "pnl", "return")
		for _, t := range result.Trades {
			fmt.Printf("  %-12s %-12s %10.2f %10.2f %8.0f %12.2f %8.2f%%\n",
				t.EntryTime.Format("2006-01-02"),
				t.ExitTime.Format("2006-01-02"),
				t.EntryPrice, t.ExitPrice, t.Size, t.PnL, t.ReturnPct)
		}
	}
}

func fmtFloat(f domain.Float, format string) string {
	if !f.Valid {
		return fmt.Sprintf("%9s", "n/a")
	}
	return fmt.Sprintf("%9s", fmt.Sprintf(format, f.Value))
}
