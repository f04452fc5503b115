package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/eventbt/config"
	"github.com/alejandrodnm/eventbt/internal/adapters/csvfile"
	"github.com/alejandrodnm/eventbt/internal/adapters/notify"
	"github.com/alejandrodnm/eventbt/internal/adapters/pricing"
	"github.com/alejandrodnm/eventbt/internal/adapters/storage"
	"github.com/alejandrodnm/eventbt/internal/allocation"
	"github.com/alejandrodnm/eventbt/internal/application/pipeline"
	"github.com/alejandrodnm/eventbt/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	compact := flag.Bool("compact", false, "print a one-line summary instead of tables")
	source := flag.String("source", "", "market data source: sqlite|csv (overrides config)")
	importDir := flag.String("import", "", "load events.csv, bars.csv and rates.csv from dir into SQLite and exit")
	fetchRates := flag.Bool("fetch-rates", false, "fetch financing rates from FRED for the stored events and exit")
	scoresPath := flag.String("scores", "", "CSV with per-event momentum/reversion scores (enables allocation)")
	overlay := flag.Bool("overlay", false, "add the option overlay to the allocated portfolio")
	exportPath := flag.String("export", "", "write per-event results to this CSV")
	history := flag.Bool("history", false, "print the last stored runs and exit")
	showRun := flag.String("show", "", "print the metric tables of a stored run and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if *source != "" {
		cfg.Data.Source = *source
	}
	if *overlay {
		cfg.Overlay.Enabled = true
	}
	setupLogger(cfg.Log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	notifier := notify.NewConsole(*compact)

	switch {
	case *importDir != "":
		if err := importCSV(ctx, csvfile.NewSource(*importDir), store); err != nil {
			slog.Error("import failed", "err", err, "dir", *importDir)
			os.Exit(1)
		}
		return
	case *fetchRates:
		if err := fetchFREDRates(ctx, cfg, store); err != nil {
			slog.Error("rate fetch failed", "err", err)
			os.Exit(1)
		}
		return
	case *history:
		runs, err := store.RunHistory(ctx, 20)
		if err != nil {
			slog.Error("failed to read run history", "err", err)
			os.Exit(1)
		}
		notifier.PrintHistory(runs)
		return
	case *showRun != "":
		rep, err := store.LoadRun(ctx, *showRun)
		if err != nil {
			slog.Error("failed to load run", "err", err, "run_id", *showRun)
			os.Exit(1)
		}
		notifier.Notify(ctx, rep)
		return
	}

	if cfg.Overlay.Enabled && *scoresPath == "" {
		slog.Warn("overlay applies only to the allocated portfolio, disabled without -scores")
		cfg.Overlay.Enabled = false
	}

	params, err := cfg.Params()
	if err != nil {
		slog.Error("invalid backtest parameters", "err", err)
		os.Exit(1)
	}

	pcfg := pipeline.Config{
		Params:    params,
		Benchmark: cfg.Data.Benchmark,
		Workers:   cfg.Backtest.Workers,
		Allocator: allocation.Allocator{
			MaxPosition:  cfg.Allocation.MaxPosition,
			CostPerTrade: *cfg.Allocation.CostPerTrade,
		},
		OverlayMultiplier: cfg.Overlay.Multiplier,
	}
	if cfg.Overlay.Enabled {
		pcfg.Overlay = pricing.CallPricer{
			StrikeOffset:  *cfg.Overlay.StrikeOffset,
			ExpiryDays:    cfg.Overlay.ExpiryDays,
			RiskFree:      *cfg.Overlay.RiskFree,
			DividendYield: cfg.Overlay.DividendYield,
			Volatility:    cfg.Overlay.Volatility,
		}
	}

	var data ports.MarketData = store
	if cfg.Data.Source == "csv" {
		data = csvfile.NewSource(cfg.Data.Dir)
	}
	var scores ports.ScoreProvider
	if *scoresPath != "" {
		scores = csvfile.ScoreFile{Path: *scoresPath}
	}

	slog.Info("eventbt starting",
		"config", *configPath,
		"source", cfg.Data.Source,
		"benchmark", cfg.Data.Benchmark,
		"allocation", scores != nil,
		"overlay", cfg.Overlay.Enabled,
	)

	res, err := pipeline.New(pcfg, cfg.Lookback(), data, scores, notifier, store).Run(ctx)
	if err != nil {
		slog.Error("run failed", "err", err)
		os.Exit(1)
	}

	if *exportPath != "" {
		if err := exportResults(*exportPath, res); err != nil {
			slog.Error("export failed", "err", err, "path", *exportPath)
			os.Exit(1)
		}
		slog.Info("results exported", "path", *exportPath, "events", len(res.Events))
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
