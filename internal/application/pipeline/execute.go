package pipeline

// execute.go: el cálculo completo de un run sobre datos ya en memoria.
//
// Orden: validación → topes de volumen → backtests (cada uno en paralelo por
// evento) → series de rentabilidad → combinación → asignación opcional →
// informe. No hace I/O.

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/eventbt/internal/allocation"
	"github.com/alejandrodnm/eventbt/internal/analytics"
	"github.com/alejandrodnm/eventbt/internal/backtest"
	"github.com/alejandrodnm/eventbt/internal/domain"
	"github.com/alejandrodnm/eventbt/internal/portfolio"
	"github.com/alejandrodnm/eventbt/internal/ports"
	"github.com/alejandrodnm/eventbt/internal/strategy"
	"github.com/google/uuid"
)

// Nombres de las series del informe.
const (
	SeriesCombined = "Combined"
	SeriesWeighted = "Allocated"
)

// Config contiene los parámetros de un run.
type Config struct {
	Params    domain.Params
	Benchmark string
	Workers   int // 0 = runtime.NumCPU()

	Allocator allocation.Allocator

	// Overlay es opcional; nil desactiva el payoff del derivado.
	Overlay           ports.OverlayPricer
	OverlayMultiplier float64

	// Categories fija las tablas por categoría del informe (vacío = las de los eventos).
	Categories []string
}

// Inputs son los datos materializados de un run.
type Inputs struct {
	Events domain.Events
	Bars   []domain.Bar
	Rates  []domain.RatePoint
	Scores []allocation.Scores // opcional
}

// Result es el detalle completo de un run.
type Result struct {
	RunID  string
	Events domain.Events
	Caps   *domain.CapTable

	Momentum  []domain.PnL
	Reversion []domain.PnL

	MomentumReturns  domain.Series
	ReversionReturns domain.Series
	Combined         domain.Series

	// Solo con scores.
	Weights  []allocation.Weights
	Weighted domain.Series

	Report analytics.Report
}

// Portfolio devuelve la serie de cartera que se exporta: la ponderada si
// hubo asignación, si no la combinación fija.
func (r *Result) Portfolio() domain.Series {
	if r.Weighted != nil {
		return r.Weighted
	}
	return r.Combined
}

// Execute ejecuta un run completo. Los fallos de forma de los datos (sin
// eventos, panel vacío, sin tipos, parámetros incoherentes) abortan con un
// error que envuelve el sentinel de domain. Un evento sin datos nunca aborta.
func Execute(ctx context.Context, in Inputs, cfg Config) (*Result, error) {
	start := time.Now()

	if err := in.Events.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline.Execute: events: %w", err)
	}
	if err := cfg.Params.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline.Execute: params: %w", err)
	}
	alloc, err := cfg.Params.Allocation(len(in.Events))
	if err != nil {
		return nil, fmt.Errorf("pipeline.Execute: allocation: %w", err)
	}

	panel, err := domain.NewPanel(in.Bars)
	if err != nil {
		return nil, fmt.Errorf("pipeline.Execute: %w", err)
	}
	if panel.Len() == 0 {
		return nil, fmt.Errorf("pipeline.Execute: price panel has no dates: %w", domain.ErrShape)
	}
	rates, err := domain.NewRateSeries(in.Rates)
	if err != nil {
		return nil, fmt.Errorf("pipeline.Execute: %w", err)
	}
	if rates.Len() == 0 {
		return nil, fmt.Errorf("pipeline.Execute: %w", domain.ErrNoRates)
	}
	if !panel.HasSymbol(cfg.Benchmark) {
		slog.Warn("benchmark has no prices, every reversion event will be missing",
			"benchmark", cfg.Benchmark,
		)
	}

	caps := backtest.VolumeCaps(panel, cfg.Params.VolumeWindow, cfg.Params.MaxVolumeFraction)

	reg := strategy.NewRegistry()
	reg.Register(strategy.NewMomentum(cfg.Params, alloc, panel, caps, rates))
	reg.Register(strategy.NewReversion(cfg.Params, alloc, panel, caps, rates, cfg.Benchmark))

	res := &Result{
		RunID:  uuid.NewString(),
		Events: in.Events,
		Caps:   caps,
	}
	if res.Momentum, err = runStrategy(ctx, reg, strategy.NameMomentum, in.Events, cfg.Workers); err != nil {
		return nil, err
	}
	if res.Reversion, err = runStrategy(ctx, reg, strategy.NameReversion, in.Events, cfg.Workers); err != nil {
		return nil, err
	}

	res.MomentumReturns = domain.Returns(res.Momentum, alloc)
	res.ReversionReturns = domain.Returns(res.Reversion, alloc)
	if res.Combined, err = portfolio.Combine(res.MomentumReturns, res.ReversionReturns); err != nil {
		return nil, fmt.Errorf("pipeline.Execute: %w", err)
	}

	series := []analytics.NamedSeries{
		{Name: strategy.NameMomentum, Series: res.MomentumReturns},
		{Name: strategy.NameReversion, Series: res.ReversionReturns},
		{Name: SeriesCombined, Series: res.Combined},
	}

	if len(in.Scores) == 0 && cfg.Overlay != nil {
		slog.Warn("overlay configured without scores, ignored")
	}
	if len(in.Scores) > 0 {
		if len(in.Scores) != len(in.Events) {
			return nil, fmt.Errorf("pipeline.Execute: %d scores for %d events: %w",
				len(in.Scores), len(in.Events), domain.ErrShape)
		}
		res.Weights = cfg.Allocator.Allocate(in.Scores)

		var overlay *portfolio.Overlay
		if cfg.Overlay != nil {
			overlay = &portfolio.Overlay{Pricer: cfg.Overlay, Multiplier: cfg.OverlayMultiplier, Prices: panel}
		}
		res.Weighted, err = portfolio.Weighted(ctx, in.Events, res.MomentumReturns, res.ReversionReturns, res.Weights, overlay)
		if err != nil {
			return nil, fmt.Errorf("pipeline.Execute: %w", err)
		}
		series = append(series, analytics.NamedSeries{Name: SeriesWeighted, Series: res.Weighted})
	}

	res.Report, err = analytics.BuildReport(in.Events, series, analytics.ReportOptions{
		Categories:  cfg.Categories,
		DaysPerYear: cfg.Params.TradingDaysPerYear,
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline.Execute: %w", err)
	}
	res.Report.RunID = res.RunID

	slog.Info("run complete",
		"run_id", res.RunID,
		"events", len(in.Events),
		"momentum_missing", res.MomentumReturns.MissingCount(),
		"reversion_missing", res.ReversionReturns.MissingCount(),
		"cap_cells", caps.Len(),
		"allocated", res.Weighted != nil,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return res, nil
}

func runStrategy(ctx context.Context, reg strategy.Registry, name string, events domain.Events, workers int) ([]domain.PnL, error) {
	s, ok := reg.Get(name)
	if !ok {
		return nil, fmt.Errorf("pipeline.Execute: strategy %q not registered", name)
	}
	pnls, err := backtest.Run(ctx, events, s, workers)
	if err != nil {
		return nil, fmt.Errorf("pipeline.Execute: %s backtest: %w", name, err)
	}
	return pnls, nil
}
