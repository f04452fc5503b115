package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/alejandrodnm/eventbt/internal/domain"
	"github.com/alejandrodnm/eventbt/internal/ports"
)

// Pipeline carga los datos de un run, lo ejecuta y publica el informe.
type Pipeline struct {
	cfg      Config
	lookback time.Duration
	data     ports.MarketData
	scores   ports.ScoreProvider // opcional
	notifier ports.Notifier
	runs     ports.RunStore // opcional
}

// New crea un Pipeline con todas las dependencias inyectadas.
// scores y runs pueden ser nil.
func New(
	cfg Config,
	lookback time.Duration,
	data ports.MarketData,
	scores ports.ScoreProvider,
	notifier ports.Notifier,
	runs ports.RunStore,
) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		lookback: lookback,
		data:     data,
		scores:   scores,
		notifier: notifier,
		runs:     runs,
	}
}

// Run ejecuta un run completo. Los errores del notificador y del almacén de
// runs se registran pero no invalidan el resultado.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	in, err := p.load(ctx)
	if err != nil {
		return nil, err
	}

	res, err := Execute(ctx, in, p.cfg)
	if err != nil {
		return nil, err
	}

	if err := p.notifier.Notify(ctx, res.Report); err != nil {
		slog.Warn("notifier error", "err", err)
	}
	if p.runs != nil {
		if err := p.runs.SaveRun(ctx, res.Report); err != nil {
			slog.Warn("storage error", "run_id", res.RunID, "err", err)
		}
	}
	return res, nil
}

// load pide a los proveedores los eventos y, en la ventana que cubren, las
// barras de sus símbolos más el benchmark y los tipos.
func (p *Pipeline) load(ctx context.Context) (Inputs, error) {
	events, err := p.data.LoadEvents(ctx)
	if err != nil {
		return Inputs{}, fmt.Errorf("pipeline.load: events: %w", err)
	}
	if err := events.Validate(); err != nil {
		return Inputs{}, fmt.Errorf("pipeline.load: events: %w", err)
	}

	from, to := events.Window(p.lookback, p.cfg.Params.ReversionHoldDays)
	symbols := events.Symbols()
	if p.cfg.Benchmark != "" && !slices.Contains(symbols, p.cfg.Benchmark) {
		symbols = append(symbols, p.cfg.Benchmark)
	}

	bars, err := p.data.LoadBars(ctx, symbols, from, to)
	if err != nil {
		return Inputs{}, fmt.Errorf("pipeline.load: bars: %w", err)
	}
	rates, err := p.data.LoadRates(ctx, from, to)
	if err != nil {
		return Inputs{}, fmt.Errorf("pipeline.load: rates: %w", err)
	}

	in := Inputs{Events: events, Bars: bars, Rates: rates}
	if p.scores != nil {
		if in.Scores, err = p.scores.LoadScores(ctx); err != nil {
			return Inputs{}, fmt.Errorf("pipeline.load: scores: %w", err)
		}
	}

	slog.Debug("run inputs loaded",
		"events", len(events),
		"symbols", len(symbols),
		"bars", len(bars),
		"rates", len(rates),
		"scores", len(in.Scores),
		"from", from.Format(domain.DateLayout),
		"to", to.Format(domain.DateLayout),
	)
	return in, nil
}
