package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/alejandrodnm/eventbt/config"
	"github.com/alejandrodnm/eventbt/internal/adapters/csvfile"
	"github.com/alejandrodnm/eventbt/internal/adapters/fred"
	"github.com/alejandrodnm/eventbt/internal/adapters/storage"
	"github.com/alejandrodnm/eventbt/internal/application/pipeline"
	"github.com/alejandrodnm/eventbt/internal/domain"
	"github.com/alejandrodnm/eventbt/internal/ports"
)

// importCSV copia eventos, barras y tipos de un directorio CSV a SQLite.
// rates.csv es opcional: los tipos también pueden venir de FRED.
func importCSV(ctx context.Context, src *csvfile.Source, dst ports.MarketDataWriter) error {
	events, err := src.LoadEvents(ctx)
	if err != nil {
		return err
	}
	if err := events.Validate(); err != nil {
		return fmt.Errorf("import: %w", err)
	}
	bars, err := src.Bars(ctx)
	if err != nil {
		return err
	}

	if err := dst.SaveEvents(ctx, events); err != nil {
		return err
	}
	if err := dst.SaveBars(ctx, bars); err != nil {
		return err
	}

	rates, err := src.Rates(ctx)
	switch {
	case errors.Is(err, os.ErrNotExist):
		slog.Warn("no rates.csv in import dir, run with -fetch-rates")
	case err != nil:
		return err
	default:
		if err := dst.SaveRates(ctx, rates); err != nil {
			return err
		}
	}

	slog.Info("import complete",
		"events", len(events),
		"bars", len(bars),
		"rates", len(rates),
	)
	return nil
}

// fetchFREDRates descarga los tipos que cubren la ventana de los eventos
// guardados y los persiste.
func fetchFREDRates(ctx context.Context, cfg *config.Config, store *storage.SQLiteStorage) error {
	events, err := store.LoadEvents(ctx)
	if err != nil {
		return err
	}
	if err := events.Validate(); err != nil {
		return fmt.Errorf("fetch rates: stored events: %w", err)
	}
	from, to := events.Window(cfg.Lookback(), cfg.Backtest.ReversionHoldDays)

	var provider ports.RateProvider = fred.NewClient(cfg.Data.FREDBase, cfg.Data.FREDSeries, cfg.Data.FREDAPIKey)
	points, err := provider.FetchRates(ctx, from, to)
	if err != nil {
		return err
	}
	if err := store.SaveRates(ctx, points); err != nil {
		return err
	}

	slog.Info("rates stored",
		"series", cfg.Data.FREDSeries,
		"points", len(points),
		"from", points[0].Date.Format(domain.DateLayout),
		"to", points[len(points)-1].Date.Format(domain.DateLayout),
	)
	return nil
}

// exportResults escribe el detalle por evento del run.
func exportResults(path string, res *pipeline.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := csvfile.WriteResults(f, csvfile.Results{
		Events:    res.Events,
		Momentum:  res.Momentum,
		Reversion: res.Reversion,
		Weights:   res.Weights,
		Portfolio: res.Portfolio(),
	}); err != nil {
		return err
	}
	return f.Close()
}
