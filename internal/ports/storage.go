package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/eventbt/internal/analytics"
	"github.com/alejandrodnm/eventbt/internal/domain"
)

// MarketData entrega los datos ya materializados que consume un run.
type MarketData interface {
	// LoadEvents devuelve los eventos ordenados por fecha de anuncio.
	LoadEvents(ctx context.Context) (domain.Events, error)

	// LoadBars devuelve las barras diarias de los símbolos dados en [from, to].
	LoadBars(ctx context.Context, symbols []string, from, to time.Time) ([]domain.Bar, error)

	// LoadRates devuelve los tipos de financiación observados en [from, to]
	// más el último publicado antes de from, del que arranca el relleno
	// hacia delante.
	LoadRates(ctx context.Context, from, to time.Time) ([]domain.RatePoint, error)
}

// MarketDataWriter persiste los datos importados por los colaboradores.
type MarketDataWriter interface {
	// SaveEvents reemplaza el conjunto completo de eventos.
	SaveEvents(ctx context.Context, events domain.Events) error

	// SaveBars hace upsert de barras por (fecha, símbolo).
	SaveBars(ctx context.Context, bars []domain.Bar) error

	// SaveRates hace upsert de tipos por fecha.
	SaveRates(ctx context.Context, points []domain.RatePoint) error

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}

// RunStore guarda el informe de cada run.
type RunStore interface {
	SaveRun(ctx context.Context, rep analytics.Report) error
}
