package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/eventbt/internal/domain"
)

// RateProvider obtiene la serie de tipos de financiación de un proveedor externo.
type RateProvider interface {
	// FetchRates devuelve los tipos anuales (decimales) observados en [from, to].
	// Los días sin publicación no se devuelven; el relleno lo hace RateSeries.
	FetchRates(ctx context.Context, from, to time.Time) ([]domain.RatePoint, error)
}
