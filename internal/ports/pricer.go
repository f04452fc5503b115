package ports

import (
	"context"
	"time"
)

// OverlayPricer valora el derivado del overlay de cartera.
type OverlayPricer interface {
	// Price devuelve el precio del derivado en date con el subyacente a spot.
	Price(ctx context.Context, date time.Time, spot float64) (float64, error)
}
