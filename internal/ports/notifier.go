package ports

import (
	"context"

	"github.com/alejandrodnm/eventbt/internal/analytics"
)

// Notifier presenta el informe de un run al usuario.
type Notifier interface {
	// Notify muestra las tablas de métricas y el resumen de curvas.
	// En la implementación de consola, imprime tablas formateadas.
	Notify(ctx context.Context, report analytics.Report) error
}
