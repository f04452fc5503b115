package ports

import (
	"context"

	"github.com/alejandrodnm/eventbt/internal/allocation"
)

// ScoreProvider entrega las predicciones de un modelo externo, una por evento
// y en el mismo orden que los eventos del run.
type ScoreProvider interface {
	LoadScores(ctx context.Context) ([]allocation.Scores, error)
}
