package backtest

// runner.go: worker pool para simular eventos en paralelo.
//
// Los eventos no dependen entre sí: cada worker toma índices de workCh y
// escribe el PnL en su posición del slice de salida. El resultado no depende
// del orden de ejecución ni del número de workers.

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	"github.com/alejandrodnm/eventbt/internal/domain"
	"github.com/alejandrodnm/eventbt/internal/strategy"
)

// Run simula todos los eventos con la estrategia dada y devuelve un PnL por
// evento, en el mismo orden que events. Si workers <= 0 usa runtime.NumCPU().
//
// Un evento sin datos no aborta el batch: queda como domain.StatusMissing.
// Solo la cancelación del contexto devuelve error.
func Run(ctx context.Context, events domain.Events, s strategy.Strategy, workers int) ([]domain.PnL, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(events) {
		workers = len(events)
	}

	out := make([]domain.PnL, len(events))
	workCh := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range workCh {
				out[i] = s.Evaluate(i, events[i])
			}
		}()
	}

	var err error
feed:
	for i := range events {
		select {
		case workCh <- i:
		case <-ctx.Done():
			err = ctx.Err()
			break feed
		}
	}
	close(workCh)
	wg.Wait()

	if err != nil {
		return nil, err
	}

	missing, traded := 0, 0
	for _, p := range out {
		switch p.Status {
		case domain.StatusMissing:
			missing++
		case domain.StatusTraded:
			traded++
		}
	}
	slog.Debug("backtest complete",
		"strategy", s.Name(),
		"events", len(events),
		"traded", traded,
		"missing", missing,
		"workers", workers,
	)
	return out, nil
}
