package portfolio

// aggregate.go: combina las series por estrategia en una serie de cartera.
//
// A diferencia de las métricas, aquí un evento faltante cuenta como 0: la
// cartera siempre tiene una observación por evento.

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/eventbt/internal/allocation"
	"github.com/alejandrodnm/eventbt/internal/domain"
	"github.com/alejandrodnm/eventbt/internal/ports"
)

// DefaultOverlayMultiplier es la fracción del nocional expuesta al overlay.
const DefaultOverlayMultiplier = 0.01

// Overlay añade a cada evento el payoff (precio / spot) × Multiplier de un
// derivado valorado al cierre de la fecha de trade.
type Overlay struct {
	Pricer     ports.OverlayPricer
	Multiplier float64
	Prices     *domain.Panel
}

// Combine suma evento a evento momentum y reversion, con faltantes a 0.
func Combine(mom, rev domain.Series) (domain.Series, error) {
	if len(mom) != len(rev) {
		return nil, fmt.Errorf("portfolio.Combine: %d vs %d events: %w", len(mom), len(rev), domain.ErrShape)
	}
	out := make(domain.Series, len(mom))
	for i := range mom {
		out[i] = domain.Observed(mom[i].Or(0) + rev[i].Or(0))
	}
	return out, nil
}

// Weighted combina las series con los pesos del allocator:
//
//	r_i = wm_i × mom_i + wr_i × rev_i [+ overlay_i]
//
// Con overlay, un evento que no se puede valorar (sin cierre en la fecha de
// trade o error del pricer) aporta 0 en su totalidad.
func Weighted(ctx context.Context, events domain.Events, mom, rev domain.Series, weights []allocation.Weights, overlay *Overlay) (domain.Series, error) {
	n := len(events)
	if len(mom) != n || len(rev) != n || len(weights) != n {
		return nil, fmt.Errorf("portfolio.Weighted: lengths events=%d mom=%d rev=%d weights=%d: %w",
			n, len(mom), len(rev), len(weights), domain.ErrShape)
	}

	out := make(domain.Series, n)
	skipped := 0
	for i, ev := range events {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("portfolio.Weighted: %w", err)
		}
		base := weights[i].Momentum*mom[i].Or(0) + weights[i].Reversion*rev[i].Or(0)
		if overlay == nil {
			out[i] = domain.Observed(base)
			continue
		}

		payoff, ok := overlay.payoff(ctx, ev)
		if !ok {
			skipped++
			out[i] = domain.Observed(0)
			continue
		}
		out[i] = domain.Observed(base + payoff)
	}

	if skipped > 0 {
		slog.Warn("overlay could not be priced for some events",
			"events", n,
			"skipped", skipped,
		)
	}
	return out, nil
}

func (o *Overlay) payoff(ctx context.Context, ev domain.Event) (float64, bool) {
	spot, ok := o.Prices.Close(ev.TradeDate, ev.Symbol)
	if !ok || spot <= 0 {
		return 0, false
	}
	price, err := o.Pricer.Price(ctx, ev.TradeDate, spot)
	if err != nil {
		slog.Debug("overlay pricing failed",
			"symbol", ev.Symbol,
			"date", ev.TradeDate.Format(domain.DateLayout),
			"err", err,
		)
		return 0, false
	}
	return price / spot * o.Multiplier, true
}

// Cumulative devuelve la rentabilidad acumulada compuesta, eq[i] − 1, con
// base 0 antes del primer evento. Los faltantes cuentan como 0.
func Cumulative(s domain.Series) []float64 {
	out := domain.Compound(s.ZeroFilled())
	for i := range out {
		out[i]--
	}
	return out
}
