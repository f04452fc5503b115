package csvfile

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/alejandrodnm/eventbt/internal/allocation"
	"github.com/alejandrodnm/eventbt/internal/domain"
	"github.com/alejandrodnm/eventbt/internal/portfolio"
)

// Results es el detalle por evento de un run, listo para exportar.
// Weights es opcional; el resto debe tener una entrada por evento.
type Results struct {
	Events    domain.Events
	Momentum  []domain.PnL
	Reversion []domain.PnL
	Weights   []allocation.Weights
	Portfolio domain.Series
}

var resultsHeader = []string{
	"event", "symbol", "announced", "trade_date", "category",
	"mom_status", "mom_shares", "mom_net",
	"rev_status", "rev_signal", "rev_shares", "rev_net",
	"w_mom", "w_rev", "portfolio_return", "cumulative",
}

// WriteResults escribe una fila por evento. Los importes de un PnL faltante
// y los pesos ausentes quedan vacíos.
func WriteResults(w io.Writer, r Results) error {
	n := len(r.Events)
	if len(r.Momentum) != n || len(r.Reversion) != n || len(r.Portfolio) != n ||
		(r.Weights != nil && len(r.Weights) != n) {
		return fmt.Errorf("csvfile.WriteResults: inconsistent lengths for %d events: %w", n, domain.ErrShape)
	}

	cum := portfolio.Cumulative(r.Portfolio)
	cw := csv.NewWriter(w)
	if err := cw.Write(resultsHeader); err != nil {
		return fmt.Errorf("csvfile.WriteResults: header: %w", err)
	}

	for i, ev := range r.Events {
		mom, rev := r.Momentum[i], r.Reversion[i]
		wm, wr := "", ""
		if r.Weights != nil {
			wm, wr = formatF(r.Weights[i].Momentum), formatF(r.Weights[i].Reversion)
		}
		row := []string{
			strconv.Itoa(i), ev.Symbol,
			ev.Announced.Format(domain.DateLayout), ev.TradeDate.Format(domain.DateLayout), ev.Category,
			mom.Status.String(), shares(mom), net(mom),
			rev.Status.String(), signal(rev), shares(rev), net(rev),
			wm, wr, formatF(r.Portfolio[i].Or(0)), formatF(cum[i]),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("csvfile.WriteResults: event %d: %w", i, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("csvfile.WriteResults: flush: %w", err)
	}
	return nil
}

func formatF(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func net(p domain.PnL) string {
	if p.IsMissing() {
		return ""
	}
	return p.Net.String()
}

func shares(p domain.PnL) string {
	if p.IsMissing() {
		return ""
	}
	return strconv.FormatInt(p.Shares, 10)
}

func signal(p domain.PnL) string {
	if p.IsMissing() || p.Signal == 0 {
		return ""
	}
	return strconv.Itoa(p.Signal)
}
