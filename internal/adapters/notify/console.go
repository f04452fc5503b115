package notify

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/alejandrodnm/eventbt/internal/adapters/storage"
	"github.com/alejandrodnm/eventbt/internal/analytics"
	"github.com/olekukonko/tablewriter"
)

// Console implementa ports.Notifier.
type Console struct {
	out     io.Writer
	compact bool
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(compact bool) *Console {
	return &Console{out: os.Stdout, compact: compact}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, compact bool) *Console {
	return &Console{out: w, compact: compact}
}

// Notify imprime el informe en el modo configurado.
func (c *Console) Notify(_ context.Context, rep analytics.Report) error {
	if rep.Overall.Events == 0 {
		fmt.Fprintf(c.out, "[run %s] no events\n", shortID(rep.RunID))
		return nil
	}

	if c.compact {
		c.printCompact(rep)
		return nil
	}

	fmt.Fprintf(c.out, "\n=== Overall performance (run %s, %d events) ===\n", shortID(rep.RunID), rep.Overall.Events)
	c.printTable(rep.Overall)

	for _, t := range rep.ByCategory {
		label := t.Category
		if label == "" {
			label = "(none)"
		}
		fmt.Fprintf(c.out, "\n=== Performance for %s (%d events) ===\n", label, t.Events)
		c.printTable(t)
	}

	c.printCurves(rep.Curves)
	return nil
}

// printCompact imprime una línea por serie con lo esencial.
func (c *Console) printCompact(rep analytics.Report) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[run %s] %d events", shortID(rep.RunID), rep.Overall.Events)
	for _, row := range rep.Overall.Rows {
		m := row.Metrics
		fmt.Fprintf(&sb, " | %s ann %s sharpe %s mdd %s",
			row.Name, pctLabel(m.AnnualizedReturn), ratioLabel(m.Sharpe), pctLabel(m.MaxDrawdown))
	}
	fmt.Fprintln(c.out, sb.String())
}

// printTable imprime una tabla de métricas. NaN se muestra como n/a.
func (c *Console) printTable(t analytics.Table) {
	table := tablewriter.NewWriter(c.out)
	table.Header("Strategy", "Obs", "Miss", "Total", "Ann.Ret", "Vol", "Sharpe", "Sortino", "MaxDD", "Calmar")

	for _, row := range t.Rows {
		m := row.Metrics
		table.Append(
			row.Name,
			fmt.Sprintf("%d", m.Observations),
			fmt.Sprintf("%d", m.Missing),
			pctLabel(m.TotalReturn),
			pctLabel(m.AnnualizedReturn),
			pctLabel(m.Volatility),
			ratioLabel(m.Sharpe),
			ratioLabel(m.Sortino),
			pctLabel(m.MaxDrawdown),
			ratioLabel(m.Calmar),
		)
	}
	table.Render()
}

// printCurves resume cada curva de capital por su valor final.
func (c *Console) printCurves(curves []analytics.Curve) {
	if len(curves) == 0 {
		return
	}
	fmt.Fprintln(c.out, "\n=== Equity curves ===")
	table := tablewriter.NewWriter(c.out)
	table.Header("Series", "Points", "Final", "Min", "Max")
	for _, cv := range curves {
		lo, hi := bounds(cv.Equity)
		table.Append(
			cv.Name,
			fmt.Sprintf("%d", len(cv.Equity)),
			fmt.Sprintf("%.4f", cv.Final()),
			fmt.Sprintf("%.4f", lo),
			fmt.Sprintf("%.4f", hi),
		)
	}
	table.Render()
}

// PrintHistory imprime los últimos runs guardados.
func (c *Console) PrintHistory(runs []storage.RunSummary) {
	if len(runs) == 0 {
		fmt.Fprintln(c.out, "no runs stored")
		return
	}
	table := tablewriter.NewWriter(c.out)
	table.Header("Run", "Created (UTC)", "Events")
	for _, r := range runs {
		table.Append(r.RunID, r.CreatedAt.Format("2006-01-02 15:04:05"), fmt.Sprintf("%d", r.Events))
	}
	table.Render()
}

// --- helpers ---

func pctLabel(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", v*100)
}

func ratioLabel(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v)
}

func bounds(xs []float64) (lo, hi float64) {
	if len(xs) == 0 {
		return 1, 1
	}
	lo, hi = xs[0], xs[0]
	for _, x := range xs[1:] {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	return lo, hi
}

// shortID recorta un UUID a su primer bloque.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}
