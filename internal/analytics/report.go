package analytics

import (
	"fmt"

	"github.com/alejandrodnm/eventbt/internal/domain"
)

// NamedSeries es la serie de rentabilidades de una estrategia o combinación.
type NamedSeries struct {
	Name   string
	Series domain.Series
}

// Row es la fila de métricas de una serie dentro de una tabla.
type Row struct {
	Name    string
	Metrics Metrics
}

// Table agrupa las métricas de todas las series sobre un mismo subconjunto
// de eventos. Category vacío indica el conjunto completo.
type Table struct {
	Category string
	Events   int
	Rows     []Row
}

// Curve es la curva de capital compuesta de una serie, con faltantes a 0.
type Curve struct {
	Name   string
	Equity []float64
}

// Report es el informe completo de un run.
type Report struct {
	RunID      string
	Overall    Table
	ByCategory []Table
	Curves     []Curve
}

// ReportOptions configura BuildReport.
type ReportOptions struct {
	// Categories fija las tablas por categoría y su orden. Vacío usa las
	// categorías de los eventos en orden de aparición. Una categoría sin
	// eventos produce filas con todas las métricas a NaN.
	Categories  []string
	DaysPerYear int
}

// BuildReport calcula la tabla global, una tabla por categoría y las curvas
// de capital. Cada serie debe tener una observación por evento.
func BuildReport(events domain.Events, series []NamedSeries, opts ReportOptions) (Report, error) {
	for _, ns := range series {
		if len(ns.Series) != len(events) {
			return Report{}, fmt.Errorf("analytics.BuildReport: series %q has %d observations for %d events: %w",
				ns.Name, len(ns.Series), len(events), domain.ErrShape)
		}
	}

	rep := Report{
		Overall: table("", len(events), series, nil, opts.DaysPerYear),
	}

	cats := opts.Categories
	if len(cats) == 0 {
		cats = events.Categories()
	}
	for _, cat := range cats {
		mask := events.CategoryMask(cat)
		n := 0
		for _, in := range mask {
			if in {
				n++
			}
		}
		rep.ByCategory = append(rep.ByCategory, table(cat, n, series, mask, opts.DaysPerYear))
	}

	for _, ns := range series {
		rep.Curves = append(rep.Curves, Curve{Name: ns.Name, Equity: domain.Compound(ns.Series.ZeroFilled())})
	}
	return rep, nil
}

func table(category string, n int, series []NamedSeries, mask []bool, daysPerYear int) Table {
	t := Table{Category: category, Events: n, Rows: make([]Row, 0, len(series))}
	for _, ns := range series {
		s := ns.Series
		if mask != nil {
			s = s.Select(mask)
		}
		t.Rows = append(t.Rows, Row{Name: ns.Name, Metrics: Compute(s, daysPerYear)})
	}
	return t
}

// Final devuelve el último valor de la curva, o 1 si está vacía.
func (c Curve) Final() float64 {
	if len(c.Equity) == 0 {
		return 1
	}
	return c.Equity[len(c.Equity)-1]
}
