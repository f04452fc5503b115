package domain

import (
	"fmt"
	"time"
)

// Event es un anuncio de alta (o baja) en un índice para un símbolo.
// Los eventos son inmutables una vez cargados; su posición en Events es su identidad.
type Event struct {
	Symbol      string
	Announced   time.Time
	TradeDate   time.Time // fecha efectiva del rebalanceo del índice
	Category    string    // índice de referencia (p.ej. "SP500", "SP400")
	ADVFraction float64   // fracción del volumen medio diario a negociar, en [0,1]
}

// Events es la arena ordenada de eventos de un run, ordenada por Announced.
type Events []Event

// Validate comprueba la forma de la secuencia: no vacía, símbolos presentes,
// fechas definidas y orden ascendente por fecha de anuncio.
func (e Events) Validate() error {
	if len(e) == 0 {
		return ErrNoEvents
	}
	for i, ev := range e {
		if ev.Symbol == "" {
			return fmt.Errorf("event %d: empty symbol: %w", i, ErrShape)
		}
		if ev.Announced.IsZero() || ev.TradeDate.IsZero() {
			return fmt.Errorf("event %d (%s): missing dates: %w", i, ev.Symbol, ErrShape)
		}
		if i > 0 && ev.Announced.Before(e[i-1].Announced) {
			return fmt.Errorf("event %d (%s): not sorted by announced date: %w", i, ev.Symbol, ErrShape)
		}
	}
	return nil
}

// Symbols devuelve los símbolos distintos en orden de primera aparición.
func (e Events) Symbols() []string {
	seen := make(map[string]bool, len(e))
	var out []string
	for _, ev := range e {
		if !seen[ev.Symbol] {
			seen[ev.Symbol] = true
			out = append(out, ev.Symbol)
		}
	}
	return out
}

// Categories devuelve las categorías distintas en orden de primera aparición.
func (e Events) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, ev := range e {
		if !seen[ev.Category] {
			seen[ev.Category] = true
			out = append(out, ev.Category)
		}
	}
	return out
}

// CategoryMask marca los eventos que pertenecen a la categoría dada.
func (e Events) CategoryMask(category string) []bool {
	mask := make([]bool, len(e))
	for i, ev := range e {
		mask[i] = ev.Category == category
	}
	return mask
}

// Window devuelve el rango de fechas que un run necesita de los proveedores:
// desde el primer anuncio menos lookback hasta la última fecha de trade más
// un día y holdDays días naturales de salida diferida.
func (e Events) Window(lookback time.Duration, holdDays int) (from, to time.Time) {
	if len(e) == 0 {
		return time.Time{}, time.Time{}
	}
	from = Day(e[0].Announced)
	to = Day(e[0].TradeDate)
	for _, ev := range e {
		if d := Day(ev.Announced); d.Before(from) {
			from = d
		}
		if d := Day(ev.TradeDate); d.After(to) {
			to = d
		}
	}
	if holdDays < 0 {
		holdDays = 0
	}
	return from.Add(-lookback), to.AddDate(0, 0, 1+holdDays)
}
