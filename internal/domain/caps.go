package domain

import "time"

// CapTable es el máximo de acciones negociables por (fecha, símbolo).
// Se calcula una vez por run y ambos backtesters la comparten en solo lectura.
type CapTable struct {
	caps map[Key]int64
}

// NewCapTable envuelve un mapa ya calculado. Los topes negativos se guardan como 0.
func NewCapTable(caps map[Key]int64) *CapTable {
	t := &CapTable{caps: make(map[Key]int64, len(caps))}
	for k, v := range caps {
		if v < 0 {
			v = 0
		}
		t.caps[Key{Date: Day(k.Date), Symbol: k.Symbol}] = v
	}
	return t
}

// Cap devuelve el tope en (date, symbol). Una celda ausente vale 0.
func (t *CapTable) Cap(date time.Time, symbol string) int64 {
	if t == nil {
		return 0
	}
	return t.caps[Key{Date: Day(date), Symbol: symbol}]
}

// Len devuelve el número de celdas definidas.
func (t *CapTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.caps)
}
