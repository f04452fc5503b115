package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PnLStatus distingue un trade ejecutado, un trade de tamaño cero y un dato faltante.
type PnLStatus int

const (
	StatusMissing PnLStatus = iota // faltan precios para las fechas requeridas
	StatusNoTrade                  // datos presentes pero 0 acciones (tope 0)
	StatusTraded
)

// String devuelve el nombre del estado.
func (s PnLStatus) String() string {
	switch s {
	case StatusTraded:
		return "TRADED"
	case StatusNoTrade:
		return "NO_TRADE"
	default:
		return "MISSING"
	}
}

// PnL es el resultado de un evento en una estrategia.
//
// Invariantes: Net == Gross − TransactionCost − FinancingCost; si Shares == 0
// entonces Net == 0. Un PnL con StatusMissing no tiene importes.
type PnL struct {
	Event  int // índice en Events
	Status PnLStatus
	Reason string // motivo del dato faltante

	Signal     int // +1 largo, −1 corto
	EntryDate  time.Time
	ExitDate   time.Time
	EntryPrice float64
	ExitPrice  float64
	Shares     int64

	Gross           decimal.Decimal
	TransactionCost decimal.Decimal
	FinancingCost   decimal.Decimal
	Net             decimal.Decimal
}

// MissingPnL construye el registro de un evento sin datos.
func MissingPnL(event int, reason string) PnL {
	return PnL{Event: event, Status: StatusMissing, Reason: reason}
}

// IsMissing devuelve true si el evento no pudo evaluarse por falta de datos.
func (p PnL) IsMissing() bool {
	return p.Status == StatusMissing
}

// Return normaliza el PnL neto por el capital por evento.
// Un PnL faltante devuelve Missing; un capital no positivo devuelve 0.
func (p PnL) Return(alloc decimal.Decimal) Obs {
	if p.IsMissing() {
		return Missing
	}
	if !alloc.IsPositive() {
		return Observed(0)
	}
	return Observed(p.Net.Div(alloc).InexactFloat64())
}

// Returns convierte los PnL de una estrategia en su serie de rentabilidades.
func Returns(pnls []PnL, alloc decimal.Decimal) Series {
	out := make(Series, len(pnls))
	for i, p := range pnls {
		out[i] = p.Return(alloc)
	}
	return out
}
