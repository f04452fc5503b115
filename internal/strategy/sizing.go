package strategy

import (
	"time"

	"github.com/alejandrodnm/eventbt/internal/domain"
	"github.com/shopspring/decimal"
)

var two = decimal.NewFromInt(2)

// shareCount devuelve las acciones a negociar:
//
//	deseadas = floor(alloc / precio de entrada)
//	acciones = min(deseadas, tope de volumen)
//
// Un precio no positivo no limita el tamaño; manda el tope.
func shareCount(alloc decimal.Decimal, price float64, cap int64) int64 {
	if cap <= 0 {
		return 0
	}
	if price <= 0 {
		return cap
	}
	desired := alloc.Div(decimal.NewFromFloat(price)).Floor()
	if desired.IsNegative() {
		return 0
	}
	if desired.LessThan(decimal.NewFromInt(cap)) {
		return desired.IntPart()
	}
	return cap
}

// roundTripCost es el coste de transacción de entrada y salida.
func roundTripCost(shares int64, perShare decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(shares).Mul(perShare).Mul(two)
}

// accruedRate suma el tipo diario ((tipo + spread) / días por año) de cada día
// hábil en [from, to]. Un periodo de longitud cero (from == to) no devenga.
// Devuelve false si algún día no tiene tipo.
func accruedRate(rates *domain.RateSeries, from, to time.Time, spread float64, daysPerYear int) (float64, bool) {
	if !from.Before(to) {
		return 0, true
	}
	var sum float64
	for _, d := range domain.BusinessDays(from, to) {
		r, ok := rates.At(d)
		if !ok {
			return 0, false
		}
		sum += (r + spread) / float64(daysPerYear)
	}
	return sum, true
}

// settle cierra un PnL con importes: gross, costes y neto = gross − tc − fc.
func settle(p domain.PnL, gross, tc, fc decimal.Decimal) domain.PnL {
	p.Status = domain.StatusTraded
	p.Gross = gross
	p.TransactionCost = tc
	p.FinancingCost = fc
	p.Net = gross.Sub(tc).Sub(fc)
	return p
}

// noTrade cierra un PnL con 0 acciones: todos los importes a cero, no faltante.
func noTrade(p domain.PnL) domain.PnL {
	p.Status = domain.StatusNoTrade
	p.Shares = 0
	p.Gross = decimal.Zero
	p.TransactionCost = decimal.Zero
	p.FinancingCost = decimal.Zero
	p.Net = decimal.Zero
	return p
}
