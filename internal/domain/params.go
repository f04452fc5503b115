package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Params es la configuración inmutable de un run. Se pasa por valor a cada componente.
type Params struct {
	GrossPortfolioValue     decimal.Decimal // capital bruto de la cartera
	TransactionCostPerShare decimal.Decimal // coste por acción y lado
	LongFinancingSpread     float64         // spread anual sobre el tipo para posiciones largas
	ShortFinancingSpread    float64         // spread anual sobre el tipo para posiciones cortas
	MaxVolumeFraction       float64         // fracción del volumen medio negociable (tope)
	TradingDaysPerYear      int             // base de anualización y de devengo diario

	VolumeWindow      int // ventana de la media de volumen, en fechas del panel
	ReversionHoldDays int // días naturales extra de la reversión (0 = intradía)
}

// DefaultParams devuelve los parámetros de referencia del estudio:
// cartera de $5M, 1 céntimo por acción, 1% del volumen medio de 20 sesiones.
func DefaultParams() Params {
	return Params{
		GrossPortfolioValue:     decimal.NewFromInt(5_000_000),
		TransactionCostPerShare: decimal.RequireFromString("0.01"),
		LongFinancingSpread:     0.005,
		ShortFinancingSpread:    0.005,
		MaxVolumeFraction:       0.01,
		TradingDaysPerYear:      252,
		VolumeWindow:            20,
		ReversionHoldDays:       0,
	}
}

// Validate comprueba que los parámetros definen un run coherente.
func (p Params) Validate() error {
	switch {
	case !p.GrossPortfolioValue.IsPositive():
		return fmt.Errorf("gross portfolio value must be positive: %w", ErrShape)
	case p.TransactionCostPerShare.IsNegative():
		return fmt.Errorf("transaction cost must be non-negative: %w", ErrShape)
	case p.MaxVolumeFraction < 0:
		return fmt.Errorf("max volume fraction must be non-negative: %w", ErrShape)
	case p.TradingDaysPerYear <= 0:
		return fmt.Errorf("trading days per year must be positive: %w", ErrShape)
	case p.VolumeWindow <= 0:
		return fmt.Errorf("volume window must be positive: %w", ErrShape)
	case p.ReversionHoldDays < 0:
		return fmt.Errorf("reversion hold days must be non-negative: %w", ErrShape)
	}
	return nil
}

// Allocation devuelve el capital fijo por evento: valor bruto / número de eventos.
// Es constante en todo el run, también al filtrar por categoría.
func (p Params) Allocation(nEvents int) (decimal.Decimal, error) {
	if nEvents <= 0 {
		return decimal.Zero, ErrNoEvents
	}
	return p.GrossPortfolioValue.Div(decimal.NewFromInt(int64(nEvents))), nil
}
