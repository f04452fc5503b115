package strategy

// reversion.go: reversión a la media el día del evento.
//
// Compara la rentabilidad apertura→cierre del valor con la del benchmark el
// día de trade: si el valor lo hace peor, compra esperando rebote; si no,
// vende en corto. Los empates venden. Por defecto abre y cierra el mismo día
// (sin financiación); con HoldDays > 0 cierra HoldDays días naturales después
// y devenga financiación con el spread del lado de la posición.

import (
	"github.com/alejandrodnm/eventbt/internal/domain"
	"github.com/shopspring/decimal"
)

// NameReversion es el nombre con el que se registra la estrategia.
const NameReversion = "Reversion"

// Reversion implementa Strategy.
type Reversion struct {
	params    domain.Params
	alloc     decimal.Decimal
	prices    *domain.Panel
	caps      *domain.CapTable
	rates     *domain.RateSeries
	benchmark string
}

// NewReversion crea la estrategia contra el símbolo benchmark (p.ej. "SPY").
// rates solo se usa si params.ReversionHoldDays > 0.
func NewReversion(params domain.Params, alloc decimal.Decimal, prices *domain.Panel, caps *domain.CapTable, rates *domain.RateSeries, benchmark string) *Reversion {
	return &Reversion{params: params, alloc: alloc, prices: prices, caps: caps, rates: rates, benchmark: benchmark}
}

// Name devuelve NameReversion.
func (r *Reversion) Name() string { return NameReversion }

// Evaluate simula el trade del evento idx.
func (r *Reversion) Evaluate(idx int, ev domain.Event) domain.PnL {
	tradeDate := domain.Day(ev.TradeDate)
	exitDate := tradeDate.AddDate(0, 0, r.params.ReversionHoldDays)

	open, ok := r.prices.Open(tradeDate, ev.Symbol)
	if !ok {
		return domain.MissingPnL(idx, "no trade-date open")
	}
	sameDayClose, ok := r.prices.Close(tradeDate, ev.Symbol)
	if !ok {
		return domain.MissingPnL(idx, "no trade-date close")
	}
	exit, ok := r.prices.Close(exitDate, ev.Symbol)
	if !ok {
		return domain.MissingPnL(idx, "no exit close")
	}
	benchOpen, ok := r.prices.Open(tradeDate, r.benchmark)
	if !ok {
		return domain.MissingPnL(idx, "no benchmark open")
	}
	benchClose, ok := r.prices.Close(tradeDate, r.benchmark)
	if !ok {
		return domain.MissingPnL(idx, "no benchmark close")
	}

	p := domain.PnL{
		Event:      idx,
		Signal:     Signal(dayReturn(open, sameDayClose), dayReturn(benchOpen, benchClose)),
		EntryDate:  tradeDate,
		ExitDate:   exitDate,
		EntryPrice: open,
		ExitPrice:  exit,
		Shares:     shareCount(r.alloc, open, r.caps.Cap(tradeDate, ev.Symbol)),
	}
	if p.Shares == 0 {
		return noTrade(p)
	}

	spread := r.params.LongFinancingSpread
	if p.Signal < 0 {
		spread = r.params.ShortFinancingSpread
	}
	daily, ok := accruedRate(r.rates, tradeDate, exitDate, spread, r.params.TradingDaysPerYear)
	if !ok {
		return domain.MissingPnL(idx, "no financing rate")
	}

	qty := decimal.NewFromInt(p.Shares)
	entryPx := decimal.NewFromFloat(open)
	exitPx := decimal.NewFromFloat(exit)

	gross := exitPx.Sub(entryPx).Mul(qty).Mul(decimal.NewFromInt(int64(p.Signal)))
	tc := roundTripCost(p.Shares, r.params.TransactionCostPerShare)
	fc := entryPx.Mul(qty).Mul(decimal.NewFromFloat(daily))
	return settle(p, gross, tc, fc)
}

// Signal devuelve +1 (largo) si el valor rinde menos que el benchmark y −1
// (corto) en otro caso, empates incluidos.
func Signal(stockReturn, benchmarkReturn float64) int {
	if stockReturn < benchmarkReturn {
		return 1
	}
	return -1
}

// dayReturn es la rentabilidad apertura→cierre. Sin guardia para open == 0:
// un NaN nunca es menor que el benchmark, así que la señal queda en corto.
func dayReturn(open, close float64) float64 {
	return (close - open) / open
}
