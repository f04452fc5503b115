package strategy

// momentum.go: momentum post-anuncio.
//
// Compra en la apertura del día siguiente al anuncio y vende en el cierre de la
// fecha de trade del índice. Financia la posición larga día hábil a día hábil
// al tipo de referencia más el spread largo.

import (
	"github.com/alejandrodnm/eventbt/internal/domain"
	"github.com/shopspring/decimal"
)

// NameMomentum es el nombre con el que se registra la estrategia.
const NameMomentum = "Momentum"

// Momentum implementa Strategy.
type Momentum struct {
	params domain.Params
	alloc  decimal.Decimal
	prices *domain.Panel
	caps   *domain.CapTable
	rates  *domain.RateSeries
}

// NewMomentum crea la estrategia con el capital fijo por evento ya calculado.
// prices, caps y rates se leen pero nunca se modifican.
func NewMomentum(params domain.Params, alloc decimal.Decimal, prices *domain.Panel, caps *domain.CapTable, rates *domain.RateSeries) *Momentum {
	return &Momentum{params: params, alloc: alloc, prices: prices, caps: caps, rates: rates}
}

// Name devuelve NameMomentum.
func (m *Momentum) Name() string { return NameMomentum }

// Evaluate simula el trade del evento idx.
func (m *Momentum) Evaluate(idx int, ev domain.Event) domain.PnL {
	entryDate := domain.Day(ev.Announced).AddDate(0, 0, 1)
	exitDate := domain.Day(ev.TradeDate)

	if entryDate.After(exitDate) {
		return domain.MissingPnL(idx, "entry after exit")
	}
	entry, ok := m.prices.Open(entryDate, ev.Symbol)
	if !ok {
		return domain.MissingPnL(idx, "no entry open")
	}
	exit, ok := m.prices.Close(exitDate, ev.Symbol)
	if !ok {
		return domain.MissingPnL(idx, "no exit close")
	}

	p := domain.PnL{
		Event:      idx,
		Signal:     1,
		EntryDate:  entryDate,
		ExitDate:   exitDate,
		EntryPrice: entry,
		ExitPrice:  exit,
		Shares:     shareCount(m.alloc, entry, m.caps.Cap(entryDate, ev.Symbol)),
	}
	if p.Shares == 0 {
		return noTrade(p)
	}

	daily, ok := accruedRate(m.rates, entryDate, exitDate, m.params.LongFinancingSpread, m.params.TradingDaysPerYear)
	if !ok {
		return domain.MissingPnL(idx, "no financing rate")
	}

	qty := decimal.NewFromInt(p.Shares)
	entryPx := decimal.NewFromFloat(entry)
	exitPx := decimal.NewFromFloat(exit)

	gross := exitPx.Sub(entryPx).Mul(qty)
	tc := roundTripCost(p.Shares, m.params.TransactionCostPerShare)
	fc := entryPx.Mul(qty).Mul(decimal.NewFromFloat(daily))
	return settle(p, gross, tc, fc)
}
