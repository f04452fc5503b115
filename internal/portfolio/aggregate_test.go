package portfolio

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alejandrodnm/eventbt/internal/allocation"
	"github.com/alejandrodnm/eventbt/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var td = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

type fixedPricer struct {
	price float64
	err   error
	calls int
}

func (p *fixedPricer) Price(_ context.Context, _ time.Time, _ float64) (float64, error) {
	p.calls++
	return p.price, p.err
}

func series(vals ...any) domain.Series {
	out := make(domain.Series, len(vals))
	for i, v := range vals {
		if f, ok := v.(float64); ok {
			out[i] = domain.Observed(f)
		}
	}
	return out
}

func TestCombine_MissingCountsAsZero(t *testing.T) {
	mom := series(0.01, nil, 0.02)
	rev := series(0.005, 0.003, nil)

	got, err := Combine(mom, rev)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.InDelta(t, 0.015, got[0].Value, 1e-15)
	assert.InDelta(t, 0.003, got[1].Value, 1e-15, "missing momentum contributes exactly 0")
	assert.InDelta(t, 0.02, got[2].Value, 1e-15)
	assert.Equal(t, 0, got.MissingCount())
}

func TestCombine_LengthMismatch(t *testing.T) {
	_, err := Combine(series(0.1), series(0.1, 0.2))
	assert.ErrorIs(t, err, domain.ErrShape)
}

func TestCumulative_CompoundsWithMissingAsZero(t *testing.T) {
	s := series(0.10, nil, -0.05, 0.02)
	cum := Cumulative(s)
	require.Len(t, cum, 4)

	prev := 0.0
	for i, r := range s.ZeroFilled() {
		assert.InDelta(t, (1+prev)*(1+r)-1, cum[i], 1e-15, "step %d", i)
		prev = cum[i]
	}
	assert.InDelta(t, 0.1, cum[0], 1e-15)
	assert.InDelta(t, 0.1, cum[1], 1e-15)
	assert.InDelta(t, 1.1*0.95*1.02-1, cum[3], 1e-15)
}

func TestCumulative_Empty(t *testing.T) {
	assert.Empty(t, Cumulative(nil))
}

func events(symbols ...string) domain.Events {
	out := make(domain.Events, len(symbols))
	for i, s := range symbols {
		out[i] = domain.Event{Symbol: s, Announced: td.AddDate(0, 0, -5), TradeDate: td}
	}
	return out
}

func TestWeighted_NoOverlay(t *testing.T) {
	ev := events("AAA", "BBB")
	w := []allocation.Weights{{Momentum: 0.5, Reversion: 0.25}, {Momentum: 0.1, Reversion: 0}}

	got, err := Weighted(context.Background(), ev, series(0.04, nil), series(0.08, 0.5), w, nil)
	require.NoError(t, err)

	assert.InDelta(t, 0.5*0.04+0.25*0.08, got[0].Value, 1e-15)
	assert.InDelta(t, 0.0, got[1].Value, 1e-15)
}

func TestWeighted_Overlay(t *testing.T) {
	panel, err := domain.NewPanel([]domain.Bar{
		{Date: td, Symbol: "AAA", Open: domain.Observed(99), Close: domain.Observed(100), Volume: domain.Observed(1e6)},
	})
	require.NoError(t, err)

	pricer := &fixedPricer{price: 2.5}
	ov := &Overlay{Pricer: pricer, Multiplier: DefaultOverlayMultiplier, Prices: panel}
	ev := events("AAA", "ZZZ")
	w := []allocation.Weights{{Momentum: 0.1, Reversion: 0.1}, {Momentum: 0.1, Reversion: 0.1}}

	got, err := Weighted(context.Background(), ev, series(0.02, 0.02), series(0.01, 0.01), w, ov)
	require.NoError(t, err)

	// 0.1×0.02 + 0.1×0.01 + (2.5 / 100) × 0.01
	assert.InDelta(t, 0.003+0.00025, got[0].Value, 1e-15)
	// ZZZ no tiene cierre: el evento entero aporta 0
	assert.Equal(t, domain.Observed(0), got[1])
	assert.Equal(t, 1, pricer.calls)
}

func TestWeighted_PricerErrorZeroesEvent(t *testing.T) {
	panel, err := domain.NewPanel([]domain.Bar{
		{Date: td, Symbol: "AAA", Close: domain.Observed(100)},
	})
	require.NoError(t, err)

	ov := &Overlay{Pricer: &fixedPricer{err: errors.New("boom")}, Multiplier: 0.01, Prices: panel}
	got, err := Weighted(context.Background(), events("AAA"), series(0.5), series(0.5), []allocation.Weights{{Momentum: 1, Reversion: 1}}, ov)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got[0].Value)
}

func TestWeighted_LengthMismatch(t *testing.T) {
	_, err := Weighted(context.Background(), events("AAA"), series(0.1), series(0.1), nil, nil)
	assert.ErrorIs(t, err, domain.ErrShape)
}
