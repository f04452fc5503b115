package strategy

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRegistry_RegisterAndLookup(t *testing.T) {
	p := testParams()
	alloc := decimal.NewFromInt(1000)

	r := NewRegistry()
	r.Register(NewReversion(p, alloc, nil, nil, nil, "SPY"))
	r.Register(NewMomentum(p, alloc, nil, nil, nil))

	assert.Equal(t, []string{NameMomentum, NameReversion}, r.Names())

	s, ok := r.Get(NameMomentum)
	assert.True(t, ok)
	assert.Equal(t, NameMomentum, s.Name())

	_, ok = r.Get("carry")
	assert.False(t, ok)
}

func TestRegistry_RegisterReplacesByName(t *testing.T) {
	p := testParams()
	r := NewRegistry()
	r.Register(NewMomentum(p, decimal.NewFromInt(1), nil, nil, nil))
	second := NewMomentum(p, decimal.NewFromInt(2), nil, nil, nil)
	r.Register(second)

	assert.Len(t, r.Names(), 1)
	s, _ := r.Get(NameMomentum)
	assert.Same(t, second, s)
}
