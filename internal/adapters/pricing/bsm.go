// Package pricing valora el derivado del overlay de cartera con
// Black–Scholes–Merton analítico.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/alejandrodnm/eventbt/internal/domain"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrBadInput indica parámetros con los que el modelo no está definido.
var ErrBadInput = errors.New("pricing: bad input")

const daysPerYear = 365.0 // Act/365

// CallPricer valora una call europea con strike spot × (1 + StrikeOffset) y
// vencimiento a ExpiryDays días hábiles de la fecha de valoración. Tipos y
// volatilidad son planos.
type CallPricer struct {
	StrikeOffset  float64
	ExpiryDays    int
	RiskFree      float64
	DividendYield float64
	Volatility    float64
}

// DefaultCallPricer devuelve la call 2% OTM a 30 días hábiles, r=1%, q=0, σ=20%.
func DefaultCallPricer() CallPricer {
	return CallPricer{
		StrikeOffset:  0.02,
		ExpiryDays:    30,
		RiskFree:      0.01,
		DividendYield: 0,
		Volatility:    0.20,
	}
}

// Price implementa ports.OverlayPricer.
func (p CallPricer) Price(_ context.Context, date time.Time, spot float64) (float64, error) {
	if spot <= 0 || p.ExpiryDays <= 0 {
		return 0, fmt.Errorf("pricing.Price: spot %v, expiry %d days: %w", spot, p.ExpiryDays, ErrBadInput)
	}
	d := domain.Day(date)
	maturity := domain.AddBusinessDays(d, p.ExpiryDays)
	t := maturity.Sub(d).Hours() / 24 / daysPerYear

	price, err := Call(spot, spot*(1+p.StrikeOffset), t, p.RiskFree, p.DividendYield, p.Volatility)
	if err != nil {
		return 0, fmt.Errorf("pricing.Price: %w", err)
	}
	return price, nil
}

// Call devuelve el precio Black–Scholes–Merton de una call europea.
//
//	d1 = (ln(S/K) + (r − q + σ²/2)·T) / (σ·√T),  d2 = d1 − σ·√T
//	C  = S·e^(−qT)·N(d1) − K·e^(−rT)·N(d2)
func Call(spot, strike, t, r, q, vol float64) (float64, error) {
	if spot <= 0 || strike <= 0 || t <= 0 || vol <= 0 {
		return 0, fmt.Errorf("S=%v K=%v T=%v σ=%v: %w", spot, strike, t, vol, ErrBadInput)
	}
	sqrtT := math.Sqrt(t)
	d1 := (math.Log(spot/strike) + (r-q+vol*vol/2)*t) / (vol * sqrtT)
	d2 := d1 - vol*sqrtT

	n := distuv.UnitNormal
	return spot*math.Exp(-q*t)*n.CDF(d1) - strike*math.Exp(-r*t)*n.CDF(d2), nil
}
