package analytics

// metrics.go: estadísticas de rendimiento de una serie de rentabilidades.
//
// Los faltantes se descartan antes de calcular (nunca se rellenan con 0).
// Un estadístico degenerado se reporta como NaN, nunca como error ni como 0.

import (
	"math"

	"github.com/alejandrodnm/eventbt/internal/domain"
	"gonum.org/v1/gonum/stat"
)

// Metrics es el registro de métricas de una serie.
type Metrics struct {
	Observations       int // observaciones válidas usadas
	Missing            int // observaciones descartadas
	TotalReturn        float64
	AnnualizedReturn   float64
	Volatility         float64
	DownsideVolatility float64
	Sharpe             float64
	Sortino            float64
	MaxDrawdown        float64 // en [-1, 0]
	Calmar             float64
}

// Undefined devuelve un registro con todas las métricas a NaN.
func Undefined() Metrics {
	nan := math.NaN()
	return Metrics{
		TotalReturn:        nan,
		AnnualizedReturn:   nan,
		Volatility:         nan,
		DownsideVolatility: nan,
		Sharpe:             nan,
		Sortino:            nan,
		MaxDrawdown:        nan,
		Calmar:             nan,
	}
}

// Compute calcula las métricas de s anualizando con daysPerYear periodos.
// La desviación típica es muestral (n−1), así que una sola observación da
// volatilidad NaN.
func Compute(s domain.Series, daysPerYear int) Metrics {
	r := s.Dropna()
	if len(r) == 0 || daysPerYear <= 0 {
		m := Undefined()
		m.Missing = s.MissingCount()
		return m
	}
	ann := math.Sqrt(float64(daysPerYear))

	equity := domain.Compound(r)
	total := equity[len(equity)-1] - 1

	m := Metrics{
		Observations: len(r),
		Missing:      s.MissingCount(),
		TotalReturn:  total,
	}
	m.AnnualizedReturn = math.Pow(1+total, float64(daysPerYear)/float64(len(r))) - 1

	mean, std := stat.MeanStdDev(r, nil)
	m.Volatility = std * ann
	m.Sharpe = math.NaN()
	if std != 0 && !math.IsNaN(std) {
		m.Sharpe = mean / std * ann
	}

	m.DownsideVolatility = math.NaN()
	if neg := negatives(r); len(neg) > 0 {
		m.DownsideVolatility = stat.StdDev(neg, nil) * ann
	}
	m.Sortino = math.NaN()
	if m.DownsideVolatility != 0 && !math.IsNaN(m.DownsideVolatility) {
		m.Sortino = mean / m.DownsideVolatility
	}

	m.MaxDrawdown = MaxDrawdown(equity)
	m.Calmar = math.NaN()
	if m.MaxDrawdown < 0 {
		m.Calmar = m.AnnualizedReturn / math.Abs(m.MaxDrawdown)
	}
	return m
}

// MaxDrawdown devuelve la peor caída relativa desde el máximo previo de una
// curva de capital compuesta con base 1. El máximo arranca en la base, así que
// una pérdida en la primera observación ya es drawdown. El resultado está en
// [-1, 0]; una curva vacía devuelve NaN.
func MaxDrawdown(equity []float64) float64 {
	if len(equity) == 0 {
		return math.NaN()
	}
	peak := 1.0
	mdd := 0.0
	for _, v := range equity {
		if v > peak {
			peak = v
		}
		dd := -1.0
		if peak > 0 {
			dd = (v - peak) / peak
		}
		if dd < mdd {
			mdd = dd
		}
	}
	return math.Max(mdd, -1)
}

func negatives(r []float64) []float64 {
	var out []float64
	for _, x := range r {
		if x < 0 {
			out = append(out, x)
		}
	}
	return out
}
