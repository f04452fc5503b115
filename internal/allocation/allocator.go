package allocation

import (
	"math"
)

// Scores son las predicciones de un modelo externo para un evento.
type Scores struct {
	Momentum  float64
	Reversion float64
}

// Weights es la fracción de capital asignada a cada estrategia en un evento.
type Weights struct {
	Momentum  float64
	Reversion float64
}

// Allocator convierte scores en pesos de capital:
//
//	w_i = score_i / Σ scores del evento
//	w_i = min(w_i, MaxPosition)
//	w_i = max(w_i − CostPerTrade, 0)
type Allocator struct {
	MaxPosition  float64 // tope por estrategia y evento (0.10)
	CostPerTrade float64 // coste fijo por trade como fracción (0.0005)
}

// DefaultAllocator devuelve el tope del 10% y 5 bps de coste por trade.
func DefaultAllocator() Allocator {
	return Allocator{MaxPosition: 0.10, CostPerTrade: 0.0005}
}

// Allocate devuelve un peso por evento, en el mismo orden que scores.
// Un evento cuya suma de scores es cero o no finita no recibe capital.
func (a Allocator) Allocate(scores []Scores) []Weights {
	out := make([]Weights, len(scores))
	for i, s := range scores {
		sum := s.Momentum + s.Reversion
		if sum == 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
			continue
		}
		out[i] = Weights{
			Momentum:  a.weight(s.Momentum / sum),
			Reversion: a.weight(s.Reversion / sum),
		}
	}
	return out
}

func (a Allocator) weight(w float64) float64 {
	if math.IsNaN(w) {
		return 0
	}
	w = math.Min(w, a.MaxPosition)
	return math.Max(w-a.CostPerTrade, 0)
}
