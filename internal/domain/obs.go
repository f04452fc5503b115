package domain

// Obs es una observación por evento: un valor o la marca explícita de dato
// faltante. "Faltante" (Valid=false) es distinto de un estadístico degenerado,
// que se reporta como NaN dentro de un valor válido.
type Obs struct {
	Value float64
	Valid bool
}

// Observed construye una observación válida.
func Observed(v float64) Obs {
	return Obs{Value: v, Valid: true}
}

// Missing es la observación faltante.
var Missing = Obs{}

// Or devuelve el valor o fallback si la observación falta.
func (o Obs) Or(fallback float64) float64 {
	if !o.Valid {
		return fallback
	}
	return o.Value
}

// Series es una serie por evento, indexada igual que Events.
type Series []Obs

// Dropna devuelve los valores válidos en orden, descartando los faltantes.
// Es el tratamiento de las estadísticas de una estrategia.
func (s Series) Dropna() []float64 {
	out := make([]float64, 0, len(s))
	for _, o := range s {
		if o.Valid {
			out = append(out, o.Value)
		}
	}
	return out
}

// ZeroFilled devuelve la serie con los faltantes como 0.
// Es el tratamiento de la agregación de cartera.
func (s Series) ZeroFilled() []float64 {
	out := make([]float64, len(s))
	for i, o := range s {
		out[i] = o.Or(0)
	}
	return out
}

// Compound devuelve la curva de capital compuesta con base 1 antes de la
// primera observación: eq[i] = eq[i−1] × (1 + r[i]).
func Compound(r []float64) []float64 {
	out := make([]float64, len(r))
	eq := 1.0
	for i, x := range r {
		eq *= 1 + x
		out[i] = eq
	}
	return out
}

// Select devuelve la subserie de las posiciones marcadas en mask.
func (s Series) Select(mask []bool) Series {
	var out Series
	for i, o := range s {
		if i < len(mask) && mask[i] {
			out = append(out, o)
		}
	}
	return out
}

// MissingCount cuenta las observaciones faltantes.
func (s Series) MissingCount() int {
	n := 0
	for _, o := range s {
		if !o.Valid {
			n++
		}
	}
	return n
}
