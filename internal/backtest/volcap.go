package backtest

import (
	"math"

	"github.com/alejandrodnm/eventbt/internal/domain"
)

// VolumeCaps calcula el tope de acciones por (fecha, símbolo):
//
//	tope = trunc(media simple de volumen de las últimas `window` fechas × fraction)
//
// La media se toma sobre el eje de fechas del panel y solo está definida si
// las `window` fechas tienen volumen observado; si no, el tope es 0.
// Función pura: el mismo panel devuelve siempre la misma tabla.
func VolumeCaps(panel *domain.Panel, window int, fraction float64) *domain.CapTable {
	caps := make(map[domain.Key]int64)
	if panel == nil || window <= 0 {
		return domain.NewCapTable(caps)
	}

	dates := panel.Dates()
	vols := make([]float64, len(dates))
	valid := make([]bool, len(dates))

	for _, sym := range panel.Symbols() {
		for i, dt := range dates {
			vols[i], valid[i] = panel.Volume(dt, sym)
		}
		for i, dt := range dates {
			k := domain.Key{Date: dt, Symbol: sym}
			sma, ok := trailingMean(vols, valid, i, window)
			if !ok {
				caps[k] = 0
				continue
			}
			caps[k] = truncShares(sma * fraction)
		}
	}
	return domain.NewCapTable(caps)
}

// trailingMean es la media de vals[end-window+1 .. end] sumada en orden.
// Devuelve false si la ventana no está llena o tiene huecos.
func trailingMean(vals []float64, valid []bool, end, window int) (float64, bool) {
	start := end - window + 1
	if start < 0 {
		return 0, false
	}
	var sum float64
	for i := start; i <= end; i++ {
		if !valid[i] {
			return 0, false
		}
		sum += vals[i]
	}
	return sum / float64(window), true
}

func truncShares(x float64) int64 {
	if math.IsNaN(x) || x <= 0 {
		return 0
	}
	if x >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(math.Trunc(x))
}
