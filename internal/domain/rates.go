package domain

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// RatePoint es un tipo anual de financiación en formato decimal (0.05 = 5%).
type RatePoint struct {
	Date time.Time
	Rate float64
}

// RateSeries es una serie de tipos de solo lectura con relleno al leer:
// hacia delante (último valor conocido) y, antes del primer punto, hacia atrás.
type RateSeries struct {
	points []RatePoint
}

// NewRateSeries ordena y deduplica los puntos (el último gana).
// Devuelve ErrShape si hay fechas vacías o valores no finitos.
func NewRateSeries(points []RatePoint) (*RateSeries, error) {
	byDay := make(map[time.Time]float64, len(points))
	for i, p := range points {
		if p.Date.IsZero() {
			return nil, fmt.Errorf("domain.NewRateSeries: point %d: missing date: %w", i, ErrShape)
		}
		if math.IsNaN(p.Rate) || math.IsInf(p.Rate, 0) {
			return nil, fmt.Errorf("domain.NewRateSeries: point %d: non-finite rate: %w", i, ErrShape)
		}
		byDay[Day(p.Date)] = p.Rate
	}

	s := &RateSeries{points: make([]RatePoint, 0, len(byDay))}
	for d, r := range byDay {
		s.points = append(s.points, RatePoint{Date: d, Rate: r})
	}
	sort.Slice(s.points, func(i, j int) bool { return s.points[i].Date.Before(s.points[j].Date) })
	return s, nil
}

// At devuelve el tipo vigente en date. Devuelve false solo si la serie está vacía.
func (s *RateSeries) At(date time.Time) (float64, bool) {
	if s == nil || len(s.points) == 0 {
		return 0, false
	}
	d := Day(date)
	// primer punto estrictamente posterior a d
	i := sort.Search(len(s.points), func(i int) bool { return s.points[i].Date.After(d) })
	if i == 0 {
		return s.points[0].Rate, true // relleno hacia atrás
	}
	return s.points[i-1].Rate, true
}

// Len devuelve el número de puntos observados.
func (s *RateSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.points)
}
