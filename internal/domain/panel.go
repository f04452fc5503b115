package domain

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Key identifica una celda (fecha, símbolo) de un panel.
type Key struct {
	Date   time.Time
	Symbol string
}

// Bar es una fila diaria de un símbolo. Cada campo puede faltar por separado.
type Bar struct {
	Date   time.Time
	Symbol string
	Open   Obs
	Close  Obs
	Volume Obs
}

// Panel es una instantánea de solo lectura de precios y volúmenes por
// (fecha, símbolo). Es disperso: la ausencia de una celda es normal.
// Se comparte entre todos los componentes de un run y nadie la modifica.
type Panel struct {
	dates   []time.Time
	symbols []string
	open    map[Key]float64
	close   map[Key]float64
	volume  map[Key]float64
}

// NewPanel construye un panel a partir de barras en cualquier orden.
// Devuelve ErrShape si una barra no tiene fecha o símbolo, si está duplicada
// o si contiene valores no finitos.
func NewPanel(bars []Bar) (*Panel, error) {
	p := &Panel{
		open:   make(map[Key]float64, len(bars)),
		close:  make(map[Key]float64, len(bars)),
		volume: make(map[Key]float64, len(bars)),
	}
	seen := make(map[Key]bool, len(bars))
	dates := make(map[time.Time]bool)
	symbols := make(map[string]bool)

	for i, b := range bars {
		if b.Date.IsZero() || b.Symbol == "" {
			return nil, fmt.Errorf("domain.NewPanel: bar %d: missing date or symbol: %w", i, ErrShape)
		}
		k := Key{Date: Day(b.Date), Symbol: b.Symbol}
		if seen[k] {
			return nil, fmt.Errorf("domain.NewPanel: duplicate bar %s %s: %w",
				k.Date.Format(DateLayout), k.Symbol, ErrShape)
		}
		seen[k] = true

		for _, o := range []Obs{b.Open, b.Close, b.Volume} {
			if o.Valid && (math.IsNaN(o.Value) || math.IsInf(o.Value, 0)) {
				return nil, fmt.Errorf("domain.NewPanel: non-finite value at %s %s: %w",
					k.Date.Format(DateLayout), k.Symbol, ErrShape)
			}
		}
		if b.Open.Valid {
			p.open[k] = b.Open.Value
		}
		if b.Close.Valid {
			p.close[k] = b.Close.Value
		}
		if b.Volume.Valid {
			p.volume[k] = b.Volume.Value
		}
		if !dates[k.Date] {
			dates[k.Date] = true
			p.dates = append(p.dates, k.Date)
		}
		if !symbols[k.Symbol] {
			symbols[k.Symbol] = true
			p.symbols = append(p.symbols, k.Symbol)
		}
	}

	sort.Slice(p.dates, func(i, j int) bool { return p.dates[i].Before(p.dates[j]) })
	sort.Strings(p.symbols)
	return p, nil
}

// Open devuelve el precio de apertura en (date, symbol), si existe.
func (p *Panel) Open(date time.Time, symbol string) (float64, bool) {
	v, ok := p.open[Key{Date: Day(date), Symbol: symbol}]
	return v, ok
}

// Close devuelve el precio de cierre en (date, symbol), si existe.
func (p *Panel) Close(date time.Time, symbol string) (float64, bool) {
	v, ok := p.close[Key{Date: Day(date), Symbol: symbol}]
	return v, ok
}

// Volume devuelve el volumen en (date, symbol), si existe.
func (p *Panel) Volume(date time.Time, symbol string) (float64, bool) {
	v, ok := p.volume[Key{Date: Day(date), Symbol: symbol}]
	return v, ok
}

// Dates devuelve el eje de fechas del panel (unión de todas las barras), ascendente.
func (p *Panel) Dates() []time.Time {
	return append([]time.Time(nil), p.dates...)
}

// Symbols devuelve los símbolos presentes en el panel, ordenados.
func (p *Panel) Symbols() []string {
	return append([]string(nil), p.symbols...)
}

// HasSymbol devuelve true si el panel tiene al menos una barra del símbolo.
func (p *Panel) HasSymbol(symbol string) bool {
	i := sort.SearchStrings(p.symbols, symbol)
	return i < len(p.symbols) && p.symbols[i] == symbol
}

// Len devuelve el número de fechas del panel.
func (p *Panel) Len() int {
	return len(p.dates)
}
