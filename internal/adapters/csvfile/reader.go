package csvfile

// reader.go: lectura de eventos, barras, tipos y scores desde CSV.
//
// Las columnas se localizan por cabecera (sin distinguir mayúsculas) y
// aceptan alias: "Ticker" para symbol, "Index" para category, etc.
// Una celda vacía es un dato faltante.

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/eventbt/internal/allocation"
	"github.com/alejandrodnm/eventbt/internal/domain"
)

// Nombres de fichero dentro de un directorio de datos.
const (
	EventsFile = "events.csv"
	BarsFile   = "bars.csv"
	RatesFile  = "rates.csv"
	ScoresFile = "scores.csv"
)

var aliases = map[string][]string{
	"symbol":       {"symbol", "ticker"},
	"announced":    {"announced", "announced_date"},
	"trade_date":   {"trade_date", "trade date", "tradedate"},
	"category":     {"category", "index"},
	"adv_fraction": {"adv_fraction", "adv"},
	"date":         {"date"},
	"open":         {"open"},
	"close":        {"close"},
	"volume":       {"volume"},
	"rate":         {"rate", "value"},
	"momentum":     {"momentum", "mom", "mom_score"},
	"reversion":    {"reversion", "rev", "rev_score"},
}

// Source lee los CSV de un directorio. Implementa ports.MarketData.
type Source struct {
	dir string
}

// NewSource devuelve un Source sobre dir.
func NewSource(dir string) *Source {
	return &Source{dir: dir}
}

// LoadEvents lee events.csv y ordena por fecha de anuncio (estable).
func (s *Source) LoadEvents(_ context.Context) (domain.Events, error) {
	f, err := os.Open(filepath.Join(s.dir, EventsFile))
	if err != nil {
		return nil, fmt.Errorf("csvfile.LoadEvents: %w", err)
	}
	defer f.Close()

	events, err := ReadEvents(f)
	if err != nil {
		return nil, fmt.Errorf("csvfile.LoadEvents: %w", err)
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Announced.Before(events[j].Announced)
	})
	return events, nil
}

// Bars lee bars.csv completo.
func (s *Source) Bars(_ context.Context) ([]domain.Bar, error) {
	f, err := os.Open(filepath.Join(s.dir, BarsFile))
	if err != nil {
		return nil, fmt.Errorf("csvfile.Bars: %w", err)
	}
	defer f.Close()

	bars, err := ReadBars(f)
	if err != nil {
		return nil, fmt.Errorf("csvfile.Bars: %w", err)
	}
	return bars, nil
}

// LoadBars lee bars.csv y filtra por símbolo y rango [from, to].
func (s *Source) LoadBars(ctx context.Context, symbols []string, from, to time.Time) ([]domain.Bar, error) {
	all, err := s.Bars(ctx)
	if err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(symbols))
	for _, sym := range symbols {
		want[sym] = true
	}
	from, to = domain.Day(from), domain.Day(to)

	var out []domain.Bar
	for _, b := range all {
		if want[b.Symbol] && !b.Date.Before(from) && !b.Date.After(to) {
			out = append(out, b)
		}
	}
	return out, nil
}

// Rates lee rates.csv completo.
func (s *Source) Rates(_ context.Context) ([]domain.RatePoint, error) {
	f, err := os.Open(filepath.Join(s.dir, RatesFile))
	if err != nil {
		return nil, fmt.Errorf("csvfile.Rates: %w", err)
	}
	defer f.Close()

	points, err := ReadRates(f)
	if err != nil {
		return nil, fmt.Errorf("csvfile.Rates: %w", err)
	}
	return points, nil
}

// LoadRates lee rates.csv y devuelve, ordenados por fecha, los tipos en
// [from, to] y el último anterior a from.
func (s *Source) LoadRates(ctx context.Context, from, to time.Time) ([]domain.RatePoint, error) {
	all, err := s.Rates(ctx)
	if err != nil {
		return nil, err
	}
	from, to = domain.Day(from), domain.Day(to)

	var out []domain.RatePoint
	var prior *domain.RatePoint
	for i, p := range all {
		switch {
		case p.Date.Before(from):
			if prior == nil || p.Date.After(prior.Date) {
				prior = &all[i]
			}
		case !p.Date.After(to):
			out = append(out, p)
		}
	}
	if prior != nil {
		out = append(out, *prior)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// ScoreFile lee las predicciones de un CSV. Implementa ports.ScoreProvider.
type ScoreFile struct {
	Path string
}

// LoadScores lee el fichero completo.
func (s ScoreFile) LoadScores(_ context.Context) ([]allocation.Scores, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("csvfile.LoadScores: %w", err)
	}
	defer f.Close()

	scores, err := ReadScores(f)
	if err != nil {
		return nil, fmt.Errorf("csvfile.LoadScores: %s: %w", s.Path, err)
	}
	return scores, nil
}

// ReadEvents parsea eventos en el orden del fichero.
func ReadEvents(r io.Reader) (domain.Events, error) {
	t, err := readTable(r, "symbol", "announced", "trade_date")
	if err != nil {
		return nil, err
	}
	var events domain.Events
	for t.next() {
		ev := domain.Event{
			Symbol:   t.str("symbol"),
			Category: t.str("category"),
		}
		ev.Announced = t.date("announced")
		ev.TradeDate = t.date("trade_date")
		if v := t.num("adv_fraction"); v.Valid {
			ev.ADVFraction = v.Value
		}
		events = append(events, ev)
	}
	if t.err != nil {
		return nil, t.err
	}
	return events, nil
}

// ReadBars parsea barras diarias. Open, close y volume pueden faltar.
func ReadBars(r io.Reader) ([]domain.Bar, error) {
	t, err := readTable(r, "date", "symbol")
	if err != nil {
		return nil, err
	}
	var bars []domain.Bar
	for t.next() {
		bars = append(bars, domain.Bar{
			Date:   t.date("date"),
			Symbol: t.str("symbol"),
			Open:   t.num("open"),
			Close:  t.num("close"),
			Volume: t.num("volume"),
		})
	}
	if t.err != nil {
		return nil, t.err
	}
	return bars, nil
}

// ReadRates parsea tipos anuales en decimal. Las filas sin valor (vacío o ".")
// se omiten.
func ReadRates(r io.Reader) ([]domain.RatePoint, error) {
	t, err := readTable(r, "date", "rate")
	if err != nil {
		return nil, err
	}
	var points []domain.RatePoint
	for t.next() {
		v := t.num("rate")
		d := t.date("date")
		if !v.Valid {
			continue
		}
		points = append(points, domain.RatePoint{Date: d, Rate: v.Value})
	}
	if t.err != nil {
		return nil, t.err
	}
	return points, nil
}

// ReadScores parsea las predicciones por evento, una fila por evento en el
// orden de events.csv. Un score vacío cuenta como 0.
func ReadScores(r io.Reader) ([]allocation.Scores, error) {
	t, err := readTable(r, "momentum", "reversion")
	if err != nil {
		return nil, err
	}
	var out []allocation.Scores
	for t.next() {
		out = append(out, allocation.Scores{
			Momentum:  t.num("momentum").Or(0),
			Reversion: t.num("reversion").Or(0),
		})
	}
	if t.err != nil {
		return nil, t.err
	}
	return out, nil
}

// --- helpers internos ---

// table recorre las filas de un CSV con columnas resueltas por cabecera.
// El primer error de parseo se guarda en err y detiene el recorrido.
type table struct {
	r    *csv.Reader
	cols map[string]int
	row  []string
	line int
	err  error
}

func readTable(r io.Reader, required ...string) (*table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty file: %w", domain.ErrShape)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	cols := make(map[string]int)
	for name, alts := range aliases {
		for _, a := range alts {
			if i, ok := index[a]; ok {
				cols[name] = i
				break
			}
		}
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing column %q: %w", name, domain.ErrShape)
		}
	}
	return &table{r: cr, cols: cols, line: 1}, nil
}

func (t *table) next() bool {
	if t.err != nil {
		return false
	}
	row, err := t.r.Read()
	if errors.Is(err, io.EOF) {
		return false
	}
	t.line++
	if err != nil {
		t.err = fmt.Errorf("line %d: %w", t.line, err)
		return false
	}
	t.row = row
	return true
}

func (t *table) str(col string) string {
	i, ok := t.cols[col]
	if !ok || i >= len(t.row) {
		return ""
	}
	return strings.TrimSpace(t.row[i])
}

func (t *table) date(col string) time.Time {
	s := t.str(col)
	if t.err != nil {
		return time.Time{}
	}
	// acepta también marcas de tiempo completas ("2024-03-15 00:00:00")
	if len(s) > len(domain.DateLayout) {
		s = s[:len(domain.DateLayout)]
	}
	d, err := domain.ParseDay(s)
	if err != nil {
		t.err = fmt.Errorf("line %d: %s: %w", t.line, col, err)
	}
	return d
}

func (t *table) num(col string) domain.Obs {
	s := t.str(col)
	if s == "" || s == "." || strings.EqualFold(s, "nan") {
		return domain.Missing
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		if t.err == nil {
			t.err = fmt.Errorf("line %d: %s %q: %w", t.line, col, s, err)
		}
		return domain.Missing
	}
	return domain.Observed(v)
}
