package storage

// sqlite.go: almacén local de datos de mercado y de runs.
//
// Tablas:
//   - `events`: el conjunto de eventos importado. Se reemplaza entero en cada import.
//   - `bars`: una fila por (fecha, símbolo). Open/close/volume son NULL si faltan.
//   - `rates`: tipo de financiación anual (decimal) por fecha publicada.
//   - `runs` + `run_metrics`: resumen de cada run y sus tablas de métricas.
//     Las métricas NaN se guardan como NULL.
//
// Las fechas se guardan como TEXT YYYY-MM-DD y los instantes con nanosegundos
// fijos, para que BETWEEN y ORDER BY ordenen bien como texto.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/alejandrodnm/eventbt/internal/analytics"
	"github.com/alejandrodnm/eventbt/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
    seq          INTEGER PRIMARY KEY,
    symbol       TEXT NOT NULL,
    announced    TEXT NOT NULL,
    trade_date   TEXT NOT NULL,
    category     TEXT NOT NULL DEFAULT '',
    adv_fraction REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS bars (
    date   TEXT NOT NULL,
    symbol TEXT NOT NULL,
    open   REAL,
    close  REAL,
    volume REAL,
    PRIMARY KEY (date, symbol)
);

CREATE TABLE IF NOT EXISTS rates (
    date TEXT PRIMARY KEY,
    rate REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
    run_id     TEXT    PRIMARY KEY,
    created_at TEXT    NOT NULL,
    events     INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS run_metrics (
    run_id       TEXT    NOT NULL,
    scope        TEXT    NOT NULL,
    category     TEXT    NOT NULL DEFAULT '',
    series       TEXT    NOT NULL,
    table_events INTEGER NOT NULL DEFAULT 0,
    observations INTEGER NOT NULL DEFAULT 0,
    missing      INTEGER NOT NULL DEFAULT 0,
    total_return REAL,
    ann_return   REAL,
    volatility   REAL,
    downside_vol REAL,
    sharpe       REAL,
    sortino      REAL,
    max_drawdown REAL,
    calmar       REAL,
    PRIMARY KEY (run_id, scope, category, series)
);

CREATE INDEX IF NOT EXISTS idx_events_announced ON events(announced);
CREATE INDEX IF NOT EXISTS idx_bars_symbol      ON bars(symbol, date);
CREATE INDEX IF NOT EXISTS idx_runs_created     ON runs(created_at DESC);
`

// migraciones de bases creadas con un schema anterior. Fallan si la columna
// ya existe, y se ignoran.
var migrations = []string{
	"ALTER TABLE run_metrics ADD COLUMN table_events INTEGER NOT NULL DEFAULT 0",
	"ALTER TABLE run_metrics ADD COLUMN downside_vol REAL",
}

const (
	retentionRuns = 90 * 24 * time.Hour // runs: 90 días
	stampLayout   = "2006-01-02T15:04:05.000000000Z07:00"
)

// ErrRunNotFound indica que no hay ningún run guardado con ese id.
var ErrRunNotFound = errors.New("run not found")

// RunSummary es una fila del histórico de runs.
type RunSummary struct {
	RunID     string
	CreatedAt time.Time
	Events    int
}

// SQLiteStorage implementa ports.MarketData y ports.MarketDataWriter usando
// SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada.
// Aplica el schema y limpia runs antiguos.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	for _, stmt := range migrations {
		db.Exec(stmt) // ignora "duplicate column"
	}

	s := &SQLiteStorage{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// SaveEvents reemplaza el conjunto de eventos. El orden de entrada se conserva.
func (s *SQLiteStorage) SaveEvents(ctx context.Context, events domain.Events) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveEvents: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM events`); err != nil {
		return fmt.Errorf("storage.SaveEvents: clear: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events (seq, symbol, announced, trade_date, category, adv_fraction)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("storage.SaveEvents: prepare: %w", err)
	}
	defer stmt.Close()

	for i, ev := range events {
		if _, err := stmt.ExecContext(ctx,
			i,
			ev.Symbol,
			ev.Announced.Format(domain.DateLayout),
			ev.TradeDate.Format(domain.DateLayout),
			ev.Category,
			ev.ADVFraction,
		); err != nil {
			return fmt.Errorf("storage.SaveEvents: insert %s: %w", ev.Symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveEvents: commit: %w", err)
	}
	return nil
}

// SaveBars hace upsert de barras por (fecha, símbolo).
func (s *SQLiteStorage) SaveBars(ctx context.Context, bars []domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveBars: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO bars (date, symbol, open, close, volume)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(date, symbol) DO UPDATE SET
			open   = excluded.open,
			close  = excluded.close,
			volume = excluded.volume
	`)
	if err != nil {
		return fmt.Errorf("storage.SaveBars: prepare: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx,
			b.Date.Format(domain.DateLayout),
			b.Symbol,
			nullable(b.Open),
			nullable(b.Close),
			nullable(b.Volume),
		); err != nil {
			return fmt.Errorf("storage.SaveBars: upsert %s %s: %w",
				b.Date.Format(domain.DateLayout), b.Symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveBars: commit: %w", err)
	}
	return nil
}

// SaveRates hace upsert de tipos por fecha.
func (s *SQLiteStorage) SaveRates(ctx context.Context, points []domain.RatePoint) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveRates: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO rates (date, rate) VALUES (?, ?)
		ON CONFLICT(date) DO UPDATE SET rate = excluded.rate
	`)
	if err != nil {
		return fmt.Errorf("storage.SaveRates: prepare: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		if _, err := stmt.ExecContext(ctx, p.Date.Format(domain.DateLayout), p.Rate); err != nil {
			return fmt.Errorf("storage.SaveRates: upsert %s: %w", p.Date.Format(domain.DateLayout), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveRates: commit: %w", err)
	}
	return nil
}

// LoadEvents devuelve los eventos ordenados por fecha de anuncio y, a igual
// fecha, por orden de importación.
func (s *SQLiteStorage) LoadEvents(ctx context.Context) (domain.Events, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, announced, trade_date, category, adv_fraction
		FROM events
		ORDER BY announced, seq
	`)
	if err != nil {
		return nil, fmt.Errorf("storage.LoadEvents: query: %w", err)
	}
	defer rows.Close()

	var events domain.Events
	for rows.Next() {
		var ev domain.Event
		var announced, trade string
		if err := rows.Scan(&ev.Symbol, &announced, &trade, &ev.Category, &ev.ADVFraction); err != nil {
			return nil, fmt.Errorf("storage.LoadEvents: scan row: %w", err)
		}
		if ev.Announced, err = domain.ParseDay(announced); err != nil {
			return nil, fmt.Errorf("storage.LoadEvents: %s announced: %w", ev.Symbol, err)
		}
		if ev.TradeDate, err = domain.ParseDay(trade); err != nil {
			return nil, fmt.Errorf("storage.LoadEvents: %s trade date: %w", ev.Symbol, err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// LoadBars devuelve las barras de los símbolos dados en [from, to].
// Sin símbolos no devuelve nada.
func (s *SQLiteStorage) LoadBars(ctx context.Context, symbols []string, from, to time.Time) ([]domain.Bar, error) {
	if len(symbols) == 0 {
		return nil, nil
	}

	args := make([]any, 0, len(symbols)+2)
	args = append(args, from.Format(domain.DateLayout), to.Format(domain.DateLayout))
	for _, sym := range symbols {
		args = append(args, sym)
	}
	query := `
		SELECT date, symbol, open, close, volume
		FROM bars
		WHERE date BETWEEN ? AND ?
		  AND symbol IN (` + placeholders(len(symbols)) + `)
		ORDER BY date, symbol
	`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage.LoadBars: query: %w", err)
	}
	defer rows.Close()

	var bars []domain.Bar
	for rows.Next() {
		var b domain.Bar
		var date string
		var open, closePx, volume sql.NullFloat64
		if err := rows.Scan(&date, &b.Symbol, &open, &closePx, &volume); err != nil {
			return nil, fmt.Errorf("storage.LoadBars: scan row: %w", err)
		}
		if b.Date, err = domain.ParseDay(date); err != nil {
			return nil, fmt.Errorf("storage.LoadBars: %s: %w", b.Symbol, err)
		}
		b.Open, b.Close, b.Volume = fromNull(open), fromNull(closePx), fromNull(volume)
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// LoadRates devuelve los tipos publicados en [from, to] y el último anterior
// a from, ordenados por fecha.
func (s *SQLiteStorage) LoadRates(ctx context.Context, from, to time.Time) ([]domain.RatePoint, error) {
	start, end := from.Format(domain.DateLayout), to.Format(domain.DateLayout)
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, rate FROM rates
		WHERE date >= COALESCE((SELECT MAX(date) FROM rates WHERE date <= ?), ?)
		  AND date <= ?
		ORDER BY date
	`, start, start, end)
	if err != nil {
		return nil, fmt.Errorf("storage.LoadRates: query: %w", err)
	}
	defer rows.Close()

	var points []domain.RatePoint
	for rows.Next() {
		var p domain.RatePoint
		var date string
		if err := rows.Scan(&date, &p.Rate); err != nil {
			return nil, fmt.Errorf("storage.LoadRates: scan row: %w", err)
		}
		if p.Date, err = domain.ParseDay(date); err != nil {
			return nil, fmt.Errorf("storage.LoadRates: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// SaveRun persiste el resumen del run y todas sus tablas de métricas.
func (s *SQLiteStorage) SaveRun(ctx context.Context, rep analytics.Report) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, created_at, events) VALUES (?, ?, ?)`,
		rep.RunID, time.Now().UTC().Format(stampLayout), rep.Overall.Events,
	); err != nil {
		return fmt.Errorf("storage.SaveRun: insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_metrics
			(run_id, scope, category, series, table_events, observations, missing,
			 total_return, ann_return, volatility, downside_vol, sharpe, sortino,
			 max_drawdown, calmar)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: prepare: %w", err)
	}
	defer stmt.Close()

	tables := append([]analytics.Table{rep.Overall}, rep.ByCategory...)
	for i, t := range tables {
		scope := "category"
		if i == 0 {
			scope = "overall"
		}
		for _, row := range t.Rows {
			m := row.Metrics
			if _, err := stmt.ExecContext(ctx,
				rep.RunID, scope, t.Category, row.Name, t.Events, m.Observations, m.Missing,
				finite(m.TotalReturn), finite(m.AnnualizedReturn), finite(m.Volatility),
				finite(m.DownsideVolatility), finite(m.Sharpe), finite(m.Sortino),
				finite(m.MaxDrawdown), finite(m.Calmar),
			); err != nil {
				return fmt.Errorf("storage.SaveRun: insert %q/%s: %w", t.Category, row.Name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveRun: commit: %w", err)
	}
	return nil
}

// RunHistory devuelve los últimos runs, del más reciente al más antiguo.
func (s *SQLiteStorage) RunHistory(ctx context.Context, limit int) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, created_at, events FROM runs
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.RunHistory: query: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		var created string
		if err := rows.Scan(&r.RunID, &created, &r.Events); err != nil {
			return nil, fmt.Errorf("storage.RunHistory: scan row: %w", err)
		}
		if r.CreatedAt, err = time.Parse(stampLayout, created); err != nil {
			return nil, fmt.Errorf("storage.RunHistory: run %s created_at: %w", r.RunID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LoadRun reconstruye las tablas de métricas de un run guardado. Las curvas
// de capital no se persisten. Los NULL vuelven como NaN.
func (s *SQLiteStorage) LoadRun(ctx context.Context, runID string) (analytics.Report, error) {
	rep := analytics.Report{RunID: runID}
	err := s.db.QueryRowContext(ctx, `SELECT events FROM runs WHERE run_id = ?`, runID).
		Scan(&rep.Overall.Events)
	if errors.Is(err, sql.ErrNoRows) {
		return analytics.Report{}, fmt.Errorf("storage.LoadRun: %s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return analytics.Report{}, fmt.Errorf("storage.LoadRun: query run: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT scope, category, series, table_events, observations, missing,
		       total_return, ann_return, volatility, downside_vol, sharpe, sortino,
		       max_drawdown, calmar
		FROM run_metrics
		WHERE run_id = ?
		ORDER BY rowid
	`, runID)
	if err != nil {
		return analytics.Report{}, fmt.Errorf("storage.LoadRun: query metrics: %w", err)
	}
	defer rows.Close()

	byCategory := make(map[string]int)
	for rows.Next() {
		var scope, category string
		var events int
		var row analytics.Row
		var total, ann, vol, down, sharpe, sortino, mdd, calmar sql.NullFloat64
		if err := rows.Scan(&scope, &category, &row.Name, &events,
			&row.Metrics.Observations, &row.Metrics.Missing,
			&total, &ann, &vol, &down, &sharpe, &sortino, &mdd, &calmar,
		); err != nil {
			return analytics.Report{}, fmt.Errorf("storage.LoadRun: scan row: %w", err)
		}
		m := &row.Metrics
		m.TotalReturn, m.AnnualizedReturn, m.Volatility = orNaN(total), orNaN(ann), orNaN(vol)
		m.DownsideVolatility, m.Sharpe, m.Sortino = orNaN(down), orNaN(sharpe), orNaN(sortino)
		m.MaxDrawdown, m.Calmar = orNaN(mdd), orNaN(calmar)

		if scope == "overall" {
			rep.Overall.Rows = append(rep.Overall.Rows, row)
			continue
		}
		i, ok := byCategory[category]
		if !ok {
			i = len(rep.ByCategory)
			byCategory[category] = i
			rep.ByCategory = append(rep.ByCategory, analytics.Table{Category: category, Events: events})
		}
		rep.ByCategory[i].Rows = append(rep.ByCategory[i].Rows, row)
	}
	return rep, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

// pruneOld elimina runs antiguos para mantener la DB ligera.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-retentionRuns).Format(stampLayout)
	s.db.ExecContext(ctx, `DELETE FROM run_metrics WHERE run_id IN (SELECT run_id FROM runs WHERE created_at < ?)`, cutoff)
	s.db.ExecContext(ctx, `DELETE FROM runs WHERE created_at < ?`, cutoff)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func nullable(o domain.Obs) any {
	if !o.Valid {
		return nil
	}
	return o.Value
}

func fromNull(v sql.NullFloat64) domain.Obs {
	if !v.Valid {
		return domain.Missing
	}
	return domain.Observed(v.Float64)
}

func orNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

// finite convierte NaN e Inf en NULL.
func finite(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
