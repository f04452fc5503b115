package pipeline

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/alejandrodnm/eventbt/internal/adapters/storage"
	"github.com/alejandrodnm/eventbt/internal/allocation"
	"github.com/alejandrodnm/eventbt/internal/analytics"
	"github.com/alejandrodnm/eventbt/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := domain.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func bar(date, symbol string, open, close float64) domain.Bar {
	return domain.Bar{
		Date:   day(date),
		Symbol: symbol,
		Open:   domain.Observed(open),
		Close:  domain.Observed(close),
		Volume: domain.Observed(1e6),
	}
}

// fixture: AAA se negocia con datos completos; BBB no tiene barras.
//
//	momentum AAA: entrada 03-05 open 100, salida 03-08 close 110, 10 acciones → 99.8
//	reversion AAA: 03-08 open 108 close 110 (+1.85%) vs SPY +1% → corto 9 acciones → −18.18
func fixture() Inputs {
	return Inputs{
		Events: domain.Events{
			{Symbol: "AAA", Announced: day("2024-03-04"), TradeDate: day("2024-03-08"), Category: "SP500"},
			{Symbol: "BBB", Announced: day("2024-03-05"), TradeDate: day("2024-03-08"), Category: "SP400"},
		},
		Bars: []domain.Bar{
			bar("2024-03-04", "AAA", 99, 100),
			bar("2024-03-05", "AAA", 100, 101),
			bar("2024-03-06", "AAA", 101, 104),
			bar("2024-03-07", "AAA", 104, 107),
			bar("2024-03-08", "AAA", 108, 110),
			bar("2024-03-08", "SPY", 500, 505),
		},
		Rates: []domain.RatePoint{{Date: day("2024-03-01"), Rate: 0}},
	}
}

func testConfig() Config {
	p := domain.DefaultParams()
	p.GrossPortfolioValue = decimal.NewFromInt(2000)
	p.LongFinancingSpread = 0
	p.ShortFinancingSpread = 0
	p.VolumeWindow = 1
	return Config{
		Params:            p,
		Benchmark:         "SPY",
		Workers:           2,
		Allocator:         allocation.DefaultAllocator(),
		OverlayMultiplier: 0.01,
	}
}

func TestExecute_FixedCombination(t *testing.T) {
	res, err := Execute(context.Background(), fixture(), testConfig())
	require.NoError(t, err)

	_, err = uuid.Parse(res.RunID)
	require.NoError(t, err)
	assert.Equal(t, res.RunID, res.Report.RunID)

	require.Len(t, res.Momentum, 2)
	assert.Equal(t, domain.StatusTraded, res.Momentum[0].Status)
	assert.True(t, decimal.RequireFromString("99.8").Equal(res.Momentum[0].Net), res.Momentum[0].Net.String())
	assert.True(t, res.Momentum[1].IsMissing())

	assert.Equal(t, -1, res.Reversion[0].Signal)
	assert.Equal(t, int64(9), res.Reversion[0].Shares)
	assert.True(t, decimal.RequireFromString("-18.18").Equal(res.Reversion[0].Net), res.Reversion[0].Net.String())
	assert.True(t, res.Reversion[1].IsMissing())

	// faltante → 0 en la combinación
	assert.InDelta(t, 0.0998-0.01818, res.Combined[0].Value, 1e-12)
	assert.Equal(t, domain.Observed(0), res.Combined[1])
	assert.Nil(t, res.Weighted)
	assert.Equal(t, res.Combined, res.Portfolio())

	// faltante → descartado en las métricas de la estrategia
	mom := res.Report.Overall.Rows[0]
	assert.Equal(t, "Momentum", mom.Name)
	assert.Equal(t, 1, mom.Metrics.Observations)
	assert.Equal(t, 1, mom.Metrics.Missing)
	assert.InDelta(t, 0.0998, mom.Metrics.TotalReturn, 1e-12)

	combined := res.Report.Overall.Rows[2]
	assert.Equal(t, SeriesCombined, combined.Name)
	assert.Equal(t, 2, combined.Metrics.Observations)

	// SP400 solo tiene un evento faltante: todo indefinido, sin error
	require.Len(t, res.Report.ByCategory, 2)
	sp400 := res.Report.ByCategory[1]
	assert.Equal(t, "SP400", sp400.Category)
	assert.True(t, math.IsNaN(sp400.Rows[0].Metrics.AnnualizedReturn))
	assert.True(t, math.IsNaN(sp400.Rows[1].Metrics.Sharpe))
}

type fixedPricer float64

func (p fixedPricer) Price(context.Context, time.Time, float64) (float64, error) {
	return float64(p), nil
}

func TestExecute_WithScoresAndOverlay(t *testing.T) {
	in := fixture()
	in.Scores = []allocation.Scores{{Momentum: 1, Reversion: 1}, {Momentum: 3, Reversion: 1}}
	cfg := testConfig()
	cfg.Overlay = fixedPricer(2.2)

	res, err := Execute(context.Background(), in, cfg)
	require.NoError(t, err)

	require.Len(t, res.Weights, 2)
	assert.InDelta(t, 0.0995, res.Weights[0].Momentum, 1e-12)

	want := 0.0995*0.0998 + 0.0995*-0.01818 + 2.2/110*0.01
	assert.InDelta(t, want, res.Weighted[0].Value, 1e-12)
	// BBB no tiene cierre: el overlay no se puede valorar y el evento aporta 0
	assert.Equal(t, 0.0, res.Weighted[1].Value)

	require.Len(t, res.Report.Overall.Rows, 4)
	assert.Equal(t, SeriesWeighted, res.Report.Overall.Rows[3].Name)
	assert.Equal(t, res.Weighted, res.Portfolio())
}

func TestExecute_ScoresLengthMismatch(t *testing.T) {
	in := fixture()
	in.Scores = []allocation.Scores{{Momentum: 1, Reversion: 1}}

	_, err := Execute(context.Background(), in, testConfig())
	assert.ErrorIs(t, err, domain.ErrShape)
}

func TestExecute_ShapeViolations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Inputs, *Config)
		want   error
	}{
		{"no events", func(in *Inputs, _ *Config) { in.Events = nil }, domain.ErrNoEvents},
		{"no bars", func(in *Inputs, _ *Config) { in.Bars = nil }, domain.ErrShape},
		{"no rates", func(in *Inputs, _ *Config) { in.Rates = nil }, domain.ErrNoRates},
		{"unsorted events", func(in *Inputs, _ *Config) {
			in.Events[0], in.Events[1] = in.Events[1], in.Events[0]
		}, domain.ErrShape},
		{"non-positive portfolio", func(_ *Inputs, c *Config) { c.Params.GrossPortfolioValue = decimal.Zero }, domain.ErrShape},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, cfg := fixture(), testConfig()
			tt.mutate(&in, &cfg)
			_, err := Execute(context.Background(), in, cfg)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestExecute_Deterministic(t *testing.T) {
	cfg := testConfig()
	a, err := Execute(context.Background(), fixture(), cfg)
	require.NoError(t, err)
	cfg.Workers = 1
	b, err := Execute(context.Background(), fixture(), cfg)
	require.NoError(t, err)

	assert.Equal(t, a.Momentum, b.Momentum)
	assert.Equal(t, a.Reversion, b.Reversion)
	assert.Equal(t, a.Combined, b.Combined)
	assert.NotEqual(t, a.RunID, b.RunID)
}

// --- Pipeline con puertos en memoria ---

type memData struct {
	in        Inputs
	gotSyms   []string
	from, to  time.Time
	eventsErr error
}

func (m *memData) LoadEvents(context.Context) (domain.Events, error) {
	return m.in.Events, m.eventsErr
}

func (m *memData) LoadBars(_ context.Context, symbols []string, from, to time.Time) ([]domain.Bar, error) {
	m.gotSyms, m.from, m.to = symbols, from, to
	return m.in.Bars, nil
}

func (m *memData) LoadRates(context.Context, time.Time, time.Time) ([]domain.RatePoint, error) {
	return m.in.Rates, nil
}

type recordingNotifier struct {
	reports []analytics.Report
	err     error
}

func (n *recordingNotifier) Notify(_ context.Context, rep analytics.Report) error {
	n.reports = append(n.reports, rep)
	return n.err
}

type memRuns struct{ ids []string }

func (m *memRuns) SaveRun(_ context.Context, rep analytics.Report) error {
	m.ids = append(m.ids, rep.RunID)
	return nil
}

type memScores []allocation.Scores

func (s memScores) LoadScores(context.Context) ([]allocation.Scores, error) { return s, nil }

func TestPipeline_Run(t *testing.T) {
	data := &memData{in: fixture()}
	notifier := &recordingNotifier{err: errors.New("terminal closed")}
	runs := &memRuns{}

	p := New(testConfig(), 10*24*time.Hour, data, nil, notifier, runs)
	res, err := p.Run(context.Background())
	require.NoError(t, err, "notifier errors are not fatal")

	assert.Equal(t, []string{"AAA", "BBB", "SPY"}, data.gotSyms)
	assert.Equal(t, day("2024-02-23"), data.from)
	assert.Equal(t, day("2024-03-09"), data.to)

	require.Len(t, notifier.reports, 1)
	assert.Equal(t, res.RunID, notifier.reports[0].RunID)
	assert.Equal(t, []string{res.RunID}, runs.ids)
}

func TestPipeline_RunWithScores(t *testing.T) {
	data := &memData{in: fixture()}
	scores := memScores{{Momentum: 1, Reversion: 1}, {Momentum: 1, Reversion: 1}}

	res, err := New(testConfig(), 0, data, scores, &recordingNotifier{}, nil).Run(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, res.Weighted)
}

func TestPipeline_LoadError(t *testing.T) {
	data := &memData{eventsErr: errors.New("disk gone")}
	_, err := New(testConfig(), 0, data, nil, &recordingNotifier{}, nil).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk gone")
}

func TestExecute_OverlayWithoutScoresWarns(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	cfg := testConfig()
	cfg.Overlay = fixedPricer(2.2)
	res, err := Execute(context.Background(), fixture(), cfg)
	require.NoError(t, err)

	assert.Nil(t, res.Weighted)
	assert.Contains(t, buf.String(), "overlay configured without scores")
}

// --- Pipeline sobre SQLite ---

func sqliteStore(t *testing.T, in Inputs) *storage.SQLiteStorage {
	t.Helper()
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	require.NoError(t, db.SaveEvents(ctx, in.Events))
	require.NoError(t, db.SaveBars(ctx, in.Bars))
	require.NoError(t, db.SaveRates(ctx, in.Rates))
	return db
}

func TestPipeline_RunForwardFillsRateBeforeWindow(t *testing.T) {
	tests := []struct {
		name  string
		rates []domain.RatePoint
		want  float64 // coste de financiación del momentum de AAA (1000 $ nocional)
	}{
		{
			name:  "rate change inside window",
			rates: []domain.RatePoint{{Date: day("2024-01-01"), Rate: 0.05}, {Date: day("2024-03-07"), Rate: 0.50}},
			// 03-05, 03-06 al 5%; 03-07, 03-08 al 50%
			want: 1000 * (2*0.05 + 2*0.50) / 252,
		},
		{
			name:  "no point inside window",
			rates: []domain.RatePoint{{Date: day("2024-01-01"), Rate: 0.05}, {Date: day("2024-03-11"), Rate: 0.50}},
			want:  1000 * 4 * 0.05 / 252,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := fixture()
			in.Rates = tt.rates

			direct, err := Execute(context.Background(), in, testConfig())
			require.NoError(t, err)

			db := sqliteStore(t, in)
			res, err := New(testConfig(), 10*24*time.Hour, db, nil, &recordingNotifier{}, nil).Run(context.Background())
			require.NoError(t, err)

			fc := res.Momentum[0].FinancingCost
			assert.InDelta(t, tt.want, fc.InexactFloat64(), 1e-9)
			assert.True(t, direct.Momentum[0].FinancingCost.Equal(fc),
				"loaded %s, in memory %s", fc, direct.Momentum[0].FinancingCost)
		})
	}
}

func TestPipeline_RunLoadsReversionHoldHorizon(t *testing.T) {
	// viernes 03-15 con salida diferida 3 días: cierre del lunes 03-18
	in := Inputs{
		Events: domain.Events{
			{Symbol: "AAA", Announced: day("2024-03-13"), TradeDate: day("2024-03-15"), Category: "SP500"},
		},
		Bars: []domain.Bar{
			bar("2024-03-14", "AAA", 100, 101),
			bar("2024-03-15", "AAA", 102, 104),
			bar("2024-03-15", "SPY", 500, 501),
			bar("2024-03-18", "AAA", 103, 103),
		},
		Rates: []domain.RatePoint{{Date: day("2024-03-01"), Rate: 0.05}},
	}
	cfg := testConfig()
	cfg.Params.ReversionHoldDays = 3

	db := sqliteStore(t, in)
	res, err := New(cfg, 10*24*time.Hour, db, nil, &recordingNotifier{}, nil).Run(context.Background())
	require.NoError(t, err)

	rev := res.Reversion[0]
	require.Equal(t, domain.StatusTraded, rev.Status, rev.Reason)
	assert.Equal(t, day("2024-03-18"), rev.ExitDate)
	assert.Equal(t, 103.0, rev.ExitPrice)
	assert.True(t, rev.FinancingCost.IsPositive())
}
