package csvfile

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alejandrodnm/eventbt/internal/allocation"
	"github.com/alejandrodnm/eventbt/internal/domain"
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

func TestReadEvents_Aliases(t *testing.T) {
	in := "Ticker,Announced,Trade Date,Index,ADV\n" +
		"AAA,2024-03-01,2024-03-15 00:00:00,SP500,0.25\n" +
		"BBB,2024-03-04,2024-03-18,SP400,\n"

	events, err := ReadEvents(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, domain.Event{
		Symbol: "AAA", Announced: day("2024-03-01"), TradeDate: day("2024-03-15"),
		Category: "SP500", ADVFraction: 0.25,
	}, events[0])
	assert.Equal(t, 0.0, events[1].ADVFraction)
}

func TestReadEvents_MissingColumn(t *testing.T) {
	_, err := ReadEvents(strings.NewReader("symbol,announced\nAAA,2024-03-01\n"))
	assert.ErrorIs(t, err, domain.ErrShape)

	_, err = ReadEvents(strings.NewReader(""))
	assert.ErrorIs(t, err, domain.ErrShape)
}

func TestReadEvents_BadDate(t *testing.T) {
	_, err := ReadEvents(strings.NewReader("symbol,announced,trade_date\nAAA,03/01/2024,2024-03-15\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestReadBars_EmptyCellsAreMissing(t *testing.T) {
	in := "date,symbol,open,close,volume\n" +
		"2024-03-15,AAA,10.5,,1000\n" +
		"2024-03-15,SPY,NaN,500,\n"

	bars, err := ReadBars(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, bars, 2)

	assert.Equal(t, domain.Observed(10.5), bars[0].Open)
	assert.False(t, bars[0].Close.Valid)
	assert.Equal(t, domain.Observed(1000), bars[0].Volume)
	assert.False(t, bars[1].Open.Valid)
	assert.False(t, bars[1].Volume.Valid)
}

func TestReadBars_BadNumber(t *testing.T) {
	_, err := ReadBars(strings.NewReader("date,symbol,close\n2024-03-15,AAA,abc\n"))
	assert.Error(t, err)
}

func TestReadRates_SkipsDots(t *testing.T) {
	in := "date,rate\n2024-03-15,0.0533\n2024-03-16,.\n2024-03-18,0.0531\n"
	points, err := ReadRates(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, day("2024-03-18"), points[1].Date)
}

func TestReadScores(t *testing.T) {
	scores, err := ReadScores(strings.NewReader("mom_score,rev_score\n0.2,0.8\n,1\n"))
	require.NoError(t, err)
	assert.Equal(t, []allocation.Scores{{Momentum: 0.2, Reversion: 0.8}, {Momentum: 0, Reversion: 1}}, scores)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestSource_FiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, EventsFile, "symbol,announced,trade_date,category\n"+
		"BBB,2024-04-01,2024-04-15,SP500\n"+
		"AAA,2024-03-01,2024-03-15,SP400\n")
	writeFile(t, dir, BarsFile, "date,symbol,open,close,volume\n"+
		"2024-02-01,AAA,1,1,1\n"+
		"2024-03-15,AAA,1,1,1\n"+
		"2024-03-15,ZZZ,1,1,1\n")
	writeFile(t, dir, RatesFile, "date,rate\n2024-01-01,0.05\n2024-03-15,0.053\n")

	src := NewSource(dir)
	ctx := context.Background()

	events, err := src.LoadEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "AAA", events[0].Symbol)

	bars, err := src.LoadBars(ctx, []string{"AAA"}, day("2024-03-01"), day("2024-03-31"))
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, day("2024-03-15"), bars[0].Date)

	rates, err := src.LoadRates(ctx, day("2024-03-01"), day("2024-03-31"))
	require.NoError(t, err)
	require.Len(t, rates, 2)
	assert.Equal(t, day("2024-01-01"), rates[0].Date, "último tipo anterior a la ventana")
	assert.Equal(t, day("2024-03-15"), rates[1].Date)
}

func TestSource_LoadRatesCarriesPriorPoint(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, RatesFile, "date,rate\n"+
		"2024-02-01,0.06\n"+
		"2023-12-01,0.04\n"+
		"2024-01-02,0.05\n"+
		"2024-05-01,0.07\n")
	src := NewSource(dir)

	// ningún punto dentro de la ventana: solo el anterior más reciente
	rates, err := src.LoadRates(context.Background(), day("2024-03-01"), day("2024-03-31"))
	require.NoError(t, err)
	assert.Equal(t, []domain.RatePoint{{Date: day("2024-02-01"), Rate: 0.06}}, rates)

	// sin puntos anteriores: solo la ventana
	rates, err = src.LoadRates(context.Background(), day("2023-01-01"), day("2023-12-31"))
	require.NoError(t, err)
	assert.Equal(t, []domain.RatePoint{{Date: day("2023-12-01"), Rate: 0.04}}, rates)
}

func TestSource_MissingFile(t *testing.T) {
	_, err := NewSource(t.TempDir()).LoadEvents(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func parseF(t *testing.T, s string) float64 {
	t.Helper()
	v, err := strconv.ParseFloat(s, 64)
	require.NoError(t, err)
	return v
}

func TestWriteResults(t *testing.T) {
	events := domain.Events{
		{Symbol: "AAA", Announced: day("2024-03-01"), TradeDate: day("2024-03-15"), Category: "SP500"},
		{Symbol: "BBB", Announced: day("2024-03-04"), TradeDate: day("2024-03-18"), Category: "SP400"},
	}
	res := Results{
		Events: events,
		Momentum: []domain.PnL{
			{Event: 0, Status: domain.StatusTraded, Shares: 10, Net: decimal.RequireFromString("99.8")},
			domain.MissingPnL(1, "no entry open"),
		},
		Reversion: []domain.PnL{
			{Event: 0, Status: domain.StatusTraded, Signal: -1, Shares: 100, Net: decimal.NewFromInt(98)},
			{Event: 1, Status: domain.StatusNoTrade, Signal: 1},
		},
		Portfolio: domain.Series{domain.Observed(0.1), domain.Observed(-0.5)},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteResults(&buf, res))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, resultsHeader, rows[0])

	assert.Equal(t, []string{
		"0", "AAA", "2024-03-01", "2024-03-15", "SP500",
		"TRADED", "10", "99.8",
		"TRADED", "-1", "100", "98",
		"", "", "0.1",
	}, rows[1][:15])
	assert.InDelta(t, 0.1, parseF(t, rows[1][15]), 1e-12)
	assert.Equal(t, "MISSING", rows[2][5])
	assert.Equal(t, "", rows[2][7])
	assert.Equal(t, "NO_TRADE", rows[2][8])
	assert.Equal(t, "0", rows[2][11])
	assert.InDelta(t, -0.45, parseF(t, rows[2][15]), 1e-12)
}

func TestWriteResults_LengthMismatch(t *testing.T) {
	err := WriteResults(&bytes.Buffer{}, Results{Events: domain.Events{{Symbol: "AAA"}}})
	assert.ErrorIs(t, err, domain.ErrShape)
}
