package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/alejandrodnm/eventbt/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reportEvents(cats ...string) domain.Events {
	d := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	out := make(domain.Events, len(cats))
	for i, c := range cats {
		out[i] = domain.Event{Symbol: "AAA", Announced: d, TradeDate: d.AddDate(0, 0, 7), Category: c}
	}
	return out
}

func TestBuildReport_OverallAndCategories(t *testing.T) {
	events := reportEvents("SP500", "SP400", "SP500", "SP500")
	mom := obs(0.01, -0.02, nil, 0.03)
	rev := obs(0.0, 0.01, 0.02, -0.01)

	rep, err := BuildReport(events, []NamedSeries{
		{Name: "Momentum", Series: mom},
		{Name: "Reversion", Series: rev},
	}, ReportOptions{DaysPerYear: 252})
	require.NoError(t, err)

	require.Len(t, rep.Overall.Rows, 2)
	assert.Equal(t, 4, rep.Overall.Events)
	assert.Equal(t, "Momentum", rep.Overall.Rows[0].Name)
	assertSameMetrics(t, Compute(mom, 252), rep.Overall.Rows[0].Metrics)

	require.Len(t, rep.ByCategory, 2)
	assert.Equal(t, "SP500", rep.ByCategory[0].Category)
	assert.Equal(t, 3, rep.ByCategory[0].Events)
	assert.Equal(t, "SP400", rep.ByCategory[1].Category)

	// mismo cálculo sobre el subconjunto filtrado
	assertSameMetrics(t, Compute(obs(0.01, nil, 0.03), 252), rep.ByCategory[0].Rows[0].Metrics)

	require.Len(t, rep.Curves, 2)
	assert.InDelta(t, 1.01*0.98*1.0*1.03, rep.Curves[0].Final(), 1e-12, "curve counts missing as 0")
}

func TestBuildReport_EmptyCategoryIsUndefined(t *testing.T) {
	events := reportEvents("SP500", "SP500")

	rep, err := BuildReport(events, []NamedSeries{{Name: "Momentum", Series: obs(0.01, 0.02)}},
		ReportOptions{Categories: []string{"SP500", "RUSSELL"}, DaysPerYear: 252})
	require.NoError(t, err)

	require.Len(t, rep.ByCategory, 2)
	empty := rep.ByCategory[1]
	assert.Equal(t, "RUSSELL", empty.Category)
	assert.Equal(t, 0, empty.Events)
	assertAllNaN(t, empty.Rows[0].Metrics)
	assert.False(t, math.IsNaN(rep.ByCategory[0].Rows[0].Metrics.TotalReturn))
}

func TestBuildReport_LengthMismatch(t *testing.T) {
	_, err := BuildReport(reportEvents("A"), []NamedSeries{{Name: "x", Series: obs(0.1, 0.2)}}, ReportOptions{DaysPerYear: 252})
	assert.ErrorIs(t, err, domain.ErrShape)
}

func TestCurve_FinalEmpty(t *testing.T) {
	assert.Equal(t, 1.0, Curve{}.Final())
}
