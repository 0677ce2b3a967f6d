package compare

import (
	"testing"
	"time"

	"benchkit/catalogue"
	"benchkit/metrics"
	"benchkit/threshold"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedSession(t *testing.T, pattern string, concurrency int, modeSLatencyMs float64, verdict threshold.Verdict) SessionResult {
	t.Helper()
	cat := catalogue.NewBuiltin()
	kindIDs := make([]string, 0, len(cat.Kinds()))
	for _, k := range cat.Kinds() {
		kindIDs = append(kindIDs, k.ID)
	}
	// Mailboxes hold 4×concurrency observations; 25 makes room for all 100
	// records below without relying on the folder keeping up.
	collector := metrics.NewCollector(kindIDs, 25, nil)
	start := time.Now()
	for i := 0; i < 100; i++ {
		collector.Record(metrics.Observation{
			KindID:    "mode_s",
			Outcome:   metrics.OutcomeOK,
			StartNS:   start.UnixNano() + int64(i)*int64(time.Millisecond),
			LatencyNS: int64(modeSLatencyMs * float64(time.Millisecond)),
		})
	}
	require.NoError(t, collector.Err())

	session := collector.Snapshot(metrics.SessionMetrics{
		SUTURL:        "http://stub",
		PatternName:   pattern,
		Concurrency:   concurrency,
		RequestBudget: 100,
		StartedAt:     start,
		EndedAt:       start.Add(time.Second),
	})

	eval := &threshold.SessionEvaluation{Verdict: verdict, Kinds: map[string]*threshold.Evaluation{}}
	return SessionResult{Database: "", Pattern: pattern, Concurrency: concurrency, Metrics: session, Evaluation: eval}
}

func TestCrossoverTablePicksLowestP99Winner(t *testing.T) {
	cat := catalogue.NewBuiltin()

	a := fixedSession(t, "lookup-95", 10, 5, threshold.VerdictPass)
	a.Database = "alpha"
	b := fixedSession(t, "lookup-95", 10, 150, threshold.VerdictFail)
	b.Database = "beta"

	table := crossoverTable(cat, []SessionResult{a, b})
	require.Len(t, table, 1)
	assert.Equal(t, "alpha", table[0].Winner)
	assert.Equal(t, "beta", table[0].RunnerUp)
	assert.InDelta(t, (150.0-5.0)/150.0*100, table[0].MarginPct, 0.5)
}

func TestWinRatesCoverEveryDatabase(t *testing.T) {
	crossovers := []PatternCrossover{
		{Pattern: "lookup-95", Winner: "alpha"},
		{Pattern: "balanced-50", Winner: "beta"},
		{Pattern: "analytics-20", Winner: "beta"},
	}
	databases := []Database{{Name: "alpha"}, {Name: "beta"}, {Name: "gamma"}}

	rates := winRates(crossovers, databases)
	assert.InDelta(t, 1.0/3.0, rates["alpha"], 1e-9)
	assert.InDelta(t, 2.0/3.0, rates["beta"], 1e-9)
	assert.Equal(t, 0.0, rates["gamma"])
}

func TestSelectWinnerRequiresAtLeastConditionalPass(t *testing.T) {
	scores := []DatabaseScore{
		{Database: "alpha", Total: 90, RequiresMitigation: true},
		{Database: "beta", Total: 70, RequiresMitigation: false},
	}
	assert.Equal(t, "beta", selectWinner(scores))
}

func TestSelectWinnerEmptyWhenAllRequireMitigation(t *testing.T) {
	scores := []DatabaseScore{
		{Database: "alpha", Total: 90, RequiresMitigation: true},
	}
	assert.Equal(t, "", selectWinner(scores))
}

func TestScalabilityComponentPiecewise(t *testing.T) {
	assert.Equal(t, 15.0, scalabilityComponent(100))
	assert.Equal(t, 15.0, scalabilityComponent(200))
	assert.Equal(t, 12.0, scalabilityComponent(50))
	assert.Equal(t, 9.0, scalabilityComponent(20))
	assert.Equal(t, 6.0, scalabilityComponent(5))
}

func TestApplyTieBreaksPrefersBetterVerdictWithinFivePoints(t *testing.T) {
	scores := []DatabaseScore{
		{Database: "alpha", Total: 82, BestVerdict: threshold.VerdictConditionalPass},
		{Database: "beta", Total: 80, BestVerdict: threshold.VerdictPass},
	}
	applyTieBreaks(scores)
	assert.Equal(t, "beta", scores[0].Database)
}

func TestRepresentativeKindForLookupDominantPatternIsModeS(t *testing.T) {
	cat := catalogue.NewBuiltin()
	pattern, err := catalogue.LookupPattern("lookup-95")
	require.NoError(t, err)

	kind := representativeKind(cat, pattern)
	assert.Equal(t, "mode_s", kind.ID)
}
