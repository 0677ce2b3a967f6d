package report

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"benchkit/catalogue"
	"benchkit/metrics"
	"benchkit/threshold"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSession(t *testing.T) *metrics.SessionMetrics {
	t.Helper()
	// Mailboxes hold 4×concurrency observations; 3 makes room for all 11
	// mode_s records below without relying on the folder keeping up.
	collector := metrics.NewCollector([]string{"mode_s", "two_hop"}, 3, nil)
	start := time.Now()
	for i := 0; i < 10; i++ {
		collector.Record(metrics.Observation{
			KindID:    "mode_s",
			Outcome:   metrics.OutcomeOK,
			StartNS:   start.UnixNano() + int64(i)*int64(time.Millisecond),
			LatencyNS: int64(2 * time.Millisecond),
		})
	}
	collector.Record(metrics.Observation{
		KindID:  "mode_s",
		Outcome: metrics.OutcomeHTTPError,
		StartNS: start.UnixNano(),
	})
	for i := 0; i < 5; i++ {
		collector.Record(metrics.Observation{
			KindID:    "two_hop",
			Outcome:   metrics.OutcomeOK,
			StartNS:   start.UnixNano() + int64(i)*int64(time.Millisecond),
			LatencyNS: int64(20 * time.Millisecond),
		})
	}

	require.NoError(t, collector.Err())

	session := collector.Snapshot(metrics.SessionMetrics{
		SUTURL:        "http://localhost:8080",
		PatternName:   "lookup-heavy",
		Concurrency:   2,
		RequestBudget: 16,
		StartedAt:     start,
		EndedAt:       start.Add(time.Second),
	})
	return session
}

func TestWriteCSVProducesExactColumnOrder(t *testing.T) {
	session := sampleSession(t)
	var buf bytes.Buffer
	require.NoError(t, writeCSV(&buf, session))

	reader := csv.NewReader(&buf)
	records, err := reader.ReadAll()
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(records), 1)

	assert.Equal(t, csvHeader, records[0])
}

func TestWriteCSVRowsAreSortedByKindID(t *testing.T) {
	session := sampleSession(t)
	var buf bytes.Buffer
	require.NoError(t, writeCSV(&buf, session))

	reader := csv.NewReader(&buf)
	records, err := reader.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "mode_s", records[1][0])
	assert.Equal(t, "two_hop", records[2][0])
	assert.Equal(t, "11", records[1][1])
	assert.Equal(t, "1", records[1][3])
}

func TestWriteJSONAndEvaluationRoundTrip(t *testing.T) {
	dir := t.TempDir()
	session := sampleSession(t)

	prefix := filepath.Join(dir, "run1")
	require.NoError(t, WriteJSON(prefix, session))
	require.NoError(t, WriteCSV(prefix, session))

	cat := catalogue.NewBuiltin()
	eval := threshold.EvaluateSession(cat, session, threshold.Baseline)
	require.NoError(t, WriteEvaluation(prefix, eval))

	for _, suffix := range []string{".json", ".csv", "-evaluation.json"} {
		_, err := os.Stat(prefix + suffix)
		assert.NoError(t, err, "expected artifact %s to exist", suffix)
	}
}

func TestWriteConsoleIncludesAggregateVerdict(t *testing.T) {
	session := sampleSession(t)
	cat := catalogue.NewBuiltin()
	eval := threshold.EvaluateSession(cat, session, threshold.Baseline)

	var buf bytes.Buffer
	WriteConsole(&buf, session, eval)

	out := buf.String()
	assert.Contains(t, out, "Aggregate verdict:")
	assert.Contains(t, out, "mode_s")
	assert.Contains(t, out, "two_hop")
}

func TestWriteConsoleNotesInterruptedSession(t *testing.T) {
	session := sampleSession(t)
	session.Interrupted = true
	cat := catalogue.NewBuiltin()
	eval := threshold.EvaluateSession(cat, session, threshold.Baseline)

	var buf bytes.Buffer
	WriteConsole(&buf, session, eval)

	assert.Contains(t, buf.String(), "interrupted")
}
