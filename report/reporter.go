// Package report serialises a completed benchmark session to the three
// artifact formats spec.md §4.7/§6.3 require: JSON, CSV, and a console
// summary, plus a separate evaluation JSON. SessionMetrics itself stays a
// pure in-memory value (spec.md §9 design note); all serialisation is
// centralised here.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"time"

	"benchkit/metrics"
	"benchkit/threshold"

	"github.com/dustin/go-humanize"
)

// csvHeader is the bit-exact column order spec.md §4.7/§6.3 requires.
// Downstream diffing and reporting tools depend on this order; it must
// never be reordered.
var csvHeader = []string{
	"query_name", "total_requests", "successful_requests", "failed_requests",
	"duration_sec", "throughput_qps", "error_rate",
	"latency_min_ms", "latency_p50_ms", "latency_p95_ms", "latency_p99_ms",
	"latency_max_ms", "latency_mean_ms", "latency_stddev_ms",
}

// kindJSON is the stable, per-kind JSON shape for <name>.json. Field names
// are part of the artifact contract (spec.md §4.7): an external tool can
// rely on them, so they are never renamed.
type kindJSON struct {
	KindID             string  `json:"kind_id"`
	TotalRequests       int64   `json:"total_requests"`
	SuccessfulRequests  int64   `json:"successful_requests"`
	FailedRequests      int64   `json:"failed_requests"`
	ErrorRate           float64 `json:"error_rate"`
	ThroughputQPS       float64 `json:"throughput_qps"`
	LatencyMinMs        float64 `json:"latency_min_ms"`
	LatencyP50Ms        float64 `json:"latency_p50_ms"`
	LatencyP75Ms        float64 `json:"latency_p75_ms"`
	LatencyP90Ms        float64 `json:"latency_p90_ms"`
	LatencyP95Ms        float64 `json:"latency_p95_ms"`
	LatencyP99Ms        float64 `json:"latency_p99_ms"`
	LatencyP999Ms       float64 `json:"latency_p999_ms"`
	LatencyMaxMs        float64 `json:"latency_max_ms"`
	LatencyMeanMs       float64 `json:"latency_mean_ms"`
	LatencyStdDevMs     float64 `json:"latency_stddev_ms"`
}

// sessionJSON is the top-level shape for <name>.json.
type sessionJSON struct {
	SUTURL            string              `json:"sut_url"`
	PatternName       string              `json:"pattern_name"`
	Concurrency       int                 `json:"concurrency"`
	RequestBudget     int                 `json:"request_budget"`
	DBPrefix          string              `json:"db_prefix,omitempty"`
	CacheEnabled      bool                `json:"cache_enabled"`
	SyntheticDataUsed bool                `json:"synthetic_data_used"`
	Interrupted       bool                `json:"interrupted"`
	StartedAt         time.Time           `json:"started_at"`
	EndedAt           time.Time           `json:"ended_at"`
	DurationSec       float64             `json:"duration_sec"`
	Kinds             map[string]kindJSON `json:"kinds"`
}

func nsToMs(ns int64) float64 { return round2(float64(ns) / float64(time.Millisecond)) }

func round2(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return math.Round(f*100) / 100
}

func toKindJSON(m *metrics.KindMetrics) kindJSON {
	d := m.Distribution
	return kindJSON{
		KindID:             m.KindID,
		TotalRequests:      m.IssuedCount,
		SuccessfulRequests: m.OKCount,
		FailedRequests:     m.FailedCount(),
		ErrorRate:          round2(m.ErrorRate() * 100),
		ThroughputQPS:      round2(m.ThroughputQPS()),
		LatencyMinMs:       nsToMs(d.Min()),
		LatencyP50Ms:       nsToMs(d.Percentile(50)),
		LatencyP75Ms:       nsToMs(d.Percentile(75)),
		LatencyP90Ms:       nsToMs(d.Percentile(90)),
		LatencyP95Ms:       nsToMs(d.Percentile(95)),
		LatencyP99Ms:       nsToMs(d.Percentile(99)),
		LatencyP999Ms:      nsToMs(d.Percentile(99.9)),
		LatencyMaxMs:       nsToMs(d.Max()),
		LatencyMeanMs:      round2(d.Mean() / float64(time.Millisecond)),
		LatencyStdDevMs:    round2(d.StdDev() / float64(time.Millisecond)),
	}
}

func toSessionJSON(session *metrics.SessionMetrics) sessionJSON {
	kinds := make(map[string]kindJSON, len(session.Kinds))
	for id, m := range session.Kinds {
		kinds[id] = toKindJSON(m)
	}
	return sessionJSON{
		SUTURL:            session.SUTURL,
		PatternName:       session.PatternName,
		Concurrency:       session.Concurrency,
		RequestBudget:     session.RequestBudget,
		DBPrefix:          session.DBPrefix,
		CacheEnabled:      session.CacheEnabled,
		SyntheticDataUsed: session.SyntheticDataUsed,
		Interrupted:       session.Interrupted,
		StartedAt:         session.StartedAt,
		EndedAt:           session.EndedAt,
		DurationSec:       round2(session.EndedAt.Sub(session.StartedAt).Seconds()),
		Kinds:             kinds,
	}
}

// sortedKindIDs returns a session's kind ids in a stable order so repeated
// reports of the same session produce byte-identical CSV/console output.
func sortedKindIDs(session *metrics.SessionMetrics) []string {
	ids := make([]string, 0, len(session.Kinds))
	for id := range session.Kinds {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// WriteJSON writes <prefix>.json: the full SessionMetrics.
func WriteJSON(prefix string, session *metrics.SessionMetrics) error {
	return writeJSONFile(prefix+".json", toSessionJSON(session))
}

// WriteCSV writes <prefix>.csv: one row per kind, bit-exact column order.
func WriteCSV(prefix string, session *metrics.SessionMetrics) error {
	f, err := os.Create(prefix + ".csv")
	if err != nil {
		return fmt.Errorf("creating CSV artifact: %w", err)
	}
	defer f.Close()
	return writeCSV(f, session)
}

func writeCSV(w io.Writer, session *metrics.SessionMetrics) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	durationSec := session.EndedAt.Sub(session.StartedAt).Seconds()

	for _, id := range sortedKindIDs(session) {
		m := session.Kinds[id]
		d := m.Distribution
		row := []string{
			id,
			fmt.Sprintf("%d", m.IssuedCount),
			fmt.Sprintf("%d", m.OKCount),
			fmt.Sprintf("%d", m.FailedCount()),
			fmt.Sprintf("%.2f", durationSec),
			fmt.Sprintf("%.2f", round2(m.ThroughputQPS())),
			fmt.Sprintf("%.4f", m.ErrorRate()),
			fmt.Sprintf("%.2f", nsToMs(d.Min())),
			fmt.Sprintf("%.2f", nsToMs(d.Percentile(50))),
			fmt.Sprintf("%.2f", nsToMs(d.Percentile(95))),
			fmt.Sprintf("%.2f", nsToMs(d.Percentile(99))),
			fmt.Sprintf("%.2f", nsToMs(d.Max())),
			fmt.Sprintf("%.2f", round2(d.Mean()/float64(time.Millisecond))),
			fmt.Sprintf("%.2f", round2(d.StdDev()/float64(time.Millisecond))),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// evaluationJSON is the stable shape for <prefix>-evaluation.json.
type evaluationJSON struct {
	Verdict threshold.Verdict                    `json:"verdict"`
	Kinds   map[string]*threshold.Evaluation `json:"kinds"`
}

// WriteEvaluation writes <prefix>-evaluation.json.
func WriteEvaluation(prefix string, eval *threshold.SessionEvaluation) error {
	return writeJSONFile(prefix+"-evaluation.json", evaluationJSON{Verdict: eval.Verdict, Kinds: eval.Kinds})
}

func writeJSONFile(path string, v interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating JSON artifact %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteConsole writes a per-kind table followed by the aggregate verdict to
// w, in the console-summary style spec.md §4.7 describes, using
// go-humanize for the human-readable session duration. Throughput and
// byte counts are not printed.
func WriteConsole(w io.Writer, session *metrics.SessionMetrics, eval *threshold.SessionEvaluation) {
	fmt.Fprintf(w, "Session: %s  pattern=%s  concurrency=%d  requests=%d\n",
		session.SUTURL, session.PatternName, session.Concurrency, session.RequestBudget)
	fmt.Fprintf(w, "Duration: %s\n\n", humanize.RelTime(session.StartedAt, session.EndedAt, "", ""))

	fmt.Fprintf(w, "%-20s %10s %10s %8s %10s %10s %10s %10s\n",
		"kind", "requests", "failed", "err%", "p50(ms)", "p95(ms)", "p99(ms)", "verdict")

	for _, id := range sortedKindIDs(session) {
		m := session.Kinds[id]
		ev := eval.Kinds[id]
		verdict := threshold.VerdictFail
		if ev != nil {
			verdict = ev.Verdict
		}
		fmt.Fprintf(w, "%-20s %10d %10d %7.2f%% %10.2f %10.2f %10.2f %10s\n",
			id, m.IssuedCount, m.FailedCount(), m.ErrorRate()*100,
			nsToMs(m.Distribution.Percentile(50)), nsToMs(m.Distribution.Percentile(95)), nsToMs(m.Distribution.Percentile(99)),
			verdict)
	}

	fmt.Fprintf(w, "\nAggregate verdict: %s\n", eval.Verdict)
	if session.Interrupted {
		fmt.Fprintln(w, "Session was interrupted; results are a partial snapshot.")
	}
	if session.SyntheticDataUsed {
		fmt.Fprintln(w, "Note: synthetic_data_used=true (dataset pool exhausted for at least one tag)")
	}
}
