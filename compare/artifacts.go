package compare

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// workloadSummaryJSON and concurrencySummaryJSON group the same Report by
// different axes, matching the two summary artifacts spec.md §6.3 names.
type workloadSummaryJSON struct {
	Pattern  string          `json:"pattern"`
	Sessions []sessionRowJSON `json:"sessions"`
}

type concurrencySummaryJSON struct {
	Concurrency int             `json:"concurrency"`
	Sessions    []sessionRowJSON `json:"sessions"`
}

type sessionRowJSON struct {
	Database    string  `json:"database"`
	Pattern     string  `json:"pattern"`
	Concurrency int     `json:"concurrency"`
	Verdict     string  `json:"verdict"`
	P99Ms       float64 `json:"p99_ms"`
	ThroughputQPS float64 `json:"throughput_qps"`
}

func toSessionRow(r SessionResult) sessionRowJSON {
	return sessionRowJSON{
		Database:      r.Database,
		Pattern:       r.Pattern,
		Concurrency:   r.Concurrency,
		Verdict:       string(r.Evaluation.Verdict),
		P99Ms:         round2(overallP99Ms(r.Metrics)),
		ThroughputQPS: round2(overallThroughput(r.Metrics)),
	}
}

// WriteWorkloadSummary writes workload_summary.json under dir: the run
// matrix grouped by mix pattern.
func WriteWorkloadSummary(dir string, results []SessionResult) error {
	groups := make(map[string][]sessionRowJSON)
	for _, r := range results {
		groups[r.Pattern] = append(groups[r.Pattern], toSessionRow(r))
	}

	var summaries []workloadSummaryJSON
	for _, pattern := range sortedKeys(groups) {
		summaries = append(summaries, workloadSummaryJSON{Pattern: pattern, Sessions: groups[pattern]})
	}
	return writeJSON(filepath.Join(dir, "workload_summary.json"), summaries)
}

// WriteConcurrencySummary writes concurrency_summary.json under dir: the
// run matrix grouped by concurrency level.
func WriteConcurrencySummary(dir string, results []SessionResult) error {
	groups := make(map[int][]sessionRowJSON)
	for _, r := range results {
		groups[r.Concurrency] = append(groups[r.Concurrency], toSessionRow(r))
	}

	var levels []int
	for c := range groups {
		levels = append(levels, c)
	}
	sort.Ints(levels)

	var summaries []concurrencySummaryJSON
	for _, c := range levels {
		summaries = append(summaries, concurrencySummaryJSON{Concurrency: c, Sessions: groups[c]})
	}
	return writeJSON(filepath.Join(dir, "concurrency_summary.json"), summaries)
}

// WriteCrossoverAnalysis writes CROSSOVER_ANALYSIS.md under dir: a
// markdown table per pattern naming the winner, p99, and margin, followed
// by the aggregate win-rate and weighted-score tables (spec.md §4.8).
func WriteCrossoverAnalysis(dir string, report *Report) error {
	var b strings.Builder

	fmt.Fprintln(&b, "# Crossover Analysis")
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "| Pattern | Representative kind | Winner | Winner p99 (ms) | Runner-up | Margin |")
	fmt.Fprintln(&b, "|---|---|---|---|---|---|")
	for _, row := range report.Crossovers {
		fmt.Fprintf(&b, "| %s | %s | %s | %.2f | %s | %.1f%% |\n",
			row.Pattern, row.RepresentativeKindID, row.Winner, row.WinnerP99Ms, row.RunnerUp, row.MarginPct)
	}

	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "## Win rate")
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "| Database | Win rate |")
	fmt.Fprintln(&b, "|---|---|")
	for _, name := range sortedKeys(report.WinRates) {
		fmt.Fprintf(&b, "| %s | %.2f |\n", name, report.WinRates[name])
	}

	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "## Weighted score")
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "| Database | p99 | Throughput | Scalability | Performance | Curation | Operational | Total | Verdict |")
	fmt.Fprintln(&b, "|---|---|---|---|---|---|---|---|---|")
	for _, s := range report.Scores {
		fmt.Fprintf(&b, "| %s | %.1f | %.1f | %.1f | %.1f | %.1f | %.1f | %.1f | %s |\n",
			s.Database, s.P99Component, s.ThroughputComponent, s.ScalabilityComponent,
			s.PerformanceSubtotal, s.CurationSubtotal, s.OperationalSubtotal, s.Total, s.BestVerdict)
	}

	fmt.Fprintln(&b)
	if report.Winner != "" {
		fmt.Fprintf(&b, "**Winner: %s**\n", report.Winner)
	} else {
		fmt.Fprintln(&b, "**No database met at least CONDITIONAL_PASS in any combination; all candidates require mitigation.**")
	}

	return os.WriteFile(filepath.Join(dir, "CROSSOVER_ANALYSIS.md"), []byte(b.String()), 0o644)
}

func writeJSON(path string, v interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating artifact %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
