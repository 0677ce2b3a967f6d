package compare

import (
	"math"
	"sort"
	"time"

	"benchkit/catalogue"
	"benchkit/metrics"
	"benchkit/threshold"
)

func nsToMs(ns int64) float64 { return float64(ns) / float64(time.Millisecond) }

func round2(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return math.Round(f*100) / 100
}

// PatternCrossover is the per-pattern winner/margin row spec.md §4.8 names.
type PatternCrossover struct {
	Pattern              string
	RepresentativeKindID string
	Winner               string
	WinnerP99Ms          float64
	RunnerUp             string
	RunnerUpP99Ms        float64
	MarginPct            float64
}

// DatabaseScore is one database's full weighted score breakdown, out of
// 100 (spec.md §4.8).
type DatabaseScore struct {
	Database string

	P99Component          float64 // out of 30
	ThroughputComponent    float64 // out of 15
	ScalabilityComponent   float64 // out of 15
	PerformanceSubtotal    float64 // out of 60

	CurationSubtotal    float64 // out of 20
	OperationalSubtotal float64 // out of 20

	Total float64 // out of 100

	BestVerdict        threshold.Verdict
	RequiresMitigation bool
}

// Report is the Comparison Engine's full output: every session, the
// crossover table, per-database win rates, and the weighted scores.
type Report struct {
	Sessions   []SessionResult
	Crossovers []PatternCrossover
	WinRates   map[string]float64
	Scores     []DatabaseScore
	Winner     string
}

// Analyze derives crossover and scoring artifacts from a completed run
// matrix (spec.md §4.8).
func Analyze(cat *catalogue.Catalogue, results []SessionResult, databases []Database) *Report {
	crossovers := crossoverTable(cat, results)
	winRates := winRates(crossovers, databases)
	scores := scoreDatabases(results, databases, winRates)

	report := &Report{
		Sessions:   results,
		Crossovers: crossovers,
		WinRates:   winRates,
		Scores:     scores,
	}
	report.Winner = selectWinner(scores)
	return report
}

// crossoverTable implements spec.md §4.8's crossover analysis: for each mix
// pattern, the database with the lowest p99 on the pattern's representative
// kind wins; margin = (second_best_p99 - winner_p99) / second_best_p99.
func crossoverTable(cat *catalogue.Catalogue, results []SessionResult) []PatternCrossover {
	patterns := distinctPatterns(results)

	var table []PatternCrossover
	for _, patternName := range patterns {
		pattern, err := catalogue.LookupPattern(patternName)
		if err != nil {
			continue
		}
		repKind := representativeKind(cat, pattern)

		type entry struct {
			database string
			p99Ms    float64
		}
		var entries []entry
		for _, r := range results {
			if r.Pattern != patternName {
				continue
			}
			m, ok := r.Metrics.Kinds[repKind.ID]
			if !ok || m.Distribution.TotalCount() == 0 {
				continue
			}
			entries = append(entries, entry{database: r.Database, p99Ms: nsToMs(m.Distribution.Percentile(99))})
		}
		if len(entries) == 0 {
			continue
		}

		sort.Slice(entries, func(i, j int) bool { return entries[i].p99Ms < entries[j].p99Ms })

		row := PatternCrossover{
			Pattern:              patternName,
			RepresentativeKindID: repKind.ID,
			Winner:               entries[0].database,
			WinnerP99Ms:          entries[0].p99Ms,
		}
		if len(entries) > 1 {
			row.RunnerUp = entries[1].database
			row.RunnerUpP99Ms = entries[1].p99Ms
			if entries[1].p99Ms > 0 {
				row.MarginPct = (entries[1].p99Ms - entries[0].p99Ms) / entries[1].p99Ms * 100
			}
		}
		table = append(table, row)
	}
	return table
}

// winRates computes each database's aggregate win rate across the
// crossover table, including databases that never won a pattern.
func winRates(crossovers []PatternCrossover, databases []Database) map[string]float64 {
	if len(crossovers) == 0 {
		return map[string]float64{}
	}
	wins := make(map[string]int)
	for _, row := range crossovers {
		wins[row.Winner]++
	}
	rates := make(map[string]float64, len(databases))
	for _, db := range databases {
		rates[db.Name] = float64(wins[db.Name]) / float64(len(crossovers))
	}
	return rates
}

// scalabilityComponent implements the piecewise rule from spec.md §4.8:
// 15 points at concurrency ≥100 that still passes at least CONDITIONAL_PASS,
// 12 at 50-99, 9 at 20-49, 6 below 20.
func scalabilityComponent(highestPassingConcurrency int) float64 {
	switch {
	case highestPassingConcurrency >= 100:
		return 15
	case highestPassingConcurrency >= 50:
		return 12
	case highestPassingConcurrency >= 20:
		return 9
	default:
		return 6
	}
}

func scoreDatabases(results []SessionResult, databases []Database, rates map[string]float64) []DatabaseScore {
	_ = rates // win rate is reported alongside scoring, not folded into it (spec.md §4.8 keeps them separate artifacts)

	minP99ByPattern, maxQPSByPattern := baselinesByPattern(results)

	scores := make([]DatabaseScore, 0, len(databases))
	for _, db := range databases {
		var p99Ratios []float64
		var qpsRatios []float64
		highestPassing := -1
		var bestVerdict threshold.Verdict
		sawAnyPass := false

		for _, r := range results {
			if r.Database != db.Name {
				continue
			}

			if verdictBetterOrEqual(r.Evaluation.Verdict, threshold.VerdictConditionalPass) {
				sawAnyPass = true
				if r.Concurrency > highestPassing {
					highestPassing = r.Concurrency
				}
			}
			if bestVerdict == "" || verdictSeverity(r.Evaluation.Verdict) < verdictSeverity(bestVerdict) {
				bestVerdict = r.Evaluation.Verdict
			}

			minP99 := minP99ByPattern[r.Pattern]
			thisP99 := overallP99Ms(r.Metrics)
			if minP99 > 0 && thisP99 > 0 {
				p99Ratios = append(p99Ratios, minP99/thisP99)
			}

			maxQPS := maxQPSByPattern[r.Pattern]
			thisQPS := overallThroughput(r.Metrics)
			if maxQPS > 0 {
				qpsRatios = append(qpsRatios, thisQPS/maxQPS)
			}
		}

		if bestVerdict == "" {
			bestVerdict = threshold.VerdictFail
		}

		p99Component := 30 * average(p99Ratios)
		throughputComponent := 15 * average(qpsRatios)
		scalability := 0.0
		if sawAnyPass {
			scalability = scalabilityComponent(highestPassing)
		}

		performance := p99Component + throughputComponent + scalability
		curation := db.SelfService + db.Visualisation
		operational := db.ResourceEfficiency + db.Stability + db.ConfigComplexity + db.Ecosystem

		scores = append(scores, DatabaseScore{
			Database:             db.Name,
			P99Component:         round2(p99Component),
			ThroughputComponent:  round2(throughputComponent),
			ScalabilityComponent: round2(scalability),
			PerformanceSubtotal:  round2(performance),
			CurationSubtotal:     round2(curation),
			OperationalSubtotal:  round2(operational),
			Total:                round2(performance + curation + operational),
			BestVerdict:          bestVerdict,
			RequiresMitigation:   !sawAnyPass,
		})
	}

	applyTieBreaks(scores)
	return scores
}

// applyTieBreaks reorders scores so that any pair within 5 points is broken
// by threshold verdict priority, then curation, then operational subtotal
// (spec.md §4.8). It sorts the slice in place, best first.
func applyTieBreaks(scores []DatabaseScore) {
	sort.SliceStable(scores, func(i, j int) bool {
		a, b := scores[i], scores[j]
		if absFloat(a.Total-b.Total) <= 5 {
			if verdictSeverity(a.BestVerdict) != verdictSeverity(b.BestVerdict) {
				return verdictSeverity(a.BestVerdict) < verdictSeverity(b.BestVerdict)
			}
			if a.CurationSubtotal != b.CurationSubtotal {
				return a.CurationSubtotal > b.CurationSubtotal
			}
			if a.OperationalSubtotal != b.OperationalSubtotal {
				return a.OperationalSubtotal > b.OperationalSubtotal
			}
		}
		return a.Total > b.Total
	})
}

// selectWinner picks the highest-scoring database that meets at least
// CONDITIONAL_PASS in some combination; otherwise there is no eligible
// winner and every candidate is flagged RequiresMitigation (spec.md §4.8).
func selectWinner(scores []DatabaseScore) string {
	for _, s := range scores {
		if !s.RequiresMitigation {
			return s.Database
		}
	}
	return ""
}

func distinctPatterns(results []SessionResult) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range results {
		if !seen[r.Pattern] {
			seen[r.Pattern] = true
			out = append(out, r.Pattern)
		}
	}
	sort.Strings(out)
	return out
}

func baselinesByPattern(results []SessionResult) (minP99 map[string]float64, maxQPS map[string]float64) {
	minP99 = make(map[string]float64)
	maxQPS = make(map[string]float64)
	for _, r := range results {
		p99 := overallP99Ms(r.Metrics)
		if p99 > 0 && (minP99[r.Pattern] == 0 || p99 < minP99[r.Pattern]) {
			minP99[r.Pattern] = p99
		}
		qps := overallThroughput(r.Metrics)
		if qps > maxQPS[r.Pattern] {
			maxQPS[r.Pattern] = qps
		}
	}
	return minP99, maxQPS
}

// overallP99Ms averages the p99 of every kind with recorded observations,
// giving a single session-level figure for scoring purposes.
func overallP99Ms(session *metrics.SessionMetrics) float64 {
	var p99s []float64
	for _, m := range session.Kinds {
		if m.Distribution.TotalCount() == 0 {
			continue
		}
		p99s = append(p99s, nsToMs(m.Distribution.Percentile(99)))
	}
	return average(p99s)
}

func overallThroughput(session *metrics.SessionMetrics) float64 {
	var total float64
	for _, m := range session.Kinds {
		total += m.ThroughputQPS()
	}
	return total
}

func average(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func verdictSeverity(v threshold.Verdict) int {
	switch v {
	case threshold.VerdictPass:
		return 0
	case threshold.VerdictConditionalPass:
		return 1
	default:
		return 2
	}
}

func verdictBetterOrEqual(v, floor threshold.Verdict) bool {
	return verdictSeverity(v) <= verdictSeverity(floor)
}
