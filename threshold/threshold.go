// Package threshold classifies a KindMetrics against its category's
// threshold class, emitting PASS/CONDITIONAL_PASS/FAIL verdicts with
// per-dimension evidence (spec.md §4.6).
package threshold

import (
	"time"

	"benchkit/catalogue"
	"benchkit/metrics"
)

// Threshold holds a category's (p50, p95, p99) triple in milliseconds.
type Threshold struct {
	TargetP50Ms     float64
	AcceptableP95Ms float64
	MaximumP99Ms    float64
}

// Baseline is the configurable default threshold table from spec.md §4.6.
var Baseline = map[catalogue.Category]Threshold{
	catalogue.CategoryIdentifierLookup:  {TargetP50Ms: 10, AcceptableP95Ms: 50, MaximumP99Ms: 100},
	catalogue.CategoryTwoHop:            {TargetP50Ms: 50, AcceptableP95Ms: 150, MaximumP99Ms: 300},
	catalogue.CategoryThreeHop:          {TargetP50Ms: 100, AcceptableP95Ms: 300, MaximumP99Ms: 500},
	catalogue.CategorySixHop:            {TargetP50Ms: 500, AcceptableP95Ms: 1000, MaximumP99Ms: 2000},
	catalogue.CategoryPropertyWrite:     {TargetP50Ms: 50, AcceptableP95Ms: 200, MaximumP99Ms: 500},
	catalogue.CategoryRelationshipWrite: {TargetP50Ms: 100, AcceptableP95Ms: 300, MaximumP99Ms: 500},
}

// Verdict is one of PASS, CONDITIONAL_PASS, FAIL for a kind or a session.
type Verdict string

const (
	VerdictPass            Verdict = "PASS"
	VerdictConditionalPass Verdict = "CONDITIONAL_PASS"
	VerdictFail            Verdict = "FAIL"
)

// severity orders verdicts for the worst-case aggregate rule: FAIL >
// CONDITIONAL_PASS > PASS (spec.md §4.6).
func severity(v Verdict) int {
	switch v {
	case VerdictFail:
		return 2
	case VerdictConditionalPass:
		return 1
	default:
		return 0
	}
}

// maxErrorRate is the 1% error-rate cutoff from spec.md §4.6.
const maxErrorRate = 0.01

// Evaluation is a KindMetrics' derived verdict with supporting evidence.
// Never mutated after construction.
type Evaluation struct {
	KindID    string
	Category  catalogue.Category
	Verdict   Verdict
	Reasons   []string
	P50Ms     float64
	P95Ms     float64
	P99Ms     float64
	ErrorRate float64
	Empty     bool // true when the kind recorded zero OK observations
}

// SessionEvaluation is the per-kind evaluation set plus the aggregate
// session verdict.
type SessionEvaluation struct {
	Kinds    map[string]*Evaluation
	Verdict  Verdict
}

func nsToMs(ns int64) float64 {
	return float64(ns) / float64(time.Millisecond)
}

// Evaluate classifies a single KindMetrics against its category's
// Threshold.
func Evaluate(kind catalogue.QueryKind, m *metrics.KindMetrics, thresholds map[catalogue.Category]Threshold) *Evaluation {
	t, ok := thresholds[kind.Category]
	if !ok {
		t = Baseline[kind.Category]
	}

	eval := &Evaluation{
		KindID:    kind.ID,
		Category:  kind.Category,
		ErrorRate: m.ErrorRate(),
	}

	if m.Distribution.TotalCount() == 0 {
		eval.Empty = true
		if m.ErrorRate() > maxErrorRate || m.IssuedCount > 0 {
			eval.Verdict = VerdictFail
			eval.Reasons = append(eval.Reasons, "error_rate")
		} else {
			eval.Verdict = VerdictFail
			eval.Reasons = append(eval.Reasons, "no_observations")
		}
		return eval
	}

	eval.P50Ms = nsToMs(m.Distribution.Percentile(50))
	eval.P95Ms = nsToMs(m.Distribution.Percentile(95))
	eval.P99Ms = nsToMs(m.Distribution.Percentile(99))

	errorRateOK := eval.ErrorRate <= maxErrorRate

	switch {
	case eval.P99Ms > t.MaximumP99Ms || !errorRateOK:
		eval.Verdict = VerdictFail
		if eval.P99Ms > t.MaximumP99Ms {
			eval.Reasons = append(eval.Reasons, "p99_exceeds_maximum")
		}
		if !errorRateOK {
			eval.Reasons = append(eval.Reasons, "error_rate")
		}
	case eval.P50Ms > t.TargetP50Ms || eval.P95Ms > t.AcceptableP95Ms:
		eval.Verdict = VerdictConditionalPass
		if eval.P50Ms > t.TargetP50Ms {
			eval.Reasons = append(eval.Reasons, "p50_exceeds_target")
		}
		if eval.P95Ms > t.AcceptableP95Ms {
			eval.Reasons = append(eval.Reasons, "p95_exceeds_acceptable")
		}
	default:
		eval.Verdict = VerdictPass
	}

	return eval
}

// EvaluateSession evaluates every kind in a SessionMetrics and derives the
// aggregate session verdict as the worst verdict across kinds.
func EvaluateSession(cat *catalogue.Catalogue, session *metrics.SessionMetrics, thresholds map[catalogue.Category]Threshold) *SessionEvaluation {
	if thresholds == nil {
		thresholds = Baseline
	}

	result := &SessionEvaluation{Kinds: make(map[string]*Evaluation, len(session.Kinds))}

	worst := VerdictPass
	for kindID, m := range session.Kinds {
		kind, ok := cat.Lookup(kindID)
		if !ok {
			continue
		}
		eval := Evaluate(kind, m, thresholds)
		result.Kinds[kindID] = eval
		if severity(eval.Verdict) > severity(worst) {
			worst = eval.Verdict
		}
	}
	result.Verdict = worst
	return result
}
