// Package compare implements the Comparison Engine: it drives the same
// Workload/Executor/Metrics/Threshold components the single-session runner
// uses, once per (database × mix pattern × concurrency) cell of a run
// matrix, then stitches the resulting sessions into crossover and scoring
// artifacts (spec.md §4.8). Cross-session work is sequential by default
// (spec.md §5): the Engine is in-process orchestration, never a spawner of
// external scripts.
package compare

import (
	"context"
	"fmt"
	"time"

	"benchkit/catalogue"
	"benchkit/common"
	"benchkit/dataset"
	"benchkit/executor"
	"benchkit/metrics"
	"benchkit/threshold"
	"benchkit/workload"
)

// DefaultWarmupRequests is the warm-up session size spec.md §4.8 names.
const DefaultWarmupRequests = 5000

// WarmupPattern is the mix pattern every warm-up session runs, regardless
// of the pattern under measurement (spec.md §4.8).
const WarmupPattern = "lookup-95"

// Database is one target system under test in the run matrix, plus the
// externally supplied curation/operational scalars spec.md §4.8 treats as
// opaque inputs in [0, 10].
type Database struct {
	Name     string
	BaseURL  string
	DBPrefix string

	SelfService        float64
	Visualisation      float64
	ResourceEfficiency float64
	Stability          float64
	ConfigComplexity   float64
	Ecosystem          float64
}

// Config parameterises a full comparison run.
type Config struct {
	Databases     []Database
	Patterns      []string // built-in mix pattern names; ad-hoc patterns are not accepted
	Concurrencies []int
	Requests      int // measured-session request budget, per cell
	Warmup        int // warm-up request budget; DefaultWarmupRequests if zero
	Seed          int64
	Pool          dataset.Pool
	Thresholds    map[catalogue.Category]threshold.Threshold // threshold.Baseline if nil
}

// SessionResult is one run matrix cell: a completed session plus its
// threshold evaluation.
type SessionResult struct {
	Database    string
	Pattern     string
	Concurrency int
	Metrics     *metrics.SessionMetrics
	Evaluation  *threshold.SessionEvaluation
}

// Engine runs a comparison's full matrix and derives crossover and scoring
// artifacts from the results.
type Engine struct {
	cfg Config
	cat *catalogue.Catalogue
	log *common.ContextLogger
}

// New builds an Engine bound to a catalogue and logger.
func New(cfg Config, cat *catalogue.Catalogue, log *common.ContextLogger) *Engine {
	if cfg.Warmup <= 0 {
		cfg.Warmup = DefaultWarmupRequests
	}
	if cfg.Thresholds == nil {
		cfg.Thresholds = threshold.Baseline
	}
	if log == nil {
		log = common.NewContextLogger(nil, nil)
	}
	return &Engine{cfg: cfg, cat: cat, log: log}
}

// Run executes the full run matrix sequentially and returns every measured
// SessionResult. Warm-up sessions are discarded from scoring, matching
// spec.md §4.8.
func (e *Engine) Run(ctx context.Context) ([]SessionResult, error) {
	for _, patternName := range e.cfg.Patterns {
		if _, err := catalogue.LookupPattern(patternName); err != nil {
			return nil, err
		}
	}

	var results []SessionResult

	for _, db := range e.cfg.Databases {
		for _, patternName := range e.cfg.Patterns {
			for _, concurrency := range e.cfg.Concurrencies {
				e.log.WithFields(map[string]interface{}{
					"database": db.Name, "pattern": patternName, "concurrency": concurrency,
				}).Info("comparison engine: running warm-up session")

				if _, err := e.runSession(ctx, db, WarmupPattern, concurrency, e.cfg.Warmup); err != nil {
					return nil, fmt.Errorf("warm-up session for %s/%s/c%d: %w", db.Name, patternName, concurrency, err)
				}

				measured, err := e.runSession(ctx, db, patternName, concurrency, e.cfg.Requests)
				if err != nil {
					return nil, fmt.Errorf("measured session for %s/%s/c%d: %w", db.Name, patternName, concurrency, err)
				}

				eval := threshold.EvaluateSession(e.cat, measured, e.cfg.Thresholds)
				results = append(results, SessionResult{
					Database:    db.Name,
					Pattern:     patternName,
					Concurrency: concurrency,
					Metrics:     measured,
					Evaluation:  eval,
				})
			}
		}
	}

	return results, nil
}

func (e *Engine) runSession(ctx context.Context, db Database, patternName string, concurrency, requests int) (*metrics.SessionMetrics, error) {
	pattern, err := catalogue.LookupPattern(patternName)
	if err != nil {
		return nil, err
	}

	selector := dataset.New(e.cfg.Seed, e.cfg.Pool, e.log)
	gen, err := workload.New(e.cat, pattern, selector, requests, e.cfg.Seed)
	if err != nil {
		return nil, err
	}

	kindIDs := make([]string, 0, len(e.cat.Kinds()))
	for _, k := range e.cat.Kinds() {
		kindIDs = append(kindIDs, k.ID)
	}
	collector := metrics.NewCollector(kindIDs, concurrency, e.log)

	exec := executor.New(executor.Config{
		BaseURL:     db.BaseURL,
		DBPrefix:    db.DBPrefix,
		Concurrency: concurrency,
	}, collector, e.log)

	started := time.Now()
	exec.Run(ctx, gen.Generate())
	ended := time.Now()

	if err := collector.Err(); err != nil {
		return nil, err
	}

	session := collector.Snapshot(metrics.SessionMetrics{
		SUTURL:            db.BaseURL,
		PatternName:       patternName,
		Concurrency:       concurrency,
		RequestBudget:      requests,
		DBPrefix:          db.DBPrefix,
		SyntheticDataUsed: selector.SyntheticDataUsed,
		StartedAt:         started,
		EndedAt:           ended,
	})
	return session, nil
}

// representativeKind picks the single QueryKind that best represents a mix
// pattern for crossover purposes: the kind under the pattern's highest-
// weighted top-level category (analytics further narrowed by its sub-
// weights), ties broken by catalogue declaration order (the first kind
// registered for that category/top-level wins). This mirrors spec.md §8
// Scenario B/E's use of a single named kind (mode_s) as the crossover gate
// for a lookup-dominated pattern, since mode_s is the catalogue's first
// lookup kind.
func representativeKind(cat *catalogue.Catalogue, pattern catalogue.MixPattern) catalogue.QueryKind {
	top := catalogue.TopLevelLookup
	best := pattern.Lookup
	if pattern.Analytics > best {
		top, best = catalogue.TopLevelAnalytics, pattern.Analytics
	}
	if pattern.Write > best {
		top, best = catalogue.TopLevelWrite, pattern.Write
	}

	var candidates []catalogue.QueryKind
	if top == catalogue.TopLevelAnalytics {
		subWeights := cat.CategoryWeights(top)
		bestCat, bestW := catalogue.CategoryTwoHop, -1
		for _, c := range []catalogue.Category{catalogue.CategoryTwoHop, catalogue.CategoryThreeHop, catalogue.CategorySixHop} {
			if w := subWeights[c]; w > bestW {
				bestCat, bestW = c, w
			}
		}
		candidates = cat.KindsForCategory(bestCat)
	} else {
		candidates = cat.KindsForTopLevel(top)
	}

	return candidates[0]
}
