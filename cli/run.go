package cli

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"benchkit/benchkiterr"
	"benchkit/catalogue"
	"benchkit/common"
	"benchkit/config"
	"benchkit/dataset"
	"benchkit/executor"
	"benchkit/metrics"
	"benchkit/report"
	"benchkit/threshold"
	"benchkit/workload"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	runPattern      string
	runPatternFile  string
	runRequests     int
	runConcurrency  int
	runCacheEnabled bool
	runOutput       string
	runDBPrefix     string
	runSeed         int64
	runPoolFile     string
)

var runCmd = &cobra.Command{
	Use:   "run <sut-url>",
	Short: "drive a single benchmark session against a system under test",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&runPattern, "pattern", "", "built-in mix pattern name (env BENCHKIT_RUN_PATTERN, default lookup-95)")
	runCmd.Flags().StringVar(&runPatternFile, "pattern-file", "", "ad-hoc mix pattern YAML file; overrides --pattern")
	runCmd.Flags().IntVar(&runRequests, "requests", 0, "total request budget for the session (env BENCHKIT_RUN_REQUESTS, default 10000)")
	runCmd.Flags().IntVar(&runConcurrency, "concurrency", 0, "in-flight request bound (env BENCHKIT_RUN_CONCURRENCY, default 10)")
	runCmd.Flags().BoolVar(&runCacheEnabled, "cache", false, "record cache_enabled=true in session metadata")
	runCmd.Flags().StringVar(&runOutput, "output", "", "artifact filename prefix; empty prints only the console summary")
	runCmd.Flags().StringVar(&runDBPrefix, "db-prefix", "", "path segment to prepend to every Catalogue path")
	runCmd.Flags().Int64Var(&runSeed, "seed", 0, "Dataset Selector / Workload Generator seed; 0 derives one from the session id")
	runCmd.Flags().StringVar(&runPoolFile, "pool-file", "", "dataset pool YAML file (mode_s/mmsi/country); falls back to synthetic data when absent")

	viper.SetDefault("run.pattern", "lookup-95")
	viper.SetDefault("run.requests", 10000)
	viper.SetDefault("run.concurrency", 10)
	viper.BindPFlag("run.pattern", runCmd.Flags().Lookup("pattern"))
	viper.BindPFlag("run.requests", runCmd.Flags().Lookup("requests"))
	viper.BindPFlag("run.concurrency", runCmd.Flags().Lookup("concurrency"))
}

func runRun(cmd *cobra.Command, args []string) error {
	baseURL := strings.TrimRight(args[0], "/")
	sessionID := uuid.New().String()
	log := newLogger("benchkit-run").WithField("session_id", sessionID)

	cat := catalogue.NewBuiltin()

	patternName := viper.GetString("run.pattern")
	requests := viper.GetInt("run.requests")
	concurrency := viper.GetInt("run.concurrency")

	v := config.NewValidator()
	v.RequireURL("sut-url", baseURL)
	v.RequirePositiveInt("--requests", requests)
	v.RequirePositiveInt("--concurrency", concurrency)
	if err := v.Validate(); err != nil {
		return benchkiterr.Wrap(benchkiterr.KindUsage, "validating run flags", err)
	}

	if err := executor.Preflight(baseURL); err != nil {
		log.WithError(err).Error("preflight check failed")
		return err
	}

	pattern, err := resolvePattern(patternName, runPatternFile)
	if err != nil {
		return err
	}

	seed := runSeed
	if seed == 0 {
		seed = seedFromUUID(sessionID)
	}

	pool, err := loadPoolOrEmpty(runPoolFile, log)
	if err != nil {
		return err
	}
	selector := dataset.New(seed, pool, log)

	gen, err := workload.New(cat, pattern, selector, requests, seed)
	if err != nil {
		return err
	}

	collector := metrics.NewCollector(kindIDsOf(cat), concurrency, log)
	exec := executor.New(executor.Config{
		BaseURL:     baseURL,
		DBPrefix:    runDBPrefix,
		Concurrency: concurrency,
	}, collector, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(map[string]interface{}{
		"pattern": pattern.Name, "requests": requests, "concurrency": concurrency,
	}).Info("benchmark session starting")

	started := time.Now()
	exec.Run(ctx, gen.Generate())
	ended := time.Now()

	if cerr := collector.Err(); cerr != nil {
		return cerr
	}

	interrupted := ctx.Err() != nil
	session := collector.Snapshot(metrics.SessionMetrics{
		SUTURL:            baseURL,
		PatternName:       pattern.Name,
		Concurrency:       concurrency,
		RequestBudget:     requests,
		DBPrefix:          runDBPrefix,
		CacheEnabled:      runCacheEnabled,
		SyntheticDataUsed: selector.SyntheticDataUsed,
		Interrupted:       interrupted,
		StartedAt:         started,
		EndedAt:           ended,
	})

	eval := threshold.EvaluateSession(cat, session, threshold.Baseline)

	if err := writeArtifacts(runOutput, session, eval); err != nil {
		return err
	}
	report.WriteConsole(os.Stdout, session, eval)

	if interrupted {
		log.Warn("session interrupted; reporting partial results")
		os.Exit(benchkiterr.ExitCode(benchkiterr.New(benchkiterr.KindInterrupted, "session interrupted")))
	}

	os.Exit(verdictExitCode(eval.Verdict))
	return nil
}

// writeArtifacts writes the JSON/CSV/evaluation artifacts under prefix when
// non-empty. A no-op otherwise (spec.md §6.2 "--output <prefix> if set").
func writeArtifacts(prefix string, session *metrics.SessionMetrics, eval *threshold.SessionEvaluation) error {
	if prefix == "" {
		return nil
	}
	if err := report.WriteJSON(prefix, session); err != nil {
		return err
	}
	if err := report.WriteCSV(prefix, session); err != nil {
		return err
	}
	return report.WriteEvaluation(prefix, eval)
}

// verdictExitCode maps a session verdict to its exit code (spec.md §6.2):
// 0 PASS, 1 CONDITIONAL_PASS, 2 FAIL.
func verdictExitCode(v threshold.Verdict) int {
	switch v {
	case threshold.VerdictPass:
		return 0
	case threshold.VerdictConditionalPass:
		return 1
	default:
		return 2
	}
}

func resolvePattern(name, file string) (catalogue.MixPattern, error) {
	if file != "" {
		return catalogue.LoadPatternFile(file)
	}
	return catalogue.LookupPattern(name)
}

func loadPoolOrEmpty(path string, log *common.ContextLogger) (dataset.Pool, error) {
	if path == "" {
		return dataset.Pool{}, nil
	}
	pool, ok, err := dataset.LoadPool(path, log)
	if err != nil {
		return dataset.Pool{}, benchkiterr.Wrap(benchkiterr.KindUsage, "loading dataset pool file", err)
	}
	if !ok {
		return dataset.Pool{}, nil
	}
	return pool, nil
}

func kindIDsOf(cat *catalogue.Catalogue) []string {
	kinds := cat.Kinds()
	ids := make([]string, len(kinds))
	for i, k := range kinds {
		ids[i] = k.ID
	}
	return ids
}

// seedFromUUID derives a deterministic int64 seed from a session id so an
// unspecified --seed is still reproducible if the operator records the
// logged session_id.
func seedFromUUID(id string) int64 {
	u, err := uuid.Parse(id)
	if err != nil {
		return time.Now().UnixNano()
	}
	b := u[:8]
	var seed int64
	for _, v := range b {
		seed = seed<<8 | int64(v)
	}
	if seed < 0 {
		seed = -seed
	}
	if seed == 0 {
		seed = 1
	}
	return seed
}
