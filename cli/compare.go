package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"benchkit/benchkiterr"
	"benchkit/catalogue"
	"benchkit/compare"
	"benchkit/config"
	"benchkit/threshold"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var (
	compareDatabases    string
	compareWorkloads    string
	compareConcurrency  string
	compareTestType     string
	compareRequests     int
	compareWarmup       int
	compareSeed         int64
	comparePoolFile     string
	compareOutputDir    string
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "run the Comparison Engine's run matrix across several databases",
	Long: `compare reads its database definitions (name, base URL, db-prefix, and the
externally-supplied curation/operational scalars spec.md §4.8 treats as
opaque inputs) from the --config YAML file. --databases, --workloads and
--concurrency narrow that file's full lists to a subset by name; --test-type
picks which axis of the run matrix varies.`,
	RunE: runCompare,
}

// compareFileConfig is the YAML shape --config is parsed as for this
// command (spec.md §6.2's "ad-hoc spec" extended to a full database matrix,
// SPEC_FULL.md §6.2's config-file equivalent).
type compareFileConfig struct {
	Databases   []compareFileDatabase `yaml:"databases"`
	Patterns    []string              `yaml:"patterns"`
	Concurrency []int                 `yaml:"concurrency"`
	Requests    int                   `yaml:"requests"`
	Warmup      int                   `yaml:"warmup"`
	Seed        int64                 `yaml:"seed"`
	PoolFile    string                `yaml:"pool_file"`
}

type compareFileDatabase struct {
	Name               string  `yaml:"name"`
	BaseURL            string  `yaml:"base_url"`
	DBPrefix           string  `yaml:"db_prefix"`
	SelfService        float64 `yaml:"self_service"`
	Visualisation      float64 `yaml:"visualisation"`
	ResourceEfficiency float64 `yaml:"resource_efficiency"`
	Stability          float64 `yaml:"stability"`
	ConfigComplexity   float64 `yaml:"config_complexity"`
	Ecosystem          float64 `yaml:"ecosystem"`
}

func init() {
	compareCmd.Flags().StringVar(&compareDatabases, "databases", "", "comma-separated subset of config databases by name; empty runs all")
	compareCmd.Flags().StringVar(&compareWorkloads, "workloads", "", "comma-separated subset of config patterns by name; empty runs all")
	compareCmd.Flags().StringVar(&compareConcurrency, "concurrency", "", "comma-separated subset of config concurrency levels; empty runs all")
	compareCmd.Flags().StringVar(&compareTestType, "test-type", "both", "which run-matrix axis varies: workload, concurrency, or both")
	compareCmd.Flags().IntVar(&compareRequests, "requests", 0, "measured-session request budget per cell; overrides config when set")
	compareCmd.Flags().IntVar(&compareWarmup, "warmup", 0, "warm-up request budget per cell; defaults to compare.DefaultWarmupRequests")
	compareCmd.Flags().Int64Var(&compareSeed, "seed", 0, "Dataset Selector / Workload Generator seed; overrides config when set")
	compareCmd.Flags().StringVar(&comparePoolFile, "pool-file", "", "dataset pool YAML file; overrides config when set")
	compareCmd.Flags().StringVar(&compareOutputDir, "output-dir", ".", "directory artifacts (workload_summary.json, concurrency_summary.json, CROSSOVER_ANALYSIS.md) are written to")

	viper.BindPFlag("compare.test_type", compareCmd.Flags().Lookup("test-type"))
}

func runCompare(cmd *cobra.Command, args []string) error {
	if cfgFile == "" {
		return benchkiterr.Usagef("benchkit compare requires --config naming the database matrix")
	}

	fileCfg, err := loadCompareFileConfig(cfgFile)
	if err != nil {
		return err
	}

	log := newLogger("benchkit-compare")

	databases := filterDatabases(fileCfg.Databases, splitCSV(compareDatabases))
	patterns := filterStrings(fileCfg.Patterns, splitCSV(compareWorkloads))
	concurrencies, err := filterConcurrency(fileCfg.Concurrency, splitCSV(compareConcurrency))
	if err != nil {
		return err
	}
	concurrencies, patterns, err = applyTestType(compareTestType, concurrencies, patterns)
	if err != nil {
		return err
	}

	requests := fileCfg.Requests
	if compareRequests > 0 {
		requests = compareRequests
	}
	warmup := fileCfg.Warmup
	if compareWarmup > 0 {
		warmup = compareWarmup
	}
	if warmup == 0 {
		warmup = compare.DefaultWarmupRequests
	}
	seed := fileCfg.Seed
	if compareSeed != 0 {
		seed = compareSeed
	}
	poolFile := fileCfg.PoolFile
	if comparePoolFile != "" {
		poolFile = comparePoolFile
	}

	v := config.NewValidator()
	v.RequirePositiveInt("requests", requests)
	v.RequirePositiveInt("warmup", warmup)
	for _, db := range databases {
		v.RequireURL(fmt.Sprintf("databases[%s].base_url", db.Name), db.BaseURL)
	}
	if err := v.Validate(); err != nil {
		return benchkiterr.Wrap(benchkiterr.KindUsage, "validating compare config", err)
	}

	pool, err := loadPoolOrEmpty(poolFile, log)
	if err != nil {
		return err
	}

	cat := catalogue.NewBuiltin()
	engine := compare.New(compare.Config{
		Databases:     toEngineDatabases(databases),
		Patterns:      patterns,
		Concurrencies: concurrencies,
		Requests:      requests,
		Warmup:        warmup,
		Seed:          seed,
		Pool:          pool,
		Thresholds:    threshold.Baseline,
	}, cat, log)

	log.WithFields(map[string]interface{}{
		"databases": len(databases), "patterns": len(patterns), "concurrencies": len(concurrencies),
	}).Info("comparison engine: run matrix starting")

	results, err := engine.Run(context.Background())
	if err != nil {
		return err
	}

	report := compare.Analyze(cat, results, toEngineDatabases(databases))

	if err := compare.WriteWorkloadSummary(compareOutputDir, results); err != nil {
		return err
	}
	if err := compare.WriteConcurrencySummary(compareOutputDir, results); err != nil {
		return err
	}
	if err := compare.WriteCrossoverAnalysis(compareOutputDir, report); err != nil {
		return err
	}

	if report.Winner != "" {
		fmt.Fprintf(os.Stdout, "Winner: %s\n", report.Winner)
	} else {
		fmt.Fprintln(os.Stdout, "No database met at least CONDITIONAL_PASS in any combination; all candidates require mitigation.")
	}
	return nil
}

func loadCompareFileConfig(path string) (compareFileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return compareFileConfig{}, benchkiterr.Wrap(benchkiterr.KindUsage, fmt.Sprintf("reading compare config %s", path), err)
	}
	var cfg compareFileConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return compareFileConfig{}, benchkiterr.Wrap(benchkiterr.KindUsage, fmt.Sprintf("parsing compare config %s", path), err)
	}
	if len(cfg.Databases) == 0 {
		return compareFileConfig{}, benchkiterr.Usagef("compare config %s names no databases", path)
	}
	return cfg, nil
}

func filterDatabases(all []compareFileDatabase, names []string) []compareFileDatabase {
	if len(names) == 0 {
		return all
	}
	want := toSet(names)
	var out []compareFileDatabase
	for _, db := range all {
		if want[db.Name] {
			out = append(out, db)
		}
	}
	return out
}

func filterStrings(all []string, subset []string) []string {
	if len(subset) == 0 {
		return all
	}
	want := toSet(subset)
	var out []string
	for _, s := range all {
		if want[s] {
			out = append(out, s)
		}
	}
	return out
}

func filterConcurrency(all []int, subset []string) ([]int, error) {
	if len(subset) == 0 {
		return all, nil
	}
	want := make(map[int]bool, len(subset))
	for _, s := range subset {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return nil, benchkiterr.Usagef("invalid --concurrency value %q", s)
		}
		want[n] = true
	}
	var out []int
	for _, c := range all {
		if want[c] {
			out = append(out, c)
		}
	}
	return out, nil
}

// applyTestType narrows the run matrix to the axis --test-type names
// (SPEC_FULL.md §6.2): "workload" fixes concurrency to its lowest level and
// varies patterns; "concurrency" fixes the pattern to the first one and
// varies concurrency; "both" runs the full cross product.
func applyTestType(testType string, concurrencies []int, patterns []string) ([]int, []string, error) {
	switch testType {
	case "both", "":
		return concurrencies, patterns, nil
	case "workload":
		if len(concurrencies) == 0 {
			return concurrencies, patterns, nil
		}
		lowest := concurrencies[0]
		for _, c := range concurrencies[1:] {
			if c < lowest {
				lowest = c
			}
		}
		return []int{lowest}, patterns, nil
	case "concurrency":
		if len(patterns) == 0 {
			return concurrencies, patterns, nil
		}
		return concurrencies, patterns[:1], nil
	default:
		return nil, nil, benchkiterr.Usagef("invalid --test-type %q, must be workload, concurrency, or both", testType)
	}
}

func toEngineDatabases(dbs []compareFileDatabase) []compare.Database {
	out := make([]compare.Database, len(dbs))
	for i, db := range dbs {
		out[i] = compare.Database{
			Name:               db.Name,
			BaseURL:            strings.TrimRight(db.BaseURL, "/"),
			DBPrefix:           db.DBPrefix,
			SelfService:        db.SelfService,
			Visualisation:      db.Visualisation,
			ResourceEfficiency: db.ResourceEfficiency,
			Stability:          db.Stability,
			ConfigComplexity:   db.ConfigComplexity,
			Ecosystem:          db.Ecosystem,
		}
	}
	return out
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func toSet(xs []string) map[string]bool {
	m := make(map[string]bool, len(xs))
	for _, x := range xs {
		m[x] = true
	}
	return m
}
