package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"benchkit/benchkiterr"
	"benchkit/catalogue"
	"benchkit/sut"

	"github.com/spf13/cobra"
)

var (
	simulatePort      int
	simulateProfile   string
	simulateErrorRate float64
	simulateRateLimit float64
	simulateDBPrefix  string
)

// simulateCmd starts the SUT Simulator (SPEC_FULL.md §10). It is internal
// tooling, not a requirement of any invariant in spec.md §3-§9: it exists so
// `benchkit run`/`benchkit compare` can be exercised end to end without a
// real database-backed service.
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "start a stand-in HTTP server implementing the Query Catalogue, for local testing",
	RunE:  runSimulate,
}

func init() {
	simulateCmd.Flags().IntVar(&simulatePort, "port", 8080, "listen port")
	simulateCmd.Flags().StringVar(&simulateProfile, "profile", "typical", "latency profile: fast, typical, slow, or slow-mode_s")
	simulateCmd.Flags().Float64Var(&simulateErrorRate, "error-rate", 0, "fraction of requests (0-1) answered with 500")
	simulateCmd.Flags().Float64Var(&simulateRateLimit, "rate-limit", 0, "requests/sec self-throttle; 0 disables it")
	simulateCmd.Flags().StringVar(&simulateDBPrefix, "db-prefix", "", "path segment the simulator expects requests to carry")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	log := newLogger("benchkit-simulate")

	profile, ok := sut.BuiltinProfiles[simulateProfile]
	if !ok {
		return benchkiterr.Usagef("unknown latency profile %q", simulateProfile)
	}

	cfg := sut.Config{
		Port:      simulatePort,
		Profile:   profile,
		ErrorRate: simulateErrorRate,
		RateLimit: simulateRateLimit,
		DBPrefix:  simulateDBPrefix,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(map[string]interface{}{"port": simulatePort, "profile": simulateProfile}).Info("SUT simulator listening")
	return sut.Run(ctx, cfg, catalogue.NewBuiltin(), log)
}
