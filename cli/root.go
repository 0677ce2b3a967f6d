// Package cli wires benchkit's three subcommands — run, compare, simulate —
// onto a single cobra root, following the teacher's flags > env > config
// file > defaults precedence via viper. Every long-lived component still
// takes a *common.ContextLogger as an explicit dependency; this package is
// the one place allowed to build a logger from scratch and hand it down.
package cli

import (
	"fmt"
	"os"
	"strings"

	"benchkit/common"
	"benchkit/config"
	"benchkit/version"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// RootCmd is benchkit's entry point. Subcommands register themselves onto
// it from their own files' init().
var RootCmd = &cobra.Command{
	Use:          "benchkit",
	Short:        "a concurrency-aware HTTP benchmarking harness for database-backed services",
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); required for benchkit compare's database matrix")
	RootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (default from LOG_LEVEL env, else info)")
	viper.BindPFlag("log_level", RootCmd.PersistentFlags().Lookup("log-level"))

	RootCmd.AddCommand(runCmd)
	RootCmd.AddCommand(compareCmd)
	RootCmd.AddCommand(simulateCmd)
	RootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print the benchkit build version and module dependency versions",
	RunE: func(cmd *cobra.Command, args []string) error {
		info := version.GetBuildInfo()
		fmt.Printf("benchkit %s (%s)\n", version.GetModuleVersion(), info.GoVersion)
		if len(info.Dependencies) > 0 {
			fmt.Println("dependencies:")
			for _, dep := range info.Dependencies {
				fmt.Printf("  %s %s\n", dep.Path, dep.Version)
			}
		}
		return nil
	},
}

// initConfig loads an optional YAML config file. Unlike the teacher's
// flow-service, benchkit has no implicit config search path: without
// --config, viper only ever sees flags and BENCHKIT_-prefixed environment
// variables.
func initConfig() {
	viper.SetEnvPrefix("BENCHKIT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "benchkit: reading config file %s: %v\n", cfgFile, err)
			os.Exit(64)
		}
	}
}

// newLogger builds the process's structured logger, honouring --log-level /
// BENCHKIT_LOG_LEVEL / LOG_LEVEL in that order, matching spec.md §6.4.
func newLogger(serviceName string) *common.ContextLogger {
	level := viper.GetString("log_level")
	if level == "" {
		level = config.LoadServiceConfig("").LogLevel
	}

	logger := common.NewLogger(common.LoggerConfig{
		Level:      common.LogLevel(level),
		Format:     config.LoadServiceConfig("").LogFormat,
		TimeFormat: common.DefaultLoggerConfig().TimeFormat,
	})
	return common.NewContextLogger(logger, map[string]interface{}{"service": serviceName})
}
