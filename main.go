// Package main is benchkit's entry point: it executes the root cobra
// command and maps any returned error to the exit code spec.md §6.2 and §7
// define.
package main

import (
	"fmt"
	"os"

	"benchkit/benchkiterr"
	"benchkit/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(benchkiterr.ExitCode(err))
	}
}
