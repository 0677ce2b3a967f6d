// Package common provides centralized logging infrastructure for the benchkit harness.
// This package implements intelligent log output routing that automatically directs
// error messages to stderr while sending other log levels to stdout, enabling
// proper stream separation for scripted and CI environments.
//
// The logging system is built on logrus for structured logging capabilities with
// custom output handling that supports both interactive runs and CI pipelines.
// Every long-lived component of the harness (executor, comparison engine, CLI)
// takes a *ContextLogger as an explicit constructor argument rather than reaching
// for a package-global logger; the global Logger below exists only as the seed
// logrus instance the CLI entrypoint wraps.
package common

import (
	"bytes"
	"os"

	"github.com/sirupsen/logrus"
)

// OutputSplitter routes log output to stdout or stderr depending on level.
// Records containing the text formatter's "level=error" go to stderr so
// shell pipelines and CI log collectors can treat them with higher
// priority; everything else, including JSON-formatted records of any
// level, goes to stdout.
type OutputSplitter struct{}

// Write implements io.Writer. It is safe for concurrent use: it only reads p
// and writes to the OS streams, which are themselves safe for concurrent use.
func (splitter *OutputSplitter) Write(p []byte) (n int, err error) {
	if bytes.Contains(p, []byte("level=error")) {
		return os.Stderr.Write(p)
	}
	return os.Stdout.Write(p)
}

// Logger is the seed logrus instance wrapped by NewContextLogger when the CLI
// entrypoint has not been given an explicit one. Library code should not log
// through this directly; it should accept a *ContextLogger instead.
var Logger = logrus.New()

func init() {
	Logger.SetOutput(&OutputSplitter{})
}
