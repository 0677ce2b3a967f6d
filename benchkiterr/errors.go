// Package benchkiterr defines the error taxonomy shared across benchkit
// components, keyed by kind rather than by Go type name so the CLI can map
// any error to the right exit code with a single type switch.
package benchkiterr

import (
	"errors"
	"fmt"
)

// Kind identifies which branch of the taxonomy an error belongs to.
type Kind string

const (
	// KindUsage covers bad CLI arguments, bad pattern names, bad weights.
	KindUsage Kind = "usage_error"
	// KindPreflight covers a failing SUT health check.
	KindPreflight Kind = "preflight_error"
	// KindTransport covers a per-request network failure (DNS/connect/TLS).
	KindTransport Kind = "transport_error"
	// KindHTTPStatus covers a per-request non-2xx response.
	KindHTTPStatus Kind = "http_status_error"
	// KindTimeout covers a per-request deadline exceeded.
	KindTimeout Kind = "timeout_error"
	// KindInterrupted covers an external cancellation (SIGINT).
	KindInterrupted Kind = "interrupted"
	// KindInvariantViolation covers a programming error: mailbox overflow,
	// a histogram value out of range, a counter underflow. Fatal.
	KindInvariantViolation Kind = "invariant_violation"
	// KindInputDataMissing covers an absent optional dataset file.
	KindInputDataMissing Kind = "input_data_missing"
)

// Error is the common error value for the benchkit taxonomy. Per-request
// errors (Transport, HTTPStatus, Timeout) are never propagated as Go errors
// beyond the executor — they are folded into an Observation's outcome
// instead. This type exists for the session-scoped kinds that do propagate:
// Usage, Preflight, Interrupted, InvariantViolation, InputDataMissing.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a benchkiterr.Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds a benchkiterr.Error of the given kind around a cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Usagef builds a KindUsage error.
func Usagef(format string, args ...interface{}) *Error {
	return New(KindUsage, fmt.Sprintf(format, args...))
}

// Preflightf builds a KindPreflight error.
func Preflightf(format string, args ...interface{}) *Error {
	return New(KindPreflight, fmt.Sprintf(format, args...))
}

// InvariantViolationf builds a KindInvariantViolation error.
func InvariantViolationf(format string, args ...interface{}) *Error {
	return New(KindInvariantViolation, fmt.Sprintf(format, args...))
}

// ExitCode maps a session-scoped error kind to the CLI exit code from
// spec.md §6.2. Per-request kinds (Transport/HTTPStatus/Timeout) never
// reach the CLI directly and have no meaningful exit code of their own;
// they return 1 defensively rather than panic.
func ExitCode(err error) int {
	var be *Error
	if !errors.As(err, &be) {
		return 1
	}

	switch be.Kind {
	case KindUsage, KindPreflight:
		return 64
	case KindInterrupted:
		return 3
	case KindInvariantViolation:
		return 70
	default:
		return 1
	}
}
