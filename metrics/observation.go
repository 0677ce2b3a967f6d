package metrics

// Outcome classifies the result of a single request (spec.md §3).
type Outcome string

const (
	OutcomeOK              Outcome = "OK"
	OutcomeHTTPError       Outcome = "http_error"
	OutcomeTimeout         Outcome = "timeout"
	OutcomeTransportError  Outcome = "transport_error"
)

// Observation is produced per request by the Concurrent Executor, folded
// into KindMetrics, then discarded.
type Observation struct {
	KindID       string
	StartNS      int64 // wall-clock start time, Unix nanoseconds
	LatencyNS    int64 // end - start, never a wall-clock timestamp
	Outcome      Outcome
	HTTPStatus   int // set when Outcome == OutcomeHTTPError
	ResponseSize int64
}

// IsOK reports whether this observation contributes to latency percentiles.
// Failures are counted and included in throughput accounting but excluded
// from the LatencyDistribution (spec.md §4.4).
func (o Observation) IsOK() bool { return o.Outcome == OutcomeOK }
