// Package metrics folds Observations produced by the Concurrent Executor
// into per-QueryKind latency distributions and bookkeeping counters,
// without losing high-percentile accuracy (spec.md §4.5).
package metrics

import (
	"benchkit/benchkiterr"

	hdrhistogram "github.com/HdrHistogram/hdrhistogram-go"
)

// histogramMinValue / histogramMaxValue / significantFigures fix the HDR
// histogram's tracked range and precision per spec.md §3/§4.5: 1 microsecond
// to 60 seconds, at least 3 significant digits.
const (
	histogramMinValueNS = int64(1000)               // 1 microsecond
	histogramMaxValueNS = int64(60 * 1000 * 1000000) // 60 seconds
	significantFigures  = 3
)

// LatencyDistribution wraps an HDR histogram over a fixed range. Created per
// QueryKind at session start; append-only until session close.
type LatencyDistribution struct {
	hist *hdrhistogram.Histogram
}

// NewLatencyDistribution builds an empty distribution.
func NewLatencyDistribution() *LatencyDistribution {
	return &LatencyDistribution{
		hist: hdrhistogram.New(histogramMinValueNS, histogramMaxValueNS, significantFigures),
	}
}

// Record records a single OK observation's latency in nanoseconds. An
// out-of-range value is a programming error (InvariantViolation), not a
// per-request failure; the executor passes measured latencies through
// without clamping them.
func (d *LatencyDistribution) Record(latencyNS int64) error {
	if err := d.hist.RecordValue(latencyNS); err != nil {
		return benchkiterr.InvariantViolationf("latency %dns out of histogram range: %v", latencyNS, err)
	}
	return nil
}

// TotalCount returns the number of values recorded.
func (d *LatencyDistribution) TotalCount() int64 {
	if d.hist.TotalCount() == 0 {
		return 0
	}
	return d.hist.TotalCount()
}

// Percentile returns the value at the given percentile (0-100) in
// nanoseconds. Returns 0 when the distribution is empty; callers must check
// TotalCount before treating 0 as meaningful.
func (d *LatencyDistribution) Percentile(p float64) int64 {
	if d.TotalCount() == 0 {
		return 0
	}
	return d.hist.ValueAtPercentile(p)
}

// Min returns the minimum recorded value in nanoseconds.
func (d *LatencyDistribution) Min() int64 {
	if d.TotalCount() == 0 {
		return 0
	}
	return d.hist.Min()
}

// Max returns the maximum recorded value in nanoseconds.
func (d *LatencyDistribution) Max() int64 {
	if d.TotalCount() == 0 {
		return 0
	}
	return d.hist.Max()
}

// Mean returns the mean recorded value in nanoseconds.
func (d *LatencyDistribution) Mean() float64 {
	if d.TotalCount() == 0 {
		return 0
	}
	return d.hist.Mean()
}

// StdDev returns the standard deviation of recorded values in nanoseconds.
func (d *LatencyDistribution) StdDev() float64 {
	if d.TotalCount() == 0 {
		return 0
	}
	return d.hist.StdDev()
}
