package metrics

import (
	"sync"
	"time"

	"benchkit/benchkiterr"
	"benchkit/common"
)

// KindMetrics is a LatencyDistribution plus bookkeeping counters for a
// single QueryKind. Same lifecycle as its LatencyDistribution: created at
// session start, append-only, frozen at snapshot.
type KindMetrics struct {
	KindID string

	Distribution *LatencyDistribution

	IssuedCount  int64
	OKCount      int64
	FailedCounts map[Outcome]int64

	FirstObservationNS int64
	LastObservationNS  int64
}

func newKindMetrics(kindID string) *KindMetrics {
	return &KindMetrics{
		KindID:       kindID,
		Distribution: NewLatencyDistribution(),
		FailedCounts: make(map[Outcome]int64),
	}
}

// FailedCount returns the total number of non-OK observations.
func (k *KindMetrics) FailedCount() int64 {
	var total int64
	for _, c := range k.FailedCounts {
		total += c
	}
	return total
}

// ErrorRate returns failed / issued, or 0 when nothing has been issued.
func (k *KindMetrics) ErrorRate() float64 {
	if k.IssuedCount == 0 {
		return 0
	}
	return float64(k.FailedCount()) / float64(k.IssuedCount)
}

// ThroughputQPS computes ok_count / (last_ns - first_ns) as specified in
// spec.md §4.5. Returns 0 when no OK observation was recorded or the
// observed span (which covers failed observations too) is empty.
func (k *KindMetrics) ThroughputQPS() float64 {
	if k.OKCount == 0 || k.LastObservationNS <= k.FirstObservationNS {
		return 0
	}
	elapsedSec := float64(k.LastObservationNS-k.FirstObservationNS) / 1e9
	if elapsedSec <= 0 {
		return 0
	}
	return float64(k.OKCount) / elapsedSec
}

// SessionMetrics is the frozen, in-memory result of one benchmark run:
// per-kind KindMetrics plus session metadata.
type SessionMetrics struct {
	SUTURL            string
	PatternName       string
	Concurrency       int
	RequestBudget     int
	DBPrefix          string
	CacheEnabled      bool
	SyntheticDataUsed bool
	Interrupted       bool

	StartedAt time.Time
	EndedAt   time.Time

	Kinds map[string]*KindMetrics
}

// mailboxCapacityFactor is the minimum mailbox capacity multiple of the
// concurrency level N required by spec.md §5 (capacity ≥ 4×N).
const mailboxCapacityFactor = 4

type kindFolder struct {
	mailbox chan Observation
	metrics *KindMetrics
}

// Collector folds Observations into per-KindMetrics under a single-writer-
// per-kind discipline: a dedicated goroutine per kind drains that kind's
// mailbox, so no histogram update or counter increment is ever contended
// (spec.md §4.5, §5). Overflowing a mailbox is a fatal InvariantViolation,
// never a silent drop.
type Collector struct {
	mu      sync.Mutex
	folders map[string]*kindFolder
	wg      sync.WaitGroup
	log     *common.ContextLogger

	overflowOnce sync.Once
	overflowErr  error
}

// NewCollector builds a Collector with one mailbox per kind, sized to
// mailboxCapacityFactor × concurrency.
func NewCollector(kindIDs []string, concurrency int, log *common.ContextLogger) *Collector {
	if log == nil {
		log = common.NewContextLogger(nil, nil)
	}
	c := &Collector{
		folders: make(map[string]*kindFolder, len(kindIDs)),
		log:     log,
	}

	capacity := mailboxCapacityFactor * concurrency
	if capacity < mailboxCapacityFactor {
		capacity = mailboxCapacityFactor
	}

	for _, id := range kindIDs {
		f := &kindFolder{
			mailbox: make(chan Observation, capacity),
			metrics: newKindMetrics(id),
		}
		c.folders[id] = f
		c.wg.Add(1)
		go c.fold(f)
	}

	return c
}

func (c *Collector) fold(f *kindFolder) {
	defer c.wg.Done()
	for obs := range f.mailbox {
		m := f.metrics
		m.IssuedCount++
		if obs.StartNS != 0 {
			if m.FirstObservationNS == 0 || obs.StartNS < m.FirstObservationNS {
				m.FirstObservationNS = obs.StartNS
			}
			end := obs.StartNS + obs.LatencyNS
			if end > m.LastObservationNS {
				m.LastObservationNS = end
			}
		}

		if obs.IsOK() {
			m.OKCount++
			if err := m.Distribution.Record(obs.LatencyNS); err != nil {
				c.reportOverflow(err)
			}
		} else {
			m.FailedCounts[obs.Outcome]++
		}
	}
}

// Record submits an Observation for folding. Non-blocking: if the target
// kind's mailbox is full, that is a fatal invariant violation surfaced via
// Err() rather than applying backpressure to the executor (spec.md §5).
func (c *Collector) Record(obs Observation) {
	c.mu.Lock()
	f, ok := c.folders[obs.KindID]
	c.mu.Unlock()
	if !ok {
		c.reportOverflow(benchkiterr.InvariantViolationf("observation for unknown kind %q", obs.KindID))
		return
	}

	select {
	case f.mailbox <- obs:
	default:
		c.reportOverflow(benchkiterr.InvariantViolationf("metrics mailbox overflow for kind %q", obs.KindID))
	}
}

func (c *Collector) reportOverflow(err error) {
	c.overflowOnce.Do(func() {
		c.overflowErr = err
		c.log.WithError(err).Error("metrics collector invariant violation")
	})
}

// Err returns the first invariant violation encountered, if any. Callers
// (the runner and the Comparison Engine) check this after the session to decide whether to
// abort with exit code 70 rather than report a sound result.
func (c *Collector) Err() error { return c.overflowErr }

// Snapshot closes every mailbox, waits for folding to finish, and returns an
// immutable SessionMetrics. The Collector must not be used afterwards.
func (c *Collector) Snapshot(meta SessionMetrics) *SessionMetrics {
	for _, f := range c.folders {
		close(f.mailbox)
	}
	c.wg.Wait()

	kinds := make(map[string]*KindMetrics, len(c.folders))
	for id, f := range c.folders {
		kinds[id] = f.metrics
	}
	meta.Kinds = kinds
	return &meta
}
