// Package executor drives a workload.RequestPlan sequence against a system
// under test at a bounded concurrency, producing metrics.Observations
// (spec.md §4.4). It is grounded on the teacher's http executor shape — an
// Execute call that builds a request, issues it, and classifies the
// response into a Result — generalized from a single semantic-action
// dispatcher into a benchmarking load driver with the worker.Pool
// scheduling primitive underneath.
package executor

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"time"

	"benchkit/common"
	hclient "benchkit/http"
	"benchkit/metrics"
	"benchkit/worker"
	"benchkit/workload"
)

// Config controls how the Executor drives a session.
type Config struct {
	BaseURL     string
	DBPrefix    string
	Concurrency int
	Timeout     time.Duration // per-request deadline, default 30s (spec.md §4.4)
}

// DefaultTimeout mirrors hclient.DefaultTimeout for the executor's own
// documentation; Config.Timeout falls back to it when zero.
const DefaultTimeout = hclient.DefaultTimeout

// GracePeriod bounds how long an in-flight request is allowed to keep
// running once the session ctx is cancelled (spec.md "allow in-flight
// requests up to a short grace period (≤5s) to settle"). worker.Pool.Run's
// wg.Wait() already waits for in-flight jobs to return on cancellation; this
// is what forces that return to actually happen within the grace window
// instead of at req.Timeout (up to 30s).
const GracePeriod = 5 * time.Second

// Executor issues RequestPlans against a SUT under a bounded concurrency
// and folds the resulting Observations into a metrics.Collector.
type Executor struct {
	cfg       Config
	collector *metrics.Collector
	log       *common.ContextLogger

	issued int64
}

// New builds an Executor bound to a collector that already has one mailbox
// per QueryKind the caller intends to drive.
func New(cfg Config, collector *metrics.Collector, log *common.ContextLogger) *Executor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if log == nil {
		log = common.NewContextLogger(nil, nil)
	}
	return &Executor{cfg: cfg, collector: collector, log: log}
}

// IssuedCount returns the number of RequestPlans processed so far. Safe to
// read from another goroutine only after Run has returned, or as an
// approximate progress indicator (e.g. for SIGINT handling) while running —
// reads are not synchronized against the increment for performance, matching
// spec.md §5 ("work is otherwise CPU-bound and short").
func (e *Executor) IssuedCount() int64 { return e.issued }

// Run drains plans, issuing one HTTP call per plan with concurrency up to
// cfg.Concurrency in flight (spec.md §4.4 scheduling model: work-preserving,
// not time-paced). Run returns when plans is closed and all in-flight
// requests have completed, or when ctx is cancelled — in which case no new
// plan is issued, plans still in the channel are left unread, and Run
// returns once in-flight requests have settled; graceContext aborts any
// that are still running GracePeriod after ctx is done.
func (e *Executor) Run(ctx context.Context, plans <-chan workload.RequestPlan) {
	pool := worker.NewPool(e.cfg.Concurrency, func(ctx context.Context, job worker.Job) {
		plan := job.(workload.RequestPlan)
		e.execute(ctx, plan)
	})

	jobs := make(chan worker.Job)
	go func() {
		defer close(jobs)
		for plan := range plans {
			select {
			case jobs <- plan:
			case <-ctx.Done():
				return
			}
		}
	}()

	pool.Run(ctx, jobs)
}

func (e *Executor) execute(ctx context.Context, plan workload.RequestPlan) {
	req := e.buildRequest(plan)

	reqCtx, cancel := graceContext(ctx)
	defer cancel()

	start := time.Now()
	resp, err := hclient.Execute(reqCtx, req)
	latency := time.Since(start)

	obs := metrics.Observation{
		KindID:    plan.Kind.ID,
		StartNS:   start.UnixNano(),
		LatencyNS: latency.Nanoseconds(),
	}

	switch {
	case err != nil && isTimeout(err):
		obs.Outcome = metrics.OutcomeTimeout
	case err != nil && resp == nil:
		obs.Outcome = metrics.OutcomeTransportError
	case err != nil && resp != nil:
		obs.Outcome = metrics.OutcomeHTTPError
		obs.HTTPStatus = resp.StatusCode
		obs.ResponseSize = int64(len(resp.Body))
	default:
		obs.Outcome = metrics.OutcomeOK
		if resp != nil {
			obs.ResponseSize = int64(len(resp.Body))
		}
	}

	atomic.AddInt64(&e.issued, 1)
	e.collector.Record(obs)
}

func (e *Executor) buildRequest(plan workload.RequestPlan) *hclient.Request {
	path := plan.Kind.Path(e.cfg.DBPrefix, plan.Value)
	req := hclient.NewRequest(plan.Kind.Method, e.cfg.BaseURL+path)
	req.Timeout = e.cfg.Timeout
	if plan.Body != "" {
		req.JSONBody = plan.Body
	}
	return req
}

// graceContext derives a request-scoped context that is unaffected by ctx's
// own cancellation until GracePeriod after ctx is Done, at which point the
// in-flight request is forced to abort. A plain child of ctx would abort the
// request the instant SIGINT fires, giving it no chance to settle; deriving
// from context.Background() and watching ctx separately is what actually
// implements the grace window instead of just req.Timeout.
func graceContext(ctx context.Context) (context.Context, context.CancelFunc) {
	reqCtx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-ctx.Done():
		case <-reqCtx.Done():
			return
		}
		select {
		case <-reqCtx.Done():
		case <-time.After(GracePeriod):
			cancel()
		}
	}()
	return reqCtx, cancel
}

// isTimeout classifies an error as a deadline/timeout failure as opposed to
// a generic transport failure (spec.md §4.4 classification: transport,
// http_status, timeout).
func isTimeout(err error) bool {
	// A grace-period abort (graceContext) surfaces as context.Canceled, not
	// context.DeadlineExceeded — it still represents a request that failed
	// to complete in time, not a transport-level failure. Checked before the
	// net.Error test because the *url.Error wrapping it reports Timeout()
	// false.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
