// Package worker provides a generic bounded-concurrency pool. It is the
// Concurrent Executor's scheduling primitive (spec.md §4.4): N workers pull
// from a single channel of work items and each item begins processing as
// soon as a worker is free, giving work-preserving (no gaps while work
// remains) but not time-paced (no RPS throttle) scheduling.
package worker

import (
	"context"
	"sync"
)

// Job is a single unit of work submitted to a Pool. Kept as an opaque
// interface{} the same way the original queue-backed pool treated jobs, so
// Pool stays reusable across job shapes.
type Job = interface{}

// Process handles one Job. Implementations must not panic; Pool does not
// recover, so a panic in a worker goroutine terminates the whole process —
// callers wrap Process with their own recover if domain code might panic.
type Process func(ctx context.Context, job Job)

// Pool runs Concurrency workers pulling from a single jobs channel until it
// is closed and drained, then returns control to Pool.Run's caller.
type Pool struct {
	concurrency int
	process     Process
}

// NewPool builds a Pool with a fixed worker count. concurrency must be ≥ 1.
func NewPool(concurrency int, process Process) *Pool {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Pool{concurrency: concurrency, process: process}
}

// Run starts concurrency workers against jobs and blocks until jobs is
// closed and every in-flight job has been processed, or ctx is cancelled —
// whichever happens first. On cancellation, Run returns once in-flight work
// settles; it does not drain jobs that have not yet been received.
func (p *Pool) Run(ctx context.Context, jobs <-chan Job) {
	var wg sync.WaitGroup
	wg.Add(p.concurrency)

	for i := 0; i < p.concurrency; i++ {
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case job, ok := <-jobs:
					if !ok {
						return
					}
					p.process(ctx, job)
				}
			}
		}()
	}

	wg.Wait()
}
