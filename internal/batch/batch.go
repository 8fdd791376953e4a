// Package batch runs independent PDR verification jobs concurrently. Each
// job gets its own term.Manager, SMT solver, and pdr.Engine, so the only
// shared state between goroutines is the immutable job list itself — no PDR
// machinery is ever touched by more than one goroutine at a time.
//
// It is a fixed-size goroutine pool reading off a task channel, with a
// sync.WaitGroup marking completion. Dynamic scaling, work-stealing, rate
// limiting, and deadlock detection are deliberately not part of this: see
// DESIGN.md for why none of them has a job to do in a batch of independent,
// short-lived, known-size verification runs.
package batch

import (
	"context"
	"runtime"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/ic3lab/pdrcheck/pkg/pdr"
)

// Job is one unit of batch work: a name for reporting and a closure that
// runs a fully independent verification.
type Job struct {
	Name string
	Run  func(ctx context.Context) (pdr.Result, *pdr.Trace, error)
}

// JobResult is one Job's outcome.
type JobResult struct {
	Name   string
	Result pdr.Result
	Trace  *pdr.Trace
	Err    error
}

// Pool runs a batch of Jobs with a bounded number of concurrent workers.
type Pool struct {
	size int
}

// NewPool creates a Pool with the given worker count. A non-positive size
// defaults to runtime.NumCPU().
func NewPool(size int) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	return &Pool{size: size}
}

// Run executes every job, returning one JobResult per job in the same order
// jobs were given, plus a combined error (via hashicorp/go-multierror)
// aggregating every job's failure so one bad job never hides another's
// diagnostics.
func (p *Pool) Run(ctx context.Context, jobs []Job) ([]JobResult, error) {
	results := make([]JobResult, len(jobs))
	indices := make(chan int)

	var wg sync.WaitGroup
	workers := p.size
	if workers > len(jobs) {
		workers = len(jobs)
	}
	if workers < 1 {
		workers = 1
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				res, trace, err := jobs[i].Run(ctx)
				results[i] = JobResult{Name: jobs[i].Name, Result: res, Trace: trace, Err: err}
			}
		}()
	}

	go func() {
		defer close(indices)
		for i := range jobs {
			select {
			case indices <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()

	var combined *multierror.Error
	for _, r := range results {
		if r.Err != nil {
			combined = multierror.Append(combined, r.Err)
		}
	}
	if combined == nil {
		return results, nil
	}
	return results, combined.ErrorOrNil()
}
