// Package worker provides the bounded fan-out and per-host pacing used by the
// analysis branches, the external lookups and batch mode.
package worker

import (
	"context"
	"fmt"
	"sync"
)

// Job represents a unit of work to be executed
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job execution
type Result interface {
	GetError() error
}

// PanicResult is reported in place of a job's result when the job panics
type PanicResult struct {
	Err error
}

// GetError returns the recovered panic as an error
func (r *PanicResult) GetError() error {
	return r.Err
}

// Pool runs jobs on a fixed number of goroutines. A Pool is used for one Run.
type Pool struct {
	workers int
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewPool creates a pool with the specified number of workers (at least one).
// Jobs receive a context derived from parent; cancelling parent stops the pool.
func NewPool(parent context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Pool{workers: workers, ctx: ctx, cancel: cancel}
}

// Run executes jobs and returns once every started job has reported.
// Results arrive in completion order; jobs that were never started because the
// parent context ended are missing from the slice.
func (p *Pool) Run(jobs []Job) []Result {
	defer p.cancel()

	queue := make(chan Job)
	results := make(chan Result, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < min(p.workers, max(len(jobs), 1)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range queue {
				results <- p.execute(job)
			}
		}()
	}

feed:
	for _, job := range jobs {
		select {
		case <-p.ctx.Done():
			break feed
		case queue <- job:
		}
	}
	close(queue)
	wg.Wait()
	close(results)

	out := make([]Result, 0, len(jobs))
	for r := range results {
		out = append(out, r)
	}
	return out
}

// execute runs a single job, turning a panic into a PanicResult so one job cannot take down the pool
func (p *Pool) execute(job Job) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = &PanicResult{Err: fmt.Errorf("job panicked: %v", r)}
		}
	}()
	return job.Execute(p.ctx)
}
