package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is recorded when a branch outlives its deadline
var ErrTimeout = errors.New("component timed out")

// Outcome is the value a guarded branch produced, or its safe default
type Outcome[T any] struct {
	Value    T
	Degraded bool  // The branch failed, or finished only after its working deadline
	Err      error // Why the branch degraded
	Elapsed  time.Duration
}

// maxSettle bounds the time a branch gets between its working deadline and
// the hard deadline to hand back partial results
const maxSettle = 5 * time.Second

// Guard runs fn with a deadline of timeout (none when timeout <= 0), also
// bounded by any deadline on ctx. An error, a panic or the deadline passing
// all yield def with Degraded set.
//
// fn sees an earlier working deadline: a fifth of the remaining time, at most
// maxSettle, is held back so a branch that degrades item by item when its
// context ends can still return what it has. Such a late result is kept and
// marked Degraded with ErrTimeout.
// fn's context is cancelled when Guard returns.
func Guard[T any](ctx context.Context, timeout time.Duration, def T, fn func(ctx context.Context) (T, error)) Outcome[T] {
	start := time.Now()

	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	work := ctx
	if deadline, ok := ctx.Deadline(); ok {
		settle := min(time.Until(deadline)/5, maxSettle)
		var cancelWork context.CancelFunc
		work, cancelWork = context.WithDeadline(ctx, deadline.Add(-settle))
		defer cancelWork()
	}

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		v, err := fn(work)
		done <- result{value: v, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return Outcome[T]{Value: def, Degraded: true, Err: r.err, Elapsed: time.Since(start)}
		}
		out := Outcome[T]{Value: r.value, Elapsed: time.Since(start)}
		if err := work.Err(); err != nil {
			out.Degraded = true
			out.Err = err
			if errors.Is(err, context.DeadlineExceeded) {
				out.Err = ErrTimeout
			}
		}
		return out
	case <-ctx.Done():
		err := ctx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			err = ErrTimeout
		}
		return Outcome[T]{Value: def, Degraded: true, Err: err, Elapsed: time.Since(start)}
	}
}

var errNotConfigured = errors.New("component not configured")
