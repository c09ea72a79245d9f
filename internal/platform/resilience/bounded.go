package resilience

import (
	"context"
	"errors"
	"time"
)

// ErrDeadline is returned by Bounded when the wrapped operation did not
// complete within its deadline.
var ErrDeadline = errors.New("resilience: deadline exceeded")

// Bounded runs fn with a deadline. The operation either completes within
// d or the call returns ErrDeadline, so no caller can wait indefinitely
// on a single step. fn receives a context that is cancelled at the
// deadline; operations that honor their context stop promptly, and even
// ones that don't cannot block the caller past the deadline.
func Bounded[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	bctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type outcome struct {
		val T
		err error
	}

	ch := make(chan outcome, 1)
	go func() {
		val, err := fn(bctx)
		ch <- outcome{val: val, err: err}
	}()

	select {
	case o := <-ch:
		if o.err != nil && bctx.Err() != nil && errors.Is(o.err, context.DeadlineExceeded) {
			var zero T
			return zero, ErrDeadline
		}
		return o.val, o.err
	case <-bctx.Done():
		var zero T
		// Distinguish caller cancellation from our own deadline.
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, ErrDeadline
	}
}
