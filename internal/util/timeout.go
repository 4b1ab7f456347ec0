package util

import (
	"context"
	"time"

	"github.com/sourcegraph/conc/panics"

	"github.com/Iron-Ham/cypher/internal/errors"
)

// CallWithTimeout runs fn with a context bounded by d and returns as soon as
// either fn returns or the deadline passes. fn keeps running in the background
// after a timeout with its context canceled. A non-positive
// d only inherits the parent's deadline. A panic in fn is returned as an
// error.
func CallWithTimeout[T any](ctx context.Context, operation string, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	callCtx := ctx
	cancel := context.CancelFunc(func() {})
	if d > 0 {
		callCtx, cancel = context.WithTimeout(ctx, d)
	}
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		var r result
		if rec := panics.Try(func() { r.v, r.err = fn(callCtx) }); rec != nil {
			r.err = errors.Wrap(rec.AsError(), operation+" panicked")
		}
		done <- r
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-callCtx.Done():
		var zero T
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return zero, errors.NewTimeoutError(operation, d).WithCause(callCtx.Err())
		}
		return zero, errors.Wrap(errors.ErrCanceled, operation)
	}
}
