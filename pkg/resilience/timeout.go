package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrDeadline is returned by WithTimeout when fn does not finish in time.
var ErrDeadline = errors.New("deadline exceeded")

// WithTimeout runs fn with a derived context that is cancelled after the
// given timeout. If fn has not returned by then, WithTimeout returns
// immediately with ErrDeadline; fn observes the cancelled context and is
// expected to stop at its next cancellation check. A result produced after
// the deadline is discarded.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- fn(timeoutCtx)
	}()
	select {
	case err := <-done:
		if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("%s: %w (limit: %v)", name, ErrDeadline, timeout)
		}
		return err
	case <-timeoutCtx.Done():
		if ctx.Err() != nil {
			return fmt.Errorf("%s: parent context cancelled: %w", name, ctx.Err())
		}
		return fmt.Errorf("%s: %w (limit: %v)", name, ErrDeadline, timeout)
	}
}
