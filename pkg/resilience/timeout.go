package resilience

import (
	"context"
	"fmt"
	"time"
)

// WithTimeout runs fn with a derived deadline. It returns fn's error, or a
// timeout error if the deadline expires before fn finishes.
func WithTimeout(ctx context.Context, timeout time.Duration, operation string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("%s timed out after %v", operation, timeout)
		}
		return fmt.Errorf("%s cancelled: %w", operation, ctx.Err())
	}
}
