package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultTimeout bounds one attempt when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// Timeout bounds each call of an operation with a deadline.
//
// The operation runs on the caller's goroutine and must honor ctx; this keeps
// results written by op visible to the caller without extra synchronization.
type Timeout struct {
	d time.Duration
}

// NewTimeout creates a timeout wrapper. A non-positive d uses DefaultTimeout.
func NewTimeout(d time.Duration) *Timeout {
	if d <= 0 {
		d = DefaultTimeout
	}
	return &Timeout{d: d}
}

// Execute runs op with a derived deadline. A deadline hit by this wrapper,
// rather than by the parent context, is reported as ErrTimeout.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	opCtx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()

	err := op(opCtx)
	if err == nil {
		return nil
	}
	if ctx.Err() == nil && errors.Is(opCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s: %w", ErrTimeout, t.d, err)
	}
	return err
}

// Duration returns the configured deadline.
func (t *Timeout) Duration() time.Duration {
	return t.d
}
