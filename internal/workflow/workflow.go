// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package workflow wraps a whole user operation in a coarse deadline. The
// pipeline itself enforces no timeouts; this wrapper aborts it.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout bounds one operation.
const DefaultTimeout = 30 * time.Second

// ErrTimeout is returned when the operation outlives its deadline.
var ErrTimeout = errors.New("operation timed out")

// Runner runs operations under a deadline.
type Runner struct {
	timeout time.Duration
	log     *zap.Logger
}

// New creates a Runner. A non-positive timeout uses DefaultTimeout.
func New(timeout time.Duration, log *zap.Logger) *Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{timeout: timeout, log: log}
}

// Timeout returns the configured deadline.
func (r *Runner) Timeout() time.Duration { return r.timeout }

// Run calls fn with a context that is cancelled after the timeout. When the
// deadline fires first, Run returns ErrTimeout without waiting for fn to
// notice; fn's late result is discarded.
func (r *Runner) Run(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeoutCause(ctx, r.timeout, ErrTimeout)
	defer cancel()

	done := make(chan error, 1)
	start := time.Now()
	go func() { done <- fn(ctx) }()

	select {
	case err := <-done:
		if err != nil && errors.Is(context.Cause(ctx), ErrTimeout) {
			return r.timedOut(name, start)
		}
		return err
	case <-ctx.Done():
		if errors.Is(context.Cause(ctx), ErrTimeout) {
			return r.timedOut(name, start)
		}
		return ctx.Err()
	}
}

func (r *Runner) timedOut(name string, start time.Time) error {
	r.log.Warn("operation timed out",
		zap.String("operation", name),
		zap.Duration("timeout", r.timeout),
		zap.Duration("elapsed", time.Since(start)))
	return fmt.Errorf("%s: %w after %s", name, ErrTimeout, r.timeout)
}
