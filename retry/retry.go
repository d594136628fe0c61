// Package retry runs fallible operations under a bounded retry policy.
//
// Do is the generic entry point; NewReader and NewWriter decorate a
// conveyor.Reader or conveyor.Writer so that transient source or sink
// failures are absorbed without the job engine noticing anything but a
// slower call.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/conveyor"
	"github.com/xraph/conveyor/backoff"
)

// Policy bounds how often and how patiently an operation is retried.
type Policy struct {
	// MaxAttempts is the total number of calls, including the first.
	MaxAttempts int

	// Delay is the wait between attempts when Backoff is nil.
	Delay time.Duration

	// Backoff, when set, replaces Delay. A negative delay stops retrying.
	Backoff backoff.Strategy
}

// NewPolicy returns a policy with a fixed delay.
func NewPolicy(maxAttempts int, delay time.Duration) Policy {
	return Policy{MaxAttempts: maxAttempts, Delay: delay}
}

// Validate checks the policy bounds.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("retry: max attempts must be >= 1, got %d", p.MaxAttempts)
	}
	if p.Delay < 0 {
		return fmt.Errorf("retry: delay must be >= 0, got %v", p.Delay)
	}
	return nil
}

func (p Policy) wait(attempt int) time.Duration {
	if p.Backoff != nil {
		return p.Backoff.Delay(attempt)
	}
	return p.Delay
}

// ExhaustedError is returned once every attempt failed. It unwraps to
// conveyor.ErrRetryExhausted and to the last underlying error.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry: gave up after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() []error {
	return []error{conveyor.ErrRetryExhausted, e.Err}
}

// Option configures a single Do call or decorator.
type Option func(*config)

type config struct {
	hooks   Hooks
	retryIf func(error) bool
	sleep   func(ctx context.Context, d time.Duration) error
}

// WithHooks adds hooks. Several WithHooks options run in the order given.
func WithHooks(h Hooks) Option {
	return func(c *config) { c.hooks = c.hooks.Then(h) }
}

// WithRetryIf limits retries to errors accepted by fn. Other errors are
// returned immediately, unwrapped.
func WithRetryIf(fn func(error) bool) Option {
	return func(c *config) { c.retryIf = fn }
}

// WithSleep replaces the wait between attempts. Tests use it to avoid
// real sleeps.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *config) { c.sleep = fn }
}

func newConfig(opts []Option) config {
	c := config{sleep: sleepCtx}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Do calls fn until it succeeds or the policy is exhausted.
//
// Every attempt is bracketed by BeforeCall and AfterCall, and every failed
// attempt fires OnError. When attempts remain, BeforeWait, the wait and
// AfterWait follow. After the last failure OnMaxAttempts fires and Do returns an
// *ExhaustedError. The wait honours ctx: a cancelled context stops the
// loop with an error wrapping both ctx.Err() and the last failure.
func Do[T any](ctx context.Context, p Policy, fn func(context.Context) (T, error), opts ...Option) (T, error) {
	var zero T
	if err := p.Validate(); err != nil {
		return zero, err
	}
	c := newConfig(opts)

	var (
		lastErr  error
		attempts int
	)
	for attempt := 1; ; attempt++ {
		attempts = attempt
		c.hooks.beforeCall(attempt)
		v, err := fn(ctx)
		c.hooks.afterCall(attempt, err)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if c.retryIf != nil && !c.retryIf(err) {
			return zero, err
		}
		c.hooks.onError(attempt, err)

		if attempt >= p.MaxAttempts {
			break
		}
		d := p.wait(attempt)
		if d < 0 {
			break
		}

		c.hooks.beforeWait(attempt, d)
		if werr := c.sleep(ctx, d); werr != nil {
			return zero, fmt.Errorf("retry: interrupted after %d attempt(s): %w", attempt, errors.Join(werr, lastErr))
		}
		c.hooks.afterWait(attempt, d)
	}

	c.hooks.onMaxAttempts(attempts, lastErr)
	return zero, &ExhaustedError{Attempts: attempts, Err: lastErr}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
