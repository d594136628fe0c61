// Package backoff provides the wait strategies used between retry
// attempts. The stock strategies are stateless and safe for concurrent use.
package backoff

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	cbackoff "github.com/cenkalti/backoff/v4"
)

// Strategy computes the wait before retry attempt n. Attempt 1 is the
// first retry after the initial failure.
type Strategy interface {
	Delay(attempt int) time.Duration
}

// StrategyFunc adapts a function to the Strategy interface.
type StrategyFunc func(attempt int) time.Duration

// Delay calls f(attempt).
func (f StrategyFunc) Delay(attempt int) time.Duration { return f(attempt) }

// ──────────────────────────────────────────────────
// Fixed
// ──────────────────────────────────────────────────

// Fixed waits the same interval before every attempt.
type Fixed struct {
	Interval time.Duration
}

// NewFixed creates a fixed strategy.
func NewFixed(interval time.Duration) *Fixed {
	return &Fixed{Interval: interval}
}

// Delay returns the interval.
func (f *Fixed) Delay(int) time.Duration { return f.Interval }

// ──────────────────────────────────────────────────
// Linear
// ──────────────────────────────────────────────────

// Linear waits Step * attempt, capped at Max when Max > 0.
type Linear struct {
	Step time.Duration
	Max  time.Duration
}

// NewLinear creates a linear strategy.
func NewLinear(step, maxDelay time.Duration) *Linear {
	return &Linear{Step: step, Max: maxDelay}
}

// Delay returns Step * attempt, capped at Max.
func (l *Linear) Delay(attempt int) time.Duration {
	return capped(l.Step*time.Duration(attempt), l.Max)
}

// ──────────────────────────────────────────────────
// Exponential
// ──────────────────────────────────────────────────

// Exponential doubles the wait after each attempt, starting at Initial
// and capped at Max when Max > 0. With Jitter set the wait is drawn
// uniformly from [0, computed].
type Exponential struct {
	Initial time.Duration
	Max     time.Duration
	Jitter  bool
}

// NewExponential creates an exponential strategy without jitter.
func NewExponential(initial, maxDelay time.Duration) *Exponential {
	return &Exponential{Initial: initial, Max: maxDelay}
}

// NewJittered creates an exponential strategy with full jitter.
func NewJittered(initial, maxDelay time.Duration) *Exponential {
	return &Exponential{Initial: initial, Max: maxDelay, Jitter: true}
}

// Delay returns Initial * 2^(attempt-1), capped at Max and optionally
// jittered.
func (e *Exponential) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base := float64(e.Initial) * math.Pow(2, float64(attempt-1))
	if e.Max > 0 && base > float64(e.Max) {
		base = float64(e.Max)
	}
	if e.Jitter {
		return time.Duration(rand.Float64() * base) //nolint:gosec // jitter does not need crypto rand
	}
	return time.Duration(base)
}

// ──────────────────────────────────────────────────
// cenkalti/backoff adapter
// ──────────────────────────────────────────────────

// BackOff adapts a github.com/cenkalti/backoff BackOff to Strategy. The
// wrapped value is stateful: it is reset whenever attempt 1 is requested
// and guarded by a mutex. A backoff.Stop result maps to a negative
// duration, which the retry package treats as "give up now".
type BackOff struct {
	mu sync.Mutex
	b  cbackoff.BackOff
}

// FromBackOff wraps b.
func FromBackOff(b cbackoff.BackOff) *BackOff {
	return &BackOff{b: b}
}

// Delay returns the next interval of the wrapped BackOff.
func (a *BackOff) Delay(attempt int) time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()

	if attempt <= 1 {
		a.b.Reset()
	}
	d := a.b.NextBackOff()
	if d == cbackoff.Stop {
		return -1
	}
	return d
}

// ──────────────────────────────────────────────────
// Defaults
// ──────────────────────────────────────────────────

// DefaultStrategy returns a fixed one second wait.
func DefaultStrategy() Strategy {
	return NewFixed(time.Second)
}

// NewExponentialBackOff returns a cenkalti exponential backoff with the
// given bounds wrapped as a Strategy. MaxElapsedTime is disabled so the
// retry policy's attempt count decides when to stop.
func NewExponentialBackOff(initial, maxDelay time.Duration) *BackOff {
	b := cbackoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.MaxInterval = maxDelay
	b.MaxElapsedTime = 0
	return FromBackOff(b)
}

func capped(d, maxDelay time.Duration) time.Duration {
	if maxDelay > 0 && d > maxDelay {
		return maxDelay
	}
	return d
}
