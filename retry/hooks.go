package retry

import (
	"log/slog"
	"time"
)

// Hooks observe a retry loop. Any field may be nil. Hooks cannot change
// the outcome of the loop.
type Hooks struct {
	BeforeCall    func(attempt int)
	AfterCall     func(attempt int, err error)
	OnError       func(attempt int, err error)
	OnMaxAttempts func(attempts int, err error)
	BeforeWait    func(attempt int, d time.Duration)
	AfterWait     func(attempt int, d time.Duration)
}

// Then returns hooks that run h's callbacks followed by next's.
func (h Hooks) Then(next Hooks) Hooks {
	return Hooks{
		BeforeCall:    chain1(h.BeforeCall, next.BeforeCall),
		AfterCall:     chain2(h.AfterCall, next.AfterCall),
		OnError:       chain2(h.OnError, next.OnError),
		OnMaxAttempts: chain2(h.OnMaxAttempts, next.OnMaxAttempts),
		BeforeWait:    chain2(h.BeforeWait, next.BeforeWait),
		AfterWait:     chain2(h.AfterWait, next.AfterWait),
	}
}

func chain1[A any](a, b func(A)) func(A) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(x A) { a(x); b(x) }
}

func chain2[A, B any](a, b func(A, B)) func(A, B) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(x A, y B) { a(x, y); b(x, y) }
}

func (h Hooks) beforeCall(n int) {
	if h.BeforeCall != nil {
		h.BeforeCall(n)
	}
}

func (h Hooks) afterCall(n int, err error) {
	if h.AfterCall != nil {
		h.AfterCall(n, err)
	}
}

func (h Hooks) onError(n int, err error) {
	if h.OnError != nil {
		h.OnError(n, err)
	}
}

func (h Hooks) onMaxAttempts(n int, err error) {
	if h.OnMaxAttempts != nil {
		h.OnMaxAttempts(n, err)
	}
}

func (h Hooks) beforeWait(n int, d time.Duration) {
	if h.BeforeWait != nil {
		h.BeforeWait(n, d)
	}
}

func (h Hooks) afterWait(n int, d time.Duration) {
	if h.AfterWait != nil {
		h.AfterWait(n, d)
	}
}

// LoggingHooks logs failed attempts, waits and the final give-up.
func LoggingHooks(logger *slog.Logger, operation string) Hooks {
	if logger == nil {
		logger = slog.Default()
	}
	return Hooks{
		OnError: func(attempt int, err error) {
			logger.Warn("attempt failed",
				slog.String("operation", operation),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()),
			)
		},
		BeforeWait: func(attempt int, d time.Duration) {
			logger.Debug("waiting before retry",
				slog.String("operation", operation),
				slog.Int("attempt", attempt),
				slog.Duration("delay", d),
			)
		},
		OnMaxAttempts: func(attempts int, err error) {
			logger.Error("retry attempts exhausted",
				slog.String("operation", operation),
				slog.Int("attempts", attempts),
				slog.String("error", err.Error()),
			)
		},
	}
}
