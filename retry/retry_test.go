package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xraph/conveyor"
	"github.com/xraph/conveyor/backoff"
	"github.com/xraph/conveyor/retry"
)

var errTransient = errors.New("transient")

func noSleep(context.Context, time.Duration) error { return nil }

// flaky fails the first n calls.
func flaky(n int, calls *int) func(context.Context) (string, error) {
	return func(context.Context) (string, error) {
		*calls++
		if *calls <= n {
			return "", errTransient
		}
		return "ok", nil
	}
}

func TestDo_SucceedsFirstTime(t *testing.T) {
	calls := 0
	v, err := retry.Do(context.Background(), retry.NewPolicy(3, time.Millisecond), flaky(0, &calls))
	require.NoError(t, err)
	require.Equal(t, "ok", v)
	require.Equal(t, 1, calls)
}

func TestDo_FailsTwiceThenSucceeds(t *testing.T) {
	calls := 0
	v, err := retry.Do(context.Background(), retry.NewPolicy(3, time.Millisecond), flaky(2, &calls))
	require.NoError(t, err)
	require.Equal(t, "ok", v)
	require.Equal(t, 3, calls)
}

func TestDo_AlwaysFailing(t *testing.T) {
	calls := 0
	_, err := retry.Do(context.Background(), retry.NewPolicy(3, 0), flaky(100, &calls))
	require.Equal(t, 3, calls)
	require.ErrorIs(t, err, conveyor.ErrRetryExhausted)
	require.ErrorIs(t, err, errTransient)

	var ex *retry.ExhaustedError
	require.ErrorAs(t, err, &ex)
	require.Equal(t, 3, ex.Attempts)
}

func TestDo_HookOrder(t *testing.T) {
	var events []string
	hooks := retry.Hooks{
		BeforeCall:    func(n int) { events = append(events, "call") },
		AfterCall:     func(n int, err error) { events = append(events, "after") },
		OnError:       func(n int, err error) { events = append(events, "error") },
		BeforeWait:    func(n int, d time.Duration) { events = append(events, "wait") },
		AfterWait:     func(n int, d time.Duration) { events = append(events, "woke") },
		OnMaxAttempts: func(n int, err error) { events = append(events, "max") },
	}

	calls := 0
	_, err := retry.Do(context.Background(), retry.NewPolicy(2, time.Second), flaky(5, &calls),
		retry.WithHooks(hooks), retry.WithSleep(noSleep))
	require.Error(t, err)
	require.Equal(t, []string{
		"call", "after", "error", "wait", "woke",
		"call", "after", "error", "max",
	}, events)
}

func TestDo_WaitUsesPolicyDelay(t *testing.T) {
	var waits []time.Duration
	sleep := func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	calls := 0
	p := retry.Policy{MaxAttempts: 4, Backoff: backoff.NewExponential(10*time.Millisecond, 0)}
	_, err := retry.Do(context.Background(), p, flaky(3, &calls), retry.WithSleep(sleep))
	require.NoError(t, err)
	require.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond}, waits)
}

func TestDo_NegativeBackoffStops(t *testing.T) {
	calls := 0
	p := retry.Policy{MaxAttempts: 10, Backoff: backoff.StrategyFunc(func(int) time.Duration { return -1 })}
	_, err := retry.Do(context.Background(), p, flaky(100, &calls))

	var ex *retry.ExhaustedError
	require.ErrorAs(t, err, &ex)
	require.Equal(t, 1, calls)
	require.Equal(t, 1, ex.Attempts)
}

func TestDo_RetryIf(t *testing.T) {
	permanent := errors.New("permanent")
	calls := 0
	_, err := retry.Do(context.Background(), retry.NewPolicy(5, 0), func(context.Context) (int, error) {
		calls++
		return 0, permanent
	}, retry.WithRetryIf(func(err error) bool { return errors.Is(err, errTransient) }))

	require.Equal(t, 1, calls)
	require.ErrorIs(t, err, permanent)
	require.NotErrorIs(t, err, conveyor.ErrRetryExhausted)
}

func TestDo_ContextCancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	fn := func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, errTransient
	}

	_, err := retry.Do(ctx, retry.NewPolicy(5, time.Hour), fn)
	require.Equal(t, 1, calls)
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, err, errTransient)
}

func TestDo_InvalidPolicy(t *testing.T) {
	_, err := retry.Do(context.Background(), retry.NewPolicy(0, 0), func(context.Context) (int, error) { return 1, nil })
	require.Error(t, err)

	_, err = retry.Do(context.Background(), retry.NewPolicy(1, -time.Second), func(context.Context) (int, error) { return 1, nil })
	require.Error(t, err)
}

func TestHooksThen(t *testing.T) {
	var order []int
	a := retry.Hooks{BeforeCall: func(int) { order = append(order, 1) }}
	b := retry.Hooks{BeforeCall: func(int) { order = append(order, 2) }}

	_, err := retry.Do(context.Background(), retry.NewPolicy(1, 0),
		func(context.Context) (int, error) { return 0, nil },
		retry.WithHooks(a), retry.WithHooks(b))
	require.NoError(t, err)
	require.Equal(t, []int{1, 2}, order)
}
