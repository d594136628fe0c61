package processor_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/xraph/conveyor"
	"github.com/xraph/conveyor/processor"
)

func newRecord(payload any) *conveyor.Record {
	return conveyor.NewRecord(conveyor.NewHeader(1, "test"), payload)
}

func testLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestChain_Order(t *testing.T) {
	var order []string
	mk := func(name string) processor.Middleware {
		return func(ctx context.Context, r *conveyor.Record, next processor.Handler) (*conveyor.Record, error) {
			order = append(order, name+":before")
			out, err := next(ctx, r)
			order = append(order, name+":after")
			return out, err
		}
	}

	chain := processor.Chain(mk("outer"), mk("inner"))
	_, err := chain(context.Background(), newRecord(1), func(_ context.Context, r *conveyor.Record) (*conveyor.Record, error) {
		order = append(order, "handler")
		return r, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"outer:before", "inner:before", "handler", "inner:after", "outer:after"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestChain_Empty(t *testing.T) {
	in := newRecord(1)
	out, err := processor.Chain()(context.Background(), in, func(_ context.Context, r *conveyor.Record) (*conveyor.Record, error) {
		return r, nil
	})
	if err != nil || out != in {
		t.Fatalf("got (%v, %v), want passthrough", out, err)
	}
}

func TestWrap_ForwardsNameAndResult(t *testing.T) {
	c := &processor.Counter{}
	w := processor.Wrap(c, processor.Recover(slog.Default()))

	if _, err := w.Process(context.Background(), newRecord(1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Name() != "counter" {
		t.Errorf("Name() = %q, want counter", w.Name())
	}
	if w.Result() != int64(1) {
		t.Errorf("Result() = %v, want 1", w.Result())
	}
	if w.Unwrap() != c {
		t.Error("Unwrap() did not return the inner processor")
	}
}

func TestRecover_ConvertsPanic(t *testing.T) {
	var buf bytes.Buffer
	p := processor.Wrap(conveyor.ProcessorFunc(func(context.Context, *conveyor.Record) (*conveyor.Record, error) {
		panic("kaboom")
	}), processor.Recover(testLogger(&buf)))

	out, err := p.Process(context.Background(), newRecord(1))
	if err == nil {
		t.Fatal("expected error from panic")
	}
	if out != nil {
		t.Errorf("expected nil record, got %v", out)
	}
	if !strings.Contains(err.Error(), "kaboom") {
		t.Errorf("error %q does not mention panic value", err)
	}
	if !strings.Contains(buf.String(), "processor panicked") {
		t.Errorf("panic not logged: %q", buf.String())
	}
}

func TestLogging_Outcomes(t *testing.T) {
	var buf bytes.Buffer
	logging := processor.Logging(testLogger(&buf))

	pass := func(_ context.Context, r *conveyor.Record) (*conveyor.Record, error) { return r, nil }
	drop := func(context.Context, *conveyor.Record) (*conveyor.Record, error) { return nil, nil }
	fail := func(context.Context, *conveyor.Record) (*conveyor.Record, error) { return nil, errors.New("bad row") }

	_, _ = logging(context.Background(), newRecord(1), pass)
	_, _ = logging(context.Background(), newRecord(2), drop)
	_, _ = logging(context.Background(), newRecord(3), fail)

	out := buf.String()
	for _, want := range []string{"record processed", "record filtered", "record processing failed", "bad row"} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q: %s", want, out)
		}
	}
}

func TestTimeout_DeadlineExceeded(t *testing.T) {
	slow := func(ctx context.Context, r *conveyor.Record) (*conveyor.Record, error) {
		<-ctx.Done()
		return r, nil
	}

	_, err := processor.Timeout(10*time.Millisecond)(context.Background(), newRecord(1), slow)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
}

func TestTimeout_ZeroIsPassthrough(t *testing.T) {
	called := false
	_, err := processor.Timeout(0)(context.Background(), newRecord(1), func(ctx context.Context, r *conveyor.Record) (*conveyor.Record, error) {
		called = true
		if _, ok := ctx.Deadline(); ok {
			t.Error("unexpected deadline")
		}
		return r, nil
	})
	if err != nil || !called {
		t.Fatalf("called=%v err=%v", called, err)
	}
}

func TestThrottle_CancelledContext(t *testing.T) {
	throttle := processor.ThrottleRate(0.001, 1)
	next := func(_ context.Context, r *conveyor.Record) (*conveyor.Record, error) { return r, nil }

	// The first call uses the burst token.
	if _, err := throttle(context.Background(), newRecord(1), next); err != nil {
		t.Fatalf("first call: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := throttle(ctx, newRecord(2), next); err == nil {
		t.Fatal("expected error waiting on a cancelled context")
	}
}
