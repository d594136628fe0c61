package processor

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/xraph/conveyor"
)

// Func is a named conveyor.ProcessorFunc.
type Func struct {
	name string
	fn   conveyor.ProcessorFunc
}

// New returns a processor named name that calls fn.
func New(name string, fn conveyor.ProcessorFunc) *Func {
	return &Func{name: name, fn: fn}
}

func (f *Func) Name() string { return f.name }

func (f *Func) Process(ctx context.Context, r *conveyor.Record) (*conveyor.Record, error) {
	return f.fn(ctx, r)
}

// Select keeps only records matching p; others are filtered out.
func Select(p conveyor.Predicate) conveyor.Processor {
	return New("select", func(_ context.Context, r *conveyor.Record) (*conveyor.Record, error) {
		if p.Matches(r) {
			return r, nil
		}
		return nil, nil
	})
}

// Reject filters out records matching p.
func Reject(p conveyor.Predicate) conveyor.Processor {
	return Select(conveyor.Not(p))
}

// Map converts the payload from I to O. A payload that is not an I is a
// processing error wrapping conveyor.ErrPayloadType.
func Map[I, O any](fn func(context.Context, I) (O, error)) conveyor.Processor {
	return New("map", func(ctx context.Context, r *conveyor.Record) (*conveyor.Record, error) {
		in, err := conveyor.MustPayloadAs[I](r)
		if err != nil {
			return nil, err
		}
		out, err := fn(ctx, in)
		if err != nil {
			return nil, err
		}
		return r.WithPayload(out), nil
	})
}

// ValidationError reports a payload rejected by a validator.
type ValidationError struct {
	Number int64
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("record %d is invalid: %v", e.Number, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Validate returns the record unchanged when fn accepts its payload and a
// *ValidationError otherwise.
func Validate[T any](fn func(T) error) conveyor.Processor {
	return New("validate", func(_ context.Context, r *conveyor.Record) (*conveyor.Record, error) {
		v, err := conveyor.MustPayloadAs[T](r)
		if err != nil {
			return nil, &ValidationError{Number: r.Header.Number, Err: err}
		}
		if err := fn(v); err != nil {
			return nil, &ValidationError{Number: r.Header.Number, Err: err}
		}
		return r, nil
	})
}

// Counter passes records through and counts them. Its Result is the
// count, which ends up in the job report.
type Counter struct {
	n atomic.Int64
}

// Process counts r and returns it unchanged.
func (c *Counter) Process(_ context.Context, r *conveyor.Record) (*conveyor.Record, error) {
	c.n.Add(1)
	return r, nil
}

func (c *Counter) Name() string { return "counter" }

// Count returns the number of records seen.
func (c *Counter) Count() int64 { return c.n.Load() }

// Result returns Count as the job result.
func (c *Counter) Result() any { return c.n.Load() }

// Collector passes records through and keeps their payloads as T. Its
// Result is the collected slice.
type Collector[T any] struct {
	items []T
}

// Process appends r's payload and returns r unchanged.
func (c *Collector[T]) Process(_ context.Context, r *conveyor.Record) (*conveyor.Record, error) {
	v, err := conveyor.MustPayloadAs[T](r)
	if err != nil {
		return nil, err
	}
	c.items = append(c.items, v)
	return r, nil
}

func (c *Collector[T]) Name() string { return "collector" }

// Items returns the collected payloads.
func (c *Collector[T]) Items() []T { return c.items }

// Result returns the collected payloads as the job result.
func (c *Collector[T]) Result() any { return c.items }
