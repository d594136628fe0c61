package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/xraph/conveyor"
	"github.com/xraph/conveyor/id"
)

// Stats counts what a dispatcher did since it was created.
type Stats struct {
	// Sent holds the number of records sent to each sink, in sink order.
	// For ContentBased the default sink, if any, comes last.
	Sent []int64

	// Dropped counts unmatched records discarded by ContentBased.
	Dropped int64
}

// base holds what all dispatchers share: the sinks, their counters and
// the open/close lifecycle.
type base struct {
	id      id.ID
	kind    string
	opts    options
	sinks   []Sink
	sent    []atomic.Int64
	dropped atomic.Int64
}

func newBase(kind string, sinks []Sink, opts []Option) (*base, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if len(sinks) == 0 {
		return nil, fmt.Errorf("dispatcher %s: %w", kind, conveyor.ErrNoSinks)
	}
	for i, s := range sinks {
		if s == nil {
			return nil, fmt.Errorf("dispatcher %s: sink %d is nil", kind, i)
		}
	}
	b := &base{
		id:    id.NewDispatcherID(),
		kind:  kind,
		opts:  o,
		sinks: sinks,
		sent:  make([]atomic.Int64, len(sinks)),
	}
	if b.opts.name == "" {
		b.opts.name = kind
	}
	return b, nil
}

// ID returns the dispatcher's identifier.
func (b *base) ID() id.ID { return b.id }

// Name returns the dispatcher's name.
func (b *base) Name() string { return b.opts.name }

// Stats returns a snapshot of the dispatcher counters.
func (b *base) Stats() Stats {
	s := Stats{Sent: make([]int64, len(b.sent)), Dropped: b.dropped.Load()}
	for i := range b.sent {
		s.Sent[i] = b.sent[i].Load()
	}
	return s
}

// Open opens every sink that has an Open method.
func (b *base) Open(ctx context.Context) error {
	for i, s := range b.sinks {
		if o, ok := s.(opener); ok {
			if err := o.Open(ctx); err != nil {
				return fmt.Errorf("dispatcher %s: open sink %d: %w", b.opts.name, i, err)
			}
		}
	}
	b.opts.logger.Debug("dispatcher opened",
		slog.String("dispatcher", b.opts.name),
		slog.String("dispatcher_id", b.id.String()),
		slog.String("kind", b.kind),
		slog.Int("sinks", len(b.sinks)),
	)
	return nil
}

// Close broadcasts a poison record when configured, then closes every
// sink that has a Close method. All sinks are closed even if some fail.
func (b *base) Close() error {
	var errs []error
	if b.opts.poisonOnClose {
		if err := b.broadcast(context.Background(), conveyor.NewPoisonRecord()); err != nil {
			errs = append(errs, err)
		}
	}
	for i, s := range b.sinks {
		if c, ok := s.(closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("dispatcher %s: close sink %d: %w", b.opts.name, i, err))
			}
		}
	}
	return errors.Join(errs...)
}

// write dispatches every record of batch in order. Under FailFast it
// stops at the first failing record; otherwise the remaining records are
// still dispatched and the errors are joined.
func (b *base) write(ctx context.Context, batch *conveyor.Batch, dispatch func(context.Context, *conveyor.Record) error) error {
	var errs []error
	for _, r := range batch.All() {
		if err := dispatch(ctx, r); err != nil {
			if b.opts.failure == FailFast {
				return err
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// send delivers r to sink i.
func (b *base) send(ctx context.Context, i int, r *conveyor.Record) error {
	if err := b.sinks[i].Send(ctx, r); err != nil {
		return fmt.Errorf("dispatcher %s: sink %d: %w", b.opts.name, i, err)
	}
	b.sent[i].Add(1)
	return nil
}

// broadcast delivers r to every sink in order, honouring the failure
// policy.
func (b *base) broadcast(ctx context.Context, r *conveyor.Record) error {
	var errs []error
	for i := range b.sinks {
		if err := b.send(ctx, i, r); err != nil {
			if b.opts.failure == FailFast {
				return err
			}
			b.opts.logger.Warn("broadcast to sink failed",
				slog.String("dispatcher", b.opts.name),
				slog.Int("sink", i),
				slog.String("error", err.Error()),
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
