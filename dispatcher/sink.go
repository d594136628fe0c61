package dispatcher

import (
	"context"
	"sync"

	"github.com/xraph/conveyor"
)

// Sink receives dispatched records. Sinks that also implement
// Open(context.Context) error or Close() error are opened and closed by
// the dispatcher that owns them.
type Sink interface {
	Send(ctx context.Context, r *conveyor.Record) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, r *conveyor.Record) error

// Send calls f(ctx, r).
func (f SinkFunc) Send(ctx context.Context, r *conveyor.Record) error { return f(ctx, r) }

type opener interface {
	Open(ctx context.Context) error
}

type closer interface {
	Close() error
}

// ──────────────────────────────────────────────────
// ChannelSink
// ──────────────────────────────────────────────────

// ChannelSink is a bounded in-memory queue. Send blocks while the queue
// is full, until a consumer makes room or ctx is done. It is safe for
// concurrent use by several dispatchers.
type ChannelSink struct {
	ch        chan *conveyor.Record
	closeOnce sync.Once
}

// NewChannelSink creates a queue holding up to capacity records.
func NewChannelSink(capacity int) *ChannelSink {
	return &ChannelSink{ch: make(chan *conveyor.Record, capacity)}
}

// Send enqueues r.
func (s *ChannelSink) Send(ctx context.Context, r *conveyor.Record) error {
	select {
	case s.ch <- r:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Records returns the consumer side of the queue.
func (s *ChannelSink) Records() <-chan *conveyor.Record { return s.ch }

// Len returns the number of queued records.
func (s *ChannelSink) Len() int { return len(s.ch) }

// Shutdown closes the channel. Consumers ranging over Records stop after
// draining it. Sending after Shutdown panics, so call it only once every
// producer is done. It is not called by dispatchers, which only signal
// the end of a stream with poison records.
func (s *ChannelSink) Shutdown() {
	s.closeOnce.Do(func() { close(s.ch) })
}

// ──────────────────────────────────────────────────
// WriterSink
// ──────────────────────────────────────────────────

// WriterSink sends each record to a conveyor.Writer as a one-record
// batch. Poison records are not written. The writer is opened and closed
// with the dispatcher.
type WriterSink struct {
	w conveyor.Writer
}

// NewWriterSink wraps w.
func NewWriterSink(w conveyor.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Open(ctx context.Context) error { return s.w.Open(ctx) }

func (s *WriterSink) Send(ctx context.Context, r *conveyor.Record) error {
	if r.IsPoison() {
		return nil
	}
	return s.w.Write(ctx, conveyor.BatchOf(r))
}

func (s *WriterSink) Close() error { return s.w.Close() }
