// Package memory provides in-process readers and writers: a reader over a
// slice, a reader draining a channel until a poison record arrives, and a
// writer collecting everything it is given. They are safe for use by one
// job at a time.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/xraph/conveyor"
	"github.com/xraph/conveyor/dispatcher"
)

// Compile-time interface checks.
var (
	_ conveyor.Reader = (*SliceReader)(nil)
	_ conveyor.Reader = (*ChannelReader)(nil)
	_ conveyor.Writer = (*CollectingWriter)(nil)
)

// SliceReader reads the elements of a slice, each as one record numbered
// from 1. Reopening starts again from the first element.
type SliceReader struct {
	source string
	items  []any
	pos    int
}

// NewSliceReader returns a reader over items. source names the origin in
// record headers.
func NewSliceReader(source string, items []any) *SliceReader {
	return &SliceReader{source: source, items: items}
}

// SliceReaderOf is NewSliceReader for a typed slice.
func SliceReaderOf[T any](source string, items []T) *SliceReader {
	anys := make([]any, len(items))
	for i, v := range items {
		anys[i] = v
	}
	return NewSliceReader(source, anys)
}

func (r *SliceReader) Open(context.Context) error {
	r.pos = 0
	return nil
}

func (r *SliceReader) Read(context.Context) (*conveyor.Record, error) {
	if r.pos >= len(r.items) {
		return nil, nil
	}
	r.pos++
	return conveyor.NewRecord(conveyor.NewHeader(int64(r.pos), r.source), r.items[r.pos-1]), nil
}

func (r *SliceReader) Close() error { return nil }

func (r *SliceReader) Name() string { return "slice-reader:" + r.source }

// ChannelReader reads records from a channel. It reports end of stream
// when a poison record arrives or the channel is closed. With an idle
// timeout it also ends the stream after waiting that long for a record.
type ChannelReader struct {
	ch      <-chan *conveyor.Record
	timeout time.Duration
	done    bool
}

// NewChannelReader reads from ch.
func NewChannelReader(ch <-chan *conveyor.Record) *ChannelReader {
	return &ChannelReader{ch: ch}
}

// NewSinkReader reads the records a dispatcher sent to sink.
func NewSinkReader(sink *dispatcher.ChannelSink) *ChannelReader {
	return NewChannelReader(sink.Records())
}

// WithIdleTimeout ends the stream when no record arrives within d.
func (r *ChannelReader) WithIdleTimeout(d time.Duration) *ChannelReader {
	r.timeout = d
	return r
}

func (r *ChannelReader) Open(context.Context) error {
	r.done = false
	return nil
}

// Read blocks until a record arrives. The poison record itself is
// consumed and not returned.
func (r *ChannelReader) Read(ctx context.Context) (*conveyor.Record, error) {
	if r.done {
		return nil, nil
	}

	var idle <-chan time.Time
	if r.timeout > 0 {
		t := time.NewTimer(r.timeout)
		defer t.Stop()
		idle = t.C
	}

	select {
	case rec, ok := <-r.ch:
		if !ok || rec.IsPoison() {
			r.done = true
			return nil, nil
		}
		return rec, nil
	case <-idle:
		r.done = true
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *ChannelReader) Close() error { return nil }

// CollectingWriter keeps every record written to it. Its Result is the
// slice of collected payloads. It is safe for concurrent use, so several
// jobs may share one.
type CollectingWriter struct {
	mu      sync.Mutex
	records []*conveyor.Record
	batches int
}

// NewCollectingWriter returns an empty collecting writer.
func NewCollectingWriter() *CollectingWriter { return &CollectingWriter{} }

func (w *CollectingWriter) Open(context.Context) error { return nil }

func (w *CollectingWriter) Write(_ context.Context, b *conveyor.Batch) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.records = append(w.records, b.Records()...)
	w.batches++
	return nil
}

func (w *CollectingWriter) Close() error { return nil }

func (w *CollectingWriter) Name() string { return "collecting-writer" }

// Records returns the collected records in write order.
func (w *CollectingWriter) Records() []*conveyor.Record {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]*conveyor.Record(nil), w.records...)
}

// Payloads returns the payloads of the collected records.
func (w *CollectingWriter) Payloads() []any {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]any, len(w.records))
	for i, r := range w.records {
		out[i] = r.Payload
	}
	return out
}

// Batches returns the number of batches written.
func (w *CollectingWriter) Batches() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.batches
}

// Result implements conveyor.ResultHolder.
func (w *CollectingWriter) Result() any { return w.Payloads() }
