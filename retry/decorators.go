package retry

import (
	"context"

	"github.com/xraph/conveyor"
)

// Reader retries Read calls of the wrapped reader. Open and Close are
// passed through unchanged.
type Reader struct {
	next   conveyor.Reader
	policy Policy
	opts   []Option
}

var _ conveyor.Reader = (*Reader)(nil)

// NewReader decorates r with policy p.
func NewReader(r conveyor.Reader, p Policy, opts ...Option) *Reader {
	return &Reader{next: r, policy: p, opts: opts}
}

func (r *Reader) Open(ctx context.Context) error { return r.next.Open(ctx) }

func (r *Reader) Read(ctx context.Context) (*conveyor.Record, error) {
	return Do(ctx, r.policy, r.next.Read, r.opts...)
}

func (r *Reader) Close() error { return r.next.Close() }

// Name returns the wrapped reader's name, if it has one.
func (r *Reader) Name() string { return nameOf(r.next, "retry-reader") }

// Writer retries Write calls of the wrapped writer with the same batch.
type Writer struct {
	next   conveyor.Writer
	policy Policy
	opts   []Option
}

var _ conveyor.Writer = (*Writer)(nil)

// NewWriter decorates w with policy p.
func NewWriter(w conveyor.Writer, p Policy, opts ...Option) *Writer {
	return &Writer{next: w, policy: p, opts: opts}
}

func (w *Writer) Open(ctx context.Context) error { return w.next.Open(ctx) }

func (w *Writer) Write(ctx context.Context, b *conveyor.Batch) error {
	_, err := Do(ctx, w.policy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, w.next.Write(ctx, b)
	}, w.opts...)
	return err
}

func (w *Writer) Close() error { return w.next.Close() }

// Name returns the wrapped writer's name, if it has one.
func (w *Writer) Name() string { return nameOf(w.next, "retry-writer") }

// Result forwards the wrapped writer's result.
func (w *Writer) Result() any {
	if h, ok := w.next.(conveyor.ResultHolder); ok {
		return h.Result()
	}
	return nil
}

func nameOf(v any, fallback string) string {
	if n, ok := v.(conveyor.Named); ok {
		return n.Name()
	}
	return fallback
}
