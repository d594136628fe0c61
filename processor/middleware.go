package processor

import (
	"context"

	"github.com/xraph/conveyor"
)

// Handler is the terminal call that processes one record.
type Handler func(ctx context.Context, r *conveyor.Record) (*conveyor.Record, error)

// Middleware wraps a Handler. It receives the record being processed and
// the next handler, and must call next unless it short-circuits.
type Middleware func(ctx context.Context, r *conveyor.Record, next Handler) (*conveyor.Record, error)

// Chain composes middleware right-to-left: the first middleware is the
// outermost wrapper.
//
//	Chain(logging, recover, timeout) runs as logging → recover → timeout → handler
func Chain(mws ...Middleware) Middleware {
	return func(ctx context.Context, r *conveyor.Record, next Handler) (*conveyor.Record, error) {
		h := next
		for i := len(mws) - 1; i >= 0; i-- {
			mw := mws[i]
			prev := h
			h = func(ctx context.Context, r *conveyor.Record) (*conveyor.Record, error) {
				return mw(ctx, r, prev)
			}
		}
		return h(ctx, r)
	}
}

// Wrapped is a processor decorated with middleware.
type Wrapped struct {
	name  string
	inner conveyor.Processor
	mw    Middleware
}

var _ conveyor.Processor = (*Wrapped)(nil)

// Wrap decorates p with mws. The first middleware is the outermost.
func Wrap(p conveyor.Processor, mws ...Middleware) *Wrapped {
	return &Wrapped{name: NameOf(p), inner: p, mw: Chain(mws...)}
}

// Process runs the middleware chain around the wrapped processor.
func (w *Wrapped) Process(ctx context.Context, r *conveyor.Record) (*conveyor.Record, error) {
	return w.mw(ctx, r, w.inner.Process)
}

// Name returns the wrapped processor's name.
func (w *Wrapped) Name() string { return w.name }

// Result forwards the wrapped processor's result, if it keeps one.
func (w *Wrapped) Result() any {
	if h, ok := w.inner.(conveyor.ResultHolder); ok {
		return h.Result()
	}
	return nil
}

// Unwrap returns the wrapped processor.
func (w *Wrapped) Unwrap() conveyor.Processor { return w.inner }

// NameOf returns p's name when it implements conveyor.Named, otherwise
// its dynamic type.
func NameOf(p any) string {
	if n, ok := p.(conveyor.Named); ok {
		return n.Name()
	}
	return typeName(p)
}
