package dispatcher

import (
	"context"

	"github.com/xraph/conveyor"
)

// Broadcast sends every record to every sink in sink order. By default a
// failing sink does not stop delivery to the others and the failures are
// joined; WithFailurePolicy(FailFast) stops at the first failure.
type Broadcast struct {
	*base
}

var _ conveyor.Writer = (*Broadcast)(nil)

// NewBroadcast creates a broadcast dispatcher over sinks.
func NewBroadcast(sinks []Sink, opts ...Option) (*Broadcast, error) {
	b, err := newBase("broadcast", sinks, opts)
	if err != nil {
		return nil, err
	}
	return &Broadcast{base: b}, nil
}

// Dispatch sends r to every sink.
func (d *Broadcast) Dispatch(ctx context.Context, r *conveyor.Record) error {
	return d.broadcast(ctx, r)
}

// Write dispatches every record of b in order.
func (d *Broadcast) Write(ctx context.Context, b *conveyor.Batch) error {
	return d.write(ctx, b, d.Dispatch)
}
