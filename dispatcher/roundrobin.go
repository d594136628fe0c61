package dispatcher

import (
	"context"

	"github.com/xraph/conveyor"
)

// RoundRobin sends the k-th non-poison record to sink k mod n. Poison
// records go to every sink and leave the cursor where it was.
type RoundRobin struct {
	*base
	next int
}

var _ conveyor.Writer = (*RoundRobin)(nil)

// NewRoundRobin creates a round-robin dispatcher over sinks.
func NewRoundRobin(sinks []Sink, opts ...Option) (*RoundRobin, error) {
	b, err := newBase("round-robin", sinks, opts)
	if err != nil {
		return nil, err
	}
	return &RoundRobin{base: b}, nil
}

// Dispatch routes one record.
func (d *RoundRobin) Dispatch(ctx context.Context, r *conveyor.Record) error {
	if r.IsPoison() {
		return d.broadcast(ctx, r)
	}
	i := d.next
	d.next = (d.next + 1) % len(d.sinks)
	return d.send(ctx, i, r)
}

// Write dispatches every record of b in order.
func (d *RoundRobin) Write(ctx context.Context, b *conveyor.Batch) error {
	return d.write(ctx, b, d.Dispatch)
}
