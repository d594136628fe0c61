package dispatcher

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/xraph/conveyor"
)

// Random sends each record to a sink picked uniformly at random. Poison
// records go to every sink.
type Random struct {
	*base
	mu  sync.Mutex
	rnd *rand.Rand
}

var _ conveyor.Writer = (*Random)(nil)

// NewRandom creates a random dispatcher over sinks. Without WithRand it
// uses a randomly seeded PCG source.
func NewRandom(sinks []Sink, opts ...Option) (*Random, error) {
	b, err := newBase("random", sinks, opts)
	if err != nil {
		return nil, err
	}
	rnd := b.opts.rand
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) //nolint:gosec // routing does not need crypto rand
	}
	return &Random{base: b, rnd: rnd}, nil
}

// Dispatch routes one record.
func (d *Random) Dispatch(ctx context.Context, r *conveyor.Record) error {
	if r.IsPoison() {
		return d.broadcast(ctx, r)
	}
	d.mu.Lock()
	i := d.rnd.IntN(len(d.sinks))
	d.mu.Unlock()
	return d.send(ctx, i, r)
}

// Write dispatches every record of b in order.
func (d *Random) Write(ctx context.Context, b *conveyor.Batch) error {
	return d.write(ctx, b, d.Dispatch)
}
