package dlq

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/conveyor"
)

// ReplayReader reads pending entries of a Store as records and marks
// each entry replayed when it is read.
type ReplayReader struct {
	store   Store
	opts    ListOpts
	pending []*Entry
	n       int64
}

var _ conveyor.Reader = (*ReplayReader)(nil)

// NewReplayReader returns a reader over the entries matching opts that
// were not replayed yet.
func NewReplayReader(store Store, opts ListOpts) *ReplayReader {
	opts.Pending = true
	return &ReplayReader{store: store, opts: opts}
}

func (r *ReplayReader) Name() string { return "dlq-replay" }

// Open snapshots the pending entries.
func (r *ReplayReader) Open(ctx context.Context) error {
	entries, err := r.store.List(ctx, r.opts)
	if err != nil {
		return fmt.Errorf("dlq: list entries: %w", err)
	}
	r.pending = entries
	r.n = 0
	return nil
}

// Read returns the next entry's record, renumbered and with the scanned
// flag cleared.
func (r *ReplayReader) Read(ctx context.Context) (*conveyor.Record, error) {
	if len(r.pending) == 0 {
		return nil, nil
	}
	e := r.pending[0]
	if err := r.store.MarkReplayed(ctx, e.ID, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("dlq: mark %s replayed: %w", e.ID, err)
	}
	r.pending = r.pending[1:]
	r.n++

	h := conveyor.NewHeader(r.n, "dlq:"+e.JobName)
	return e.Record.WithHeader(h), nil
}

func (r *ReplayReader) Close() error {
	r.pending = nil
	return nil
}
