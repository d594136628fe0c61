package dlq

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/xraph/conveyor"
	"github.com/xraph/conveyor/id"
	"github.com/xraph/conveyor/job"
	"github.com/xraph/conveyor/listener"
)

// Listener pushes failed records to a Store.
type Listener struct {
	store Store
	now   func() time.Time

	mu       sync.Mutex
	jobName  string
	scanning bool
}

// Compile-time interface checks.
var (
	_ listener.Listener            = (*Listener)(nil)
	_ listener.JobStarting         = (*Listener)(nil)
	_ listener.RecordProcessFailed = (*Listener)(nil)
	_ listener.RecordsWriteFailed  = (*Listener)(nil)
)

// NewListener returns a Listener writing to store.
func NewListener(store Store) *Listener {
	return &Listener{store: store, now: func() time.Time { return time.Now().UTC() }}
}

func (l *Listener) Name() string { return "dlq" }

func (l *Listener) OnJobStarting(_ context.Context, params job.Parameters) error {
	l.mu.Lock()
	l.jobName = params.Name
	l.scanning = params.BatchScanning
	l.mu.Unlock()
	return nil
}

func (l *Listener) OnRecordProcessFailed(ctx context.Context, r *conveyor.Record, err error) error {
	return l.push(ctx, StageProcessing, r, err)
}

// OnRecordsWriteFailed captures the records of a rejected batch. When the
// job scans failed batches, only the records that fail on their own are
// kept.
func (l *Listener) OnRecordsWriteFailed(ctx context.Context, b *conveyor.Batch, err error) error {
	l.mu.Lock()
	scanning := l.scanning
	l.mu.Unlock()

	var errs []error
	for _, r := range b.All() {
		if r.IsPoison() || (scanning && !r.Header.Scanned) {
			continue
		}
		if perr := l.push(ctx, StageWriting, r, err); perr != nil {
			errs = append(errs, perr)
		}
	}
	return errors.Join(errs...)
}

func (l *Listener) push(ctx context.Context, stage string, r *conveyor.Record, cause error) error {
	l.mu.Lock()
	name := l.jobName
	l.mu.Unlock()

	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return l.store.Push(ctx, &Entry{
		ID:       id.NewDeadLetterID(),
		JobName:  name,
		Stage:    stage,
		Record:   r,
		Error:    msg,
		FailedAt: l.now(),
	})
}
