// Package listener defines the lifecycle hooks a job notifies while it
// runs, and the Registry that dispatches them.
//
// Each hook is its own interface so a listener opts in only to the
// events it cares about. Hooks come in five groups: job, batch, reader,
// writer and pipeline.
//
// Within every group "before" hooks run in registration order and the
// matching "after" and failure hooks run in reverse registration order,
// so the first registered listener wraps all others like the outer layer
// of an onion. Reader failure hooks are the one exception and run in
// registration order.
//
// Errors returned by hooks are logged and never change the outcome of
// the job.
package listener

import (
	"context"

	"github.com/xraph/conveyor"
	"github.com/xraph/conveyor/job"
)

// Listener is the base interface all listeners implement.
type Listener interface {
	// Name returns a human-readable name used in logs.
	Name() string
}

// ──────────────────────────────────────────────────
// Job hooks
// ──────────────────────────────────────────────────

// JobStarting is called before the reader is opened.
type JobStarting interface {
	OnJobStarting(ctx context.Context, params job.Parameters) error
}

// JobEnded is called with the final report, before the reader and
// writer are closed.
type JobEnded interface {
	OnJobEnded(ctx context.Context, report *job.Report) error
}

// ──────────────────────────────────────────────────
// Batch hooks
// ──────────────────────────────────────────────────

// BatchReading is called every time the job starts filling a batch,
// including the last attempt that only finds end of stream.
type BatchReading interface {
	OnBatchReading(ctx context.Context) error
}

// BatchProcessed is called when a batch is full and about to be written.
type BatchProcessed interface {
	OnBatchProcessed(ctx context.Context, b *conveyor.Batch) error
}

// BatchWritten is called after a batch was written.
type BatchWritten interface {
	OnBatchWritten(ctx context.Context, b *conveyor.Batch) error
}

// BatchWriteFailed is called when writing a batch failed.
type BatchWriteFailed interface {
	OnBatchWriteFailed(ctx context.Context, b *conveyor.Batch, err error) error
}

// ──────────────────────────────────────────────────
// Reader hooks
// ──────────────────────────────────────────────────

// RecordReading is called before each read.
type RecordReading interface {
	OnRecordReading(ctx context.Context) error
}

// RecordRead is called with every record returned by the reader. It is
// not called at end of stream.
type RecordRead interface {
	OnRecordRead(ctx context.Context, r *conveyor.Record) error
}

// RecordReadFailed is called when the reader returned an error.
type RecordReadFailed interface {
	OnRecordReadFailed(ctx context.Context, err error) error
}

// ──────────────────────────────────────────────────
// Writer hooks
// ──────────────────────────────────────────────────

// RecordsWriting is called before a batch is handed to the writer.
type RecordsWriting interface {
	OnRecordsWriting(ctx context.Context, b *conveyor.Batch) error
}

// RecordsWritten is called after the writer accepted a batch.
type RecordsWritten interface {
	OnRecordsWritten(ctx context.Context, b *conveyor.Batch) error
}

// RecordsWriteFailed is called when the writer rejected a batch.
type RecordsWriteFailed interface {
	OnRecordsWriteFailed(ctx context.Context, b *conveyor.Batch, err error) error
}

// ──────────────────────────────────────────────────
// Pipeline hooks
// ──────────────────────────────────────────────────

// RecordProcessing is called before the processor chain runs. It may
// return a replacement record; returning nil filters the record out and
// skips the processor chain.
type RecordProcessing interface {
	OnRecordProcessing(ctx context.Context, r *conveyor.Record) (*conveyor.Record, error)
}

// RecordProcessed is called after the processor chain. out is nil when
// the record was filtered.
type RecordProcessed interface {
	OnRecordProcessed(ctx context.Context, in, out *conveyor.Record) error
}

// RecordProcessFailed is called when a processor returned an error.
type RecordProcessFailed interface {
	OnRecordProcessFailed(ctx context.Context, r *conveyor.Record, err error) error
}
