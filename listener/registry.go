package listener

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/xraph/conveyor"
	"github.com/xraph/conveyor/job"
)

// entry pairs a hook with the listener name captured at registration.
type entry[H any] struct {
	name string
	hook H
}

// Registry holds listeners and calls their hooks in onion order. It
// type-caches listeners at registration so emit calls only iterate over
// listeners implementing the relevant hook.
//
// A Registry is not safe for concurrent use; each job owns one.
type Registry struct {
	listeners []Listener
	logger    *slog.Logger

	jobStarting []entry[JobStarting]
	jobEnded    []entry[JobEnded]

	batchReading     []entry[BatchReading]
	batchProcessed   []entry[BatchProcessed]
	batchWritten     []entry[BatchWritten]
	batchWriteFailed []entry[BatchWriteFailed]

	recordReading    []entry[RecordReading]
	recordRead       []entry[RecordRead]
	recordReadFailed []entry[RecordReadFailed]

	recordsWriting     []entry[RecordsWriting]
	recordsWritten     []entry[RecordsWritten]
	recordsWriteFailed []entry[RecordsWriteFailed]

	recordProcessing    []entry[RecordProcessing]
	recordProcessed     []entry[RecordProcessed]
	recordProcessFailed []entry[RecordProcessFailed]
}

// NewRegistry creates a listener registry. A nil logger uses
// slog.Default().
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Register adds l and caches it under every hook it implements.
func (r *Registry) Register(l Listener) {
	r.listeners = append(r.listeners, l)
	name := l.Name()

	cache(&r.jobStarting, name, l)
	cache(&r.jobEnded, name, l)
	cache(&r.batchReading, name, l)
	cache(&r.batchProcessed, name, l)
	cache(&r.batchWritten, name, l)
	cache(&r.batchWriteFailed, name, l)
	cache(&r.recordReading, name, l)
	cache(&r.recordRead, name, l)
	cache(&r.recordReadFailed, name, l)
	cache(&r.recordsWriting, name, l)
	cache(&r.recordsWritten, name, l)
	cache(&r.recordsWriteFailed, name, l)
	cache(&r.recordProcessing, name, l)
	cache(&r.recordProcessed, name, l)
	cache(&r.recordProcessFailed, name, l)
}

func cache[H any](dst *[]entry[H], name string, l Listener) {
	if h, ok := l.(H); ok {
		*dst = append(*dst, entry[H]{name: name, hook: h})
	}
}

// Listeners returns the registered listeners in registration order.
func (r *Registry) Listeners() []Listener { return slices.Clone(r.listeners) }

// Len returns the number of registered listeners.
func (r *Registry) Len() int { return len(r.listeners) }

// forward calls fn for every entry in registration order.
func forward[H any](r *Registry, hookName string, entries []entry[H], fn func(H) error) {
	for _, e := range entries {
		r.call(hookName, e.name, func() error { return fn(e.hook) })
	}
}

// reverse calls fn for every entry in reverse registration order.
func reverse[H any](r *Registry, hookName string, entries []entry[H], fn func(H) error) {
	for _, e := range slices.Backward(entries) {
		r.call(hookName, e.name, func() error { return fn(e.hook) })
	}
}

// call runs one hook, turning errors and panics into log lines.
func (r *Registry) call(hookName, listenerName string, fn func() error) {
	defer func() {
		if p := recover(); p != nil {
			r.logHookError(hookName, listenerName, fmt.Errorf("panic: %v", p))
		}
	}()
	if err := fn(); err != nil {
		r.logHookError(hookName, listenerName, err)
	}
}

// ──────────────────────────────────────────────────
// Job
// ──────────────────────────────────────────────────

// EmitJobStarting notifies JobStarting listeners in registration order.
func (r *Registry) EmitJobStarting(ctx context.Context, p job.Parameters) {
	forward(r, "OnJobStarting", r.jobStarting, func(h JobStarting) error { return h.OnJobStarting(ctx, p) })
}

// EmitJobEnded notifies JobEnded listeners in reverse order.
func (r *Registry) EmitJobEnded(ctx context.Context, rep *job.Report) {
	reverse(r, "OnJobEnded", r.jobEnded, func(h JobEnded) error { return h.OnJobEnded(ctx, rep) })
}

// ──────────────────────────────────────────────────
// Batch
// ──────────────────────────────────────────────────

// EmitBatchReading notifies BatchReading listeners in registration order.
func (r *Registry) EmitBatchReading(ctx context.Context) {
	forward(r, "OnBatchReading", r.batchReading, func(h BatchReading) error { return h.OnBatchReading(ctx) })
}

// EmitBatchProcessed notifies BatchProcessed listeners in reverse order.
func (r *Registry) EmitBatchProcessed(ctx context.Context, b *conveyor.Batch) {
	reverse(r, "OnBatchProcessed", r.batchProcessed, func(h BatchProcessed) error { return h.OnBatchProcessed(ctx, b) })
}

// EmitBatchWritten notifies BatchWritten listeners in reverse order.
func (r *Registry) EmitBatchWritten(ctx context.Context, b *conveyor.Batch) {
	reverse(r, "OnBatchWritten", r.batchWritten, func(h BatchWritten) error { return h.OnBatchWritten(ctx, b) })
}

// EmitBatchWriteFailed notifies BatchWriteFailed listeners in reverse
// order.
func (r *Registry) EmitBatchWriteFailed(ctx context.Context, b *conveyor.Batch, err error) {
	reverse(r, "OnBatchWriteFailed", r.batchWriteFailed, func(h BatchWriteFailed) error { return h.OnBatchWriteFailed(ctx, b, err) })
}

// ──────────────────────────────────────────────────
// Reader
// ──────────────────────────────────────────────────

// EmitRecordReading notifies RecordReading listeners in registration
// order.
func (r *Registry) EmitRecordReading(ctx context.Context) {
	forward(r, "OnRecordReading", r.recordReading, func(h RecordReading) error { return h.OnRecordReading(ctx) })
}

// EmitRecordRead notifies RecordRead listeners in reverse order.
func (r *Registry) EmitRecordRead(ctx context.Context, rec *conveyor.Record) {
	reverse(r, "OnRecordRead", r.recordRead, func(h RecordRead) error { return h.OnRecordRead(ctx, rec) })
}

// EmitRecordReadFailed notifies RecordReadFailed listeners in
// registration order.
func (r *Registry) EmitRecordReadFailed(ctx context.Context, err error) {
	forward(r, "OnRecordReadFailed", r.recordReadFailed, func(h RecordReadFailed) error { return h.OnRecordReadFailed(ctx, err) })
}

// ──────────────────────────────────────────────────
// Writer
// ──────────────────────────────────────────────────

// EmitRecordsWriting notifies RecordsWriting listeners in registration
// order.
func (r *Registry) EmitRecordsWriting(ctx context.Context, b *conveyor.Batch) {
	forward(r, "OnRecordsWriting", r.recordsWriting, func(h RecordsWriting) error { return h.OnRecordsWriting(ctx, b) })
}

// EmitRecordsWritten notifies RecordsWritten listeners in reverse order.
func (r *Registry) EmitRecordsWritten(ctx context.Context, b *conveyor.Batch) {
	reverse(r, "OnRecordsWritten", r.recordsWritten, func(h RecordsWritten) error { return h.OnRecordsWritten(ctx, b) })
}

// EmitRecordsWriteFailed notifies RecordsWriteFailed listeners in reverse
// order.
func (r *Registry) EmitRecordsWriteFailed(ctx context.Context, b *conveyor.Batch, err error) {
	reverse(r, "OnRecordsWriteFailed", r.recordsWriteFailed, func(h RecordsWriteFailed) error { return h.OnRecordsWriteFailed(ctx, b, err) })
}

// ──────────────────────────────────────────────────
// Pipeline
// ──────────────────────────────────────────────────

// EmitRecordProcessing threads rec through the RecordProcessing listeners
// in registration order, each receiving the previous one's output. It
// returns nil as soon as a listener filters the record. A listener that
// fails leaves the record unchanged.
func (r *Registry) EmitRecordProcessing(ctx context.Context, rec *conveyor.Record) *conveyor.Record {
	cur := rec
	for _, e := range r.recordProcessing {
		next := cur
		r.call("OnRecordProcessing", e.name, func() error {
			out, err := e.hook.OnRecordProcessing(ctx, cur)
			if err != nil {
				return err
			}
			next = out
			return nil
		})
		if next == nil {
			return nil
		}
		cur = next
	}
	return cur
}

// EmitRecordProcessed notifies RecordProcessed listeners in reverse order.
func (r *Registry) EmitRecordProcessed(ctx context.Context, in, out *conveyor.Record) {
	reverse(r, "OnRecordProcessed", r.recordProcessed, func(h RecordProcessed) error { return h.OnRecordProcessed(ctx, in, out) })
}

// EmitRecordProcessFailed notifies RecordProcessFailed listeners in
// reverse order.
func (r *Registry) EmitRecordProcessFailed(ctx context.Context, rec *conveyor.Record, err error) {
	reverse(r, "OnRecordProcessFailed", r.recordProcessFailed, func(h RecordProcessFailed) error { return h.OnRecordProcessFailed(ctx, rec, err) })
}

func (r *Registry) logHookError(hook, listenerName string, err error) {
	r.logger.Warn("listener hook error",
		slog.String("hook", hook),
		slog.String("listener", listenerName),
		slog.String("error", err.Error()),
	)
}
