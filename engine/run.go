package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/conveyor"
	"github.com/xraph/conveyor/id"
	"github.com/xraph/conveyor/job"
	"github.com/xraph/conveyor/listener"
	"github.com/xraph/conveyor/monitor"
	"github.com/xraph/conveyor/processor"
)

// run holds the state of one execution of a Job. It is owned by the
// goroutine calling Job.Run.
type run struct {
	job       *Job
	report    *job.Report
	listeners *listener.Registry
	monitor   Monitor
	logger    *slog.Logger

	// thresholdHit is set once the processing error count goes above the
	// error threshold.
	thresholdHit bool
}

func newRun(j *Job) *run {
	runID := id.NewRunID()
	r := &run{
		job:       j,
		report:    job.NewReport(runID, j.params),
		listeners: j.registry,
		logger: j.logger.With(
			slog.String("job_name", j.params.Name),
			slog.String("run_id", runID.String()),
		),
	}
	if j.params.Monitoring {
		r.monitor = j.monitor
		if r.monitor == nil {
			r.monitor = monitor.Default()
		}
	}
	return r
}

func (r *run) metrics() *job.Metrics { return &r.report.Metrics }

func (r *run) execute(ctx context.Context) *job.Report {
	r.metrics().StartTime = time.Now()
	r.register()
	r.logger.Info("job started",
		slog.Int("batch_size", r.job.params.BatchSize),
	)

	r.listeners.EmitJobStarting(ctx, r.job.params)

	if err := guard(func() error { r.loop(ctx); return nil }); err != nil {
		r.fail(fmt.Errorf("engine: unexpected failure: %w", err))
	}
	if r.report.Status == job.StatusRunning || r.report.Status == job.StatusInitializing {
		r.report.Status = job.StatusCompleted
	}
	r.metrics().EndTime = time.Now()
	r.report.Result = r.result()

	r.listeners.EmitJobEnded(ctx, r.report)

	r.close()
	r.unregister()
	r.logFinished()
	return r.report
}

// loop opens the reader and writer and runs batch cycles until the
// reader is exhausted or the run ends early.
func (r *run) loop(ctx context.Context) {
	if err := guard(func() error { return r.job.reader.Open(ctx) }); err != nil {
		r.fail(conveyor.NewStageError(conveyor.StageOpening, "reader", err))
		return
	}
	if err := guard(func() error { return r.job.writer.Open(ctx) }); err != nil {
		r.fail(conveyor.NewStageError(conveyor.StageOpening, "writer", err))
		return
	}
	r.setStatus(job.StatusRunning)

	for {
		if ctx.Err() != nil {
			r.abort(ctx)
			return
		}
		if done := r.cycle(ctx); done {
			return
		}
	}
}

// cycle reads, processes and writes one batch. It reports whether the
// run is over.
func (r *run) cycle(ctx context.Context) bool {
	size := r.job.params.BatchSize
	r.listeners.EmitBatchReading(ctx)

	batch := conveyor.NewBatch(size)
	eos := false
	for batch.Len() < size {
		r.listeners.EmitRecordReading(ctx)

		var rec *conveyor.Record
		err := guard(func() error {
			var rerr error
			rec, rerr = r.job.reader.Read(ctx)
			return rerr
		})
		if err != nil {
			r.listeners.EmitRecordReadFailed(ctx, err)
			if ctx.Err() != nil {
				r.abort(ctx)
			} else {
				r.fail(conveyor.NewStageError(conveyor.StageReading, "reader", err))
			}
			return true
		}
		if rec == nil {
			eos = true
			break
		}

		r.listeners.EmitRecordRead(ctx, rec)
		r.metrics().ReadCount++

		if out := r.process(ctx, rec); out != nil {
			_ = batch.Add(out)
		}
		r.publish()

		if r.thresholdHit {
			r.failThreshold()
			return true
		}
	}

	if batch.IsEmpty() {
		return eos
	}
	batch.Seal()
	if !r.write(ctx, batch) {
		return true
	}
	return eos
}

// process runs one record through the pipeline listeners and the
// processors. It returns nil when the record was filtered or failed.
func (r *run) process(ctx context.Context, rec *conveyor.Record) *conveyor.Record {
	if rec.IsPoison() {
		return rec
	}

	cur := r.listeners.EmitRecordProcessing(ctx, rec)
	if cur == nil {
		r.metrics().FilterCount++
		r.logger.Debug("record filtered by listener", slog.Int64("record_number", rec.Header.Number))
		r.listeners.EmitRecordProcessed(ctx, rec, nil)
		return nil
	}

	for _, p := range r.job.processors {
		var out *conveyor.Record
		err := guard(func() error {
			var perr error
			out, perr = p.Process(ctx, cur)
			return perr
		})
		if err != nil {
			r.processingFailed(ctx, rec, p, err)
			return nil
		}
		if out == nil {
			r.metrics().FilterCount++
			r.logger.Debug("record filtered",
				slog.Int64("record_number", rec.Header.Number),
				slog.String("processor", processor.NameOf(p)),
			)
			r.listeners.EmitRecordProcessed(ctx, rec, nil)
			return nil
		}
		cur = out
	}

	r.listeners.EmitRecordProcessed(ctx, rec, cur)
	return cur
}

func (r *run) processingFailed(ctx context.Context, rec *conveyor.Record, p conveyor.Processor, err error) {
	name := processor.NameOf(p)
	r.listeners.EmitRecordProcessFailed(ctx, rec, err)

	m := r.metrics()
	m.ErrorCount++
	r.report.LastError = conveyor.NewStageError(conveyor.StageProcessing, name, err)
	r.logger.Error("record processing failed",
		slog.Int64("record_number", rec.Header.Number),
		slog.String("processor", name),
		slog.Int64("error_count", m.ErrorCount),
		slog.String("error", err.Error()),
	)

	if m.ErrorCount > r.job.params.ErrorThreshold {
		r.thresholdHit = true
	}
}

// write hands a batch to the writer. It reports whether the run can
// continue.
func (r *run) write(ctx context.Context, batch *conveyor.Batch) bool {
	r.listeners.EmitBatchProcessed(ctx, batch)
	r.listeners.EmitRecordsWriting(ctx, batch)

	err := guard(func() error { return r.job.writer.Write(ctx, batch) })
	if err != nil {
		r.listeners.EmitRecordsWriteFailed(ctx, batch, err)
		r.listeners.EmitBatchWriteFailed(ctx, batch, err)

		if ctx.Err() != nil {
			r.abort(ctx)
			return false
		}
		if r.job.params.BatchScanning {
			r.logger.Warn("batch write failed, scanning records",
				slog.Int("batch_len", batch.Len()),
				slog.String("error", err.Error()),
			)
			return r.scan(ctx, batch)
		}
		r.fail(conveyor.NewStageError(conveyor.StageWriting, "writer", err))
		return false
	}

	r.listeners.EmitRecordsWritten(ctx, batch)
	r.listeners.EmitBatchWritten(ctx, batch)
	r.metrics().WriteCount += int64(batch.Len())
	r.publish()
	return true
}

// scan writes the records of a failed batch one at a time, each marked as
// scanned. Records that still fail count as errors.
func (r *run) scan(ctx context.Context, batch *conveyor.Batch) bool {
	for _, rec := range batch.All() {
		h := rec.Header
		h.Scanned = true
		single := conveyor.BatchOf(rec.WithHeader(h))

		r.listeners.EmitRecordsWriting(ctx, single)
		err := guard(func() error { return r.job.writer.Write(ctx, single) })
		if err != nil {
			r.listeners.EmitRecordsWriteFailed(ctx, single, err)
			m := r.metrics()
			m.ErrorCount++
			r.report.LastError = conveyor.NewStageError(conveyor.StageWriting, "writer", err)
			r.logger.Error("scanned record write failed",
				slog.Int64("record_number", rec.Header.Number),
				slog.String("error", err.Error()),
			)
			if m.ErrorCount > r.job.params.ErrorThreshold {
				r.failThreshold()
				return false
			}
			continue
		}
		r.listeners.EmitRecordsWritten(ctx, single)
		r.metrics().WriteCount++
	}
	r.publish()
	return true
}

// close closes the reader and then the writer. Both are attempted; a
// close failure is recorded only when no earlier error was.
func (r *run) close() {
	for _, c := range []struct {
		name string
		fn   func() error
	}{
		{"reader", r.job.reader.Close},
		{"writer", r.job.writer.Close},
	} {
		if err := guard(c.fn); err != nil {
			r.logger.Warn("close failed",
				slog.String("component", c.name),
				slog.String("error", err.Error()),
			)
			if r.report.LastError == nil {
				r.report.LastError = conveyor.NewStageError(conveyor.StageClosing, c.name, err)
			}
		}
	}
}

func (r *run) result() any {
	var res any
	for _, p := range r.job.processors {
		if h, ok := p.(conveyor.ResultHolder); ok {
			if v := h.Result(); v != nil {
				res = v
			}
		}
	}
	if h, ok := r.job.writer.(conveyor.ResultHolder); ok {
		if v := h.Result(); v != nil {
			res = v
		}
	}
	return res
}

// ──────────────────────────────────────────────────
// Status transitions
// ──────────────────────────────────────────────────

func (r *run) setStatus(s job.Status) {
	r.report.Status = s
	r.publish()
}

func (r *run) fail(err error) {
	r.report.LastError = err
	r.logger.Error("job failed", slog.String("error", err.Error()))
	r.setStatus(job.StatusFailed)
}

func (r *run) failThreshold() {
	err := fmt.Errorf("%w: %d error(s), threshold %d", conveyor.ErrErrorThreshold,
		r.metrics().ErrorCount, r.job.params.ErrorThreshold)
	if r.report.LastError != nil {
		err = fmt.Errorf("%w: last error: %w", err, r.report.LastError)
	}
	r.fail(err)
}

func (r *run) abort(ctx context.Context) {
	r.report.LastError = fmt.Errorf("%w: %w", conveyor.ErrInterrupted, context.Cause(ctx))
	r.logger.Warn("job aborted", slog.String("error", r.report.LastError.Error()))
	r.setStatus(job.StatusAborted)
}

// ──────────────────────────────────────────────────
// Monitoring
// ──────────────────────────────────────────────────

func (r *run) register() {
	if r.monitor == nil {
		return
	}
	if err := r.monitor.Register(r.report.RunID, r.report.Clone()); err != nil {
		r.logger.Warn("monitor registration failed", slog.String("error", err.Error()))
		r.monitor = nil
	}
}

func (r *run) publish() {
	if r.monitor != nil {
		r.monitor.Publish(r.report.Clone())
	}
}

func (r *run) unregister() {
	if r.monitor == nil {
		return
	}
	r.monitor.Publish(r.report.Clone())
	r.monitor.Unregister(r.report.RunID)
}

func (r *run) logFinished() {
	m := r.report.Metrics
	attrs := []any{
		slog.String("status", string(r.report.Status)),
		slog.Int64("read_count", m.ReadCount),
		slog.Int64("write_count", m.WriteCount),
		slog.Int64("filter_count", m.FilterCount),
		slog.Int64("error_count", m.ErrorCount),
		slog.Duration("elapsed", m.Duration()),
	}
	if r.report.Status == job.StatusCompleted {
		r.logger.Info("job completed", attrs...)
		return
	}
	r.logger.Warn("job ended", attrs...)
}

// guard calls fn and turns a panic into an error.
func guard(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			if perr, ok := p.(error); ok {
				err = fmt.Errorf("panic: %w", perr)
				return
			}
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn()
}
