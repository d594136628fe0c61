package engine_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/conveyor"
	"github.com/xraph/conveyor/engine"
	"github.com/xraph/conveyor/job"
	"github.com/xraph/conveyor/processor"
	"github.com/xraph/conveyor/retry"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func newJob(t *testing.T, opts ...engine.Option) *engine.Job {
	t.Helper()
	j, err := engine.New(append([]engine.Option{engine.WithLogger(quiet)}, opts...)...)
	require.NoError(t, err)
	return j
}

func TestJob_CallOrder(t *testing.T) {
	tr := &trace{}
	reader := &testReader{trace: tr, records: records(2)}
	writer := &testWriter{trace: tr}

	j := newJob(t,
		engine.WithName("call-order"),
		engine.WithReader(reader),
		engine.WithWriter(writer),
		engine.WithProcessors(
			&tracedProcessor{name: "p1", trace: tr},
			&tracedProcessor{name: "p2", trace: tr},
		),
		engine.WithBatchSize(2),
	)

	rep := j.Run(context.Background())

	assert.Equal(t, []string{
		"reader.open",
		"writer.open",
		"read r1", "p1(r1)", "p2(r1)",
		"read r2", "p1(r2)", "p2(r2)",
		"write [r1 r2]",
		"reader.close",
		"writer.close",
	}, tr.all())

	assert.Equal(t, job.StatusCompleted, rep.Status)
	assert.Equal(t, "call-order", rep.JobName)
	assert.Equal(t, int64(2), rep.Metrics.ReadCount)
	assert.Equal(t, int64(2), rep.Metrics.WriteCount)
	assert.Zero(t, rep.Metrics.FilterCount)
	assert.Zero(t, rep.Metrics.ErrorCount)
	assert.NoError(t, rep.LastError)
	assert.False(t, rep.Metrics.StartTime.IsZero())
	assert.False(t, rep.Metrics.EndTime.Before(rep.Metrics.StartTime))
}

func TestJob_CountsForAnyBatchSize(t *testing.T) {
	for _, size := range []int{1, 2, 3, 7, 10, 11} {
		t.Run(fmt.Sprintf("batch=%d", size), func(t *testing.T) {
			writer := &testWriter{}
			j := newJob(t,
				engine.WithReader(&testReader{records: records(10)}),
				engine.WithWriter(writer),
				engine.WithBatchSize(size),
			)

			rep := j.Run(context.Background())
			require.Equal(t, job.StatusCompleted, rep.Status)
			assert.Equal(t, int64(10), rep.Metrics.ReadCount)
			assert.Equal(t, int64(10), rep.Metrics.WriteCount)
			assert.Zero(t, rep.Metrics.FilterCount)
			assert.Zero(t, rep.Metrics.ErrorCount)

			wantBatches := (10 + size - 1) / size
			assert.Len(t, writer.batches, wantBatches)
			for i, b := range writer.batches[:wantBatches-1] {
				assert.Len(t, b, size, "batch %d", i)
			}
		})
	}
}

func TestJob_EmptySource(t *testing.T) {
	writer := &testWriter{}
	rep := newJob(t, engine.WithReader(&testReader{}), engine.WithWriter(writer)).Run(context.Background())

	assert.Equal(t, job.StatusCompleted, rep.Status)
	assert.Zero(t, rep.Metrics.ReadCount)
	assert.Empty(t, writer.batches)
	assert.True(t, writer.opened)
	assert.True(t, writer.closed)
}

func TestJob_DefaultsToNopReaderAndWriter(t *testing.T) {
	rep := newJob(t).Run(context.Background())
	assert.Equal(t, job.StatusCompleted, rep.Status)
	assert.Equal(t, job.DefaultName, rep.JobName)
}

func TestJob_FilteredRecord(t *testing.T) {
	writer := &testWriter{}
	p2 := &tracedProcessor{name: "p2"}
	p1 := &tracedProcessor{name: "p1", fn: func(r *conveyor.Record) (*conveyor.Record, error) {
		if r.Payload == "r2" {
			return nil, nil
		}
		return r, nil
	}}

	rep := newJob(t,
		engine.WithReader(&testReader{records: records(3)}),
		engine.WithWriter(writer),
		engine.WithProcessors(p1, p2),
	).Run(context.Background())

	assert.Equal(t, job.StatusCompleted, rep.Status)
	assert.Equal(t, int64(3), rep.Metrics.ReadCount)
	assert.Equal(t, int64(1), rep.Metrics.FilterCount)
	assert.Equal(t, int64(2), rep.Metrics.WriteCount)
	assert.Equal(t, 3, p1.calls)
	assert.Equal(t, 2, p2.calls, "downstream processor must not see the filtered record")
	assert.Equal(t, [][]any{{"r1", "r3"}}, writer.batches)
}

func TestJob_TransformingProcessor(t *testing.T) {
	writer := &testWriter{}
	rep := newJob(t,
		engine.WithReader(&testReader{records: records(2)}),
		engine.WithWriter(writer),
		engine.WithProcessors(processor.Map(func(_ context.Context, s string) (int, error) {
			return len(s), nil
		})),
	).Run(context.Background())

	require.Equal(t, job.StatusCompleted, rep.Status)
	assert.Equal(t, [][]any{{2, 2}}, writer.batches)
	assert.Equal(t, int64(1), writer.written[0].Header.Number)
}

func TestJob_ProcessingErrorIsRecovered(t *testing.T) {
	boom := errors.New("boom")
	writer := &testWriter{}
	p := &tracedProcessor{name: "validator", fn: func(r *conveyor.Record) (*conveyor.Record, error) {
		if r.Payload == "r2" {
			return nil, boom
		}
		return r, nil
	}}

	rep := newJob(t,
		engine.WithReader(&testReader{records: records(3)}),
		engine.WithWriter(writer),
		engine.WithProcessors(p),
	).Run(context.Background())

	assert.Equal(t, job.StatusCompleted, rep.Status)
	assert.Equal(t, int64(1), rep.Metrics.ErrorCount)
	assert.Equal(t, int64(2), rep.Metrics.WriteCount)
	assert.Equal(t, [][]any{{"r1", "r3"}}, writer.batches)

	require.Error(t, rep.LastError)
	assert.ErrorIs(t, rep.LastError, conveyor.ErrProcessing)
	assert.ErrorIs(t, rep.LastError, boom)
	stage, ok := conveyor.StageOf(rep.LastError)
	require.True(t, ok)
	assert.Equal(t, conveyor.StageProcessing, stage)
}

func failing(payloads ...string) *tracedProcessor {
	bad := map[any]bool{}
	for _, p := range payloads {
		bad[p] = true
	}
	return &tracedProcessor{name: "failing", fn: func(r *conveyor.Record) (*conveyor.Record, error) {
		if bad[r.Payload] {
			return nil, fmt.Errorf("bad record %v", r.Payload)
		}
		return r, nil
	}}
}

func TestJob_ErrorThresholdBoundary(t *testing.T) {
	t.Run("errors equal to threshold complete", func(t *testing.T) {
		rep := newJob(t,
			engine.WithReader(&testReader{records: records(4)}),
			engine.WithProcessors(failing("r1", "r2")),
			engine.WithErrorThreshold(2),
		).Run(context.Background())

		assert.Equal(t, job.StatusCompleted, rep.Status)
		assert.Equal(t, int64(2), rep.Metrics.ErrorCount)
		assert.Equal(t, int64(4), rep.Metrics.ReadCount)
	})

	t.Run("errors above threshold fail", func(t *testing.T) {
		writer := &testWriter{}
		rep := newJob(t,
			engine.WithReader(&testReader{records: records(4)}),
			engine.WithWriter(writer),
			engine.WithProcessors(failing("r1", "r2")),
			engine.WithErrorThreshold(1),
		).Run(context.Background())

		assert.Equal(t, job.StatusFailed, rep.Status)
		assert.Equal(t, int64(2), rep.Metrics.ErrorCount)
		assert.Equal(t, int64(2), rep.Metrics.ReadCount, "reading stops at the error that crosses the threshold")
		assert.Empty(t, writer.batches, "the batch in progress is not written")
		assert.ErrorIs(t, rep.LastError, conveyor.ErrErrorThreshold)
		assert.ErrorIs(t, rep.LastError, conveyor.ErrProcessing)
	})

	t.Run("zero threshold fails on first error", func(t *testing.T) {
		writer := &testWriter{}
		rep := newJob(t,
			engine.WithReader(&testReader{records: records(4)}),
			engine.WithWriter(writer),
			engine.WithProcessors(failing("r3")),
			engine.WithErrorThreshold(0),
			engine.WithBatchSize(2),
		).Run(context.Background())

		assert.Equal(t, job.StatusFailed, rep.Status)
		assert.Equal(t, int64(1), rep.Metrics.ErrorCount)
		assert.Equal(t, [][]any{{"r1", "r2"}}, writer.batches, "earlier batches stay written")
	})
}

func TestJob_ReaderOpenFailure(t *testing.T) {
	openErr := errors.New("no source")
	reader := &testReader{openErr: openErr, records: records(1)}
	writer := &testWriter{}

	rep := newJob(t, engine.WithReader(reader), engine.WithWriter(writer)).Run(context.Background())

	assert.Equal(t, job.StatusFailed, rep.Status)
	assert.ErrorIs(t, rep.LastError, conveyor.ErrOpening)
	assert.ErrorIs(t, rep.LastError, openErr)
	assert.False(t, writer.opened)
	assert.True(t, reader.closed)
	assert.True(t, writer.closed)
}

func TestJob_WriterOpenFailure(t *testing.T) {
	openErr := errors.New("no sink")
	reader := &testReader{records: records(3)}
	writer := &testWriter{openErr: openErr}

	rep := newJob(t, engine.WithReader(reader), engine.WithWriter(writer)).Run(context.Background())

	assert.Equal(t, job.StatusFailed, rep.Status)
	assert.ErrorIs(t, rep.LastError, openErr)
	assert.ErrorIs(t, rep.LastError, conveyor.ErrOpening)
	assert.Zero(t, rep.Metrics.ReadCount)
	assert.Zero(t, rep.Metrics.WriteCount)
	assert.Zero(t, rep.Metrics.FilterCount)
	assert.Zero(t, rep.Metrics.ErrorCount)
	assert.True(t, reader.closed)
	assert.True(t, writer.closed)
}

func TestJob_ReadFailure(t *testing.T) {
	readErr := errors.New("corrupt input")
	writer := &testWriter{}
	rep := newJob(t,
		engine.WithReader(&testReader{records: records(5), failAt: 3, readErr: readErr}),
		engine.WithWriter(writer),
	).Run(context.Background())

	assert.Equal(t, job.StatusFailed, rep.Status)
	assert.ErrorIs(t, rep.LastError, conveyor.ErrReading)
	assert.ErrorIs(t, rep.LastError, readErr)
	assert.Equal(t, int64(2), rep.Metrics.ReadCount)
	assert.Empty(t, writer.batches)
}

func TestJob_WriteFailure(t *testing.T) {
	writeErr := errors.New("disk full")
	writer := &testWriter{failOn: func(*conveyor.Batch) error { return writeErr }}
	reader := &testReader{records: records(5)}

	rep := newJob(t,
		engine.WithReader(reader),
		engine.WithWriter(writer),
		engine.WithBatchSize(2),
	).Run(context.Background())

	assert.Equal(t, job.StatusFailed, rep.Status)
	assert.ErrorIs(t, rep.LastError, conveyor.ErrWriting)
	assert.ErrorIs(t, rep.LastError, writeErr)
	assert.Equal(t, int64(2), rep.Metrics.ReadCount)
	assert.Zero(t, rep.Metrics.WriteCount)
	assert.True(t, reader.closed)
	assert.True(t, writer.closed)
}

func TestJob_CloseFailures(t *testing.T) {
	t.Run("close error recorded when nothing else failed", func(t *testing.T) {
		closeErr := errors.New("flush failed")
		writer := &testWriter{closeErr: closeErr}
		rep := newJob(t,
			engine.WithReader(&testReader{records: records(1)}),
			engine.WithWriter(writer),
		).Run(context.Background())

		assert.Equal(t, job.StatusCompleted, rep.Status)
		assert.ErrorIs(t, rep.LastError, conveyor.ErrClosing)
		assert.ErrorIs(t, rep.LastError, closeErr)
	})

	t.Run("close error does not mask earlier error", func(t *testing.T) {
		openErr := errors.New("no sink")
		reader := &testReader{closeErr: errors.New("reader close")}
		writer := &testWriter{openErr: openErr, closeErr: errors.New("writer close")}
		rep := newJob(t, engine.WithReader(reader), engine.WithWriter(writer)).Run(context.Background())

		assert.Equal(t, job.StatusFailed, rep.Status)
		assert.ErrorIs(t, rep.LastError, openErr)
		assert.True(t, reader.closed)
		assert.True(t, writer.closed, "writer close is attempted after the reader close failed")
	})
}

func TestJob_BatchScanning(t *testing.T) {
	recErr := errors.New("constraint violation")
	writer := &testWriter{failOn: func(b *conveyor.Batch) error {
		if b.Len() > 1 {
			return errors.New("batch rejected")
		}
		for _, r := range b.All() {
			if r.Payload == "r2" {
				return recErr
			}
		}
		return nil
	}}

	rep := newJob(t,
		engine.WithReader(&testReader{records: records(3)}),
		engine.WithWriter(writer),
		engine.WithBatchSize(3),
		engine.WithBatchScanning(true),
	).Run(context.Background())

	assert.Equal(t, job.StatusCompleted, rep.Status)
	assert.Equal(t, int64(2), rep.Metrics.WriteCount)
	assert.Equal(t, int64(1), rep.Metrics.ErrorCount)
	assert.ErrorIs(t, rep.LastError, recErr)
	assert.Equal(t, [][]any{{"r1"}, {"r3"}}, writer.batches)
	for _, r := range writer.written {
		assert.True(t, r.Header.Scanned)
	}
}

func TestJob_BatchScanningRespectsThreshold(t *testing.T) {
	writer := &testWriter{failOn: func(*conveyor.Batch) error { return errors.New("down") }}
	rep := newJob(t,
		engine.WithReader(&testReader{records: records(4)}),
		engine.WithWriter(writer),
		engine.WithBatchSize(4),
		engine.WithBatchScanning(true),
		engine.WithErrorThreshold(1),
	).Run(context.Background())

	assert.Equal(t, job.StatusFailed, rep.Status)
	assert.Equal(t, int64(2), rep.Metrics.ErrorCount)
	assert.ErrorIs(t, rep.LastError, conveyor.ErrErrorThreshold)
}

func TestJob_CancelledBeforeRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reader := &testReader{records: records(3)}
	writer := &testWriter{}
	rep := newJob(t, engine.WithReader(reader), engine.WithWriter(writer)).Run(ctx)

	assert.Equal(t, job.StatusAborted, rep.Status)
	assert.ErrorIs(t, rep.LastError, conveyor.ErrInterrupted)
	assert.ErrorIs(t, rep.LastError, context.Canceled)
	assert.Zero(t, rep.Metrics.ReadCount)
	assert.True(t, reader.closed)
	assert.True(t, writer.closed)
}

// cancelAfterBatch cancels the run once the first batch is written.
type cancelAfterBatch struct {
	cancel context.CancelFunc
}

func (c *cancelAfterBatch) Name() string { return "cancel-after-batch" }

func (c *cancelAfterBatch) OnBatchWritten(context.Context, *conveyor.Batch) error {
	c.cancel()
	return nil
}

func TestJob_CancelledBetweenBatches(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	writer := &testWriter{}
	rep := newJob(t,
		engine.WithReader(&testReader{records: records(10)}),
		engine.WithWriter(writer),
		engine.WithBatchSize(3),
		engine.WithListener(&cancelAfterBatch{cancel: cancel}),
	).Run(ctx)

	assert.Equal(t, job.StatusAborted, rep.Status)
	assert.Equal(t, int64(3), rep.Metrics.ReadCount, "the current batch finishes before stopping")
	assert.Equal(t, int64(3), rep.Metrics.WriteCount)
	assert.Len(t, writer.batches, 1)
}

func TestJob_PanicsAreContained(t *testing.T) {
	t.Run("processor panic counts as processing error", func(t *testing.T) {
		p := &tracedProcessor{name: "panicky", fn: func(r *conveyor.Record) (*conveyor.Record, error) {
			if r.Payload == "r1" {
				panic("unexpected payload")
			}
			return r, nil
		}}
		rep := newJob(t,
			engine.WithReader(&testReader{records: records(2)}),
			engine.WithProcessors(p),
		).Run(context.Background())

		assert.Equal(t, job.StatusCompleted, rep.Status)
		assert.Equal(t, int64(1), rep.Metrics.ErrorCount)
		assert.Contains(t, rep.LastError.Error(), "unexpected payload")
	})

	t.Run("writer panic fails the job", func(t *testing.T) {
		writer := &testWriter{failOn: func(*conveyor.Batch) error { panic(errors.New("nil map")) }}
		rep := newJob(t,
			engine.WithReader(&testReader{records: records(2)}),
			engine.WithWriter(writer),
		).Run(context.Background())

		assert.Equal(t, job.StatusFailed, rep.Status)
		assert.ErrorIs(t, rep.LastError, conveyor.ErrWriting)
		assert.Contains(t, rep.LastError.Error(), "nil map")
	})
}

func TestJob_PoisonRecordBypassesPipeline(t *testing.T) {
	writer := &testWriter{}
	p := &tracedProcessor{name: "p"}
	recs := append(records(1), conveyor.NewPoisonRecord())

	rep := newJob(t,
		engine.WithReader(&testReader{records: recs}),
		engine.WithWriter(writer),
		engine.WithProcessors(p),
	).Run(context.Background())

	assert.Equal(t, job.StatusCompleted, rep.Status)
	assert.Equal(t, 1, p.calls)
	require.Len(t, writer.written, 2)
	assert.True(t, writer.written[1].IsPoison())
}

func TestJob_Monitor(t *testing.T) {
	mon := &fakeMonitor{}
	rep := newJob(t,
		engine.WithReader(&testReader{records: records(3)}),
		engine.WithMonitor(mon),
	).Run(context.Background())

	require.Equal(t, job.StatusCompleted, rep.Status)
	assert.True(t, rep.Parameters.Monitoring)

	require.Len(t, mon.registered, 1)
	assert.Equal(t, rep.RunID, mon.registered[0])
	assert.Equal(t, mon.registered, mon.unregistered)

	require.NotEmpty(t, mon.published)
	last := mon.published[len(mon.published)-1]
	assert.Equal(t, job.StatusCompleted, last.Status)
	assert.Equal(t, int64(3), last.Metrics.WriteCount)
	assert.NotSame(t, rep, last, "monitor receives snapshots, not the live report")
}

func TestJob_MonitorRegistrationFailure(t *testing.T) {
	mon := &fakeMonitor{registerErr: errors.New("name taken")}
	rep := newJob(t,
		engine.WithReader(&testReader{records: records(2)}),
		engine.WithMonitor(mon),
	).Run(context.Background())

	assert.Equal(t, job.StatusCompleted, rep.Status)
	assert.Empty(t, mon.published)
	assert.Empty(t, mon.unregistered)
}

func TestJob_EachRunGetsItsOwnRunID(t *testing.T) {
	j := newJob(t, engine.WithReader(&testReader{records: records(1)}))
	first := j.Run(context.Background())
	second := j.Run(context.Background())

	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, int64(1), second.Metrics.ReadCount)
}

// resultWriter is a writer contributing a job result.
type resultWriter struct {
	testWriter
}

func (w *resultWriter) Result() any { return len(w.written) }

func TestJob_Result(t *testing.T) {
	t.Run("processor result", func(t *testing.T) {
		counter := &processor.Counter{}
		rep := newJob(t,
			engine.WithReader(&testReader{records: records(4)}),
			engine.WithProcessors(counter),
		).Run(context.Background())
		assert.Equal(t, int64(4), rep.Result)
	})

	t.Run("writer result wins", func(t *testing.T) {
		rep := newJob(t,
			engine.WithReader(&testReader{records: records(4)}),
			engine.WithProcessors(&processor.Counter{}),
			engine.WithWriter(&resultWriter{}),
		).Run(context.Background())
		assert.Equal(t, 4, rep.Result)
	})

	t.Run("no holder", func(t *testing.T) {
		rep := newJob(t, engine.WithReader(&testReader{records: records(1)})).Run(context.Background())
		assert.Nil(t, rep.Result)
	})
}

// flakyReader fails its first failures reads with a transient error.
type flakyReader struct {
	testReader
	failures int
	calls    int
}

func (r *flakyReader) Read(ctx context.Context) (*conveyor.Record, error) {
	r.calls++
	if r.failures > 0 {
		r.failures--
		return nil, errors.New("connection reset")
	}
	return r.testReader.Read(ctx)
}

func TestJob_ReaderRetry(t *testing.T) {
	reader := &flakyReader{testReader: testReader{records: records(2)}, failures: 2}
	rep := newJob(t,
		engine.WithReader(reader),
		engine.WithReaderRetry(retry.NewPolicy(3, time.Millisecond)),
	).Run(context.Background())

	assert.Equal(t, job.StatusCompleted, rep.Status)
	assert.Equal(t, int64(2), rep.Metrics.ReadCount)
	assert.True(t, reader.closed, "close passes through the retry decorator")
}

func TestJob_WriterRetryExhausted(t *testing.T) {
	attempts := 0
	writer := &testWriter{failOn: func(*conveyor.Batch) error {
		attempts++
		return errors.New("service unavailable")
	}}

	rep := newJob(t,
		engine.WithReader(&testReader{records: records(1)}),
		engine.WithWriter(writer),
		engine.WithWriterRetry(retry.NewPolicy(3, 0)),
	).Run(context.Background())

	assert.Equal(t, job.StatusFailed, rep.Status)
	assert.Equal(t, 3, attempts)
	assert.ErrorIs(t, rep.LastError, conveyor.ErrRetryExhausted)
	assert.ErrorIs(t, rep.LastError, conveyor.ErrWriting)
}

func TestJob_RetryNeedsComponent(t *testing.T) {
	_, err := engine.New(engine.WithReaderRetry(retry.NewPolicy(2, 0)))
	require.Error(t, err)

	_, err = engine.New(engine.WithWriter(&testWriter{}), engine.WithWriterRetry(retry.NewPolicy(0, 0)))
	require.Error(t, err)
}

func TestJob_Middleware(t *testing.T) {
	var seen []string
	mw := func(ctx context.Context, r *conveyor.Record, next processor.Handler) (*conveyor.Record, error) {
		seen = append(seen, fmt.Sprintf("before %v", r.Payload))
		out, err := next(ctx, r)
		seen = append(seen, fmt.Sprintf("after %v", r.Payload))
		return out, err
	}

	rep := newJob(t,
		engine.WithReader(&testReader{records: records(1)}),
		engine.WithProcessors(&tracedProcessor{name: "a"}, &tracedProcessor{name: "b"}),
		engine.WithMiddleware(mw, processor.Recover(quiet)),
	).Run(context.Background())

	require.Equal(t, job.StatusCompleted, rep.Status)
	assert.Equal(t, []string{"before r1", "after r1", "before r1", "after r1"}, seen)
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name string
		opts []engine.Option
	}{
		{"zero batch size", []engine.Option{engine.WithBatchSize(0)}},
		{"negative threshold", []engine.Option{engine.WithErrorThreshold(-1)}},
		{"empty name", []engine.Option{engine.WithName("")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.New(tt.opts...)
			require.Error(t, err)
			assert.ErrorIs(t, err, conveyor.ErrInvalidParameters)
		})
	}

	_, err := engine.New(engine.WithProcessors(nil))
	require.Error(t, err)
	_, err = engine.New(engine.WithReader(nil))
	require.Error(t, err)
}

func TestNew_NilLoggerFallsBackToDefault(t *testing.T) {
	writer := &testWriter{}
	j, err := engine.New(
		engine.WithLogger(nil),
		engine.WithReader(&testReader{records: records(2)}),
		engine.WithWriter(writer),
	)
	require.NoError(t, err)

	var rep *job.Report
	require.NotPanics(t, func() { rep = j.Run(context.Background()) })
	require.Equal(t, job.StatusCompleted, rep.Status)
	assert.Equal(t, int64(2), rep.Metrics.WriteCount)
}

func TestJob_Accessors(t *testing.T) {
	j := newJob(t, engine.WithName("accessors"), engine.WithBatchSize(5))
	assert.Equal(t, "accessors", j.Name())
	assert.Equal(t, 5, j.Parameters().BatchSize)
	assert.False(t, j.ID().IsNil())
}

// blockingReader blocks in Open until released.
type blockingReader struct {
	conveyor.NopReader
	entered chan struct{}
	release chan struct{}
}

func (r *blockingReader) Open(context.Context) error {
	close(r.entered)
	<-r.release
	return nil
}

func TestJob_ConcurrentRunRejected(t *testing.T) {
	reader := &blockingReader{entered: make(chan struct{}), release: make(chan struct{})}
	j := newJob(t, engine.WithReader(reader))

	done := make(chan *job.Report)
	go func() { done <- j.Run(context.Background()) }()
	<-reader.entered

	rep := j.Run(context.Background())
	assert.Equal(t, job.StatusFailed, rep.Status)
	assert.ErrorIs(t, rep.LastError, engine.ErrJobRunning)

	close(reader.release)
	assert.Equal(t, job.StatusCompleted, (<-done).Status)
}

func TestJob_Call(t *testing.T) {
	rep, err := newJob(t, engine.WithReader(&testReader{records: records(1)})).Call(context.Background())
	require.NoError(t, err)
	assert.Equal(t, job.StatusCompleted, rep.Status)

	openErr := errors.New("down")
	rep, err = newJob(t, engine.WithWriter(&testWriter{openErr: openErr})).Call(context.Background())
	require.ErrorIs(t, err, openErr)
	assert.Equal(t, job.StatusFailed, rep.Status)
}
