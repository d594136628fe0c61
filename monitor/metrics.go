package monitor

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xraph/conveyor"
	"github.com/xraph/conveyor/job"
	"github.com/xraph/conveyor/listener"
)

const meterName = "github.com/xraph/conveyor/monitor"

// Compile-time interface checks.
var (
	_ listener.Listener            = (*MetricsListener)(nil)
	_ listener.JobStarting         = (*MetricsListener)(nil)
	_ listener.JobEnded            = (*MetricsListener)(nil)
	_ listener.RecordRead          = (*MetricsListener)(nil)
	_ listener.RecordReadFailed    = (*MetricsListener)(nil)
	_ listener.RecordProcessed     = (*MetricsListener)(nil)
	_ listener.RecordProcessFailed = (*MetricsListener)(nil)
	_ listener.RecordsWritten      = (*MetricsListener)(nil)
	_ listener.BatchWriteFailed    = (*MetricsListener)(nil)
)

// MetricsListener records job metrics with OpenTelemetry. One listener
// may serve several jobs; every data point carries the job name seen by
// the most recent OnJobStarting, so give each job its own listener when
// jobs run concurrently.
//
// Instruments:
//   - conveyor.job.runs (Int64Counter): finished runs by status
//   - conveyor.job.duration (Float64Histogram): seconds per run
//   - conveyor.job.records (Int64Counter): records by outcome ("read",
//     "filtered", "processed", "error", "written")
//   - conveyor.job.batch.failures (Int64Counter): failed batch writes
type MetricsListener struct {
	runs     metric.Int64Counter
	duration metric.Float64Histogram
	records  metric.Int64Counter
	failures metric.Int64Counter

	mu      sync.RWMutex
	jobName string
}

// NewMetricsListener creates a listener using the global MeterProvider.
func NewMetricsListener() *MetricsListener {
	return NewMetricsListenerWithMeter(otel.Meter(meterName))
}

// NewMetricsListenerWithMeter creates a listener with an explicit meter.
func NewMetricsListenerWithMeter(meter metric.Meter) *MetricsListener {
	// Instrument constructors return usable noops alongside any error.
	runs, _ := meter.Int64Counter("conveyor.job.runs",
		metric.WithDescription("Finished job runs by status"),
		metric.WithUnit("{run}"),
	)
	duration, _ := meter.Float64Histogram("conveyor.job.duration",
		metric.WithDescription("Duration of job runs in seconds"),
		metric.WithUnit("s"),
	)
	records, _ := meter.Int64Counter("conveyor.job.records",
		metric.WithDescription("Records handled by jobs, by outcome"),
		metric.WithUnit("{record}"),
	)
	failures, _ := meter.Int64Counter("conveyor.job.batch.failures",
		metric.WithDescription("Batches the writer failed to write"),
		metric.WithUnit("{batch}"),
	)
	return &MetricsListener{
		runs:     runs,
		duration: duration,
		records:  records,
		failures: failures,
	}
}

// Name implements listener.Listener.
func (m *MetricsListener) Name() string { return "monitor-metrics" }

// OnJobStarting implements listener.JobStarting.
func (m *MetricsListener) OnJobStarting(_ context.Context, params job.Parameters) error {
	m.mu.Lock()
	m.jobName = params.Name
	m.mu.Unlock()
	return nil
}

// OnJobEnded implements listener.JobEnded.
func (m *MetricsListener) OnJobEnded(ctx context.Context, report *job.Report) error {
	attrs := metric.WithAttributes(
		attribute.String("job", report.JobName),
		attribute.String("status", string(report.Status)),
	)
	m.runs.Add(ctx, 1, attrs)
	m.duration.Record(ctx, report.Metrics.Duration().Seconds(), attrs)
	return nil
}

// OnRecordRead implements listener.RecordRead.
func (m *MetricsListener) OnRecordRead(ctx context.Context, _ *conveyor.Record) error {
	m.count(ctx, "read", 1)
	return nil
}

// OnRecordReadFailed implements listener.RecordReadFailed.
func (m *MetricsListener) OnRecordReadFailed(ctx context.Context, _ error) error {
	m.count(ctx, "error", 1)
	return nil
}

// OnRecordProcessed implements listener.RecordProcessed.
func (m *MetricsListener) OnRecordProcessed(ctx context.Context, _, out *conveyor.Record) error {
	if out == nil {
		m.count(ctx, "filtered", 1)
		return nil
	}
	m.count(ctx, "processed", 1)
	return nil
}

// OnRecordProcessFailed implements listener.RecordProcessFailed.
func (m *MetricsListener) OnRecordProcessFailed(ctx context.Context, _ *conveyor.Record, _ error) error {
	m.count(ctx, "error", 1)
	return nil
}

// OnRecordsWritten implements listener.RecordsWritten.
func (m *MetricsListener) OnRecordsWritten(ctx context.Context, b *conveyor.Batch) error {
	m.count(ctx, "written", int64(b.Len()))
	return nil
}

// OnBatchWriteFailed implements listener.BatchWriteFailed.
func (m *MetricsListener) OnBatchWriteFailed(ctx context.Context, _ *conveyor.Batch, _ error) error {
	m.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("job", m.name())))
	return nil
}

func (m *MetricsListener) count(ctx context.Context, outcome string, n int64) {
	m.records.Add(ctx, n, metric.WithAttributes(
		attribute.String("job", m.name()),
		attribute.String("outcome", outcome),
	))
}

func (m *MetricsListener) name() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobName
}
