package processor

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xraph/conveyor"
)

// meterName is the instrumentation scope name for processor metrics.
const meterName = "github.com/xraph/conveyor/processor"

// Metrics returns middleware recording per-call metrics with the global
// OTel MeterProvider. Without a configured provider the instruments are
// noops.
//
// Instruments:
//   - conveyor.processor.duration (Float64Histogram): seconds per call
//   - conveyor.processor.records (Int64Counter): calls by outcome
//
// Both carry the attributes stage and outcome ("ok", "filtered" or
// "error").
func Metrics(stage string) Middleware {
	return MetricsWithMeter(otel.Meter(meterName), stage)
}

// MetricsWithMeter is Metrics with an explicit meter.
func MetricsWithMeter(meter metric.Meter, stage string) Middleware {
	duration, dErr := meter.Float64Histogram(
		"conveyor.processor.duration",
		metric.WithDescription("Duration of record processing in seconds"),
		metric.WithUnit("s"),
	)
	_ = dErr // the API hands back a noop instrument on error

	records, rErr := meter.Int64Counter(
		"conveyor.processor.records",
		metric.WithDescription("Records handled by a processor, by outcome"),
		metric.WithUnit("{record}"),
	)
	_ = rErr

	return func(ctx context.Context, r *conveyor.Record, next Handler) (*conveyor.Record, error) {
		start := time.Now()
		out, err := next(ctx, r)
		elapsed := time.Since(start).Seconds()

		attrs := metric.WithAttributes(
			attribute.String("stage", stage),
			attribute.String("outcome", outcome(out, err)),
		)
		duration.Record(ctx, elapsed, attrs)
		records.Add(ctx, 1, attrs)

		return out, err
	}
}

func outcome(out *conveyor.Record, err error) string {
	switch {
	case err != nil:
		return "error"
	case out == nil:
		return "filtered"
	default:
		return "ok"
	}
}
