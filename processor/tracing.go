package processor

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/conveyor"
)

// tracerName is the instrumentation scope name for processor tracing.
const tracerName = "github.com/xraph/conveyor/processor"

// Tracing returns middleware that wraps every call in a span from the
// global TracerProvider.
func Tracing(stage string) Middleware {
	return TracingWithTracer(otel.Tracer(tracerName), stage)
}

// TracingWithTracer is Tracing with an explicit tracer.
//
// Span attributes: conveyor.stage, conveyor.record.number,
// conveyor.record.source and, once the call returns,
// conveyor.record.filtered.
func TracingWithTracer(tracer trace.Tracer, stage string) Middleware {
	return func(ctx context.Context, r *conveyor.Record, next Handler) (*conveyor.Record, error) {
		ctx, span := tracer.Start(ctx, "conveyor.record.process",
			trace.WithAttributes(
				attribute.String("conveyor.stage", stage),
				attribute.Int64("conveyor.record.number", r.Header.Number),
				attribute.String("conveyor.record.source", r.Header.Source),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		out, err := next(ctx, r)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return out, err
		}
		span.SetAttributes(attribute.Bool("conveyor.record.filtered", out == nil))
		span.SetStatus(codes.Ok, "")
		return out, nil
	}
}
