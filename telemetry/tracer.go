package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StartSpan starts a span for one logical operation with its metadata
// attached as attributes.
func StartSpan(ctx context.Context, tracer trace.Tracer, meta OpMeta) (context.Context, trace.Span) {
	return tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(meta.attributes()...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// EndSpan ends the span, recording the error status and attempt count.
func EndSpan(span trace.Span, attempts int, err error) {
	span.SetAttributes(attribute.Int("op.attempts", attempts))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
