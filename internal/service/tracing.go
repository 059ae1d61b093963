package service

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of service spans.
const TracerName = "taskboard/service"

func newTracer(tp trace.TracerProvider) trace.Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer(TracerName)
}

// startSpan opens a span for a service operation. The returned func ends it
// and records *errp, if any, as the span status.
func startSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, func(errp *error)) {
	ctx, span := tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, func(errp *error) {
		if errp != nil && *errp != nil {
			span.RecordError(*errp)
			span.SetStatus(codes.Error, (*errp).Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}

func refAttrs(ref Ref, extra ...attribute.KeyValue) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("board.id", ref.BoardID),
		attribute.String("user.id", ref.UserID),
	}
	if ref.IfMatch > 0 {
		attrs = append(attrs, attribute.Int64("board.if_match", ref.IfMatch))
	}
	return append(attrs, extra...)
}
