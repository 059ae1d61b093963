// Package telemetry configures OpenTelemetry tracing. Finished spans are
// written to the structured log as "span.end" events; there is no remote
// collector.
package telemetry

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Options configures NewTracerProvider.
type Options struct {
	Enabled     bool
	ServiceName string
	Logger      *slog.Logger
}

// Provider is a tracer provider that can be flushed and shut down.
type Provider interface {
	trace.TracerProvider
	Shutdown(ctx context.Context) error
}

type noopProvider struct {
	noop.TracerProvider
}

func (noopProvider) Shutdown(context.Context) error { return nil }

// NewTracerProvider returns a provider exporting spans to opts.Logger, or a
// no-op provider when tracing is disabled.
func NewTracerProvider(opts Options) Provider {
	if !opts.Enabled {
		return noopProvider{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	res := resource.NewSchemaless(attribute.String("service.name", opts.ServiceName))
	return sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(NewLogExporter(logger)),
	)
}

// LogExporter writes finished spans to a slog logger.
type LogExporter struct {
	logger *slog.Logger
}

var _ sdktrace.SpanExporter = (*LogExporter)(nil)

// NewLogExporter creates an exporter that logs at debug level, or warn for
// spans that ended with an error.
func NewLogExporter(logger *slog.Logger) *LogExporter {
	return &LogExporter{logger: logger}
}

// ExportSpans implements sdktrace.SpanExporter.
func (e *LogExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, span := range spans {
		level := slog.LevelDebug
		if span.Status().Code == codes.Error {
			level = slog.LevelWarn
		}
		if !e.logger.Enabled(ctx, level) {
			continue
		}

		attrs := make([]slog.Attr, 0, len(span.Attributes())+5)
		attrs = append(attrs,
			slog.String("span.name", span.Name()),
			slog.String("trace_id", span.SpanContext().TraceID().String()),
			slog.String("span_id", span.SpanContext().SpanID().String()),
			slog.Duration("duration", span.EndTime().Sub(span.StartTime())),
		)
		if span.Status().Code == codes.Error {
			attrs = append(attrs, slog.String("error", span.Status().Description))
		}
		for _, kv := range span.Attributes() {
			attrs = append(attrs, slog.Any(string(kv.Key), kv.Value.AsInterface()))
		}
		e.logger.LogAttrs(ctx, level, "span.end", attrs...)
	}
	return nil
}

// Shutdown implements sdktrace.SpanExporter.
func (e *LogExporter) Shutdown(context.Context) error { return nil }
