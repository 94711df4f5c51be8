package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// OTelTracer adapts a go.opentelemetry.io/otel/trace.Tracer to the core's
// Tracer interface, grounded on pgollucci-loom's and
// sylvester-francis-Watchdog's go.opentelemetry.io/otel wiring (both pull
// otel/sdk + otlptrace exporters; the core only needs the trace.Tracer
// surface, the concrete exporter is the embedding program's choice).
type OTelTracer struct {
	tracer oteltrace.Tracer
}

// NewOTelTracer wraps an existing trace.Tracer (e.g. from
// otel.Tracer("igniter")).
func NewOTelTracer(tracer oteltrace.Tracer) *OTelTracer {
	return &OTelTracer{tracer: tracer}
}

func (t *OTelTracer) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	spanCtx, span := t.tracer.Start(ctx, name)
	return spanCtx, &otelSpan{span: span}
}

type otelSpan struct {
	span oteltrace.Span
}

func (s *otelSpan) SetTag(key string, value any) {
	s.span.SetAttributes(attributeFor(key, value))
}

func (s *otelSpan) SetStatus(code int, message string) {
	if code >= 500 {
		s.span.SetStatus(codes.Error, message)
		return
	}

	s.span.SetStatus(codes.Ok, message)
}

func (s *otelSpan) RecordError(err error) {
	if err == nil {
		return
	}

	s.span.RecordError(err)
}

func (s *otelSpan) Finish() {
	s.span.End()
}

func attributeFor(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case bool:
		return attribute.Bool(key, v)
	default:
		return attribute.String(key, "")
	}
}

var (
	_ Tracer = (*OTelTracer)(nil)
	_ Span   = (*otelSpan)(nil)
)
