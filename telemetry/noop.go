package telemetry

import "context"

// NoopTracer is the default Tracer: every span does nothing. Used when the
// embedding program wires no tracing provider (spec §9 "telemetry may be a
// no-op provider").
type NoopTracer struct{}

func (NoopTracer) StartSpan(ctx context.Context, _ string) (context.Context, Span) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) SetTag(string, any)        {}
func (noopSpan) SetStatus(int, string)     {}
func (noopSpan) RecordError(error)         {}
func (noopSpan) Finish()                   {}

var (
	_ Tracer = NoopTracer{}
	_ Span   = noopSpan{}
)
