// Package telemetry implements the telemetry manager (C8): per-request
// spans and duration/count metrics, with every call isolated so telemetry
// failures never fail the request (spec §9 "telemetry failure isolation").
//
// Metrics are backed by the kept xraph-go-utils/metrics package
// (github.com/igniter-go/igniter/metrics); tracing is a minimal interface
// satisfied by either a no-op or an OpenTelemetry-backed tracer, grounded
// on pgollucci-loom's and sylvester-francis-Watchdog's use of
// go.opentelemetry.io/otel for HTTP span instrumentation.
package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/igniter-go/igniter/log"
	"github.com/igniter-go/igniter/metrics"
)

// Span is the minimal per-request tracing handle the core needs.
type Span interface {
	SetTag(key string, value any)
	SetStatus(code int, message string)
	RecordError(err error)
	Finish()
}

// Tracer creates spans. The default NoopTracer never fails and produces
// spans that do nothing; OTelTracer (otel.go) delegates to a real
// go.opentelemetry.io/otel/trace.Tracer.
type Tracer interface {
	StartSpan(ctx context.Context, name string) (context.Context, Span)
}

// Manager wires a Tracer and a metrics.Metrics together into the request
// lifecycle hooks the processor (C11) calls at span open/close.
type Manager struct {
	tracer  Tracer
	metrics metrics.Metrics
	logger  log.Logger

	requestDuration metrics.Histogram
	requestTotal    metrics.Counter
}

// NewManager builds a Manager. A nil tracer defaults to NoopTracer{}; a nil
// metrics.Metrics defaults to an unregistered collector (still functional,
// just not exported anywhere).
func NewManager(tracer Tracer, m metrics.Metrics, logger log.Logger) *Manager {
	if tracer == nil {
		tracer = NoopTracer{}
	}

	if m == nil {
		m = metrics.NewMetricsCollector("igniter")
	}

	if logger == nil {
		logger = log.NewNoopLogger()
	}

	return &Manager{
		tracer:  tracer,
		metrics: m,
		logger:  logger,
		requestDuration: m.Histogram("igniter_http_request_duration_seconds",
			metrics.WithDescription("HTTP request duration in seconds"),
			metrics.WithDefaultHistogramBuckets()),
		requestTotal: m.Counter("igniter_http_requests_total",
			metrics.WithDescription("total HTTP requests partitioned by method/status/result")),
	}
}

// RequestSpan is the open span plus bookkeeping needed to finish it.
type RequestSpan struct {
	span      Span
	startedAt time.Time
	method    string
}

// StartRequest opens an HTTP span with tags {http.method, http.url,
// http.path, http.user_agent}, per spec §4.8. Guarded so a tracer panic
// never fails the request.
func (m *Manager) StartRequest(ctx context.Context, r *http.Request) (context.Context, *RequestSpan) {
	var (
		spanCtx = ctx
		span    Span
	)

	func() {
		defer m.recover("StartRequest")

		spanCtx, span = m.tracer.StartSpan(ctx, "http.request")
		span.SetTag("http.method", r.Method)
		span.SetTag("http.url", r.URL.String())
		span.SetTag("http.path", r.URL.Path)
		span.SetTag("http.user_agent", r.UserAgent())
	}()

	if span == nil {
		span = noopSpan{}
	}

	return spanCtx, &RequestSpan{span: span, startedAt: time.Now(), method: r.Method}
}

// FinishRequest closes the span with the final status, and emits the
// duration histogram + request counter partitioned by
// {method, status-category, result}, per spec §4.8.
func (m *Manager) FinishRequest(rs *RequestSpan, status int) {
	if rs == nil {
		return
	}

	defer m.recover("FinishRequest")

	duration := time.Since(rs.startedAt)

	rs.span.SetTag("http.status_code", status)
	if status >= 500 {
		rs.span.SetStatus(status, "server error")
	} else {
		rs.span.SetStatus(status, "")
	}
	rs.span.Finish()

	labels := map[string]string{
		"method":   rs.method,
		"category": statusCategory(status),
		"result":   resultFor(status),
	}

	m.requestDuration.WithLabels(labels).Observe(duration.Seconds())
	m.requestTotal.WithLabels(labels).Inc()
}

// Span returns the underlying Span, e.g. for handler-level RecordError.
func (rs *RequestSpan) Span() Span {
	if rs == nil {
		return noopSpan{}
	}

	return rs.span
}

func statusCategory(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500:
		return "5xx"
	default:
		return "other"
	}
}

func resultFor(status int) string {
	if status >= 400 {
		return "error"
	}

	return "success"
}

// recover swallows a panic from a telemetry call and logs it, so telemetry
// never fails the primary request (spec §7 propagation policy).
func (m *Manager) recover(op string) {
	if r := recover(); r != nil {
		m.logger.Warnf("telemetry: recovered panic in %s: %v", op, r)
	}
}

// Metrics exposes the underlying metrics.Metrics for components (e.g. the
// Plugin Manager) that record their own counters.
func (m *Manager) Metrics() metrics.Metrics {
	return m.metrics
}
