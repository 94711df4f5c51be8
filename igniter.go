// Package igniter is the top-level entry point: it wires config, logging,
// metrics, telemetry, the router, the plugin manager and the SSE hub into a
// single Processor and exposes it as an http.Handler.
//
// Grounded on aofei-air's Air type (air.go): a single struct constructed by
// New, holding every subsystem the framework needs, with the router and
// handler-registration surface exposed as methods on it rather than on the
// individual subpackages directly.
package igniter

import (
	"context"
	"net/http"

	"github.com/igniter-go/igniter/config"
	"github.com/igniter-go/igniter/log"
	"github.com/igniter-go/igniter/metrics"
	"github.com/igniter-go/igniter/plugin"
	"github.com/igniter-go/igniter/processor"
	"github.com/igniter-go/igniter/request"
	"github.com/igniter-go/igniter/response"
	"github.com/igniter-go/igniter/router"
	"github.com/igniter-go/igniter/sse"
	"github.com/igniter-go/igniter/store"
	"github.com/igniter-go/igniter/telemetry"
)

// Igniter is the top-level framework instance: a Router to register
// Controllers on, a Plugins manager, an SSE Hub, and the Processor that
// drives every request through them.
type Igniter struct {
	Config    config.Config
	Router    *router.Router
	Plugins   *plugin.Manager
	Hub       *sse.Hub
	Telemetry *telemetry.Manager
	Store     store.Store
	Logger    log.Logger
	Metrics   metrics.Metrics

	processor *processor.Processor
}

// settings accumulates what Options choose before anything is constructed,
// so every subsystem is built exactly once, from its final inputs, in the
// right order — rather than built from defaults and patched afterward.
type settings struct {
	store       store.Store
	logger      log.Logger
	metrics     metrics.Metrics
	tracer      telemetry.Tracer
	userContext processor.UserContextFunc
	jobs        request.JobsProxy
}

// Option configures an Igniter at construction time, in the teacher's
// functional-option idiom (di.RegisterOption, metrics.MetricOption).
type Option func(*settings)

// WithStore overrides the default store.Noop{} pub/sub backend, e.g. with
// redisstore.New for a multi-process deployment.
func WithStore(st store.Store) Option {
	return func(s *settings) { s.store = st }
}

// WithLogger overrides the default no-op logger.
func WithLogger(logger log.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// WithMetrics overrides the default unregistered metrics collector.
func WithMetrics(m metrics.Metrics) Option {
	return func(s *settings) { s.metrics = m }
}

// WithTracer wraps the given OpenTelemetry-or-compatible telemetry.Tracer
// instead of the default telemetry.NoopTracer{}.
func WithTracer(tracer telemetry.Tracer) Option {
	return func(s *settings) { s.tracer = tracer }
}

// WithUserContext registers a per-request user-context producer (spec §4.4
// step 1); omit for a static empty base context.
func WithUserContext(fn processor.UserContextFunc) Option {
	return func(s *settings) { s.userContext = fn }
}

// WithJobs wires a background-job submission proxy into every request's
// capabilities (spec §4.4's optional "jobs proxy").
func WithJobs(jobs request.JobsProxy) Option {
	return func(s *settings) { s.jobs = jobs }
}

// New builds an Igniter from cfg, applying opts in order. The returned
// value is ready to have Controllers registered on its Router and Plugins
// registered on its Plugins manager before Load is called.
func New(cfg config.Config, opts ...Option) *Igniter {
	s := settings{
		store:   store.Noop{},
		logger:  log.NewNoopLogger(),
		metrics: metrics.NewMetricsCollector("igniter"),
		tracer:  telemetry.NoopTracer{},
	}

	for _, opt := range opts {
		opt(&s)
	}

	ig := &Igniter{
		Config:    cfg,
		Router:    router.New(),
		Hub:       sse.NewHub(s.logger),
		Store:     s.store,
		Logger:    s.logger,
		Metrics:   s.metrics,
		Telemetry: telemetry.NewManager(s.tracer, s.metrics, s.logger),
	}

	ig.Plugins = plugin.NewManager(ig.Store, ig.Metrics, ig.Logger)

	ig.processor = processor.New(ig.Router, ig.Telemetry, ig.Store, ig.Logger)
	ig.processor.Hub = ig.Hub
	ig.processor.Plugins = ig.Plugins.Proxies
	ig.processor.UserContext = s.userContext
	ig.processor.Jobs = s.jobs
	ig.processor.Config = processor.Config{Production: cfg.Production}

	return ig
}

// Load starts the plugin dependency graph (spec §4.10's di.Container-backed
// Start ordering). Call once, after every plugin.Plugin has been
// registered on ig.Plugins and before serving traffic.
func (ig *Igniter) Load(ctx context.Context) error {
	return ig.Plugins.Load(ctx)
}

// ServeHTTP makes Igniter an http.Handler: every inbound request is routed
// through the Processor (spec §4.11).
func (ig *Igniter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ig.processor.Handle(w, r)
}

// ServeSSE is the SSE endpoint handler (spec §4.9/§6): a GET with optional
// ?channels=&scopes= query parameters upgrading the connection to an
// event stream. Its signature is not a router.Handler, so it is mounted
// outside the router (for example on an http.ServeMux at "/sse/events"),
// next to ServeHTTP.
func (ig *Igniter) ServeSSE(w http.ResponseWriter, r *http.Request) error {
	return ig.Hub.HandleConnection(w, r)
}

// Dispatch invokes action in-process, bypassing the transport, per spec §6
// "Self-dispatch".
func (ig *Igniter) Dispatch(ctx context.Context, action *router.Action, params map[string]string, body any) *response.Response {
	return ig.processor.HandleSelfDispatch(ctx, action, params, body)
}
