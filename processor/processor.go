// Package processor implements the Request Processor (C11): the single
// orchestration entry point wiring route resolution, context assembly,
// middleware, handler invocation, response finalization, and error
// classification for one request.
//
// Grounded on the straight-line sequence xraph-go-utils/http/context.go's
// NewContext and its callers follow (build context, then proceed through
// request handling in order); the state diagram in the spec's §4.11 is
// implemented here as a linear Go function with early returns at each
// failure arrow, rather than an explicit state enum — idiomatic Go favors
// returning early over threading a state value through every branch.
package processor

import (
	"context"
	"net/http"
	"net/url"

	bodypkg "github.com/igniter-go/igniter/body"
	"github.com/igniter-go/igniter/errs"
	"github.com/igniter-go/igniter/log"
	"github.com/igniter-go/igniter/middleware"
	"github.com/igniter-go/igniter/request"
	"github.com/igniter-go/igniter/response"
	"github.com/igniter-go/igniter/router"
	"github.com/igniter-go/igniter/sse"
	"github.com/igniter-go/igniter/store"
	"github.com/igniter-go/igniter/telemetry"
)

// UserContextFunc computes the base user-context for every request: either
// a value returned once statically by always returning the same map, or a
// true per-request producer. A producer failure is logged and the request
// continues with an empty user-context (spec §4.4 step 1).
type UserContextFunc func() (map[string]any, error)

// PluginProxies resolves the map of per-plugin proxies to inject into a
// request's capabilities (spec §4.4 step 4). Implemented by
// plugin.Manager.Proxies in the embedding program; kept as a function type
// here so this package never imports plugin and avoids a cycle back
// through request.PluginProxy.
type PluginProxies func() map[string]request.PluginProxy

// Config bundles the Processor's environment-derived behavior.
type Config struct {
	// Production suppresses generic-error detail exposure (spec §6 NODE_ENV).
	Production bool
}

// Processor wires C1-C10 together for a single request.
type Processor struct {
	Router      *router.Router
	Telemetry   *telemetry.Manager
	Store       store.Store
	Logger      log.Logger
	Jobs        request.JobsProxy
	Plugins     PluginProxies
	Hub         *sse.Hub // nil if the embedding program registers no SSE channels
	UserContext UserContextFunc
	Config      Config
}

// New creates a Processor. A nil Store defaults to store.Noop{}; a nil
// Logger defaults to a no-op logger.
func New(r *router.Router, tm *telemetry.Manager, st store.Store, logger log.Logger) *Processor {
	if st == nil {
		st = store.Noop{}
	}

	if logger == nil {
		logger = log.NewNoopLogger()
	}

	return &Processor{Router: r, Telemetry: tm, Store: st, Logger: logger}
}

// Handle is the single entry point: resolve, build context, run
// middleware, invoke the handler, finalize, and write the response. It
// never panics the caller's goroutine for a handler/middleware failure —
// those are classified and written as an error envelope; only a writer
// that is not an http.Flusher-class failure (os-level panics from user
// code) are allowed to propagate, matching the spec's statement that
// handler awaits are a normal suspension point, not a fault boundary.
func (p *Processor) Handle(w http.ResponseWriter, r *http.Request) {
	spanCtx, span := p.Telemetry.StartRequest(r.Context(), r)
	r = r.WithContext(spanCtx)

	status := http.StatusOK
	defer func() { p.Telemetry.FinishRequest(span, status) }()

	action, params, ok := p.Router.Resolve(r.Method, r.URL.Path)
	if !ok {
		status = http.StatusNotFound
		w.WriteHeader(status)

		return
	}

	userCtx, err := p.resolveUserContext()
	if err != nil {
		p.Logger.Warn("user-context producer failed", log.String("error", err.Error()))
	}

	caps := request.Capabilities{
		Store:        p.Store,
		Logger:       p.Logger,
		Jobs:         p.Jobs,
		Telemetry:    p.Telemetry,
		Span:         span.Span(),
		TraceContext: spanCtx,
		Hub:          p.Hub,
	}

	if p.Plugins != nil {
		caps.Plugins = p.Plugins()
	}

	ctx := request.New(w, r, map[string]string(params), userCtx, caps)

	outcome := middleware.RunPhases(ctx, p.Router.Global(), action.Middleware)
	if outcome.Done() {
		status = p.finalizeOutcome(w, ctx, outcome)

		return
	}

	if err := validateAction(action, &ctx.Body.JSON, r.URL.Query()); err != nil {
		status = p.finalizeOutcome(w, ctx, middleware.Outcome{Err: err})

		return
	}

	resp := p.invokeHandler(action, ctx)
	status = p.finalize(w, ctx, resp)
}

func (p *Processor) resolveUserContext() (map[string]any, error) {
	if p.UserContext == nil {
		return map[string]any{}, nil
	}

	uc, err := p.UserContext()
	if err != nil {
		return map[string]any{}, err
	}

	if uc == nil {
		uc = map[string]any{}
	}

	return uc, nil
}

// invokeHandler calls the matched action's handler, classifying a nil or
// non-finalized result as a 200 application/json body (spec §4.11
// "Handler result classification").
func (p *Processor) invokeHandler(action *router.Action, ctx *request.Context) *response.Response {
	resp := action.Handler(ctx)
	if resp == nil {
		return response.New().Success(nil)
	}

	return resp
}

// finalize writes resp, applying the context's accumulated cookies, and
// returns the status written for telemetry.
func (p *Processor) finalize(w http.ResponseWriter, ctx *request.Context, resp *response.Response) int {
	resp.Cookies = append(resp.Cookies, ctx.Cookies.Outgoing()...)
	resp.WriteTo(w)

	return resp.Status
}

// finalizeOutcome writes the result of a middleware pipeline that did not
// continue to the handler: an early return, a clean stop, or a
// classified failure (spec §4.11 "early returns jump to SERIALIZED",
// "failures jump to ERROR_CLASSIFIED").
func (p *Processor) finalizeOutcome(w http.ResponseWriter, ctx *request.Context, outcome middleware.Outcome) int {
	switch {
	case outcome.EarlyResponse != nil:
		return p.finalize(w, ctx, outcome.EarlyResponse)

	case outcome.Err != nil:
		classification := errs.Classify(outcome.Err, errs.ClassifyOptions{Production: p.Config.Production})
		resp := response.New().Error(classification.Status, classification.Envelope)

		return p.finalize(w, ctx, resp)

	default: // Stopped
		resp := response.New().NoContent()

		return p.finalize(w, ctx, resp)
	}
}

// HandleSelfDispatch invokes action directly from within the process
// rather than over a transport, building an internal request from the
// given params and, for methods other than GET and HEAD, a non-nil body
// (stored as the request's JSON body), then running the middleware phases,
// schema validation and the handler, per spec §6 "Self-dispatch". There is
// no query input. The returned *response.Response
// is the same value a transport adapter would have serialized.
func (p *Processor) HandleSelfDispatch(ctx context.Context, action *router.Action, params map[string]string, body any) *response.Response {
	resolvedPath := substituteParams(action.Pattern, params)

	r := &http.Request{
		Method: action.Method,
		URL:    &url.URL{Path: resolvedPath},
		Header: make(http.Header),
	}
	r = r.WithContext(ctx)

	rc := request.New(nil, r, params, nil, request.Capabilities{
		Store:     p.Store,
		Logger:    p.Logger,
		Telemetry: p.Telemetry,
		Hub:       p.Hub,
	})

	// body is pre-parsed by the caller for self-dispatch; the
	// transport-level body.Parse step only applies to real HTTP bodies.
	if body != nil && action.Method != http.MethodGet && action.Method != http.MethodHead {
		rc.Body = bodypkg.Body{Kind: bodypkg.KindJSON, JSON: body}
	}

	outcome := middleware.RunPhases(rc, p.Router.Global(), action.Middleware)
	if outcome.Done() {
		if outcome.EarlyResponse != nil {
			return outcome.EarlyResponse
		}

		if outcome.Err != nil {
			classification := errs.Classify(outcome.Err, errs.ClassifyOptions{Production: p.Config.Production})
			return response.New().Error(classification.Status, classification.Envelope)
		}

		return response.New().NoContent()
	}

	if err := validateAction(action, &rc.Body.JSON, r.URL.Query()); err != nil {
		classification := errs.Classify(err, errs.ClassifyOptions{Production: p.Config.Production})
		return response.New().Error(classification.Status, classification.Envelope)
	}

	return p.invokeHandler(action, rc)
}

// substituteParams replaces `:name` segments in pattern with the
// corresponding params value, for building the internal request URL used
// by self-dispatch.
func substituteParams(pattern string, params map[string]string) string {
	segments := make([]byte, 0, len(pattern))

	i := 0
	for i < len(pattern) {
		if pattern[i] == ':' {
			j := i + 1
			for j < len(pattern) && pattern[j] != '/' {
				j++
			}

			name := pattern[i+1 : j]
			segments = append(segments, []byte(params[name])...)
			i = j

			continue
		}

		segments = append(segments, pattern[i])
		i++
	}

	return string(segments)
}
