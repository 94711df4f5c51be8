// Package request implements the context builder (C4): assembling the
// immutable per-request value handlers and middleware operate on, with
// plugin capabilities injected under a closed set of reserved keys.
//
// Grounded on xraph-go-utils/http/context.go's Ctx (request/response
// handles, params, a values map with Set/Get/MustGet), generalized from a
// DI-scope-per-request model to the spec's reserved-capability model: the
// six capability names are typed fields on Capabilities rather than entries
// in the open values map, so a reserved-key check is a closed-set
// comparison instead of a map lookup against a mutable set.
package request

import (
	"context"
	"fmt"
	"net/http"

	"github.com/igniter-go/igniter/body"
	"github.com/igniter-go/igniter/cookie"
	"github.com/igniter-go/igniter/log"
	"github.com/igniter-go/igniter/response"
	"github.com/igniter-go/igniter/sse"
	"github.com/igniter-go/igniter/store"
	"github.com/igniter-go/igniter/telemetry"
)

// PluginProxy is the action-invocation and event-emit surface a registered
// plugin exposes to handlers and middleware, e.g. `ctx.Plugins["billing"].Call("charge",
// args)`. Defined here rather than imported from the plugin package so
// that package can depend on this one without a cycle back.
type PluginProxy interface {
	Name() string
	Call(ctx context.Context, action string, args any) (any, error)
	Emit(ctx context.Context, event string, payload any)
}

// JobsProxy is the optional background-job submission capability; present
// only when the embedding program wires one (spec §4.4 "jobs proxy (if
// available)").
type JobsProxy interface {
	Enqueue(ctx context.Context, queue string, payload any) error
}

// reservedKeys is the closed set of capability names middleware may never
// overwrite via a merged mapping (spec §4.4/§9 "Reserved keys").
var reservedKeys = map[string]struct{}{
	"store":        {},
	"logger":       {},
	"jobs":         {},
	"telemetry":    {},
	"span":         {},
	"traceContext": {},
}

// IsReserved reports whether key names one of the core capabilities.
func IsReserved(key string) bool {
	_, ok := reservedKeys[key]
	return ok
}

// Capabilities holds the core services injected into every request,
// immutable for the lifetime of the request (spec §4.4 step 4).
type Capabilities struct {
	Store        store.Store
	Logger       log.Logger
	Jobs         JobsProxy // nil if not configured
	Telemetry    *telemetry.Manager
	Span         telemetry.Span
	TraceContext context.Context
	Plugins      map[string]PluginProxy
	Hub          *sse.Hub // nil if the embedding program has no SSE channels
}

// Context is the per-request value passed to middleware and handlers.
type Context struct {
	Request  *http.Request
	Writer   http.ResponseWriter
	Params   map[string]string

	Body  body.Body
	Cookies *cookie.Jar

	Capabilities Capabilities

	// userContext holds non-reserved values: handler-set data plus
	// whatever a static/producer user-context and middleware merges
	// contributed, per spec §4.4 step 1 and §4.5.
	userContext map[string]any
}

// New assembles a Context per the ordered steps in spec §4.4: compute
// user-context, build the envelope, parse the body, then inject
// capabilities. userContext is the already-resolved base object (the
// producer, if any, must be invoked by the caller so failures can be
// logged per step 1's "continue with {} and log" rule).
func New(w http.ResponseWriter, r *http.Request, params map[string]string, userContext map[string]any, caps Capabilities) *Context {
	if userContext == nil {
		userContext = make(map[string]any)
	}

	if params == nil {
		params = make(map[string]string)
	}

	parsedBody, err := body.Parse(r)
	if err != nil {
		// Step 3: parse failure stores null for body and records a
		// warning; schema validation later may still reject.
		caps.Logger.Warn("body parse failed", log.String("path", r.URL.Path), log.String("error", err.Error()))
		parsedBody = body.Body{Kind: body.KindEmpty}
	}

	return &Context{
		Request:      r,
		Writer:       w,
		Params:       params,
		Body:         parsedBody,
		Cookies:      cookie.NewJar(r),
		Capabilities: caps,
		userContext:  userContext,
	}
}

// Param returns a single path parameter, empty string if absent.
func (c *Context) Param(name string) string {
	return c.Params[name]
}

// Get returns a user-context value and whether it was present.
func (c *Context) Get(key string) (any, bool) {
	v, ok := c.userContext[key]
	return v, ok
}

// MustGet returns a user-context value, panicking if absent — mirrors the
// teacher's Ctx.MustGet for values a handler assumes earlier stages set.
func (c *Context) MustGet(key string) any {
	v, ok := c.userContext[key]
	if !ok {
		panic(fmt.Sprintf("request: context key %q not set", key))
	}

	return v
}

// Set assigns a single user-context value. Reserved keys are rejected
// silently (logged, not applied) — the single-key equivalent of the
// mapping-merge reserved-key policy in spec §4.5.
func (c *Context) Set(key string, value any) {
	if IsReserved(key) {
		c.Capabilities.Logger.Warn("attempted to overwrite reserved context key", log.String("key", key))
		return
	}

	c.userContext[key] = value
}

// Merge applies a plain mapping into user-context (spec §4.5): a shallow
// merge where each top-level key replaces any existing value, and reserved
// keys are dropped with a warning rather than applied. Returns the set of
// keys that were rejected, primarily for tests.
func (c *Context) Merge(values map[string]any) []string {
	var rejected []string

	for k, v := range values {
		if IsReserved(k) {
			rejected = append(rejected, k)
			c.Capabilities.Logger.Warn("middleware attempted to overwrite reserved context key", log.String("key", k))

			continue
		}

		c.userContext[k] = v
	}

	return rejected
}

// UserContext returns a copy of the current non-reserved context map, for
// handlers that want the whole bag rather than individual Get calls.
func (c *Context) UserContext() map[string]any {
	out := make(map[string]any, len(c.userContext))
	for k, v := range c.userContext {
		out[k] = v
	}

	return out
}

// Plugin looks up an injected plugin proxy by name.
func (c *Context) Plugin(name string) (PluginProxy, bool) {
	p, ok := c.Capabilities.Plugins[name]
	return p, ok
}

// Response returns a new response Builder bound to this request's SSE hub,
// so a handler's stream(...) and revalidate(...) calls actually publish
// (spec §4.6 scenarios 4-5) rather than only shaping a payload. Safe to
// call with no hub configured: Stream/Revalidate then just skip the
// publish side effect.
func (c *Context) Response() *response.Builder {
	if c.Capabilities.Hub == nil {
		return response.New()
	}

	return response.NewWithPublisher(c.Capabilities.Hub)
}
