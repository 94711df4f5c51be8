// Package router implements the route resolver (C3): given (method, path),
// returns a matched action and captured path params, or reports no match.
//
// Grounded on the registration-time uniqueness and segment-matching shape
// of 79f3d211_goroute-route's Mux (one tree walked per request, routes
// added once at startup), adapted from that package's flat Echo-style
// route table into a trie keyed per HTTP method, with a `:name` segment
// captured into Params at match time rather than bound via reflection.
package router

import (
	"fmt"
	"strings"

	"github.com/igniter-go/igniter/middleware"
	"github.com/igniter-go/igniter/request"
	"github.com/igniter-go/igniter/response"
)

// Handler is the typed invocation surface for a matched action: build and
// return a finalized response for ctx.
type Handler func(ctx *request.Context) *response.Response

// Action is a single registered endpoint descriptor (spec §3 "Action
// descriptor": `{method, path-pattern, body-schema?, query-schema?, use,
// handler}`).
type Action struct {
	Method  string
	Pattern string
	Name    string
	Handler Handler

	// BodySchema, if non-nil, is a pointer to a zero-value instance of the
	// struct type that the action's decoded JSON body must validate
	// against (spec §3 "body-schema?"). The processor (C11) runs it at the
	// ACTION_MW -> HANDLED boundary, immediately before the handler, and
	// replaces the context's stored body with the decoded instance on
	// success (spec §4.4's data model: "body may be replaced once by
	// schema validation").
	BodySchema any

	// QuerySchema, if non-nil, is the equivalent template validated against
	// the request's query string (spec §3 "query-schema?").
	QuerySchema any

	// Middleware is the action-local phase, run after the router-wide
	// global phase, in declared order (spec §4.5).
	Middleware []middleware.Func
}

// Controller groups related actions under a common path prefix, mirroring
// how the embedding program organizes handlers before calling Register.
type Controller struct {
	Prefix  string
	Actions []Action
}

// Params is the set of path segments captured from a `:name` pattern.
type Params map[string]string

// node is one trie node per path segment for a single HTTP method.
type node struct {
	segment  string
	children map[string]*node // literal segment -> child
	param    *node            // at most one `:name` child per node
	paramName string
	action   *Action
}

func newNode(segment string) *node {
	return &node{segment: segment, children: make(map[string]*node)}
}

// Router resolves (method, path) to a registered Action, one trie per
// method (spec §4.3).
type Router struct {
	roots map[string]*node

	// global is the framework-wide middleware phase run before every
	// action's local phase (spec §4.5).
	global []middleware.Func
}

// New creates an empty Router.
func New() *Router {
	return &Router{roots: make(map[string]*node)}
}

// Use appends to the global middleware phase, in registration order.
func (r *Router) Use(fn middleware.Func) {
	r.global = append(r.global, fn)
}

// Global returns the registered global middleware, in registration order.
func (r *Router) Global() []middleware.Func {
	return r.global
}

// Register adds a Controller's actions to the trie. It panics on a
// duplicate (method, pattern) registration: this is a startup-time
// programming error, not a request-time condition, mirroring how the
// teacher's di.Container.Register treats duplicate service names as a
// build-time mistake rather than recoverable input.
func (r *Router) Register(c Controller) {
	for _, action := range c.Actions {
		pattern := joinPattern(c.Prefix, action.Pattern)
		action.Pattern = pattern

		r.insert(action)
	}
}

func joinPattern(prefix, pattern string) string {
	if prefix == "" {
		return pattern
	}

	return strings.TrimRight(prefix, "/") + "/" + strings.TrimLeft(pattern, "/")
}

func (r *Router) insert(action Action) {
	root, ok := r.roots[action.Method]
	if !ok {
		root = newNode("")
		r.roots[action.Method] = root
	}

	segments := splitPath(action.Pattern)
	cur := root

	for _, seg := range segments {
		if strings.HasPrefix(seg, ":") {
			name := seg[1:]
			if cur.param == nil {
				cur.param = newNode(seg)
				cur.param.paramName = name
			} else if cur.param.paramName != name {
				panic(fmt.Sprintf("router: conflicting param name at %q: have %q, got %q", action.Pattern, cur.param.paramName, name))
			}

			cur = cur.param

			continue
		}

		child, ok := cur.children[seg]
		if !ok {
			child = newNode(seg)
			cur.children[seg] = child
		}

		cur = child
	}

	if cur.action != nil {
		panic(fmt.Sprintf("router: duplicate registration for %s %s", action.Method, action.Pattern))
	}

	stored := action
	cur.action = &stored
}

// Resolve finds the Action registered for (method, path) and the path
// params captured along the way. ok is false for an unregistered method,
// an empty path, or no matching pattern — all map to a 404 in the
// processor (C11), per spec §4.3.
func (r *Router) Resolve(method, path string) (*Action, Params, bool) {
	if path == "" {
		return nil, nil, false
	}

	root, ok := r.roots[method]
	if !ok {
		return nil, nil, false
	}

	segments := splitPath(path)
	params := make(Params)
	cur := root

	for _, seg := range segments {
		if child, ok := cur.children[seg]; ok {
			cur = child

			continue
		}

		if cur.param != nil {
			params[cur.param.paramName] = seg
			cur = cur.param

			continue
		}

		return nil, nil, false
	}

	if cur.action == nil {
		return nil, nil, false
	}

	return cur.action, params, true
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}

	return strings.Split(trimmed, "/")
}

// MethodNotAllowed is a convenience helper callers can use to distinguish
// "path exists for another method" from a true 404, mirroring the common
// net/http routing idiom without the core mandating it (spec leaves 405
// handling to the embedding program beyond the bare {action,params}/404
// contract in §4.3).
func (r *Router) MethodNotAllowed(path string) bool {
	for method, root := range r.roots {
		if _, _, ok := resolveIn(root, path); ok {
			_ = method

			return true
		}
	}

	return false
}

func resolveIn(root *node, path string) (*Action, Params, bool) {
	segments := splitPath(path)
	params := make(Params)
	cur := root

	for _, seg := range segments {
		if child, ok := cur.children[seg]; ok {
			cur = child

			continue
		}

		if cur.param != nil {
			params[cur.param.paramName] = seg
			cur = cur.param

			continue
		}

		return nil, nil, false
	}

	if cur.action == nil {
		return nil, nil, false
	}

	return cur.action, params, true
}
