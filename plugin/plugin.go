// Package plugin implements the Plugin Manager (C10): plugin
// registration, dependency/conflict validation, topological loading,
// per-plugin action proxies, and an event bus layered over the store's
// pub/sub.
//
// Built directly on the di package's Container (github.com/igniter-go/
// igniter/di), grounded on the Info/Init/Start/Stop/Routes shape of
// f1f6786d_FABLOUSFALCON-localmesh's Plugin interface — generalized from
// framework-mounted HTTP routes to typed action callers reachable through
// a per-plugin Proxy — and on 96da7d6e_jingkaihe-matchlock's named-conflict
// pattern for the explicit Conflicts check di.Container doesn't provide.
package plugin

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/igniter-go/igniter/di"
	"github.com/igniter-go/igniter/errs"
	"github.com/igniter-go/igniter/log"
	"github.com/igniter-go/igniter/metrics"
	"github.com/igniter-go/igniter/request"
	"github.com/igniter-go/igniter/store"
)

// ActionFunc is a single plugin action invocation. args is passed through
// exactly as the caller gave it; no schema validation is applied.
type ActionFunc func(ctx context.Context, args any) (any, error)

// EventHandler is a local listener invoked synchronously in sequence by
// Emit, before the event is published for distributed delivery.
type EventHandler func(ctx context.Context, event string, payload any) error

// HookKind names the hook points a plugin or the router can register,
// merged so router-level hooks run first (spec §4.10).
type HookKind string

const (
	HookOnStart    HookKind = "onStart"
	HookOnProgress HookKind = "onProgress"
	HookOnSuccess  HookKind = "onSuccess"
	HookOnFailure  HookKind = "onFailure"
	HookOnRetry    HookKind = "onRetry"
	HookOnComplete HookKind = "onComplete"
)

// HookFunc is a single hook callback.
type HookFunc func(ctx context.Context, payload any)

// Registrar is handed to a Plugin's Register method so it can declare
// actions, event listeners, and hooks without reaching into Manager
// internals directly.
type Registrar struct {
	plugin  string
	manager *Manager
}

// Action registers a named action. Proxy.Call runs it under
// Manager.ActionTimeout; actions declare no schema and their args are not
// validated.
func (r *Registrar) Action(name string, fn ActionFunc) {
	r.manager.registerAction(r.plugin, name, fn)
}

// On registers a local listener for event, run synchronously by Emit
// before the store publish.
func (r *Registrar) On(event string, handler EventHandler) {
	r.manager.registerListener(r.plugin, event, handler)
}

// Hook registers a plugin-defined hook for kind, run after any router-level
// hook for the same kind (spec §4.10 "Hook merging").
func (r *Registrar) Hook(kind HookKind, fn HookFunc) {
	r.manager.registerHook(r.plugin, kind, fn)
}

// Plugin is the interface embedding programs implement to extend the core.
type Plugin interface {
	Name() string
	Version() string
	Requires() []string
	Conflicts() []string
	Register(r *Registrar) error
}

// ActionResult is the shape Action execution always returns (spec §4.10
// "returns {success, data?, error?, executionTime, pluginName, actionName}").
type ActionResult struct {
	Success       bool          `json:"success"`
	Data          any           `json:"data,omitempty"`
	Error         string        `json:"error,omitempty"`
	ExecutionTime time.Duration `json:"executionTime"`
	PluginName    string        `json:"pluginName"`
	ActionName    string        `json:"actionName"`
}

type pluginEntry struct {
	plugin    Plugin
	actions   map[string]ActionFunc
	listeners map[string][]EventHandler
	hooks     map[HookKind][]HookFunc

	calls     metrics.Counter
	errors    metrics.Counter
	totalTime metrics.Histogram
}

// Manager validates the plugin dependency/conflict graph, loads plugins in
// topological order atop a di.Container, and exposes per-plugin Proxy
// values for request.Context injection.
type Manager struct {
	mu        sync.RWMutex
	container di.Container
	store     store.Store
	logger    log.Logger
	metrics   metrics.Metrics

	entries      map[string]*pluginEntry
	routerHooks  map[HookKind][]HookFunc

	// ActionTimeout bounds a single action invocation (spec §4.10 "runs
	// under a wall-clock timeout").
	ActionTimeout time.Duration

	// ListenerTimeout bounds a single local listener invocation during
	// Emit (spec §4.10 "per-listener timeout").
	ListenerTimeout time.Duration
}

// NewManager creates an empty Manager. A nil store defaults to store.Noop;
// a nil metrics.Metrics defaults to an unregistered collector.
func NewManager(st store.Store, m metrics.Metrics, logger log.Logger) *Manager {
	if st == nil {
		st = store.Noop{}
	}

	if m == nil {
		m = metrics.NewMetricsCollector("igniter_plugin")
	}

	if logger == nil {
		logger = log.NewNoopLogger()
	}

	return &Manager{
		container:       di.NewContainer(),
		store:           st,
		logger:          logger,
		metrics:         m,
		entries:         make(map[string]*pluginEntry),
		routerHooks:     make(map[HookKind][]HookFunc),
		ActionTimeout:   10 * time.Second,
		ListenerTimeout: 5 * time.Second,
	}
}

// RegisterRouterHook adds a router-level hook, run before any plugin hook
// of the same kind for the same event (spec §4.10 "Hook merging").
func (m *Manager) RegisterRouterHook(kind HookKind, fn HookFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routerHooks[kind] = append(m.routerHooks[kind], fn)
}

// Register validates p against the existing dependency/conflict graph and
// adds it to the di.Container, deferring actual instantiation/ordering to
// Load. Conflicts are checked both ways: p declaring a conflict with an
// already-registered plugin, or vice versa.
func (m *Manager) Register(p Plugin) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := p.Name()
	if _, exists := m.entries[name]; exists {
		return errs.NewFrameworkError(errs.CodeInitializationError, "plugin already registered: "+name, nil)
	}

	for _, conflict := range p.Conflicts() {
		if _, ok := m.entries[conflict]; ok {
			return errs.NewFrameworkError(errs.CodeInitializationError,
				fmt.Sprintf("plugin %q conflicts with already-registered plugin %q", name, conflict), nil)
		}
	}

	for existingName, existing := range m.entries {
		for _, conflict := range existing.plugin.Conflicts() {
			if conflict == name {
				return errs.NewFrameworkError(errs.CodeInitializationError,
					fmt.Sprintf("plugin %q conflicts with already-registered plugin %q", name, existingName), nil)
			}
		}
	}

	entry := &pluginEntry{
		plugin:    p,
		actions:   make(map[string]ActionFunc),
		listeners: make(map[string][]EventHandler),
		hooks:     make(map[HookKind][]HookFunc),
		calls:     m.metrics.Counter(name + "_calls_total"),
		errors:    m.metrics.Counter(name + "_errors_total"),
		totalTime: m.metrics.Histogram(name + "_call_duration_seconds"),
	}
	m.entries[name] = entry

	deps := make([]di.Dep, 0, len(p.Requires()))
	for _, req := range p.Requires() {
		deps = append(deps, di.Eager(req))
	}

	factory := func(di.Container) (any, error) {
		r := &Registrar{plugin: name, manager: m}
		if err := p.Register(r); err != nil {
			return nil, err
		}

		return entry, nil
	}

	if err := m.container.Register(name, factory, di.WithDeps(deps...)); err != nil {
		delete(m.entries, name)

		return errs.NewFrameworkError(errs.CodeInitializationError, "plugin dependency graph error for "+name, err)
	}

	return nil
}

// Load starts every registered plugin in topological order, failing on a
// missing `Requires` entry or a dependency cycle (detected by the
// underlying di.Container.Start), per spec §4.10.
func (m *Manager) Load(ctx context.Context) error {
	if err := m.container.Start(ctx); err != nil {
		return errs.NewFrameworkError(errs.CodeInitializationError, "plugin dependency graph failed to load", err)
	}

	return nil
}

func (m *Manager) registerAction(plugin, name string, fn ActionFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[plugin]; ok {
		e.actions[name] = fn
	}
}

func (m *Manager) registerListener(plugin, event string, handler EventHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[plugin]; ok {
		e.listeners[event] = append(e.listeners[event], handler)
	}
}

func (m *Manager) registerHook(plugin string, kind HookKind, fn HookFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[plugin]; ok {
		e.hooks[kind] = append(e.hooks[kind], fn)
	}
}

// RunHooks invokes router-level hooks for kind, then every registered
// plugin's hooks for kind, in that order (spec §4.10 "Hook merging").
func (m *Manager) RunHooks(ctx context.Context, kind HookKind, payload any) {
	m.mu.RLock()
	routerHooks := append([]HookFunc(nil), m.routerHooks[kind]...)
	entries := make([]*pluginEntry, 0, len(m.entries))
	for _, e := range m.entries {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	for _, fn := range routerHooks {
		fn(ctx, payload)
	}

	for _, e := range entries {
		for _, fn := range e.hooks[kind] {
			fn(ctx, payload)
		}
	}
}

// Proxy returns the request.PluginProxy for name, for injection into a
// request.Context's Capabilities.Plugins map.
func (m *Manager) Proxy(name string) (request.PluginProxy, bool) {
	m.mu.RLock()
	_, ok := m.entries[name]
	m.mu.RUnlock()

	if !ok {
		return nil, false
	}

	return &Proxy{name: name, manager: m}, true
}

// Proxies returns a request.PluginProxy for every registered plugin,
// keyed by name (spec §4.4 "a `plugins` mapping of per-plugin proxies").
func (m *Manager) Proxies() map[string]request.PluginProxy {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]request.PluginProxy, len(m.entries))
	for name := range m.entries {
		out[name] = &Proxy{name: name, manager: m}
	}

	return out
}

// Proxy is a single plugin's action-invocation surface, implementing
// request.PluginProxy.
type Proxy struct {
	name    string
	manager *Manager
}

func (p *Proxy) Name() string { return p.name }

// Call executes action with a wall-clock timeout, recording per-plugin
// call/error/duration metrics, and returns ActionResult wrapped as `any`
// (spec §4.10's {success,data,error,executionTime,pluginName,actionName}).
func (p *Proxy) Call(ctx context.Context, action string, args any) (any, error) {
	p.manager.mu.RLock()
	entry, ok := p.manager.entries[p.name]
	p.manager.mu.RUnlock()

	if !ok {
		return nil, errs.NewFrameworkError(errs.CodeNotFoundErr, "unknown plugin: "+p.name, nil)
	}

	fn, ok := entry.actions[action]
	if !ok {
		return nil, errs.NewFrameworkError(errs.CodeNotFoundErr, fmt.Sprintf("unknown action %s.%s", p.name, action), nil)
	}

	timeout := p.manager.ActionTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()

	type callResult struct {
		data any
		err  error
	}

	resultCh := make(chan callResult, 1)

	go func() {
		data, err := fn(callCtx, args)
		resultCh <- callResult{data: data, err: err}
	}()

	result := ActionResult{PluginName: p.name, ActionName: action}

	select {
	case r := <-resultCh:
		result.ExecutionTime = time.Since(started)

		if r.err != nil {
			entry.errors.Inc()
			result.Error = r.err.Error()
		} else {
			result.Success = true
			result.Data = r.data
		}

	case <-callCtx.Done():
		result.ExecutionTime = time.Since(started)
		entry.errors.Inc()
		result.Error = fmt.Sprintf("action %s.%s timed out after %s", p.name, action, timeout)
	}

	entry.calls.Inc()
	entry.totalTime.Observe(result.ExecutionTime.Seconds())

	if result.Error != "" {
		return result, errs.NewFrameworkError(errs.CodeInternalServerError, result.Error, nil)
	}

	return result, nil
}

// Emit runs plugin event semantics (spec §4.10): local listeners run
// synchronously in sequence with a per-listener timeout, then the payload
// is published (best-effort) to the store's pub/sub on
// `plugin:events:{event}` for distributed delivery. Errors from local
// listeners or the publish step are logged, never returned — emit is a
// fire-and-forget side effect, matching the spec's error propagation
// policy for C10 publish paths.
func (p *Proxy) Emit(ctx context.Context, event string, payload any) {
	p.manager.mu.RLock()
	entries := make([]*pluginEntry, 0, len(p.manager.entries))
	for _, e := range p.manager.entries {
		entries = append(entries, e)
	}
	p.manager.mu.RUnlock()

	timeout := p.manager.ListenerTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	for _, entry := range entries {
		for _, handler := range entry.listeners[event] {
			p.runListener(ctx, handler, event, payload, timeout)
		}
	}

	message, err := json.Marshal(payload)
	if err != nil {
		p.manager.logger.Warn("emit: failed to serialize event payload", log.String("event", event), log.String("error", err.Error()))

		return
	}

	if err := p.manager.store.Publish(ctx, "plugin:events:"+event, message); err != nil {
		p.manager.logger.Warn("emit: store publish failed", log.String("event", event), log.String("error", err.Error()))
	}
}

func (p *Proxy) runListener(ctx context.Context, handler EventHandler, event string, payload any, timeout time.Duration) {
	listenerCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)

	go func() {
		done <- handler(listenerCtx, event, payload)
	}()

	select {
	case err := <-done:
		if err != nil {
			p.manager.logger.Warn("emit: listener returned error", log.String("event", event), log.String("error", err.Error()))
		}
	case <-listenerCtx.Done():
		p.manager.logger.Warn("emit: listener timed out", log.String("event", event))
	}
}

var _ request.PluginProxy = (*Proxy)(nil)
