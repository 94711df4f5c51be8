package di

import (
	"context"
	"fmt"
	"sync"
)

// entry is one registered service's bookkeeping.
type entry struct {
	name     string
	factory  Factory
	opts     RegisterOption
	instance any
	started  bool
	typeName string
}

// container is the default Container implementation: a name-keyed
// registry with dependency-ordered Start/Stop, built to satisfy exactly
// the contract declared in di.go/di_opts.go/dep.go/service.go — those
// files specify the full interface but ship no implementation in the
// teacher's package, so this completes it rather than inventing a
// parallel one elsewhere.
type container struct {
	mu       sync.RWMutex
	entries  map[string]*entry
	order    []string // start order, recorded once Start succeeds
	starting map[string]bool
}

// NewContainer creates an empty Container.
func NewContainer() Container {
	return &container{entries: make(map[string]*entry)}
}

func (c *container) Register(name string, factory Factory, opts ...RegisterOption) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[name]; exists {
		return fmt.Errorf("di: service %q already registered", name)
	}

	if factory == nil {
		return fmt.Errorf("di: service %q has a nil factory", name)
	}

	c.entries[name] = &entry{
		name:    name,
		factory: factory,
		opts:    MergeOptions(opts),
	}

	return nil
}

func (c *container) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[name]

	return ok
}

func (c *container) IsStarted(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[name]

	return ok && e.started
}

func (c *container) Services() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}

	return names
}

// Resolve instantiates (if needed) and returns the named service, without
// enforcing Start ordering — callers needing a fully-started dependency
// graph should use ResolveReady or Start.
func (c *container) Resolve(name string) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.resolveLocked(name)
}

func (c *container) resolveLocked(name string) (any, error) {
	e, ok := c.entries[name]
	if !ok {
		return nil, fmt.Errorf("di: service %q not registered", name)
	}

	if e.instance != nil {
		return e.instance, nil
	}

	instance, err := e.factory(c)
	if err != nil {
		return nil, fmt.Errorf("di: failed to build %q: %w", name, err)
	}

	if e.opts.Lifecycle == "transient" {
		return instance, nil
	}

	e.instance = instance

	return instance, nil
}

// ResolveReady resolves name and starts it (and, transitively, any eager
// dependency it declared) if not already started.
func (c *container) ResolveReady(ctx context.Context, name string) (any, error) {
	if err := c.startOne(ctx, name, make(map[string]bool)); err != nil {
		return nil, err
	}

	return c.Resolve(name)
}

func (c *container) BeginScope() Scope {
	return &scope{container: c, cache: make(map[string]any)}
}

// Start brings up every registered service in dependency order: a
// service's Eager dependencies are started before it; Lazy/LazyOptional
// dependencies are not ordering constraints (they resolve on first
// access); Optional/LazyOptional dependencies are skipped if absent
// rather than failing the graph.
func (c *container) Start(ctx context.Context) error {
	c.mu.RLock()
	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	c.mu.RUnlock()

	visited := make(map[string]bool)
	for _, name := range names {
		if err := c.startOne(ctx, name, visited); err != nil {
			return err
		}
	}

	return nil
}

func (c *container) startOne(ctx context.Context, name string, visited map[string]bool) error {
	if visited[name] {
		return nil
	}

	c.mu.Lock()
	e, ok := c.entries[name]
	if !ok {
		c.mu.Unlock()

		return fmt.Errorf("di: service %q not registered", name)
	}

	if e.started {
		c.mu.Unlock()

		return nil
	}

	if c.starting[name] {
		c.mu.Unlock()

		return fmt.Errorf("di: circular dependency detected at %q", name)
	}

	if c.starting == nil {
		c.starting = make(map[string]bool)
	}

	c.starting[name] = true
	deps := e.opts.GetAllDeps()
	c.mu.Unlock()

	for _, dep := range deps {
		if dep.Mode.IsLazy() {
			continue
		}

		if dep.Mode.IsOptional() && !c.Has(dep.Name) {
			continue
		}

		if err := c.startOne(ctx, dep.Name, visited); err != nil {
			c.mu.Lock()
			delete(c.starting, name)
			c.mu.Unlock()

			return fmt.Errorf("di: starting dependency %q of %q: %w", dep.Name, name, err)
		}
	}

	instance, err := c.Resolve(name)
	if err != nil {
		c.mu.Lock()
		delete(c.starting, name)
		c.mu.Unlock()

		return err
	}

	if svc, ok := instance.(Service); ok {
		if err := svc.Start(ctx); err != nil {
			c.mu.Lock()
			delete(c.starting, name)
			c.mu.Unlock()

			return fmt.Errorf("di: starting %q: %w", name, err)
		}
	}

	c.mu.Lock()
	e.started = true
	visited[name] = true
	c.order = append(c.order, name)
	delete(c.starting, name)
	c.mu.Unlock()

	return nil
}

// Stop shuts down every started service in reverse start order.
func (c *container) Stop(ctx context.Context) error {
	c.mu.RLock()
	order := append([]string(nil), c.order...)
	c.mu.RUnlock()

	var firstErr error

	for i := len(order) - 1; i >= 0; i-- {
		name := order[i]

		c.mu.RLock()
		e := c.entries[name]
		c.mu.RUnlock()

		if e == nil || e.instance == nil {
			continue
		}

		if svc, ok := e.instance.(Service); ok {
			if err := svc.Stop(ctx); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("di: stopping %q: %w", name, err)
			}
		}
	}

	c.mu.Lock()
	c.order = nil
	c.mu.Unlock()

	return firstErr
}

// Health runs HealthChecker.Health on every instantiated service (resolved
// or started) that implements it, returning the first failure encountered.
func (c *container) Health(ctx context.Context) error {
	c.mu.RLock()
	entries := make([]*entry, 0, len(c.entries))
	for _, e := range c.entries {
		entries = append(entries, e)
	}
	c.mu.RUnlock()

	for _, e := range entries {
		if e.instance == nil {
			continue
		}

		if hc, ok := e.instance.(HealthChecker); ok {
			if err := hc.Health(ctx); err != nil {
				return fmt.Errorf("di: health check failed for %q: %w", e.name, err)
			}
		}
	}

	return nil
}

func (c *container) Inspect(name string) ServiceInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[name]
	if !ok {
		return ServiceInfo{Name: name}
	}

	return ServiceInfo{
		Name:         name,
		Lifecycle:    e.opts.Lifecycle,
		Dependencies: e.opts.GetAllDepNames(),
		Deps:         e.opts.GetAllDeps(),
		Started:      e.started,
		Metadata:     e.opts.Metadata,
	}
}

// scope implements Scope: scoped services are cached per-scope, singletons
// fall through to the parent container.
type scope struct {
	container *container
	mu        sync.Mutex
	cache     map[string]any
}

func (s *scope) Resolve(name string) (any, error) {
	s.container.mu.RLock()
	e, ok := s.container.entries[name]
	s.container.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("di: service %q not registered", name)
	}

	if e.opts.Lifecycle != "scoped" {
		return s.container.Resolve(name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.cache[name]; ok {
		return v, nil
	}

	instance, err := e.factory(s.container)
	if err != nil {
		return nil, fmt.Errorf("di: failed to build scoped %q: %w", name, err)
	}

	s.cache[name] = instance

	return instance, nil
}

func (s *scope) End() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error

	for name, instance := range s.cache {
		if d, ok := instance.(Disposable); ok {
			if err := d.Dispose(); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("di: disposing scoped %q: %w", name, err)
			}
		}
	}

	s.cache = make(map[string]any)

	return firstErr
}

var _ Container = (*container)(nil)
