package plugin

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type stubPlugin struct {
	name      string
	requires  []string
	conflicts []string
	register  func(r *Registrar) error
}

func (s *stubPlugin) Name() string         { return s.name }
func (s *stubPlugin) Version() string      { return "1.0.0" }
func (s *stubPlugin) Requires() []string   { return s.requires }
func (s *stubPlugin) Conflicts() []string  { return s.conflicts }
func (s *stubPlugin) Register(r *Registrar) error {
	if s.register != nil {
		return s.register(r)
	}

	return nil
}

func TestRegister_ConflictDetected(t *testing.T) {
	m := NewManager(nil, nil, nil)

	if err := m.Register(&stubPlugin{name: "billing"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := m.Register(&stubPlugin{name: "legacy-billing", conflicts: []string{"billing"}})
	if err == nil {
		t.Fatal("expected conflict error")
	}
}

func TestLoad_OrdersByRequires(t *testing.T) {
	m := NewManager(nil, nil, nil)

	var order []string
	var mu sync.Mutex

	record := func(name string) func(r *Registrar) error {
		return func(r *Registrar) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()

			return nil
		}
	}

	_ = m.Register(&stubPlugin{name: "core", register: record("core")})
	_ = m.Register(&stubPlugin{name: "billing", requires: []string{"core"}, register: record("billing")})

	if err := m.Load(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(order) != 2 || order[0] != "core" || order[1] != "billing" {
		t.Fatalf("expected core before billing, got %v", order)
	}
}

func TestLoad_MissingRequiresFails(t *testing.T) {
	m := NewManager(nil, nil, nil)

	_ = m.Register(&stubPlugin{name: "billing", requires: []string{"ghost"}})

	if err := m.Load(context.Background()); err == nil {
		t.Fatal("expected error for missing dependency")
	}
}

func TestProxy_CallSuccess(t *testing.T) {
	m := NewManager(nil, nil, nil)

	_ = m.Register(&stubPlugin{name: "billing", register: func(r *Registrar) error {
		r.Action("charge", func(ctx context.Context, args any) (any, error) {
			return map[string]any{"ok": true}, nil
		})

		return nil
	}})
	_ = m.Load(context.Background())

	proxy, ok := m.Proxy("billing")
	if !ok {
		t.Fatal("expected proxy for billing")
	}

	result, err := proxy.Call(context.Background(), "charge", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ar := result.(ActionResult)
	if !ar.Success || ar.PluginName != "billing" || ar.ActionName != "charge" {
		t.Fatalf("unexpected result: %+v", ar)
	}
}

func TestProxy_CallTimeout(t *testing.T) {
	m := NewManager(nil, nil, nil)
	m.ActionTimeout = 10 * time.Millisecond

	_ = m.Register(&stubPlugin{name: "slow", register: func(r *Registrar) error {
		r.Action("wait", func(ctx context.Context, args any) (any, error) {
			select {
			case <-time.After(time.Second):
				return nil, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		})

		return nil
	}})
	_ = m.Load(context.Background())

	proxy, _ := m.Proxy("slow")

	_, err := proxy.Call(context.Background(), "wait", nil)
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestProxy_EmitRunsLocalListeners(t *testing.T) {
	m := NewManager(nil, nil, nil)

	received := make(chan string, 1)

	_ = m.Register(&stubPlugin{name: "notifier", register: func(r *Registrar) error {
		r.On("user.created", func(ctx context.Context, event string, payload any) error {
			received <- event
			return nil
		})

		return nil
	}})
	_ = m.Load(context.Background())

	proxy, _ := m.Proxy("notifier")
	proxy.Emit(context.Background(), "user.created", map[string]any{"id": 1})

	select {
	case ev := <-received:
		if ev != "user.created" {
			t.Fatalf("unexpected event: %q", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("expected listener to be invoked")
	}
}

func TestRunHooks_RouterBeforePlugin(t *testing.T) {
	m := NewManager(nil, nil, nil)

	var order []string
	m.RegisterRouterHook(HookOnSuccess, func(ctx context.Context, payload any) {
		order = append(order, "router")
	})

	_ = m.Register(&stubPlugin{name: "p", register: func(r *Registrar) error {
		r.Hook(HookOnSuccess, func(ctx context.Context, payload any) {
			order = append(order, "plugin")
		})

		return nil
	}})
	_ = m.Load(context.Background())

	m.RunHooks(context.Background(), HookOnSuccess, nil)

	if len(order) != 2 || order[0] != "router" || order[1] != "plugin" {
		t.Fatalf("expected router hook before plugin hook, got %v", order)
	}
}

func TestProxy_CallUnknownAction(t *testing.T) {
	m := NewManager(nil, nil, nil)
	_ = m.Register(&stubPlugin{name: "p"})
	_ = m.Load(context.Background())

	proxy, _ := m.Proxy("p")

	_, err := proxy.Call(context.Background(), "ghost", nil)
	if err == nil {
		t.Fatal("expected error for unknown action")
	}

	var target error
	if !errors.As(err, &target) {
		t.Fatal("expected an error value")
	}
}
