package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/igniter-go/igniter/log"
	"github.com/igniter-go/igniter/request"
	"github.com/igniter-go/igniter/response"
)

func newTestContext(t *testing.T) *request.Context {
	t.Helper()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	return request.New(w, r, nil, nil, request.Capabilities{Logger: log.NewNoopLogger()})
}

func TestRun_ContinuesThroughAll(t *testing.T) {
	ctx := newTestContext(t)

	calls := 0
	funcs := []Func{
		func(*request.Context) Result { calls++; return Continue() },
		func(*request.Context) Result { calls++; return Continue() },
	}

	outcome := Run(ctx, funcs)
	if outcome.Done() {
		t.Fatal("expected pipeline not done")
	}

	if calls != 2 {
		t.Fatalf("expected both middleware to run, got %d calls", calls)
	}
}

func TestRun_EarlyReturnSkipsRemaining(t *testing.T) {
	ctx := newTestContext(t)

	ran := false
	funcs := []Func{
		func(*request.Context) Result { return EarlyReturn(response.New().Success(nil)) },
		func(*request.Context) Result { ran = true; return Continue() },
	}

	outcome := Run(ctx, funcs)
	if outcome.EarlyResponse == nil {
		t.Fatal("expected early response")
	}

	if ran {
		t.Fatal("expected second middleware to be skipped")
	}
}

func TestRun_MergeVisibleToSubsequent(t *testing.T) {
	ctx := newTestContext(t)

	var observed any
	funcs := []Func{
		func(*request.Context) Result { return MergeContext(map[string]any{"tenant": "acme"}) },
		func(c *request.Context) Result { observed, _ = c.Get("tenant"); return Continue() },
	}

	Run(ctx, funcs)

	if observed != "acme" {
		t.Fatalf("expected merge visible to subsequent middleware, got %v", observed)
	}
}

func TestRun_FailedAborts(t *testing.T) {
	ctx := newTestContext(t)

	sentinel := errors.New("boom")
	funcs := []Func{
		func(*request.Context) Result { return Failed(sentinel) },
		func(*request.Context) Result { t.Fatal("unreachable"); return Continue() },
	}

	outcome := Run(ctx, funcs)
	if !errors.Is(outcome.Err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", outcome.Err)
	}
}

func TestRun_StopEndsWithoutError(t *testing.T) {
	ctx := newTestContext(t)

	funcs := []Func{
		func(*request.Context) Result { return Stop() },
	}

	outcome := Run(ctx, funcs)
	if !outcome.Stopped || outcome.Err != nil || outcome.EarlyResponse != nil {
		t.Fatalf("expected clean stop, got %+v", outcome)
	}
}

func TestRunPhases_GlobalFailureSkipsLocal(t *testing.T) {
	ctx := newTestContext(t)

	localRan := false
	global := []Func{func(*request.Context) Result { return Failed(errors.New("global failure")) }}
	local := []Func{func(*request.Context) Result { localRan = true; return Continue() }}

	outcome := RunPhases(ctx, global, local)
	if outcome.Err == nil {
		t.Fatal("expected error from global phase")
	}

	if localRan {
		t.Fatal("expected local phase to be skipped")
	}
}

func TestRunPhases_OrderingGlobalThenLocal(t *testing.T) {
	ctx := newTestContext(t)

	var order []string
	global := []Func{func(*request.Context) Result { order = append(order, "global"); return Continue() }}
	local := []Func{func(*request.Context) Result { order = append(order, "local"); return Continue() }}

	RunPhases(ctx, global, local)

	if len(order) != 2 || order[0] != "global" || order[1] != "local" {
		t.Fatalf("unexpected order: %v", order)
	}
}
