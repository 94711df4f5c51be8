package processor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/igniter-go/igniter/log"
	"github.com/igniter-go/igniter/middleware"
	"github.com/igniter-go/igniter/request"
	"github.com/igniter-go/igniter/response"
	"github.com/igniter-go/igniter/router"
	"github.com/igniter-go/igniter/telemetry"
)

func newProcessor() *Processor {
	r := router.New()
	tm := telemetry.NewManager(nil, nil, nil)

	return New(r, tm, nil, log.NewNoopLogger())
}

func decodeEnvelope(t *testing.T, body []byte) map[string]any {
	t.Helper()

	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	return decoded
}

func TestHandle_UnknownRouteIs404Empty(t *testing.T) {
	p := newProcessor()

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	w := httptest.NewRecorder()

	p.Handle(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}

	if w.Body.Len() != 0 {
		t.Fatalf("expected empty body, got %q", w.Body.String())
	}
}

func TestHandle_SuccessEnvelope(t *testing.T) {
	p := newProcessor()
	p.Router.Register(router.Controller{Actions: []router.Action{
		{Method: http.MethodGet, Pattern: "/widgets/:id", Handler: func(ctx *request.Context) *response.Response {
			return response.New().Success(map[string]any{"id": ctx.Param("id")})
		}},
	}})

	req := httptest.NewRequest(http.MethodGet, "/widgets/42", nil)
	w := httptest.NewRecorder()

	p.Handle(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	decoded := decodeEnvelope(t, w.Body.Bytes())
	if decoded["error"] != nil {
		t.Fatalf("expected nil error, got %v", decoded["error"])
	}

	data := decoded["data"].(map[string]any)
	if data["id"] != "42" {
		t.Fatalf("expected id 42, got %v", data["id"])
	}
}

func TestHandle_MiddlewareEarlyReturn(t *testing.T) {
	p := newProcessor()
	p.Router.Use(func(*request.Context) middleware.Result {
		return middleware.EarlyReturn(response.New().Error(http.StatusUnauthorized, map[string]any{
			"message": "Token expired", "code": "ERR_UNAUTHORIZED",
		}))
	})
	p.Router.Register(router.Controller{Actions: []router.Action{
		{Method: http.MethodGet, Pattern: "/secure", Handler: func(*request.Context) *response.Response {
			t.Fatal("handler should not run after early return")
			return nil
		}},
	}})

	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	w := httptest.NewRecorder()

	p.Handle(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}

	decoded := decodeEnvelope(t, w.Body.Bytes())
	errBody := decoded["error"].(map[string]any)
	if errBody["code"] != "ERR_UNAUTHORIZED" {
		t.Fatalf("unexpected code: %v", errBody["code"])
	}
}

func TestHandle_MiddlewareFailureClassified(t *testing.T) {
	p := newProcessor()
	p.Router.Use(func(*request.Context) middleware.Result {
		return middleware.Failed(errors.New("boom"))
	})
	p.Router.Register(router.Controller{Actions: []router.Action{
		{Method: http.MethodGet, Pattern: "/x", Handler: func(*request.Context) *response.Response { return nil }},
	}})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	w := httptest.NewRecorder()

	p.Handle(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestHandle_NilHandlerResultBecomesSuccess(t *testing.T) {
	p := newProcessor()
	p.Router.Register(router.Controller{Actions: []router.Action{
		{Method: http.MethodGet, Pattern: "/nil", Handler: func(*request.Context) *response.Response { return nil }},
	}})

	req := httptest.NewRequest(http.MethodGet, "/nil", nil)
	w := httptest.NewRecorder()

	p.Handle(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

type signupRequest struct {
	Email string `json:"email" format:"email"`
}

func TestHandle_BodySchemaRejectsInvalidPayload(t *testing.T) {
	p := newProcessor()
	p.Router.Register(router.Controller{Actions: []router.Action{
		{
			Method:     http.MethodPost,
			Pattern:    "/signup",
			BodySchema: &signupRequest{},
			Handler: func(*request.Context) *response.Response {
				t.Fatal("handler should not run when the body schema rejects the payload")
				return nil
			},
		},
	}})

	req := httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(`{"email":"nope"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	p.Handle(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	decoded := decodeEnvelope(t, w.Body.Bytes())
	errBody := decoded["error"].(map[string]any)
	if errBody["code"] != "VALIDATION_ERROR" {
		t.Fatalf("unexpected code: %v", errBody["code"])
	}
}

func TestHandle_BodySchemaAcceptsValidPayloadAndReplacesBody(t *testing.T) {
	p := newProcessor()
	var gotEmail string

	p.Router.Register(router.Controller{Actions: []router.Action{
		{
			Method:     http.MethodPost,
			Pattern:    "/signup",
			BodySchema: &signupRequest{},
			Handler: func(ctx *request.Context) *response.Response {
				gotEmail = ctx.Body.JSON.(*signupRequest).Email
				return response.New().Success(nil)
			},
		},
	}})

	req := httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(`{"email":"a@b.com"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	p.Handle(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	if gotEmail != "a@b.com" {
		t.Fatalf("expected handler to observe the decoded schema instance, got %q", gotEmail)
	}
}

func TestHandleSelfDispatch_RoutesThroughSamePipeline(t *testing.T) {
	p := newProcessor()

	action := router.Action{
		Method:  http.MethodGet,
		Pattern: "/internal/:id",
		Handler: func(ctx *request.Context) *response.Response {
			return response.New().Success(map[string]any{"id": ctx.Param("id")})
		},
	}
	p.Router.Register(router.Controller{Actions: []router.Action{action}})

	resp := p.HandleSelfDispatch(context.Background(), &action, map[string]string{"id": "7"}, nil)

	decoded := decodeEnvelope(t, resp.Body)
	data := decoded["data"].(map[string]any)
	if data["id"] != "7" {
		t.Fatalf("expected id 7, got %v", data["id"])
	}
}
