package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/igniter-go/igniter/sse"
)

func TestSuccess_EnvelopeExact(t *testing.T) {
	resp := New().Success(map[string]any{"id": 1})

	var decoded map[string]any
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if _, ok := decoded["error"]; !ok {
		t.Fatal("expected error key present")
	}

	if decoded["error"] != nil {
		t.Fatalf("expected error: null, got %v", decoded["error"])
	}

	if len(decoded) != 2 {
		t.Fatalf("expected exactly {error,data}, got %v", decoded)
	}

	if resp.Status != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Status)
	}
}

func TestNoContent_NoBodyNoContentType(t *testing.T) {
	b := New().Header("Content-Type", "text/plain").Header("X-Foo", "bar")
	resp := b.NoContent()

	if resp.Status != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Status)
	}

	if !resp.NoBody {
		t.Fatal("expected NoBody true")
	}

	w := httptest.NewRecorder()
	resp.WriteTo(w)

	if ct := w.Header().Get("Content-Type"); ct != "" {
		t.Fatalf("expected no Content-Type, got %q", ct)
	}

	if w.Body.Len() != 0 {
		t.Fatalf("expected empty body, got %q", w.Body.String())
	}
}

type stubPublisher struct {
	registered []string
	published  []sse.Event
}

func (s *stubPublisher) RegisterChannel(id, description string) {
	s.registered = append(s.registered, id)
}

func (s *stubPublisher) Publish(e sse.Event) int {
	s.published = append(s.published, e)
	return 1
}

func TestStream_PayloadShape(t *testing.T) {
	resp := New().Stream(StreamInfo{
		ChannelID: "users.notifications",
		ConnectionInfo: ConnectionInfo{
			Endpoint: "/sse/events",
			Params:   map[string]string{"channels": "users.notifications"},
		},
	}, nil)

	var decoded struct {
		Error any `json:"error"`
		Data  struct {
			Type           string `json:"type"`
			ChannelID      string `json:"channelId"`
			ConnectionInfo struct {
				Endpoint string            `json:"endpoint"`
				Params   map[string]string `json:"params"`
			} `json:"connectionInfo"`
			Timestamp string `json:"timestamp"`
		} `json:"data"`
	}

	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if decoded.Data.Type != "stream" {
		t.Fatalf("expected type stream, got %q", decoded.Data.Type)
	}

	if decoded.Data.ChannelID != "users.notifications" {
		t.Fatalf("unexpected channelId: %q", decoded.Data.ChannelID)
	}

	if decoded.Data.ConnectionInfo.Endpoint != "/sse/events" {
		t.Fatalf("unexpected endpoint: %q", decoded.Data.ConnectionInfo.Endpoint)
	}

	if decoded.Data.Timestamp == "" {
		t.Fatal("expected a non-empty timestamp")
	}
}

func TestRevalidate_ScopeHeader(t *testing.T) {
	resp := New().Revalidate([]string{"user-profile"}, []string{"tenant:42", "user:7"}, map[string]any{"ok": true})

	if got := resp.Header.Get("X-Revalidate-Channel"); got != "revalidation" {
		t.Fatalf("unexpected channel header: %q", got)
	}

	if got := resp.Header.Get("X-Revalidate-Scopes"); got != "tenant:42,user:7" {
		t.Fatalf("unexpected scopes header: %q", got)
	}
}

func TestStream_PublishesInitialDataBeforeReturning(t *testing.T) {
	pub := &stubPublisher{}

	NewWithPublisher(pub).Stream(StreamInfo{ChannelID: "users.notifications"}, map[string]any{"status": "connected"})

	if len(pub.registered) != 1 || pub.registered[0] != "users.notifications" {
		t.Fatalf("expected channel registration, got %v", pub.registered)
	}

	if len(pub.published) != 1 {
		t.Fatalf("expected one published event, got %d", len(pub.published))
	}

	var decoded map[string]any
	if err := json.Unmarshal(pub.published[0].Data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if decoded["status"] != "connected" {
		t.Fatalf("unexpected published data: %v", decoded)
	}
}

func TestRevalidate_PublishesScopedEvent(t *testing.T) {
	pub := &stubPublisher{}

	NewWithPublisher(pub).Revalidate([]string{"user-profile"}, []string{"tenant:42"}, nil)

	if len(pub.published) != 1 {
		t.Fatalf("expected one published event, got %d", len(pub.published))
	}

	event := pub.published[0]
	if event.Channel != "revalidation" || event.Type != "revalidate" {
		t.Fatalf("unexpected event: %+v", event)
	}

	if len(event.Scopes) != 1 || event.Scopes[0] != "tenant:42" {
		t.Fatalf("unexpected scopes: %v", event.Scopes)
	}

	var decoded struct {
		QueryKeys []string `json:"queryKeys"`
		Data      any      `json:"data"`
		Timestamp string   `json:"timestamp"`
	}

	if err := json.Unmarshal(event.Data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if len(decoded.QueryKeys) != 1 || decoded.QueryKeys[0] != "user-profile" {
		t.Fatalf("unexpected queryKeys: %v", decoded.QueryKeys)
	}

	if decoded.Timestamp == "" {
		t.Fatal("expected a non-empty timestamp")
	}
}

func TestError_EnvelopeCarriesNilData(t *testing.T) {
	resp := New().Error(http.StatusBadRequest, map[string]any{"code": "ERR_BAD_REQUEST", "message": "bad"})

	var decoded map[string]any
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if decoded["data"] != nil {
		t.Fatalf("expected data: null, got %v", decoded["data"])
	}

	if resp.Status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Status)
	}
}

func TestCookies_WrittenBeforeStatus(t *testing.T) {
	resp := New().Cookie(&http.Cookie{Name: "session", Value: "abc"}).Success(nil)

	w := httptest.NewRecorder()
	resp.WriteTo(w)

	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "session" {
		t.Fatalf("expected session cookie, got %v", cookies)
	}
}

func TestRedirect_DefaultsTo302(t *testing.T) {
	resp := New().Redirect("/login")

	if resp.Status != http.StatusFound {
		t.Fatalf("expected 302, got %d", resp.Status)
	}

	if resp.Header.Get("Location") != "/login" {
		t.Fatalf("unexpected Location: %q", resp.Header.Get("Location"))
	}
}

func TestFinished_TracksTerminalCall(t *testing.T) {
	b := New()
	if b.Finished() {
		t.Fatal("expected not finished before terminal call")
	}

	b.Success(nil)
	if !b.Finished() {
		t.Fatal("expected finished after Success")
	}
}
