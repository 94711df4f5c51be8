// Package response implements the response builder (C6): a fluent,
// finalize-once API that shapes every terminal handler result into the
// framework's {error,data} envelope, or a header/cookie-only 204, or an SSE
// stream hand-off payload.
//
// Grounded on xraph-go-utils/http's Ctx response helpers (JSON/Error/Cookie
// methods writing through a single http.ResponseWriter) generalized from an
// immediate-write model to a buffered builder whose terminal methods
// (Success, Error, NoContent, ...) return a *Response, so middleware and
// the processor can inspect or override a
// response before anything reaches the wire.
package response

import (
	"net/http"
	"time"

	"github.com/igniter-go/igniter/sse"
)

// revalidationChannel is the fixed SSE channel every Revalidate call
// publishes to (spec §4.6 "revalidate(...) publishes ... on the
// `revalidation` channel").
const revalidationChannel = "revalidation"

// Publisher is the subset of *sse.Hub a Builder needs to carry out the
// publish side effects of Stream and Revalidate (spec §4.6 scenarios 4-5).
// *sse.Hub satisfies this directly; nothing in this package depends on the
// rest of sse's connection-handling surface.
type Publisher interface {
	Publish(sse.Event) int
	RegisterChannel(id, description string)
}

// Cookie mirrors http.Cookie's fields the builder accepts; kept separate so
// this package has no dependency on the cookie package's signing concerns.
type Cookie = http.Cookie

// StreamInfo describes an SSE hand-off, embedded in a stream response's
// data payload per spec §4.6 scenario 4.
type StreamInfo struct {
	ChannelID      string         `json:"channelId"`
	ConnectionInfo ConnectionInfo `json:"connectionInfo"`
}

// ConnectionInfo is the client-facing description of how to open the actual
// SSE connection; it is informational only, it does not open a connection.
type ConnectionInfo struct {
	Endpoint string            `json:"endpoint"`
	Params   map[string]string `json:"params,omitempty"`
}

// Response is the finalized, immutable result of a Builder, ready to be
// written to an http.ResponseWriter by the processor (C11).
type Response struct {
	Status  int
	Header  http.Header
	Cookies []*Cookie
	Body    []byte // pre-encoded safe JSON, nil for NoBody responses
	NoBody  bool
}

// Builder accumulates response state before a single terminal call
// (Success/Error/NoContent/Redirect/Stream) finalizes it. Status, Header
// and Cookie return the Builder for chaining; the terminal methods return
// the finalized *Response.
type Builder struct {
	status    int
	header    http.Header
	cookies   []*Cookie
	envelope  *envelope
	noBody    bool
	finished  bool
	publisher Publisher
}

type envelope struct {
	Error any `json:"error"`
	Data  any `json:"data"`
}

// New creates an empty Builder defaulted to 200 OK, with no publisher: its
// Stream and Revalidate calls will shape the response payload but will not
// publish anything. Handlers that need the publish side effect use
// NewWithPublisher, or the request package's context-bound convenience
// wrapper.
func New() *Builder {
	return NewWithPublisher(nil)
}

// NewWithPublisher creates a Builder whose Stream and Revalidate calls
// publish through pub, per spec §4.6 scenarios 4-5. A nil pub behaves like
// New.
func NewWithPublisher(pub Publisher) *Builder {
	return &Builder{
		status:    http.StatusOK,
		header:    make(http.Header),
		publisher: pub,
	}
}

// Status sets the status code used by Redirect when it is a 3xx code. The
// other terminal methods ignore it: Success, Stream and Revalidate use 200,
// Created 201, NoContent 204, and Error its status argument.
func (b *Builder) Status(code int) *Builder {
	b.status = code
	return b
}

// Header sets a response header. Repeated calls with the same key replace
// the prior value (spec §5 shallow-merge semantics carried over to headers).
func (b *Builder) Header(key, value string) *Builder {
	b.header.Set(key, value)
	return b
}

// Cookie queues a cookie to be written alongside the finalized response.
func (b *Builder) Cookie(c *Cookie) *Builder {
	b.cookies = append(b.cookies, c)
	return b
}

// Success finalizes a 200 {error:null,data} envelope, per spec §4.6/§8.
func (b *Builder) Success(data any) *Response {
	return b.envelopeResponse(http.StatusOK, nil, data)
}

// Created finalizes a 201 {error:null,data} envelope.
func (b *Builder) Created(data any) *Response {
	return b.envelopeResponse(http.StatusCreated, nil, data)
}

// NoContent finalizes an empty-body, header-less 204, per spec §8's
// discipline that a noContent response carries no Content-Type and no body
// regardless of what was set on the builder earlier.
func (b *Builder) NoContent() *Response {
	b.finished = true

	return &Response{
		Status:  http.StatusNoContent,
		Header:  make(http.Header),
		Cookies: b.cookies,
		NoBody:  true,
	}
}

// Redirect finalizes a redirect response: status defaults to 302 unless
// Status was called with a 3xx code first.
func (b *Builder) Redirect(location string) *Response {
	status := b.status
	if status < 300 || status >= 400 {
		status = http.StatusFound
	}

	b.header.Set("Location", location)
	b.finished = true

	return &Response{
		Status:  status,
		Header:  b.header,
		Cookies: b.cookies,
		NoBody:  true,
	}
}

// Error finalizes an {error,data:null} envelope for a classified failure.
// Callers typically pass the Envelope produced by errs.Classify and its
// paired status, rather than constructing one by hand.
func (b *Builder) Error(status int, errBody any) *Response {
	return b.envelopeResponse(status, errBody, nil)
}

// Stream finalizes a 200 {error:null,data:StreamInfo} response describing
// an SSE hand-off. Before returning, if a publisher is bound it registers
// info.ChannelID (idempotent, so an already-known channel is unaffected)
// and publishes initialData on it, per spec §4.6 scenario 4 ("initialData
// is published before returning"). It does not itself open an SSE
// connection or change the response's Content-Type to text/event-stream:
// the client makes a subsequent GET to ConnectionInfo.Endpoint to do that.
func (b *Builder) Stream(info StreamInfo, initialData any) *Response {
	if b.publisher != nil {
		b.publisher.RegisterChannel(info.ChannelID, "")

		if payload, err := safeMarshal(initialData); err == nil {
			b.publisher.Publish(sse.Event{Channel: info.ChannelID, Data: payload})
		}
	}

	return b.envelopeResponse(http.StatusOK, nil, map[string]any{
		"type":           "stream",
		"channelId":      info.ChannelID,
		"connectionInfo": info.ConnectionInfo,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}

// Revalidate finalizes a 200 envelope acknowledging a cache-revalidation
// request and, if a publisher is bound, publishes a "revalidate" event on
// the fixed `revalidation` channel with data `{queryKeys, data, timestamp}`
// and the given scopes, per spec §4.6/§8 scenario 5. Scope resolution from
// request state (e.g. a tenant id pulled off the context) happens one
// layer up, in the caller or the request package's context-bound
// convenience wrapper, so this package stays free of any dependency on
// request state.
func (b *Builder) Revalidate(queryKeys []string, scopes []string, data any) *Response {
	payload := map[string]any{
		"queryKeys": queryKeys,
		"data":      data,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if b.publisher != nil {
		if encoded, err := safeMarshal(payload); err == nil {
			b.publisher.RegisterChannel(revalidationChannel, "")
			b.publisher.Publish(sse.Event{Channel: revalidationChannel, Type: "revalidate", Data: encoded, Scopes: scopes})
		}
	}

	resp := b.envelopeResponse(http.StatusOK, nil, payload)
	resp.Header.Set("X-Revalidate-Channel", revalidationChannel)

	if len(scopes) > 0 {
		resp.Header.Set("X-Revalidate-Scopes", joinScopes(scopes))
	}

	return resp
}

func (b *Builder) envelopeResponse(status int, errBody, data any) *Response {
	b.finished = true

	body, encErr := safeMarshal(envelope{Error: errBody, Data: data})
	if encErr != nil {
		// Safe marshal only fails if json.Marshal itself rejects a leaf
		// value (e.g. a channel); fall back to a minimal error envelope
		// rather than propagating an encoding error out of the terminal method.
		body, _ = safeMarshal(envelope{
			Error: map[string]string{"code": "INTERNAL_SERVER_ERROR", "message": "failed to encode response"},
			Data:  nil,
		})
		status = http.StatusInternalServerError
	}

	header := b.header
	header.Set("Content-Type", "application/json; charset=utf-8")

	return &Response{
		Status:  status,
		Header:  header,
		Cookies: b.cookies,
		Body:    body,
	}
}

// Finished reports whether a terminal method has already been called,
// letting the processor (C11) guard against a handler accidentally
// returning a Builder it never finalized.
func (b *Builder) Finished() bool {
	return b.finished
}

func joinScopes(scopes []string) string {
	out := scopes[0]
	for _, s := range scopes[1:] {
		out += "," + s
	}

	return out
}

// WriteTo writes a finalized Response to w: cookies, then headers, then
// status, then body, matching the ordering net/http requires (headers must
// be set before WriteHeader).
func (r *Response) WriteTo(w http.ResponseWriter) {
	for _, c := range r.Cookies {
		http.SetCookie(w, c)
	}

	for key, values := range r.Header {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}

	if r.NoBody {
		w.Header().Del("Content-Type")
		w.WriteHeader(r.Status)

		return
	}

	w.WriteHeader(r.Status)
	_, _ = w.Write(r.Body)
}
