// Package sse implements the SSE hub (C9): a process-global channel
// registry, per-connection dispatch, keep-alive, and scope filtering.
//
// Grounded on e6a18803_rjsadow-sortie's internal/sse Hub: the buffered
// per-client channel, heartbeat ticker, and fmt.Fprintf-based event framing
// are the same shape, generalized from one implicit channel and JWT-gated
// clients to the spec's named-channel registry with query-driven
// subscription and scope-based filtering, and from http.ResponseWriter
// fan-out to a connection abstraction the response builder (C6) can also
// drive for its stream hand-off.
package sse

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/igniter-go/igniter/errs"
	"github.com/igniter-go/igniter/log"
)

// clientBufSize is the per-connection event buffer; a slow client drops
// events rather than blocking publishers (matches the teacher's Hub).
const clientBufSize = 32

// DefaultKeepAlive is the default keep-alive comment-frame interval.
const DefaultKeepAlive = 30 * time.Second

// Event is a single SSE event to publish on a channel.
type Event struct {
	Channel string
	ID      string
	Type    string
	Data    []byte
	Scopes  []string
}

// Channel describes a registered SSE channel.
type Channel struct {
	ID          string
	Description string
}

// connection is one subscriber: a buffered outbound queue plus metadata.
type connection struct {
	id          string
	scopes      []string
	ch          chan Event
	connectedAt time.Time
	closed      chan struct{}
	closeOnce   sync.Once
}

func (c *connection) close() {
	c.closeOnce.Do(func() { close(c.closed) })
}

// Hub is the process-global SSE channel registry.
type Hub struct {
	mu       sync.RWMutex
	channels map[string]*Channel
	subs     map[string]map[*connection]struct{} // channel id -> subscriber set

	keepAlive time.Duration
	logger    log.Logger
}

// NewHub creates an empty hub with no registered channels.
func NewHub(logger log.Logger) *Hub {
	if logger == nil {
		logger = log.NewNoopLogger()
	}

	return &Hub{
		channels:  make(map[string]*Channel),
		subs:      make(map[string]map[*connection]struct{}),
		keepAlive: DefaultKeepAlive,
		logger:    logger,
	}
}

// WithKeepAlive overrides the default 30s keep-alive interval.
func (h *Hub) WithKeepAlive(d time.Duration) *Hub {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.keepAlive = d

	return h
}

// RegisterChannel is idempotent: re-registration of an existing id is
// ignored, per spec §4.9.
func (h *Hub) RegisterChannel(id, description string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.channels[id]; exists {
		return
	}

	h.channels[id] = &Channel{ID: id, Description: description}
	h.subs[id] = make(map[*connection]struct{})
}

// HasChannel reports whether id is registered.
func (h *Hub) HasChannel(id string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.channels[id]

	return ok
}

// Channels returns all registered channel ids, sorted for determinism.
func (h *Hub) Channels() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.channels))
	for id := range h.channels {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

// UnregisterChannel emits a terminal channel.close event to every
// subscriber, then removes the channel and its subscribers.
func (h *Hub) UnregisterChannel(id string) {
	h.mu.Lock()
	subs := h.subs[id]
	delete(h.subs, id)
	delete(h.channels, id)
	h.mu.Unlock()

	for c := range subs {
		select {
		case c.ch <- Event{Channel: id, Type: "channel.close"}:
		default:
		}
		c.close()
	}
}

// ErrUnknownChannel mirrors INVALID_SSE_CHANNEL.
var ErrUnknownChannel = errors.New("sse: unknown channel")

// Publish assigns an id if absent and delivers the event to every current
// subscriber of event.Channel whose scopes intersect event.Scopes (or to
// all subscribers if event.Scopes is empty), per spec §4.9 and the scope
// filtering invariant in §8. Returns the number of successful deliveries.
// Fire-and-forget: never blocks on a slow subscriber, never returns an
// error — publish failures are the caller's concern only via the delivery
// count (spec §9 open question: current behavior is non-blocking).
func (h *Hub) Publish(event Event) int {
	if event.ID == "" {
		event.ID = xid.New().String()
	}

	h.mu.RLock()
	subsMap := h.subs[event.Channel]
	snapshot := make([]*connection, 0, len(subsMap))
	for c := range subsMap {
		snapshot = append(snapshot, c)
	}
	h.mu.RUnlock()

	delivered := 0

	var dead []*connection
	for _, c := range snapshot {
		if len(event.Scopes) > 0 && !scopesIntersect(event.Scopes, c.scopes) {
			continue
		}

		select {
		case c.ch <- event:
			delivered++
		case <-c.closed:
			dead = append(dead, c)
		default:
			// buffer full: drop for this slow subscriber, do not block others.
		}
	}

	if len(dead) > 0 {
		h.sweep(event.Channel, dead)
	}

	return delivered
}

func scopesIntersect(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, s := range a {
		set[s] = struct{}{}
	}

	for _, s := range b {
		if _, ok := set[s]; ok {
			return true
		}
	}

	return false
}

// sweep removes dead connections from a channel's subscriber set under a
// short critical section (spec §5 "short critical section").
func (h *Hub) sweep(channel string, dead []*connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.subs[channel]
	for _, c := range dead {
		delete(subs, c)
	}
}

// Sweep removes any subscriber whose connection has been marked closed,
// across all channels. Complements lazy removal on publish, per spec §4.9
// ("removed lazily on next publish and by an explicit sweep").
func (h *Hub) Sweep() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for channel, subs := range h.subs {
		for c := range subs {
			select {
			case <-c.closed:
				delete(subs, c)
			default:
			}
		}

		h.subs[channel] = subs
	}
}

// HandleConnection parses `channels` and `scopes` from the query string and
// serves the SSE response directly, per spec §4.9/§6. An unknown requested
// channel returns *errs.Error with code INVALID_SSE_CHANNEL before any
// bytes are written. If no channels are requested, the connection
// subscribes to every currently registered channel.
func (h *Hub) HandleConnection(w http.ResponseWriter, r *http.Request) error {
	requested := splitCSV(r.URL.Query().Get("channels"))
	scopes := splitCSV(r.URL.Query().Get("scopes"))

	channels := requested
	if len(channels) == 0 {
		channels = h.Channels()
	} else {
		for _, id := range channels {
			if !h.HasChannel(id) {
				return errs.NewFrameworkError(errs.CodeInvalidSSEChannel, "unknown SSE channel: "+id, nil).
					WithContext("channel", id).
					WithContext("available", h.Channels())
			}
		}
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		return errs.NewFrameworkError(errs.CodeInternalServerError, "streaming not supported", nil)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-transform")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	conn := &connection{
		id:          xid.New().String(),
		scopes:      scopes,
		ch:          make(chan Event, clientBufSize),
		connectedAt: time.Now(),
		closed:      make(chan struct{}),
	}

	h.mu.Lock()
	for _, id := range channels {
		if h.subs[id] == nil {
			h.subs[id] = make(map[*connection]struct{})
		}

		h.subs[id][conn] = struct{}{}
	}
	h.mu.Unlock()

	defer h.removeConnection(conn, channels)
	defer conn.close()

	writeFrame(w, Event{Type: "connected", Data: []byte("{}")})
	flusher.Flush()

	h.mu.RLock()
	interval := h.keepAlive
	h.mu.RUnlock()

	heartbeat := time.NewTicker(interval)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event := <-conn.ch:
			writeFrame(w, event)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		}
	}
}

func (h *Hub) removeConnection(c *connection, channels []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, id := range channels {
		delete(h.subs[id], c)
	}
}

// writeFrame writes the SSE wire framing: id: and event: lines when set,
// and data: (split per newline), terminated by a blank line, per spec §4.9.
// No retry: line is written; Event has no retry field.
func writeFrame(w http.ResponseWriter, event Event) {
	if event.ID != "" {
		fmt.Fprintf(w, "id: %s\n", event.ID)
	}

	if event.Type != "" {
		fmt.Fprintf(w, "event: %s\n", event.Type)
	}

	for _, line := range strings.Split(string(event.Data), "\n") {
		fmt.Fprintf(w, "data: %s\n", line)
	}

	fmt.Fprint(w, "\n")
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}

	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}

	return out
}

// SubscriberCount returns the number of subscribers currently on a channel,
// for diagnostics/tests.
func (h *Hub) SubscriberCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.subs[channel])
}
