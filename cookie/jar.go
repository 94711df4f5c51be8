// Package cookie implements the cookie jar (C2): parsing an incoming
// Cookie header, get/has/set/delete/clear, and Set-Cookie serialization
// with the prefix, partitioning, max-age, and signing rules from the spec.
//
// Grounded on the Cookie/SetCookie/SetCookieWithOptions/DeleteCookie/
// HasCookie/GetAllCookies methods of xraph-go-utils/http's Ctx, generalized
// from single-cookie helpers on a live ResponseWriter into a standalone,
// request-scoped value that accumulates Set-Cookie lines for the response
// builder (C6) to emit.
package cookie

import (
	"errors"
	"net/http"
	"time"
)

// MaxAge400Days is the hard ceiling on Max-Age/Expires (spec §4.2).
const MaxAge400Days = 400 * 24 * time.Hour

// ErrMaxAgeTooLarge is returned by Set when MaxAge/Expires exceeds 400 days.
var ErrMaxAgeTooLarge = errors.New("cookie: max-age/expires must not exceed 400 days")

// ErrHostPrefixDomain is returned when a __Host- cookie specifies a Domain.
var ErrHostPrefixDomain = errors.New("cookie: __Host- prefixed cookies must not set Domain")

// Options mirrors the mutable attributes of a Set-Cookie line.
type Options struct {
	Path        string
	Domain      string
	MaxAge      int // seconds; 0 means session cookie unless Expires is set
	Expires     time.Time
	Secure      bool
	HTTPOnly    bool
	SameSite    http.SameSite
	Partitioned bool
}

// DefaultOptions mirrors the teacher's SetCookie basic-options default.
func DefaultOptions() Options {
	return Options{
		Path:     "/",
		MaxAge:   0,
		Secure:   true,
		HTTPOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// Jar parses the incoming Cookie header once, and accumulates outgoing
// Set-Cookie directives until serialized by the response builder.
type Jar struct {
	incoming map[string]string
	outgoing []*http.Cookie
}

// NewJar parses r's Cookie header(s) into a jar (C2 step 1: "parses Cookie
// headers on construction").
func NewJar(r *http.Request) *Jar {
	j := &Jar{incoming: make(map[string]string)}
	for _, c := range r.Cookies() {
		j.incoming[c.Name] = c.Value
	}

	return j
}

// Get returns a cookie's value and whether it was present.
func (j *Jar) Get(name string) (string, bool) {
	v, ok := j.incoming[name]
	return v, ok
}

// Has reports whether a cookie is present on the incoming request.
func (j *Jar) Has(name string) bool {
	_, ok := j.incoming[name]
	return ok
}

// All returns a copy of all incoming cookies as a name->value map.
func (j *Jar) All() map[string]string {
	out := make(map[string]string, len(j.incoming))
	for k, v := range j.incoming {
		out[k] = v
	}

	return out
}

// Set queues an outgoing Set-Cookie, applying the prefix, partitioning, and
// max-age rules. Returns an error for a disallowed combination (hard error
// per spec, not silently corrected).
func (j *Jar) Set(name, value string, opts Options) error {
	if !opts.Expires.IsZero() && time.Until(opts.Expires) > MaxAge400Days {
		return ErrMaxAgeTooLarge
	}

	if opts.MaxAge > int(MaxAge400Days.Seconds()) {
		return ErrMaxAgeTooLarge
	}

	switch {
	case hasPrefix(name, "__Host-"):
		if opts.Domain != "" {
			return ErrHostPrefixDomain
		}

		opts.Secure = true
		opts.Path = "/"
	case hasPrefix(name, "__Secure-"):
		opts.Secure = true
	}

	if opts.Partitioned {
		opts.Secure = true
	}

	c := &http.Cookie{
		Name:        name,
		Value:       value,
		Path:        opts.Path,
		Domain:      opts.Domain,
		MaxAge:      opts.MaxAge,
		Expires:     opts.Expires,
		Secure:      opts.Secure,
		HttpOnly:    opts.HTTPOnly,
		SameSite:    opts.SameSite,
		Partitioned: opts.Partitioned,
	}

	j.outgoing = append(j.outgoing, c)

	return nil
}

// SetSimple mirrors the teacher's SetCookie convenience signature.
func (j *Jar) SetSimple(name, value string, maxAge int) error {
	opts := DefaultOptions()
	opts.MaxAge = maxAge

	return j.Set(name, value, opts)
}

// Delete queues a cookie deletion (MaxAge -1), mirroring DeleteCookie.
func (j *Jar) Delete(name string) {
	j.outgoing = append(j.outgoing, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
	})
}

// Clear queues deletion for every cookie currently on the incoming request.
func (j *Jar) Clear() {
	for name := range j.incoming {
		j.Delete(name)
	}
}

// Outgoing returns the queued Set-Cookie values, in the order they were set.
func (j *Jar) Outgoing() []*http.Cookie {
	return j.outgoing
}

// WriteTo emits every queued Set-Cookie header onto w (one header line per
// cookie, matching net/http's multi-value header behavior).
func (j *Jar) WriteTo(w http.ResponseWriter) {
	for _, c := range j.outgoing {
		http.SetCookie(w, c)
	}
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
