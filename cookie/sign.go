package cookie

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"strings"
)

// Sign produces a signed cookie value "v.sig" where
// sig = base64url(HMAC-SHA256(secret, name + "." + v)), per spec §4.2.
//
// A dedicated cookie-signing library is not wired here: no example repo in
// the pack ships one, and HMAC signing is three stdlib calls, not a missing
// capability (recorded in SPEC_FULL.md / DESIGN.md).
func Sign(name, value string, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(name + "." + value))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))

	return value + "." + sig
}

// Verify checks a signed cookie value produced by Sign and returns the
// unsigned value. Returns ("", false) for a missing or tampered signature —
// it never panics or returns an error, per spec ("yields null without
// throwing").
func Verify(name, signed string, secret []byte) (string, bool) {
	idx := strings.LastIndexByte(signed, '.')
	if idx < 0 {
		return "", false
	}

	value, gotSig := signed[:idx], signed[idx+1:]

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(name + "." + value))
	wantSig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))

	if len(gotSig) != len(wantSig) || subtle.ConstantTimeCompare([]byte(gotSig), []byte(wantSig)) != 1 {
		return "", false
	}

	return value, true
}

// SetSigned queues a signed cookie, using Sign to compute the stored value.
func (j *Jar) SetSigned(name, value string, secret []byte, opts Options) error {
	return j.Set(name, Sign(name, value, secret), opts)
}

// GetSigned returns the verified, unsigned value of a signed cookie, or
// ("", false) if absent, malformed, or tampered with.
func (j *Jar) GetSigned(name string, secret []byte) (string, bool) {
	raw, ok := j.Get(name)
	if !ok {
		return "", false
	}

	return Verify(name, raw, secret)
}
