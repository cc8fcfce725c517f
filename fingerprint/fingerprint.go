// Package fingerprint computes a stable request fingerprint: a
// fixed-order concatenation of connection-independent request fields,
// hashed with SHA-1 and rendered as upper-case hex, prefixed with a
// fixed literal when used as a storage key. It generalizes the
// gateway's apiKey|model|hash fingerprint (SHA-256) to the full HTTP
// request shape instead of LLM-specific (key, model) pairs. Both the
// in-flight dedup table and the cache's lookup key need a fingerprint
// stable across process restarts for semantically equivalent requests.
package fingerprint

import (
	"crypto/sha1"
	"encoding/hex"
	"net/http"
	"sort"
	"strings"
)

// StorePrefix is prepended to the fingerprint when it is used as an
// entry-store key.
const StorePrefix = "HttpSchedulerCache_"

// defaultReferrer is substituted when no Referer header is present, so
// that fingerprint equality does not depend on whether a client happened
// to send one.
const defaultReferrer = "http://example"

// Fields are the canonical, connection-independent inputs to the
// fingerprint. Headers that vary per connection (Date, Host, cookies)
// must never be added here.
type Fields struct {
	URI             string // absolute request URI
	Method          string
	Accept          []string // charset+media-type entries, in request order
	AcceptEncoding  []string
	Referrer        string // empty means "absent"
	UserAgent       string // product tokens only
	AuthScheme      string // e.g. "Bearer"; empty if no Authorization header
	AuthParameter   string // the credential material following the scheme
}

// FromRequest extracts Fields from an *http.Request. The request's URL
// must already be absolute (the caller's responsibility — the fetch
// engine always operates on absolute URIs).
func FromRequest(req *http.Request) Fields {
	f := Fields{
		URI:            req.URL.String(),
		Method:         strings.ToUpper(req.Method),
		Accept:         splitAndTrim(req.Header.Get("Accept"), ","),
		AcceptEncoding: splitAndTrim(req.Header.Get("Accept-Encoding"), ","),
		Referrer:       req.Header.Get("Referer"),
		UserAgent:      productTokens(req.Header.Get("User-Agent")),
	}
	if auth := req.Header.Get("Authorization"); auth != "" {
		if scheme, param, ok := strings.Cut(auth, " "); ok {
			f.AuthScheme = scheme
			f.AuthParameter = param
		} else {
			f.AuthScheme = auth
		}
	}
	return f
}

// Compute derives the stable fingerprint string for Fields: SHA-1 over
// the fixed-order concatenation of its canonical fields, rendered as
// upper-case hex. The result is a pure function of f — repeated calls on
// equal Fields yield the same string, and it is stable across process
// restarts.
func Compute(f Fields) string {
	var sb strings.Builder
	sb.WriteString(f.URI)
	sb.WriteByte('\x00')
	sb.WriteString(strings.ToUpper(f.Method))
	sb.WriteByte('\x00')
	sb.WriteString(canonicalAccept(f.Accept))
	sb.WriteByte('\x00')
	sb.WriteString(canonicalAcceptEncoding(f.AcceptEncoding))
	sb.WriteByte('\x00')
	if f.Referrer != "" {
		sb.WriteString(f.Referrer)
	} else {
		sb.WriteString(defaultReferrer)
	}
	sb.WriteByte('\x00')
	sb.WriteString(f.UserAgent)
	sb.WriteByte('\x00')
	if f.AuthScheme != "" {
		sb.WriteString(f.AuthScheme)
		sb.WriteByte(' ')
		sb.WriteString(f.AuthParameter)
	}

	sum := sha1.Sum([]byte(sb.String())) //nolint:gosec // spec-mandated SHA-1 fingerprint, not a security boundary
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// StoreKey returns the fingerprint prefixed for use as an entry-store key.
func StoreKey(f Fields) string {
	return StorePrefix + Compute(f)
}

// canonicalAccept renders Accept entries as "charset+media-type" joined
// by "|", sorted for stability regardless of header field order beyond
// what the client itself controls (two semantically identical Accept
// headers with entries in a different order still fingerprint equal).
func canonicalAccept(entries []string) string {
	norm := make([]string, 0, len(entries))
	for _, e := range entries {
		norm = append(norm, strings.ToLower(strings.TrimSpace(e)))
	}
	sort.Strings(norm)
	return strings.Join(norm, "|")
}

func canonicalAcceptEncoding(entries []string) string {
	norm := make([]string, 0, len(entries))
	for _, e := range entries {
		norm = append(norm, strings.ToLower(strings.TrimSpace(e)))
	}
	sort.Strings(norm)
	return strings.Join(norm, "|")
}

// productTokens extracts the product tokens from a User-Agent string,
// dropping parenthetical comments (platform/build details that do not
// affect cache semantics).
func productTokens(ua string) string {
	var sb strings.Builder
	depth := 0
	for _, r := range ua {
		switch {
		case r == '(':
			depth++
		case r == ')':
			if depth > 0 {
				depth--
			}
		case depth == 0:
			sb.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

func splitAndTrim(s, sep string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
