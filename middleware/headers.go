package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

// HeaderNormalization strips hop-by-hop client headers, normalizes
// content-type, and injects standard engine response headers, so
// clients hitting the demo surface directly see a consistent header
// set regardless of upstream behavior. Generalized from the gateway's
// HeaderNormalization, which stripped provider-specific
// (Anthropic/OpenAI/stainless) headers; here the stripped set is the
// generic hop-by-hop headers a proxying surface should never forward.
type HeaderNormalization struct {
	logger zerolog.Logger
}

// NewHeaderNormalization creates a new header normalization middleware.
func NewHeaderNormalization(logger zerolog.Logger) *HeaderNormalization {
	return &HeaderNormalization{logger: logger}
}

// headersToStripFromRequest are hop-by-hop headers clients should not
// set directly on the demo surface.
var headersToStripFromRequest = []string{
	"connection",
	"keep-alive",
	"proxy-authenticate",
	"proxy-authorization",
	"te",
	"trailer",
	"transfer-encoding",
	"upgrade",
}

// engineResponseHeaders are headers the engine always sets on responses.
var engineResponseHeaders = map[string]string{
	"X-Fetch-Engine": "true",
}

// Handler returns the HTTP middleware handler.
func (h *HeaderNormalization) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, header := range headersToStripFromRequest {
			if r.Header.Get(header) != "" {
				r.Header.Del(header)
			}
		}

		ct := r.Header.Get("Content-Type")
		if ct != "" && strings.Contains(ct, "json") && ct != "application/json" {
			r.Header.Set("Content-Type", "application/json")
		}

		wrapped := &headerNormWriter{ResponseWriter: w}
		next.ServeHTTP(wrapped, r)
	})
}

// headerNormWriter wraps http.ResponseWriter to normalize response headers.
type headerNormWriter struct {
	http.ResponseWriter
	wroteHeader bool
}

func (hw *headerNormWriter) WriteHeader(code int) {
	if hw.wroteHeader {
		return
	}
	hw.wroteHeader = true
	for k, v := range engineResponseHeaders {
		hw.ResponseWriter.Header().Set(k, v)
	}
	hw.ResponseWriter.WriteHeader(code)
}

func (hw *headerNormWriter) Write(b []byte) (int, error) {
	if !hw.wroteHeader {
		hw.WriteHeader(http.StatusOK)
	}
	return hw.ResponseWriter.Write(b)
}

func (hw *headerNormWriter) Flush() {
	if f, ok := hw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
