package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

type contextKey string

// AuthenticatedContextKey marks a request as having presented a valid
// admin token.
const AuthenticatedContextKey contextKey = "fetchengine_authenticated"

// AuthMiddleware validates the admin bearer token on incoming requests,
// so mutating admin endpoints (cancel-all, budget reset, cache
// invalidate) cannot be called by an anonymous client. Simplified from
// the gateway's AuthMiddleware, which validated per-user API keys
// against a backend identity service with a local TTL cache; the fetch
// engine has no multi-tenant identity concept on its admin surface, so
// this collapses to a single shared-secret comparison.
type AuthMiddleware struct {
	logger zerolog.Logger
	secret string
}

// NewAuthMiddleware creates a new admin-token authentication middleware.
// If secret is empty, the middleware passes every request through
// unauthenticated (intended for local development only).
func NewAuthMiddleware(logger zerolog.Logger, secret string) *AuthMiddleware {
	return &AuthMiddleware{logger: logger, secret: secret}
}

// Handler returns the middleware handler function.
func (am *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if am.secret == "" {
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), AuthenticatedContextKey, true)))
			return
		}

		authHeader := r.Header.Get("Authorization")
		token := strings.TrimSpace(authHeader)
		if strings.HasPrefix(strings.ToLower(token), "bearer ") {
			token = token[7:]
		}

		if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(am.secret)) != 1 {
			am.logger.Warn().Str("path", r.URL.Path).Msg("admin endpoint auth rejected")
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), AuthenticatedContextKey, true)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
