package router

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/AlfredDev/alfred/services/fetchengine/cache"
	"github.com/AlfredDev/alfred/services/fetchengine/config"
	"github.com/AlfredDev/alfred/services/fetchengine/queue"
	"github.com/AlfredDev/alfred/services/fetchengine/scheduler"
	"github.com/AlfredDev/alfred/services/fetchengine/store"
	"github.com/AlfredDev/alfred/services/fetchengine/transport"
)

// blackholeTransport never completes — the router tests exercise routing
// and middleware behavior, not scheduler outcomes.
type blackholeTransport struct{}

func (blackholeTransport) Send(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func testSetup() http.Handler {
	cfg := &config.Config{
		Addr:             ":0",
		Env:              "test",
		RateLimitEnabled: false,
		MaxBodyBytes:     1 << 20,
		ConcurrencyLimit: 10,
		DefaultTimeout:   0,
	}
	log := zerolog.New(io.Discard).With().Timestamp().Logger()
	inner := scheduler.New(queue.New(4), &blackholeTransport{}, 0, 0)
	sched := cache.New(inner, store.NewMemoryStore(), log)
	return NewRouter(cfg, log, sched, nil, nil)
}

func TestHealthEndpoints(t *testing.T) {
	r := testSetup()

	tests := []struct {
		path   string
		status int
	}{
		{"/healthz", http.StatusOK},
		{"/ready", http.StatusOK},
	}

	for _, tc := range tests {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		rw := httptest.NewRecorder()
		r.ServeHTTP(rw, req)
		if rw.Result().StatusCode != tc.status {
			t.Fatalf("expected %d for %s, got %d", tc.status, tc.path, rw.Result().StatusCode)
		}
	}
}

func TestAdminRouteRequiresAuthWhenSecretConfigured(t *testing.T) {
	cfg := &config.Config{Addr: ":0", Env: "test", MaxBodyBytes: 1 << 20, ConcurrencyLimit: 10, AdminSecret: "s3cret"}
	log := zerolog.New(io.Discard).With().Timestamp().Logger()
	inner := scheduler.New(queue.New(4), &blackholeTransport{}, 0, 0)
	sched := cache.New(inner, store.NewMemoryStore(), log)
	r := NewRouter(cfg, log, sched, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/cancel-all", nil)
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)

	if rw.Result().StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unauthenticated /v1/cancel-all, got %d", rw.Result().StatusCode)
	}
}

func TestCORSPreflight(t *testing.T) {
	r := testSetup()

	req := httptest.NewRequest(http.MethodOptions, "/v1/fetch", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)

	if rw.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Fatal("expected CORS Allow-Origin header on preflight response")
	}
}

func TestSecurityHeaders(t *testing.T) {
	r := testSetup()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)

	headers := []string{"X-Content-Type-Options", "X-Frame-Options"}
	for _, h := range headers {
		if rw.Header().Get(h) == "" {
			t.Fatalf("expected security header %s to be set", h)
		}
	}
}
