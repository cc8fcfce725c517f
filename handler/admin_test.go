package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/AlfredDev/alfred/services/fetchengine/cache"
	"github.com/AlfredDev/alfred/services/fetchengine/handler"
	"github.com/AlfredDev/alfred/services/fetchengine/queue"
	"github.com/AlfredDev/alfred/services/fetchengine/scheduler"
	"github.com/AlfredDev/alfred/services/fetchengine/store"
	"github.com/AlfredDev/alfred/services/fetchengine/transport"
)

type instantTransport struct{}

func (instantTransport) Send(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	return &transport.Response{StatusCode: 200, Header: http.Header{}, Body: io.NopCloser(strings.NewReader(""))}, nil
}

func newAdminHandler() *handler.AdminHandler {
	inner := scheduler.New(queue.New(2), instantTransport{}, 0, 0)
	sched := cache.New(inner, store.NewMemoryStore(), zerolog.Nop())
	return handler.NewAdminHandler(sched, nil, zerolog.Nop())
}

func TestAdminCancelAllReturnsOK(t *testing.T) {
	h := newAdminHandler()
	req := httptest.NewRequest(http.MethodPost, "/v1/cancel-all", nil)
	rw := httptest.NewRecorder()

	h.CancelAll(rw, req)

	require.Equal(t, http.StatusOK, rw.Code)
}

func TestAdminResetLimitAcceptsMaxBytes(t *testing.T) {
	h := newAdminHandler()
	body, _ := json.Marshal(map[string]interface{}{"max_bytes": 1024})
	req := httptest.NewRequest(http.MethodPost, "/v1/budget/reset", bytes.NewReader(body))
	rw := httptest.NewRecorder()

	h.ResetLimit(rw, req)

	require.Equal(t, http.StatusOK, rw.Code)
}

func TestAdminInvalidateRejectsMissingURL(t *testing.T) {
	h := newAdminHandler()
	req := httptest.NewRequest(http.MethodPost, "/v1/cache/invalidate", bytes.NewReader([]byte(`{}`)))
	rw := httptest.NewRecorder()

	h.Invalidate(rw, req)

	require.Equal(t, http.StatusBadRequest, rw.Code)
}
