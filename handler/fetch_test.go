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

type fakeTransport struct {
	status int
	body   string
}

func (f *fakeTransport) Send(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	return &transport.Response{
		StatusCode: f.status,
		Header:     http.Header{"Content-Type": {"text/plain"}},
		Body:       io.NopCloser(strings.NewReader(f.body)),
	}, nil
}

func TestFetchHandlerReturnsScheduledResult(t *testing.T) {
	tr := &fakeTransport{status: 200, body: "hello"}
	inner := scheduler.New(queue.New(2), tr, 0, 0)
	sched := cache.New(inner, store.NewMemoryStore(), zerolog.Nop())
	h := handler.NewFetchHandler(sched, nil, nil, zerolog.Nop())

	payload, _ := json.Marshal(map[string]interface{}{
		"method": "GET",
		"url":    "https://example.test/resource",
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/fetch", bytes.NewReader(payload))
	rw := httptest.NewRecorder()

	h.Fetch(rw, req)

	require.Equal(t, http.StatusOK, rw.Code)

	var resp struct {
		StatusCode int    `json:"status_code"`
		Body       string `json:"body"`
	}
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &resp))
	require.Equal(t, 200, resp.StatusCode)
	require.Equal(t, "hello", resp.Body)
}

func TestFetchHandlerRejectsMissingURL(t *testing.T) {
	tr := &fakeTransport{status: 200, body: ""}
	inner := scheduler.New(queue.New(2), tr, 0, 0)
	sched := cache.New(inner, store.NewMemoryStore(), zerolog.Nop())
	h := handler.NewFetchHandler(sched, nil, nil, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/v1/fetch", bytes.NewReader([]byte(`{}`)))
	rw := httptest.NewRecorder()

	h.Fetch(rw, req)

	require.Equal(t, http.StatusBadRequest, rw.Code)
}
