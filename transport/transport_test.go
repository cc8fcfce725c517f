package transport_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/AlfredDev/alfred/services/fetchengine/transport"
)

func TestHTTPTransportReturnsHeadersAndStreamsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("hello world"))
	}))
	defer srv.Close()

	tr := transport.NewHTTPTransport(transport.DefaultConnectionPool(), 5*time.Second)

	resp, err := tr.Send(context.Background(), &transport.Request{
		Method: http.MethodGet,
		URL:    srv.URL,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, `"abc"`, resp.Header.Get("ETag"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, "hello world", string(body))
}

func TestHTTPTransportReusesConnectionsPerHost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	pool := transport.DefaultConnectionPool()
	tr := transport.NewHTTPTransport(pool, 5*time.Second)

	for i := 0; i < 3; i++ {
		resp, err := tr.Send(context.Background(), &transport.Request{Method: http.MethodGet, URL: srv.URL})
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
	}

	metrics := pool.Metrics()
	host := httptest.NewRequest(http.MethodGet, srv.URL, nil).URL.Hostname()
	require.EqualValues(t, 3, metrics[host]["total_requests"])
}

func TestHTTPTransportSurfacesAbortOnContextCancel(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
		w.WriteHeader(http.StatusOK)
	}))
	defer func() {
		close(block)
		srv.Close()
	}()

	tr := transport.NewHTTPTransport(transport.DefaultConnectionPool(), 5*time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tr.Send(ctx, &transport.Request{Method: http.MethodGet, URL: srv.URL})
	require.Error(t, err)
}
