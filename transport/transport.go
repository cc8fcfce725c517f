// Package transport provides the injected HTTP transport used by the
// scheduler: send a request and observe its response headers as soon
// as they arrive, leaving the body to be read (or discarded)
// separately. This is what makes the scheduler's two-stage fetch
// (headers, then optionally body) possible without buffering.
package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"
)

// ErrAborted is returned when a Send is cancelled via its context before
// a response is received.
var ErrAborted = errors.New("transport: aborted")

// Request is the wire-level request the scheduler hands to a Transport.
// It intentionally mirrors only what a fetch needs, not the full
// net/http.Request surface, so alternate implementations (a fake
// transport in tests, a non-HTTP backend) stay simple to write.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   io.Reader
}

// Response is returned the moment headers are available; Body is not
// read by Send, and the caller decides whether to drain it.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}

// Transport sends a request and returns as soon as response headers
// arrive. Implementations must respect ctx cancellation: once ctx is
// done, any further read from the in-flight response must fail.
type Transport interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}

// HTTPTransport is the default Transport, backed by a per-host
// ConnectionPool so repeated fetches to the same host reuse connections.
type HTTPTransport struct {
	pool    *ConnectionPool
	timeout time.Duration
}

// NewHTTPTransport builds an HTTPTransport. timeout bounds each
// individual round trip's client-side timeout; callers needing finer
// per-request deadlines should instead cancel via ctx.
func NewHTTPTransport(pool *ConnectionPool, timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{pool: pool, timeout: timeout}
}

func (t *HTTPTransport) Send(ctx context.Context, req *Request) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, req.Body)
	if err != nil {
		return nil, err
	}
	if req.Header != nil {
		httpReq.Header = req.Header.Clone()
	}

	client := t.pool.GetClient(httpReq.URL.Hostname(), t.timeout)

	resp, err := client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ErrAborted
		}
		return nil, err
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       resp.Body,
	}, nil
}
