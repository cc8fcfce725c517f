package cache_test

import (
	"context"
	"io"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/AlfredDev/alfred/services/fetchengine/cache"
	"github.com/AlfredDev/alfred/services/fetchengine/queue"
	"github.com/AlfredDev/alfred/services/fetchengine/scheduler"
	"github.com/AlfredDev/alfred/services/fetchengine/store"
	"github.com/AlfredDev/alfred/services/fetchengine/transport"
)

type scriptedTransport struct {
	sends atomic.Int32
	fn    func(n int32) *transport.Response
}

func (s *scriptedTransport) Send(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	n := s.sends.Add(1)
	return s.fn(n), nil
}

func body(s string) io.ReadCloser { return io.NopCloser(&stringReader{s: s}) }

type stringReader struct {
	s   string
	pos int
}

func (r *stringReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.s) {
		return 0, io.EOF
	}
	n := copy(p, r.s[r.pos:])
	r.pos += n
	return n, nil
}

func newCacheScheduler(tr transport.Transport) *cache.Scheduler {
	inner := scheduler.New(queue.New(4), tr, 0, 0)
	return cache.New(inner, store.NewMemoryStore(), zerolog.Nop())
}

func TestCacheHitWithoutRevalidationAvoidsSecondSend(t *testing.T) {
	tr := &scriptedTransport{fn: func(n int32) *transport.Response {
		h := http.Header{"Cache-Control": {"max-age=60"}}
		return &transport.Response{StatusCode: 200, Header: h, Body: body("hello")}
	}}
	c := newCacheScheduler(tr)
	req := &transport.Request{Method: "GET", URL: "https://httpbin.example/x"}

	res1, err := c.Schedule(context.Background(), req, 0, nil).Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, "hello", string(res1.Body))

	res2, err := c.Schedule(context.Background(), req, 0, nil).Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, "hello", string(res2.Body))
	require.EqualValues(t, 1, tr.sends.Load())
}

func TestConditionalRevalidationServesOriginalBodyOnETagMatch(t *testing.T) {
	tr := &scriptedTransport{fn: func(n int32) *transport.Response {
		if n == 1 {
			h := http.Header{"ETag": {`"abc"`}}
			return &transport.Response{StatusCode: 200, Header: h, Body: body("original")}
		}
		h := http.Header{"ETag": {`"abc"`}}
		return &transport.Response{StatusCode: 200, Header: h, Body: body("")}
	}}
	c := newCacheScheduler(tr)
	req := &transport.Request{Method: "GET", URL: "https://httpbin.example/y"}

	res1, err := c.Schedule(context.Background(), req, 0, nil).Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, "original", string(res1.Body))

	res2, err := c.Schedule(context.Background(), req, 0, nil).Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, "original", string(res2.Body)) // served from entry, not the altered body
	require.EqualValues(t, 2, tr.sends.Load())
}

func TestPostIsNeverCached(t *testing.T) {
	tr := &scriptedTransport{fn: func(n int32) *transport.Response {
		return &transport.Response{StatusCode: 200, Header: http.Header{}, Body: body("ok")}
	}}
	c := newCacheScheduler(tr)
	req := &transport.Request{Method: "POST", URL: "https://httpbin.example/post"}

	_, err := c.Schedule(context.Background(), req, 0, nil).Wait(context.Background())
	require.NoError(t, err)
	_, err = c.Schedule(context.Background(), req, 0, nil).Wait(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 2, tr.sends.Load())
}

func TestFailureResponseIsNotCached(t *testing.T) {
	tr := &scriptedTransport{fn: func(n int32) *transport.Response {
		return &transport.Response{StatusCode: 502, Header: http.Header{}, Body: body("oops")}
	}}
	c := newCacheScheduler(tr)
	req := &transport.Request{Method: "GET", URL: "https://httpbin.example/z"}

	res, err := c.Schedule(context.Background(), req, 0, nil).Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, 502, res.StatusCode)

	_, err = c.Schedule(context.Background(), req, 0, nil).Wait(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 2, tr.sends.Load())
}

func TestConcurrentIdenticalRequestsDedupToOneSend(t *testing.T) {
	release := make(chan struct{})
	tr := &scriptedTransport{fn: func(n int32) *transport.Response {
		<-release
		return &transport.Response{StatusCode: 200, Header: http.Header{}, Body: body("shared")}
	}}
	c := newCacheScheduler(tr)
	req := &transport.Request{Method: "GET", URL: "https://httpbin.example/dedup"}

	const n = 5
	futs := make([]*queue.Future[*scheduler.FetchResult], n)
	for i := 0; i < n; i++ {
		futs[i] = c.Schedule(context.Background(), req, 0, nil)
	}
	close(release)

	for _, f := range futs {
		res, err := f.Wait(context.Background())
		require.NoError(t, err)
		require.Equal(t, "shared", string(res.Body))
	}
	require.EqualValues(t, 1, tr.sends.Load())
}
