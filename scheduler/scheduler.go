// Package scheduler turns a (request, priority) pair into a (headers,
// body) result: admission via the priority queue, retry on
// transport-kind failures, a process-wide byte budget, and group
// cancellation, all applied uniformly ahead of the caching layer above
// it. It generalizes the gateway's per-key admission guard and provider
// retry conventions into a single scheduling pipeline.
package scheduler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/cenkalti/backoff/v5"

	"github.com/AlfredDev/alfred/services/fetchengine/queue"
	"github.com/AlfredDev/alfred/services/fetchengine/transport"
)

// Priority presets for callers; arbitrary ints are also accepted.
const (
	Speculative          queue.Priority = 10
	Background           queue.Priority = 20
	BackgroundGuaranteed queue.Priority = 30
	UserInitiated        queue.Priority = 100
)

// FetchResult is the (headers, body) pair a schedule call resolves to.
type FetchResult struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// ShouldFetchBody is invoked once response headers are available; it
// decides whether the body is worth draining at all.
type ShouldFetchBody func(headers http.Header, statusCode int) bool

// AlwaysFetchBody is the default predicate: always drain the body.
func AlwaysFetchBody(http.Header, int) bool { return true }

// Scheduler wraps a priority queue with retry, a process-wide byte
// budget, and group cancellation.
type Scheduler struct {
	queue        *queue.Queue
	transport    transport.Transport
	priorityBase int32
	retryCount   int

	mu        sync.Mutex
	bytesRead uint64
	maxBytes  *uint64

	group *groupSignal
}

// New builds a Scheduler. priorityBase is added to every caller-supplied
// priority before admission; retryCount bounds retries of transport-kind
// failures (0 disables retry).
func New(q *queue.Queue, t transport.Transport, priorityBase int32, retryCount int) *Scheduler {
	return &Scheduler{
		queue:        q,
		transport:    t,
		priorityBase: priorityBase,
		retryCount:   retryCount,
		group:        newGroupSignal(),
	}
}

// Schedule turns (request, priority) into a Future[*FetchResult],
// applying the budget gate, retry wrapper, queue admission and group
// cancel. shouldFetchBody defaults to AlwaysFetchBody when nil.
func (s *Scheduler) Schedule(ctx context.Context, req *transport.Request, priority queue.Priority, shouldFetchBody ShouldFetchBody) *queue.Future[*FetchResult] {
	if shouldFetchBody == nil {
		shouldFetchBody = AlwaysFetchBody
	}

	s.mu.Lock()
	exhausted := s.maxBytes != nil && s.bytesRead >= *s.maxBytes
	s.mu.Unlock()
	if exhausted {
		return queue.Failed[*FetchResult](ErrBudgetExhausted)
	}

	merged, stop := mergeCancel(ctx, s.group.Context())

	produce := s.retryingProducer(req, shouldFetchBody)
	fut := queue.Enqueue(s.queue, merged, s.priorityBase+int32(priority), produce)

	// stop releases the group-cancel watcher goroutine as soon as the
	// operation reaches a terminal state, whether or not produce ever ran
	// (a Pending op cancelled before admission never invokes it).
	go func() {
		<-fut.Done()
		stop()
	}()

	return fut
}

// ResetLimit zeroes bytes_read and sets the new ceiling (nil disables
// the budget gate). ResetLimit also replaces the group-cancel broadcast
// source, un-poisoning subscribers that arrived after a prior CancelAll.
func (s *Scheduler) ResetLimit(maxBytes *uint64) {
	s.mu.Lock()
	s.bytesRead = 0
	s.maxBytes = maxBytes
	s.mu.Unlock()
	s.group.Reset()
}

// CancelAll broadcasts cancellation to every outstanding schedule and to
// every new one submitted before the next ResetLimit.
func (s *Scheduler) CancelAll() {
	s.group.CancelAll()
}

// BytesRead reports the current cumulative drained-body byte count.
func (s *Scheduler) BytesRead() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bytesRead
}

func (s *Scheduler) retryingProducer(req *transport.Request, shouldFetchBody ShouldFetchBody) func(context.Context) (*FetchResult, error) {
	return func(ctx context.Context) (*FetchResult, error) {
		if s.retryCount <= 0 {
			return s.fetchOnce(ctx, req, shouldFetchBody)
		}
		return backoff.Retry(ctx, func() (*FetchResult, error) {
			res, err := s.fetchOnce(ctx, req, shouldFetchBody)
			if err == nil {
				return res, nil
			}
			var te *TransportError
			if errors.As(err, &te) {
				return nil, err
			}
			// Non-transport failures (cancellation, HTTP status outcomes
			// are not errors at this layer) are never retried.
			return nil, backoff.Permanent(err)
		}, backoff.WithMaxTries(uint(s.retryCount+1)))
	}
}

// fetchOnce performs the two-stage fetch: headers first, then the body,
// unless shouldFetchBody rejects it after seeing the headers.
func (s *Scheduler) fetchOnce(ctx context.Context, req *transport.Request, shouldFetchBody ShouldFetchBody) (*FetchResult, error) {
	resp, err := s.transport.Send(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ErrCancelled
		}
		return nil, NewTransportError(err)
	}

	if !shouldFetchBody(resp.Header, resp.StatusCode) {
		_ = resp.Body.Close()
		return &FetchResult{StatusCode: resp.StatusCode, Headers: resp.Header}, nil
	}

	body, readErr := io.ReadAll(resp.Body)
	closeErr := resp.Body.Close()
	if readErr != nil {
		if ctx.Err() != nil {
			return nil, ErrCancelled
		}
		return nil, NewTransportError(readErr)
	}
	if closeErr != nil {
		return nil, NewTransportError(closeErr)
	}

	s.mu.Lock()
	s.bytesRead += uint64(len(body))
	s.mu.Unlock()

	return &FetchResult{StatusCode: resp.StatusCode, Headers: resp.Header, Body: body}, nil
}
