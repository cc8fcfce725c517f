package middleware

import (
	"net/http"
	"sync"
	"time"
)

// ConcurrencyGuard is a per-key semaphore limiting concurrent in-flight
// demo surface requests for a single client key (e.g. remote address),
// independent of the priority queue's own admission control: one noisy
// client issuing many concurrent /v1/fetch calls should not be able to
// fill the queue's admission slots ahead of other clients, since the
// queue schedules by priority, not by fairness across callers. Grounded
// on the gateway's middleware.Semaphore (per-org/team concurrency
// limiting), keyed here per client and applied ahead of
// queue.Queue.Enqueue at the HTTP boundary. It never touches the
// priority queue — it is a coarse ingress control that rejects excess
// concurrent requests from one client before they ever reach Enqueue.
type ConcurrencyGuard struct {
	mu    sync.Mutex
	semas map[string]chan struct{}
	limit int
}

// NewConcurrencyGuard creates a new per-key concurrency guard.
func NewConcurrencyGuard(limit int) *ConcurrencyGuard {
	if limit <= 0 {
		limit = 50
	}
	return &ConcurrencyGuard{semas: make(map[string]chan struct{}), limit: limit}
}

// Acquire attempts to reserve a slot for key, waiting up to timeout.
func (g *ConcurrencyGuard) Acquire(key string, timeout time.Duration) bool {
	g.mu.Lock()
	ch, ok := g.semas[key]
	if !ok {
		ch = make(chan struct{}, g.limit)
		g.semas[key] = ch
	}
	g.mu.Unlock()

	select {
	case ch <- struct{}{}:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Release frees a slot previously acquired for key.
func (g *ConcurrencyGuard) Release(key string) {
	g.mu.Lock()
	ch, ok := g.semas[key]
	g.mu.Unlock()
	if ok {
		select {
		case <-ch:
		default:
		}
	}
}

// Handler returns middleware that enforces the concurrency guard,
// keyed on remote address, rejecting with 429 on acquire timeout.
func (g *ConcurrencyGuard) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.RemoteAddr
		if !g.Acquire(key, 100*time.Millisecond) {
			http.Error(w, `{"error":"too_many_concurrent_requests"}`, http.StatusTooManyRequests)
			return
		}
		defer g.Release(key)
		next.ServeHTTP(w, r)
	})
}
