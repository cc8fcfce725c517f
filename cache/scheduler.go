// Package cache layers in-flight request deduplication, keyed by
// (fingerprint, priority), over a validating response cache with
// ETag/Last-Modified conditional revalidation, on top of the HTTP
// scheduler. Duplicate concurrent GETs for the same resource share one
// upstream fetch, and a fresh cache entry satisfies a request without
// touching the network at all. The dedup table's get-or-insert-shared-
// future pattern is grounded on kache's requestCoalescer (a sync.Cond
// rendezvous over a map keyed by request URL), generalized here to the
// engine's own Future type and keyed by (fingerprint, priority).
package cache

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/AlfredDev/alfred/services/fetchengine/fingerprint"
	"github.com/AlfredDev/alfred/services/fetchengine/queue"
	"github.com/AlfredDev/alfred/services/fetchengine/scheduler"
	"github.com/AlfredDev/alfred/services/fetchengine/store"
	"github.com/AlfredDev/alfred/services/fetchengine/transport"
)

// dedupKey identifies one inflight pipeline: same fingerprint at the
// same priority share an execution.
type dedupKey struct {
	fingerprint string
	priority    queue.Priority
}

// Scheduler overlays an HTTP scheduler with inflight dedup and a
// validating response cache. Its public surface mirrors scheduler.Scheduler.
type Scheduler struct {
	inner *scheduler.Scheduler
	store store.BlobCache
	log   zerolog.Logger

	mu       sync.Mutex
	inflight map[dedupKey]*queue.Future[*scheduler.FetchResult]
}

// New builds a caching scheduler over inner, persisting entries to blobStore.
func New(inner *scheduler.Scheduler, blobStore store.BlobCache, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		inner:    inner,
		store:    blobStore,
		log:      log,
		inflight: make(map[dedupKey]*queue.Future[*scheduler.FetchResult]),
	}
}

// ResetLimit delegates to the underlying scheduler.
func (s *Scheduler) ResetLimit(maxBytes *uint64) { s.inner.ResetLimit(maxBytes) }

// CancelAll delegates to the underlying scheduler.
func (s *Scheduler) CancelAll() { s.inner.CancelAll() }

// Invalidate removes any cached entry for req's fingerprint.
func (s *Scheduler) Invalidate(ctx context.Context, req *transport.Request) error {
	return s.store.Invalidate(ctx, fingerprint.StorePrefix+computeFingerprint(req))
}

// Schedule is the public entry point, matching scheduler.Scheduler's
// signature: fingerprint, dedup in flight, and — for cacheable GETs —
// run the lookup/validation state machine instead of forwarding blindly.
func (s *Scheduler) Schedule(ctx context.Context, req *transport.Request, priority queue.Priority, shouldFetchBody scheduler.ShouldFetchBody) *queue.Future[*scheduler.FetchResult] {
	if shouldFetchBody == nil {
		shouldFetchBody = scheduler.AlwaysFetchBody
	}

	fp := computeFingerprint(req)
	key := dedupKey{fingerprint: fp, priority: priority}

	s.mu.Lock()
	if existing, ok := s.inflight[key]; ok {
		s.mu.Unlock()
		return existing
	}

	opCtx, cancel := context.WithCancel(ctx)
	fut := queue.NewFuture[*scheduler.FetchResult](cancel)
	s.inflight[key] = fut
	s.mu.Unlock()

	cacheEligible := isCacheEligible(req)

	go func() {
		var res *scheduler.FetchResult
		var err error
		if cacheEligible {
			res, err = s.runCacheable(opCtx, fp, req, priority, shouldFetchBody)
		} else {
			res, err = s.inner.Schedule(opCtx, req, priority, shouldFetchBody).Wait(opCtx)
		}

		// Remove the inflight entry before publishing the outcome, so a
		// caller that has observed completion never gets this finished
		// handle back from a later Schedule.
		s.mu.Lock()
		delete(s.inflight, key)
		s.mu.Unlock()
		fut.Finish(res, err)
	}()

	return fut
}

// isCacheEligible reports whether req may participate in the cache at
// all: only GET requests that do not declare Cache-Control: no-store do.
func isCacheEligible(req *transport.Request) bool {
	if req.Header != nil && hasDirective(req.Header.Get("Cache-Control"), "no-store") {
		return false
	}
	return strings.EqualFold(req.Method, http.MethodGet)
}

func (s *Scheduler) runCacheable(ctx context.Context, fp string, req *transport.Request, priority queue.Priority, shouldFetchBody scheduler.ShouldFetchBody) (*scheduler.FetchResult, error) {
	storeKey := fingerprint.StorePrefix + fp

	raw, ok, err := s.store.Get(ctx, storeKey)
	if err != nil {
		s.log.Warn().Err(err).Str("key", storeKey).Msg("cache store read degraded to miss")
		ok = false
	}

	var entry *Entry
	if ok {
		entry, err = decodeEntry(raw)
		if err != nil {
			s.log.Warn().Err(err).Str("key", storeKey).Msg("cache entry decode failed, treating as miss")
			ok = false
		}
	}

	if !ok {
		return s.fetchFull(ctx, storeKey, req, priority, shouldFetchBody)
	}
	if !entry.MustRevalidate {
		return entryResult(entry), nil
	}
	return s.fetchValidating(ctx, storeKey, entry, req, priority, shouldFetchBody)
}

func (s *Scheduler) fetchFull(ctx context.Context, storeKey string, req *transport.Request, priority queue.Priority, shouldFetchBody scheduler.ShouldFetchBody) (*scheduler.FetchResult, error) {
	res, err := s.inner.Schedule(ctx, req, priority, shouldFetchBody).Wait(ctx)
	if err != nil {
		return nil, err
	}
	s.storeIfCacheable(ctx, storeKey, res)
	return res, nil
}

func (s *Scheduler) fetchValidating(ctx context.Context, storeKey string, entry *Entry, req *transport.Request, priority queue.Priority, shouldFetchBody scheduler.ShouldFetchBody) (*scheduler.FetchResult, error) {
	conditional := conditionalRequest(req, entry)

	predicate := func(headers http.Header, status int) bool {
		if !shouldFetchBody(headers, status) {
			return false
		}
		if entry.useCachedData(status, headers) {
			return false
		}
		return true
	}

	res, err := s.inner.Schedule(ctx, conditional, priority, predicate).Wait(ctx)
	if err != nil {
		return nil, err
	}

	if !shouldFetchBody(res.Headers, res.StatusCode) {
		return res, nil // REJECTED
	}
	if entry.useCachedData(res.StatusCode, res.Headers) {
		return entryResult(entry), nil // REVALIDATED: serve the original stored body
	}

	s.storeIfCacheable(ctx, storeKey, res)
	return res, nil
}

func (s *Scheduler) storeIfCacheable(ctx context.Context, storeKey string, res *scheduler.FetchResult) {
	if !cacheable(res.StatusCode, res.Headers) {
		return
	}

	responseHeaders, contentHeaders := splitHeaders(res.Headers)
	entry := &Entry{
		ETag:            res.Headers.Get("ETag"),
		LastModified:    res.Headers.Get("Last-Modified"),
		Status:          res.StatusCode,
		ResponseHeaders: responseHeaders,
		ContentHeaders:  contentHeaders,
		Body:            res.Body,
	}

	var expiry *time.Time
	if horizon, ok := freshnessHorizon(res.Headers); ok {
		expiry = &horizon
	} else {
		entry.MustRevalidate = true
	}

	raw, err := encodeEntry(entry)
	if err != nil {
		s.log.Warn().Err(err).Str("key", storeKey).Msg("cache entry encode failed")
		return
	}
	if err := s.store.Insert(ctx, storeKey, raw, expiry); err != nil {
		// Store write errors are logged and otherwise ignored: they must
		// never mask the transport outcome already returned to the caller.
		s.log.Warn().Err(err).Str("key", storeKey).Msg("cache store write failed")
	}
}

func entryResult(e *Entry) *scheduler.FetchResult {
	return &scheduler.FetchResult{
		StatusCode: e.Status,
		Headers:    mergeHeaders(e.ResponseHeaders, e.ContentHeaders),
		Body:       e.Body,
	}
}

func conditionalRequest(req *transport.Request, entry *Entry) *transport.Request {
	header := http.Header{}
	if req.Header != nil {
		header = req.Header.Clone()
	}
	if entry.ETag != "" {
		header.Set("If-None-Match", entry.ETag)
	}
	if entry.LastModified != "" {
		header.Set("If-Modified-Since", entry.LastModified)
	}
	return &transport.Request{Method: req.Method, URL: req.URL, Header: header, Body: req.Body}
}

func computeFingerprint(req *transport.Request) string {
	httpReq, err := http.NewRequest(req.Method, req.URL, nil)
	if err != nil {
		return fingerprint.Compute(fingerprint.Fields{URI: req.URL, Method: req.Method})
	}
	if req.Header != nil {
		httpReq.Header = req.Header.Clone()
	}
	return fingerprint.Compute(fingerprint.FromRequest(httpReq))
}
