// Package handler exposes the caching HTTP scheduler over REST. Fetch
// submits one operation and blocks for its terminal result, honoring
// per-request priority and an optional headers-only mode. It is
// grounded on the gateway's ProxyHandler/CacheHandler REST-wrapping
// pattern (chi handler methods, writeJSON helper, structured
// request/response DTOs), wrapping cache.Scheduler.Schedule instead of
// an LLM provider call.
package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/AlfredDev/alfred/services/fetchengine/analytics"
	"github.com/AlfredDev/alfred/services/fetchengine/cache"
	"github.com/AlfredDev/alfred/services/fetchengine/observability"
	"github.com/AlfredDev/alfred/services/fetchengine/queue"
	"github.com/AlfredDev/alfred/services/fetchengine/scheduler"
	"github.com/AlfredDev/alfred/services/fetchengine/transport"
)

// FetchHandler exposes the caching HTTP scheduler over REST.
type FetchHandler struct {
	scheduler *cache.Scheduler
	pipeline  *analytics.Pipeline
	metrics   *observability.Metrics
	logger    zerolog.Logger
}

// NewFetchHandler creates a new fetch handler.
func NewFetchHandler(sched *cache.Scheduler, pipeline *analytics.Pipeline, metrics *observability.Metrics, logger zerolog.Logger) *FetchHandler {
	return &FetchHandler{
		scheduler: sched,
		pipeline:  pipeline,
		metrics:   metrics,
		logger:    logger.With().Str("handler", "fetch").Logger(),
	}
}

// fetchRequest is the wire shape of POST /v1/fetch.
type fetchRequest struct {
	Method      string              `json:"method"`
	URL         string              `json:"url"`
	Headers     map[string][]string `json:"headers,omitempty"`
	Priority    int32               `json:"priority"`
	HeadersOnly bool                `json:"headers_only"`
}

type fetchResponse struct {
	StatusCode int                 `json:"status_code"`
	Headers    map[string][]string `json:"headers"`
	Body       string              `json:"body,omitempty"`
	BytesRead  uint64              `json:"bytes_read"`
}

// Fetch handles POST /v1/fetch.
func (h *FetchHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	var req fetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	if req.URL == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "url is required"})
		return
	}

	header := http.Header{}
	for k, vs := range req.Headers {
		for _, v := range vs {
			header.Add(k, v)
		}
	}

	transportReq := &transport.Request{Method: req.Method, URL: req.URL, Header: header}

	var predicate scheduler.ShouldFetchBody
	if req.HeadersOnly {
		predicate = func(http.Header, int) bool { return false }
	}

	ctx, span := observability.StartSpan(r.Context(), "handler.Fetch")
	defer span.End()

	start := time.Now()
	h.track(analytics.EventScheduleStarted, req.URL, 0)

	res, err := h.scheduler.Schedule(ctx, transportReq, queue.Priority(req.Priority), predicate).Wait(ctx)
	latency := time.Since(start)

	if err != nil {
		h.track(analytics.EventScheduleFailed, req.URL, 0)
		h.logger.Warn().Err(err).Str("url", req.URL).Msg("fetch failed")
		writeJSON(w, statusForError(err), map[string]string{"error": err.Error()})
		return
	}

	h.track(analytics.EventScheduleCompleted, req.URL, res.StatusCode)
	if h.metrics != nil {
		host := hostFromURL(req.URL)
		h.metrics.TrackSchedule(host, res.StatusCode, float64(latency.Milliseconds()), int64(len(res.Body)))
	}

	writeJSON(w, http.StatusOK, fetchResponse{
		StatusCode: res.StatusCode,
		Headers:    res.Headers,
		Body:       string(res.Body),
		BytesRead:  uint64(len(res.Body)),
	})
}

func (h *FetchHandler) track(t analytics.EventType, url string, status int) {
	if h.pipeline == nil {
		return
	}
	h.pipeline.Track(analytics.Event{Type: t, URL: url, StatusCode: status})
}

func statusForError(err error) int {
	switch err {
	case scheduler.ErrBudgetExhausted:
		return http.StatusTooManyRequests
	case scheduler.ErrCancelled:
		return http.StatusConflict
	case scheduler.ErrStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func hostFromURL(raw string) string {
	req, err := http.NewRequest(http.MethodGet, raw, nil)
	if err != nil || req.URL == nil {
		return "unknown"
	}
	return req.URL.Hostname()
}
