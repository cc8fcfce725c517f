// AdminHandler exposes the scheduler-wide controls the engine already
// offers in Go (ResetLimit, CancelAll, Invalidate) as operator-facing
// REST endpoints: cache invalidation, byte-budget reset, and group
// cancellation. It is grounded on the gateway's CacheHandler
// admin-endpoint wrapping pattern — a thin REST layer with no business
// logic of its own.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/AlfredDev/alfred/services/fetchengine/analytics"
	"github.com/AlfredDev/alfred/services/fetchengine/cache"
	"github.com/AlfredDev/alfred/services/fetchengine/transport"
)

// AdminHandler handles scheduler-wide control endpoints.
type AdminHandler struct {
	scheduler *cache.Scheduler
	pipeline  *analytics.Pipeline
	logger    zerolog.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(sched *cache.Scheduler, pipeline *analytics.Pipeline, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{scheduler: sched, pipeline: pipeline, logger: logger.With().Str("handler", "admin").Logger()}
}

type invalidateRequest struct {
	Method string `json:"method"`
	URL    string `json:"url"`
}

// Invalidate handles POST /v1/cache/invalidate.
func (h *AdminHandler) Invalidate(w http.ResponseWriter, r *http.Request) {
	var req invalidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "url is required"})
		return
	}
	if req.Method == "" {
		req.Method = http.MethodGet
	}

	if err := h.scheduler.Invalidate(r.Context(), &transport.Request{Method: req.Method, URL: req.URL}); err != nil {
		h.logger.Warn().Err(err).Str("url", req.URL).Msg("cache invalidate failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"invalidated": true, "url": req.URL})
}

type resetLimitRequest struct {
	MaxBytes *uint64 `json:"max_bytes"`
}

// ResetLimit handles POST /v1/budget/reset.
func (h *AdminHandler) ResetLimit(w http.ResponseWriter, r *http.Request) {
	var req resetLimitRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	h.scheduler.ResetLimit(req.MaxBytes)
	h.logger.Info().Interface("max_bytes", req.MaxBytes).Msg("byte budget reset")
	writeJSON(w, http.StatusOK, map[string]interface{}{"reset": true, "max_bytes": req.MaxBytes})
}

// CancelAll handles POST /v1/cancel-all.
func (h *AdminHandler) CancelAll(w http.ResponseWriter, r *http.Request) {
	h.scheduler.CancelAll()
	if h.pipeline != nil {
		h.pipeline.Track(analytics.Event{Type: analytics.EventGroupCancelled})
	}
	h.logger.Warn().Msg("group cancel broadcast")
	writeJSON(w, http.StatusOK, map[string]interface{}{"cancelled": true})
}

// PipelineStats handles GET /v1/cache/stats, reporting analytics
// pipeline throughput as a proxy for scheduler activity.
func (h *AdminHandler) PipelineStats(w http.ResponseWriter, r *http.Request) {
	if h.pipeline == nil {
		writeJSON(w, http.StatusOK, analytics.Stats{})
		return
	}
	writeJSON(w, http.StatusOK, h.pipeline.Stats())
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
