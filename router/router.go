// Package router wires the fetch engine's middleware chain — CORS,
// security headers, request ID (uuid-backed), recoverer, request
// logger, tracing, body size limit, rate limit, concurrency guard,
// header normalization, timeout — and mounts the demo/admin HTTP
// surface: /v1/fetch, /v1/cache/invalidate, /v1/cache/stats,
// /v1/budget/reset, /v1/cancel-all, /healthz, /ready, /metrics,
// /openapi.json, /docs. Directly grounded on the gateway's
// router.NewRouter: the same middleware ordering and chi wiring, with
// the LLM-specific routes (chat/embeddings/providers/routing/policy/
// intelligence/experiments) replaced by the fetch engine's own surface.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/AlfredDev/alfred/services/fetchengine/analytics"
	"github.com/AlfredDev/alfred/services/fetchengine/cache"
	"github.com/AlfredDev/alfred/services/fetchengine/config"
	"github.com/AlfredDev/alfred/services/fetchengine/handler"
	fmw "github.com/AlfredDev/alfred/services/fetchengine/middleware"
	"github.com/AlfredDev/alfred/services/fetchengine/observability"
)

// NewRouter returns a configured chi Router with the full middleware
// chain and all demo-surface routes mounted.
func NewRouter(cfg *config.Config, appLogger zerolog.Logger, sched *cache.Scheduler, pipeline *analytics.Pipeline, metrics *observability.Metrics) http.Handler {
	r := chi.NewRouter()

	r.Use(fmw.CORSMiddleware([]string{"*"}))
	r.Use(fmw.SecurityHeadersMiddleware)
	r.Use(fmw.RequestIDMiddleware)
	r.Use(chimw.Recoverer)
	r.Use(mwRequestLogger(appLogger))
	r.Use(observability.TracingMiddleware)
	r.Use(mwMaxBodySize(cfg.MaxBodyBytes))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","service":"fetchengine"}`))
	})

	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready","service":"fetchengine"}`))
	})

	if metrics != nil {
		r.Get("/metrics", metrics.Handler())
	}

	r.Get("/openapi.json", handler.OpenAPIHandler())
	r.Get("/docs", handler.SwaggerUIHandler())

	fetchHandler := handler.NewFetchHandler(sched, pipeline, metrics, appLogger)
	adminHandler := handler.NewAdminHandler(sched, pipeline, appLogger)

	rateLimiter := fmw.NewRateLimiter(appLogger, cfg.RateLimitEnabled, cfg.RateLimitRPM, cfg.RateLimitBurst)
	concurrencyGuard := fmw.NewConcurrencyGuard(cfg.ConcurrencyLimit)
	headerNorm := fmw.NewHeaderNormalization(appLogger)
	timeoutMW := fmw.NewTimeoutMiddleware(appLogger, cfg)
	authMW := fmw.NewAuthMiddleware(appLogger, cfg.AdminSecret)

	r.Route("/v1", func(r chi.Router) {
		r.Use(rateLimiter.Handler)
		r.Use(concurrencyGuard.Handler)
		r.Use(headerNorm.Handler)
		r.Use(timeoutMW.Handler)

		r.Post("/fetch", fetchHandler.Fetch)
		r.Get("/cache/stats", adminHandler.PipelineStats)

		r.Group(func(r chi.Router) {
			r.Use(authMW.Handler)
			r.Post("/cache/invalidate", adminHandler.Invalidate)
			r.Post("/budget/reset", adminHandler.ResetLimit)
			r.Post("/cancel-all", adminHandler.CancelAll)
		})
	})

	return r
}

func mwMaxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = 1 * 1024 * 1024
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > 0 && r.ContentLength > maxBytes {
				http.Error(w, `{"error":"request_too_large"}`, http.StatusRequestEntityTooLarge)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

func mwRequestLogger(appLogger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(rw, r)
			dur := time.Since(start)
			reqID := r.Header.Get("X-Request-ID")
			appLogger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("req_id", reqID).
				Int("status", rw.Status()).
				Dur("duration", dur).
				Msg("request completed")
		})
	}
}
