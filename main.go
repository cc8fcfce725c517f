// Command fetchengine is the fetch engine's entry point. It wires
// config → logger → entry store (Redis or in-memory) → connection pool
// → priority queue → HTTP scheduler → caching scheduler → analytics
// pipeline → tracer → router → HTTP server, then serves until an
// interrupt or SIGTERM triggers a graceful shutdown. Directly grounded
// on the gateway's main.go: same signal handling, same background-task
// stop ordering on shutdown, same log-then-serve structure. Provider
// registration is replaced by scheduler/cache construction; the health
// poller and model syncer have no fetch-engine analogue and are
// dropped.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/AlfredDev/alfred/services/fetchengine/analytics"
	"github.com/AlfredDev/alfred/services/fetchengine/cache"
	"github.com/AlfredDev/alfred/services/fetchengine/config"
	"github.com/AlfredDev/alfred/services/fetchengine/logger"
	"github.com/AlfredDev/alfred/services/fetchengine/observability"
	"github.com/AlfredDev/alfred/services/fetchengine/queue"
	"github.com/AlfredDev/alfred/services/fetchengine/router"
	"github.com/AlfredDev/alfred/services/fetchengine/scheduler"
	"github.com/AlfredDev/alfred/services/fetchengine/store"
	"github.com/AlfredDev/alfred/services/fetchengine/transport"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg)

	log.Info().Str("env", cfg.Env).Msg("fetch engine starting")

	blobStore := buildStore(cfg, log)

	pool := transport.DefaultConnectionPool()
	defer pool.Close()
	httpTransport := transport.NewHTTPTransport(pool, cfg.DefaultTimeout)

	q := queue.New(cfg.MaxConcurrent)
	httpScheduler := scheduler.New(q, httpTransport, cfg.PriorityBase, cfg.RetryCount)
	if cfg.MaxBytes != nil {
		httpScheduler.ResetLimit(cfg.MaxBytes)
	}

	cachingScheduler := cache.New(httpScheduler, blobStore, log)

	analyticsSink := analytics.NewLogSink(log)
	analyticsPipeline := analytics.NewPipeline(log, analyticsSink)
	analyticsPipeline.Start(context.Background())

	metrics := observability.NewMetrics(log)

	sampleRatio := 1.0
	if cfg.IsProduction() {
		sampleRatio = 0.1
	}
	tracerProvider, err := observability.NewTracerProvider(log, sampleRatio)
	if err != nil {
		log.Warn().Err(err).Msg("tracer provider init failed — continuing without tracing")
	}

	r := router.NewRouter(cfg, log, cachingScheduler, analyticsPipeline, metrics)

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.DefaultTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("fetch engine listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-done
	log.Info().Msg("shutdown signal received")

	analyticsPipeline.Stop()
	if tracerProvider != nil {
		if err := observability.ShutdownTracerProvider(tracerProvider, 5*time.Second); err != nil {
			log.Warn().Err(err).Msg("tracer provider shutdown failed")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.GracefulTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	} else {
		log.Info().Msg("fetch engine stopped gracefully")
	}
}

func buildStore(cfg *config.Config, log zerolog.Logger) store.BlobCache {
	if cfg.RedisURL == "" {
		log.Info().Msg("entry store: in-memory (set REDIS_URL for a persistent store)")
		return store.NewMemoryStore()
	}

	redisStore, err := store.NewRedisStore(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("redis entry store init failed — falling back to in-memory")
		return store.NewMemoryStore()
	}
	if err := redisStore.Ping(context.Background()); err != nil {
		log.Warn().Err(err).Msg("redis ping failed — falling back to in-memory")
		return store.NewMemoryStore()
	}
	log.Info().Msg("entry store: redis")
	return redisStore
}
