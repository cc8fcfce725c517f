// Package analytics ingests scheduler lifecycle events (schedule
// started/completed/failed, cache hit/miss, budget exhausted, group
// cancel) without blocking the request path: buffered writes,
// backpressure, retry logic, and graceful shutdown, flushing batches to
// a Sink for high throughput. It generalizes the gateway's Pipeline —
// which ran three parallel (request/cost/wallet) event channels — into
// a single Event channel carrying the fetch engine's own lifecycle
// event types, keeping the same batching, retry, and drain discipline.
package analytics

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// EventType classifies a scheduler lifecycle event.
type EventType string

const (
	EventScheduleStarted   EventType = "schedule_started"
	EventScheduleCompleted EventType = "schedule_completed"
	EventScheduleFailed    EventType = "schedule_failed"
	EventCacheHit          EventType = "cache_hit"
	EventCacheMiss         EventType = "cache_miss"
	EventBudgetExhausted   EventType = "budget_exhausted"
	EventGroupCancelled    EventType = "group_cancelled"
)

// Event is one scheduler lifecycle occurrence.
type Event struct {
	Type        EventType     `json:"type"`
	Fingerprint string        `json:"fingerprint,omitempty"`
	URL         string        `json:"url,omitempty"`
	StatusCode  int           `json:"status_code,omitempty"`
	Priority    int32         `json:"priority,omitempty"`
	BytesRead   uint64        `json:"bytes_read,omitempty"`
	Latency     time.Duration `json:"latency_ns,omitempty"`
	Err         string        `json:"error,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Sink is the destination for batches of events.
type Sink interface {
	WriteEvents(ctx context.Context, events []Event) error
	Close() error
}

// PipelineConfig controls batching and backpressure behavior.
type PipelineConfig struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
	MaxRetries    int
	RetryDelay    time.Duration
	Workers       int
}

// DefaultPipelineConfig returns production defaults.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		BufferSize:    20000,
		BatchSize:     200,
		FlushInterval: 2 * time.Second,
		MaxRetries:    3,
		RetryDelay:    200 * time.Millisecond,
		Workers:       2,
	}
}

// Pipeline is the async analytics ingestion engine.
type Pipeline struct {
	logger zerolog.Logger
	config PipelineConfig
	sink   Sink

	events chan Event
	wg     sync.WaitGroup
	cancel context.CancelFunc

	eventsReceived int64
	eventsWritten  int64
	eventsDropped  int64
	flushErrors    int64
}

// NewPipeline creates a new analytics ingestion pipeline.
func NewPipeline(logger zerolog.Logger, sink Sink, config ...PipelineConfig) *Pipeline {
	cfg := DefaultPipelineConfig()
	if len(config) > 0 {
		cfg = config[0]
	}
	return &Pipeline{
		logger: logger.With().Str("component", "analytics-pipeline").Logger(),
		config: cfg,
		sink:   sink,
		events: make(chan Event, cfg.BufferSize),
	}
}

// Start launches the pipeline workers.
func (p *Pipeline) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.config.Workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
	p.logger.Info().
		Int("workers", p.config.Workers).
		Int("buffer_size", p.config.BufferSize).
		Int("batch_size", p.config.BatchSize).
		Dur("flush_interval", p.config.FlushInterval).
		Msg("analytics pipeline started")
}

// Stop gracefully shuts down the pipeline, flushing remaining events.
func (p *Pipeline) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	p.drain()
	if p.sink != nil {
		_ = p.sink.Close()
	}
	p.logger.Info().
		Int64("received", atomic.LoadInt64(&p.eventsReceived)).
		Int64("written", atomic.LoadInt64(&p.eventsWritten)).
		Int64("dropped", atomic.LoadInt64(&p.eventsDropped)).
		Int64("flush_errors", atomic.LoadInt64(&p.flushErrors)).
		Msg("analytics pipeline stopped")
}

// Track submits an event to the pipeline. Non-blocking: the event is
// dropped (and counted) if the buffer is full, since event ingestion
// must never stall the request path.
func (p *Pipeline) Track(e Event) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	select {
	case p.events <- e:
		atomic.AddInt64(&p.eventsReceived, 1)
	default:
		atomic.AddInt64(&p.eventsDropped, 1)
		p.logger.Warn().Str("type", string(e.Type)).Msg("event dropped: buffer full")
	}
}

func (p *Pipeline) worker(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.config.FlushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, p.config.BatchSize)
	for {
		select {
		case <-ctx.Done():
			if len(batch) > 0 {
				p.flush(batch)
			}
			return
		case e := <-p.events:
			batch = append(batch, e)
			if len(batch) >= p.config.BatchSize {
				p.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				p.flush(batch)
				batch = batch[:0]
			}
		}
	}
}

func (p *Pipeline) flush(batch []Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cp := make([]Event, len(batch))
	copy(cp, batch)

	var err error
	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		err = p.sink.WriteEvents(ctx, cp)
		if err == nil {
			atomic.AddInt64(&p.eventsWritten, int64(len(cp)))
			return
		}
		p.logger.Warn().Err(err).Int("attempt", attempt+1).Int("batch_size", len(cp)).Msg("event flush failed")
		if attempt < p.config.MaxRetries {
			time.Sleep(p.config.RetryDelay * time.Duration(1<<uint(attempt)))
		}
	}
	atomic.AddInt64(&p.flushErrors, 1)
	atomic.AddInt64(&p.eventsDropped, int64(len(cp)))
	p.logger.Error().Err(err).Int("batch_size", len(cp)).Msg("event batch dropped after retries")
}

func (p *Pipeline) drain() {
	batch := make([]Event, 0, p.config.BatchSize)
	for {
		select {
		case e := <-p.events:
			batch = append(batch, e)
			if len(batch) >= p.config.BatchSize {
				p.flush(batch)
				batch = batch[:0]
			}
		default:
			if len(batch) > 0 {
				p.flush(batch)
			}
			return
		}
	}
}

// Stats reports pipeline counters, for the admin cache-stats endpoint.
type Stats struct {
	EventsReceived int64 `json:"events_received"`
	EventsWritten  int64 `json:"events_written"`
	EventsDropped  int64 `json:"events_dropped"`
	FlushErrors    int64 `json:"flush_errors"`
	BufferLen      int   `json:"buffer_len"`
}

func (p *Pipeline) Stats() Stats {
	return Stats{
		EventsReceived: atomic.LoadInt64(&p.eventsReceived),
		EventsWritten:  atomic.LoadInt64(&p.eventsWritten),
		EventsDropped:  atomic.LoadInt64(&p.eventsDropped),
		FlushErrors:    atomic.LoadInt64(&p.flushErrors),
		BufferLen:      len(p.events),
	}
}

// LogSink writes events as structured JSON logs; the default sink.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink creates a sink that logs events as structured JSON.
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger.With().Str("sink", "log").Logger()}
}

func (s *LogSink) WriteEvents(_ context.Context, events []Event) error {
	for _, e := range events {
		data, _ := json.Marshal(e)
		s.logger.Debug().RawJSON("event", data).Msg("scheduler_event")
	}
	return nil
}

func (s *LogSink) Close() error { return nil }
