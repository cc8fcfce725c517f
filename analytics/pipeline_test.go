package analytics_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/AlfredDev/alfred/services/fetchengine/analytics"
)

type recordingSink struct {
	mu     sync.Mutex
	events []analytics.Event
}

func (r *recordingSink) WriteEvents(_ context.Context, events []analytics.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return nil
}

func (r *recordingSink) Close() error { return nil }

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestPipelineFlushesOnFullBatch(t *testing.T) {
	sink := &recordingSink{}
	cfg := analytics.DefaultPipelineConfig()
	cfg.BatchSize = 3
	cfg.FlushInterval = time.Hour
	cfg.Workers = 1

	p := analytics.NewPipeline(zerolog.Nop(), sink, cfg)
	p.Start(context.Background())
	defer p.Stop()

	for i := 0; i < 3; i++ {
		p.Track(analytics.Event{Type: analytics.EventCacheHit})
	}

	require.Eventually(t, func() bool { return sink.count() == 3 }, time.Second, 5*time.Millisecond)
}

func TestPipelineDropsEventsWhenBufferFull(t *testing.T) {
	sink := &recordingSink{}
	cfg := analytics.DefaultPipelineConfig()
	cfg.BufferSize = 1
	cfg.BatchSize = 1000
	cfg.FlushInterval = time.Hour
	cfg.Workers = 0 // no workers draining; buffer fills immediately

	p := analytics.NewPipeline(zerolog.Nop(), sink, cfg)
	p.Track(analytics.Event{Type: analytics.EventCacheMiss})
	p.Track(analytics.Event{Type: analytics.EventCacheMiss})

	require.EqualValues(t, 1, p.Stats().EventsDropped)
}

func TestPipelineStopFlushesRemaining(t *testing.T) {
	sink := &recordingSink{}
	cfg := analytics.DefaultPipelineConfig()
	cfg.BatchSize = 1000
	cfg.FlushInterval = time.Hour
	cfg.Workers = 1

	p := analytics.NewPipeline(zerolog.Nop(), sink, cfg)
	p.Start(context.Background())
	p.Track(analytics.Event{Type: analytics.EventBudgetExhausted})
	p.Stop()

	require.Equal(t, 1, sink.count())
}
