package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AlfredDev/alfred/services/fetchengine/config"
)

// RedisStore is a BlobCache backed by Redis, so cache entries survive a
// process restart and can be shared across multiple fetch engine
// instances. It generalizes the gateway's redisclient.Client — which
// only ever pinged Redis — into a full get/set/del entry store, keeping
// the same config-driven connection setup.
type RedisStore struct {
	c *redis.Client
}

// NewRedisStore creates a RedisStore from the engine configuration.
// Returns an error if RedisURL cannot be parsed.
func NewRedisStore(cfg *config.Config) (*RedisStore, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	return &RedisStore{c: redis.NewClient(opt)}, nil
}

// Ping verifies connectivity; main uses it to decide whether to fall
// back to the in-memory store.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.c.Ping(ctx).Err()
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := r.c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (r *RedisStore) Insert(ctx context.Context, key string, value []byte, expiry *time.Time) error {
	var ttl time.Duration
	if expiry != nil {
		ttl = time.Until(*expiry)
		if ttl <= 0 {
			return nil // already expired; nothing to store
		}
	}
	return r.c.Set(ctx, key, value, ttl).Err()
}

func (r *RedisStore) Invalidate(ctx context.Context, key string) error {
	return r.c.Del(ctx, key).Err()
}

// Close releases the underlying connection pool.
func (r *RedisStore) Close() error {
	return r.c.Close()
}
