// Package config resolves fetch engine tunables from the environment:
// queue concurrency, scheduler retry/priority/byte-budget knobs, entry
// store backend selection, and demo-server ingress limits, in one
// place instead of hardcoding them across queue/scheduler/cache. It
// extends the gateway's original env-driven config loader to the fetch
// engine's own concerns.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all fetch engine configuration values.
type Config struct {
	// Server
	Addr            string
	Env             string
	GracefulTimeout time.Duration

	// Redis-backed entry store (optional; falls back to in-memory)
	RedisURL string

	// Priority Operation Queue (component A)
	MaxConcurrent int

	// HTTP Scheduler (component B)
	PriorityBase int32
	RetryCount   int
	MaxBytes     *uint64 // nil = unlimited

	// Per-host timeout overrides for outbound fetches.
	DefaultTimeout time.Duration
	HostTimeouts   map[string]time.Duration

	// Cache tuning config file (component C)
	CacheConfigFile string

	// Demo-server ingress limits (not part of the CORE)
	RateLimitEnabled bool
	RateLimitRPM     int
	RateLimitBurst   int
	MaxBodyBytes     int64
	AdminSecret      string
	ConcurrencyLimit int

	LogLevel string
}

// Load reads configuration from environment variables and optional .env file.
func Load() *Config {
	_ = godotenv.Load()

	gracefulSec := getEnvInt("FETCHENGINE_GRACEFUL_TIMEOUT_SEC", 15)
	defaultTimeoutSec := getEnvInt("FETCHENGINE_DEFAULT_TIMEOUT_SEC", 30)

	cfg := &Config{
		Addr:             getEnv("FETCHENGINE_ADDR", ":8080"),
		Env:              getEnv("FETCHENGINE_ENV", "development"),
		GracefulTimeout:  time.Duration(gracefulSec) * time.Second,
		RedisURL:         getEnv("REDIS_URL", ""),
		MaxConcurrent:    getEnvInt("FETCHENGINE_MAX_CONCURRENT", 4),
		PriorityBase:     int32(getEnvInt("FETCHENGINE_PRIORITY_BASE", 0)),
		RetryCount:       getEnvInt("FETCHENGINE_RETRY_COUNT", 3),
		DefaultTimeout:   time.Duration(defaultTimeoutSec) * time.Second,
		HostTimeouts:     map[string]time.Duration{},
		CacheConfigFile:  getEnv("CACHE_CONFIG_FILE", ""),
		RateLimitEnabled: getEnvBool("FETCHENGINE_RATE_LIMIT_ENABLED", true),
		RateLimitRPM:     getEnvInt("FETCHENGINE_RATE_LIMIT_RPM", 600),
		RateLimitBurst:   getEnvInt("FETCHENGINE_RATE_LIMIT_BURST", 50),
		MaxBodyBytes:     int64(getEnvInt("FETCHENGINE_MAX_BODY_BYTES", 1*1024*1024)),
		AdminSecret:      getEnv("FETCHENGINE_ADMIN_SECRET", ""),
		ConcurrencyLimit: getEnvInt("FETCHENGINE_CONCURRENCY_LIMIT", 50),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
	}

	if v, ok := os.LookupEnv("FETCHENGINE_MAX_BYTES"); ok {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.MaxBytes = &n
		}
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// HostTimeout returns the configured fetch timeout for a given upstream host.
func (c *Config) HostTimeout(host string) time.Duration {
	if t, ok := c.HostTimeouts[host]; ok {
		return t
	}
	return c.DefaultTimeout
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
