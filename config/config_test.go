package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/AlfredDev/alfred/services/fetchengine/config"
)

func TestLoadConfigFromEnv(t *testing.T) {
	os.Setenv("REDIS_URL", "redis://localhost:6379")
	os.Setenv("FETCHENGINE_ENV", "test")
	os.Setenv("FETCHENGINE_MAX_CONCURRENT", "8")
	os.Setenv("FETCHENGINE_MAX_BYTES", "1024")
	defer func() {
		os.Unsetenv("REDIS_URL")
		os.Unsetenv("FETCHENGINE_ENV")
		os.Unsetenv("FETCHENGINE_MAX_CONCURRENT")
		os.Unsetenv("FETCHENGINE_MAX_BYTES")
	}()

	cfg := config.Load()
	require.Equal(t, "redis://localhost:6379", cfg.RedisURL)
	require.Equal(t, "test", cfg.Env)
	require.Equal(t, 8, cfg.MaxConcurrent)
	require.NotNil(t, cfg.MaxBytes)
	require.EqualValues(t, 1024, *cfg.MaxBytes)
}

func TestHostTimeoutFallsBackToDefault(t *testing.T) {
	cfg := config.Load()
	cfg.DefaultTimeout = 42 * time.Second
	cfg.HostTimeouts = map[string]time.Duration{"api.example.com": 7 * time.Second}

	require.Equal(t, 7*time.Second, cfg.HostTimeout("api.example.com"))
	require.Equal(t, 42*time.Second, cfg.HostTimeout("other.example.com"))
}
