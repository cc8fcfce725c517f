package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// CacheConfig holds per-host cache tuning values for the ETag/Last-Modified
// cache (§11.3). Generalizes the teacher's per-namespace semantic-cache
// config to per-host tuning. The values are only parsed: main does not
// call LoadCacheConfig, and the caching scheduler does not consult any
// CacheConfig field.
type CacheConfig struct {
	// MaxEntriesPerHost is a per-host entry count (0 = unlimited). No
	// store enforces it.
	MaxEntriesPerHost int `yaml:"max_entries_per_host"`
	// MinCacheableBodyBytes is a minimum body size for storing a
	// response. The caching scheduler does not apply it.
	MinCacheableBodyBytes int `yaml:"min_cacheable_body_bytes"`
	// ValidateCacheableResponses names a structural check before STORE.
	// The caching scheduler performs no such check.
	ValidateCacheableResponses bool `yaml:"validate_cacheable_responses"`
	// DefaultTTL is a fallback lifetime for cacheable responses without a
	// freshness horizon. The caching scheduler does not use it: such
	// entries are always stored with must_revalidate=true and no expiry.
	DefaultTTL time.Duration `yaml:"default_ttl"`
}

// DefaultCacheConfig returns production defaults.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		MaxEntriesPerHost:          10000,
		MinCacheableBodyBytes:      0,
		ValidateCacheableResponses: true,
		DefaultTTL:                 24 * time.Hour,
	}
}

// LoadCacheConfig reads CacheConfig from the YAML file named by path,
// falling back to defaults when path is empty or unreadable.
func LoadCacheConfig(path string) (CacheConfig, error) {
	cfg := DefaultCacheConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
