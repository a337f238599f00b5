// Package cache memoizes action results. A Store keeps encoded results by
// key; Handler wraps an action handler so repeated calls with equal params
// are answered from the store.
package cache

import (
	"context"
	"fmt"
	"time"
)

// Store keeps byte values by key. Get returns ErrKeyNotFound for missing or
// expired keys.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Config holds store initialization parameters.
type Config struct {
	Backend string        `json:"backend,omitempty"` // "bigcache", "memory" or empty to disable
	TTL     time.Duration `json:"ttl,omitempty"`
}

// DefaultConfig returns the default cache configuration (disabled).
func DefaultConfig() Config {
	return Config{TTL: 10 * time.Minute}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Backend != "" {
		c.Backend = source.Backend
	}
	if source.TTL > 0 {
		c.TTL = source.TTL
	}
}

// NewStore creates a Store from configuration. Returns a nil Store when
// Backend is empty, indicating caching is disabled.
func NewStore(ctx context.Context, cfg *Config) (Store, error) {
	switch cfg.Backend {
	case "":
		return nil, nil
	case "bigcache":
		return NewBigCacheStore(ctx, cfg.TTL)
	case "memory":
		return NewMemoryStore(cfg.TTL), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.Backend)
	}
}
