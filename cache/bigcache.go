package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
)

// BigCacheStore is an in-process Store with per-entry expiry, backed by
// bigcache shards.
type BigCacheStore struct {
	cache *bigcache.BigCache
}

// NewBigCacheStore creates a store whose entries live for ttl. The cache
// stops its cleanup goroutine when ctx is done or Close is called.
func NewBigCacheStore(ctx context.Context, ttl time.Duration) (*BigCacheStore, error) {
	cfg := bigcache.DefaultConfig(ttl)
	cfg.CleanWindow = ttl
	cfg.Verbose = false

	c, err := bigcache.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create bigcache: %w", err)
	}
	return &BigCacheStore{cache: c}, nil
}

func (s *BigCacheStore) Get(_ context.Context, key string) ([]byte, error) {
	v, err := s.cache.Get(key)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	return v, err
}

func (s *BigCacheStore) Set(_ context.Context, key string, value []byte) error {
	return s.cache.Set(key, value)
}

func (s *BigCacheStore) Delete(_ context.Context, key string) error {
	if err := s.cache.Delete(key); err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
		return err
	}
	return nil
}

// Len is the number of stored entries.
func (s *BigCacheStore) Len() int {
	return s.cache.Len()
}

func (s *BigCacheStore) Close() error {
	return s.cache.Close()
}
