// File: internal/storage/memory.go
package storage

import (
	"context"

	"github.com/patrickmn/go-cache"
)

// MemoryKeyValue keeps items in process memory. Nothing survives a restart, so
// it suits tests and throwaway agents (CACHE_DRIVER=memory).
type MemoryKeyValue struct {
	items *cache.Cache
}

func NewMemoryKeyValue() *MemoryKeyValue {
	// Expiry is the TTL cache's job; items here live until removed.
	return &MemoryKeyValue{items: cache.New(cache.NoExpiration, 0)}
}

func (s *MemoryKeyValue) GetItem(_ context.Context, key string) (string, error) {
	v, found := s.items.Get(key)
	if !found {
		return "", ErrNotFound
	}
	return v.(string), nil
}

func (s *MemoryKeyValue) SetItem(_ context.Context, key, value string) error {
	s.items.Set(key, value, cache.NoExpiration)
	return nil
}

func (s *MemoryKeyValue) RemoveItem(_ context.Context, key string) error {
	s.items.Delete(key)
	return nil
}
