// File: internal/cache/cache.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"account_agent/internal/storage"

	"go.uber.org/zap"
)

const (
	DefaultTTL = 5 * time.Minute

	ProfilePrefix = "user_profile_"
	SessionPrefix = "auth_session_"
)

// Key builds the namespaced storage key for one user's entry.
func Key(prefix, userID string) string {
	return prefix + userID
}

type entry struct {
	Value           json.RawMessage `json:"value"`
	WrittenAtMillis int64           `json:"writtenAtMillis"`
}

// Cache is a best-effort TTL mirror over device storage. Reads of expired
// entries evict them; write failures are logged and never reach the caller.
type Cache struct {
	store  storage.KeyValue
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

func New(store storage.KeyValue, ttl time.Duration, logger *zap.Logger) *Cache {
	return NewWithClock(store, ttl, time.Now, logger)
}

func NewWithClock(store storage.KeyValue, ttl time.Duration, now func() time.Time, logger *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		store:  store,
		ttl:    ttl,
		now:    now,
		logger: logger.Named("cache"),
	}
}

func (c *Cache) TTL() time.Duration { return c.ttl }

// Put stores value under key stamped with the current time.
func (c *Cache) Put(ctx context.Context, key string, value interface{}) {
	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("Failed to encode cache value", zap.String("key", key), zap.Error(err))
		return
	}
	text, err := json.Marshal(entry{Value: raw, WrittenAtMillis: c.now().UnixMilli()})
	if err != nil {
		c.logger.Warn("Failed to encode cache entry", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.SetItem(ctx, key, string(text)); err != nil {
		c.logger.Warn("Failed to write cache entry", zap.String("key", key), zap.Error(err))
	}
}

// Get decodes the live entry for key into dst and reports whether one existed.
func (c *Cache) Get(ctx context.Context, key string, dst interface{}) bool {
	text, err := c.store.GetItem(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			c.logger.Warn("Failed to read cache entry", zap.String("key", key), zap.Error(err))
		}
		return false
	}

	var e entry
	if err := json.Unmarshal([]byte(text), &e); err != nil {
		c.logger.Warn("Discarding corrupt cache entry", zap.String("key", key), zap.Error(err))
		c.Invalidate(ctx, key)
		return false
	}

	age := c.now().UnixMilli() - e.WrittenAtMillis
	if age > c.ttl.Milliseconds() {
		c.logger.Debug("Cache entry expired", zap.String("key", key), zap.Int64("age_ms", age))
		c.Invalidate(ctx, key)
		return false
	}

	if err := json.Unmarshal(e.Value, dst); err != nil {
		c.logger.Warn("Failed to decode cache value", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (c *Cache) Invalidate(ctx context.Context, key string) {
	if err := c.store.RemoveItem(ctx, key); err != nil {
		c.logger.Warn("Failed to remove cache entry", zap.String("key", key), zap.Error(err))
	}
}
