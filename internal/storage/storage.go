// File: internal/storage/storage.go
package storage

import (
	"context"
	"errors"
	"fmt"

	"account_agent/internal/config"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrNotFound is returned by GetItem when the key has never been set or was removed.
var ErrNotFound = errors.New("storage: item not found")

// KeyValue is the device's persistent key-value primitive. Values are opaque strings.
type KeyValue interface {
	GetItem(ctx context.Context, key string) (string, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}

// NewKeyValue picks the backend named by CACHE_DRIVER.
func NewKeyValue(cfg *config.Config, db *gorm.DB, logger *zap.Logger) (KeyValue, func(), error) {
	switch cfg.CacheDriver {
	case "redis":
		store, err := NewRedisKeyValueFromURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Device storage backed by redis")
		cleanup := func() {
			if err := store.Close(); err != nil {
				logger.Error("Error closing redis client", zap.Error(err))
			}
		}
		return store, cleanup, nil
	case "database":
		store, err := NewGORMKeyValue(db)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Device storage backed by the device database")
		return store, func() {}, nil
	case "memory":
		logger.Warn("Device storage kept in memory; sessions and cached profiles are lost on restart")
		return NewMemoryKeyValue(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unsupported cache driver %q", cfg.CacheDriver)
}
