package main

import (
	"context"
	"log"

	"account_agent/internal/cache"
	"account_agent/internal/config"
	"account_agent/internal/firebase"
	"account_agent/internal/platform/database"
	"account_agent/internal/platform/logger"
	"account_agent/internal/storage"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

func provideContext() context.Context {
	return context.Background()
}

func provideDatabase(cfg *config.Config, logger *zap.Logger) (*gorm.DB, func(), error) {
	db, err := database.NewGORM(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return db, func() { database.CloseGORMDB(db, logger) }, nil
}

func provideFirebase(cfg *config.Config, logger *zap.Logger) (*firebase.FirebaseService, func(), error) {
	svc, err := firebase.NewFirebaseService(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return svc, svc.Close, nil
}

func provideCache(cfg *config.Config, store storage.KeyValue, logger *zap.Logger) *cache.Cache {
	return cache.New(store, cfg.CacheTTL, logger)
}

func provideLogger(cfg *config.Config) (*zap.Logger, func(), error) {
	zl, err := logger.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	return zl, func() {
		zl.Info("Cleanup finished.")
		if err := zl.Sync(); err != nil {
			log.Printf("ERROR: Failed to sync logger during cleanup: %v", err)
		}
	}, nil
}
