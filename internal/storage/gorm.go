// File: internal/storage/gorm.go
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeviceItem is one row of device storage.
type DeviceItem struct {
	Key       string `gorm:"primaryKey;size:255"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

func (DeviceItem) TableName() string { return "device_items" }

type gormKeyValue struct {
	db *gorm.DB
}

// NewGORMKeyValue migrates the device_items table and returns a KeyValue over it.
func NewGORMKeyValue(db *gorm.DB) (KeyValue, error) {
	if err := db.AutoMigrate(&DeviceItem{}); err != nil {
		return nil, fmt.Errorf("failed to migrate device storage: %w", err)
	}
	return &gormKeyValue{db: db}, nil
}

func (s *gormKeyValue) GetItem(ctx context.Context, key string) (string, error) {
	var item DeviceItem
	if err := s.db.WithContext(ctx).Where("key = ?", key).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	return item.Value, nil
}

func (s *gormKeyValue) SetItem(ctx context.Context, key, value string) error {
	item := DeviceItem{Key: key, Value: value}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&item).Error
}

func (s *gormKeyValue) RemoveItem(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("key = ?", key).Delete(&DeviceItem{}).Error
}
