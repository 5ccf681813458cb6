// File: internal/profile/outbox.go
package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PendingWrite is a profile save that could not reach the document store.
// Rows replay in Seq order, oldest first.
type PendingWrite struct {
	Seq       uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	ID        uuid.UUID `gorm:"type:varchar(36);uniqueIndex;not null" json:"id"`
	UserID    string    `gorm:"size:128;index;not null" json:"userId"`
	Payload   string    `gorm:"type:text;not null" json:"-"`
	Attempts  int       `gorm:"not null;default:0" json:"attempts"`
	LastError string    `gorm:"type:text" json:"lastError,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Fields map[string]interface{} `gorm:"-" json:"fields"`
}

func (PendingWrite) TableName() string { return "profile_pending_writes" }

func (w *PendingWrite) AfterFind(tx *gorm.DB) error {
	if w.Payload == "" {
		return nil
	}
	return json.Unmarshal([]byte(w.Payload), &w.Fields)
}

// Outbox is the durable queue of profile writes waiting for connectivity.
type Outbox struct {
	db *gorm.DB
}

// NewOutbox migrates the pending-writes table.
func NewOutbox(db *gorm.DB) (*Outbox, error) {
	if err := db.AutoMigrate(&PendingWrite{}); err != nil {
		return nil, fmt.Errorf("failed to migrate profile outbox: %w", err)
	}
	return &Outbox{db: db}, nil
}

func (o *Outbox) Enqueue(ctx context.Context, userID string, fields map[string]interface{}, now time.Time) (*PendingWrite, error) {
	payload, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encoding pending write: %w", err)
	}
	w := &PendingWrite{
		ID:        uuid.New(),
		UserID:    userID,
		Payload:   string(payload),
		CreatedAt: now,
		UpdatedAt: now,
		Fields:    fields,
	}
	if err := o.db.WithContext(ctx).Create(w).Error; err != nil {
		return nil, fmt.Errorf("storing pending write: %w", err)
	}
	return w, nil
}

// Pending lists pending writes oldest first, for one user or, with an empty userID, for everyone.
func (o *Outbox) Pending(ctx context.Context, userID string, limit int) ([]PendingWrite, error) {
	q := o.db.WithContext(ctx).Order("seq ASC")
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var writes []PendingWrite
	if err := q.Find(&writes).Error; err != nil {
		return nil, fmt.Errorf("listing pending writes: %w", err)
	}
	return writes, nil
}

// Page lists one user's pending writes for display.
func (o *Outbox) Page(ctx context.Context, userID string, offset, limit int) ([]PendingWrite, int64, error) {
	var total int64
	if err := o.db.WithContext(ctx).Model(&PendingWrite{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting pending writes: %w", err)
	}
	var writes []PendingWrite
	err := o.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("seq ASC").
		Offset(offset).
		Limit(limit).
		Find(&writes).Error
	if err != nil {
		return nil, 0, fmt.Errorf("listing pending writes: %w", err)
	}
	return writes, total, nil
}

func (o *Outbox) Remove(ctx context.Context, id uuid.UUID) error {
	return o.db.WithContext(ctx).Where("id = ?", id).Delete(&PendingWrite{}).Error
}

// MarkFailed records a failed replay attempt.
func (o *Outbox) MarkFailed(ctx context.Context, id uuid.UUID, cause error) error {
	return o.db.WithContext(ctx).Model(&PendingWrite{}).Where("id = ?", id).Updates(map[string]interface{}{
		"attempts":   gorm.Expr("attempts + 1"),
		"last_error": cause.Error(),
	}).Error
}

// DiscardUser drops every pending write for a user, e.g. after account deletion.
func (o *Outbox) DiscardUser(ctx context.Context, userID string) error {
	return o.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&PendingWrite{}).Error
}
