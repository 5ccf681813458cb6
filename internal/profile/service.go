// File: internal/profile/service.go
package profile

import (
	"context"
	"sync"
	"time"

	"account_agent/internal/cache"
	"account_agent/internal/common"
	"account_agent/internal/config"
	"account_agent/internal/retry"

	"go.uber.org/zap"
)

const (
	MsgNoData        = "No data to save"
	MsgSaved         = "Profile saved"
	MsgSavedLocally  = "Profile saved locally. It will sync when your connection is restored."
	MsgUpdated       = "Profile updated"
	MsgDeleted       = "Profile deleted"
	MsgNothingToDel  = "No profile to delete"
	MsgCachedProfile = "Showing cached profile data. Check your connection to see the latest changes."
)

// timestampLayout is fixed-width so stamps compare correctly as strings.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// Service is the remote profile store API.
type Service interface {
	Save(ctx context.Context, id string, fields Fields) common.Result[*Document]
	Get(ctx context.Context, id string) common.Result[*Document]
	Update(ctx context.Context, id string, fields Fields) common.Result[*Document]
	Delete(ctx context.Context, id string) common.Result[*Document]
	ReplayPending(ctx context.Context) ReplayReport
	PendingWrites(ctx context.Context, userID string, q common.PageQuery) ([]PendingWrite, *common.Pagination, error)
}

// ReplayReport summarizes one outbox replay pass.
type ReplayReport struct {
	Replayed  int `json:"replayed"`
	Dropped   int `json:"dropped"`
	Remaining int `json:"remaining"`
}

// ServiceImplementation implements Service over a DocumentStore, the local
// TTL cache and the durable outbox.
type ServiceImplementation struct {
	store     DocumentStore
	cache     *cache.Cache
	outbox    *Outbox
	retrier   *retry.Retrier
	batchSize int
	now       func() time.Time
	logger    *zap.Logger

	// replayMu keeps one replay at a time, whether from the job or a save.
	replayMu sync.Mutex
}

var _ Service = (*ServiceImplementation)(nil)

func NewService(
	store DocumentStore,
	cache *cache.Cache,
	outbox *Outbox,
	retrier *retry.Retrier,
	cfg *config.Config,
	logger *zap.Logger,
) *ServiceImplementation {
	batch := cfg.OutboxBatchSize
	if batch <= 0 {
		batch = 50
	}
	return &ServiceImplementation{
		store:     store,
		cache:     cache,
		outbox:    outbox,
		retrier:   retrier,
		batchSize: batch,
		now:       time.Now,
		logger:    logger.Named("profile"),
	}
}

func cacheKey(id string) string { return cache.Key(cache.ProfilePrefix, id) }

// Save merges the provided fields into the user's document. When the store
// stays unreachable after retries the write is kept on the device and queued
// for replay, and the result is a pending success.
func (s *ServiceImplementation) Save(ctx context.Context, id string, fields Fields) common.Result[*Document] {
	data := fields.ToMap()
	if len(data) == 0 {
		return common.OK[*Document](nil, MsgNoData)
	}
	logger := s.logger.With(zap.String("uid", id))

	// Older queued writes must land first or they would overwrite this one on replay.
	if report := s.replay(ctx, id, 0); report.Remaining > 0 {
		logger.Info("Earlier writes still queued, queueing this one behind them", zap.Int("queued", report.Remaining))
		return s.saveLocally(ctx, id, data, nil)
	}

	payload := s.stamped(ctx, id, data)
	err := s.retrier.Run(ctx, "profile.save", func(ctx context.Context) error {
		return s.writeMerged(ctx, id, payload)
	})
	if err == nil {
		return common.OK(s.mergeIntoCache(ctx, id, payload), MsgSaved)
	}
	if common.IsTransient(err) {
		logger.Warn("Document store unreachable, saving profile locally", zap.Error(err))
		return s.saveLocally(ctx, id, data, err)
	}
	logger.Error("Failed to save profile", zap.Error(err))
	return common.Fail[*Document](err)
}

// writeMerged performs the existence check and merge write for one payload.
func (s *ServiceImplementation) writeMerged(ctx context.Context, id string, payload map[string]interface{}) error {
	exists, err := s.store.Exists(ctx, id)
	if err != nil {
		return err
	}
	data := payload
	if !exists {
		data = make(map[string]interface{}, len(payload)+1)
		for k, v := range payload {
			data[k] = v
		}
		data[FieldCreatedAt] = payload[FieldUpdatedAt]
	}
	return s.store.SetMerge(ctx, id, data)
}

func (s *ServiceImplementation) saveLocally(ctx context.Context, id string, data map[string]interface{}, cause error) common.Result[*Document] {
	if _, err := s.outbox.Enqueue(ctx, id, data, s.now()); err != nil {
		s.logger.Error("Failed to queue profile write", zap.String("uid", id), zap.Error(err))
		if cause == nil {
			cause = common.NewTransientError(common.CodeUnavailable, err)
		}
		return common.Fail[*Document](cause)
	}
	doc := s.mergeIntoCache(ctx, id, s.stamped(ctx, id, data))
	res := common.OK(doc, MsgSavedLocally)
	res.Pending = true
	return res
}

// Get reads the document, falling back to the cache when the store fails.
// A missing or soft-deleted document is a success with nil data.
func (s *ServiceImplementation) Get(ctx context.Context, id string) common.Result[*Document] {
	doc, err := retry.Do(ctx, s.retrier, "profile.get", func(ctx context.Context) (*Document, error) {
		return s.store.Get(ctx, id)
	})
	if err == nil {
		if doc == nil || doc.Deleted {
			s.cache.Invalidate(ctx, cacheKey(id))
			return common.OK[*Document](nil, "")
		}
		s.cache.Put(ctx, cacheKey(id), doc)
		return common.OK(doc, "")
	}

	var cached Document
	if s.cache.Get(ctx, cacheKey(id), &cached) {
		s.logger.Warn("Serving cached profile", zap.String("uid", id), zap.Error(err))
		return common.OK(&cached, MsgCachedProfile)
	}
	s.logger.Error("Failed to load profile and no cached copy", zap.String("uid", id), zap.Error(err))
	return common.Fail[*Document](err)
}

// Update changes fields of an existing document. It has no local fallback.
// updatedAt is refreshed even when no fields are given.
func (s *ServiceImplementation) Update(ctx context.Context, id string, fields Fields) common.Result[*Document] {
	payload := s.stamped(ctx, id, fields.ToMap())
	err := s.retrier.Run(ctx, "profile.update", func(ctx context.Context) error {
		return s.store.Update(ctx, id, payload)
	})
	if err != nil {
		s.logger.Error("Failed to update profile", zap.String("uid", id), zap.Error(err))
		return common.Fail[*Document](err)
	}
	return common.OK(s.mergeIntoCache(ctx, id, payload), MsgUpdated)
}

// Delete soft-deletes the document and forgets everything held locally for it.
func (s *ServiceImplementation) Delete(ctx context.Context, id string) common.Result[*Document] {
	stamp := s.stamp(ctx, id)
	payload := map[string]interface{}{
		FieldDeleted:   true,
		FieldDeletedAt: stamp,
		FieldUpdatedAt: stamp,
	}
	err := s.retrier.Run(ctx, "profile.delete", func(ctx context.Context) error {
		return s.store.Update(ctx, id, payload)
	})
	if err != nil && common.KindOf(err) != common.KindNotFound {
		s.logger.Error("Failed to delete profile", zap.String("uid", id), zap.Error(err))
		return common.Fail[*Document](err)
	}

	s.cache.Invalidate(ctx, cacheKey(id))
	if derr := s.outbox.DiscardUser(ctx, id); derr != nil {
		s.logger.Warn("Failed to discard queued writes", zap.String("uid", id), zap.Error(derr))
	}
	if err != nil {
		return common.OK[*Document](nil, MsgNothingToDel)
	}
	return common.OK[*Document](nil, MsgDeleted)
}

// ReplayPending pushes queued writes to the store, oldest first.
func (s *ServiceImplementation) ReplayPending(ctx context.Context) ReplayReport {
	return s.replay(ctx, "", s.batchSize)
}

// replay stops at the first transient failure, since the rest would fail the
// same way, and drops writes the store rejects permanently.
func (s *ServiceImplementation) replay(ctx context.Context, userID string, limit int) ReplayReport {
	s.replayMu.Lock()
	defer s.replayMu.Unlock()

	var report ReplayReport
	writes, err := s.outbox.Pending(ctx, userID, limit)
	if err != nil {
		s.logger.Error("Failed to read profile outbox", zap.Error(err))
		return report
	}

	for i, w := range writes {
		payload := s.stamped(ctx, w.UserID, w.Fields)
		err := s.writeMerged(ctx, w.UserID, payload)
		switch {
		case err == nil:
			s.mergeIntoCache(ctx, w.UserID, payload)
			if rerr := s.outbox.Remove(ctx, w.ID); rerr != nil {
				s.logger.Error("Replayed write could not be removed from the outbox", zap.String("id", w.ID.String()), zap.Error(rerr))
			}
			report.Replayed++
		case common.IsTransient(err):
			if merr := s.outbox.MarkFailed(ctx, w.ID, err); merr != nil {
				s.logger.Error("Failed to record replay attempt", zap.String("id", w.ID.String()), zap.Error(merr))
			}
			report.Remaining = len(writes) - i
			s.logger.Info("Document store still unreachable, replay paused",
				zap.Int("replayed", report.Replayed), zap.Int("remaining", report.Remaining))
			return report
		default:
			s.logger.Error("Dropping queued profile write rejected by the store",
				zap.String("id", w.ID.String()), zap.String("uid", w.UserID), zap.Error(err))
			if rerr := s.outbox.Remove(ctx, w.ID); rerr != nil {
				s.logger.Error("Failed to drop rejected write", zap.String("id", w.ID.String()), zap.Error(rerr))
			}
			report.Dropped++
		}
	}
	if report.Replayed > 0 || report.Dropped > 0 {
		s.logger.Info("Profile outbox replayed", zap.Int("replayed", report.Replayed), zap.Int("dropped", report.Dropped))
	}
	return report
}

func (s *ServiceImplementation) PendingWrites(ctx context.Context, userID string, q common.PageQuery) ([]PendingWrite, *common.Pagination, error) {
	writes, total, err := s.outbox.Page(ctx, userID, q.Offset(), q.Limit())
	if err != nil {
		return nil, nil, err
	}
	return writes, common.NewPagination(total, q.Page, q.PageSize), nil
}

// stamped copies data adding the document id and a fresh updatedAt.
func (s *ServiceImplementation) stamped(ctx context.Context, id string, data map[string]interface{}) map[string]interface{} {
	payload := make(map[string]interface{}, len(data)+2)
	for k, v := range data {
		payload[k] = v
	}
	payload[FieldID] = id
	payload[FieldUpdatedAt] = s.stamp(ctx, id)
	return payload
}

// stamp returns the current time, never earlier than the last updatedAt seen
// for this document, so updatedAt does not move backwards with the wall clock.
func (s *ServiceImplementation) stamp(ctx context.Context, id string) string {
	now := s.now().UTC().Format(timestampLayout)
	var cached Document
	if s.cache.Get(ctx, cacheKey(id), &cached) && cached.UpdatedAt > now {
		return cached.UpdatedAt
	}
	return now
}

// mergeIntoCache layers payload over the cached document and stores the result.
func (s *ServiceImplementation) mergeIntoCache(ctx context.Context, id string, payload map[string]interface{}) *Document {
	doc := Document{ID: id}
	s.cache.Get(ctx, cacheKey(id), &doc)
	applyTo(&doc, payload)
	s.cache.Put(ctx, cacheKey(id), doc)
	return &doc
}
