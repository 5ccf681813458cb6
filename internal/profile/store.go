// File: internal/profile/store.go
package profile

import (
	"context"
	"fmt"

	"account_agent/internal/config"
	fb "account_agent/internal/firebase"

	"go.uber.org/zap"
)

// DocumentStore is the remote document database holding profile documents,
// one per UID. Errors are *common.ServiceError values.
type DocumentStore interface {
	// Get returns nil, nil when no document exists.
	Get(ctx context.Context, id string) (*Document, error)
	Exists(ctx context.Context, id string) (bool, error)
	// SetMerge creates the document or merges data into it, keeping absent fields.
	SetMerge(ctx context.Context, id string, data map[string]interface{}) error
	// Update changes fields of an existing document and fails with KindNotFound otherwise.
	Update(ctx context.Context, id string, data map[string]interface{}) error
}

// NewDocumentStore picks the backend named by DOCUMENT_STORE.
func NewDocumentStore(ctx context.Context, cfg *config.Config, firebaseService *fb.FirebaseService, logger *zap.Logger) (DocumentStore, func(), error) {
	switch cfg.DocumentStore {
	case "mongo":
		store, err := NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.ProfileCollection)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to mongo: %w", err)
		}
		logger.Info("Profile documents stored in MongoDB", zap.String("database", cfg.MongoDatabase))
		return store, func() { store.Close(context.Background()) }, nil
	case "firestore":
		client, err := firebaseService.Firestore(ctx)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Profile documents stored in Firestore", zap.String("collection", cfg.ProfileCollection))
		return NewFirestoreStore(client, cfg.ProfileCollection), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unsupported document store %q", cfg.DocumentStore)
}
