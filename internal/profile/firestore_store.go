// File: internal/profile/firestore_store.go
package profile

import (
	"context"
	"errors"

	"account_agent/internal/common"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore keeps profile documents in a Firestore collection keyed by UID.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreStore(client *firestore.Client, collection string) *FirestoreStore {
	return &FirestoreStore{client: client, collection: collection}
}

func (s *FirestoreStore) doc(id string) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(id)
}

func (s *FirestoreStore) Get(ctx context.Context, id string) (*Document, error) {
	snap, err := s.doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, translateFirestore(err)
	}
	var doc Document
	if err := snap.DataTo(&doc); err != nil {
		return nil, common.NewPermanentError(common.CodeInternal, err)
	}
	if doc.ID == "" {
		doc.ID = id
	}
	return &doc, nil
}

func (s *FirestoreStore) Exists(ctx context.Context, id string) (bool, error) {
	snap, err := s.doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return false, nil
	}
	if err != nil {
		return false, translateFirestore(err)
	}
	return snap.Exists(), nil
}

func (s *FirestoreStore) SetMerge(ctx context.Context, id string, data map[string]interface{}) error {
	_, err := s.doc(id).Set(ctx, data, firestore.MergeAll)
	return translateFirestore(err)
}

func (s *FirestoreStore) Update(ctx context.Context, id string, data map[string]interface{}) error {
	updates := make([]firestore.Update, 0, len(data))
	for path, value := range data {
		updates = append(updates, firestore.Update{Path: path, Value: value})
	}
	_, err := s.doc(id).Update(ctx, updates)
	return translateFirestore(err)
}

// translateFirestore classifies gRPC status codes from the Firestore client.
func translateFirestore(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return common.NewTransientError(common.CodeUnavailable, err)
	}
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Aborted:
		return common.NewTransientError(common.CodeUnavailable, err)
	case codes.NotFound:
		return common.NewNotFoundError(err)
	case codes.PermissionDenied, codes.Unauthenticated:
		return common.NewPermanentError(common.CodePermissionDenied, err)
	case codes.ResourceExhausted:
		return common.NewPermanentError(common.CodeTooManyRequests, err)
	}
	return common.NewPermanentError(common.CodeInternal, err)
}
