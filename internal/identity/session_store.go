// File: internal/identity/session_store.go
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"account_agent/internal/storage"
)

const sessionKey = "identity_session"

// SessionStore persists the provider session on the device so the agent knows
// at startup whether someone is signed in. Unlike cache entries it never expires.
type SessionStore struct {
	store storage.KeyValue
}

func NewSessionStore(store storage.KeyValue) *SessionStore {
	return &SessionStore{store: store}
}

// Load returns the persisted session, or nil when nobody is signed in.
func (s *SessionStore) Load(ctx context.Context) (*Session, error) {
	text, err := s.store.GetItem(ctx, sessionKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading persisted session: %w", err)
	}
	var session Session
	if err := json.Unmarshal([]byte(text), &session); err != nil {
		return nil, fmt.Errorf("decoding persisted session: %w", err)
	}
	return &session, nil
}

func (s *SessionStore) Save(ctx context.Context, session *Session) error {
	text, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	return s.store.SetItem(ctx, sessionKey, string(text))
}

func (s *SessionStore) Clear(ctx context.Context) error {
	return s.store.RemoveItem(ctx, sessionKey)
}
