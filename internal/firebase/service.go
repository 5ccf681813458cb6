// File: internal/firebase/service.go
package firebase

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
	"google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"

	"account_agent/internal/config"
)

// FirebaseService owns the clients the agent needs from the Firebase project:
// the Admin SDK auth client, the Identity Toolkit REST client for password
// flows the Admin SDK cannot perform, and a lazily opened Firestore client.
type FirebaseService struct {
	app        *firebase.App
	authClient adminAuth
	toolkit    *identitytoolkit.Service
	logger     *zap.Logger

	fsOnce   sync.Once
	fsClient *firestore.Client
	fsErr    error
}

// adminAuth is the part of *auth.Client the agent calls.
type adminAuth interface {
	VerifyIDTokenAndCheckRevoked(ctx context.Context, idToken string) (*auth.Token, error)
	RevokeRefreshTokens(ctx context.Context, uid string) error
	GetUser(ctx context.Context, uid string) (*auth.UserRecord, error)
	UpdateUser(ctx context.Context, uid string, user *auth.UserToUpdate) (*auth.UserRecord, error)
	DeleteUser(ctx context.Context, uid string) error
}

var _ adminAuth = (*auth.Client)(nil)

// NewFirebaseService initializes the Firebase Admin SDK and the Identity Toolkit client.
func NewFirebaseService(cfg *config.Config, logger *zap.Logger) (*FirebaseService, error) {
	logger = logger.Named("firebase")
	if cfg.FirebaseServiceAccountKeyPath == "" {
		logger.Error("Firebase service account key path is not configured.")
		return nil, fmt.Errorf("firebase service account key path is required")
	}

	cleanPath := filepath.Clean(cfg.FirebaseServiceAccountKeyPath)
	opt := option.WithCredentialsFile(cleanPath)

	var conf *firebase.Config
	if cfg.FirebaseProjectID != "" {
		conf = &firebase.Config{ProjectID: cfg.FirebaseProjectID}
	}
	// A nil config lets the SDK infer the project from the credentials.
	app, err := firebase.NewApp(context.Background(), conf, opt)
	if err != nil {
		logger.Error("Failed to initialize Firebase Admin SDK app", zap.Error(err), zap.String("keyPath", cleanPath))
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	authClient, err := app.Auth(context.Background())
	if err != nil {
		logger.Error("Failed to get Firebase Auth client", zap.Error(err))
		return nil, fmt.Errorf("error getting Firebase Auth client: %w", err)
	}

	toolkit, err := identitytoolkit.NewService(context.Background(), option.WithAPIKey(cfg.FirebaseWebAPIKey))
	if err != nil {
		logger.Error("Failed to create Identity Toolkit client", zap.Error(err))
		return nil, fmt.Errorf("error creating Identity Toolkit client: %w", err)
	}

	logger.Info("Firebase Admin SDK initialized successfully.")
	return &FirebaseService{
		app:        app,
		authClient: authClient,
		toolkit:    toolkit,
		logger:     logger,
	}, nil
}

func (s *FirebaseService) Toolkit() *identitytoolkit.Service { return s.toolkit }

// Firestore opens the Firestore client on first use; later calls share it.
func (s *FirebaseService) Firestore(ctx context.Context) (*firestore.Client, error) {
	s.fsOnce.Do(func() {
		s.fsClient, s.fsErr = s.app.Firestore(ctx)
		if s.fsErr != nil {
			s.logger.Error("Failed to open Firestore client", zap.Error(s.fsErr))
			s.fsErr = fmt.Errorf("error opening Firestore client: %w", s.fsErr)
		}
	})
	return s.fsClient, s.fsErr
}

// VerifyIDToken verifies a Firebase ID token and checks it has not been revoked.
func (s *FirebaseService) VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error) {
	if idToken == "" {
		return nil, fmt.Errorf("ID token must not be empty")
	}

	token, err := s.authClient.VerifyIDTokenAndCheckRevoked(ctx, idToken)
	if err != nil {
		s.logger.Debug("Firebase ID token verification failed", zap.Error(err))
		return nil, err
	}

	s.logger.Debug("Firebase ID token verified successfully", zap.String("uid", token.UID))
	return token, nil
}

// RevokeRefreshTokens revokes all refresh tokens for a given user.
func (s *FirebaseService) RevokeRefreshTokens(ctx context.Context, uid string) error {
	if err := s.authClient.RevokeRefreshTokens(ctx, uid); err != nil {
		s.logger.Warn("Failed to revoke refresh tokens", zap.Error(err), zap.String("uid", uid))
		return err
	}
	s.logger.Info("Revoked refresh tokens for user", zap.String("uid", uid))
	return nil
}

func (s *FirebaseService) GetUser(ctx context.Context, uid string) (*auth.UserRecord, error) {
	return s.authClient.GetUser(ctx, uid)
}

func (s *FirebaseService) UpdateUser(ctx context.Context, uid string, update *auth.UserToUpdate) (*auth.UserRecord, error) {
	record, err := s.authClient.UpdateUser(ctx, uid, update)
	if err != nil {
		s.logger.Warn("Failed to update user", zap.Error(err), zap.String("uid", uid))
		return nil, err
	}
	return record, nil
}

func (s *FirebaseService) DeleteUser(ctx context.Context, uid string) error {
	if err := s.authClient.DeleteUser(ctx, uid); err != nil {
		s.logger.Warn("Failed to delete user", zap.Error(err), zap.String("uid", uid))
		return err
	}
	s.logger.Info("Deleted user", zap.String("uid", uid))
	return nil
}

// Close releases the Firestore client if it was opened.
func (s *FirebaseService) Close() {
	if s.fsClient != nil {
		if err := s.fsClient.Close(); err != nil {
			s.logger.Error("Error closing Firestore client", zap.Error(err))
		}
	}
}
