package firebase

import (
	"context"
	"errors"
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockAdminAuth struct {
	mock.Mock
}

func (m *MockAdminAuth) VerifyIDTokenAndCheckRevoked(ctx context.Context, idToken string) (*auth.Token, error) {
	args := m.Called(ctx, idToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Token), args.Error(1)
}

func (m *MockAdminAuth) RevokeRefreshTokens(ctx context.Context, uid string) error {
	return m.Called(ctx, uid).Error(0)
}

func (m *MockAdminAuth) GetUser(ctx context.Context, uid string) (*auth.UserRecord, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.UserRecord), args.Error(1)
}

func (m *MockAdminAuth) UpdateUser(ctx context.Context, uid string, update *auth.UserToUpdate) (*auth.UserRecord, error) {
	args := m.Called(ctx, uid, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.UserRecord), args.Error(1)
}

func (m *MockAdminAuth) DeleteUser(ctx context.Context, uid string) error {
	return m.Called(ctx, uid).Error(0)
}

func TestVerifyIDToken(t *testing.T) {
	admin := new(MockAdminAuth)
	svc := &FirebaseService{authClient: admin, logger: zap.NewNop()}

	_, err := svc.VerifyIDToken(context.Background(), "")
	assert.Error(t, err)
	admin.AssertNotCalled(t, "VerifyIDTokenAndCheckRevoked", mock.Anything, mock.Anything)

	admin.On("VerifyIDTokenAndCheckRevoked", mock.Anything, "good").Return(&auth.Token{UID: "uid-1"}, nil).Once()
	token, err := svc.VerifyIDToken(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "uid-1", token.UID)

	revoked := errors.New("ID token has been revoked")
	admin.On("VerifyIDTokenAndCheckRevoked", mock.Anything, "old").Return(nil, revoked).Once()
	_, err = svc.VerifyIDToken(context.Background(), "old")
	assert.ErrorIs(t, err, revoked)
	admin.AssertExpectations(t)
}

func TestUserOperations(t *testing.T) {
	admin := new(MockAdminAuth)
	svc := &FirebaseService{authClient: admin, logger: zap.NewNop()}
	ctx := context.Background()

	admin.On("RevokeRefreshTokens", mock.Anything, "uid-1").Return(nil).Once()
	assert.NoError(t, svc.RevokeRefreshTokens(ctx, "uid-1"))

	update := (&auth.UserToUpdate{}).DisplayName("Ann")
	admin.On("UpdateUser", mock.Anything, "uid-1", update).Return(nil, errors.New("quota")).Once()
	_, err := svc.UpdateUser(ctx, "uid-1", update)
	assert.Error(t, err)

	admin.On("DeleteUser", mock.Anything, "uid-1").Return(nil).Once()
	assert.NoError(t, svc.DeleteUser(ctx, "uid-1"))

	admin.AssertExpectations(t)
}
