// File: internal/identity/firebase_provider.go
package identity

import (
	"context"
	"errors"
	"time"

	"account_agent/internal/common"
	fb "account_agent/internal/firebase"

	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
	"google.golang.org/api/identitytoolkit/v3"
)

// AdminAuth is the slice of the Firebase Admin SDK the provider uses.
// *firebase.FirebaseService satisfies it.
type AdminAuth interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
	RevokeRefreshTokens(ctx context.Context, uid string) error
	GetUser(ctx context.Context, uid string) (*auth.UserRecord, error)
	UpdateUser(ctx context.Context, uid string, update *auth.UserToUpdate) (*auth.UserRecord, error)
	DeleteUser(ctx context.Context, uid string) error
}

// FirebaseProvider implements Provider with the Identity Toolkit REST API for
// password flows and the Admin SDK for everything keyed by UID.
type FirebaseProvider struct {
	admin   AdminAuth
	toolkit *identitytoolkit.Service
	now     func() time.Time
	logger  *zap.Logger
}

func NewFirebaseProvider(service *fb.FirebaseService, logger *zap.Logger) *FirebaseProvider {
	return newFirebaseProvider(service, service.Toolkit(), time.Now, logger)
}

func newFirebaseProvider(admin AdminAuth, toolkit *identitytoolkit.Service, now func() time.Time, logger *zap.Logger) *FirebaseProvider {
	return &FirebaseProvider{
		admin:   admin,
		toolkit: toolkit,
		now:     now,
		logger:  logger.Named("identity"),
	}
}

func (p *FirebaseProvider) CreateAccount(ctx context.Context, email, password string) (*SignInResult, error) {
	resp, err := p.toolkit.Relyingparty.SignupNewUser(&identitytoolkit.IdentitytoolkitRelyingpartySignupNewUserRequest{
		Email:    email,
		Password: password,
	}).Context(ctx).Do()
	if err != nil {
		return nil, translate(err)
	}

	p.logger.Info("Account created", zap.String("uid", resp.LocalId))
	return &SignInResult{
		Session: p.session(resp.LocalId, resp.IdToken, resp.RefreshToken, resp.ExpiresIn),
		Account: Account{
			UID:         resp.LocalId,
			Email:       optional(resp.Email),
			DisplayName: optional(resp.DisplayName),
		},
	}, nil
}

func (p *FirebaseProvider) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	resp, err := p.toolkit.Relyingparty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return nil, translate(err)
	}

	result := &SignInResult{
		Session: p.session(resp.LocalId, resp.IdToken, resp.RefreshToken, resp.ExpiresIn),
		Account: Account{
			UID:         resp.LocalId,
			Email:       optional(resp.Email),
			DisplayName: optional(resp.DisplayName),
			PhotoURL:    optional(resp.PhotoUrl),
		},
	}

	// The sign-in response lacks verification and phone fields; the admin record has them.
	record, err := p.admin.GetUser(ctx, resp.LocalId)
	if err != nil {
		p.logger.Warn("Signed in but could not load the full account record", zap.String("uid", resp.LocalId), zap.Error(err))
		return result, nil
	}
	result.Account = *accountFromRecord(record)
	return result, nil
}

func (p *FirebaseProvider) SignOut(ctx context.Context, uid string) error {
	return translate(p.admin.RevokeRefreshTokens(ctx, uid))
}

func (p *FirebaseProvider) SendPasswordReset(ctx context.Context, email string) error {
	_, err := p.toolkit.Relyingparty.GetOobConfirmationCode(&identitytoolkit.Relyingparty{
		RequestType: "PASSWORD_RESET",
		Email:       email,
	}).Context(ctx).Do()
	return translate(err)
}

func (p *FirebaseProvider) UpdateProfile(ctx context.Context, uid string, changes ProfileChanges) (*Account, error) {
	update := &auth.UserToUpdate{}
	if changes.DisplayName != nil {
		update = update.DisplayName(*changes.DisplayName)
	}
	if changes.PhotoURL != nil {
		update = update.PhotoURL(*changes.PhotoURL)
	}
	return p.update(ctx, uid, update)
}

func (p *FirebaseProvider) UpdateEmail(ctx context.Context, uid, email string) (*Account, error) {
	return p.update(ctx, uid, (&auth.UserToUpdate{}).Email(email))
}

func (p *FirebaseProvider) UpdatePassword(ctx context.Context, uid, password string) error {
	_, err := p.update(ctx, uid, (&auth.UserToUpdate{}).Password(password))
	return err
}

func (p *FirebaseProvider) DeleteAccount(ctx context.Context, uid string) error {
	return translate(p.admin.DeleteUser(ctx, uid))
}

// CurrentAccount verifies the persisted ID token (including revocation) and
// loads the live account record. An expired token is not fatal: the refresh
// token may still be good, so the admin record decides.
func (p *FirebaseProvider) CurrentAccount(ctx context.Context, session *Session) (*Account, error) {
	if session == nil || session.UID == "" {
		return nil, common.ErrNotAuthenticated
	}

	if session.IDToken != "" {
		token, err := p.admin.VerifyIDToken(ctx, session.IDToken)
		switch {
		case err == nil:
			if token.UID != session.UID {
				return nil, common.NewPermanentError(common.CodeInvalidCredential, errors.New("session token belongs to another user"))
			}
		case auth.IsIDTokenExpired(err):
			p.logger.Debug("Persisted ID token expired, checking the account record", zap.String("uid", session.UID))
		default:
			return nil, translate(err)
		}
	}

	record, err := p.admin.GetUser(ctx, session.UID)
	if err != nil {
		return nil, translate(err)
	}
	if record.Disabled {
		return nil, common.NewPermanentError(common.CodeUserDisabled, nil)
	}
	return accountFromRecord(record), nil
}

func (p *FirebaseProvider) update(ctx context.Context, uid string, update *auth.UserToUpdate) (*Account, error) {
	record, err := p.admin.UpdateUser(ctx, uid, update)
	if err != nil {
		return nil, translate(err)
	}
	return accountFromRecord(record), nil
}

func (p *FirebaseProvider) session(uid, idToken, refreshToken string, expiresIn int64) Session {
	fallback := p.now().Add(time.Duration(expiresIn) * time.Second)
	return Session{
		UID:          uid,
		IDToken:      idToken,
		RefreshToken: refreshToken,
		ExpiresAt:    tokenExpiry(idToken, fallback),
	}
}

func accountFromRecord(r *auth.UserRecord) *Account {
	return &Account{
		UID:           r.UID,
		Email:         optional(r.Email),
		DisplayName:   optional(r.DisplayName),
		EmailVerified: r.EmailVerified,
		PhotoURL:      optional(r.PhotoURL),
		PhoneNumber:   optional(r.PhoneNumber),
	}
}
