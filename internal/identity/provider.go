// File: internal/identity/provider.go
package identity

import "context"

// Provider is the identity provider contract the auth manager relies on.
// Every error is a *common.ServiceError carrying a closed kind.
type Provider interface {
	CreateAccount(ctx context.Context, email, password string) (*SignInResult, error)
	SignIn(ctx context.Context, email, password string) (*SignInResult, error)
	SignOut(ctx context.Context, uid string) error
	SendPasswordReset(ctx context.Context, email string) error
	UpdateProfile(ctx context.Context, uid string, changes ProfileChanges) (*Account, error)
	UpdateEmail(ctx context.Context, uid, email string) (*Account, error)
	UpdatePassword(ctx context.Context, uid, password string) error
	DeleteAccount(ctx context.Context, uid string) error
	// CurrentAccount checks a persisted session against the provider and
	// returns the live account behind it.
	CurrentAccount(ctx context.Context, session *Session) (*Account, error)
}
