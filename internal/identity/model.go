// File: internal/identity/model.go
package identity

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Account is the identity provider's view of a user.
type Account struct {
	UID           string  `json:"id"`
	Email         *string `json:"email"`
	DisplayName   *string `json:"displayName"`
	EmailVerified bool    `json:"emailVerified"`
	PhotoURL      *string `json:"photoURL"`
	PhoneNumber   *string `json:"phoneNumber"`
}

// Session holds the provider credentials of the signed-in user on this device.
type Session struct {
	UID          string    `json:"uid"`
	IDToken      string    `json:"idToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// SignInResult is what the provider returns after sign-up or sign-in.
type SignInResult struct {
	Session Session
	Account Account
}

// ProfileChanges are the identity-owned fields a user may edit in place.
// Nil fields are left unchanged.
type ProfileChanges struct {
	DisplayName *string
	PhotoURL    *string
}

func (c ProfileChanges) IsEmpty() bool {
	return c.DisplayName == nil && c.PhotoURL == nil
}

// tokenExpiry reads exp from an ID token without verifying it. The token came
// straight from the provider, so only its lifetime is of interest here.
func tokenExpiry(idToken string, fallback time.Time) time.Time {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil || claims.ExpiresAt == nil {
		return fallback
	}
	return claims.ExpiresAt.Time
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
