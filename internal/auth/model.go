// File: internal/auth/model.go
package auth

import (
	"time"

	"account_agent/internal/identity"
	"account_agent/internal/profile"
)

// State is where the device's session currently stands.
type State string

const (
	StateSignedOut  State = "signed_out"
	StateSigningIn  State = "signing_in"
	StateSigningUp  State = "signing_up"
	StateSignedIn   State = "signed_in"
	StateSigningOut State = "signing_out"
)

// Reasons attached to session events.
const (
	ReasonRestored       = "restored"
	ReasonSignedUp       = "signed_up"
	ReasonSignedIn       = "signed_in"
	ReasonSignedOut      = "signed_out"
	ReasonProfileUpdated = "profile_updated"
	ReasonEmailUpdated   = "email_updated"
	ReasonAccountDeleted = "account_deleted"
	ReasonForcedSignOut  = "forced_sign_out"
	ReasonInProgress     = "in_progress"
	ReasonFailed         = "failed"
)

// Snapshot is a display-safe copy of the signed-in account. It is never used
// to authorize anything.
type Snapshot struct {
	UID           string  `json:"id"`
	Email         *string `json:"email"`
	DisplayName   *string `json:"displayName"`
	EmailVerified bool    `json:"emailVerified"`
	PhotoURL      *string `json:"photoURL"`
}

func snapshotOf(acct identity.Account) *Snapshot {
	return &Snapshot{
		UID:           acct.UID,
		Email:         acct.Email,
		DisplayName:   acct.DisplayName,
		EmailVerified: acct.EmailVerified,
		PhotoURL:      acct.PhotoURL,
	}
}

func (s *Snapshot) account() identity.Account {
	return identity.Account{
		UID:           s.UID,
		Email:         s.Email,
		DisplayName:   s.DisplayName,
		EmailVerified: s.EmailVerified,
		PhotoURL:      s.PhotoURL,
	}
}

// Event is published to subscribers on every session change.
type Event struct {
	Seq      uint64    `json:"seq"`
	State    State     `json:"state"`
	Snapshot *Snapshot `json:"snapshot,omitempty"`
	Reason   string    `json:"reason"`
	At       time.Time `json:"at"`
}

// Status is the manager's current state for callers that poll.
type Status struct {
	State    State     `json:"state"`
	Snapshot *Snapshot `json:"snapshot,omitempty"`
}

// PhaseStatus reports what happened to one half of a profile update.
type PhaseStatus string

const (
	PhaseApplied      PhaseStatus = "applied"
	PhaseSavedLocally PhaseStatus = "saved_locally"
	PhaseFailed       PhaseStatus = "failed"
	// PhaseSkipped means the update carried no fields for this phase.
	PhaseSkipped PhaseStatus = "skipped"
	// PhaseNotAttempted means the phase had fields but an earlier phase failed.
	PhaseNotAttempted PhaseStatus = "not_attempted"
)

// UpdateOutcome is the two-phase result of UpdateUserProfile. Nothing is
// rolled back; a caller that needs both halves to agree compensates itself.
type UpdateOutcome struct {
	Identity       PhaseStatus     `json:"identity"`
	Extension      PhaseStatus     `json:"extension"`
	IdentityError  string          `json:"identityError,omitempty"`
	ExtensionError string          `json:"extensionError,omitempty"`
	Profile        *profile.Merged `json:"profile,omitempty"`
}

// ProfileUpdate carries identity-owned fields alongside extension fields.
type ProfileUpdate struct {
	DisplayName *string `json:"displayName,omitempty"`
	PhotoURL    *string `json:"photoURL,omitempty"`
	profile.Fields
}

// SignupRequest defines the structure for signup requests.
type SignupRequest struct {
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	DisplayName *string `json:"displayName,omitempty"`
}

// LoginRequest defines the structure for login requests.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type PasswordResetRequest struct {
	Email string `json:"email"`
}

type UpdateEmailRequest struct {
	Email string `json:"email"`
}

type UpdatePasswordRequest struct {
	Password string `json:"password"`
}
