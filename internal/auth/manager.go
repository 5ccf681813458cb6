// File: internal/auth/manager.go
package auth

import (
	"context"
	"sync"
	"time"

	"account_agent/internal/cache"
	"account_agent/internal/common"
	"account_agent/internal/identity"
	"account_agent/internal/profile"
	"account_agent/internal/retry"
	"account_agent/internal/validation"

	"go.uber.org/zap"
)

const (
	MsgSignedUp              = "Account created"
	MsgDisplayNameNotSaved   = "Account created, but your display name could not be saved. You can set it from your profile."
	MsgSignedIn              = "Signed in"
	MsgSignedOut             = "Signed out"
	MsgResetSent             = "Password reset email sent. Check your inbox."
	MsgNoChanges             = "No changes to save"
	MsgProfileUpdated        = "Profile updated"
	MsgProfileUpdatedLocally = "Profile updated. Some changes are saved on this device and will sync when your connection is restored."
	MsgEmailUpdated          = "Email updated"
	MsgPasswordUpdated       = "Password updated"
	MsgAccountDeleted        = "Account deleted"
	MsgOfflineSnapshot       = "Showing your last known account details. Check your connection to refresh them."
)

// Manager owns the device's session: it validates input before any provider
// call, runs provider calls through the retrier and keeps the session
// snapshot cached. Every operation reports through common.Result.
type Manager struct {
	provider identity.Provider
	profiles profile.Service
	sessions *identity.SessionStore
	cache    *cache.Cache
	retrier  *retry.Retrier
	broker   *Broker
	now      func() time.Time
	logger   *zap.Logger

	mu      sync.RWMutex
	state   State
	session *identity.Session
	account *identity.Account
	seq     uint64
}

func NewManager(
	provider identity.Provider,
	profiles profile.Service,
	sessions *identity.SessionStore,
	cache *cache.Cache,
	retrier *retry.Retrier,
	broker *Broker,
	logger *zap.Logger,
) *Manager {
	return &Manager{
		provider: provider,
		profiles: profiles,
		sessions: sessions,
		cache:    cache,
		retrier:  retrier,
		broker:   broker,
		now:      time.Now,
		logger:   logger.Named("auth"),
		state:    StateSignedOut,
	}
}

func snapshotKey(uid string) string { return cache.Key(cache.SessionPrefix, uid) }

func invalid[T any](r validation.Result) common.Result[T] {
	return common.Fail[T](common.NewValidationError(r.Message))
}

// Restore decides the initial state from the session persisted on the device.
// A provider that cannot be reached leaves the user signed in; one that no
// longer knows the user signs them out.
func (m *Manager) Restore(ctx context.Context) common.Result[*Snapshot] {
	session, err := m.sessions.Load(ctx)
	if err != nil {
		m.logger.Error("Failed to read persisted session, starting signed out", zap.Error(err))
	}
	if session == nil {
		m.transition(StateSignedOut, ReasonRestored)
		return common.OK[*Snapshot](nil, "")
	}

	logger := m.logger.With(zap.String("uid", session.UID))
	acct, err := retry.Do(ctx, m.retrier, "auth.restore", func(ctx context.Context) (*identity.Account, error) {
		return m.provider.CurrentAccount(ctx, session)
	})
	if err == nil {
		m.establish(ctx, *session, *acct, ReasonRestored)
		logger.Info("Session restored")
		return common.OK(snapshotOf(*acct), "")
	}
	if identity.ForcesSignOut(err) {
		logger.Warn("Persisted session is no longer valid, signing out", zap.Error(err))
		m.clear(ctx, session.UID, ReasonForcedSignOut)
		return common.Fail[*Snapshot](err)
	}

	fallback := identity.Account{UID: session.UID}
	var snap Snapshot
	if m.cache.Get(ctx, snapshotKey(session.UID), &snap) {
		fallback = snap.account()
	}
	logger.Warn("Could not confirm persisted session, keeping it", zap.Error(err))
	m.commit(*session, fallback, ReasonRestored)
	return common.OK(snapshotOf(fallback), MsgOfflineSnapshot)
}

func (m *Manager) Signup(ctx context.Context, email, password string, displayName *string) common.Result[*identity.Account] {
	email = validation.Sanitize(email)
	if r := validation.ValidateEmail(email); !r.Valid {
		return invalid[*identity.Account](r)
	}
	if r := validation.ValidatePassword(password); !r.Valid {
		return invalid[*identity.Account](r)
	}
	var name *string
	if displayName != nil {
		if n := validation.Sanitize(*displayName); n != "" {
			if r := validation.ValidateMaxLength(n, validation.MaxNameLength, "Display name"); !r.Valid {
				return invalid[*identity.Account](r)
			}
			name = &n
		}
	}

	prev := m.begin(StateSigningUp)
	res, err := retry.Do(ctx, m.retrier, "auth.signup", func(ctx context.Context) (*identity.SignInResult, error) {
		return m.provider.CreateAccount(ctx, email, password)
	})
	if err != nil {
		m.logger.Info("Signup failed", zap.String("code", common.CodeOf(err)), zap.Error(err))
		m.transition(prev, ReasonFailed)
		return common.Fail[*identity.Account](err)
	}

	acct := res.Account
	message := MsgSignedUp
	if name != nil {
		updated, err := retry.Do(ctx, m.retrier, "auth.setDisplayName", func(ctx context.Context) (*identity.Account, error) {
			return m.provider.UpdateProfile(ctx, acct.UID, identity.ProfileChanges{DisplayName: name})
		})
		if err != nil {
			m.logger.Warn("Account created but display name was not applied", zap.String("uid", acct.UID), zap.Error(err))
			message = MsgDisplayNameNotSaved
		} else {
			acct = *updated
		}
	}

	m.establish(ctx, res.Session, acct, ReasonSignedUp)
	m.logger.Info("User signed up", zap.String("uid", acct.UID))
	return common.OK(&acct, message)
}

func (m *Manager) Login(ctx context.Context, email, password string) common.Result[*identity.Account] {
	email = validation.Sanitize(email)
	if r := validation.ValidateEmail(email); !r.Valid {
		return invalid[*identity.Account](r)
	}
	if password == "" {
		return invalid[*identity.Account](validation.ValidateRequired(password, "Password"))
	}

	prev := m.begin(StateSigningIn)
	res, err := retry.Do(ctx, m.retrier, "auth.login", func(ctx context.Context) (*identity.SignInResult, error) {
		return m.provider.SignIn(ctx, email, password)
	})
	if err != nil {
		m.logger.Info("Login failed", zap.String("code", common.CodeOf(err)), zap.Error(err))
		m.transition(prev, ReasonFailed)
		return common.Fail[*identity.Account](err)
	}

	m.establish(ctx, res.Session, res.Account, ReasonSignedIn)
	m.logger.Info("User signed in", zap.String("uid", res.Account.UID))
	acct := res.Account
	return common.OK(&acct, MsgSignedIn)
}

// Logout revokes the session with the provider. If that fails the user stays signed in.
func (m *Manager) Logout(ctx context.Context) common.Result[struct{}] {
	uid, _, ok := m.current()
	if !ok {
		return common.OK(struct{}{}, MsgSignedOut)
	}

	m.begin(StateSigningOut)
	err := m.retrier.Run(ctx, "auth.logout", func(ctx context.Context) error {
		return m.provider.SignOut(ctx, uid)
	})
	if err != nil && !identity.ForcesSignOut(err) {
		m.logger.Warn("Sign-out failed, session kept", zap.String("uid", uid), zap.Error(err))
		m.transition(StateSignedIn, ReasonFailed)
		return common.Fail[struct{}](err)
	}

	m.clear(ctx, uid, ReasonSignedOut)
	m.logger.Info("User signed out", zap.String("uid", uid))
	return common.OK(struct{}{}, MsgSignedOut)
}

func (m *Manager) SendPasswordResetEmail(ctx context.Context, email string) common.Result[struct{}] {
	email = validation.Sanitize(email)
	if r := validation.ValidateEmail(email); !r.Valid {
		return invalid[struct{}](r)
	}
	err := m.retrier.Run(ctx, "auth.passwordReset", func(ctx context.Context) error {
		return m.provider.SendPasswordReset(ctx, email)
	})
	if err != nil {
		m.logger.Info("Password reset request failed", zap.String("code", common.CodeOf(err)), zap.Error(err))
		return common.Fail[struct{}](err)
	}
	return common.OK(struct{}{}, MsgResetSent)
}

// UpdateUserProfile applies identity-owned fields, then extension fields, in
// that order. The outcome reports each phase; the call succeeds only when
// every requested phase did.
func (m *Manager) UpdateUserProfile(ctx context.Context, upd ProfileUpdate) common.Result[*UpdateOutcome] {
	uid, acct, ok := m.current()
	if !ok {
		return common.Fail[*UpdateOutcome](common.ErrNotAuthenticated)
	}
	changes, fields, verr := sanitizeUpdate(upd)
	if verr != nil {
		return invalid[*UpdateOutcome](*verr)
	}

	out := &UpdateOutcome{Identity: PhaseSkipped, Extension: PhaseSkipped}
	if changes.IsEmpty() && fields.IsEmpty() {
		return common.OK(out, MsgNoChanges)
	}
	logger := m.logger.With(zap.String("uid", uid))

	if !changes.IsEmpty() {
		updated, err := retry.Do(ctx, m.retrier, "auth.updateProfile", func(ctx context.Context) (*identity.Account, error) {
			return m.provider.UpdateProfile(ctx, uid, changes)
		})
		if err != nil {
			logger.Warn("Identity profile update failed", zap.Error(err))
			out.Identity = PhaseFailed
			out.IdentityError = common.UserMessage(err)
			if !fields.IsEmpty() {
				out.Extension = PhaseNotAttempted
			}
			m.providerFailed(ctx, uid, err)
			res := common.Fail[*UpdateOutcome](err)
			res.Data = out
			return res
		}
		acct = *updated
		out.Identity = PhaseApplied
		m.updateAccount(ctx, acct, ReasonProfileUpdated)
	}

	message := MsgProfileUpdated
	if !fields.IsEmpty() {
		saved := m.profiles.Save(ctx, uid, fields)
		if !saved.Success {
			if out.Identity == PhaseApplied {
				logger.Warn("Identity fields updated but extension fields failed; no rollback", zap.String("code", saved.Code))
			}
			out.Extension = PhaseFailed
			out.ExtensionError = saved.Error
			res := common.Carry[*UpdateOutcome](saved)
			res.Data = out
			return res
		}
		out.Extension = PhaseApplied
		if saved.Pending {
			out.Extension = PhaseSavedLocally
			message = MsgProfileUpdatedLocally
		}
		merged := profile.Merge(acct, saved.Data)
		out.Profile = &merged
	}

	m.cache.Put(ctx, snapshotKey(uid), snapshotOf(acct))
	res := common.OK(out, message)
	res.Pending = out.Extension == PhaseSavedLocally
	return res
}

func (m *Manager) UpdateUserEmail(ctx context.Context, email string) common.Result[*identity.Account] {
	uid, _, ok := m.current()
	if !ok {
		return common.Fail[*identity.Account](common.ErrNotAuthenticated)
	}
	email = validation.Sanitize(email)
	if r := validation.ValidateEmail(email); !r.Valid {
		return invalid[*identity.Account](r)
	}

	acct, err := retry.Do(ctx, m.retrier, "auth.updateEmail", func(ctx context.Context) (*identity.Account, error) {
		return m.provider.UpdateEmail(ctx, uid, email)
	})
	if err != nil {
		m.logger.Warn("Email update failed", zap.String("uid", uid), zap.Error(err))
		m.providerFailed(ctx, uid, err)
		return common.Fail[*identity.Account](err)
	}
	m.updateAccount(ctx, *acct, ReasonEmailUpdated)
	return common.OK(acct, MsgEmailUpdated)
}

func (m *Manager) UpdateUserPassword(ctx context.Context, password string) common.Result[struct{}] {
	uid, _, ok := m.current()
	if !ok {
		return common.Fail[struct{}](common.ErrNotAuthenticated)
	}
	if r := validation.ValidatePassword(password); !r.Valid {
		return invalid[struct{}](r)
	}

	err := m.retrier.Run(ctx, "auth.updatePassword", func(ctx context.Context) error {
		return m.provider.UpdatePassword(ctx, uid, password)
	})
	if err != nil {
		m.logger.Warn("Password update failed", zap.String("uid", uid), zap.Error(err))
		m.providerFailed(ctx, uid, err)
		return common.Fail[struct{}](err)
	}
	return common.OK(struct{}{}, MsgPasswordUpdated)
}

// DeleteUserAccount deletes the identity account, then soft-deletes the
// profile document and forgets everything held locally for the user.
func (m *Manager) DeleteUserAccount(ctx context.Context) common.Result[struct{}] {
	uid, _, ok := m.current()
	if !ok {
		return common.Fail[struct{}](common.ErrNotAuthenticated)
	}

	err := m.retrier.Run(ctx, "auth.deleteAccount", func(ctx context.Context) error {
		return m.provider.DeleteAccount(ctx, uid)
	})
	if err != nil && common.CodeOf(err) != common.CodeUserNotFound {
		m.logger.Warn("Account deletion failed", zap.String("uid", uid), zap.Error(err))
		return common.Fail[struct{}](err)
	}

	if res := m.profiles.Delete(ctx, uid); !res.Success {
		m.logger.Warn("Account deleted but profile document was not marked deleted",
			zap.String("uid", uid), zap.String("code", res.Code))
	}
	m.clear(ctx, uid, ReasonAccountDeleted)
	m.logger.Info("Account deleted", zap.String("uid", uid))
	return common.OK(struct{}{}, MsgAccountDeleted)
}

// Profile returns the signed-in user's account merged with their profile document.
func (m *Manager) Profile(ctx context.Context) common.Result[*profile.Merged] {
	uid, acct, ok := m.current()
	if !ok {
		return common.Fail[*profile.Merged](common.ErrNotAuthenticated)
	}
	res := m.profiles.Get(ctx, uid)
	if !res.Success {
		return common.Carry[*profile.Merged](res)
	}
	merged := profile.Merge(acct, res.Data)
	return common.OK(&merged, res.Message)
}

func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Status{State: m.state, Snapshot: m.snapshotLocked()}
}

// SignedInUID reports the UID of the signed-in user, if any.
func (m *Manager) SignedInUID() (string, bool) {
	uid, _, ok := m.current()
	return uid, ok
}

// Subscribe delivers every later session event until the returned func is called.
func (m *Manager) Subscribe() (<-chan Event, func()) {
	return m.broker.Subscribe()
}

func (m *Manager) Close() {
	m.broker.Close()
}

func (m *Manager) current() (string, identity.Account, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil || m.account == nil {
		return "", identity.Account{}, false
	}
	return m.session.UID, *m.account, true
}

func (m *Manager) snapshotLocked() *Snapshot {
	if m.account == nil {
		return nil
	}
	return snapshotOf(*m.account)
}

// begin moves into a transitional state and returns the state to restore on failure.
func (m *Manager) begin(state State) State {
	m.mu.Lock()
	prev := m.state
	m.state = state
	m.publishLocked(ReasonInProgress)
	m.mu.Unlock()
	return prev
}

func (m *Manager) transition(state State, reason string) {
	m.mu.Lock()
	m.state = state
	m.publishLocked(reason)
	m.mu.Unlock()
}

// publishLocked stamps the next sequence number and publishes while m.mu is
// held, so subscribers see events in the order the state changed.
func (m *Manager) publishLocked(reason string) {
	m.seq++
	m.broker.Publish(Event{
		Seq:      m.seq,
		State:    m.state,
		Snapshot: m.snapshotLocked(),
		Reason:   reason,
		At:       m.now(),
	})
}

// establish persists a fresh session and snapshot, then signs the user in.
func (m *Manager) establish(ctx context.Context, session identity.Session, acct identity.Account, reason string) {
	if err := m.sessions.Save(ctx, &session); err != nil {
		m.logger.Error("Failed to persist session; it will not survive a restart", zap.String("uid", acct.UID), zap.Error(err))
	}
	m.cache.Put(ctx, snapshotKey(acct.UID), snapshotOf(acct))
	m.commit(session, acct, reason)
}

func (m *Manager) commit(session identity.Session, acct identity.Account, reason string) {
	m.mu.Lock()
	m.state = StateSignedIn
	m.session = &session
	m.account = &acct
	m.publishLocked(reason)
	m.mu.Unlock()
}

func (m *Manager) updateAccount(ctx context.Context, acct identity.Account, reason string) {
	m.cache.Put(ctx, snapshotKey(acct.UID), snapshotOf(acct))
	m.mu.Lock()
	if m.session == nil || m.session.UID != acct.UID {
		// Signed out while the update was in flight.
		m.mu.Unlock()
		return
	}
	m.account = &acct
	m.publishLocked(reason)
	m.mu.Unlock()
}

// clear forgets the session on this device and publishes the sign-out.
func (m *Manager) clear(ctx context.Context, uid, reason string) {
	if err := m.sessions.Clear(ctx); err != nil {
		m.logger.Error("Failed to remove persisted session", zap.String("uid", uid), zap.Error(err))
	}
	m.cache.Invalidate(ctx, snapshotKey(uid))

	m.mu.Lock()
	m.state = StateSignedOut
	m.session = nil
	m.account = nil
	m.publishLocked(reason)
	m.mu.Unlock()
}

// providerFailed signs the user out when the provider no longer accepts them.
func (m *Manager) providerFailed(ctx context.Context, uid string, err error) {
	if identity.ForcesSignOut(err) {
		m.logger.Warn("Provider rejected the signed-in user, signing out", zap.String("uid", uid), zap.Error(err))
		m.clear(ctx, uid, ReasonForcedSignOut)
	}
}

// sanitizeUpdate cleans every provided field and returns the first rule it breaks.
func sanitizeUpdate(u ProfileUpdate) (identity.ProfileChanges, profile.Fields, *validation.Result) {
	clean := func(p *string) *string {
		if p == nil {
			return nil
		}
		s := validation.Sanitize(*p)
		return &s
	}

	changes := identity.ProfileChanges{
		DisplayName: clean(u.DisplayName),
		PhotoURL:    clean(u.PhotoURL),
	}
	if n := changes.DisplayName; n != nil {
		if r := validation.ValidateRequired(*n, "Display name"); !r.Valid {
			return changes, u.Fields, &r
		}
		if r := validation.ValidateMaxLength(*n, validation.MaxNameLength, "Display name"); !r.Valid {
			return changes, u.Fields, &r
		}
	}
	fields, verr := u.Fields.Sanitize()
	return changes, fields, verr
}
