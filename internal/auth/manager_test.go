package auth

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"account_agent/internal/cache"
	"account_agent/internal/common"
	"account_agent/internal/config"
	"account_agent/internal/identity"
	"account_agent/internal/platform/database"
	"account_agent/internal/profile"
	"account_agent/internal/retry"
	"account_agent/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockProvider is a mock type for identity.Provider
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) CreateAccount(ctx context.Context, email, password string) (*identity.SignInResult, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.SignInResult), args.Error(1)
}

func (m *MockProvider) SignIn(ctx context.Context, email, password string) (*identity.SignInResult, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.SignInResult), args.Error(1)
}

func (m *MockProvider) SignOut(ctx context.Context, uid string) error {
	args := m.Called(ctx, uid)
	return args.Error(0)
}

func (m *MockProvider) SendPasswordReset(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *MockProvider) UpdateProfile(ctx context.Context, uid string, changes identity.ProfileChanges) (*identity.Account, error) {
	args := m.Called(ctx, uid, changes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Account), args.Error(1)
}

func (m *MockProvider) UpdateEmail(ctx context.Context, uid, email string) (*identity.Account, error) {
	args := m.Called(ctx, uid, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Account), args.Error(1)
}

func (m *MockProvider) UpdatePassword(ctx context.Context, uid, password string) error {
	args := m.Called(ctx, uid, password)
	return args.Error(0)
}

func (m *MockProvider) DeleteAccount(ctx context.Context, uid string) error {
	args := m.Called(ctx, uid)
	return args.Error(0)
}

func (m *MockProvider) CurrentAccount(ctx context.Context, session *identity.Session) (*identity.Account, error) {
	args := m.Called(ctx, session)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Account), args.Error(1)
}

// memDocStore is an in-memory document store that can be switched offline.
type memDocStore struct {
	mu      sync.Mutex
	docs    map[string]map[string]interface{}
	offline bool
	reject  error
}

var errOffline = common.NewTransientError(common.CodeUnavailable, errors.New("connection refused"))

func newMemDocStore() *memDocStore {
	return &memDocStore{docs: make(map[string]map[string]interface{})}
}

func (s *memDocStore) fail() error {
	if s.offline {
		return errOffline
	}
	return s.reject
}

func (s *memDocStore) Get(_ context.Context, id string) (*profile.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return nil, err
	}
	data, ok := s.docs[id]
	if !ok {
		return nil, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var doc profile.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *memDocStore) Exists(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return false, err
	}
	_, ok := s.docs[id]
	return ok, nil
}

func (s *memDocStore) SetMerge(_ context.Context, id string, data map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return err
	}
	doc, ok := s.docs[id]
	if !ok {
		doc = make(map[string]interface{})
		s.docs[id] = doc
	}
	for k, v := range data {
		doc[k] = v
	}
	return nil
}

func (s *memDocStore) Update(_ context.Context, id string, data map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return err
	}
	doc, ok := s.docs[id]
	if !ok {
		return common.NewNotFoundError(errors.New("no document"))
	}
	for k, v := range data {
		doc[k] = v
	}
	return nil
}

type fixture struct {
	m        *Manager
	provider *MockProvider
	docs     *memDocStore
	sessions *identity.SessionStore
	cache    *cache.Cache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	nop := zap.NewNop()
	kv := storage.NewMemoryKeyValue()
	c := cache.New(kv, cache.DefaultTTL, nop)

	db, err := database.NewSQLiteMemory()
	require.NoError(t, err)
	outbox, err := profile.NewOutbox(db)
	require.NoError(t, err)

	r := retry.New(3, time.Millisecond, nop)
	docs := newMemDocStore()
	profiles := profile.NewService(docs, c, outbox, r, &config.Config{OutboxBatchSize: 10}, nop)
	provider := new(MockProvider)
	sessions := identity.NewSessionStore(kv)

	m := NewManager(provider, profiles, sessions, c, r, NewBroker(nop), nop)
	t.Cleanup(m.Close)
	return &fixture{m: m, provider: provider, docs: docs, sessions: sessions, cache: c}
}

func strPtr(s string) *string { return &s }

func testAccount() identity.Account {
	return identity.Account{UID: "uid-1", Email: strPtr("u@x.com"), EmailVerified: true}
}

func testSignIn() *identity.SignInResult {
	return &identity.SignInResult{
		Session: identity.Session{UID: "uid-1", IDToken: "id-token", RefreshToken: "refresh"},
		Account: testAccount(),
	}
}

func (f *fixture) signIn(t *testing.T) {
	t.Helper()
	f.provider.On("SignIn", mock.Anything, "u@x.com", "Abcdef12").Return(testSignIn(), nil).Once()
	res := f.m.Login(context.Background(), "u@x.com", "Abcdef12")
	require.True(t, res.Success, res.Error)
}

func TestSignupThenProfileMerge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.provider.On("CreateAccount", mock.Anything, "u@x.com", "Abcdef12").Return(testSignIn(), nil).Once()

	signup := f.m.Signup(ctx, "  u@x.com ", "Abcdef12", nil)
	require.True(t, signup.Success, signup.Error)
	assert.Equal(t, "u@x.com", *signup.Data.Email)
	assert.Equal(t, StateSignedIn, f.m.Status().State)

	persisted, err := f.sessions.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, persisted)
	assert.Equal(t, "uid-1", persisted.UID)

	update := f.m.UpdateUserProfile(ctx, ProfileUpdate{Fields: profile.Fields{Bio: strPtr("hi")}})
	require.True(t, update.Success, update.Error)
	assert.Equal(t, PhaseSkipped, update.Data.Identity)
	assert.Equal(t, PhaseApplied, update.Data.Extension)

	merged := f.m.Profile(ctx)
	require.True(t, merged.Success, merged.Error)
	assert.Equal(t, "hi", *merged.Data.Bio)
	assert.Equal(t, "u@x.com", *merged.Data.Email, "email comes from the identity account")
	_, stored := f.docs.docs["uid-1"]["email"]
	assert.False(t, stored, "email is never written to the profile document")
	f.provider.AssertExpectations(t)
}

func TestSignup_ValidationNeverCallsProvider(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := f.m.Signup(ctx, "not-an-email", "Abcdef12", nil)
	assert.False(t, res.Success)
	assert.Equal(t, common.KindValidation, res.Kind)
	assert.Equal(t, "Please enter a valid email address", res.Error)

	res = f.m.Signup(ctx, "u@x.com", "short1A", nil)
	assert.Equal(t, common.KindValidation, res.Kind)
	assert.Contains(t, res.Error, "at least 8")

	f.provider.AssertNotCalled(t, "CreateAccount", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, StateSignedOut, f.m.Status().State)
}

func TestSignup_AppliesDisplayName(t *testing.T) {
	f := newFixture(t)

	named := testAccount()
	named.DisplayName = strPtr("Ann Lee")
	f.provider.On("CreateAccount", mock.Anything, "u@x.com", "Abcdef12").Return(testSignIn(), nil).Once()
	f.provider.On("UpdateProfile", mock.Anything, "uid-1", mock.MatchedBy(func(c identity.ProfileChanges) bool {
		return c.DisplayName != nil && *c.DisplayName == "Ann Lee" && c.PhotoURL == nil
	})).Return(&named, nil).Once()

	res := f.m.Signup(context.Background(), "u@x.com", "Abcdef12", strPtr(" <Ann Lee> "))
	require.True(t, res.Success)
	assert.Equal(t, MsgSignedUp, res.Message)
	assert.Equal(t, "Ann Lee", *f.m.Status().Snapshot.DisplayName)
}

func TestSignup_DisplayNameFailureKeepsAccount(t *testing.T) {
	f := newFixture(t)

	f.provider.On("CreateAccount", mock.Anything, "u@x.com", "Abcdef12").Return(testSignIn(), nil).Once()
	f.provider.On("UpdateProfile", mock.Anything, "uid-1", mock.Anything).
		Return(nil, common.NewPermanentError(common.CodeInternal, errors.New("boom"))).Once()

	res := f.m.Signup(context.Background(), "u@x.com", "Abcdef12", strPtr("Ann"))
	require.True(t, res.Success)
	assert.Equal(t, MsgDisplayNameNotSaved, res.Message)
	assert.Equal(t, StateSignedIn, f.m.Status().State)
}

func TestLogin_WrongPasswordIsNotRetried(t *testing.T) {
	f := newFixture(t)

	f.provider.On("SignIn", mock.Anything, "u@x.com", "Wrong123").
		Return(nil, common.NewPermanentError(common.CodeWrongPassword, errors.New("INVALID_PASSWORD")))

	res := f.m.Login(context.Background(), "u@x.com", "Wrong123")
	assert.False(t, res.Success)
	assert.Equal(t, "Incorrect password. Please try again.", res.Error)
	assert.Equal(t, common.CodeWrongPassword, res.Code)
	assert.Equal(t, StateSignedOut, f.m.Status().State)
	f.provider.AssertNumberOfCalls(t, "SignIn", 1)
}

func TestLogin_TransientFailureIsRetried(t *testing.T) {
	f := newFixture(t)

	f.provider.On("SignIn", mock.Anything, "u@x.com", "Abcdef12").Return(nil, errOffline)

	res := f.m.Login(context.Background(), "u@x.com", "Abcdef12")
	assert.False(t, res.Success)
	assert.Equal(t, common.MsgConnection, res.Error)
	f.provider.AssertNumberOfCalls(t, "SignIn", 3)
}

func TestLogin_EmptyPassword(t *testing.T) {
	f := newFixture(t)
	res := f.m.Login(context.Background(), "u@x.com", "")
	assert.Equal(t, "Password is required", res.Error)
	f.provider.AssertNotCalled(t, "SignIn", mock.Anything, mock.Anything, mock.Anything)
}

func TestLogin_LegacyPasswordReachesProvider(t *testing.T) {
	f := newFixture(t)
	f.provider.On("SignIn", mock.Anything, "u@x.com", "abc").Return(testSignIn(), nil).Once()

	res := f.m.Login(context.Background(), "  u@x.com ", "abc")
	assert.True(t, res.Success, "strength rules apply at signup, not at login")
	f.provider.AssertExpectations(t)
}

func TestSubscribe_SeesLoginTransitions(t *testing.T) {
	f := newFixture(t)
	events, unsubscribe := f.m.Subscribe()
	defer unsubscribe()

	f.signIn(t)

	first := <-events
	assert.Equal(t, StateSigningIn, first.State)
	second := <-events
	assert.Equal(t, StateSignedIn, second.State)
	assert.Equal(t, ReasonSignedIn, second.Reason)
	require.NotNil(t, second.Snapshot)
	assert.Equal(t, "uid-1", second.Snapshot.UID)
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signIn(t)

	var snap Snapshot
	require.True(t, f.cache.Get(ctx, snapshotKey("uid-1"), &snap))

	f.provider.On("SignOut", mock.Anything, "uid-1").Return(errOffline).Times(3)
	res := f.m.Logout(ctx)
	assert.False(t, res.Success)
	assert.Equal(t, StateSignedIn, f.m.Status().State, "a failed sign-out keeps the session")

	f.provider.On("SignOut", mock.Anything, "uid-1").Return(nil).Once()
	res = f.m.Logout(ctx)
	assert.True(t, res.Success)
	assert.Equal(t, StateSignedOut, f.m.Status().State)
	assert.False(t, f.cache.Get(ctx, snapshotKey("uid-1"), &snap), "snapshot is invalidated, not left to expire")

	persisted, err := f.sessions.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, persisted)
}

func TestSendPasswordResetEmail(t *testing.T) {
	f := newFixture(t)

	res := f.m.SendPasswordResetEmail(context.Background(), "")
	assert.Equal(t, common.KindValidation, res.Kind)

	f.provider.On("SendPasswordReset", mock.Anything, "u@x.com").Return(nil).Once()
	res = f.m.SendPasswordResetEmail(context.Background(), "u@x.com")
	assert.True(t, res.Success)
	assert.Equal(t, MsgResetSent, res.Message)
}

func TestUpdateUserProfile_RequiresSession(t *testing.T) {
	f := newFixture(t)

	res := f.m.UpdateUserProfile(context.Background(), ProfileUpdate{DisplayName: strPtr("Ann")})
	assert.False(t, res.Success)
	assert.Equal(t, common.KindNotAuthenticated, res.Kind)
	f.provider.AssertNotCalled(t, "UpdateProfile", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateUserProfile_ValidatesBeforeAnyCall(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)

	res := f.m.UpdateUserProfile(context.Background(), ProfileUpdate{
		DisplayName: strPtr("Ann"),
		Fields:      profile.Fields{DateOfBirth: strPtr("2999-01-01")},
	})
	assert.Equal(t, common.KindValidation, res.Kind)
	assert.Contains(t, res.Error, "future")
	f.provider.AssertNotCalled(t, "UpdateProfile", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateUserProfile_OfflineSavesLocally(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signIn(t)
	f.docs.offline = true

	res := f.m.UpdateUserProfile(ctx, ProfileUpdate{Fields: profile.Fields{Bio: strPtr("x")}})
	require.True(t, res.Success, res.Error)
	assert.True(t, res.Pending)
	assert.Contains(t, res.Message, "saved on this device")
	assert.Equal(t, PhaseSavedLocally, res.Data.Extension)
	assert.Equal(t, "x", *res.Data.Profile.Bio)

	// The merged profile still comes from the local cache while offline.
	merged := f.m.Profile(ctx)
	require.True(t, merged.Success)
	assert.Contains(t, merged.Message, "cached")
	assert.Equal(t, "x", *merged.Data.Bio)
}

func TestUpdateUserProfile_BothPhasesApplied(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)

	renamed := testAccount()
	renamed.DisplayName = strPtr("Ann")
	f.provider.On("UpdateProfile", mock.Anything, "uid-1", mock.Anything).Return(&renamed, nil).Once()

	res := f.m.UpdateUserProfile(context.Background(), ProfileUpdate{
		DisplayName: strPtr("Ann"),
		Fields:      profile.Fields{PhoneNumber: strPtr("+1 (555) 123-4567")},
	})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, PhaseApplied, res.Data.Identity)
	assert.Equal(t, PhaseApplied, res.Data.Extension)
	assert.Equal(t, "Ann", *res.Data.Profile.DisplayName)
	assert.Equal(t, "+15551234567", *res.Data.Profile.PhoneNumber, "phone numbers are stored normalized")
}

func TestUpdateUserProfile_IdentityFailureStopsBeforeExtension(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)

	f.provider.On("UpdateProfile", mock.Anything, "uid-1", mock.Anything).
		Return(nil, common.NewPermanentError(common.CodeRequiresRecentLogin, errors.New("stale"))).Once()

	res := f.m.UpdateUserProfile(context.Background(), ProfileUpdate{
		DisplayName: strPtr("Ann"),
		Fields:      profile.Fields{Bio: strPtr("x")},
	})
	assert.False(t, res.Success)
	require.NotNil(t, res.Data)
	assert.Equal(t, PhaseFailed, res.Data.Identity)
	assert.Equal(t, PhaseNotAttempted, res.Data.Extension)
	assert.NotEmpty(t, res.Data.IdentityError)
	assert.Empty(t, f.docs.docs)
	assert.Equal(t, StateSignedIn, f.m.Status().State)
}

func TestUpdateUserProfile_ExtensionFailureAfterIdentityApplied(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	f.docs.reject = common.NewPermanentError(common.CodePermissionDenied, errors.New("rules"))

	renamed := testAccount()
	renamed.DisplayName = strPtr("Ann")
	f.provider.On("UpdateProfile", mock.Anything, "uid-1", mock.Anything).Return(&renamed, nil).Once()

	res := f.m.UpdateUserProfile(context.Background(), ProfileUpdate{
		DisplayName: strPtr("Ann"),
		Fields:      profile.Fields{Bio: strPtr("x")},
	})
	assert.False(t, res.Success)
	assert.Equal(t, common.CodePermissionDenied, res.Code)
	assert.Equal(t, PhaseApplied, res.Data.Identity)
	assert.Equal(t, PhaseFailed, res.Data.Extension)
	assert.Equal(t, "Ann", *f.m.Status().Snapshot.DisplayName, "identity change is not rolled back")
}

func TestUpdateUserProfile_NoChanges(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)

	res := f.m.UpdateUserProfile(context.Background(), ProfileUpdate{})
	assert.True(t, res.Success)
	assert.Equal(t, MsgNoChanges, res.Message)
}

func TestUpdateUserEmail_ForcedSignOut(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	events, unsubscribe := f.m.Subscribe()
	defer unsubscribe()

	f.provider.On("UpdateEmail", mock.Anything, "uid-1", "new@x.com").
		Return(nil, common.NewPermanentError(common.CodeUserDisabled, errors.New("USER_DISABLED"))).Once()

	res := f.m.UpdateUserEmail(context.Background(), "new@x.com")
	assert.False(t, res.Success)
	assert.Equal(t, StateSignedOut, f.m.Status().State)

	ev := <-events
	assert.Equal(t, ReasonForcedSignOut, ev.Reason)
	assert.Nil(t, ev.Snapshot)
}

func TestUpdateUserEmail_RefreshesSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signIn(t)

	updated := testAccount()
	updated.Email = strPtr("new@x.com")
	f.provider.On("UpdateEmail", mock.Anything, "uid-1", "new@x.com").Return(&updated, nil).Once()

	res := f.m.UpdateUserEmail(ctx, " new@x.com")
	require.True(t, res.Success)

	var snap Snapshot
	require.True(t, f.cache.Get(ctx, snapshotKey("uid-1"), &snap))
	assert.Equal(t, "new@x.com", *snap.Email)
}

func TestUpdateUserPassword(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)

	res := f.m.UpdateUserPassword(context.Background(), "nouppercase1")
	assert.Contains(t, res.Error, "uppercase")

	f.provider.On("UpdatePassword", mock.Anything, "uid-1", "Newpass12").Return(nil).Once()
	res = f.m.UpdateUserPassword(context.Background(), "Newpass12")
	assert.True(t, res.Success)
}

func TestDeleteUserAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signIn(t)
	require.True(t, f.m.UpdateUserProfile(ctx, ProfileUpdate{Fields: profile.Fields{Bio: strPtr("x")}}).Success)

	f.provider.On("DeleteAccount", mock.Anything, "uid-1").Return(nil).Once()
	res := f.m.DeleteUserAccount(ctx)
	require.True(t, res.Success)
	assert.Equal(t, StateSignedOut, f.m.Status().State)
	assert.Equal(t, true, f.docs.docs["uid-1"][profile.FieldDeleted])

	res = f.m.DeleteUserAccount(ctx)
	assert.Equal(t, common.KindNotAuthenticated, res.Kind)
}

func TestRestore(t *testing.T) {
	persisted := &identity.Session{UID: "uid-1", IDToken: "id-token"}

	t.Run("nobody signed in", func(t *testing.T) {
		f := newFixture(t)
		res := f.m.Restore(context.Background())
		assert.True(t, res.Success)
		assert.Nil(t, res.Data)
		assert.Equal(t, StateSignedOut, f.m.Status().State)
	})

	t.Run("valid session", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.sessions.Save(context.Background(), persisted))
		acct := testAccount()
		f.provider.On("CurrentAccount", mock.Anything, mock.Anything).Return(&acct, nil).Once()

		res := f.m.Restore(context.Background())
		require.True(t, res.Success)
		assert.Equal(t, StateSignedIn, f.m.Status().State)
		uid, ok := f.m.SignedInUID()
		assert.True(t, ok)
		assert.Equal(t, "uid-1", uid)
	})

	t.Run("disabled user is signed out", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.sessions.Save(context.Background(), persisted))
		f.provider.On("CurrentAccount", mock.Anything, mock.Anything).
			Return(nil, common.NewPermanentError(common.CodeUserDisabled, errors.New("disabled"))).Once()

		res := f.m.Restore(context.Background())
		assert.False(t, res.Success)
		assert.Equal(t, StateSignedOut, f.m.Status().State)
		loaded, err := f.sessions.Load(context.Background())
		require.NoError(t, err)
		assert.Nil(t, loaded)
	})

	t.Run("provider unreachable keeps the session", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		require.NoError(t, f.sessions.Save(ctx, persisted))
		f.cache.Put(ctx, snapshotKey("uid-1"), snapshotOf(testAccount()))
		f.provider.On("CurrentAccount", mock.Anything, mock.Anything).Return(nil, errOffline)

		res := f.m.Restore(ctx)
		require.True(t, res.Success)
		assert.Equal(t, MsgOfflineSnapshot, res.Message)
		assert.Equal(t, "u@x.com", *res.Data.Email)
		assert.Equal(t, StateSignedIn, f.m.Status().State)
		f.provider.AssertNumberOfCalls(t, "CurrentAccount", 3)
	})
}

func TestSanitizeUpdate(t *testing.T) {
	changes, fields, verr := sanitizeUpdate(ProfileUpdate{
		DisplayName: strPtr("  Ann<b> "),
		Fields: profile.Fields{
			Bio:       strPtr(" javascript:hello "),
			FirstName: strPtr(""),
		},
	})
	require.Nil(t, verr)
	assert.Equal(t, "Annb", *changes.DisplayName)
	assert.Equal(t, "hello", *fields.Bio)
	assert.Equal(t, "", *fields.FirstName, "an empty value clears the field")

	_, _, verr = sanitizeUpdate(ProfileUpdate{DisplayName: strPtr(" <> ")})
	require.NotNil(t, verr)
	assert.Equal(t, "Display name is required", verr.Message)

	_, _, verr = sanitizeUpdate(ProfileUpdate{Fields: profile.Fields{LastName: strPtr("L33t")}})
	require.NotNil(t, verr)
	assert.Contains(t, verr.Message, "Last name")
}

func TestEventsArriveInStateOrder(t *testing.T) {
	f := newFixture(t)
	events, unsubscribe := f.m.Subscribe()
	defer unsubscribe()

	const n = subscriberBuffer / 2
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		state := StateSigningIn
		if i%2 == 0 {
			state = StateSignedOut
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.m.transition(state, ReasonFailed)
		}()
	}
	wg.Wait()

	require.Len(t, events, n)
	var last Event
	for i := 1; i <= n; i++ {
		last = <-events
		assert.Equal(t, uint64(i), last.Seq)
	}
	assert.Equal(t, f.m.Status().State, last.State, "the last event matches the final state")
}
