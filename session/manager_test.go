package session_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worknest/worknest-go/apierror"
	"github.com/worknest/worknest-go/identity"
	"github.com/worknest/worknest-go/session"
	"github.com/worknest/worknest-go/session/store"
	"github.com/worknest/worknest-go/session/store/storefakes"
	"github.com/worknest/worknest-go/users"
)

const (
	testEmail    = "john.doe@example.com"
	testPassword = "password123"
)

var testUser = users.User{
	ID:    "1",
	Email: testEmail,
	Role:  users.RoleUser,
}

// fakeIdentity scripts the identity API and counts calls so tests can assert
// exactly how many network round-trips an operation issued.
type fakeIdentity struct {
	loginResp   *identity.LoginResponse
	loginErr    error
	refreshResp *identity.Credentials
	refreshErr  error
	authorizeFn func(accessToken string) (*identity.AuthorizeResponse, error)

	loginCalls     int
	refreshCalls   int
	authorizeCalls int
	refreshTokens  []string
	accessTokens   []string
}

func (f *fakeIdentity) Login(_ context.Context, _ identity.LoginRequest) (*identity.LoginResponse, error) {
	f.loginCalls++
	return f.loginResp, f.loginErr
}

func (f *fakeIdentity) Refresh(_ context.Context, refreshToken string) (*identity.Credentials, error) {
	f.refreshCalls++
	f.refreshTokens = append(f.refreshTokens, refreshToken)
	return f.refreshResp, f.refreshErr
}

func (f *fakeIdentity) Authorize(_ context.Context, accessToken string) (*identity.AuthorizeResponse, error) {
	f.authorizeCalls++
	f.accessTokens = append(f.accessTokens, accessToken)
	return f.authorizeFn(accessToken)
}

func unauthorizedErr() error {
	return apierror.FromResponse(401, []byte(`{"message":"token rejected"}`))
}

func newManager(t *testing.T, api *fakeIdentity, st *storefakes.FakeStore) *session.Manager {
	t.Helper()
	m, err := session.NewManager(api, st)
	require.NoError(t, err)
	return m
}

func TestNewManager_Validation(t *testing.T) {
	_, err := session.NewManager(nil, storefakes.NewFakeStore())
	require.Error(t, err)

	_, err = session.NewManager(&fakeIdentity{}, nil)
	require.Error(t, err)
}

func TestNewManager_RestoresPersistedSession(t *testing.T) {
	st := storefakes.NewFakeStore()
	require.NoError(t, st.Set(store.KeyAccessToken, "t1"))
	userJSON, err := json.Marshal(testUser)
	require.NoError(t, err)
	require.NoError(t, st.Set(store.KeyUser, string(userJSON)))

	m := newManager(t, &fakeIdentity{}, st)

	assert.True(t, m.IsLoggedIn())
	require.NotNil(t, m.CurrentUser())
	assert.Equal(t, testEmail, m.CurrentUser().Email)
}

func TestLogin_Success(t *testing.T) {
	api := &fakeIdentity{
		loginResp: &identity.LoginResponse{
			Credentials: identity.Credentials{
				AccessToken:  "x",
				RefreshToken: "y",
				ExpiresIn:    json.Number("3600"),
			},
			User: testUser,
		},
	}
	st := storefakes.NewFakeStore()
	m := newManager(t, api, st)

	var emitted []session.State
	m.Subscribe(func(s session.State) {
		emitted = append(emitted, s)
	})

	user, err := m.Login(context.Background(), testEmail, testPassword)
	require.NoError(t, err)
	assert.Equal(t, testUser, *user)

	assert.Equal(t, "x", st.Get(store.KeyAccessToken))
	assert.Equal(t, "y", st.Get(store.KeyRefreshToken))
	assert.Equal(t, "3600", st.Get(store.KeyExpiresIn))
	assert.NotEmpty(t, st.Get(store.KeyUser))

	assert.True(t, m.IsLoggedIn())
	require.Len(t, emitted, 1)
	assert.True(t, emitted[0].Authenticated)
	require.NotNil(t, emitted[0].User)
	assert.Equal(t, testUser, *emitted[0].User)
}

func TestLogin_FailurePropagatesUnchanged(t *testing.T) {
	loginErr := apierror.FromResponse(401, []byte(`{"message":"Invalid email or password."}`))
	api := &fakeIdentity{loginErr: loginErr}
	st := storefakes.NewFakeStore()
	m := newManager(t, api, st)

	_, err := m.Login(context.Background(), testEmail, "wrong")
	require.Error(t, err)
	assert.Same(t, loginErr, err.(*apierror.Error))
	assert.False(t, m.IsLoggedIn())
	assert.Zero(t, st.Len())
}

func TestLogout_ClearsEverything(t *testing.T) {
	st := storefakes.NewFakeStore()
	for _, key := range []string{store.KeyAccessToken, store.KeyRefreshToken, store.KeyExpiresIn, store.KeyUser} {
		require.NoError(t, st.Set(key, "value"))
	}
	m := newManager(t, &fakeIdentity{}, st)

	var emitted []session.State
	m.Subscribe(func(s session.State) {
		emitted = append(emitted, s)
	})

	m.Logout()

	assert.Zero(t, st.Len())
	assert.Equal(t, 1, st.ClearCalls)
	assert.False(t, m.IsLoggedIn())
	require.Len(t, emitted, 1)
	assert.False(t, emitted[0].Authenticated)
	assert.Nil(t, emitted[0].User)
}

func TestAuthorize_NoToken_FailsWithoutNetworkCall(t *testing.T) {
	st := storefakes.NewFakeStore()
	api := &fakeIdentity{
		authorizeFn: func(string) (*identity.AuthorizeResponse, error) {
			t.Fatal("authorize must not be called without a stored token")
			return nil, nil
		},
	}
	m := newManager(t, api, st)

	_, err := m.Authorize(context.Background())
	require.ErrorIs(t, err, apierror.ErrNoSession)
	assert.Zero(t, api.authorizeCalls)
	assert.Zero(t, api.refreshCalls)
	assert.False(t, m.IsLoggedIn())
}

func TestAuthorize_Success(t *testing.T) {
	st := storefakes.NewFakeStore()
	require.NoError(t, st.Set(store.KeyAccessToken, "t1"))

	api := &fakeIdentity{
		authorizeFn: func(token string) (*identity.AuthorizeResponse, error) {
			return &identity.AuthorizeResponse{User: testUser}, nil
		},
	}
	m := newManager(t, api, st)

	user, err := m.Authorize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testUser, *user)
	assert.Equal(t, []string{"t1"}, api.accessTokens)
	assert.NotEmpty(t, st.Get(store.KeyUser))
	assert.True(t, m.IsLoggedIn())
}

func TestAuthorize_RefreshAndRetrySucceeds(t *testing.T) {
	st := storefakes.NewFakeStore()
	require.NoError(t, st.Set(store.KeyAccessToken, "t1"))
	require.NoError(t, st.Set(store.KeyRefreshToken, "r1"))

	retriedUser := users.User{ID: "1", Email: testEmail, Role: users.RoleUser}
	api := &fakeIdentity{
		refreshResp: &identity.Credentials{
			AccessToken:  "t2",
			RefreshToken: "t3",
			ExpiresIn:    json.Number("3600"),
		},
		authorizeFn: func(token string) (*identity.AuthorizeResponse, error) {
			if token == "t1" {
				return nil, unauthorizedErr()
			}
			return &identity.AuthorizeResponse{User: retriedUser}, nil
		},
	}
	m := newManager(t, api, st)

	user, err := m.Authorize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, retriedUser, *user)

	// Exactly one refresh and exactly two who-am-I calls.
	assert.Equal(t, 1, api.refreshCalls)
	assert.Equal(t, 2, api.authorizeCalls)
	assert.Equal(t, []string{"t1", "t2"}, api.accessTokens)
	assert.Equal(t, []string{"r1"}, api.refreshTokens)

	assert.Equal(t, "t2", st.Get(store.KeyAccessToken))
	assert.Equal(t, "t3", st.Get(store.KeyRefreshToken))
	assert.True(t, m.IsLoggedIn())
}

func TestAuthorize_RefreshFails_ClearsSession(t *testing.T) {
	st := storefakes.NewFakeStore()
	require.NoError(t, st.Set(store.KeyAccessToken, "t1"))
	require.NoError(t, st.Set(store.KeyRefreshToken, "r1"))
	require.NoError(t, st.Set(store.KeyExpiresIn, "3600"))
	require.NoError(t, st.Set(store.KeyUser, `{"id":"1"}`))

	api := &fakeIdentity{
		refreshErr: unauthorizedErr(),
		authorizeFn: func(string) (*identity.AuthorizeResponse, error) {
			return nil, unauthorizedErr()
		},
	}
	m := newManager(t, api, st)

	var notices []string
	m.SubscribeNotices(func(msg string) {
		notices = append(notices, msg)
	})

	_, err := m.Authorize(context.Background())
	require.Error(t, err)
	assert.True(t, apierror.IsUnauthorized(err))

	assert.Equal(t, 1, api.refreshCalls)
	assert.Equal(t, 1, api.authorizeCalls)
	assert.Zero(t, st.Len(), "all four keys must be cleared")
	assert.False(t, m.IsLoggedIn())
	assert.Equal(t, []string{"Session expired. Please log in again."}, notices)
}

func TestAuthorize_RetryFails_ClearsSession(t *testing.T) {
	st := storefakes.NewFakeStore()
	require.NoError(t, st.Set(store.KeyAccessToken, "t1"))
	require.NoError(t, st.Set(store.KeyRefreshToken, "r1"))

	api := &fakeIdentity{
		refreshResp: &identity.Credentials{AccessToken: "t2", RefreshToken: "t3", ExpiresIn: json.Number("3600")},
		authorizeFn: func(string) (*identity.AuthorizeResponse, error) {
			return nil, unauthorizedErr()
		},
	}
	m := newManager(t, api, st)

	_, err := m.Authorize(context.Background())
	require.Error(t, err)

	// The single retry is final: one refresh, two checks, no loop.
	assert.Equal(t, 1, api.refreshCalls)
	assert.Equal(t, 2, api.authorizeCalls)
	assert.Zero(t, st.Len())
	assert.False(t, m.IsLoggedIn())
}

func TestAuthorize_OtherErrorsPropagateWithoutRefresh(t *testing.T) {
	st := storefakes.NewFakeStore()
	require.NoError(t, st.Set(store.KeyAccessToken, "t1"))

	serverErr := apierror.FromResponse(500, []byte(`{"message":"boom"}`))
	api := &fakeIdentity{
		authorizeFn: func(string) (*identity.AuthorizeResponse, error) {
			return nil, serverErr
		},
	}
	m := newManager(t, api, st)

	_, err := m.Authorize(context.Background())
	require.Error(t, err)
	assert.Same(t, serverErr, err.(*apierror.Error))
	assert.Zero(t, api.refreshCalls)
	assert.Equal(t, 1, api.authorizeCalls)
	// No logout side effect for non-authorization failures.
	assert.Equal(t, "t1", st.Get(store.KeyAccessToken))
}

func TestRefresh_DoesNotTouchUserRecord(t *testing.T) {
	st := storefakes.NewFakeStore()
	require.NoError(t, st.Set(store.KeyAccessToken, "t1"))
	require.NoError(t, st.Set(store.KeyRefreshToken, "r1"))
	require.NoError(t, st.Set(store.KeyUser, `{"id":"1"}`))

	api := &fakeIdentity{
		refreshResp: &identity.Credentials{AccessToken: "t2", RefreshToken: "r2", ExpiresIn: json.Number("1800")},
	}
	m := newManager(t, api, st)

	creds, err := m.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "t2", creds.AccessToken)

	assert.Equal(t, "t2", st.Get(store.KeyAccessToken))
	assert.Equal(t, "r2", st.Get(store.KeyRefreshToken))
	assert.Equal(t, "1800", st.Get(store.KeyExpiresIn))
	assert.Equal(t, `{"id":"1"}`, st.Get(store.KeyUser))
}

func TestRefresh_FailureDoesNotLogOut(t *testing.T) {
	st := storefakes.NewFakeStore()
	require.NoError(t, st.Set(store.KeyAccessToken, "t1"))
	require.NoError(t, st.Set(store.KeyRefreshToken, "r1"))

	api := &fakeIdentity{refreshErr: errors.New("connection refused")}
	m := newManager(t, api, st)

	_, err := m.Refresh(context.Background())
	require.Error(t, err)
	// Refresh never clears the session itself; that decision is Authorize's.
	assert.Equal(t, "t1", st.Get(store.KeyAccessToken))
	assert.True(t, m.IsLoggedIn())
}

func TestRoleChecks_NeverError(t *testing.T) {
	t.Run("authorize failure maps to false", func(t *testing.T) {
		m := newManager(t, &fakeIdentity{
			authorizeFn: func(string) (*identity.AuthorizeResponse, error) {
				return nil, unauthorizedErr()
			},
		}, storefakes.NewFakeStore())

		assert.False(t, m.IsAdmin(context.Background()))
		assert.False(t, m.IsManager(context.Background()))
	})

	roleCases := []struct {
		role      users.RoleType
		isAdmin   bool
		isManager bool
	}{
		{users.RoleUser, false, false},
		{users.RoleProjectManager, false, true},
		{users.RoleAdmin, true, true},
	}
	for _, tc := range roleCases {
		t.Run(string(tc.role), func(t *testing.T) {
			st := storefakes.NewFakeStore()
			require.NoError(t, st.Set(store.KeyAccessToken, "t1"))
			m := newManager(t, &fakeIdentity{
				authorizeFn: func(string) (*identity.AuthorizeResponse, error) {
					return &identity.AuthorizeResponse{User: users.User{ID: "1", Role: tc.role}}, nil
				},
			}, st)

			assert.Equal(t, tc.isAdmin, m.IsAdmin(context.Background()))
			assert.Equal(t, tc.isManager, m.IsManager(context.Background()))
		})
	}
}

func TestSubscribe_UnsubscribeStopsDelivery(t *testing.T) {
	st := storefakes.NewFakeStore()
	m := newManager(t, &fakeIdentity{}, st)

	calls := 0
	unsubscribe := m.Subscribe(func(session.State) { calls++ })

	m.Logout()
	assert.Equal(t, 1, calls)

	unsubscribe()
	m.Logout()
	assert.Equal(t, 1, calls)
}
