// Package session owns the client's authentication state: the persisted
// credential pair, the cached user record, and the observable session signals
// every dependent component reads. Its central operation is Authorize, a
// single-shot "ensure I am authenticated" check that self-heals once via
// token refresh.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/worknest/worknest-go/apierror"
	"github.com/worknest/worknest-go/identity"
	"github.com/worknest/worknest-go/session/store"
	"github.com/worknest/worknest-go/users"
)

// sessionExpiredNotice is shown when a token could not be silently refreshed.
const sessionExpiredNotice = "Session expired. Please log in again."

// IdentityAPI is the slice of the identity client the manager depends on.
type IdentityAPI interface {
	Login(ctx context.Context, req identity.LoginRequest) (*identity.LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*identity.Credentials, error)
	Authorize(ctx context.Context, accessToken string) (*identity.AuthorizeResponse, error)
}

var _ IdentityAPI = (*identity.Client)(nil)

// Manager is the session manager. Construct one at process start and inject
// it into every consumer; it replaces the module-level credential singleton
// of older clients.
//
// Concurrent Authorize calls are uncoordinated: two overlapping calls that
// both see a rejected token will both refresh, racing to overwrite the stored
// credential pair (last write wins). Callers needing coordination must
// serialize Authorize themselves.
type Manager struct {
	api    IdentityAPI
	store  store.Store
	logger zerolog.Logger
	hub    *signalHub

	stateLock sync.RWMutex
	state     State
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a session manager over the given identity API and
// credential store. The initial state is evaluated from the store, so a
// persisted session survives a restart.
func NewManager(api IdentityAPI, st store.Store, options ...Option) (*Manager, error) {
	if api == nil {
		return nil, fmt.Errorf("[session.NewManager] identity API is required")
	}
	if st == nil {
		return nil, fmt.Errorf("[session.NewManager] store is required")
	}

	m := &Manager{
		api:    api,
		store:  st,
		logger: zerolog.Nop(),
		hub:    newSignalHub(),
	}
	for _, opt := range options {
		opt(m)
	}

	m.state = State{
		Authenticated: st.Get(store.KeyAccessToken) != "",
		User:          m.loadCachedUser(),
	}
	return m, nil
}

// Subscribe registers a listener for session state changes and returns an
// unsubscribe function. Delivery is synchronous within the operation that
// changed the state.
func (m *Manager) Subscribe(l Listener) func() {
	return m.hub.subscribe(l)
}

// SubscribeNotices registers a listener for user-facing notices.
func (m *Manager) SubscribeNotices(l NoticeListener) func() {
	return m.hub.subscribeNotices(l)
}

// Login authenticates with the identity service. On success the credential
// pair and user record are persisted, the session flips to authenticated, and
// the new user is emitted. Failures propagate unchanged; there is no retry.
func (m *Manager) Login(ctx context.Context, email, password string) (*users.User, error) {
	resp, err := m.api.Login(ctx, identity.LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}

	user := resp.User
	if err := m.persistCredentials(resp.Credentials, &user); err != nil {
		return nil, err
	}
	m.setState(State{Authenticated: true, User: &user})

	m.logger.Info().Str("email", user.Email).Msg("logged in")
	return &user, nil
}

// Logout clears the credential pair and cached user record and emits an
// unauthenticated state with a nil user. It never makes a network call.
func (m *Manager) Logout() {
	m.clearSession("")
}

// Authorize ensures the session holds a valid access token and returns the
// server's user record for it.
//
// With no stored token it fails immediately with apierror.ErrNoSession,
// performing the logout side effect and no network call. An authorization
// class rejection (400/401/403) triggers exactly one silent refresh followed
// by one retried check; that result is final. If the refresh or the retry
// fails, the session is cleared with a session-expired notice and the failure
// propagates. Every other error class propagates without recovery.
func (m *Manager) Authorize(ctx context.Context) (*users.User, error) {
	accessToken := m.store.Get(store.KeyAccessToken)
	if accessToken == "" {
		m.clearSession("")
		return nil, apierror.ErrNoSession
	}

	resp, err := m.api.Authorize(ctx, accessToken)
	if err == nil {
		return m.cacheUser(resp.User)
	}
	if !apierror.IsUnauthorized(err) {
		return nil, err
	}

	m.logger.Debug().Msg("access token rejected, attempting refresh")
	creds, err := m.Refresh(ctx)
	if err != nil {
		m.clearSession(sessionExpiredNotice)
		return nil, err
	}

	resp, err = m.api.Authorize(ctx, creds.AccessToken)
	if err != nil {
		m.clearSession(sessionExpiredNotice)
		return nil, err
	}
	return m.cacheUser(resp.User)
}

// Refresh exchanges the stored refresh token for a new credential triple and
// persists it. The cached user record is untouched. Failures propagate; the
// caller decides whether to log out.
func (m *Manager) Refresh(ctx context.Context) (*identity.Credentials, error) {
	refreshToken := m.store.Get(store.KeyRefreshToken)
	creds, err := m.api.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if err := m.persistCredentials(*creds, nil); err != nil {
		return nil, err
	}
	m.setState(State{Authenticated: true, User: m.currentUser()})
	return creds, nil
}

// IsLoggedIn returns the last-evaluated authenticated flag. It performs no
// network check.
func (m *Manager) IsLoggedIn() bool {
	m.stateLock.RLock()
	defer m.stateLock.RUnlock()
	return m.state.Authenticated
}

// CurrentUser returns the cached user record, or nil when logged out.
func (m *Manager) CurrentUser() *users.User {
	return m.currentUser()
}

// IsAdmin reports whether the authorized user holds the admin role. It never
// returns an error; any authorization failure maps to false, so it is safe to
// call speculatively for visibility checks.
func (m *Manager) IsAdmin(ctx context.Context) bool {
	user, err := m.Authorize(ctx)
	if err != nil {
		return false
	}
	return user.IsAdmin()
}

// IsManager reports whether the authorized user holds the manager role or
// above. Like IsAdmin, failures map to false.
func (m *Manager) IsManager(ctx context.Context) bool {
	user, err := m.Authorize(ctx)
	if err != nil {
		return false
	}
	return user.IsManager()
}

// AccessToken returns the stored access token for authenticating calls to
// the other backend services. Empty when logged out.
func (m *Manager) AccessToken() string {
	return m.store.Get(store.KeyAccessToken)
}

// cacheUser persists the user record returned by an authorization check and
// re-evaluates the session state around it.
func (m *Manager) cacheUser(user users.User) (*users.User, error) {
	b, err := json.Marshal(user)
	if err != nil {
		return nil, fmt.Errorf("[session.Manager] marshal user: %w", err)
	}
	if err := m.store.Set(store.KeyUser, string(b)); err != nil {
		return nil, fmt.Errorf("[session.Manager] persist user: %w", err)
	}
	m.setState(State{Authenticated: true, User: &user})
	return &user, nil
}

// persistCredentials writes the credential triple, and the user record when
// present, as a group. The storage medium has no multi-key transaction; the
// writes are atomic in intent only.
func (m *Manager) persistCredentials(creds identity.Credentials, user *users.User) error {
	if err := m.store.Set(store.KeyAccessToken, creds.AccessToken); err != nil {
		return fmt.Errorf("[session.Manager] persist access token: %w", err)
	}
	if err := m.store.Set(store.KeyRefreshToken, creds.RefreshToken); err != nil {
		return fmt.Errorf("[session.Manager] persist refresh token: %w", err)
	}
	if err := m.store.Set(store.KeyExpiresIn, creds.ExpiresIn.String()); err != nil {
		return fmt.Errorf("[session.Manager] persist expiry: %w", err)
	}
	if user != nil {
		b, err := json.Marshal(user)
		if err != nil {
			return fmt.Errorf("[session.Manager] marshal user: %w", err)
		}
		if err := m.store.Set(store.KeyUser, string(b)); err != nil {
			return fmt.Errorf("[session.Manager] persist user: %w", err)
		}
	}
	return nil
}

// clearSession removes the credential pair and the cached user record in the
// same operation, flips the state to unauthenticated, and emits a nil user.
// A non-empty notice is broadcast afterwards.
func (m *Manager) clearSession(notice string) {
	if err := m.store.Clear(); err != nil {
		m.logger.Error().Err(err).Msg("clearing session store")
	}
	m.setState(State{Authenticated: false, User: nil})
	if notice != "" {
		m.hub.emitNotice(notice)
	}
}

func (m *Manager) setState(s State) {
	m.stateLock.Lock()
	m.state = s
	m.stateLock.Unlock()
	m.hub.emitState(s)
}

func (m *Manager) currentUser() *users.User {
	m.stateLock.RLock()
	defer m.stateLock.RUnlock()
	return m.state.User
}

func (m *Manager) loadCachedUser() *users.User {
	raw := m.store.Get(store.KeyUser)
	if raw == "" {
		return nil
	}
	var u users.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil
	}
	return &u
}
