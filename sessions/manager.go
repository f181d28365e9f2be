package sessions

import (
	"context"
	"errors"
	"sync"

	"github.com/jrsteele09/go-fleet-admin/credentials"
	fleeterrors "github.com/jrsteele09/go-fleet-admin/internal/errors"
	"github.com/jrsteele09/go-fleet-admin/users"
	"github.com/rs/zerolog"
)

// Authenticator is the server surface the session manager needs. Login and
// Logout go to the server directly; Me goes through the auth gateway.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*credentials.Credentials, *users.Principal, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context) (*users.Principal, error)
}

// Navigator is told to send the user back to the login entry point when the
// session is terminated underneath them.
type Navigator interface {
	ForceLogin()
}

// Manager owns the session lifecycle and publishes its transitions.
type Manager struct {
	store     credentials.Store
	auth      Authenticator
	navigator Navigator
	logger    zerolog.Logger

	lock      sync.RWMutex
	state     State
	principal *users.Principal

	subsLock    sync.Mutex
	subscribers map[int]func(Event)
	nextSubID   int
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

func WithNavigator(navigator Navigator) ManagerOption {
	return func(m *Manager) {
		m.navigator = navigator
	}
}

func WithLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager returns a manager in the Bootstrapping state.
func NewManager(store credentials.Store, auth Authenticator, options ...ManagerOption) (*Manager, error) {
	if store == nil {
		return nil, errors.New("[NewManager] store is required")
	}
	if auth == nil {
		return nil, errors.New("[NewManager] authenticator is required")
	}

	m := &Manager{
		store:       store,
		auth:        auth,
		logger:      zerolog.Nop(),
		state:       Bootstrapping,
		subscribers: make(map[int]func(Event)),
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// State returns the current session state.
func (m *Manager) State() State {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.state
}

// Principal returns a deep copy of the authenticated principal, or nil.
func (m *Manager) Principal() *users.Principal {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.principal.Clone()
}

// Subscribe registers fn for every future transition and returns a function
// that removes it. fn runs synchronously on the goroutine that caused the
// transition.
func (m *Manager) Subscribe(fn func(Event)) func() {
	m.subsLock.Lock()
	defer m.subsLock.Unlock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn
	return func() {
		m.subsLock.Lock()
		defer m.subsLock.Unlock()
		delete(m.subscribers, id)
	}
}

// Bootstrap validates a persisted token and settles in Authenticated or
// Anonymous. It never leaves the manager in Bootstrapping.
func (m *Manager) Bootstrap(ctx context.Context) State {
	current, err := m.store.Current()
	if err != nil || current == nil {
		if err != nil {
			m.logger.Err(err).Msg("Bootstrap: failed to read credentials")
		}
		m.clearStore()
		m.transition(Anonymous, ReasonBootstrap, nil)
		return Anonymous
	}

	principal, err := m.auth.Me(ctx)
	if err != nil {
		m.logger.Info().Err(err).Msg("Bootstrap: persisted session rejected")
		m.clearStore()
		m.transition(Anonymous, ReasonBootstrap, nil)
		return Anonymous
	}

	m.transition(Authenticated, ReasonBootstrap, principal)
	return Authenticated
}

// Login authenticates against the login endpoint. On failure the state is
// left unchanged; a rejected email/password yields ErrCredentialsInvalid.
func (m *Manager) Login(ctx context.Context, email, password string) (*users.Principal, error) {
	creds, principal, err := m.auth.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if creds == nil || !creds.Complete() {
		return nil, fleeterrors.ErrIncompleteCredentials
	}
	if err := m.store.Set(*creds); err != nil {
		return nil, fleeterrors.Wrapf(err, "storing credentials")
	}

	if principal == nil {
		if principal, err = m.auth.Me(ctx); err != nil {
			m.clearStore()
			return nil, fleeterrors.Wrapf(err, "loading principal")
		}
	}

	m.transition(Authenticated, ReasonLogin, principal)
	return m.Principal(), nil
}

// Logout invalidates the refresh token server-side on a best-effort basis
// and always ends the local session. A store that cannot be cleared is
// reported after the transition to Anonymous.
func (m *Manager) Logout(ctx context.Context) error {
	if current, err := m.store.Current(); err == nil && current != nil {
		if err := m.auth.Logout(ctx, current.RefreshToken); err != nil {
			m.logger.Warn().Err(err).Msg("Logout: server-side invalidation failed")
		}
	}

	err := m.store.Clear()
	m.transition(Anonymous, ReasonLogout, nil)
	if err != nil {
		return fleeterrors.Wrapf(err, "clearing credentials")
	}
	return nil
}

// Terminate ends the session after irrecoverable credential failure. It is
// safe to call repeatedly and concurrently; only the first call from an
// authenticated session publishes and navigates.
func (m *Manager) Terminate(ctx context.Context) {
	m.clearStore()

	// Bootstrap owns its own outcome.
	if m.State() == Bootstrapping {
		return
	}

	if from, changed := m.transition(Anonymous, ReasonTerminated, nil); changed && from == Authenticated {
		m.logger.Warn().Msg("Session terminated, login required")
		if m.navigator != nil {
			m.navigator.ForceLogin()
		}
	}
}

func (m *Manager) clearStore() {
	if err := m.store.Clear(); err != nil {
		m.logger.Err(err).Msg("Failed to clear credentials")
	}
}

func (m *Manager) transition(to State, reason Reason, principal *users.Principal) (State, bool) {
	m.lock.Lock()
	from := m.state
	if from == to && to == Anonymous {
		m.lock.Unlock()
		return from, false
	}
	m.state = to
	m.principal = principal.Clone()
	m.lock.Unlock()

	m.publish(Event{From: from, To: to, Reason: reason, Principal: principal.Clone()})
	return from, true
}

func (m *Manager) publish(e Event) {
	m.subsLock.Lock()
	subs := make([]func(Event), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		subs = append(subs, fn)
	}
	m.subsLock.Unlock()

	for _, fn := range subs {
		fn(e)
	}
}
