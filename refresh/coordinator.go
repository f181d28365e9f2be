package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jrsteele09/go-fleet-admin/credentials"
	fleeterrors "github.com/jrsteele09/go-fleet-admin/internal/errors"
	"github.com/rs/zerolog"
)

// State of the coordinator.
type State int

const (
	Idle State = iota
	Refreshing
)

func (s State) String() string {
	if s == Refreshing {
		return "refreshing"
	}
	return "idle"
}

const defaultTimeout = 15 * time.Second

type outcome struct {
	token string
	err   error
}

// Coordinator guarantees at most one refresh call in flight. Callers that
// need a fresh token while an episode is running are queued and all receive
// that episode's outcome.
type Coordinator struct {
	store     credentials.Store
	refresher Refresher
	timeout   time.Duration
	onFailure func(ctx context.Context)
	logger    zerolog.Logger

	lock     sync.Mutex
	state    State
	waiters  []chan outcome
	episodes int
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithTimeout bounds a refresh episode.
func WithTimeout(timeout time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithFailureHook is called once per failed episode, after the store has
// been cleared and every waiter rejected.
func WithFailureHook(hook func(ctx context.Context)) CoordinatorOption {
	return func(c *Coordinator) {
		c.onFailure = hook
	}
}

func WithLogger(logger zerolog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// NewCoordinator creates an idle coordinator.
func NewCoordinator(store credentials.Store, refresher Refresher, options ...CoordinatorOption) (*Coordinator, error) {
	if store == nil {
		return nil, errors.New("[NewCoordinator] store is required")
	}
	if refresher == nil {
		return nil, errors.New("[NewCoordinator] refresher is required")
	}

	c := &Coordinator{
		store:     store,
		refresher: refresher,
		timeout:   defaultTimeout,
		logger:    zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// FreshToken returns an access token that supersedes rejected, the token a
// request was refused with. If another episode already replaced it, the
// current token is returned without a network call. Otherwise the caller
// joins (or starts) the running episode.
//
// Cancelling ctx only stops this caller waiting; a started episode always
// runs to completion.
func (c *Coordinator) FreshToken(ctx context.Context, rejected string) (string, error) {
	c.lock.Lock()
	if c.state == Idle {
		if current, err := c.store.Current(); err == nil && current != nil && current.AccessToken != rejected {
			c.lock.Unlock()
			return current.AccessToken, nil
		}
	}

	w := make(chan outcome, 1)
	c.waiters = append(c.waiters, w)
	if c.state == Idle {
		c.state = Refreshing
		c.episodes++
		go c.runEpisode(context.WithoutCancel(ctx))
	}
	c.lock.Unlock()

	select {
	case o := <-w:
		return o.token, o.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// State reports whether an episode is running.
func (c *Coordinator) State() State {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.state
}

// Episodes returns how many refresh episodes have been started.
func (c *Coordinator) Episodes() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.episodes
}

// Waiting returns how many callers are queued on the running episode.
func (c *Coordinator) Waiting() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return len(c.waiters)
}

// runEpisode belongs to the session identified by the refresh token it reads
// at the start. If a login, logout or termination replaces that session
// before the episode ends, the result is discarded and the store untouched.
func (c *Coordinator) runEpisode(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	current, err := c.store.Current()
	if err != nil {
		c.fail(ctx, "", fleeterrors.Wrapf(err, "reading refresh token"))
		return
	}
	if current == nil || current.RefreshToken == "" {
		c.fail(ctx, "", fleeterrors.ErrNoSession)
		return
	}
	owner := current.RefreshToken

	fresh, err := c.refresher.Refresh(ctx, owner)
	if err != nil {
		c.fail(ctx, owner, err)
		return
	}
	if fresh == nil || fresh.AccessToken == "" {
		c.fail(ctx, owner, errors.New("refresh response carried no access token"))
		return
	}
	next := *fresh
	if next.RefreshToken == "" {
		next.RefreshToken = owner
	}
	swapped, err := c.store.SetIfOwned(owner, next)
	if err != nil {
		c.fail(ctx, owner, fleeterrors.Wrapf(err, "storing refreshed credentials"))
		return
	}
	if !swapped {
		n := c.finish(outcome{err: fleeterrors.ErrSessionChanged})
		c.logger.Info().Int("waiters", n).Msg("Refreshed token discarded, session changed during refresh")
		return
	}

	n := c.finish(outcome{token: next.AccessToken})
	c.logger.Info().Int("waiters", n).Dur("elapsed", time.Since(start)).Msg("Access token refreshed")
}

// fail clears the store and fires the failure hook only while owner is still
// the stored refresh token. Otherwise the waiters learn the session changed.
func (c *Coordinator) fail(ctx context.Context, owner string, cause error) {
	cleared, err := c.store.ClearIfOwned(owner)
	if err != nil {
		c.logger.Err(err).Msg("Failed to clear credentials after refresh failure")
		cleared = true
	}
	if !cleared {
		n := c.finish(outcome{err: fmt.Errorf("%w: %v", fleeterrors.ErrSessionChanged, cause)})
		c.logger.Info().Err(cause).Int("waiters", n).Msg("Refresh failure ignored, session changed during refresh")
		return
	}

	n := c.finish(outcome{err: episodeError(cause)})
	c.logger.Warn().Err(cause).Int("waiters", n).Msg("Token refresh failed")

	if c.onFailure != nil {
		c.onFailure(ctx)
	}
}

// episodeError keeps the cause in the chain except a refused refresh token,
// whose ErrAuthExpired stays inside the coordinator.
func episodeError(cause error) error {
	if errors.Is(cause, fleeterrors.ErrAuthExpired) {
		return fmt.Errorf("%w: %v", fleeterrors.ErrAuthFailed, cause)
	}
	return fmt.Errorf("%w: %w", fleeterrors.ErrAuthFailed, cause)
}

// finish drains the waiter list and returns to Idle atomically, then hands
// every waiter the same outcome.
func (c *Coordinator) finish(o outcome) int {
	c.lock.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.state = Idle
	c.lock.Unlock()

	for _, w := range waiters {
		w <- o
	}
	return len(waiters)
}
