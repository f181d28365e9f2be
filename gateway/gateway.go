package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/jrsteele09/go-fleet-admin/credentials"
	fleeterrors "github.com/jrsteele09/go-fleet-admin/internal/errors"
	"github.com/jrsteele09/go-fleet-admin/transport"
	"github.com/rs/zerolog"
)

// TokenSource supplies a token that supersedes one the server rejected.
// It is implemented by refresh.Coordinator.
type TokenSource interface {
	FreshToken(ctx context.Context, rejected string) (string, error)
}

// Terminator ends the session after credential recovery is exhausted.
type Terminator interface {
	Terminate(ctx context.Context)
}

// TerminatorFunc adapts a function to the Terminator interface.
type TerminatorFunc func(ctx context.Context)

func (f TerminatorFunc) Terminate(ctx context.Context) {
	f(ctx)
}

// Gateway authorises every outbound request with the current access token
// and absorbs a single 401 per request by refreshing and replaying it.
type Gateway struct {
	transport  transport.Transport
	store      credentials.Store
	tokens     TokenSource
	terminator Terminator
	logger     zerolog.Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

func WithTerminator(terminator Terminator) Option {
	return func(g *Gateway) {
		g.terminator = terminator
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// New creates a Gateway.
func New(tr transport.Transport, store credentials.Store, tokens TokenSource, options ...Option) (*Gateway, error) {
	if tr == nil {
		return nil, errors.New("[gateway.New] transport is required")
	}
	if store == nil {
		return nil, errors.New("[gateway.New] store is required")
	}
	if tokens == nil {
		return nil, errors.New("[gateway.New] token source is required")
	}

	g := &Gateway{
		transport: tr,
		store:     store,
		tokens:    tokens,
		logger:    zerolog.Nop(),
	}
	for _, opt := range options {
		opt(g)
	}
	return g, nil
}

// Send dispatches req. From the caller's point of view the call either
// succeeds, fails with a non-auth error, or fails with ErrAuthFailed after
// recovery has been exhausted and the session terminated.
func (g *Gateway) Send(ctx context.Context, req transport.Request) (*transport.Response, error) {
	current, err := g.store.Current()
	if err != nil {
		return nil, fleeterrors.Wrapf(err, "reading credentials")
	}
	if current != nil {
		req = req.WithBearer(current.Token())
	} else {
		req = req.WithBearer(nil)
	}

	resp, err := g.transport.Do(ctx, req)
	if err != nil || !resp.Unauthorized() {
		return resp, err
	}
	if req.Retried {
		return g.exhausted(ctx, req, resp, nil)
	}

	g.logger.Debug().Str("method", req.Method).Str("path", req.Path).Msg("Access token rejected, refreshing")
	token, err := g.tokens.FreshToken(ctx, req.BearerToken())
	if err != nil {
		if !errors.Is(err, fleeterrors.ErrAuthFailed) {
			return nil, err
		}
		return g.exhausted(ctx, req, resp, err)
	}

	retry := req.MarkRetried().WithBearer(credentials.Credentials{AccessToken: token}.Token())
	resp, err = g.transport.Do(ctx, retry)
	if err != nil || !resp.Unauthorized() {
		return resp, err
	}
	return g.exhausted(ctx, retry, resp, nil)
}

// exhausted terminates the session the failed request was sent under. A
// request that lost a race with a login or logout leaves the newer session
// alone and reports ErrSessionChanged instead.
func (g *Gateway) exhausted(ctx context.Context, req transport.Request, resp *transport.Response, cause error) (*transport.Response, error) {
	if !g.stillCurrent(req.BearerToken()) {
		g.logger.Debug().Str("method", req.Method).Str("path", req.Path).Msg("Credential recovery failed for a replaced session")
		return resp, fmt.Errorf("%w: %s %s", fleeterrors.ErrSessionChanged, req.Method, req.Path)
	}

	g.logger.Warn().Str("method", req.Method).Str("path", req.Path).Bool("retried", req.Retried).Msg("Credential recovery exhausted, terminating session")
	if g.terminator != nil {
		g.terminator.Terminate(ctx)
	}

	if cause != nil {
		return resp, fmt.Errorf("%w: %s %s answered %d", cause, req.Method, req.Path, resp.StatusCode)
	}
	return resp, fmt.Errorf("%w: %s %s answered %d", fleeterrors.ErrAuthFailed, req.Method, req.Path, resp.StatusCode)
}

// stillCurrent reports whether token is the stored access token, or the
// store has already been emptied.
func (g *Gateway) stillCurrent(token string) bool {
	current, err := g.store.Current()
	return err != nil || current == nil || current.AccessToken == token
}
