package fleetapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-fleet-admin/credentials"
	fleeterrors "github.com/jrsteele09/go-fleet-admin/internal/errors"
	"github.com/jrsteele09/go-fleet-admin/refresh"
	"github.com/jrsteele09/go-fleet-admin/sessions"
	"github.com/jrsteele09/go-fleet-admin/transport"
	"github.com/jrsteele09/go-fleet-admin/users"
	pkgerrors "github.com/pkg/errors"
)

const (
	pathLogin    = "/auth/login"
	pathRefresh  = "/auth/refresh"
	pathLogout   = "/auth/logout"
	pathMe       = "/auth/me"
	pathRegister = "/auth/register"
)

var (
	_ sessions.Authenticator = (*AuthAPI)(nil)
	_ refresh.Refresher      = (*AuthAPI)(nil)
)

// AuthAPI talks to the /auth endpoints. Login, Refresh and Logout go
// straight to the transport so they can never trigger the 401 recovery they
// are part of; Me and Register are ordinary authorised calls.
type AuthAPI struct {
	transport  transport.Transport
	authorised Sender
	deviceInfo string
}

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	DeviceInfo string `json:"deviceInfo,omitempty"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
	DeviceInfo   string `json:"deviceInfo,omitempty"`
}

type logoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenResponse struct {
	AccessToken  string           `json:"accessToken"`
	RefreshToken string           `json:"refreshToken"`
	User         *users.Principal `json:"user"`
}

// NewAuthAPI creates an AuthAPI. authorised may be nil until the gateway has
// been built; see SetAuthorised.
func NewAuthAPI(tr transport.Transport, authorised Sender, deviceInfo string) (*AuthAPI, error) {
	if tr == nil {
		return nil, errors.New("[NewAuthAPI] transport is required")
	}
	return &AuthAPI{transport: tr, authorised: authorised, deviceInfo: deviceInfo}, nil
}

// SetAuthorised binds the sender used for authorised calls. The gateway
// depends on the refresh coordinator which depends on this API, so the
// binding happens after construction.
func (a *AuthAPI) SetAuthorised(sender Sender) {
	a.authorised = sender
}

// Login exchanges email and password for a credential pair and the
// principal. 400, 401 and 403 mean the credentials were rejected.
func (a *AuthAPI) Login(ctx context.Context, email, password string) (*credentials.Credentials, *users.Principal, error) {
	resp, err := a.transport.Do(ctx, transport.Post(pathLogin, loginRequest{Email: email, Password: password, DeviceInfo: a.deviceInfo}))
	if err != nil {
		return nil, nil, pkgerrors.Wrap(err, "[AuthAPI.Login]")
	}

	switch resp.StatusCode {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		return nil, nil, fmt.Errorf("%w: %w", fleeterrors.ErrCredentialsInvalid, statusError(resp))
	}

	var payload tokenResponse
	if err := decode(resp, &payload); err != nil {
		return nil, nil, pkgerrors.Wrap(err, "[AuthAPI.Login]")
	}
	creds, err := credentials.New(payload.AccessToken, payload.RefreshToken)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(err, "[AuthAPI.Login] login response")
	}
	return creds, payload.User, nil
}

// Refresh exchanges a refresh token for a new pair. The returned refresh
// token is empty when the server did not rotate it. A refused refresh token
// yields ErrAuthExpired.
func (a *AuthAPI) Refresh(ctx context.Context, refreshToken string) (*credentials.Credentials, error) {
	resp, err := a.transport.Do(ctx, transport.Post(pathRefresh, refreshRequest{RefreshToken: refreshToken, DeviceInfo: a.deviceInfo}))
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[AuthAPI.Refresh]")
	}
	switch resp.StatusCode {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("%w: refresh token refused: %w", fleeterrors.ErrAuthExpired, statusError(resp))
	}

	var payload tokenResponse
	if err := decode(resp, &payload); err != nil {
		return nil, pkgerrors.Wrap(err, "[AuthAPI.Refresh]")
	}
	if payload.AccessToken == "" {
		return nil, errors.New("[AuthAPI.Refresh] response carried no access token")
	}
	return &credentials.Credentials{AccessToken: payload.AccessToken, RefreshToken: payload.RefreshToken}, nil
}

// Logout invalidates refreshToken server-side.
func (a *AuthAPI) Logout(ctx context.Context, refreshToken string) error {
	resp, err := a.transport.Do(ctx, transport.Post(pathLogout, logoutRequest{RefreshToken: refreshToken}))
	if err != nil {
		return pkgerrors.Wrap(err, "[AuthAPI.Logout]")
	}
	return decode(resp, nil)
}

// Me returns the principal behind the current access token.
func (a *AuthAPI) Me(ctx context.Context) (*users.Principal, error) {
	if a.authorised == nil {
		return nil, errors.New("[AuthAPI.Me] no authorised sender bound")
	}
	var principal users.Principal
	if err := call(ctx, a.authorised, transport.Get(pathMe), &principal); err != nil {
		return nil, pkgerrors.Wrap(err, "[AuthAPI.Me]")
	}
	return &principal, nil
}

// Register creates a staff account. The caller must hold an administrative
// role; the server enforces it.
func (a *AuthAPI) Register(ctx context.Context, account users.NewAccount) error {
	if err := account.Validate(); err != nil {
		return pkgerrors.Wrap(err, "[AuthAPI.Register] invalid account")
	}
	if a.authorised == nil {
		return errors.New("[AuthAPI.Register] no authorised sender bound")
	}
	if err := call(ctx, a.authorised, transport.Post(pathRegister, account), nil); err != nil {
		return pkgerrors.Wrap(err, "[AuthAPI.Register]")
	}
	return nil
}
