package credentials

import (
	fleeterrors "github.com/jrsteele09/go-fleet-admin/internal/errors"
	"golang.org/x/oauth2"
)

// Credentials is the opaque bearer pair issued by the fleet API.
// Either both tokens are set (authenticated) or neither is (anonymous).
type Credentials struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// New returns a complete credential pair or ErrIncompleteCredentials.
func New(accessToken, refreshToken string) (*Credentials, error) {
	c := &Credentials{AccessToken: accessToken, RefreshToken: refreshToken}
	if !c.Complete() {
		return nil, fleeterrors.ErrIncompleteCredentials
	}
	return c, nil
}

// Complete reports whether both tokens are present.
func (c Credentials) Complete() bool {
	return c.AccessToken != "" && c.RefreshToken != ""
}

// Token converts the pair to an oauth2 bearer token for header injection.
func (c Credentials) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    "Bearer",
	}
}
