package credentials

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// ErrNotJWT is returned by Inspect when the access token is not a JWT.
// The fleet API is free to issue opaque tokens, so callers treat this as
// "unknown expiry" rather than a failure.
var ErrNotJWT = errors.New("access token is not a JWT")

// TokenInfo is the unverified view of a JWT access token. It is used for
// diagnostics only; the server remains the authority on validity.
type TokenInfo struct {
	Subject   string
	ExpiresAt *time.Time
	IssuedAt  *time.Time
}

// Expired reports whether the token's exp claim is in the past.
func (ti *TokenInfo) Expired() bool {
	return ti.ExpiresAt != nil && NowTimeFunc().After(*ti.ExpiresAt)
}

// Inspect parses raw without verifying its signature.
func Inspect(raw string) (*TokenInfo, error) {
	token, _, err := jwtlib.NewParser().ParseUnverified(raw, jwtlib.MapClaims{})
	if err != nil {
		return nil, ErrNotJWT
	}
	claims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, errors.New("error extracting claims")
	}

	info := &TokenInfo{}
	info.Subject, _ = claims.GetSubject()
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = &exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		info.IssuedAt = &iat.Time
	}
	return info, nil
}
