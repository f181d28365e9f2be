package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Common error types for the fleet admin client
var (
	// Authentication errors
	ErrAuthExpired           = errors.New("access token expired")
	ErrAuthFailed            = errors.New("authentication failed")
	ErrCredentialsInvalid    = errors.New("invalid credentials")
	ErrNoSession             = errors.New("no session to refresh")
	ErrIncompleteCredentials = errors.New("access and refresh token must be set together")
	ErrSessionChanged        = errors.New("session changed while the token was being refreshed")

	// General errors
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
	ErrInternal  = errors.New("internal error")
)

// StatusError is a non-2xx response from the fleet API that is not an
// authentication failure the client could recover from.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("fleet api: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("fleet api: %d %s", e.StatusCode, e.Message)
}

// Is lets errors.Is match a StatusError against the general sentinels. A 401
// does not match ErrAuthExpired; AuthAPI.Refresh classifies spent tokens.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	case ErrInternal:
		return e.StatusCode >= http.StatusInternalServerError
	}
	return false
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
