package refresh

import (
	"context"

	"github.com/jrsteele09/go-fleet-admin/credentials"
)

// Refresher exchanges a refresh token for a new credential pair. It must
// talk to the server directly, never through the auth gateway.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*credentials.Credentials, error)
}

// RefresherFunc adapts a function to the Refresher interface.
type RefresherFunc func(ctx context.Context, refreshToken string) (*credentials.Credentials, error)

func (f RefresherFunc) Refresh(ctx context.Context, refreshToken string) (*credentials.Credentials, error) {
	return f(ctx, refreshToken)
}
