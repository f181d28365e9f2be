package credentials_test

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-fleet-admin/credentials"
	fleeterrors "github.com/jrsteele09/go-fleet-admin/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresBothTokens(t *testing.T) {
	_, err := credentials.New("A1", "")
	require.ErrorIs(t, err, fleeterrors.ErrIncompleteCredentials)
	_, err = credentials.New("", "R1")
	require.ErrorIs(t, err, fleeterrors.ErrIncompleteCredentials)

	c, err := credentials.New("A1", "R1")
	require.NoError(t, err)
	tok := c.Token()
	require.Equal(t, "A1", tok.AccessToken)
	require.Equal(t, "Bearer", tok.Type())
}

func TestInspectJWT(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	credentials.NowTimeFunc = func() time.Time { return now }
	defer func() { credentials.NowTimeFunc = time.Now }()

	raw, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		"sub": "user-1",
		"iat": now.Add(-time.Hour).Unix(),
		"exp": now.Add(-time.Minute).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	info, err := credentials.Inspect(raw)
	require.NoError(t, err)
	require.Equal(t, "user-1", info.Subject)
	require.NotNil(t, info.ExpiresAt)
	require.True(t, info.Expired())
}

func TestInspectOpaqueToken(t *testing.T) {
	_, err := credentials.Inspect("opaque-token")
	require.ErrorIs(t, err, credentials.ErrNotJWT)
}
