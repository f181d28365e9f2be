package boltstore_test

import (
	"path/filepath"
	"testing"

	"github.com/jrsteele09/go-fleet-admin/credentials"
	"github.com/jrsteele09/go-fleet-admin/credentials/boltstore"
	fleeterrors "github.com/jrsteele09/go-fleet-admin/internal/errors"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T, path string) *boltstore.Store {
	t.Helper()
	s, err := boltstore.Open(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSetCurrentClear(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "session.db"))

	creds, err := s.Current()
	require.NoError(t, err)
	require.Nil(t, creds)

	require.NoError(t, s.Set(credentials.Credentials{AccessToken: "A1", RefreshToken: "R1"}))
	creds, err = s.Current()
	require.NoError(t, err)
	require.Equal(t, &credentials.Credentials{AccessToken: "A1", RefreshToken: "R1"}, creds)

	require.NoError(t, s.Clear())
	require.NoError(t, s.Clear())
	creds, err = s.Current()
	require.NoError(t, err)
	require.Nil(t, creds)
}

func TestSetRejectsHalfPair(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "session.db"))
	err := s.Set(credentials.Credentials{AccessToken: "A1"})
	require.ErrorIs(t, err, fleeterrors.ErrIncompleteCredentials)
}

func TestCredentialsSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")

	s, err := boltstore.Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, s.Set(credentials.Credentials{AccessToken: "A1", RefreshToken: "R1"}))
	deviceID, err := s.DeviceID()
	require.NoError(t, err)
	require.NotEmpty(t, deviceID)
	require.NoError(t, s.Close())

	reopened := openStore(t, path)
	creds, err := reopened.Current()
	require.NoError(t, err)
	require.Equal(t, "A1", creds.AccessToken)

	require.NoError(t, reopened.Clear())
	again, err := reopened.DeviceID()
	require.NoError(t, err)
	require.Equal(t, deviceID, again)
}

func TestOwnedMutationsFollowTheStoredRefreshToken(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "session.db"))

	cleared, err := s.ClearIfOwned("")
	require.NoError(t, err)
	require.True(t, cleared, "an empty store belongs to the empty owner")

	swapped, err := s.SetIfOwned("", credentials.Credentials{AccessToken: "A1", RefreshToken: "R1"})
	require.NoError(t, err)
	require.False(t, swapped)
	creds, err := s.Current()
	require.NoError(t, err)
	require.Nil(t, creds)

	require.NoError(t, s.Set(credentials.Credentials{AccessToken: "A1", RefreshToken: "R1"}))

	swapped, err = s.SetIfOwned("R0", credentials.Credentials{AccessToken: "A2", RefreshToken: "R2"})
	require.NoError(t, err)
	require.False(t, swapped)
	cleared, err = s.ClearIfOwned("R0")
	require.NoError(t, err)
	require.False(t, cleared)
	creds, err = s.Current()
	require.NoError(t, err)
	require.Equal(t, &credentials.Credentials{AccessToken: "A1", RefreshToken: "R1"}, creds)

	swapped, err = s.SetIfOwned("R1", credentials.Credentials{AccessToken: "A2", RefreshToken: "R2"})
	require.NoError(t, err)
	require.True(t, swapped)

	cleared, err = s.ClearIfOwned("R2")
	require.NoError(t, err)
	require.True(t, cleared)
	creds, err = s.Current()
	require.NoError(t, err)
	require.Nil(t, creds)
}
