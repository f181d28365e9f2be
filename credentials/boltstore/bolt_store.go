// Package boltstore persists the credential pair in a BBolt file so a
// session survives process restarts.
package boltstore

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-fleet-admin/credentials"
	fleeterrors "github.com/jrsteele09/go-fleet-admin/internal/errors"
	"go.etcd.io/bbolt"
)

const (
	bucketName      = "session"
	accessTokenKey  = "accessToken"
	refreshTokenKey = "refreshToken"
	deviceIDKey     = "deviceId"
)

// Store implements credentials.Store backed by a BBolt database.
type Store struct {
	db *bbolt.DB
}

var (
	_ credentials.Store          = (*Store)(nil)
	_ credentials.DeviceIdentity = (*Store)(nil)
)

// New returns a Store backed by the given BBolt database.
func New(db *bbolt.DB) *Store {
	return &Store{db: db}
}

// Open opens (or creates) a BBolt database at path and returns a Store.
func Open(path string, options *bbolt.Options) (*Store, error) {
	db, err := bbolt.Open(path, 0600, options)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	return New(db), nil
}

// Close closes the underlying BBolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Set writes both tokens in one transaction.
func (s *Store) Set(creds credentials.Credentials) error {
	if !creds.Complete() {
		return fleeterrors.ErrIncompleteCredentials
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		if err != nil {
			return err
		}
		if err := b.Put([]byte(accessTokenKey), []byte(creds.AccessToken)); err != nil {
			return err
		}
		return b.Put([]byte(refreshTokenKey), []byte(creds.RefreshToken))
	})
}

// Clear deletes both tokens. Clearing an empty store is not an error.
func (s *Store) Clear() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return clearPair(tx.Bucket([]byte(bucketName)))
	})
}

// SetIfOwned compares the stored refresh token with owner and writes the
// new pair in the same transaction.
func (s *Store) SetIfOwned(owner string, creds credentials.Credentials) (bool, error) {
	if !creds.Complete() {
		return false, fleeterrors.ErrIncompleteCredentials
	}
	var swapped bool
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil || owner == "" || string(b.Get([]byte(refreshTokenKey))) != owner {
			return nil
		}
		if err := b.Put([]byte(accessTokenKey), []byte(creds.AccessToken)); err != nil {
			return err
		}
		if err := b.Put([]byte(refreshTokenKey), []byte(creds.RefreshToken)); err != nil {
			return err
		}
		swapped = true
		return nil
	})
	return swapped, err
}

// ClearIfOwned compares the stored refresh token with owner and deletes the
// pair in the same transaction.
func (s *Store) ClearIfOwned(owner string) (bool, error) {
	var cleared bool
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			cleared = owner == ""
			return nil
		}
		if string(b.Get([]byte(refreshTokenKey))) != owner {
			return nil
		}
		if err := clearPair(b); err != nil {
			return err
		}
		cleared = true
		return nil
	})
	return cleared, err
}

func clearPair(b *bbolt.Bucket) error {
	if b == nil {
		return nil
	}
	if err := b.Delete([]byte(accessTokenKey)); err != nil {
		return err
	}
	return b.Delete([]byte(refreshTokenKey))
}

// Current returns the stored pair, or nil when anonymous. A half pair left
// behind by an older client reads as anonymous.
func (s *Store) Current() (*credentials.Credentials, error) {
	var creds credentials.Credentials
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}
		creds.AccessToken = string(b.Get([]byte(accessTokenKey)))
		creds.RefreshToken = string(b.Get([]byte(refreshTokenKey)))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading credentials: %w", err)
	}
	if !creds.Complete() {
		return nil, nil
	}
	return &creds, nil
}

// DeviceID returns the per-install identifier, creating it on first use.
// It is not removed by Clear.
func (s *Store) DeviceID() (string, error) {
	var id string
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		if err != nil {
			return err
		}
		if existing := b.Get([]byte(deviceIDKey)); existing != nil {
			id = string(existing)
			return nil
		}
		id = uuid.NewString()
		return b.Put([]byte(deviceIDKey), []byte(id))
	})
	return id, err
}
