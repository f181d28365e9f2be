package repofake

import (
	"sync"

	"github.com/jrsteele09/go-fleet-admin/credentials"
	fleeterrors "github.com/jrsteele09/go-fleet-admin/internal/errors"
)

var _ credentials.Store = (*FakeCredentialStore)(nil)

// FakeCredentialStore is an in-memory credentials.Store for tests.
type FakeCredentialStore struct {
	creds    *credentials.Credentials
	sets     int
	clears   int
	clearErr error
	lock     sync.RWMutex
}

func NewFakeCredentialStore() *FakeCredentialStore {
	return &FakeCredentialStore{}
}

// NewFakeCredentialStoreWith returns a store pre-loaded with a pair, as if a
// previous run had persisted it.
func NewFakeCredentialStoreWith(accessToken, refreshToken string) *FakeCredentialStore {
	return &FakeCredentialStore{creds: &credentials.Credentials{AccessToken: accessToken, RefreshToken: refreshToken}}
}

func (s *FakeCredentialStore) Set(creds credentials.Credentials) error {
	if !creds.Complete() {
		return fleeterrors.ErrIncompleteCredentials
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	s.creds = &creds
	s.sets++
	return nil
}

func (s *FakeCredentialStore) Clear() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.clears++
	if s.clearErr != nil {
		return s.clearErr
	}
	s.creds = nil
	return nil
}

func (s *FakeCredentialStore) SetIfOwned(owner string, creds credentials.Credentials) (bool, error) {
	if !creds.Complete() {
		return false, fleeterrors.ErrIncompleteCredentials
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	if owner == "" || s.owner() != owner {
		return false, nil
	}
	s.creds = &creds
	s.sets++
	return true, nil
}

func (s *FakeCredentialStore) ClearIfOwned(owner string) (bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.owner() != owner {
		return false, nil
	}
	s.clears++
	if s.clearErr != nil {
		return false, s.clearErr
	}
	s.creds = nil
	return true, nil
}

// FailClear makes every later clear fail with err and leave the pair in place.
func (s *FakeCredentialStore) FailClear(err error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.clearErr = err
}

func (s *FakeCredentialStore) owner() string {
	if s.creds == nil {
		return ""
	}
	return s.creds.RefreshToken
}

func (s *FakeCredentialStore) Current() (*credentials.Credentials, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.creds == nil {
		return nil, nil
	}
	c := *s.creds
	return &c, nil
}

// Sets returns how many times Set succeeded.
func (s *FakeCredentialStore) Sets() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.sets
}

// Clears returns how many times Clear was called.
func (s *FakeCredentialStore) Clears() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.clears
}
