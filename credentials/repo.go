package credentials

// Store is the single source of truth for the current credential pair.
// Set and Clear are the only mutation points; Current returns nil when
// the client is anonymous. Implementations do not inspect token contents.
type Store interface {
	Set(creds Credentials) error
	Clear() error
	Current() (*Credentials, error)

	// SetIfOwned replaces the pair only while owner is still the stored
	// refresh token, and reports whether it did. An empty owner never matches.
	SetIfOwned(owner string, creds Credentials) (bool, error)
	// ClearIfOwned clears the pair only while owner is still the stored
	// refresh token, and reports whether the store was left empty by it. An
	// empty owner matches an empty store.
	ClearIfOwned(owner string) (bool, error)
}

// DeviceIdentity is implemented by stores that can keep a stable per-install
// identifier used as part of the device fingerprint.
type DeviceIdentity interface {
	DeviceID() (string, error)
}
