package securestore

import "errors"

var (
	// ErrNotFound is returned when no item exists under a key.
	ErrNotFound = errors.New("securestore: item not found")

	// ErrNoSecret is returned when neither a device id nor a fallback
	// secret is available.
	ErrNoSecret = errors.New("securestore: no key material available")

	// ErrDecrypt is returned when an item fails authentication.
	ErrDecrypt = errors.New("securestore: item failed authentication")

	// ErrInvalidKey is returned for an empty item key.
	ErrInvalidKey = errors.New("securestore: invalid key")
)
