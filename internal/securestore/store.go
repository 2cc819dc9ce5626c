package securestore

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/nerrad567/devicekit/internal/deviceinfo"
)

const (
	hkdfSalt = "devicekit/securestore/v1"
	hkdfInfo = "xchacha20poly1305 item key"
)

// Backend persists sealed items.
type Backend interface {
	Put(ctx context.Context, key string, nonce, ciphertext []byte) error
	Get(ctx context.Context, key string) (nonce, ciphertext []byte, err error)
	Delete(ctx context.Context, key string) error
	Has(ctx context.Context, key string) (bool, error)
}

// Identifier yields the device id. *device.Device satisfies it.
type Identifier interface {
	ID() (string, error)
}

// Store seals values before handing them to a Backend.
type Store struct {
	aead    cipher.AEAD
	backend Backend
}

// New creates a store whose key is derived from secret.
func New(backend Backend, secret []byte) (*Store, error) {
	if len(secret) == 0 {
		return nil, ErrNoSecret
	}
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, []byte(hkdfSalt), []byte(hkdfInfo)), key); err != nil {
		return nil, fmt.Errorf("deriving key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	return &Store{aead: aead, backend: backend}, nil
}

// ForDevice creates a store keyed off the device id. When the id is
// denied or unavailable the fallback secret is used.
func ForDevice(dev Identifier, backend Backend, fallback string) (*Store, error) {
	secret, err := Secret(dev, fallback)
	if err != nil {
		return nil, err
	}
	return New(backend, secret)
}

// Secret picks the key material for dev.
func Secret(dev Identifier, fallback string) ([]byte, error) {
	id, err := dev.ID()
	if err == nil && id != "" {
		return []byte(id), nil
	}
	if fallback != "" {
		return []byte(fallback), nil
	}
	if errors.Is(err, deviceinfo.ErrAccessDenied) {
		return nil, fmt.Errorf("%w: device id access denied and no fallback configured", ErrNoSecret)
	}
	return nil, ErrNoSecret
}

// Store seals data under key.
func (s *Store) Store(ctx context.Context, key string, data []byte) error {
	if key == "" {
		return ErrInvalidKey
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generating nonce: %w", err)
	}
	ct := s.aead.Seal(nil, nonce, data, []byte(key))
	if err := s.backend.Put(ctx, key, nonce, ct); err != nil {
		return fmt.Errorf("storing %q: %w", key, err)
	}
	return nil
}

// Retrieve opens the item under key.
func (s *Store) Retrieve(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}
	nonce, ct, err := s.backend.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	data, err := s.aead.Open(nil, nonce, ct, []byte(key))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrDecrypt, key)
	}
	return data, nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	return s.backend.Delete(ctx, key)
}

// Contains reports whether key exists.
func (s *Store) Contains(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, ErrInvalidKey
	}
	return s.backend.Has(ctx, key)
}
