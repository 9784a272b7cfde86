package credential

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "prop-ie"

// TokenKey is the keyring key holding the signed-in user's access token.
const TokenKey = "access_token"

// ErrNotFound is returned by Get when no credential is stored under a key.
var ErrNotFound = errors.New("credential not found")

// Keyring stores credentials in the operating system's secret store.
type Keyring struct {
	ring keyring.Keyring
}

// Open returns a Keyring backed by the first available system backend.
func Open() (*Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/prop-ie/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("prop-ie-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return New(ring), nil
}

// New wraps an already opened keyring.
func New(ring keyring.Keyring) *Keyring {
	return &Keyring{ring: ring}
}

// Get retrieves a credential value by key.
func (k *Keyring) Get(key string) (string, error) {
	item, err := k.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a credential value by key.
func (k *Keyring) Set(key string, value string) error {
	err := k.ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: serviceName + " " + key,
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Delete removes a credential by key. Removing a missing key is not an error.
func (k *Keyring) Delete(key string) error {
	err := k.ring.Remove(key)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}

	return nil
}
