package credential

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/99designs/keyring"
)

const serviceName = "adsdash"

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("credential not found")

// Vault stores secret values by key.
type Vault struct {
	ring keyring.Keyring
}

// Open returns a Vault backed by the system keyring, falling back to an
// encrypted file under dir.
func Open(dir string) (*Vault, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  filepath.Join(dir, "credentials"),
		FilePasswordFunc:         keyring.FixedStringPrompt("adsdash-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return &Vault{ring: ring}, nil
}

// NewMemory returns a Vault that keeps items in process memory.
func NewMemory() *Vault {
	return &Vault{ring: keyring.NewArrayKeyring(nil)}
}

// Get retrieves a credential value by key.
func (v *Vault) Get(key string) ([]byte, error) {
	item, err := v.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting credential %q: %w", key, err)
	}
	return item.Data, nil
}

// Set stores a credential value by key.
func (v *Vault) Set(key string, value []byte) error {
	err := v.ring.Set(keyring.Item{
		Key:   key,
		Data:  value,
		Label: "adsdash " + key,
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}
	return nil
}

