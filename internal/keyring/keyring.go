package keyring

import (
	"errors"

	"github.com/zalando/go-keyring"
)

const serviceName = "sealpost"

// ErrNotFound is returned when no passphrase is stored for a store ID.
var ErrNotFound = keyring.ErrNotFound

// SavePassphrase stores a passphrase in the OS keyring under the store ID
func SavePassphrase(storeID string, passphrase []byte) error {
	return keyring.Set(serviceName, storeID, string(passphrase))
}

// GetPassphrase retrieves a passphrase from the OS keyring
func GetPassphrase(storeID string) ([]byte, error) {
	secret, err := keyring.Get(serviceName, storeID)
	if err != nil {
		return nil, err
	}
	return []byte(secret), nil
}

// DeletePassphrase removes a passphrase from the OS keyring.
// Deleting a missing entry is not an error.
func DeletePassphrase(storeID string) error {
	if err := keyring.Delete(serviceName, storeID); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}
	return nil
}

// HasPassphrase checks if a passphrase is stored in the keyring
func HasPassphrase(storeID string) bool {
	_, err := keyring.Get(serviceName, storeID)
	return err == nil
}
