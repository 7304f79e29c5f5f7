package crypto

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	// KeychainService is the service name used in the OS keychain
	KeychainService = "confidant"
	// KeychainAccount is the default account name for the master key
	KeychainAccount = "master-key"
)

// KeychainAvailable checks if the OS keychain is usable
func KeychainAvailable() bool {
	_, err := keyring.Get(KeychainService, "__probe__")
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}

// StoreKeyInKeychain stores the textual master key for account in the OS keychain.
// The key is parsed first so a broken key never ends up in the keychain.
func StoreKeyInKeychain(account, encoded string) error {
	if _, err := ParseKey(encoded); err != nil {
		return err
	}
	if err := keyring.Set(KeychainService, account, encoded); err != nil {
		return fmt.Errorf("failed to store key in keychain: %w", err)
	}
	return nil
}

// GetKeyFromKeychain retrieves the master key for account from the OS keychain
func GetKeyFromKeychain(account string) ([]byte, error) {
	encoded, err := keyring.Get(KeychainService, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, ErrKeyMissing
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key from keychain: %w", err)
	}
	return ParseKey(encoded)
}

// DeleteKeyFromKeychain removes the master key for account from the OS keychain
func DeleteKeyFromKeychain(account string) error {
	err := keyring.Delete(KeychainService, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil // Already deleted, not an error
	}
	if err != nil {
		return fmt.Errorf("failed to delete key from keychain: %w", err)
	}
	return nil
}

// HasKeyInKeychain checks if a key exists in the keychain for account
func HasKeyInKeychain(account string) bool {
	_, err := keyring.Get(KeychainService, account)
	return err == nil
}
