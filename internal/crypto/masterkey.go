package crypto

import (
	"errors"
	"fmt"
)

// KeySource fetches master key bytes from wherever they are configured.
type KeySource func() ([]byte, error)

// StaticKeySource always returns key. An empty key reports ErrKeyMissing.
func StaticKeySource(key []byte) KeySource {
	return func() ([]byte, error) {
		if len(key) == 0 {
			return nil, ErrKeyMissing
		}
		return key, nil
	}
}

// EnvKeySource reads the textual master key through lookup, which is usually
// os.LookupEnv or a viper getter bound to the same variable.
func EnvKeySource(name string, lookup func(string) (string, bool)) KeySource {
	return func() ([]byte, error) {
		value, ok := lookup(name)
		if !ok || value == "" {
			return nil, fmt.Errorf("%w: set %s", ErrKeyMissing, name)
		}
		key, err := ParseKey(value)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", name, err)
		}
		return key, nil
	}
}

// KeychainKeySource reads the master key from the OS keychain.
func KeychainKeySource(account string) KeySource {
	return func() ([]byte, error) {
		if !KeychainAvailable() {
			return nil, ErrKeyMissing
		}
		return GetKeyFromKeychain(account)
	}
}

// FirstKeySource tries each source in order and returns the first key found.
// Only ErrKeyMissing moves on to the next source; any other error is returned.
func FirstKeySource(sources ...KeySource) KeySource {
	return func() ([]byte, error) {
		for _, src := range sources {
			key, err := src()
			if err == nil {
				return key, nil
			}
			if !errors.Is(err, ErrKeyMissing) {
				return nil, err
			}
		}
		return nil, ErrKeyMissing
	}
}
