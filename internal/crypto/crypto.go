package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const (
	// KeyLength is the length of the master key in bytes (256 bits)
	KeyLength = 32
	// NonceLength is the length of the GCM nonce in bytes (96 bits)
	NonceLength = 12
	// SaltLength is the length of the salt for key derivation in bytes
	SaltLength = 16
)

var (
	// ErrKeyMissing is returned when no master key is available
	ErrKeyMissing = errors.New("master key not found")
	// ErrInvalidKeyLength is returned when the key is not the correct length
	ErrInvalidKeyLength = errors.New("invalid key length: must be 32 bytes")
	// ErrInvalidNonceLength is returned when the nonce is not the correct length
	ErrInvalidNonceLength = errors.New("invalid nonce length: must be 12 bytes")
	// ErrDecryptionFailed is returned when GCM authentication fails (wrong key or corrupted data)
	ErrDecryptionFailed = errors.New("decryption failed: wrong key or corrupted data")
)

// GenerateKey generates a random 256-bit master key
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeyLength)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return key, nil
}

// GenerateSalt generates a random salt for key derivation
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// GenerateNonce generates a random nonce for GCM encryption
func GenerateNonce() ([]byte, error) {
	nonce := make([]byte, NonceLength)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return nonce, nil
}

// EncodeKey renders a raw key in the textual form accepted by ParseKey.
func EncodeKey(key []byte) string {
	return base64.URLEncoding.EncodeToString(key)
}

// ParseKey decodes a textual master key. Standard and URL-safe base64 are
// accepted, with or without padding.
func ParseKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrKeyMissing
	}

	encodings := []*base64.Encoding{
		base64.URLEncoding,
		base64.StdEncoding,
		base64.RawURLEncoding,
		base64.RawStdEncoding,
	}
	for _, enc := range encodings {
		key, err := enc.DecodeString(s)
		if err != nil {
			continue
		}
		if len(key) != KeyLength {
			return nil, ErrInvalidKeyLength
		}
		return key, nil
	}
	return nil, fmt.Errorf("master key is not valid base64: %w", ErrInvalidKeyLength)
}

// Encrypt encrypts plaintext using AES-256-GCM with a fresh random nonce.
// The aad (additional authenticated data) is optional and binds the
// ciphertext to a context.
func Encrypt(key, plaintext, aad []byte) (ciphertext, nonce []byte, err error) {
	if len(key) == 0 {
		return nil, nil, ErrKeyMissing
	}
	if len(key) != KeyLength {
		return nil, nil, ErrInvalidKeyLength
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}

	nonce, err = GenerateNonce()
	if err != nil {
		return nil, nil, err
	}

	ciphertext = gcm.Seal(nil, nonce, plaintext, aad)
	return ciphertext, nonce, nil
}

// Decrypt decrypts ciphertext using AES-256-GCM.
// The aad must match what was used during encryption.
func Decrypt(key, ciphertext, nonce, aad []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, ErrKeyMissing
	}
	if len(key) != KeyLength {
		return nil, ErrInvalidKeyLength
	}
	if len(nonce) != NonceLength {
		return nil, ErrInvalidNonceLength
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}
