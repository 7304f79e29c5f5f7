package crypto

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const (
	wrapPrefix = "ENC("
	wrapSuffix = ")"
)

var (
	// ErrMalformedLiteral is returned when a value is not of the form ENC(<payload>)
	ErrMalformedLiteral = errors.New("malformed literal: expected ENC(...)")
	// ErrInvalidCiphertext is returned when a payload cannot be authenticated with the key
	ErrInvalidCiphertext = errors.New("invalid ciphertext: check your master key")
)

// IsWrapped reports whether s is an encrypted literal: the ENC( prefix,
// the ) suffix and a non-empty payload without parentheses.
func IsWrapped(s string) bool {
	if len(s) <= len(wrapPrefix)+len(wrapSuffix) {
		return false
	}
	if !strings.HasPrefix(s, wrapPrefix) || !strings.HasSuffix(s, wrapSuffix) {
		return false
	}
	payload := s[len(wrapPrefix) : len(s)-len(wrapSuffix)]
	return !strings.ContainsAny(payload, "()")
}

// EncryptValue encrypts plaintext and returns it wrapped as ENC(<payload>).
// The payload is the URL-safe base64 encoding of nonce || ciphertext.
func EncryptValue(plaintext string, key []byte) (string, error) {
	ciphertext, nonce, err := Encrypt(key, []byte(plaintext), nil)
	if err != nil {
		return "", err
	}

	payload := make([]byte, 0, len(nonce)+len(ciphertext))
	payload = append(payload, nonce...)
	payload = append(payload, ciphertext...)

	return wrapPrefix + base64.URLEncoding.EncodeToString(payload) + wrapSuffix, nil
}

// DecryptValue unwraps and decrypts an ENC(...) literal.
func DecryptValue(literal string, key []byte) (string, error) {
	if !IsWrapped(literal) {
		return "", ErrMalformedLiteral
	}
	if len(key) == 0 {
		return "", ErrKeyMissing
	}

	encoded := literal[len(wrapPrefix) : len(literal)-len(wrapSuffix)]
	payload, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: payload is not base64", ErrInvalidCiphertext)
	}
	if len(payload) <= NonceLength {
		return "", fmt.Errorf("%w: payload too short", ErrInvalidCiphertext)
	}

	plaintext, err := Decrypt(key, payload[NonceLength:], payload[:NonceLength], nil)
	if err != nil {
		if errors.Is(err, ErrDecryptionFailed) {
			return "", ErrInvalidCiphertext
		}
		return "", err
	}
	return string(plaintext), nil
}
