package crypto

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"
)

func TestGenerateKey(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	if len(key) != KeyLength {
		t.Errorf("GenerateKey() length = %d, want %d", len(key), KeyLength)
	}

	// Keys should be unique
	key2, _ := GenerateKey()
	if bytes.Equal(key, key2) {
		t.Error("GenerateKey() generated duplicate keys")
	}
}

func TestGenerateNonce(t *testing.T) {
	nonce, err := GenerateNonce()
	if err != nil {
		t.Fatalf("GenerateNonce() error = %v", err)
	}
	if len(nonce) != NonceLength {
		t.Errorf("GenerateNonce() length = %d, want %d", len(nonce), NonceLength)
	}
}

func TestParseKey(t *testing.T) {
	key, _ := GenerateKey()

	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"url encoding", base64.URLEncoding.EncodeToString(key), nil},
		{"std encoding", base64.StdEncoding.EncodeToString(key), nil},
		{"raw url encoding", base64.RawURLEncoding.EncodeToString(key), nil},
		{"surrounding whitespace", "  " + EncodeKey(key) + "\n", nil},
		{"empty", "", ErrKeyMissing},
		{"short key", base64.StdEncoding.EncodeToString(key[:16]), ErrInvalidKeyLength},
		{"not base64", "this is not a key!", ErrInvalidKeyLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseKey(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseKey() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseKey() error = %v", err)
			}
			if !bytes.Equal(got, key) {
				t.Errorf("ParseKey() = %x, want %x", got, key)
			}
		})
	}
}

func TestEncryptDecrypt(t *testing.T) {
	key, _ := GenerateKey()
	plaintext := []byte("super secret password")
	aad := []byte("DATABASE_URL")

	ciphertext, nonce, err := Encrypt(key, plaintext, aad)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if bytes.Equal(ciphertext, plaintext) {
		t.Error("Encrypt() ciphertext equals plaintext")
	}

	decrypted, err := Decrypt(key, ciphertext, nonce, aad)
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Errorf("Decrypt() = %v, want %v", decrypted, plaintext)
	}
}

func TestDecryptWrongKey(t *testing.T) {
	key1, _ := GenerateKey()
	key2, _ := GenerateKey()

	ciphertext, nonce, _ := Encrypt(key1, []byte("secret"), nil)

	_, err := Decrypt(key2, ciphertext, nonce, nil)
	if err != ErrDecryptionFailed {
		t.Errorf("Decrypt() with wrong key error = %v, want ErrDecryptionFailed", err)
	}
}

func TestEncryptMissingKey(t *testing.T) {
	_, _, err := Encrypt(nil, []byte("secret"), nil)
	if err != ErrKeyMissing {
		t.Errorf("Encrypt() with nil key error = %v, want ErrKeyMissing", err)
	}
}

func TestEncryptInvalidKeyLength(t *testing.T) {
	shortKey := make([]byte, 16)

	_, _, err := Encrypt(shortKey, []byte("secret"), nil)
	if err != ErrInvalidKeyLength {
		t.Errorf("Encrypt() with short key error = %v, want ErrInvalidKeyLength", err)
	}
}

func TestDecryptInvalidNonceLength(t *testing.T) {
	key, _ := GenerateKey()

	_, err := Decrypt(key, []byte("fake ciphertext"), make([]byte, 8), nil)
	if err != ErrInvalidNonceLength {
		t.Errorf("Decrypt() with short nonce error = %v, want ErrInvalidNonceLength", err)
	}
}

func TestDeriveKey(t *testing.T) {
	salt, _ := GenerateSalt()

	key := DeriveKeyWithParams("my-secure-password", salt, 1, 64*1024, 1)
	if len(key) != KeyLength {
		t.Errorf("DeriveKeyWithParams() length = %d, want %d", len(key), KeyLength)
	}

	key2 := DeriveKeyWithParams("my-secure-password", salt, 1, 64*1024, 1)
	if !bytes.Equal(key, key2) {
		t.Error("DeriveKeyWithParams() produced different keys for same inputs")
	}

	key3 := DeriveKeyWithParams("different-password", salt, 1, 64*1024, 1)
	if bytes.Equal(key, key3) {
		t.Error("DeriveKeyWithParams() produced same key for different passwords")
	}

	// Derived keys are usable as master keys
	literal, err := EncryptValue("secret data", key)
	if err != nil {
		t.Fatalf("EncryptValue() with derived key error = %v", err)
	}
	plaintext, err := DecryptValue(literal, key2)
	if err != nil {
		t.Fatalf("DecryptValue() with re-derived key error = %v", err)
	}
	if plaintext != "secret data" {
		t.Errorf("DecryptValue() = %q, want %q", plaintext, "secret data")
	}
}

func BenchmarkEncryptValue(b *testing.B) {
	key, _ := GenerateKey()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		EncryptValue("benchmark secret value", key)
	}
}

func BenchmarkDecryptValue(b *testing.B) {
	key, _ := GenerateKey()
	literal, _ := EncryptValue("benchmark secret value", key)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		DecryptValue(literal, key)
	}
}
