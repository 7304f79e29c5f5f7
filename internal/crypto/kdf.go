package crypto

import (
	"golang.org/x/crypto/argon2"
)

// Argon2id parameters for turning a passphrase into a master key.
// See: https://datatracker.ietf.org/doc/html/draft-irtf-cfrg-argon2-13#section-4
const (
	// ArgonTime is the number of iterations
	ArgonTime = 3
	// ArgonMemory is the memory usage in KiB (64 MB)
	ArgonMemory = 64 * 1024
	// ArgonThreads is the number of parallel threads
	ArgonThreads = 4
)

// DeriveKey derives a 256-bit master key from a passphrase using Argon2id.
// The same passphrase and salt always produce the same key.
func DeriveKey(password string, salt []byte) []byte {
	return DeriveKeyWithParams(password, salt, ArgonTime, ArgonMemory, ArgonThreads)
}

// DeriveKeyWithParams derives a key with custom Argon2id parameters.
// Tests use it with cheap parameters.
func DeriveKeyWithParams(password string, salt []byte, time, memory uint32, threads uint8) []byte {
	return argon2.IDKey(
		[]byte(password),
		salt,
		time,
		memory,
		threads,
		KeyLength,
	)
}
