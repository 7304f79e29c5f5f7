package cmd

import (
	"errors"

	"github.com/russellromney/confidant/internal/crypto"
	"github.com/russellromney/confidant/internal/resolver"
	"github.com/russellromney/confidant/internal/store"
	"github.com/russellromney/confidant/pkg/settings"
)

// Exit codes, one per error category
const (
	ExitOK                   = 0
	ExitError                = 1
	ExitNotFound             = 2
	ExitAlreadyExists        = 3
	ExitProtected            = 4
	ExitKeyMissing           = 5
	ExitInvalidCiphertext    = 6
	ExitValidation           = 7
	ExitIdentifierUnresolved = 8
	ExitSourceMissing        = 9
)

func exitCode(err error) int {
	var valErr *settings.ValidationError
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, crypto.ErrKeyMissing), errors.Is(err, crypto.ErrInvalidKeyLength):
		return ExitKeyMissing
	case errors.Is(err, crypto.ErrInvalidCiphertext), errors.Is(err, crypto.ErrMalformedLiteral):
		return ExitInvalidCiphertext
	case errors.Is(err, resolver.ErrIdentifierUnresolved):
		return ExitIdentifierUnresolved
	case errors.As(err, &valErr):
		return ExitValidation
	case errors.Is(err, store.ErrProtected):
		return ExitProtected
	case errors.Is(err, store.ErrAlreadyExists):
		return ExitAlreadyExists
	case errors.Is(err, store.ErrSourceMissing):
		return ExitSourceMissing
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrNotInitialized):
		return ExitNotFound
	}
	return ExitError
}
