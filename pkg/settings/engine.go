// Package settings resolves layered configuration into immutable snapshots
// and keeps a live handle current as source files change.
//
// Resolution merges loaders in order (later loaders win), decrypts ENC(...)
// values, resolves identifier aliases, optionally interpolates ${NAME}
// references and validates the result. Any failure yields no snapshot.
package settings

import (
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/russellromney/confidant/internal/crypto"
	"github.com/russellromney/confidant/internal/resolver"
	"github.com/russellromney/confidant/pkg/loader"
)

// Resolution stages reported by ResolveError
const (
	StageLoad        = "load"
	StageDecrypt     = "decrypt"
	StageIdentifier  = "identifier"
	StageInterpolate = "interpolate"
	StageValidate    = "validate"
	StageDecode      = "decode"
)

// ResolveError wraps the failure of one resolution stage
type ResolveError struct {
	Stage string
	Err   error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolve settings (%s): %v", e.Stage, e.Err)
}

func (e *ResolveError) Unwrap() error { return e.Err }

// Engine turns an ordered list of loaders into snapshots
type Engine struct {
	Loaders []loader.Loader
	// Schema is optional; when it implements Aliaser its aliases are resolved
	Schema Schema
	// Keys is consulted only when at least one wrapped value is present
	Keys crypto.KeySource
	// Interpolate enables ${NAME} references between top-level fields
	Interpolate bool
	Logger      *zap.Logger
}

func (e *Engine) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

// Resolve runs a full resolution and returns a snapshot numbered
// previousVersion+1. On error no snapshot is returned.
func (e *Engine) Resolve(previousVersion int) (*Snapshot, error) {
	merged := make(map[string]any)
	sources := make([]string, 0, len(e.Loaders))

	for _, l := range e.Loaders {
		m, err := l.Load()
		if err != nil {
			return nil, &ResolveError{Stage: StageLoad, Err: err}
		}
		for k, v := range m {
			merged[k] = v
		}
		sources = append(sources, l.Describe())
	}

	fields, err := e.decrypt(merged)
	if err != nil {
		return nil, &ResolveError{Stage: StageDecrypt, Err: err}
	}

	fields, err = e.resolveAliases(fields)
	if err != nil {
		return nil, &ResolveError{Stage: StageIdentifier, Err: err}
	}

	if e.Interpolate {
		fields, err = resolver.Interpolate(fields)
		if err != nil {
			return nil, &ResolveError{Stage: StageInterpolate, Err: err}
		}
	}

	if e.Schema != nil {
		if err := e.Schema.Validate(fields); err != nil {
			return nil, &ResolveError{Stage: StageValidate, Err: err}
		}
	}

	snap := &Snapshot{
		fields:   fields,
		version:  previousVersion + 1,
		loadedAt: time.Now(),
		sources:  sources,
	}
	e.logger().Debug("settings resolved",
		zap.Int("version", snap.version),
		zap.Int("fields", len(fields)),
		zap.Strings("sources", sources),
	)
	return snap, nil
}

// decrypt replaces every wrapped value with its plaintext. Top-level
// values that were encrypted become Secrets.
func (e *Engine) decrypt(fields map[string]any) (map[string]any, error) {
	if !containsWrapped(fields) {
		return fields, nil
	}

	if e.Keys == nil {
		return nil, crypto.ErrKeyMissing
	}
	key, err := e.Keys()
	if err != nil {
		return nil, err
	}

	out, errs := crypto.DecryptAll(fields, key)
	for k, v := range fields {
		switch val := v.(type) {
		case string:
			if out != nil && crypto.IsWrapped(val) {
				out[k] = NewSecret(out[k].(string))
			}
		case Secret:
			if !crypto.IsWrapped(val.value) {
				continue
			}
			plain, err := crypto.DecryptValue(val.value, key)
			if err != nil {
				errs = multierr.Append(errs, &crypto.FieldError{Path: k, Err: err})
				continue
			}
			if out != nil {
				out[k] = Secret{value: plain, Identifier: val.Identifier}
			}
		}
	}
	if errs != nil {
		return nil, errs
	}
	return out, nil
}

func containsWrapped(v any) bool {
	switch val := v.(type) {
	case string:
		return crypto.IsWrapped(val)
	case Secret:
		return crypto.IsWrapped(val.value)
	case map[string]any:
		for _, item := range val {
			if containsWrapped(item) {
				return true
			}
		}
	case map[any]any:
		for _, item := range val {
			if containsWrapped(item) {
				return true
			}
		}
	case []any:
		for _, item := range val {
			if containsWrapped(item) {
				return true
			}
		}
	}
	return false
}

// resolveAliases applies schema aliases and Secret identifiers. A Secret
// alias stays a Secret after resolution.
func (e *Engine) resolveAliases(fields map[string]any) (map[string]any, error) {
	aliases := make(map[string]string)
	if a, ok := e.Schema.(Aliaser); ok {
		for field, id := range a.Aliases() {
			aliases[field] = id
		}
	}
	secretAliases := make(map[string]bool)
	for k, v := range fields {
		if s, ok := v.(Secret); ok && s.Identifier != "" {
			aliases[k] = s.Identifier
			secretAliases[k] = true
		}
	}
	if len(aliases) == 0 {
		return fields, nil
	}

	out, err := resolver.ResolveIdentifiers(fields, aliases)
	if err != nil {
		return nil, err
	}
	for k := range secretAliases {
		switch v := out[k].(type) {
		case Secret:
			out[k] = Secret{value: v.value}
		case string:
			out[k] = NewSecret(v)
		case nil, map[string]any, map[any]any, []any:
		default:
			out[k] = NewSecret(fmt.Sprint(v))
		}
	}
	return out, nil
}
