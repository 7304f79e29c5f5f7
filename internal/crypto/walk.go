package crypto

import (
	"fmt"
	"strconv"

	"go.uber.org/multierr"
)

// FieldError ties a codec failure to the dotted path of the field it happened on.
type FieldError struct {
	Path string
	Err  error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field '%s': %v", e.Path, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// FieldErrors returns the per-field failures carried by an aggregate error.
func FieldErrors(err error) []*FieldError {
	var out []*FieldError
	for _, e := range multierr.Errors(err) {
		if fe, ok := e.(*FieldError); ok {
			out = append(out, fe)
		}
	}
	return out
}

// leafFunc transforms one string leaf. It returns the value unchanged when
// the leaf is not of interest.
type leafFunc func(path, value string) (string, error)

// Walk returns a copy of data with fn applied to every string leaf. Nested
// mappings and lists are descended into; other values are copied as-is.
// Failures are collected per field and returned together; when any leaf
// fails the returned mapping is nil.
func Walk(data map[string]any, fn func(path, value string) (string, error)) (map[string]any, error) {
	var errs error
	out := walkMap("", data, leafFunc(fn), &errs)
	if errs != nil {
		return nil, errs
	}
	return out, nil
}

func walkMap(prefix string, m map[string]any, fn leafFunc, errs *error) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = walkValue(joinPath(prefix, k), v, fn, errs)
	}
	return out
}

func walkValue(path string, v any, fn leafFunc, errs *error) any {
	switch val := v.(type) {
	case string:
		res, err := fn(path, val)
		if err != nil {
			*errs = multierr.Append(*errs, &FieldError{Path: path, Err: err})
			return val
		}
		return res
	case map[string]any:
		return walkMap(path, val, fn, errs)
	case map[string]string:
		out := make(map[string]any, len(val))
		for k, s := range val {
			out[k] = walkValue(joinPath(path, k), s, fn, errs)
		}
		return out
	case map[any]any:
		out := make(map[any]any, len(val))
		for k, item := range val {
			out[k] = walkValue(joinPath(path, fmt.Sprint(k)), item, fn, errs)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = walkValue(path+"["+strconv.Itoa(i)+"]", item, fn, errs)
		}
		return out
	default:
		return v
	}
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// EncryptAll encrypts every string leaf that is not already wrapped.
func EncryptAll(data map[string]any, key []byte) (map[string]any, error) {
	return Walk(data, func(_, value string) (string, error) {
		if IsWrapped(value) {
			return value, nil
		}
		return EncryptValue(value, key)
	})
}

// DecryptAll decrypts every wrapped string leaf and leaves the rest untouched.
func DecryptAll(data map[string]any, key []byte) (map[string]any, error) {
	return Walk(data, func(_, value string) (string, error) {
		if !IsWrapped(value) {
			return value, nil
		}
		return DecryptValue(value, key)
	})
}

// Migrate re-encrypts every wrapped leaf from oldKey to newKey.
//
// Migration is all-or-nothing: if any field fails to decrypt under oldKey,
// no mapping is returned and the error lists every failing field.
func Migrate(data map[string]any, oldKey, newKey []byte) (map[string]any, error) {
	if len(oldKey) == 0 || len(newKey) == 0 {
		return nil, ErrKeyMissing
	}
	return Walk(data, func(_, value string) (string, error) {
		if !IsWrapped(value) {
			return value, nil
		}
		plaintext, err := DecryptValue(value, oldKey)
		if err != nil {
			return "", err
		}
		return EncryptValue(plaintext, newKey)
	})
}
