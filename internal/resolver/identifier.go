package resolver

import (
	"errors"
	"fmt"
	"sort"
)

// ErrIdentifierUnresolved is returned when an aliased field names a key that
// is absent from the mapping.
var ErrIdentifierUnresolved = errors.New("identifier unresolved")

// IdentifierError reports the aliased field and the identifier it points at
type IdentifierError struct {
	Field      string
	Identifier string
}

func (e *IdentifierError) Error() string {
	return fmt.Sprintf("field '%s': identifier '%s' not found", e.Field, e.Identifier)
}

func (e *IdentifierError) Unwrap() error {
	return ErrIdentifierUnresolved
}

// ResolveIdentifiers replaces every field in aliases (field -> identifier)
// with the value found at its identifier key. Aliases may chain; cycles are
// reported as *ErrCircularReference.
func ResolveIdentifiers(fields map[string]any, aliases map[string]string) (map[string]any, error) {
	out := make(map[string]any, len(fields)+len(aliases))
	for k, v := range fields {
		out[k] = v
	}

	// Sorted for deterministic error reporting
	names := make([]string, 0, len(aliases))
	for field := range aliases {
		names = append(names, field)
	}
	sort.Strings(names)

	for _, field := range names {
		v, err := follow(field, fields, aliases, nil)
		if err != nil {
			return nil, err
		}
		out[field] = v
	}
	return out, nil
}

func follow(field string, fields map[string]any, aliases map[string]string, path []string) (any, error) {
	for _, p := range path {
		if p == field {
			return nil, &ErrCircularReference{Key: field, Path: append(path, field)}
		}
	}

	id, aliased := aliases[field]
	if !aliased {
		return fields[field], nil
	}
	if id == field {
		return nil, &ErrCircularReference{Key: field, Path: []string{field, field}}
	}
	if _, ok := fields[id]; !ok {
		if _, chained := aliases[id]; !chained {
			return nil, &IdentifierError{Field: field, Identifier: id}
		}
	}
	return follow(id, fields, aliases, append(path, field))
}
