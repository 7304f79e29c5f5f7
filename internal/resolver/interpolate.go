// Package resolver rewrites field values that point at other fields of the
// same mapping: identifier aliases and ${NAME} interpolation.
package resolver

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// refPattern matches ${NAME} references
	refPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)
	// maxDepth prevents infinite recursion in circular references
	maxDepth = 10
)

// ErrCircularReference is returned when fields reference each other in a cycle
type ErrCircularReference struct {
	Key  string
	Path []string
}

func (e *ErrCircularReference) Error() string {
	return fmt.Sprintf("circular reference detected for '%s': %s", e.Key, strings.Join(e.Path, " -> "))
}

// ErrUnresolvedReference is returned when a referenced field doesn't exist
type ErrUnresolvedReference struct {
	Key       string
	Reference string
}

func (e *ErrUnresolvedReference) Error() string {
	return fmt.Sprintf("unresolved reference in '%s': ${%s} not found", e.Key, e.Reference)
}

// Interpolate replaces ${NAME} references inside top-level string values with
// the value of the top-level field NAME. Scalars are formatted with fmt;
// references to nested mappings or lists are unresolved.
// Returns a new map; nested values are shared with the input.
func Interpolate(fields map[string]any) (map[string]any, error) {
	resolved := make(map[string]any, len(fields))
	cache := make(map[string]string)

	for key, v := range fields {
		s, ok := v.(string)
		if !ok || !HasReferences(s) {
			resolved[key] = v
			continue
		}
		value, err := resolveValue(key, fields, cache, nil, 0)
		if err != nil {
			return nil, err
		}
		resolved[key] = value
	}

	return resolved, nil
}

// resolveValue resolves a single field, following references recursively
func resolveValue(key string, fields map[string]any, cache map[string]string, path []string, depth int) (string, error) {
	if depth > maxDepth {
		return "", &ErrCircularReference{Key: key, Path: append(path, key)}
	}
	for _, p := range path {
		if p == key {
			return "", &ErrCircularReference{Key: key, Path: append(path, key)}
		}
	}
	if v, ok := cache[key]; ok {
		return v, nil
	}

	value, ok := scalar(fields[key])
	if !ok {
		return "", &ErrUnresolvedReference{Key: path[len(path)-1], Reference: key}
	}

	matches := refPattern.FindAllStringSubmatch(value, -1)
	if len(matches) == 0 {
		return value, nil
	}

	result := value
	newPath := append(path, key)

	for _, match := range matches {
		fullMatch := match[0]
		refKey := match[1]

		if _, ok := scalar(fields[refKey]); !ok {
			return "", &ErrUnresolvedReference{Key: key, Reference: refKey}
		}

		resolvedRef, err := resolveValue(refKey, fields, cache, newPath, depth+1)
		if err != nil {
			return "", err
		}
		result = strings.Replace(result, fullMatch, resolvedRef, 1)
	}

	cache[key] = result
	return result, nil
}

func scalar(v any) (string, bool) {
	switch t := v.(type) {
	case nil, map[string]any, map[any]any, []any:
		return "", false
	case string:
		return t, true
	case interface{ Reveal() string }:
		return t.Reveal(), true
	default:
		return fmt.Sprint(t), true
	}
}

// HasReferences checks if a value contains any ${NAME} references
func HasReferences(value string) bool {
	return refPattern.MatchString(value)
}

// GetReferences extracts all referenced field names from a value
func GetReferences(value string) []string {
	matches := refPattern.FindAllStringSubmatch(value, -1)
	refs := make([]string, 0, len(matches))
	for _, match := range matches {
		refs = append(refs, match[1])
	}
	return refs
}
