package settings

import (
	"fmt"
	"time"
)

// Snapshot is one fully resolved and validated set of settings.
// It is never modified after construction.
type Snapshot struct {
	fields   map[string]any
	version  int
	loadedAt time.Time
	sources  []string
}

// Fields returns a deep copy of the resolved mapping
func (s *Snapshot) Fields() map[string]any {
	return copyMap(s.fields)
}

// Get returns the value of a top-level field
func (s *Snapshot) Get(key string) (any, bool) {
	v, ok := s.fields[key]
	if !ok {
		return nil, false
	}
	return copyValue(v), true
}

// String returns a top-level field as a string, revealing secrets.
// Missing fields yield "".
func (s *Snapshot) String(key string) string {
	switch v := s.fields[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case Secret:
		return v.Reveal()
	default:
		return fmt.Sprint(v)
	}
}

// Version is 1 for the first resolution and grows by one per successful reload
func (s *Snapshot) Version() int { return s.version }

// LoadedAt is when the snapshot was resolved
func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

// Sources describes the loaders that produced the snapshot, in load order
func (s *Snapshot) Sources() []string {
	return append([]string(nil), s.sources...)
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return copyMap(val)
	case map[any]any:
		out := make(map[any]any, len(val))
		for k, item := range val {
			out[k] = copyValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	default:
		return v
	}
}
