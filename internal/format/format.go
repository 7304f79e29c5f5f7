// Package format reads and writes flat or nested configuration mappings in
// the file formats confidant understands: YAML, JSON, TOML and dotenv.
package format

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/subosito/gotenv"
	"gopkg.in/yaml.v3"
)

// Format identifies a file format
type Format string

const (
	YAML   Format = "yaml"
	JSON   Format = "json"
	TOML   Format = "toml"
	Dotenv Format = "env"
)

// ErrUnsupported is returned for files whose format cannot be detected
var ErrUnsupported = errors.New("unsupported file type: use .yaml, .yml, .json, .toml or .env")

// Detect picks the format from the file name.
// Both "app.env" and ".env" / ".env.local" style names are dotenv.
func Detect(path string) (Format, error) {
	base := strings.ToLower(filepath.Base(path))
	switch ext := filepath.Ext(base); {
	case ext == ".yaml" || ext == ".yml":
		return YAML, nil
	case ext == ".json":
		return JSON, nil
	case ext == ".toml":
		return TOML, nil
	case ext == ".env" || base == ".env" || strings.HasPrefix(base, ".env."):
		return Dotenv, nil
	}
	return "", fmt.Errorf("%s: %w", path, ErrUnsupported)
}

// Decode parses data in the given format. Empty input yields an empty mapping.
func Decode(data []byte, f Format) (map[string]any, error) {
	out := map[string]any{}
	if len(bytes.TrimSpace(data)) == 0 {
		return out, nil
	}

	switch f {
	case YAML:
		if err := yaml.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("parse YAML: %w", err)
		}
	case JSON:
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("parse JSON: %w", err)
		}
	case TOML:
		if err := toml.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("parse TOML: %w", err)
		}
	case Dotenv:
		env, err := gotenv.StrictParse(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("parse dotenv: %w", err)
		}
		for k, v := range env {
			out[k] = v
		}
	default:
		return nil, ErrUnsupported
	}

	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

// Encode renders data in the given format.
func Encode(data map[string]any, f Format) ([]byte, error) {
	switch f {
	case YAML:
		return yaml.Marshal(data)
	case JSON:
		b, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	case TOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(data); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case Dotenv:
		env := make(gotenv.Env, len(data))
		for k, v := range data {
			switch v.(type) {
			case map[string]any, map[any]any, []any:
				return nil, fmt.Errorf("dotenv cannot hold nested value for key '%s'", k)
			}
			env[k] = fmt.Sprint(v)
		}
		s, err := gotenv.Marshal(env)
		if err != nil {
			return nil, err
		}
		return []byte(s + "\n"), nil
	}
	return nil, ErrUnsupported
}

// Read loads a file and returns its mapping together with the detected format.
func Read(path string) (map[string]any, Format, error) {
	f, err := Detect(path)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}
	m, err := Decode(data, f)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}
	return m, f, nil
}

// Write serializes data to path in format f, replacing the file atomically.
func Write(path string, data map[string]any, f Format) error {
	b, err := Encode(data, f)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return WriteFileAtomic(path, b, 0600)
}

// WriteFileAtomic writes to a temp file in the same directory, then renames it over path.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Keys returns the top-level keys of m in sorted order.
func Keys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
