// Package loader provides the sources a settings engine merges: the process
// environment, JSON, YAML and dotenv files, and in-memory mappings.
//
// The set of loaders is closed. Each returns a fresh mapping on every Load;
// file loaders treat a missing file as an empty mapping.
package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/russellromney/confidant/internal/format"
)

// Loader produces one layer of raw settings
type Loader interface {
	Load() (map[string]any, error)
	Describe() string
}

// FileLoader is a Loader backed by a single file
type FileLoader interface {
	Loader
	Path() string
}

// Error reports a loader failure
type Error struct {
	Source string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("load %s: %v", e.Source, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

type fileLoader struct {
	path   string
	format format.Format
}

// JSONFile loads a JSON object from path
func JSONFile(path string) FileLoader {
	return &fileLoader{path: path, format: format.JSON}
}

// YAMLFile loads a YAML mapping from path
func YAMLFile(path string) FileLoader {
	return &fileLoader{path: path, format: format.YAML}
}

// TOMLFile loads a TOML document from path
func TOMLFile(path string) FileLoader {
	return &fileLoader{path: path, format: format.TOML}
}

// DotenvFile loads KEY=VALUE lines from path
func DotenvFile(path string) FileLoader {
	return &fileLoader{path: path, format: format.Dotenv}
}

// File picks the loader variant from the file extension
func File(path string) (FileLoader, error) {
	f, err := format.Detect(path)
	if err != nil {
		return nil, err
	}
	return &fileLoader{path: path, format: f}, nil
}

func (l *fileLoader) Path() string { return l.path }

func (l *fileLoader) Describe() string {
	switch l.format {
	case format.JSON:
		return "JSON file: " + l.path
	case format.YAML:
		return "YAML file: " + l.path
	case format.TOML:
		return "TOML file: " + l.path
	default:
		return "dotenv file: " + l.path
	}
}

func (l *fileLoader) Load() (map[string]any, error) {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, &Error{Source: l.Describe(), Err: err}
	}

	m, err := format.Decode(data, l.format)
	if err != nil {
		return nil, &Error{Source: l.Describe(), Err: err}
	}
	return m, nil
}

type systemEnv struct {
	environ func() []string
}

// SystemEnv loads the process environment. It never fails.
func SystemEnv() Loader {
	return &systemEnv{environ: os.Environ}
}

func (l *systemEnv) Describe() string { return "system environment variables" }

func (l *systemEnv) Load() (map[string]any, error) {
	env := l.environ()
	out := make(map[string]any, len(env))
	for _, kv := range env {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				if i > 0 {
					out[kv[:i]] = kv[i+1:]
				}
				break
			}
		}
	}
	return out, nil
}

type static struct {
	name string
	data map[string]any
}

// Static returns a loader over an in-memory mapping. Values may be raw
// values such as settings.Secret; they are passed through untouched.
func Static(name string, data map[string]any) Loader {
	return &static{name: name, data: data}
}

func (l *static) Describe() string { return "static: " + l.name }

func (l *static) Load() (map[string]any, error) {
	out := make(map[string]any, len(l.data))
	for k, v := range l.data {
		out[k] = v
	}
	return out, nil
}

// Paths returns the distinct file paths behind loaders, in load order.
// Paths are compared after filepath.Clean.
func Paths(loaders []Loader) []string {
	seen := make(map[string]bool)
	var paths []string
	for _, l := range loaders {
		fl, ok := l.(FileLoader)
		if !ok {
			continue
		}
		p := filepath.Clean(fl.Path())
		if seen[p] {
			continue
		}
		seen[p] = true
		paths = append(paths, p)
	}
	return paths
}
