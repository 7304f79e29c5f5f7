package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/russellromney/confidant/internal/config"
	"github.com/russellromney/confidant/internal/format"
	"github.com/russellromney/confidant/internal/models"
)

// FSStore implements Store on a directory tree:
//
//	<dir>/meta.yaml
//	<dir>/<env>/config.yaml
//	<dir>/<env>/versions/<version>/config.yaml
//
// Metadata is read fresh by every operation and replaced atomically.
type FSStore struct {
	dir     string
	journal Journal
	logger  *zap.Logger
}

// Option configures an FSStore
type Option func(*FSStore)

// WithJournal records every mutating operation in j
func WithJournal(j Journal) Option {
	return func(s *FSStore) { s.journal = j }
}

// WithLogger sets the logger used for journal failures
func WithLogger(l *zap.Logger) Option {
	return func(s *FSStore) { s.logger = l }
}

// NewFSStore creates a store rooted at dir
func NewFSStore(dir string, opts ...Option) *FSStore {
	s := &FSStore{dir: dir, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the project directory
func (s *FSStore) Dir() string { return s.dir }

func (s *FSStore) metaPath() string { return filepath.Join(s.dir, config.MetaFileName) }

func (s *FSStore) envDir(env string) string { return filepath.Join(s.dir, env) }

func (s *FSStore) configPath(env string) string {
	return filepath.Join(s.dir, env, config.ConfigFileName)
}

func (s *FSStore) versionsDir(env string) string {
	return filepath.Join(s.dir, env, config.VersionsDirName)
}

func (s *FSStore) versionPath(env, version string) string {
	return filepath.Join(s.versionsDir(env), version, config.ConfigFileName)
}

// validName accepts a single path segment that is not hidden or a reserved file name
func validName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return ErrInvalidName
	case strings.ContainsAny(name, `/\`), strings.HasPrefix(name, "."):
		return ErrInvalidName
	case name == config.MetaFileName, name == config.JournalFileName:
		return ErrInvalidName
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Init creates the project directory, the default environment and meta.yaml
func (s *FSStore) Init(projectName string) (*models.Metadata, error) {
	const op = models.ActionInit
	if exists(s.metaPath()) {
		return nil, s.fail(op, "", "", &Error{Op: op, Name: s.dir, Err: ErrAlreadyExists})
	}

	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return nil, s.fail(op, "", "", fmt.Errorf("failed to create project directory: %w", err))
	}
	if err := s.createEnvTree(config.DefaultEnvName); err != nil {
		return nil, s.fail(op, "", "", err)
	}

	meta := &models.Metadata{
		ProjectName:  projectName,
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
		CurrentEnv:   config.DefaultEnvName,
		Environments: []string{config.DefaultEnvName},
	}
	if err := s.writeMeta(meta); err != nil {
		return nil, s.fail(op, "", "", err)
	}

	s.record(models.ActionInit, config.DefaultEnvName, "", nil)
	return meta, nil
}

// Metadata loads meta.yaml
func (s *FSStore) Metadata() (*models.Metadata, error) {
	data, err := os.ReadFile(s.metaPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil, &Error{Op: "load metadata", Name: s.dir, Err: ErrNotInitialized}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var meta models.Metadata
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}
	if meta.CurrentEnv == "" {
		meta.CurrentEnv = config.DefaultEnvName
	}
	return &meta, nil
}

func (s *FSStore) writeMeta(meta *models.Metadata) error {
	data, err := yaml.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := format.WriteFileAtomic(s.metaPath(), data, 0600); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}

func (s *FSStore) createEnvTree(name string) error {
	if err := os.MkdirAll(s.versionsDir(name), 0700); err != nil {
		return fmt.Errorf("failed to create environment directory: %w", err)
	}
	header := fmt.Sprintf("# Config for %s environment\n", name)
	if err := os.WriteFile(s.configPath(name), []byte(header), 0600); err != nil {
		return fmt.Errorf("failed to create active config: %w", err)
	}
	return nil
}

// CreateEnvironment creates an environment with an empty versions tree
func (s *FSStore) CreateEnvironment(name string) error {
	const op = "create environment"
	if err := validName(name); err != nil {
		return s.fail(models.ActionCreateEnvironment, name, "", &Error{Op: op, Name: name, Err: err})
	}

	meta, err := s.Metadata()
	if err != nil {
		return s.fail(models.ActionCreateEnvironment, name, "", err)
	}
	if meta.HasEnvironment(name) || exists(s.envDir(name)) {
		return s.fail(models.ActionCreateEnvironment, name, "", &Error{Op: op, Name: name, Err: ErrAlreadyExists})
	}

	if err := s.createEnvTree(name); err != nil {
		os.RemoveAll(s.envDir(name))
		return s.fail(models.ActionCreateEnvironment, name, "", err)
	}

	meta.Environments = append(meta.Environments, name)
	if err := s.writeMeta(meta); err != nil {
		os.RemoveAll(s.envDir(name))
		return s.fail(models.ActionCreateEnvironment, name, "", err)
	}

	s.record(models.ActionCreateEnvironment, name, "", nil)
	return nil
}

// UseEnvironment makes name the current environment
func (s *FSStore) UseEnvironment(name string) error {
	meta, err := s.Metadata()
	if err != nil {
		return s.fail(models.ActionUseEnvironment, name, "", err)
	}
	if !meta.HasEnvironment(name) {
		return s.fail(models.ActionUseEnvironment, name, "", &Error{Op: "use environment", Name: name, Err: ErrNotFound})
	}

	meta.CurrentEnv = name
	if err := s.writeMeta(meta); err != nil {
		return s.fail(models.ActionUseEnvironment, name, "", err)
	}

	s.record(models.ActionUseEnvironment, name, "", nil)
	return nil
}

// DeleteEnvironment removes an environment tree and then its metadata entry.
// Deleting the current environment makes default current again.
func (s *FSStore) DeleteEnvironment(name string) error {
	const op = "delete environment"
	if name == config.DefaultEnvName {
		return s.fail(models.ActionDeleteEnvironment, name, "", &Error{Op: op, Name: name, Err: ErrProtected})
	}

	meta, err := s.Metadata()
	if err != nil {
		return s.fail(models.ActionDeleteEnvironment, name, "", err)
	}
	if !meta.HasEnvironment(name) || validName(name) != nil {
		return s.fail(models.ActionDeleteEnvironment, name, "", &Error{Op: op, Name: name, Err: ErrNotFound})
	}

	if err := os.RemoveAll(s.envDir(name)); err != nil {
		return s.fail(models.ActionDeleteEnvironment, name, "", fmt.Errorf("failed to remove environment: %w", err))
	}

	envs := meta.Environments[:0]
	for _, e := range meta.Environments {
		if e != name {
			envs = append(envs, e)
		}
	}
	meta.Environments = envs
	if meta.CurrentEnv == name {
		meta.CurrentEnv = config.DefaultEnvName
	}
	if err := s.writeMeta(meta); err != nil {
		return s.fail(models.ActionDeleteEnvironment, name, "", err)
	}

	s.record(models.ActionDeleteEnvironment, name, "", nil)
	return nil
}

// ListEnvironments returns all environments sorted by name
func (s *FSStore) ListEnvironments() ([]models.Environment, error) {
	meta, err := s.Metadata()
	if err != nil {
		return nil, err
	}

	names := append([]string(nil), meta.Environments...)
	sort.Strings(names)

	envs := make([]models.Environment, 0, len(names))
	for _, name := range names {
		envs = append(envs, s.describe(meta, name))
	}
	return envs, nil
}

// Environment returns one environment with its versions
func (s *FSStore) Environment(name string) (*models.Environment, error) {
	meta, err := s.Metadata()
	if err != nil {
		return nil, err
	}
	if !meta.HasEnvironment(name) {
		return nil, &Error{Op: "get environment", Name: name, Err: ErrNotFound}
	}
	env := s.describe(meta, name)
	return &env, nil
}

func (s *FSStore) describe(meta *models.Metadata, name string) models.Environment {
	return models.Environment{
		Name:        name,
		Current:     meta.CurrentEnv == name,
		ConfigPath:  s.configPath(name),
		VersionsDir: s.versionsDir(name),
		Versions:    s.ListVersions(name),
	}
}

func (s *FSStore) requireEnv(op, env string) error {
	meta, err := s.Metadata()
	if err != nil {
		return err
	}
	if !meta.HasEnvironment(env) {
		return &Error{Op: op, Name: env, Err: ErrNotFound}
	}
	return nil
}

// SnapshotVersion copies source byte-for-byte into versions/<version>/config.yaml,
// replacing an existing version of the same name.
func (s *FSStore) SnapshotVersion(env, version, source string) error {
	const op = "create version"
	if err := validName(version); err != nil {
		return s.fail(models.ActionCreateVersion, env, version, &Error{Op: op, Name: version, Err: err})
	}
	if err := s.requireEnv(op, env); err != nil {
		return s.fail(models.ActionCreateVersion, env, version, err)
	}

	data, err := os.ReadFile(source)
	if errors.Is(err, os.ErrNotExist) {
		return s.fail(models.ActionCreateVersion, env, version, &Error{Op: op, Name: source, Err: ErrSourceMissing})
	}
	if err != nil {
		return s.fail(models.ActionCreateVersion, env, version, fmt.Errorf("failed to read source: %w", err))
	}

	dir := filepath.Dir(s.versionPath(env, version))
	created := !exists(dir)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return s.fail(models.ActionCreateVersion, env, version, fmt.Errorf("failed to create version directory: %w", err))
	}
	if err := format.WriteFileAtomic(s.versionPath(env, version), data, 0600); err != nil {
		if created {
			os.RemoveAll(dir)
		}
		return s.fail(models.ActionCreateVersion, env, version, err)
	}

	s.record(models.ActionCreateVersion, env, version, nil)
	return nil
}

// PromoteVersion copies a version over the active config. The version is kept.
func (s *FSStore) PromoteVersion(env, version string) error {
	const op = "promote version"
	if err := s.requireEnv(op, env); err != nil {
		return s.fail(models.ActionPromoteVersion, env, version, err)
	}
	if validName(version) != nil || !exists(s.versionPath(env, version)) {
		return s.fail(models.ActionPromoteVersion, env, version, &Error{Op: op, Name: version, Err: ErrNotFound})
	}

	data, err := os.ReadFile(s.versionPath(env, version))
	if err != nil {
		return s.fail(models.ActionPromoteVersion, env, version, fmt.Errorf("failed to read version: %w", err))
	}
	if err := format.WriteFileAtomic(s.configPath(env), data, 0600); err != nil {
		return s.fail(models.ActionPromoteVersion, env, version, err)
	}

	s.record(models.ActionPromoteVersion, env, version, nil)
	return nil
}

// DeleteVersion removes a version directory
func (s *FSStore) DeleteVersion(env, version string) error {
	const op = "delete version"
	if err := s.requireEnv(op, env); err != nil {
		return s.fail(models.ActionDeleteVersion, env, version, err)
	}
	dir := filepath.Join(s.versionsDir(env), version)
	if validName(version) != nil || !exists(dir) {
		return s.fail(models.ActionDeleteVersion, env, version, &Error{Op: op, Name: version, Err: ErrNotFound})
	}

	if err := os.RemoveAll(dir); err != nil {
		return s.fail(models.ActionDeleteVersion, env, version, fmt.Errorf("failed to remove version: %w", err))
	}

	s.record(models.ActionDeleteVersion, env, version, nil)
	return nil
}

// ListVersions returns the sorted version names of env; empty when there are none
func (s *FSStore) ListVersions(env string) []string {
	entries, err := os.ReadDir(s.versionsDir(env))
	if err != nil {
		return []string{}
	}
	versions := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			versions = append(versions, e.Name())
		}
	}
	sort.Strings(versions)
	return versions
}

// ActiveConfig parses the active config of env
func (s *FSStore) ActiveConfig(env string) (map[string]any, error) {
	if err := s.requireEnv("read config", env); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.configPath(env))
	if errors.Is(err, os.ErrNotExist) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return format.Decode(data, format.YAML)
}

// SaveActiveConfig replaces the active config of env
func (s *FSStore) SaveActiveConfig(env string, data map[string]any) error {
	if err := s.requireEnv("write config", env); err != nil {
		return s.fail(models.ActionUpdateConfig, env, "", err)
	}
	if err := format.Write(s.configPath(env), data, format.YAML); err != nil {
		return s.fail(models.ActionUpdateConfig, env, "", err)
	}
	s.record(models.ActionUpdateConfig, env, "", nil)
	return nil
}

// ConfigPath returns the active config path of env
func (s *FSStore) ConfigPath(env string) string { return s.configPath(env) }

// fail records a failed operation and returns err unchanged
func (s *FSStore) fail(action, env, version string, err error) error {
	s.record(action, env, version, err)
	return err
}

func (s *FSStore) record(action, env, version string, opErr error) {
	if s.journal == nil {
		return
	}
	entry := &models.JournalEntry{
		Action:      action,
		Environment: env,
		Version:     version,
		Success:     opErr == nil,
	}
	if opErr != nil {
		entry.ErrorMessage = opErr.Error()
	}
	if err := s.journal.Record(entry); err != nil {
		s.logger.Warn("failed to record journal entry", zap.String("action", action), zap.Error(err))
	}
}

// RecordAction journals an operation the CLI performed on files outside the
// store, such as a key migration
func (s *FSStore) RecordAction(action, env, version string, opErr error) {
	s.record(action, env, version, opErr)
}
