package store

import (
	"errors"
	"fmt"

	"github.com/russellromney/confidant/internal/models"
)

var (
	// ErrNotFound is returned when a requested environment or version doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when trying to create a duplicate
	ErrAlreadyExists = errors.New("already exists")
	// ErrProtected is returned when deleting the default environment
	ErrProtected = errors.New("protected")
	// ErrSourceMissing is returned when a snapshot source file doesn't exist
	ErrSourceMissing = errors.New("source file missing")
	// ErrInvalidName is returned for names that are not a single safe path segment
	ErrInvalidName = errors.New("invalid name")
	// ErrNotInitialized is returned when no project metadata exists
	ErrNotInitialized = errors.New("project not initialized")
)

// Error describes a failed store operation
type Error struct {
	Op   string
	Name string
	Err  error
}

func (e *Error) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s '%s': %v", e.Op, e.Name, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Store defines the versioned environment store
type Store interface {
	// Project operations
	Init(projectName string) (*models.Metadata, error)
	Metadata() (*models.Metadata, error)

	// Environment operations
	CreateEnvironment(name string) error
	UseEnvironment(name string) error
	DeleteEnvironment(name string) error
	ListEnvironments() ([]models.Environment, error)
	Environment(name string) (*models.Environment, error)

	// Version operations
	SnapshotVersion(env, version, source string) error
	PromoteVersion(env, version string) error
	DeleteVersion(env, version string) error
	ListVersions(env string) []string

	// Active config
	ActiveConfig(env string) (map[string]any, error)
	SaveActiveConfig(env string, data map[string]any) error
}

// Journal records store operations
type Journal interface {
	Record(entry *models.JournalEntry) error
	Entries(limit int) ([]models.JournalEntry, error)
	Close() error
}
