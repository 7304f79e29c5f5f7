package models

import "time"

// Metadata is the project record persisted at .confidant/meta.yaml.
// It is the single source of truth for which environments exist.
type Metadata struct {
	ProjectName  string    `yaml:"project_name" json:"project_name"`
	CreatedAt    time.Time `yaml:"created_at" json:"created_at"`
	CurrentEnv   string    `yaml:"current_env" json:"current_env"`
	Environments []string  `yaml:"environments" json:"environments"`
}

// HasEnvironment reports whether name is a known environment
func (m *Metadata) HasEnvironment(name string) bool {
	for _, e := range m.Environments {
		if e == name {
			return true
		}
	}
	return false
}

// Environment describes an environment directory on disk
type Environment struct {
	Name        string   `json:"name"`
	Current     bool     `json:"current"`
	ConfigPath  string   `json:"config_path"`  // active config file
	VersionsDir string   `json:"versions_dir"` // holds versions/<name>/config.yaml
	Versions    []string `json:"versions"`
}

// JournalEntry records a mutating store operation
type JournalEntry struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Action       string    `json:"action"`
	Environment  string    `json:"environment,omitempty"`
	Version      string    `json:"version,omitempty"`
	Success      bool      `json:"success"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// Action constants for the journal
const (
	ActionInit              = "init"
	ActionCreateEnvironment = "create-env"
	ActionUseEnvironment    = "use-env"
	ActionDeleteEnvironment = "delete-env"
	ActionCreateVersion     = "create-version"
	ActionPromoteVersion    = "promote-version"
	ActionDeleteVersion     = "delete-version"
	ActionUpdateConfig      = "update-config"
	ActionMigrateKey        = "migrate-key"
)
