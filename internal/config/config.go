package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/russellromney/confidant/internal/crypto"
)

const (
	// DefaultDirName is the project directory created by 'confidant init'
	DefaultDirName = ".confidant"
	// MetaFileName is the project metadata file
	MetaFileName = "meta.yaml"
	// JournalFileName is the SQLite operation journal
	JournalFileName = "journal.db"
	// ConfigFileName is the active config file of every environment and version
	ConfigFileName = "config.yaml"
	// VersionsDirName holds the named snapshots of an environment
	VersionsDirName = "versions"
	// DefaultEnvName is the protected environment every project starts with
	DefaultEnvName = "default"
	// EnvPrefix is the prefix of every environment variable read by confidant
	EnvPrefix = "CONFIDANT"
	// MasterKeyEnv is the environment variable holding the master key
	MasterKeyEnv = EnvPrefix + "_MASTER_KEY"
	// DefaultLogLevel is used when no level is configured
	DefaultLogLevel = "warn"
)

// Config keys understood by viper
const (
	KeyDir       = "dir"
	KeyMasterKey = "master_key"
	KeyLogLevel  = "log_level"
	KeyKeychain  = "keychain_account"
)

// Config holds the runtime configuration for confidant
type Config struct {
	// Dir is the project directory (.confidant)
	Dir string
	// MetaPath is the full path to meta.yaml
	MetaPath string
	// JournalPath is the full path to the operation journal
	JournalPath string
	// LogLevel is the zap level name
	LogLevel string
	// KeychainAccount names the keychain entry holding the master key
	KeychainAccount string

	v *viper.Viper
}

// NewViper returns a viper instance reading CONFIDANT_* variables, bound to
// the given flags when flags is non-nil.
func NewViper(flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyDir, DefaultDirName)
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeyKeychain, crypto.KeychainAccount)

	if flags != nil {
		for key, flag := range map[string]string{KeyDir: "dir", KeyLogLevel: "log-level"} {
			if f := flags.Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", flag, err)
				}
			}
		}
	}
	return v, nil
}

// New creates a Config from environment variables and the given flags
func New(flags *pflag.FlagSet) (*Config, error) {
	v, err := NewViper(flags)
	if err != nil {
		return nil, err
	}
	return FromViper(v), nil
}

// FromViper builds a Config from an existing viper instance
func FromViper(v *viper.Viper) *Config {
	cfg := NewWithDir(v.GetString(KeyDir))
	cfg.LogLevel = v.GetString(KeyLogLevel)
	cfg.KeychainAccount = v.GetString(KeyKeychain)
	cfg.v = v
	return cfg
}

// NewWithDir creates a Config rooted at a custom project directory
func NewWithDir(dir string) *Config {
	if dir == "" {
		dir = DefaultDirName
	}
	return &Config{
		Dir:             dir,
		MetaPath:        filepath.Join(dir, MetaFileName),
		JournalPath:     filepath.Join(dir, JournalFileName),
		LogLevel:        DefaultLogLevel,
		KeychainAccount: crypto.KeychainAccount,
	}
}

// EnsureDir creates the project directory if it doesn't exist
// Sets permissions to 0700 (owner read/write/execute only)
func (c *Config) EnsureDir() error {
	if err := os.MkdirAll(c.Dir, 0700); err != nil {
		return fmt.Errorf("failed to create project directory: %w", err)
	}
	return nil
}

// Exists checks if the project has been initialized
func (c *Config) Exists() bool {
	_, err := os.Stat(c.MetaPath)
	return err == nil
}

// MasterKey returns the configured master key source: the CONFIDANT_MASTER_KEY
// variable first, then the OS keychain.
func (c *Config) MasterKey() crypto.KeySource {
	lookup := func(name string) (string, bool) {
		if c.v != nil {
			if s := c.v.GetString(KeyMasterKey); s != "" {
				return s, true
			}
			return "", false
		}
		return os.LookupEnv(name)
	}
	return crypto.FirstKeySource(
		crypto.EnvKeySource(MasterKeyEnv, lookup),
		crypto.KeychainKeySource(c.KeychainAccount),
	)
}

// HasEnvMasterKey reports whether the master key variable is set
func (c *Config) HasEnvMasterKey() bool {
	if c.v != nil {
		return c.v.GetString(KeyMasterKey) != ""
	}
	return os.Getenv(MasterKeyEnv) != ""
}
