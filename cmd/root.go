package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/russellromney/confidant/internal/config"
	"github.com/russellromney/confidant/internal/logging"
	"github.com/russellromney/confidant/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "confidant",
	Short: "Layered settings with encrypted secrets and versioned environments",
	Long: `Confidant manages application settings: it encrypts secret values in
place as ENC(...) literals, keeps one active config per environment with
named versions, and resolves layered sources into validated settings.

The master key is read from CONFIDANT_MASTER_KEY or the OS keychain.

Example workflow:
  confidant init --name myapp              # Create .confidant/ with a default environment
  confidant key generate                   # Print a new master key
  confidant env create staging             # Create an environment
  confidant var add API_KEY s3cr3t --encrypt --env staging
  confidant version create --input .confidant/staging/config.yaml --name v1 --env staging
  confidant resolve --env staging          # Print resolved settings (secrets masked)`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	rootDir      string
	rootLogLevel string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&rootDir, "dir", config.DefaultDirName, "Project directory (env: CONFIDANT_DIR)")
	rootCmd.PersistentFlags().StringVar(&rootLogLevel, "log-level", config.DefaultLogLevel, "Log level: debug, info, warn, error (env: CONFIDANT_LOG_LEVEL)")
}

// Execute runs the root command and exits with a code that identifies the
// error category
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	return config.New(cmd.Flags())
}

func newLogger(cfg *config.Config) *zap.Logger {
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v, logging disabled\n", err)
		return zap.NewNop()
	}
	return logger
}

// project bundles what most commands need
type project struct {
	cfg     *config.Config
	store   *store.FSStore
	journal *store.SQLiteJournal
	logger  *zap.Logger
}

func (p *project) Close() {
	if p.journal != nil {
		p.journal.Close()
	}
	p.logger.Sync()
}

// openProject opens the store of an initialized project
func openProject(cmd *cobra.Command) (*project, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if !cfg.Exists() {
		return nil, &store.Error{Op: "open project", Name: cfg.Dir, Err: fmt.Errorf("%w: run 'confidant init' first", store.ErrNotInitialized)}
	}
	return newProject(cfg)
}

func newProject(cfg *config.Config) (*project, error) {
	logger := newLogger(cfg)

	if err := cfg.EnsureDir(); err != nil {
		return nil, err
	}
	journal, err := store.NewSQLiteJournal(cfg.JournalPath)
	if err != nil {
		logger.Warn("journal unavailable", zap.Error(err))
		journal = nil
	}

	var opts []store.Option
	if journal != nil {
		opts = append(opts, store.WithJournal(journal))
	}
	opts = append(opts, store.WithLogger(logger))

	return &project{
		cfg:     cfg,
		store:   store.NewFSStore(cfg.Dir, opts...),
		journal: journal,
		logger:  logger,
	}, nil
}

// envOrCurrent returns name, or the current environment when name is empty
func (p *project) envOrCurrent(name string) (string, error) {
	if name != "" {
		return name, nil
	}
	meta, err := p.store.Metadata()
	if err != nil {
		return "", err
	}
	return meta.CurrentEnv, nil
}

// masterKey loads the master key or explains where to put it
func masterKey(cfg *config.Config) ([]byte, error) {
	key, err := cfg.MasterKey()()
	if err != nil {
		return nil, fmt.Errorf("%w (set %s or run 'confidant keychain store')", err, config.MasterKeyEnv)
	}
	return key, nil
}

var (
	success = color.New(color.FgGreen).SprintFunc()
	warning = color.New(color.FgYellow).SprintFunc()
	accent  = color.New(color.FgCyan).SprintFunc()
)
