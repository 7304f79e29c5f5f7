package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/russellromney/confidant/internal/config"
	"github.com/russellromney/confidant/internal/crypto"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show project status",
	Long: `Show the project name, current environment, environments and their
versions, and where the master key will be read from.

Example:
  confidant status`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	fmt.Printf("Project directory: %s\n", cfg.Dir)

	if !cfg.Exists() {
		fmt.Println("Status: Not initialized")
		fmt.Println("\nRun 'confidant init' to create a project.")
		return nil
	}

	p, err := newProject(cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	meta, err := p.store.Metadata()
	if err != nil {
		return err
	}

	fmt.Printf("Project: %s\n", meta.ProjectName)
	fmt.Printf("Created: %s\n", meta.CreatedAt.Local().Format(time.RFC3339))
	fmt.Printf("Current environment: %s\n", accent(meta.CurrentEnv))

	envs, err := p.store.ListEnvironments()
	if err != nil {
		return err
	}
	fmt.Println("Environments:")
	for _, e := range envs {
		marker := " "
		if e.Current {
			marker = "*"
		}
		fmt.Printf("  %s %s (%d versions)\n", marker, e.Name, len(e.Versions))
	}

	// Show master key source
	switch {
	case cfg.HasEnvMasterKey():
		fmt.Printf("Master key: %s\n", config.MasterKeyEnv)
	case crypto.HasKeyInKeychain(cfg.KeychainAccount):
		fmt.Println("Master key: OS keychain")
	default:
		fmt.Printf("Master key: %s\n", warning("not configured"))
	}

	return nil
}
