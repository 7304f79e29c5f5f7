package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new project",
	Long: `Initialize a confidant project in the current directory.

Creates .confidant/ (or --dir) with meta.yaml and a protected 'default'
environment holding an empty active config and versions/ directory.

Example:
  confidant init
  confidant init --name myapp`,
	RunE: runInit,
}

var initName string

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVarP(&initName, "name", "n", "", "Project name (defaults to the current directory name)")
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	name := initName
	if name == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
		name = filepath.Base(wd)
	}

	p, err := newProject(cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	meta, err := p.store.Init(name)
	if err != nil {
		return err
	}

	fmt.Printf("%s Initialized project '%s' at %s\n", success("✓"), meta.ProjectName, cfg.Dir)
	fmt.Printf("Current environment: %s\n", meta.CurrentEnv)
	fmt.Println("Generate a master key with 'confidant key generate'.")
	return nil
}
