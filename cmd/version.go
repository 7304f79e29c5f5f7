package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Manage config versions",
	Long: `Manage named versions of an environment's config.

A version is a copy of a config file taken at one point in time.
Promoting a version copies it over the active config; the version is kept.

Examples:
  confidant version create --input config.yaml --name v1
  confidant version list
  confidant version promote v1 --env prod
  confidant version delete v1`,
}

var versionCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Save a file as a named version",
	Long: `Copy a config file into versions/<name>/ of an environment.
An existing version with the same name is replaced.

Example:
  confidant version create --input .confidant/default/config.yaml --name v1`,
	RunE: runVersionCreate,
}

var versionPromoteCmd = &cobra.Command{
	Use:     "promote <name>",
	Aliases: []string{"switch"},
	Short:   "Make a version the active config",
	Long: `Copy a saved version over the active config of an environment.

Example:
  confidant version promote v1
  confidant version switch v1 --env staging`,
	Args: cobra.ExactArgs(1),
	RunE: runVersionPromote,
}

var versionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List versions of an environment",
	RunE:  runVersionList,
}

var versionDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a version",
	Args:  cobra.ExactArgs(1),
	RunE:  runVersionDelete,
}

var (
	versionEnv   string
	versionInput string
	versionName  string
)

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.AddCommand(versionCreateCmd)
	versionCmd.AddCommand(versionPromoteCmd)
	versionCmd.AddCommand(versionListCmd)
	versionCmd.AddCommand(versionDeleteCmd)

	versionCmd.PersistentFlags().StringVarP(&versionEnv, "env", "e", "", "Environment name (default: current)")
	versionCreateCmd.Flags().StringVarP(&versionInput, "input", "i", "", "Config file to save (required)")
	versionCreateCmd.Flags().StringVarP(&versionName, "name", "n", "", "Version name (required)")
	versionCreateCmd.MarkFlagRequired("input")
	versionCreateCmd.MarkFlagRequired("name")
}

func runVersionCreate(cmd *cobra.Command, args []string) error {
	p, err := openProject(cmd)
	if err != nil {
		return err
	}
	defer p.Close()

	env, err := p.envOrCurrent(versionEnv)
	if err != nil {
		return err
	}

	if err := p.store.SnapshotVersion(env, versionName, versionInput); err != nil {
		return err
	}

	fmt.Printf("%s Saved version '%s' in environment '%s'\n", success("✓"), versionName, env)
	return nil
}

func runVersionPromote(cmd *cobra.Command, args []string) error {
	p, err := openProject(cmd)
	if err != nil {
		return err
	}
	defer p.Close()

	env, err := p.envOrCurrent(versionEnv)
	if err != nil {
		return err
	}

	if err := p.store.PromoteVersion(env, args[0]); err != nil {
		return err
	}

	fmt.Printf("%s Promoted version '%s' to active config in '%s'\n", success("✓"), args[0], env)
	return nil
}

func runVersionList(cmd *cobra.Command, args []string) error {
	p, err := openProject(cmd)
	if err != nil {
		return err
	}
	defer p.Close()

	name, err := p.envOrCurrent(versionEnv)
	if err != nil {
		return err
	}
	env, err := p.store.Environment(name)
	if err != nil {
		return err
	}

	if len(env.Versions) == 0 {
		fmt.Printf("No versions saved in '%s' yet\n", name)
		return nil
	}

	fmt.Printf("Versions in '%s':\n", accent(name))
	for _, v := range env.Versions {
		fmt.Printf("  - %s\n", v)
	}
	return nil
}

func runVersionDelete(cmd *cobra.Command, args []string) error {
	p, err := openProject(cmd)
	if err != nil {
		return err
	}
	defer p.Close()

	env, err := p.envOrCurrent(versionEnv)
	if err != nil {
		return err
	}

	if err := p.store.DeleteVersion(env, args[0]); err != nil {
		return err
	}

	fmt.Printf("%s Deleted version '%s' from '%s'\n", success("✓"), args[0], env)
	return nil
}
