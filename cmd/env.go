package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/rodaine/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Manage environments",
	Long: `Manage environments within the project.

Each environment has its own active config and named versions.
The 'default' environment always exists and cannot be deleted.

Examples:
  confidant env create staging
  confidant env use staging
  confidant env list
  confidant env delete staging`,
}

var envCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new environment",
	Long: `Create a new environment with an empty active config.

Example:
  confidant env create staging
  confidant env create prod`,
	Args: cobra.ExactArgs(1),
	RunE: runEnvCreate,
}

var envUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Switch the current environment",
	Long: `Make an existing environment the current one. Commands that take
--env default to the current environment.

Example:
  confidant env use prod`,
	Args: cobra.ExactArgs(1),
	RunE: runEnvUse,
}

var envListCmd = &cobra.Command{
	Use:   "list",
	Short: "List environments",
	RunE:  runEnvList,
}

var envDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete an environment",
	Long: `Delete an environment, its active config and all its versions.

This action is irreversible. Use --force to skip confirmation.

Example:
  confidant env delete staging
  confidant env delete staging --force`,
	Args: cobra.ExactArgs(1),
	RunE: runEnvDelete,
}

var envShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show an environment's active config",
	Long: `Print the active config of an environment (default: current).
Encrypted values are printed as stored.

Example:
  confidant env show
  confidant env show prod`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEnvShow,
}

var envForce bool

func init() {
	rootCmd.AddCommand(envCmd)
	envCmd.AddCommand(envCreateCmd)
	envCmd.AddCommand(envUseCmd)
	envCmd.AddCommand(envListCmd)
	envCmd.AddCommand(envDeleteCmd)
	envCmd.AddCommand(envShowCmd)

	envDeleteCmd.Flags().BoolVarP(&envForce, "force", "f", false, "Skip confirmation")
}

func runEnvCreate(cmd *cobra.Command, args []string) error {
	p, err := openProject(cmd)
	if err != nil {
		return err
	}
	defer p.Close()

	name := args[0]
	if err := p.store.CreateEnvironment(name); err != nil {
		return err
	}

	fmt.Printf("%s Created environment '%s'\n", success("✓"), name)
	return nil
}

func runEnvUse(cmd *cobra.Command, args []string) error {
	p, err := openProject(cmd)
	if err != nil {
		return err
	}
	defer p.Close()

	if err := p.store.UseEnvironment(args[0]); err != nil {
		return err
	}

	fmt.Printf("%s Switched to environment '%s'\n", success("✓"), args[0])
	return nil
}

func runEnvList(cmd *cobra.Command, args []string) error {
	p, err := openProject(cmd)
	if err != nil {
		return err
	}
	defer p.Close()

	envs, err := p.store.ListEnvironments()
	if err != nil {
		return err
	}

	headerFmt := color.New(color.FgGreen, color.Underline).SprintfFunc()
	columnFmt := color.New(color.FgYellow).SprintfFunc()

	tbl := table.New("Name", "Current", "Versions", "Config")
	tbl.WithHeaderFormatter(headerFmt).WithFirstColumnFormatter(columnFmt)
	tbl.WithWriter(os.Stdout)

	for _, e := range envs {
		current := ""
		if e.Current {
			current = "*"
		}
		tbl.AddRow(e.Name, current, len(e.Versions), e.ConfigPath)
	}
	tbl.Print()
	return nil
}

func runEnvDelete(cmd *cobra.Command, args []string) error {
	p, err := openProject(cmd)
	if err != nil {
		return err
	}
	defer p.Close()

	name := args[0]

	// Validate before asking
	if _, err := p.store.Environment(name); err != nil && name != "default" {
		return err
	}

	if !envForce && name != "default" {
		fmt.Printf("Delete environment '%s' and all its versions? [y/N] ", name)
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Cancelled")
			return nil
		}
	}

	if err := p.store.DeleteEnvironment(name); err != nil {
		return err
	}

	fmt.Printf("%s Deleted environment '%s'\n", success("✓"), name)
	return nil
}

func runEnvShow(cmd *cobra.Command, args []string) error {
	p, err := openProject(cmd)
	if err != nil {
		return err
	}
	defer p.Close()

	var name string
	if len(args) == 1 {
		name = args[0]
	}
	name, err = p.envOrCurrent(name)
	if err != nil {
		return err
	}

	data, err := p.store.ActiveConfig(name)
	if err != nil {
		return err
	}

	fmt.Printf("# %s\n", accent(name))
	if len(data) == 0 {
		fmt.Println("# (empty)")
		return nil
	}
	out, err := yaml.Marshal(data)
	if err != nil {
		return err
	}
	fmt.Print(string(out))
	return nil
}
