package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/russellromney/confidant/internal/crypto"
	"github.com/russellromney/confidant/internal/format"
	"github.com/russellromney/confidant/internal/store"
)

var varCmd = &cobra.Command{
	Use:   "var",
	Short: "Manage variables in an environment's active config",
	Long: `Add, update, read and delete top-level variables of an environment's
active config. Values given with --encrypt are stored as ENC(...) literals.

Examples:
  confidant var add DATABASE_URL "postgres://..." --env prod
  confidant var add API_KEY --encrypt --env prod       # Prompts for value
  echo "secret" | confidant var update API_KEY --encrypt --stdin
  confidant var get API_KEY
  confidant var list --show-values
  confidant var delete API_KEY`,
}

var varAddCmd = &cobra.Command{
	Use:   "add <KEY> [value]",
	Short: "Add a new variable",
	Long: `Add a variable that does not exist yet.

If no value is provided, you'll be prompted to enter it (hidden input).
Use --stdin to read from stdin (useful for piping).`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runVarAdd,
}

var varUpdateCmd = &cobra.Command{
	Use:   "update <KEY> [value]",
	Short: "Update an existing variable",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runVarUpdate,
}

var varGetCmd = &cobra.Command{
	Use:   "get <KEY>",
	Short: "Print a variable, decrypting it if needed",
	Long: `Print the value of a variable. Encrypted values are decrypted with the
master key.

Example:
  confidant var get DATABASE_URL --env prod
  export API_KEY=$(confidant var get API_KEY)`,
	Args: cobra.ExactArgs(1),
	RunE: runVarGet,
}

var varListCmd = &cobra.Command{
	Use:   "list",
	Short: "List variables",
	Long: `List the variables of an environment's active config.

By default, only key names are shown. Use --show-values to reveal values.`,
	RunE: runVarList,
}

var varDeleteCmd = &cobra.Command{
	Use:   "delete <KEY>",
	Short: "Delete a variable",
	Args:  cobra.ExactArgs(1),
	RunE:  runVarDelete,
}

var (
	varEnv        string
	varEncrypt    bool
	varStdin      bool
	varShowValues bool
)

func init() {
	rootCmd.AddCommand(varCmd)
	varCmd.AddCommand(varAddCmd)
	varCmd.AddCommand(varUpdateCmd)
	varCmd.AddCommand(varGetCmd)
	varCmd.AddCommand(varListCmd)
	varCmd.AddCommand(varDeleteCmd)

	varCmd.PersistentFlags().StringVarP(&varEnv, "env", "e", "", "Environment name (default: current)")
	for _, c := range []*cobra.Command{varAddCmd, varUpdateCmd} {
		c.Flags().BoolVar(&varEncrypt, "encrypt", false, "Store the value encrypted")
		c.Flags().BoolVar(&varStdin, "stdin", false, "Read value from stdin")
	}
	varListCmd.Flags().BoolVar(&varShowValues, "show-values", false, "Show values, decrypting secrets (use with caution)")
}

func runVarAdd(cmd *cobra.Command, args []string) error {
	return setVar(cmd, args, false)
}

func runVarUpdate(cmd *cobra.Command, args []string) error {
	return setVar(cmd, args, true)
}

func setVar(cmd *cobra.Command, args []string, update bool) error {
	key := args[0]
	if !isValidKeyName(key) {
		return fmt.Errorf("invalid key name %q: use letters, digits and underscores, not starting with a digit", key)
	}

	p, err := openProject(cmd)
	if err != nil {
		return err
	}
	defer p.Close()

	env, err := p.envOrCurrent(varEnv)
	if err != nil {
		return err
	}

	data, err := p.store.ActiveConfig(env)
	if err != nil {
		return err
	}

	_, exists := data[key]
	switch {
	case update && !exists:
		return &store.Error{Op: "update variable", Name: key, Err: store.ErrNotFound}
	case !update && exists:
		return &store.Error{Op: "add variable", Name: key, Err: fmt.Errorf("%w: use 'confidant var update'", store.ErrAlreadyExists)}
	}

	value, err := readValue(key, args)
	if err != nil {
		return err
	}

	if varEncrypt {
		encKey, err := masterKey(p.cfg)
		if err != nil {
			return err
		}
		value, err = crypto.EncryptValue(value, encKey)
		if err != nil {
			return fmt.Errorf("failed to encrypt value: %w", err)
		}
	}

	data[key] = value
	if err := p.store.SaveActiveConfig(env, data); err != nil {
		return err
	}

	verb := "Added"
	if update {
		verb = "Updated"
	}
	fmt.Printf("%s %s %s in '%s'\n", success("✓"), verb, key, env)
	return nil
}

// readValue takes the value from args, stdin or a hidden prompt
func readValue(key string, args []string) (string, error) {
	if len(args) == 2 {
		return args[1], nil
	}
	if varStdin {
		reader := bufio.NewReader(os.Stdin)
		value, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("failed to read from stdin: %w", err)
		}
		return strings.TrimSuffix(value, "\n"), nil
	}

	fmt.Printf("Enter value for %s: ", key)
	valueBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read value: %w", err)
	}
	return string(valueBytes), nil
}

func runVarGet(cmd *cobra.Command, args []string) error {
	p, err := openProject(cmd)
	if err != nil {
		return err
	}
	defer p.Close()

	env, err := p.envOrCurrent(varEnv)
	if err != nil {
		return err
	}

	data, err := p.store.ActiveConfig(env)
	if err != nil {
		return err
	}

	key := args[0]
	raw, ok := data[key]
	if !ok {
		return &store.Error{Op: "get variable", Name: key, Err: store.ErrNotFound}
	}

	value, err := displayValue(p, raw)
	if err != nil {
		return err
	}
	// Print without newline for easy piping
	fmt.Print(value)
	return nil
}

func runVarList(cmd *cobra.Command, args []string) error {
	p, err := openProject(cmd)
	if err != nil {
		return err
	}
	defer p.Close()

	env, err := p.envOrCurrent(varEnv)
	if err != nil {
		return err
	}

	data, err := p.store.ActiveConfig(env)
	if err != nil {
		return err
	}

	if len(data) == 0 {
		fmt.Printf("No variables in '%s'\n", env)
		return nil
	}

	fmt.Printf("Variables in '%s':\n", accent(env))
	for _, key := range format.Keys(data) {
		marker := ""
		if s, ok := data[key].(string); ok && crypto.IsWrapped(s) {
			marker = warning(" (encrypted)")
		}
		if !varShowValues {
			fmt.Printf("  %s%s\n", key, marker)
			continue
		}
		value, err := displayValue(p, data[key])
		if err != nil {
			return err
		}
		fmt.Printf("  %s=%s%s\n", key, value, marker)
	}
	return nil
}

func runVarDelete(cmd *cobra.Command, args []string) error {
	p, err := openProject(cmd)
	if err != nil {
		return err
	}
	defer p.Close()

	env, err := p.envOrCurrent(varEnv)
	if err != nil {
		return err
	}

	data, err := p.store.ActiveConfig(env)
	if err != nil {
		return err
	}

	key := args[0]
	if _, ok := data[key]; !ok {
		return &store.Error{Op: "delete variable", Name: key, Err: store.ErrNotFound}
	}
	delete(data, key)

	if err := p.store.SaveActiveConfig(env, data); err != nil {
		return err
	}

	fmt.Printf("%s Deleted %s from '%s'\n", success("✓"), key, env)
	return nil
}

// displayValue renders a stored value, decrypting wrapped strings
func displayValue(p *project, raw any) (string, error) {
	s, ok := raw.(string)
	if !ok {
		return fmt.Sprint(raw), nil
	}
	if !crypto.IsWrapped(s) {
		return s, nil
	}
	encKey, err := masterKey(p.cfg)
	if err != nil {
		return "", err
	}
	return crypto.DecryptValue(s, encKey)
}

func isValidKeyName(key string) bool {
	if len(key) == 0 {
		return false
	}
	for i, c := range key {
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c == '_':
			continue
		case c >= '0' && c <= '9' && i > 0:
			continue
		}
		return false
	}
	return true
}
