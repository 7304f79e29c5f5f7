package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/russellromney/confidant/internal/config"
	"github.com/russellromney/confidant/internal/crypto"
)

var keychainCmd = &cobra.Command{
	Use:   "keychain",
	Short: "Manage the master key in the OS keychain",
	Long: `Manage the master key stored in the OS keychain
(macOS Keychain, Windows Credential Manager, or Linux Secret Service).

The keychain is used when CONFIDANT_MASTER_KEY is not set.

Examples:
  confidant keychain status
  confidant keychain store
  confidant keychain store --generate
  confidant keychain remove`,
}

var keychainStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show keychain status",
	RunE:  runKeychainStatus,
}

var keychainStoreCmd = &cobra.Command{
	Use:   "store [key]",
	Short: "Store the master key in the keychain",
	Long: `Store a master key in the OS keychain.

Without an argument you'll be prompted for the key (hidden input).
With --generate a new random key is created and stored.

Example:
  confidant keychain store
  confidant keychain store --generate`,
	Args: cobra.MaximumNArgs(1),
	RunE: runKeychainStore,
}

var keychainRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove the master key from the keychain",
	RunE:  runKeychainRemove,
}

var keychainGenerate bool

func init() {
	rootCmd.AddCommand(keychainCmd)
	keychainCmd.AddCommand(keychainStatusCmd)
	keychainCmd.AddCommand(keychainStoreCmd)
	keychainCmd.AddCommand(keychainRemoveCmd)

	keychainStoreCmd.Flags().BoolVar(&keychainGenerate, "generate", false, "Generate a new random key")
}

func runKeychainStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	available := crypto.KeychainAvailable()
	fmt.Printf("Keychain available: %v\n", available)

	if !available {
		fmt.Println("\nKeychain is not available on this system.")
		fmt.Printf("Set %s instead.\n", config.MasterKeyEnv)
		return nil
	}

	stored := crypto.HasKeyInKeychain(cfg.KeychainAccount)
	fmt.Printf("Master key stored: %v (account %q)\n", stored, cfg.KeychainAccount)
	if cfg.HasEnvMasterKey() {
		fmt.Printf("\n%s is set and takes precedence over the keychain.\n", config.MasterKeyEnv)
	} else if !stored {
		fmt.Println("\nStore a key with 'confidant keychain store'.")
	}
	return nil
}

func runKeychainStore(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if !crypto.KeychainAvailable() {
		return fmt.Errorf("keychain is not available on this system")
	}

	var encoded string
	switch {
	case keychainGenerate:
		key, err := crypto.GenerateKey()
		if err != nil {
			return err
		}
		encoded = crypto.EncodeKey(key)
	case len(args) == 1:
		encoded = args[0]
	default:
		fmt.Print("Enter master key: ")
		b, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("failed to read key: %w", err)
		}
		encoded = strings.TrimSpace(string(b))
	}

	if err := crypto.StoreKeyInKeychain(cfg.KeychainAccount, encoded); err != nil {
		return err
	}

	fmt.Printf("%s Master key stored in keychain\n", success("✓"))
	if keychainGenerate {
		fmt.Println("Back it up somewhere safe; values encrypted with it cannot be recovered without it:")
		fmt.Println(encoded)
	}
	return nil
}

func runKeychainRemove(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if !crypto.HasKeyInKeychain(cfg.KeychainAccount) {
		fmt.Println("No master key in keychain")
		return nil
	}

	if err := crypto.DeleteKeyFromKeychain(cfg.KeychainAccount); err != nil {
		return err
	}

	fmt.Printf("%s Master key removed from keychain\n", success("✓"))
	return nil
}
