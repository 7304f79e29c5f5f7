package cmd

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/russellromney/confidant/internal/config"
	"github.com/russellromney/confidant/internal/crypto"
)

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Create master keys",
	Long: `Create 256-bit master keys in the textual form accepted by
CONFIDANT_MASTER_KEY and 'confidant keychain store'.

Examples:
  confidant key generate
  export CONFIDANT_MASTER_KEY=$(confidant key generate)
  confidant key derive --salt <base64>`,
}

var keyGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a random master key",
	RunE:  runKeyGenerate,
}

var keyDeriveCmd = &cobra.Command{
	Use:   "derive",
	Short: "Derive a master key from a passphrase",
	Long: `Derive a master key from a passphrase with Argon2id.

The same passphrase and salt always give the same key. Without --salt a
random salt is generated and printed; keep it to derive the key again.

Example:
  confidant key derive
  confidant key derive --salt q2Vj8w3bTq2Vj8w3bTq2Vg==`,
	RunE: runKeyDerive,
}

var keyDeriveSalt string

func init() {
	rootCmd.AddCommand(keyCmd)
	keyCmd.AddCommand(keyGenerateCmd)
	keyCmd.AddCommand(keyDeriveCmd)

	keyDeriveCmd.Flags().StringVar(&keyDeriveSalt, "salt", "", "Base64 salt (default: random)")
}

func runKeyGenerate(cmd *cobra.Command, args []string) error {
	key, err := crypto.GenerateKey()
	if err != nil {
		return err
	}
	fmt.Println(crypto.EncodeKey(key))
	return nil
}

func runKeyDerive(cmd *cobra.Command, args []string) error {
	var salt []byte
	var err error
	if keyDeriveSalt != "" {
		salt, err = base64.StdEncoding.DecodeString(keyDeriveSalt)
		if err != nil {
			return fmt.Errorf("invalid salt: %w", err)
		}
	} else {
		salt, err = crypto.GenerateSalt()
		if err != nil {
			return err
		}
	}

	fmt.Fprint(os.Stderr, "Enter passphrase: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to read passphrase: %w", err)
	}

	// Confirm only when a new salt is created
	if keyDeriveSalt == "" {
		fmt.Fprint(os.Stderr, "Confirm passphrase: ")
		confirm, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("failed to read passphrase: %w", err)
		}
		if string(password) != string(confirm) {
			return fmt.Errorf("passphrases do not match")
		}
		fmt.Fprintf(os.Stderr, "Salt: %s\n", base64.StdEncoding.EncodeToString(salt))
	}

	if len(password) < 8 {
		return fmt.Errorf("passphrase must be at least 8 characters")
	}

	key := crypto.DeriveKey(string(password), salt)
	fmt.Println(crypto.EncodeKey(key))
	fmt.Fprintf(os.Stderr, "Use it via %s or 'confidant keychain store'\n", config.MasterKeyEnv)
	return nil
}
