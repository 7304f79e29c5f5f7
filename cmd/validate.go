package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/russellromney/confidant/pkg/loader"
	"github.com/russellromney/confidant/pkg/settings"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that a settings file resolves",
	Long: `Load a settings file, decrypt its ENC(...) values and check that every
required key is present. All offending fields are listed, not just the first.

Examples:
  confidant validate --input config.yaml
  confidant validate --input .env --require DATABASE_URL,API_KEY`,
	RunE: runValidate,
}

var (
	validateInput   string
	validateRequire []string
)

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringVarP(&validateInput, "input", "i", "", "Settings file (required)")
	validateCmd.Flags().StringSliceVarP(&validateRequire, "require", "r", nil, "Keys that must be present")
	validateCmd.MarkFlagRequired("input")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	defer logger.Sync()

	l, err := loader.File(validateInput)
	if err != nil {
		return err
	}

	engine := &settings.Engine{
		Loaders: []loader.Loader{l},
		Keys:    cfg.MasterKey(),
		Logger:  logger,
	}
	if len(validateRequire) > 0 {
		engine.Schema = settings.Required(validateRequire...)
	}

	snap, err := engine.Resolve(0)
	if err != nil {
		var valErr *settings.ValidationError
		if errors.As(err, &valErr) {
			for _, f := range valErr.Fields {
				fmt.Fprintf(os.Stderr, "  %s: %s\n", f.Field, f.Message)
			}
		}
		printFieldErrors(err)
		return err
	}

	fmt.Printf("%s %s is valid (%d fields)\n", success("✓"), validateInput, len(snap.Fields()))
	return nil
}
