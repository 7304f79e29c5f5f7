package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/russellromney/confidant/internal/config"
	"github.com/russellromney/confidant/internal/format"
	"github.com/russellromney/confidant/pkg/loader"
	"github.com/russellromney/confidant/pkg/settings"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Print resolved settings",
	Long: `Merge settings sources, decrypt ENC(...) values and print the result.

Sources are applied in order and later sources win: every --file in the
order given, then the process environment with --system-env. Without
--file the active config of the current (or --env) environment is used.

Secret values are masked unless --show-values is given.

Examples:
  confidant resolve
  confidant resolve --env prod --format json
  confidant resolve --file base.yaml --file local.env --system-env --interpolate`,
	RunE: runResolve,
}

var (
	resolveSources    sourceFlags
	resolveShowValues bool
	resolveFormat     string
)

func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveSources.register(resolveCmd)
	resolveCmd.Flags().BoolVar(&resolveShowValues, "show-values", false, "Show secret values (use with caution)")
	resolveCmd.Flags().StringVarP(&resolveFormat, "format", "f", string(format.YAML), "Output format: yaml, json, env")
}

// sourceFlags selects the loaders of commands that resolve settings
type sourceFlags struct {
	files       []string
	systemEnv   bool
	interpolate bool
	env         string
}

func (s *sourceFlags) register(c *cobra.Command) {
	c.Flags().StringArrayVar(&s.files, "file", nil, "Settings file, repeatable; later files win")
	c.Flags().BoolVar(&s.systemEnv, "system-env", false, "Apply process environment variables last")
	c.Flags().BoolVar(&s.interpolate, "interpolate", false, "Expand ${NAME} references between fields")
	c.Flags().StringVarP(&s.env, "env", "e", "", "Environment whose active config is used when no --file is given")
}

// loaders builds the ordered loader list
func (s *sourceFlags) loaders(cmd *cobra.Command) ([]loader.Loader, *config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	var loaders []loader.Loader
	if len(s.files) == 0 {
		path, err := activeConfigPath(cmd, s.env)
		if err != nil {
			return nil, nil, err
		}
		loaders = append(loaders, loader.YAMLFile(path))
	}
	for _, f := range s.files {
		l, err := loader.File(f)
		if err != nil {
			return nil, nil, err
		}
		loaders = append(loaders, l)
	}
	if s.systemEnv {
		loaders = append(loaders, loader.SystemEnv())
	}
	return loaders, cfg, nil
}

func activeConfigPath(cmd *cobra.Command, name string) (string, error) {
	p, err := openProject(cmd)
	if err != nil {
		return "", err
	}
	defer p.Close()

	name, err = p.envOrCurrent(name)
	if err != nil {
		return "", err
	}
	if _, err := p.store.Environment(name); err != nil {
		return "", err
	}
	return p.store.ConfigPath(name), nil
}

func runResolve(cmd *cobra.Command, args []string) error {
	out := format.Format(resolveFormat)
	switch out {
	case format.YAML, format.JSON, format.Dotenv:
	default:
		return fmt.Errorf("%w: %q", format.ErrUnsupported, resolveFormat)
	}

	loaders, cfg, err := resolveSources.loaders(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	defer logger.Sync()

	engine := &settings.Engine{
		Loaders:     loaders,
		Keys:        cfg.MasterKey(),
		Interpolate: resolveSources.interpolate,
		Logger:      logger,
	}
	snap, err := engine.Resolve(0)
	if err != nil {
		printFieldErrors(err)
		return err
	}

	fields := snap.Fields()
	if resolveShowValues {
		fields = revealSecrets(fields)
	}

	b, err := format.Encode(fields, out)
	if err != nil {
		return err
	}
	os.Stdout.Write(b)
	return nil
}

// revealSecrets replaces top-level Secrets with their plaintext
func revealSecrets(fields map[string]any) map[string]any {
	for k, v := range fields {
		if s, ok := v.(settings.Secret); ok {
			fields[k] = s.Reveal()
		}
	}
	return fields
}
