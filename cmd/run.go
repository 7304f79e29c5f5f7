package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/russellromney/confidant/internal/format"
	"github.com/russellromney/confidant/pkg/settings"
)

var runCmd = &cobra.Command{
	Use:   "run [flags] -- <command> [args...]",
	Short: "Run a command with resolved settings injected",
	Long: `Resolve settings and run a command with every top-level field
injected as an environment variable. Secrets are decrypted first.
Nested values are passed as JSON.

The command and its arguments should come after "--".

Examples:
  confidant run -- npm start
  confidant run --env prod --interpolate -- ./my-app --port 8080
  confidant run --file base.yaml --file local.env -- docker compose up`,
	RunE: runRun,
}

var runSources sourceFlags

func init() {
	rootCmd.AddCommand(runCmd)
	runSources.register(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cmdArgs := args
	if len(cmdArgs) == 0 {
		return fmt.Errorf("no command specified: use 'confidant run -- <command>'")
	}

	loaders, cfg, err := runSources.loaders(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	defer logger.Sync()

	engine := &settings.Engine{
		Loaders:     loaders,
		Keys:        cfg.MasterKey(),
		Interpolate: runSources.interpolate,
		Logger:      logger,
	}
	snap, err := engine.Resolve(0)
	if err != nil {
		printFieldErrors(err)
		return err
	}

	// Build environment
	environ := os.Environ()
	fields := snap.Fields()
	for _, key := range format.Keys(fields) {
		value, err := envValue(snap, key, fields[key])
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", key, err)
		}
		environ = append(environ, fmt.Sprintf("%s=%s", key, value))
	}

	execCmd := exec.Command(cmdArgs[0], cmdArgs[1:]...)
	execCmd.Env = environ
	execCmd.Stdin = os.Stdin
	execCmd.Stdout = os.Stdout
	execCmd.Stderr = os.Stderr

	// Handle signals - forward them to the child process
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if err := execCmd.Start(); err != nil {
		signal.Stop(sigChan)
		return fmt.Errorf("failed to start command: %w", err)
	}

	go func() {
		for sig := range sigChan {
			if execCmd.Process != nil {
				execCmd.Process.Signal(sig)
			}
		}
	}()

	err = execCmd.Wait()
	signal.Stop(sigChan)
	close(sigChan)

	if err != nil {
		// Propagate the child's exit code
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		return fmt.Errorf("command failed: %w", err)
	}

	return nil
}

func envValue(snap *settings.Snapshot, key string, v any) (string, error) {
	switch v.(type) {
	case map[string]any, []any:
		b, err := json.Marshal(v)
		return string(b), err
	}
	return snap.String(key), nil
}
