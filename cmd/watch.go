package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/russellromney/confidant/pkg/settings"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Resolve settings and reload them on every file change",
	Long: `Resolve settings like 'confidant resolve' and keep them current while
the source files change. Each reload is reported; a failed reload keeps the
previous settings. Stop with Ctrl-C.

Examples:
  confidant watch
  confidant watch --file config.yaml --file .env --debounce 250ms`,
	RunE: runWatch,
}

var (
	watchSources  sourceFlags
	watchDebounce = settings.DefaultDebounce
)

func init() {
	rootCmd.AddCommand(watchCmd)
	watchSources.register(watchCmd)
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", settings.DefaultDebounce, "Quiet period before a reload")
}

func runWatch(cmd *cobra.Command, args []string) error {
	loaders, cfg, err := watchSources.loaders(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	defer logger.Sync()

	live, err := settings.Load[map[string]any](
		settings.WithLoaders(loaders...),
		settings.WithKeySource(cfg.MasterKey()),
		settings.WithInterpolation(watchSources.interpolate),
		settings.WithLogger(logger),
		settings.WithDebounce(watchDebounce),
	)
	if err != nil {
		printFieldErrors(err)
		return err
	}
	defer live.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := live.Watch(ctx); err != nil {
		return err
	}

	snap := live.Current()
	fmt.Printf("Loaded version %d from %d sources (%d fields), watching: %s\n",
		snap.Version(), len(snap.Sources()), len(snap.Fields()), live.WatchState())

	for {
		select {
		case <-ctx.Done():
			fmt.Println("Stopped")
			return nil
		case ev := <-live.Events():
			if ev.Err != nil {
				logger.Warn("reload failed", zap.String("path", ev.Path), zap.Error(ev.Err))
				fmt.Printf("%s reload from %s failed, keeping version %d: %v\n", warning("!"), ev.Path, ev.Version, ev.Err)
				continue
			}
			fmt.Printf("%s reloaded version %d (%s)\n", success("✓"), ev.Version, ev.Path)
		}
	}
}
