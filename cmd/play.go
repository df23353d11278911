package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"stagecraft/internal/core/model"
	"stagecraft/internal/storage"
	"stagecraft/internal/ui/tui"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newPlayCommand(state *cli) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "play [widget|file]",
		Short: "Play a widget in the terminal",
		Long: `Play a widget in the terminal.

Keys:
  space   start or release the hold
  enter   tap
  n       advance to the next stage
  r       reset to the first stage
  q       quit

With --watch a file-backed widget is reloaded whenever the file is saved.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := state.widgetFromArgs(args)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			// stderr shares the terminal with the UI, so only warnings get through
			logger := state.logger
			if !state.verbose {
				logger = logger.WithOptions(zap.IncreaseLevel(zapcore.WarnLevel))
			}
			options := tui.Options{
				Refresh: state.settings.RefreshRate,
				Keeper:  state.settings.KeeperOptions(logger, nil),
				Logger:  logger,
			}

			if watch {
				if source.path == "" {
					return errors.New("--watch needs a definition file")
				}
				reloads := make(chan tui.Reload)
				options.Reloads = reloads
				go state.watchDefinition(ctx, source.path, reloads)
			}

			return tui.Run(ctx, source.config, options)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Reload the definition file when it changes")
	return cmd
}

func (state *cli) watchDefinition(ctx context.Context, path string, reloads chan<- tui.Reload) {
	err := storage.Watch(ctx, path, storage.DefaultDebounce, func(config model.SequenceConfig, err error) {
		if err != nil {
			state.logger.Debug("definition reload failed", zap.String("path", path), zap.Error(err))
		}
		select {
		case reloads <- tui.Reload{Config: config, Err: err}:
		case <-ctx.Done():
		}
	})
	if err != nil {
		state.logger.Error("watch definition", zap.String("path", path), zap.Error(err))
	}
}
