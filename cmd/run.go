package main

import (
	"os"
	"os/signal"

	"stagecraft/internal/core/stagekeeper"
	"stagecraft/internal/ui/overlay"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRunCommand(state *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "run [widget|file]",
		Short: "Run a widget in a desktop window",
		Long: `Open a desktop window for the widget.

Press and hold the pad to drive hold stages, click it for tap stages.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := state.widgetFromArgs(args)
			if err != nil {
				return err
			}

			keeper, err := stagekeeper.New(source.config, state.settings.KeeperOptions(state.logger, func() {
				state.logger.Info("widget completed", zap.String("sequence", source.config.Name))
			}))
			if err != nil {
				return err
			}
			events := keeper.Subscribe(64)
			keeper.Mount()
			defer keeper.Unmount()

			fyneApp := app.NewWithID(appID)
			window := overlay.New(fyneApp, overlay.Config{
				Width:  state.settings.WindowWidth,
				Height: state.settings.WindowHeight,
			}, keeper)
			window.SetOnClosed(keeper.Unmount)
			go window.Follow(events)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			done := make(chan struct{})
			defer close(done)
			go func() {
				select {
				case <-ctx.Done():
					fyne.Do(fyneApp.Quit)
				case <-done:
				}
			}()

			window.Show()
			fyneApp.Run()
			return nil
		},
	}
}
