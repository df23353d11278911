package main

import (
	"fmt"

	"stagecraft/internal/config"
	"stagecraft/internal/logging"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const appID = "io.stagecraft.app"

// cli holds flag values and the state PersistentPreRunE builds from them.
type cli struct {
	configPath string
	verbose    bool
	noColor    bool

	settings config.Settings
	logger   *zap.Logger
}

func newRootCommand() *cobra.Command {
	state := &cli{
		settings: config.DefaultSettings(),
		logger:   zap.NewNop(),
	}

	rootCmd := &cobra.Command{
		Use:   "stagecraft",
		Short: "Run staged interactive widgets",
		Long: `stagecraft drives widgets that move through named stages on timers,
press-and-hold gestures and taps.

Widgets are built in or loaded from YAML and TOML definition files.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return state.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = state.logger.Sync()
		},
	}

	rootCmd.PersistentFlags().StringVar(&state.configPath, "config", "", "Config file (default: user config dir)")
	rootCmd.PersistentFlags().BoolVarP(&state.verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&state.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		newListCommand(state),
		newValidateCommand(state),
		newSimulateCommand(state),
		newExportCommand(state),
		newPlayCommand(state),
		newRunCommand(state),
	)
	return rootCmd
}

func (state *cli) init() error {
	settings, err := config.Load(state.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	state.settings = settings

	level := settings.LogLevel
	if state.verbose {
		level = "debug"
	}
	logger, err := logging.New(level)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	state.logger = logger

	if state.noColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
	return nil
}
