package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"stagecraft/internal/core/model"
	"stagecraft/internal/sim"
	"stagecraft/internal/storage"
	"stagecraft/resources"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	nameStyle  = lipgloss.NewStyle().Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

func newListCommand(state *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List built-in and configured widgets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, name := range resources.Names() {
				config, err := resources.Widget(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s %s\n", nameStyle.Render(name), mutedStyle.Render(describeStages(config)))
			}
			dir := state.settings.WidgetsDir
			if dir == "" {
				return nil
			}
			definitions, err := storage.LoadDir(dir)
			if err != nil {
				state.logger.Warn("read widgets dir", zap.String("dir", dir), zap.Error(err))
				return nil
			}
			for _, definition := range definitions {
				if definition.Err != nil {
					fmt.Fprintf(out, "%s %s\n", nameStyle.Render(definition.Path), failStyle.Render(definition.Err.Error()))
					continue
				}
				fmt.Fprintf(out, "%s %s\n", nameStyle.Render(definition.Path), mutedStyle.Render(describeStages(definition.Config)))
			}
			return nil
		},
	}
}

func newValidateCommand(state *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file...>",
		Short: "Check widget definition files",
		Long: `Parse and validate widget definition files.

Examples:
  stagecraft validate widgets/door.yaml
  stagecraft validate widgets/*.toml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			failed := 0
			for _, path := range args {
				config, err := storage.LoadDefinition(path)
				if err != nil {
					failed++
					fmt.Fprintf(out, "%s %s\n", failStyle.Render("FAIL"), err)
					state.logger.Debug("definition rejected", zap.String("path", path), zap.Error(err))
					continue
				}
				fmt.Fprintf(out, "%s %s %s\n", okStyle.Render("ok"), nameStyle.Render(config.Name), mutedStyle.Render(describeStages(config)))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d definitions invalid", failed, len(args))
			}
			return nil
		},
	}
}

func newSimulateCommand(state *cli) *cobra.Command {
	var scriptPath string
	var progress bool

	cmd := &cobra.Command{
		Use:   "simulate [widget|file]",
		Short: "Run a widget headlessly and print its timeline",
		Long: `Run a widget on a simulated clock and print every stage change.

Without --script the widget's primary path is played: timers are waited
out, holds are held until they complete and taps are repeated as needed.

Script lines:
  wait 3s
  down | up
  tap [count]
  advance <stage>
  reset

Examples:
  stagecraft simulate arrival
  stagecraft simulate door.yaml --script door.script`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := state.widgetFromArgs(args)
			if err != nil {
				return err
			}

			steps := sim.AutoScript(source.config, state.settings.MaxStep)
			if scriptPath != "" {
				steps, err = readScript(cmd.InOrStdin(), scriptPath)
				if err != nil {
					return err
				}
			}

			result, err := sim.Run(source.config, steps, sim.Options{
				FrameInterval: state.settings.FrameInterval,
				MaxStep:       state.settings.MaxStep,
				Logger:        state.logger,
				Progress:      progress,
			})
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), sim.Render(result))
			return nil
		},
	}

	cmd.Flags().StringVarP(&scriptPath, "script", "s", "", "Script file, or - for stdin")
	cmd.Flags().BoolVar(&progress, "progress", false, "Include hold progress events")
	return cmd
}

func newExportCommand(state *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "export <widget> <file>",
		Short: "Write a widget definition to a YAML or TOML file",
		Long: `Write a widget definition to a file, converting between formats.

Examples:
  stagecraft export knock knock.toml
  stagecraft export door.toml door.yaml`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := state.resolveWidget(args[0])
			if err != nil {
				return err
			}
			if err := exportWidget(source, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[1])
			return nil
		},
	}
}

// exportWidget copies a built-in widget's YAML as shipped and re-encodes
// everything else.
func exportWidget(source widgetSource, path string) error {
	format, err := storage.FormatFromPath(path)
	if err != nil {
		return err
	}
	if source.builtin == "" || format != storage.FormatYAML {
		return storage.SaveDefinition(path, source.config)
	}

	data, err := resources.WidgetSource(source.builtin)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create definition directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write definition file: %w", err)
	}
	return nil
}

func readScript(stdin io.Reader, path string) ([]sim.Step, error) {
	reader := stdin
	if path != "-" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open script: %w", err)
		}
		defer file.Close()
		reader = file
	}

	steps, err := sim.ParseScript(reader)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(steps) == 0 {
		return nil, errors.New("script has no steps")
	}
	return steps, nil
}

func describeStages(config model.SequenceConfig) string {
	names := config.StageNames()
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, string(name))
	}
	description := strings.Join(parts, " > ")
	if config.NonLinear {
		description += " (non-linear)"
	}
	return description
}
