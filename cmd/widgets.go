package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"stagecraft/internal/core/model"
	"stagecraft/internal/storage"
	"stagecraft/resources"

	"github.com/charmbracelet/huh"
	"go.uber.org/zap"
	"golang.org/x/term"
)

var definitionExtensions = []string{".yaml", ".yml", ".toml"}

// widgetSource is a resolved definition and where it came from: a file path
// for file-backed widgets or a built-in name.
type widgetSource struct {
	config  model.SequenceConfig
	path    string
	builtin string
}

// resolveWidget accepts a definition path, a name in the widgets dir or a
// built-in widget name, in that order.
func (state *cli) resolveWidget(name string) (widgetSource, error) {
	if _, err := storage.FormatFromPath(name); err == nil {
		config, err := storage.LoadDefinition(name)
		if err != nil {
			return widgetSource{}, err
		}
		return widgetSource{config: config, path: name}, nil
	}

	if dir := state.settings.WidgetsDir; dir != "" {
		for _, ext := range definitionExtensions {
			path := filepath.Join(dir, name+ext)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			config, err := storage.LoadDefinition(path)
			if err != nil {
				return widgetSource{}, err
			}
			return widgetSource{config: config, path: path}, nil
		}
	}

	config, err := resources.Widget(name)
	if err != nil {
		return widgetSource{}, fmt.Errorf("unknown widget %q", name)
	}
	return widgetSource{config: config, builtin: name}, nil
}

// widgetFromArgs resolves the single optional widget argument, asking
// interactively when it is missing and stdin is a terminal.
func (state *cli) widgetFromArgs(args []string) (widgetSource, error) {
	if len(args) > 0 {
		return state.resolveWidget(args[0])
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return widgetSource{}, errors.New("widget name required")
	}

	name, err := state.pickWidget()
	if err != nil {
		return widgetSource{}, err
	}
	return state.resolveWidget(name)
}

func (state *cli) pickWidget() (string, error) {
	var options []huh.Option[string]
	for _, name := range resources.Names() {
		options = append(options, huh.NewOption(name+" (built in)", name))
	}
	for _, path := range state.definitionFiles() {
		options = append(options, huh.NewOption(filepath.Base(path), path))
	}

	var selected string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Pick a widget").
				Options(options...).
				Value(&selected),
		),
	)
	if err := form.Run(); err != nil {
		return "", fmt.Errorf("pick widget: %w", err)
	}
	return selected, nil
}

// definitionFiles lists the definition files in the widgets dir.
func (state *cli) definitionFiles() []string {
	dir := state.settings.WidgetsDir
	if dir == "" {
		return nil
	}
	paths, err := storage.DefinitionPaths(dir)
	if err != nil {
		state.logger.Warn("read widgets dir", zap.String("dir", dir), zap.Error(err))
		return nil
	}
	return paths
}
