package resources

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"stagecraft/internal/core/model"
	"stagecraft/internal/storage"
)

const widgetDir = "widgets/"

//go:embed widgets/*.yaml
var widgetFS embed.FS

var widgetCache sync.Map

// Widget returns the built-in widget definition with the given name.
func Widget(name string) (model.SequenceConfig, error) {
	filePath := widgetDir + name + ".yaml"
	if cached, ok := widgetCache.Load(filePath); ok {
		return cached.(model.SequenceConfig), nil
	}

	data, err := widgetFS.ReadFile(filePath)
	if err != nil {
		return model.SequenceConfig{}, fmt.Errorf("load widget %s: %w", name, err)
	}

	config, err := storage.Parse(data, storage.FormatYAML)
	if err != nil {
		return model.SequenceConfig{}, fmt.Errorf("load widget %s: %w", name, err)
	}
	if config.Name == "" {
		config.Name = name
	}

	widgetCache.Store(filePath, config)
	return config, nil
}

// MustWidget returns a built-in widget or panics on error.
func MustWidget(name string) model.SequenceConfig {
	config, err := Widget(name)
	if err != nil {
		panic(err)
	}
	return config
}

// WidgetSource returns the raw YAML of a built-in widget.
func WidgetSource(name string) ([]byte, error) {
	data, err := widgetFS.ReadFile(widgetDir + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("load widget %s: %w", name, err)
	}
	return data, nil
}

// Names lists the built-in widgets in alphabetical order.
func Names() []string {
	entries, err := fs.ReadDir(widgetFS, strings.TrimSuffix(widgetDir, "/"))
	if err != nil {
		return nil
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, strings.TrimSuffix(entry.Name(), path.Ext(entry.Name())))
	}
	sort.Strings(names)
	return names
}
