package storage

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"stagecraft/internal/core/hold"
	"stagecraft/internal/core/model"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ErrInvalidDefinition reports a definition file that does not match the
// expected document shape.
var ErrInvalidDefinition = errors.New("invalid widget definition")

// Format selects the encoding of a definition file.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

type definitionFile struct {
	Name      string      `yaml:"name,omitempty" toml:"name,omitempty"`
	NonLinear bool        `yaml:"non_linear,omitempty" toml:"non_linear,omitempty"`
	Stages    []stageFile `yaml:"stages" toml:"stages"`
}

type stageFile struct {
	Stage    string     `yaml:"stage" toml:"stage"`
	Entry    *entryFile `yaml:"entry,omitempty" toml:"entry,omitempty"`
	Terminal bool       `yaml:"terminal,omitempty" toml:"terminal,omitempty"`
	Next     []string   `yaml:"next,omitempty" toml:"next,omitempty"`
}

type entryFile struct {
	Kind          string  `yaml:"kind" toml:"kind"`
	DelayMS       int64   `yaml:"delay_ms,omitempty" toml:"delay_ms,omitempty"`
	ApproachRate  float64 `yaml:"approach_rate,omitempty" toml:"approach_rate,omitempty"`
	ApproachGain  float64 `yaml:"approach_gain,omitempty" toml:"approach_gain,omitempty"`
	DecayRate     float64 `yaml:"decay_rate,omitempty" toml:"decay_rate,omitempty"`
	Threshold     float64 `yaml:"threshold,omitempty" toml:"threshold,omitempty"`
	RequiredCount int     `yaml:"required_count,omitempty" toml:"required_count,omitempty"`
}

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unsupported definition extension %q", filepath.Ext(path))
	}
}

// Parse decodes and validates a widget definition.
func Parse(data []byte, format Format) (model.SequenceConfig, error) {
	var document any
	var fileData definitionFile

	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &document); err != nil {
			return model.SequenceConfig{}, fmt.Errorf("parse definition yaml: %w", err)
		}
		if err := validateShape(document); err != nil {
			return model.SequenceConfig{}, err
		}
		if err := yaml.Unmarshal(data, &fileData); err != nil {
			return model.SequenceConfig{}, fmt.Errorf("decode definition yaml: %w", err)
		}
	case FormatTOML:
		var table map[string]any
		if err := toml.Unmarshal(data, &table); err != nil {
			return model.SequenceConfig{}, fmt.Errorf("parse definition toml: %w", err)
		}
		if err := validateShape(table); err != nil {
			return model.SequenceConfig{}, err
		}
		if err := toml.Unmarshal(data, &fileData); err != nil {
			return model.SequenceConfig{}, fmt.Errorf("decode definition toml: %w", err)
		}
	default:
		return model.SequenceConfig{}, fmt.Errorf("unsupported definition format %q", format)
	}

	config := fileData.toModel()
	if err := config.Validate(); err != nil {
		return model.SequenceConfig{}, err
	}
	return config, nil
}

// LoadDefinition reads one definition file. A definition without a name
// takes the file name.
func LoadDefinition(path string) (model.SequenceConfig, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return model.SequenceConfig{}, err
	}

	rawData, err := os.ReadFile(path)
	if err != nil {
		return model.SequenceConfig{}, fmt.Errorf("read definition file: %w", err)
	}

	if len(bytes.TrimSpace(rawData)) == 0 {
		return model.SequenceConfig{}, fmt.Errorf("%w: %s is empty", ErrInvalidDefinition, path)
	}

	config, err := Parse(rawData, format)
	if err != nil {
		return model.SequenceConfig{}, fmt.Errorf("load %s: %w", filepath.Base(path), err)
	}
	if config.Name == "" {
		config.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return config, nil
}

// Definition is one file found by LoadDir. Err is set when the file could
// not be loaded; Config is then zero.
type Definition struct {
	Path   string
	Config model.SequenceConfig
	Err    error
}

// DefinitionPaths lists the definition files in dir, sorted by file name.
// Files with other extensions and directories are skipped.
func DefinitionPaths(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read widgets dir: %w", err)
	}

	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, err := FormatFromPath(entry.Name()); err != nil {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// LoadDir reads every definition file in dir. A file that fails to load is
// reported in its Definition and does not stop the rest.
func LoadDir(dir string) ([]Definition, error) {
	paths, err := DefinitionPaths(dir)
	if err != nil {
		return nil, err
	}

	definitions := make([]Definition, 0, len(paths))
	for _, path := range paths {
		config, err := LoadDefinition(path)
		definitions = append(definitions, Definition{Path: path, Config: config, Err: err})
	}
	return definitions, nil
}

// Marshal encodes config in format.
func Marshal(config model.SequenceConfig, format Format) ([]byte, error) {
	fileData := fromModel(config)

	switch format {
	case FormatYAML:
		serialized, err := yaml.Marshal(fileData)
		if err != nil {
			return nil, fmt.Errorf("marshal definition yaml: %w", err)
		}
		return serialized, nil
	case FormatTOML:
		var buffer bytes.Buffer
		if err := toml.NewEncoder(&buffer).Encode(fileData); err != nil {
			return nil, fmt.Errorf("marshal definition toml: %w", err)
		}
		return buffer.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported definition format %q", format)
	}
}

// SaveDefinition writes config to path, creating parent directories.
func SaveDefinition(path string, config model.SequenceConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}

	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}

	serialized, err := Marshal(config, format)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create definition directory: %w", err)
	}
	if err := os.WriteFile(path, serialized, 0o644); err != nil {
		return fmt.Errorf("write definition file: %w", err)
	}
	return nil
}

func (fileData definitionFile) toModel() model.SequenceConfig {
	config := model.SequenceConfig{
		Name:      fileData.Name,
		NonLinear: fileData.NonLinear,
		Stages:    make([]model.StageSpec, 0, len(fileData.Stages)),
	}

	for _, stage := range fileData.Stages {
		spec := model.StageSpec{
			Stage:    model.Stage(stage.Stage),
			Terminal: stage.Terminal,
		}
		for _, next := range stage.Next {
			spec.Next = append(spec.Next, model.Stage(next))
		}
		if stage.Entry != nil {
			spec.Entry = model.EntryAction{
				Kind:  model.EntryKind(stage.Entry.Kind),
				Delay: time.Duration(stage.Entry.DelayMS) * time.Millisecond,
				Hold: model.HoldParams{
					ApproachRate: stage.Entry.ApproachRate,
					ApproachGain: stage.Entry.ApproachGain,
					DecayRate:    stage.Entry.DecayRate,
					Threshold:    stage.Entry.Threshold,
				},
				RequiredCount: stage.Entry.RequiredCount,
			}
			if spec.Entry.Kind == model.EntryHold {
				spec.Entry.Hold = withHoldDefaults(spec.Entry.Hold)
			}
		}
		config.Stages = append(config.Stages, spec)
	}
	return config
}

// withHoldDefaults gives a hold entry with no parameters the default tuning,
// and a hold entry with no threshold a full one.
func withHoldDefaults(params model.HoldParams) model.HoldParams {
	defaults := hold.DefaultConfig()
	if params == (model.HoldParams{}) {
		return model.HoldParams{
			ApproachRate: defaults.ApproachRate,
			ApproachGain: defaults.ApproachGain,
			DecayRate:    defaults.DecayRate,
			Threshold:    defaults.Threshold,
		}
	}
	if params.Threshold == 0 {
		params.Threshold = defaults.Threshold
	}
	return params
}

func fromModel(config model.SequenceConfig) definitionFile {
	fileData := definitionFile{
		Name:      config.Name,
		NonLinear: config.NonLinear,
		Stages:    make([]stageFile, 0, len(config.Stages)),
	}

	for _, spec := range config.Stages {
		stage := stageFile{
			Stage:    string(spec.Stage),
			Terminal: spec.Terminal,
		}
		for _, next := range spec.Next {
			stage.Next = append(stage.Next, string(next))
		}
		if spec.Entry.Kind != model.EntryNone {
			stage.Entry = &entryFile{
				Kind:          string(spec.Entry.Kind),
				DelayMS:       spec.Entry.Delay.Milliseconds(),
				ApproachRate:  spec.Entry.Hold.ApproachRate,
				ApproachGain:  spec.Entry.Hold.ApproachGain,
				DecayRate:     spec.Entry.Hold.DecayRate,
				Threshold:     spec.Entry.Hold.Threshold,
				RequiredCount: spec.Entry.RequiredCount,
			}
		}
		fileData.Stages = append(fileData.Stages, stage)
	}
	return fileData
}
