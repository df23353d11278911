package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	appName        = "stagecraft"
	configFileName = "config.yaml"
	envPrefix      = "STAGECRAFT"
)

// Load reads settings from path. An empty path falls back to the user
// config directory; a missing file there yields defaults. Environment
// variables prefixed with STAGECRAFT_ override file values.
func Load(path string) (Settings, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		resolved, err := resolveConfigPath()
		if err == nil {
			path = resolved
		}
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			if !errors.Is(err, os.ErrNotExist) || explicit {
				return DefaultSettings(), fmt.Errorf("stat config file: %w", err)
			}
			path = ""
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return DefaultSettings(), fmt.Errorf("read config file: %w", err)
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return DefaultSettings(), fmt.Errorf("decode config: %w", err)
	}
	settings.applyDefaults()
	return settings, nil
}

func setDefaults(v *viper.Viper) {
	defaults := DefaultSettings()
	v.SetDefault("frame_interval", defaults.FrameInterval.String())
	v.SetDefault("max_step", defaults.MaxStep.String())
	v.SetDefault("refresh_rate", defaults.RefreshRate.String())
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("widgets_dir", defaults.WidgetsDir)
	v.SetDefault("window_width", defaults.WindowWidth)
	v.SetDefault("window_height", defaults.WindowHeight)
}

func resolveConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(configDir, appName, configFileName), nil
}
