package config

import (
	"time"

	"stagecraft/internal/core/hold"
	"stagecraft/internal/core/ledger"
	"stagecraft/internal/core/stagekeeper"

	"go.uber.org/zap"
)

// Settings defines the application preferences.
type Settings struct {
	FrameInterval time.Duration `mapstructure:"frame_interval"`
	MaxStep       time.Duration `mapstructure:"max_step"`
	RefreshRate   time.Duration `mapstructure:"refresh_rate"`
	LogLevel      string        `mapstructure:"log_level"`
	WidgetsDir    string        `mapstructure:"widgets_dir"`
	WindowWidth   float32       `mapstructure:"window_width"`
	WindowHeight  float32       `mapstructure:"window_height"`
}

// DefaultSettings returns default settings for stagecraft.
func DefaultSettings() Settings {
	return Settings{
		FrameInterval: ledger.DefaultFrameInterval,
		MaxStep:       hold.DefaultMaxStep,
		RefreshRate:   50 * time.Millisecond,
		LogLevel:      "info",
		WindowWidth:   420,
		WindowHeight:  320,
	}
}

// KeeperOptions converts settings to stagekeeper options.
func (settings Settings) KeeperOptions(logger *zap.Logger, onComplete func()) stagekeeper.Options {
	return stagekeeper.Options{
		FrameInterval: settings.FrameInterval,
		MaxStep:       settings.MaxStep,
		Logger:        logger,
		OnComplete:    onComplete,
	}
}

func (settings *Settings) applyDefaults() {
	defaults := DefaultSettings()
	if settings.FrameInterval <= 0 {
		settings.FrameInterval = defaults.FrameInterval
	}
	if settings.MaxStep <= 0 {
		settings.MaxStep = defaults.MaxStep
	}
	if settings.RefreshRate <= 0 {
		settings.RefreshRate = defaults.RefreshRate
	}
	if settings.LogLevel == "" {
		settings.LogLevel = defaults.LogLevel
	}
	if settings.WindowWidth <= 0 {
		settings.WindowWidth = defaults.WindowWidth
	}
	if settings.WindowHeight <= 0 {
		settings.WindowHeight = defaults.WindowHeight
	}
}
