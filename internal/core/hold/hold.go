// Package hold models a press-and-hold gesture as a bounded progress value
// that advances while held and decays while released.
package hold

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// DefaultMaxStep bounds a single tick so a stalled frame scheduler cannot
// jump the gesture forward.
const DefaultMaxStep = 50 * time.Millisecond

// ErrInvalidConfig indicates unusable hold parameters.
var ErrInvalidConfig = errors.New("invalid hold config")

// Config contains the gesture tuning.
type Config struct {
	// ApproachRate is the progress gained per second at zero progress.
	ApproachRate float64
	// ApproachGain adds ApproachGain*progress to the rate, so sustained
	// holds accelerate gently.
	ApproachGain float64
	// DecayRate is the progress lost per second while released.
	DecayRate float64
	// Threshold is the progress at which the gesture completes. Completed
	// gestures report progress 1.
	Threshold float64
	MaxStep   time.Duration
}

// DefaultConfig returns a slow-start hold tuned to complete in roughly
// eight seconds with a forgiving release.
func DefaultConfig() Config {
	return Config{
		ApproachRate: 0.08,
		ApproachGain: 0.12,
		DecayRate:    0.03,
		Threshold:    1,
		MaxStep:      DefaultMaxStep,
	}
}

// Validate reports unusable parameters.
func (config Config) Validate() error {
	switch {
	case config.ApproachRate <= 0:
		return fmt.Errorf("%w: approach rate must be positive", ErrInvalidConfig)
	case config.ApproachGain < 0:
		return fmt.Errorf("%w: approach gain must not be negative", ErrInvalidConfig)
	case config.DecayRate < 0:
		return fmt.Errorf("%w: decay rate must not be negative", ErrInvalidConfig)
	case config.Threshold <= 0 || config.Threshold > 1:
		return fmt.Errorf("%w: threshold must be in (0, 1]", ErrInvalidConfig)
	case config.MaxStep < 0:
		return fmt.Errorf("%w: max step must not be negative", ErrInvalidConfig)
	}
	return nil
}

// HoldDuration returns how long an uninterrupted hold takes to reach the
// threshold when ticked continuously.
func (config Config) HoldDuration() time.Duration {
	if config.ApproachRate <= 0 {
		return 0
	}
	threshold := config.Threshold
	if threshold <= 0 || threshold > 1 {
		threshold = 1
	}
	var seconds float64
	if config.ApproachGain == 0 {
		seconds = threshold / config.ApproachRate
	} else {
		seconds = math.Log1p(config.ApproachGain*threshold/config.ApproachRate) / config.ApproachGain
	}
	return time.Duration(seconds * float64(time.Second))
}

// State is a read-only view of the gesture.
type State struct {
	Progress  float64
	Holding   bool
	Completed bool
	// LastStep is the clamped dt applied by the most recent Tick.
	LastStep  time.Duration
}

// Engine advances a hold gesture. It is not safe for concurrent use; the
// owner serialises access.
type Engine struct {
	config     Config
	progress   float64
	holding    bool
	completed  bool
	lastStep   time.Duration
	onComplete func()
}

// New creates an engine. Zero-valued fields of config fall back to
// DefaultConfig.
func New(config Config, onComplete func()) *Engine {
	defaults := DefaultConfig()
	if config.ApproachRate == 0 {
		config.ApproachRate = defaults.ApproachRate
	}
	if config.Threshold == 0 {
		config.Threshold = defaults.Threshold
	}
	if config.MaxStep == 0 {
		config.MaxStep = defaults.MaxStep
	}
	return &Engine{config: config, onComplete: onComplete}
}

// Config returns the effective configuration.
func (engine *Engine) Config() Config {
	return engine.config
}

// Start begins advancing progress. It is a no-op while holding or once
// the gesture has completed.
func (engine *Engine) Start() bool {
	if engine.holding || engine.completed {
		return false
	}
	engine.holding = true
	return true
}

// Stop releases the gesture so progress decays.
func (engine *Engine) Stop() bool {
	if !engine.holding {
		return false
	}
	engine.holding = false
	return true
}

// Tick advances the simulation by dt and reports whether the gesture
// completed during this tick.
func (engine *Engine) Tick(dt time.Duration) bool {
	if dt < 0 {
		dt = 0
	}
	if engine.config.MaxStep > 0 && dt > engine.config.MaxStep {
		dt = engine.config.MaxStep
	}
	engine.lastStep = dt
	if engine.completed {
		return false
	}

	seconds := dt.Seconds()
	if engine.holding {
		rate := engine.config.ApproachRate + engine.config.ApproachGain*engine.progress
		engine.progress = clamp(engine.progress + rate*seconds)
	} else {
		engine.progress = clamp(engine.progress - engine.config.DecayRate*seconds)
	}

	if engine.progress < engine.config.Threshold {
		return false
	}
	engine.completed = true
	engine.holding = false
	// A completed gesture always reads as full, whatever the threshold.
	engine.progress = 1
	if engine.onComplete != nil {
		engine.onComplete()
	}
	return true
}

// Reset starts a fresh gesture.
func (engine *Engine) Reset() {
	engine.progress = 0
	engine.completed = false
	engine.holding = false
	engine.lastStep = 0
}

// Progress returns the current progress in [0, 1].
func (engine *Engine) Progress() float64 {
	return engine.progress
}

// Holding reports whether the gesture is pressed.
func (engine *Engine) Holding() bool {
	return engine.holding
}

// Completed reports whether the gesture reached its threshold.
func (engine *Engine) Completed() bool {
	return engine.completed
}

// State returns a snapshot of the gesture.
func (engine *Engine) State() State {
	return State{
		Progress:  engine.progress,
		Holding:   engine.holding,
		Completed: engine.completed,
		LastStep:  engine.lastStep,
	}
}

func clamp(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
