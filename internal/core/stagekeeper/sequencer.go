package stagekeeper

import "stagecraft/internal/core/model"

// Sequencer tracks the current stage of one widget and decides which
// transitions are legal. It holds no timers; the Keeper drives it.
type Sequencer struct {
	config    model.SequenceConfig
	current   model.Stage
	completed bool
}

// NewSequencer validates config and returns a sequencer in the pre-mount
// state.
func NewSequencer(config model.SequenceConfig) (*Sequencer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Sequencer{config: config}, nil
}

// Current returns the current stage, or model.StageNone before mount.
func (sequencer *Sequencer) Current() model.Stage {
	return sequencer.current
}

// Config returns the validated configuration.
func (sequencer *Sequencer) Config() model.SequenceConfig {
	return sequencer.config
}

// AtTerminal reports whether the current stage is the terminal stage.
func (sequencer *Sequencer) AtTerminal() bool {
	return sequencer.current != model.StageNone && sequencer.current == sequencer.config.Terminal()
}

// CanAdvance reports whether moving to target is legal from the current
// stage.
func (sequencer *Sequencer) CanAdvance(target model.Stage) bool {
	if sequencer.current == model.StageNone || sequencer.AtTerminal() {
		return false
	}
	if target == sequencer.current || sequencer.config.Index(target) < 0 {
		return false
	}
	if sequencer.config.NonLinear {
		return true
	}
	for _, next := range sequencer.config.Successors(sequencer.current) {
		if next == target {
			return true
		}
	}
	return false
}

// Completed reports whether the terminal stage has been reached during the
// instance's lifetime.
func (sequencer *Sequencer) Completed() bool {
	return sequencer.completed
}

func (sequencer *Sequencer) set(stage model.Stage) {
	sequencer.current = stage
}

// markCompleted returns true only the first time it is called.
func (sequencer *Sequencer) markCompleted() bool {
	if sequencer.completed {
		return false
	}
	sequencer.completed = true
	return true
}
