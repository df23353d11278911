package model

import (
	"time"

	"stagecraft/internal/core/hold"
)

// Stage names one narrative phase of a widget.
type Stage string

// StageNone is the implicit stage before a widget is mounted.
const StageNone Stage = ""

// EntryKind selects what a stage does when it is entered.
type EntryKind string

const (
	EntryNone  EntryKind = ""
	EntryTimer EntryKind = "timer"
	EntryHold  EntryKind = "hold"
	EntryTap   EntryKind = "tap"
)

// HoldParams tunes a hold gesture.
type HoldParams struct {
	ApproachRate float64
	ApproachGain float64
	DecayRate    float64
	Threshold    float64
}

// EngineConfig converts params into the tuning of a hold engine.
func (params HoldParams) EngineConfig(maxStep time.Duration) hold.Config {
	return hold.Config{
		ApproachRate: params.ApproachRate,
		ApproachGain: params.ApproachGain,
		DecayRate:    params.DecayRate,
		Threshold:    params.Threshold,
		MaxStep:      maxStep,
	}
}

// EntryAction describes the work a stage starts on entry.
type EntryAction struct {
	Kind          EntryKind
	Delay         time.Duration
	Hold          HoldParams
	RequiredCount int
}

// TimerAction advances after delay.
func TimerAction(delay time.Duration) EntryAction {
	return EntryAction{Kind: EntryTimer, Delay: delay}
}

// HoldAction advances once a hold gesture completes.
func HoldAction(params HoldParams) EntryAction {
	return EntryAction{Kind: EntryHold, Hold: params}
}

// TapAction advances after count taps.
func TapAction(count int) EntryAction {
	return EntryAction{Kind: EntryTap, RequiredCount: count}
}

// StageSpec configures one stage.
type StageSpec struct {
	Stage    Stage
	Entry    EntryAction
	Terminal bool
	// Next lists the legal successors. Empty means the following stage.
	Next []Stage
}

// SequenceConfig contains the ordered stages of one widget.
type SequenceConfig struct {
	Name   string
	Stages []StageSpec
	// NonLinear allows a requested advance to any other stage.
	NonLinear bool
}

// Index returns the position of stage or -1.
func (config SequenceConfig) Index(stage Stage) int {
	for i, spec := range config.Stages {
		if spec.Stage == stage {
			return i
		}
	}
	return -1
}

// Spec returns the configuration of stage.
func (config SequenceConfig) Spec(stage Stage) (StageSpec, bool) {
	index := config.Index(stage)
	if index < 0 {
		return StageSpec{}, false
	}
	return config.Stages[index], true
}

// First returns the stage entered on mount.
func (config SequenceConfig) First() Stage {
	if len(config.Stages) == 0 {
		return StageNone
	}
	return config.Stages[0].Stage
}

// Terminal returns the terminal stage, or StageNone if none is marked.
func (config SequenceConfig) Terminal() Stage {
	for _, spec := range config.Stages {
		if spec.Terminal {
			return spec.Stage
		}
	}
	return StageNone
}

// Successors returns the stages reachable from stage in one step.
func (config SequenceConfig) Successors(stage Stage) []Stage {
	index := config.Index(stage)
	if index < 0 {
		return nil
	}
	spec := config.Stages[index]
	if spec.Terminal {
		return nil
	}
	if len(spec.Next) > 0 {
		return append([]Stage(nil), spec.Next...)
	}
	if index+1 < len(config.Stages) {
		return []Stage{config.Stages[index+1].Stage}
	}
	return nil
}

// PrimarySuccessor returns the stage that timers, holds and taps advance to.
func (config SequenceConfig) PrimarySuccessor(stage Stage) (Stage, bool) {
	next := config.Successors(stage)
	if len(next) == 0 {
		return StageNone, false
	}
	return next[0], true
}

// StageNames returns the stage names in order.
func (config SequenceConfig) StageNames() []Stage {
	names := make([]Stage, 0, len(config.Stages))
	for _, spec := range config.Stages {
		names = append(names, spec.Stage)
	}
	return names
}
