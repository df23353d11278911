package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
)

// ErrInvalidConfig is wrapped by every configuration error.
var ErrInvalidConfig = errors.New("invalid stage configuration")

// ConfigError describes one malformed stage configuration.
type ConfigError struct {
	Sequence   string
	Stage      Stage
	Message    string
	Suggestion string
	// Err is the underlying cause, if any.
	Err error
}

func (err *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("stage config")
	if err.Sequence != "" {
		fmt.Fprintf(&b, " %q", err.Sequence)
	}
	if err.Stage != StageNone {
		fmt.Fprintf(&b, " stage %q", err.Stage)
	}
	b.WriteString(": ")
	b.WriteString(err.Message)
	if err.Suggestion != "" {
		b.WriteString(" (")
		b.WriteString(err.Suggestion)
		b.WriteString(")")
	}
	return b.String()
}

// Unwrap lets errors.Is match ErrInvalidConfig and the underlying cause.
func (err *ConfigError) Unwrap() []error {
	if err.Err != nil {
		return []error{ErrInvalidConfig, err.Err}
	}
	return []error{ErrInvalidConfig}
}

// Validate checks the sequence for the errors that would otherwise stall a
// widget at runtime.
func (config SequenceConfig) Validate() error {
	fail := func(stage Stage, format string, args ...any) error {
		return &ConfigError{Sequence: config.Name, Stage: stage, Message: fmt.Sprintf(format, args...)}
	}

	if len(config.Stages) == 0 {
		return fail(StageNone, "no stages defined")
	}

	seen := make(map[Stage]int, len(config.Stages))
	terminalIndex := -1
	for i, spec := range config.Stages {
		if spec.Stage == StageNone {
			return fail(StageNone, "stage %d has no name", i)
		}
		if _, dup := seen[spec.Stage]; dup {
			return fail(spec.Stage, "duplicate stage")
		}
		seen[spec.Stage] = i

		if spec.Terminal {
			if terminalIndex >= 0 {
				return fail(spec.Stage, "second terminal stage after %q", config.Stages[terminalIndex].Stage)
			}
			terminalIndex = i
		}
	}
	if terminalIndex < 0 {
		return &ConfigError{
			Sequence:   config.Name,
			Message:    "no terminal stage",
			Suggestion: "mark the final stage with terminal: true",
		}
	}
	if terminalIndex != len(config.Stages)-1 {
		return fail(config.Stages[terminalIndex+1].Stage, "unreachable: defined after terminal stage %q", config.Stages[terminalIndex].Stage)
	}

	for i, spec := range config.Stages {
		if err := config.validateStage(i, spec, seen); err != nil {
			return err
		}
	}

	if !config.terminalReachable() {
		return fail(config.Stages[terminalIndex].Stage, "terminal stage is unreachable from %q", config.First())
	}
	return nil
}

func (config SequenceConfig) validateStage(index int, spec StageSpec, seen map[Stage]int) error {
	fail := func(format string, args ...any) *ConfigError {
		return &ConfigError{Sequence: config.Name, Stage: spec.Stage, Message: fmt.Sprintf(format, args...)}
	}

	if spec.Terminal {
		if spec.Entry.Kind != EntryNone {
			return fail("terminal stage cannot have a %s entry action", spec.Entry.Kind)
		}
		if len(spec.Next) > 0 {
			return fail("terminal stage cannot have successors")
		}
		return nil
	}

	switch spec.Entry.Kind {
	case EntryNone:
		err := fail("missing entry action")
		err.Suggestion = "add a timer, hold or tap entry, or mark the stage terminal"
		return err
	case EntryTimer:
		if spec.Entry.Delay < 0 {
			return fail("timer delay must not be negative")
		}
	case EntryHold:
		if err := spec.Entry.Hold.EngineConfig(0).Validate(); err != nil {
			configErr := fail("%v", err)
			configErr.Err = err
			return configErr
		}
	case EntryTap:
		if spec.Entry.RequiredCount < 1 {
			return fail("tap count must be at least 1")
		}
	default:
		err := fail("unknown entry kind %q", spec.Entry.Kind)
		err.Suggestion = suggest(string(spec.Entry.Kind), []string{string(EntryTimer), string(EntryHold), string(EntryTap)})
		return err
	}

	for _, next := range spec.Next {
		target, ok := seen[next]
		if !ok {
			err := fail("unknown successor %q", next)
			err.Suggestion = suggest(string(next), stageStrings(config.StageNames()))
			return err
		}
		if target <= index {
			return fail("successor %q must come after this stage", next)
		}
	}
	return nil
}

func (config SequenceConfig) terminalReachable() bool {
	if config.NonLinear {
		return true
	}
	terminal := config.Terminal()
	visited := map[Stage]bool{}
	queue := []Stage{config.First()}
	for len(queue) > 0 {
		stage := queue[0]
		queue = queue[1:]
		if stage == terminal {
			return true
		}
		if visited[stage] {
			continue
		}
		visited[stage] = true
		queue = append(queue, config.Successors(stage)...)
	}
	return false
}

// suggest returns a "did you mean" hint for the closest candidate.
func suggest(input string, candidates []string) string {
	best := ""
	bestDistance := -1
	for _, candidate := range candidates {
		distance := levenshtein.ComputeDistance(strings.ToLower(input), strings.ToLower(candidate))
		if bestDistance < 0 || distance < bestDistance {
			best = candidate
			bestDistance = distance
		}
	}
	if best == "" || bestDistance > len(best)/2+1 {
		return ""
	}
	return fmt.Sprintf("did you mean %q?", best)
}

func stageStrings(stages []Stage) []string {
	values := make([]string, 0, len(stages))
	for _, stage := range stages {
		values = append(values, string(stage))
	}
	return values
}
