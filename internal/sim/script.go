// Package sim runs widget definitions headlessly on a fake clock so their
// timing can be inspected and tested without a renderer.
package sim

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"stagecraft/internal/core/ledger"
	"stagecraft/internal/core/model"
)

// ErrInvalidScript reports a script line that cannot be parsed.
var ErrInvalidScript = errors.New("invalid script")

// StepKind names one scripted interaction.
type StepKind string

const (
	StepWait    StepKind = "wait"
	StepDown    StepKind = "down"
	StepUp      StepKind = "up"
	StepTap     StepKind = "tap"
	StepAdvance StepKind = "advance"
	StepReset   StepKind = "reset"
)

// MaxWait bounds a single wait step.
const MaxWait = time.Hour

// Step is one line of a script.
type Step struct {
	Kind     StepKind
	Duration time.Duration
	Target   model.Stage
	Count    int
	Line     int
}

func (step Step) String() string {
	switch step.Kind {
	case StepWait:
		return fmt.Sprintf("wait %s", step.Duration)
	case StepAdvance:
		return fmt.Sprintf("advance %s", step.Target)
	case StepTap:
		if step.Count > 1 {
			return fmt.Sprintf("tap %d", step.Count)
		}
	}
	return string(step.Kind)
}

// ParseScript reads one step per line. Blank lines and lines starting with
// '#' are skipped.
func ParseScript(reader io.Reader) ([]Step, error) {
	var steps []Step
	scanner := bufio.NewScanner(reader)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		step, err := parseStep(strings.Fields(line))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidScript, lineNumber, err)
		}
		step.Line = lineNumber
		steps = append(steps, step)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return steps, nil
}

func parseStep(fields []string) (Step, error) {
	kind := StepKind(strings.ToLower(fields[0]))
	args := fields[1:]

	switch kind {
	case StepWait:
		if len(args) != 1 {
			return Step{}, errors.New("wait takes one duration")
		}
		duration, err := time.ParseDuration(args[0])
		if err != nil {
			return Step{}, fmt.Errorf("parse duration: %w", err)
		}
		if duration < 0 {
			return Step{}, errors.New("wait duration must not be negative")
		}
		if duration > MaxWait {
			return Step{}, fmt.Errorf("wait duration exceeds %s", MaxWait)
		}
		return Step{Kind: kind, Duration: duration}, nil
	case StepAdvance:
		if len(args) != 1 {
			return Step{}, errors.New("advance takes one stage name")
		}
		return Step{Kind: kind, Target: model.Stage(args[0])}, nil
	case StepTap:
		count := 1
		if len(args) > 1 {
			return Step{}, errors.New("tap takes at most one count")
		}
		if len(args) == 1 {
			parsed, err := strconv.Atoi(args[0])
			if err != nil || parsed < 1 {
				return Step{}, fmt.Errorf("tap count %q must be a positive integer", args[0])
			}
			count = parsed
		}
		return Step{Kind: kind, Count: count}, nil
	case StepDown, StepUp, StepReset:
		if len(args) != 0 {
			return Step{}, fmt.Errorf("%s takes no arguments", kind)
		}
		return Step{Kind: kind}, nil
	default:
		return Step{}, fmt.Errorf("unknown step %q", fields[0])
	}
}

// AutoScript walks the primary path of config: it waits out timers, holds
// until each hold gesture completes and taps the required count.
func AutoScript(config model.SequenceConfig, maxStep time.Duration) []Step {
	var steps []Step
	slack := 4 * ledger.DefaultFrameInterval
	stage := config.First()
	for stage != model.StageNone {
		spec, ok := config.Spec(stage)
		if !ok || spec.Terminal {
			break
		}

		switch spec.Entry.Kind {
		case model.EntryTimer:
			steps = append(steps, Step{Kind: StepWait, Duration: spec.Entry.Delay + slack})
		case model.EntryHold:
			duration := spec.Entry.Hold.EngineConfig(maxStep).HoldDuration()
			steps = append(steps,
				Step{Kind: StepDown},
				Step{Kind: StepWait, Duration: duration.Round(100*time.Millisecond) + 5*slack},
				Step{Kind: StepUp},
			)
		case model.EntryTap:
			steps = append(steps, Step{Kind: StepTap, Count: spec.Entry.RequiredCount})
		}

		next, ok := config.PrimarySuccessor(stage)
		if !ok {
			break
		}
		stage = next
	}
	return steps
}
