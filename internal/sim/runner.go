package sim

import (
	"fmt"
	"time"

	"stagecraft/internal/core/clock"
	"stagecraft/internal/core/ledger"
	"stagecraft/internal/core/model"
	"stagecraft/internal/core/stagekeeper"

	"go.uber.org/zap"
)

const eventBuffer = 1024

// Options configures a simulation run.
type Options struct {
	FrameInterval time.Duration
	MaxStep       time.Duration
	Logger        *zap.Logger
	// Progress records every hold progress event, not only stage events.
	Progress bool
}

// Record is one row of the timeline.
type Record struct {
	At     time.Duration
	Source string
	Type   string
	Stage  model.Stage
	Detail string
}

// Result is the outcome of a run.
type Result struct {
	Name        string
	Timeline    []Record
	Final       stagekeeper.Snapshot
	Completions int
	Elapsed     time.Duration
}

// Run mounts config on a fake clock, plays steps against it and returns the
// recorded timeline. The widget is unmounted before Run returns.
func Run(config model.SequenceConfig, steps []Step, options Options) (Result, error) {
	frame := options.FrameInterval
	if frame <= 0 {
		frame = ledger.DefaultFrameInterval
	}

	start := time.Unix(0, 0).UTC()
	fake := clock.NewFake(start)
	result := Result{Name: config.Name}

	keeper, err := stagekeeper.New(config, stagekeeper.Options{
		Clock:         fake,
		FrameInterval: frame,
		MaxStep:       options.MaxStep,
		Logger:        options.Logger,
		OnComplete: func() {
			result.Completions++
		},
	})
	if err != nil {
		return Result{}, fmt.Errorf("create widget: %w", err)
	}

	events := keeper.Subscribe(eventBuffer)
	drain := func() {
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return
				}
				if event.Type == stagekeeper.EventProgress && !options.Progress {
					continue
				}
				result.Timeline = append(result.Timeline, eventRecord(event, start))
			default:
				return
			}
		}
	}

	keeper.Mount()
	drain()

	for _, step := range steps {
		accepted := true
		switch step.Kind {
		case StepWait:
			for remaining := step.Duration; remaining > 0; {
				if keeper.Pending() == 0 {
					// Nothing can fire; skip the idle stretch in one go.
					fake.Advance(remaining)
					drain()
					break
				}
				chunk := min(remaining, frame)
				fake.Advance(chunk)
				drain()
				remaining -= chunk
			}
		case StepDown:
			accepted = keeper.PointerDown()
		case StepUp:
			accepted = keeper.PointerUp()
		case StepTap:
			count := max(step.Count, 1)
			for i := 0; i < count; i++ {
				accepted = keeper.Tap() && accepted
			}
		case StepAdvance:
			accepted = keeper.RequestAdvance(step.Target)
		case StepReset:
			keeper.Reset()
		default:
			keeper.Unmount()
			return Result{}, fmt.Errorf("%w: unknown step %q", ErrInvalidScript, step.Kind)
		}

		record := Record{
			At:     fake.Now().Sub(start),
			Source: "step",
			Type:   step.String(),
			Stage:  keeper.Stage(),
		}
		if !accepted {
			record.Detail = "ignored"
		}
		result.Timeline = append(result.Timeline, record)
		drain()
	}

	result.Final = keeper.Snapshot()
	result.Elapsed = fake.Now().Sub(start)
	keeper.Unmount()
	return result, nil
}

func eventRecord(event stagekeeper.Event, start time.Time) Record {
	record := Record{
		At:     event.At.Sub(start),
		Source: "event",
		Type:   string(event.Type),
		Stage:  event.Stage,
	}
	switch event.Type {
	case stagekeeper.EventStageChange:
		if event.Previous != model.StageNone {
			record.Detail = "from " + string(event.Previous)
		}
	case stagekeeper.EventProgress, stagekeeper.EventHoldCompleted:
		record.Detail = fmt.Sprintf("%.3f", event.Progress)
	case stagekeeper.EventTap:
		record.Detail = fmt.Sprintf("taps %d", event.Taps)
	case stagekeeper.EventIgnored:
		if event.Message != "" {
			record.Detail = "target " + event.Message
		}
	}
	return record
}

// Stages returns the stage-change records in order.
func (result Result) Stages() []model.Stage {
	var stages []model.Stage
	for _, record := range result.Timeline {
		if record.Source == "event" && record.Type == string(stagekeeper.EventStageChange) {
			stages = append(stages, record.Stage)
		}
	}
	return stages
}
