package stagekeeper

import (
	"sync"
	"time"

	"stagecraft/internal/core/clock"
	"stagecraft/internal/core/hold"
	"stagecraft/internal/core/ledger"
	"stagecraft/internal/core/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Options contains runtime options for a Keeper.
type Options struct {
	Clock         clock.Clock
	FrameInterval time.Duration
	// MaxStep bounds a single hold tick; zero uses hold.DefaultMaxStep.
	MaxStep    time.Duration
	Logger     *zap.Logger
	OnComplete func()
}

// Keeper is one widget instance: it owns the stage sequencer, the hold
// engine of the current stage and every timer scheduled on their behalf.
//
// All mutation happens inside dispatch, so public calls and timer callbacks
// are serialised. OnComplete runs after the lock is released and may call
// back into the Keeper.
type Keeper struct {
	mu         sync.Mutex
	id         string
	options    Options
	logger     *zap.Logger
	sequencer  *Sequencer
	ledger     *ledger.Ledger
	hold       *hold.Engine
	stageTimer ledger.Handle
	frameLoop  ledger.Handle
	lastFrame  time.Duration
	taps       int
	epoch      uint64
	mounted    bool
	tornDown   bool
	events     []chan Event
	pending    []func()
}

// New validates config and creates an unmounted Keeper.
func New(config model.SequenceConfig, options Options) (*Keeper, error) {
	sequencer, err := NewSequencer(config)
	if err != nil {
		return nil, err
	}
	if options.Clock == nil {
		options.Clock = clock.System
	}
	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}

	keeper := &Keeper{
		id:        uuid.NewString(),
		options:   options,
		sequencer: sequencer,
	}
	keeper.logger = options.Logger.With(
		zap.String("widget", keeper.id),
		zap.String("sequence", config.Name),
	)
	keeper.ledger = ledger.New(ledger.Config{
		Clock:         options.Clock,
		FrameInterval: options.FrameInterval,
		Dispatcher:    dispatcher{keeper: keeper},
		Logger:        keeper.logger,
	})
	return keeper, nil
}

// ID returns the instance identifier used in logs.
func (keeper *Keeper) ID() string {
	return keeper.id
}

// Config returns the sequence configuration.
func (keeper *Keeper) Config() model.SequenceConfig {
	return keeper.sequencer.Config()
}

// Subscribe registers a new observer channel. Sends never block; a slow
// observer misses events. Channels are closed on Unmount.
func (keeper *Keeper) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	keeper.mu.Lock()
	defer keeper.mu.Unlock()
	if keeper.tornDown {
		close(ch)
		return ch
	}
	keeper.events = append(keeper.events, ch)
	return ch
}

// Mount enters the first stage. Mounting twice, or after Unmount, is a no-op.
func (keeper *Keeper) Mount() {
	keeper.dispatch(func() {
		if keeper.mounted || keeper.tornDown {
			return
		}
		keeper.mounted = true
		keeper.logger.Info("widget mounted")
		keeper.enterStageLocked(keeper.sequencer.Config().First(), model.StageNone)
	})
}

// Unmount tears the widget down: the current stage is exited, every
// outstanding timer and frame loop is cancelled and observers are closed.
func (keeper *Keeper) Unmount() {
	keeper.dispatch(func() {
		if keeper.tornDown {
			return
		}
		if keeper.mounted {
			keeper.exitStageLocked()
		}
		keeper.ledger.CancelAll()
		keeper.mounted = false
		keeper.tornDown = true
		keeper.epoch++

		events := keeper.events
		keeper.events = nil
		for _, ch := range events {
			close(ch)
		}
		keeper.logger.Info("widget unmounted", zap.String("stage", string(keeper.sequencer.Current())))
	})
}

// Reset re-enters the first stage. The completion guard is not cleared:
// OnComplete fires at most once per Keeper.
func (keeper *Keeper) Reset() {
	keeper.dispatch(func() {
		if !keeper.mounted {
			return
		}
		previous := keeper.sequencer.Current()
		keeper.exitStageLocked()
		keeper.enterStageLocked(keeper.sequencer.Config().First(), previous)
	})
}

// RequestAdvance moves to target if it is a legal successor of the current
// stage. Illegal and duplicate requests are absorbed and reported false.
func (keeper *Keeper) RequestAdvance(target model.Stage) bool {
	advanced := false
	keeper.dispatch(func() {
		advanced = keeper.advanceLocked(target, "request")
	})
	return advanced
}

// PointerDown starts the hold gesture of the current stage, if it has one.
func (keeper *Keeper) PointerDown() bool {
	started := false
	keeper.dispatch(func() {
		if !keeper.mounted || keeper.hold == nil {
			return
		}
		started = keeper.hold.Start()
		if started {
			keeper.emitProgressLocked()
		}
	})
	return started
}

// PointerUp releases the hold gesture of the current stage, if it has one.
func (keeper *Keeper) PointerUp() bool {
	stopped := false
	keeper.dispatch(func() {
		if !keeper.mounted || keeper.hold == nil {
			return
		}
		stopped = keeper.hold.Stop()
		if stopped {
			keeper.emitProgressLocked()
		}
	})
	return stopped
}

// Tap counts a tap on a tap-driven stage and advances once the required
// count is reached.
func (keeper *Keeper) Tap() bool {
	accepted := false
	keeper.dispatch(func() {
		if !keeper.mounted {
			return
		}
		current := keeper.sequencer.Current()
		spec, _ := keeper.sequencer.Config().Spec(current)
		if spec.Entry.Kind != model.EntryTap {
			return
		}
		accepted = true
		keeper.taps++
		keeper.emitLocked(Event{Type: EventTap, Stage: current, Taps: keeper.taps})
		if keeper.taps >= spec.Entry.RequiredCount {
			keeper.advancePrimaryLocked("tap")
		}
	})
	return accepted
}

// Stage returns the current stage.
func (keeper *Keeper) Stage() model.Stage {
	keeper.mu.Lock()
	defer keeper.mu.Unlock()
	return keeper.sequencer.Current()
}

// Completed reports whether the terminal stage has been reached.
func (keeper *Keeper) Completed() bool {
	keeper.mu.Lock()
	defer keeper.mu.Unlock()
	return keeper.sequencer.Completed()
}

// Snapshot returns everything a renderer needs for one frame.
func (keeper *Keeper) Snapshot() Snapshot {
	keeper.mu.Lock()
	defer keeper.mu.Unlock()

	current := keeper.sequencer.Current()
	spec, _ := keeper.sequencer.Config().Spec(current)
	snapshot := Snapshot{
		Stage:        current,
		Entry:        spec.Entry.Kind,
		Taps:         keeper.taps,
		RequiredTaps: spec.Entry.RequiredCount,
		Completed:    keeper.sequencer.Completed(),
		Mounted:      keeper.mounted,
	}
	if keeper.hold != nil {
		state := keeper.hold.State()
		snapshot.Progress = state.Progress
		snapshot.Holding = state.Holding
		snapshot.HoldCompleted = state.Completed
	}
	return snapshot
}

// Pending returns the number of live timers and frame loops.
func (keeper *Keeper) Pending() int {
	return keeper.ledger.Len()
}

type dispatcher struct {
	keeper *Keeper
}

func (d dispatcher) Dispatch(fn func()) {
	d.keeper.dispatch(fn)
}

func (keeper *Keeper) dispatch(fn func()) {
	for _, notify := range keeper.runLocked(fn) {
		notify()
	}
}

func (keeper *Keeper) runLocked(fn func()) []func() {
	keeper.mu.Lock()
	defer keeper.mu.Unlock()
	fn()
	notes := keeper.pending
	keeper.pending = nil
	return notes
}

func (keeper *Keeper) enterStageLocked(stage, previous model.Stage) {
	keeper.epoch++
	epoch := keeper.epoch
	keeper.sequencer.set(stage)
	spec, _ := keeper.sequencer.Config().Spec(stage)

	keeper.logger.Debug("stage entered",
		zap.String("stage", string(stage)),
		zap.String("previous", string(previous)),
	)
	keeper.emitLocked(Event{Type: EventStageChange, Stage: stage, Previous: previous})

	if spec.Terminal {
		keeper.completeLocked()
		return
	}

	switch spec.Entry.Kind {
	case model.EntryTimer:
		keeper.stageTimer = keeper.ledger.Schedule(func() {
			keeper.onTimerLocked(epoch)
		}, spec.Entry.Delay)
	case model.EntryHold:
		keeper.armHoldLocked(epoch, spec.Entry.Hold)
	case model.EntryTap:
		keeper.taps = 0
	}
}

func (keeper *Keeper) exitStageLocked() {
	keeper.ledger.Cancel(keeper.stageTimer)
	keeper.ledger.Cancel(keeper.frameLoop)
	keeper.stageTimer = ledger.Handle{}
	keeper.frameLoop = ledger.Handle{}
	if keeper.hold != nil {
		keeper.hold.Reset()
		keeper.hold = nil
	}
	keeper.taps = 0
	keeper.lastFrame = 0
}

func (keeper *Keeper) advanceLocked(target model.Stage, cause string) bool {
	current := keeper.sequencer.Current()
	if !keeper.mounted || !keeper.sequencer.CanAdvance(target) {
		keeper.logger.Debug("advance ignored",
			zap.String("stage", string(current)),
			zap.String("target", string(target)),
			zap.String("cause", cause),
		)
		keeper.emitLocked(Event{Type: EventIgnored, Stage: current, Message: string(target)})
		return false
	}
	keeper.exitStageLocked()
	keeper.enterStageLocked(target, current)
	return true
}

func (keeper *Keeper) advancePrimaryLocked(cause string) {
	next, ok := keeper.sequencer.Config().PrimarySuccessor(keeper.sequencer.Current())
	if !ok {
		return
	}
	keeper.advanceLocked(next, cause)
}

func (keeper *Keeper) onTimerLocked(epoch uint64) {
	if epoch != keeper.epoch {
		keeper.logger.Debug("stale stage timer dropped")
		return
	}
	keeper.advancePrimaryLocked("timer")
}

func (keeper *Keeper) armHoldLocked(epoch uint64, params model.HoldParams) {
	config := params.EngineConfig(keeper.options.MaxStep)
	keeper.hold = hold.New(config, func() {
		keeper.onHoldCompleteLocked(epoch)
	})
	keeper.lastFrame = 0
	keeper.frameLoop = keeper.ledger.ScheduleFrameLoop(func(elapsed time.Duration) {
		keeper.onFrameLocked(epoch, elapsed)
	})
}

func (keeper *Keeper) onFrameLocked(epoch uint64, elapsed time.Duration) {
	if epoch != keeper.epoch || keeper.hold == nil {
		return
	}
	delta := elapsed - keeper.lastFrame
	keeper.lastFrame = elapsed

	before := keeper.hold.Progress()
	keeper.hold.Tick(delta)
	if epoch != keeper.epoch {
		// the tick completed the gesture and the stage has moved on
		return
	}
	if keeper.hold.Progress() != before {
		keeper.emitProgressLocked()
	}
}

func (keeper *Keeper) onHoldCompleteLocked(epoch uint64) {
	if epoch != keeper.epoch {
		return
	}
	keeper.emitLocked(Event{
		Type:     EventHoldCompleted,
		Stage:    keeper.sequencer.Current(),
		Progress: keeper.hold.Progress(),
	})
	keeper.advancePrimaryLocked("hold")
}

func (keeper *Keeper) completeLocked() {
	if !keeper.sequencer.markCompleted() {
		keeper.logger.Debug("completion already delivered")
		return
	}
	keeper.logger.Info("widget completed", zap.String("stage", string(keeper.sequencer.Current())))
	keeper.emitLocked(Event{Type: EventCompleted, Stage: keeper.sequencer.Current()})
	if keeper.options.OnComplete != nil {
		keeper.pending = append(keeper.pending, keeper.options.OnComplete)
	}
}

func (keeper *Keeper) emitProgressLocked() {
	state := keeper.hold.State()
	keeper.emitLocked(Event{
		Type:     EventProgress,
		Stage:    keeper.sequencer.Current(),
		Progress: state.Progress,
		Holding:  state.Holding,
	})
}

func (keeper *Keeper) emitLocked(event Event) {
	if event.At.IsZero() {
		event.At = keeper.options.Clock.Now()
	}
	for _, ch := range keeper.events {
		select {
		case ch <- event:
		default:
		}
	}
}
