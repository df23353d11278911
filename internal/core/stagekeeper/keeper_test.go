package stagekeeper

import (
	"sync/atomic"
	"testing"
	"time"

	"stagecraft/internal/core/clock"
	"stagecraft/internal/core/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func arrivalConfig() model.SequenceConfig {
	return model.SequenceConfig{
		Name: "arrival",
		Stages: []model.StageSpec{
			{Stage: "arriving", Entry: model.TimerAction(3000 * time.Millisecond)},
			{Stage: "active", Entry: model.HoldAction(model.HoldParams{
				ApproachRate: 0.08,
				ApproachGain: 0.12,
				DecayRate:    0.03,
				Threshold:    1,
			})},
			{Stage: "resonant", Entry: model.TimerAction(5500 * time.Millisecond)},
			{Stage: "afterglow", Terminal: true},
		},
	}
}

type harness struct {
	keeper    *Keeper
	clock     *clock.Fake
	events    <-chan Event
	completed *atomic.Int32
}

func newHarness(t *testing.T, config model.SequenceConfig) *harness {
	t.Helper()
	fake := clock.NewFake(epoch)
	completed := &atomic.Int32{}
	keeper, err := New(config, Options{
		Clock:      fake,
		OnComplete: func() { completed.Add(1) },
	})
	require.NoError(t, err)
	h := &harness{
		keeper:    keeper,
		clock:     fake,
		events:    keeper.Subscribe(4096),
		completed: completed,
	}
	t.Cleanup(keeper.Unmount)
	return h
}

func (h *harness) drain() []Event {
	var events []Event
	for {
		select {
		case event, ok := <-h.events:
			if !ok {
				return events
			}
			events = append(events, event)
		default:
			return events
		}
	}
}

func countType(events []Event, eventType EventType) int {
	count := 0
	for _, event := range events {
		if event.Type == eventType {
			count++
		}
	}
	return count
}

func stageChanges(events []Event) []model.Stage {
	var stages []model.Stage
	for _, event := range events {
		if event.Type == EventStageChange {
			stages = append(stages, event.Stage)
		}
	}
	return stages
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(model.SequenceConfig{Stages: []model.StageSpec{{Stage: "lonely"}}}, Options{})
	assert.ErrorIs(t, err, model.ErrInvalidConfig)
}

func TestArrivalScenario(t *testing.T) {
	h := newHarness(t, arrivalConfig())
	assert.Equal(t, model.StageNone, h.keeper.Stage())

	h.keeper.Mount()
	assert.Equal(t, model.Stage("arriving"), h.keeper.Stage())

	h.clock.Advance(3000 * time.Millisecond)
	require.Equal(t, model.Stage("active"), h.keeper.Stage())

	require.True(t, h.keeper.PointerDown())
	for i := 0; i < 7; i++ {
		h.clock.Advance(time.Second)
	}
	snapshot := h.keeper.Snapshot()
	assert.Equal(t, model.Stage("active"), snapshot.Stage)
	assert.True(t, snapshot.Holding)
	assert.Greater(t, snapshot.Progress, 0.8)

	h.clock.Advance(time.Second)
	assert.Equal(t, model.Stage("resonant"), h.keeper.Stage())

	h.clock.Advance(5500 * time.Millisecond)
	assert.Equal(t, model.Stage("afterglow"), h.keeper.Stage())
	assert.Equal(t, int32(1), h.completed.Load())
	assert.True(t, h.keeper.Completed())

	assert.False(t, h.keeper.RequestAdvance("afterglow"))
	assert.Equal(t, model.Stage("afterglow"), h.keeper.Stage())
	assert.Equal(t, int32(1), h.completed.Load())

	events := h.drain()
	assert.Equal(t, []model.Stage{"arriving", "active", "resonant", "afterglow"}, stageChanges(events))
	assert.Equal(t, 1, countType(events, EventHoldCompleted))
	assert.Equal(t, 1, countType(events, EventCompleted))
	assert.Zero(t, h.keeper.Pending())
}

func TestSkippingAStageIsRejected(t *testing.T) {
	h := newHarness(t, arrivalConfig())
	h.keeper.Mount()

	assert.False(t, h.keeper.RequestAdvance("resonant"))
	assert.Equal(t, model.Stage("arriving"), h.keeper.Stage())
	assert.False(t, h.keeper.RequestAdvance("nowhere"))
	assert.False(t, h.keeper.RequestAdvance("arriving"))

	events := h.drain()
	assert.Equal(t, 3, countType(events, EventIgnored))
}

func TestLateTimerAfterManualAdvanceIsAbsorbed(t *testing.T) {
	h := newHarness(t, arrivalConfig())
	h.keeper.Mount()

	h.clock.Advance(time.Second)
	require.True(t, h.keeper.RequestAdvance("active"))
	assert.False(t, h.keeper.RequestAdvance("active"), "duplicate request")

	h.clock.Advance(10 * time.Second)
	assert.Equal(t, model.Stage("active"), h.keeper.Stage())
	assert.Equal(t, []model.Stage{"arriving", "active"}, stageChanges(h.drain()))
}

func TestTimerStageExitCancelsItsTimer(t *testing.T) {
	h := newHarness(t, arrivalConfig())
	h.keeper.Mount()
	assert.Equal(t, 1, h.keeper.Pending())

	h.keeper.RequestAdvance("active")
	assert.Equal(t, 1, h.keeper.Pending(), "only the hold frame loop remains")
}

func TestOnCompleteFiresOnceAcrossResets(t *testing.T) {
	h := newHarness(t, arrivalConfig())
	h.keeper.Mount()

	for round := 0; round < 3; round++ {
		require.True(t, h.keeper.RequestAdvance("active"))
		require.True(t, h.keeper.RequestAdvance("resonant"))
		h.clock.Advance(6 * time.Second)
		require.Equal(t, model.Stage("afterglow"), h.keeper.Stage())
		h.keeper.Reset()
		require.Equal(t, model.Stage("arriving"), h.keeper.Stage())
	}

	assert.Equal(t, int32(1), h.completed.Load())
	assert.Equal(t, 1, countType(h.drain(), EventCompleted))
}

func TestResetRestartsEntryAction(t *testing.T) {
	h := newHarness(t, arrivalConfig())
	h.keeper.Mount()

	h.clock.Advance(2 * time.Second)
	h.keeper.Reset()
	h.clock.Advance(2 * time.Second)
	assert.Equal(t, model.Stage("arriving"), h.keeper.Stage(), "reset restarts the arrival timer")

	h.clock.Advance(time.Second)
	assert.Equal(t, model.Stage("active"), h.keeper.Stage())
}

func TestUnmountMidStageCancelsEverything(t *testing.T) {
	h := newHarness(t, arrivalConfig())
	h.keeper.Mount()
	h.clock.Advance(3 * time.Second)
	h.keeper.PointerDown()
	h.clock.Advance(time.Second)

	h.keeper.Unmount()
	assert.Zero(t, h.keeper.Pending())
	assert.Zero(t, h.clock.Pending())
	h.drain()

	h.clock.Advance(time.Hour)
	assert.Equal(t, model.Stage("active"), h.keeper.Stage())
	assert.Zero(t, h.completed.Load())
	assert.False(t, h.keeper.PointerDown())
	assert.False(t, h.keeper.RequestAdvance("resonant"))

	_, open := <-h.events
	assert.False(t, open, "observers are closed on unmount")
}

func TestMountIsIdempotentAndFinalAfterUnmount(t *testing.T) {
	h := newHarness(t, arrivalConfig())
	h.keeper.Mount()
	h.keeper.Mount()
	assert.Equal(t, []model.Stage{"arriving"}, stageChanges(h.drain()))
	assert.Equal(t, 1, h.keeper.Pending())

	h.keeper.Unmount()
	h.keeper.Unmount()
	h.keeper.Mount()
	assert.False(t, h.keeper.Snapshot().Mounted)
	assert.Zero(t, h.keeper.Pending())

	_, open := <-h.keeper.Subscribe(1)
	assert.False(t, open)
}

func TestPointerEventsWithoutHoldAreNoOps(t *testing.T) {
	h := newHarness(t, arrivalConfig())
	assert.False(t, h.keeper.PointerDown(), "not mounted")

	h.keeper.Mount()
	assert.False(t, h.keeper.PointerDown())
	assert.False(t, h.keeper.PointerUp())
	assert.False(t, h.keeper.Tap())
	assert.Zero(t, h.keeper.Snapshot().Progress)
}

func TestReleaseDecaysWithoutCompleting(t *testing.T) {
	h := newHarness(t, arrivalConfig())
	h.keeper.Mount()
	h.clock.Advance(3 * time.Second)

	h.keeper.PointerDown()
	h.clock.Advance(4 * time.Second)
	require.True(t, h.keeper.PointerUp())
	assert.False(t, h.keeper.PointerUp())

	previous := h.keeper.Snapshot().Progress
	require.Greater(t, previous, 0.0)
	for i := 0; i < 40; i++ {
		h.clock.Advance(time.Second)
		current := h.keeper.Snapshot().Progress
		assert.LessOrEqual(t, current, previous)
		assert.GreaterOrEqual(t, current, 0.0)
		previous = current
	}
	assert.Zero(t, previous)
	assert.Equal(t, model.Stage("active"), h.keeper.Stage())
	assert.Zero(t, h.completed.Load())
}

func TestHoldProgressResetsOnStageExit(t *testing.T) {
	h := newHarness(t, arrivalConfig())
	h.keeper.Mount()
	h.keeper.RequestAdvance("active")
	h.keeper.PointerDown()
	h.clock.Advance(2 * time.Second)
	require.Greater(t, h.keeper.Snapshot().Progress, 0.0)

	h.keeper.RequestAdvance("resonant")
	snapshot := h.keeper.Snapshot()
	assert.Zero(t, snapshot.Progress)
	assert.False(t, snapshot.Holding)
	assert.False(t, h.keeper.PointerDown())
}

func TestPartialThresholdHoldCompletesAtFullProgress(t *testing.T) {
	h := newHarness(t, model.SequenceConfig{Stages: []model.StageSpec{
		{Stage: "press", Entry: model.HoldAction(model.HoldParams{ApproachRate: 0.5, Threshold: 0.5})},
		{Stage: "done", Terminal: true},
	}})
	h.keeper.Mount()
	require.True(t, h.keeper.PointerDown())
	h.clock.Advance(1100 * time.Millisecond)

	assert.Equal(t, model.Stage("done"), h.keeper.Stage())
	assert.True(t, h.keeper.Completed())

	var completions []Event
	for _, event := range h.drain() {
		if event.Type == EventHoldCompleted {
			completions = append(completions, event)
		}
	}
	require.Len(t, completions, 1)
	assert.Equal(t, model.Stage("press"), completions[0].Stage)
	assert.Equal(t, 1.0, completions[0].Progress)
}

func tapConfig() model.SequenceConfig {
	return model.SequenceConfig{
		Name: "knock",
		Stages: []model.StageSpec{
			{Stage: "door", Entry: model.TapAction(3)},
			{Stage: "open", Entry: model.TimerAction(time.Second)},
			{Stage: "inside", Terminal: true},
		},
	}
}

func TestTapStageAdvancesOnRequiredCount(t *testing.T) {
	h := newHarness(t, tapConfig())
	h.keeper.Mount()

	assert.True(t, h.keeper.Tap())
	assert.True(t, h.keeper.Tap())
	snapshot := h.keeper.Snapshot()
	assert.Equal(t, 2, snapshot.Taps)
	assert.Equal(t, 3, snapshot.RequiredTaps)
	assert.Equal(t, model.EntryTap, snapshot.Entry)

	assert.True(t, h.keeper.Tap())
	assert.Equal(t, model.Stage("open"), h.keeper.Stage())
	assert.False(t, h.keeper.Tap(), "timer stage ignores taps")

	h.clock.Advance(time.Second)
	assert.Equal(t, model.Stage("inside"), h.keeper.Stage())
	assert.Equal(t, int32(1), h.completed.Load())
	assert.Equal(t, 3, countType(h.drain(), EventTap))
}

func TestRapidTapsAdvanceOnce(t *testing.T) {
	h := newHarness(t, tapConfig())
	h.keeper.Mount()
	for i := 0; i < 10; i++ {
		h.keeper.Tap()
	}
	assert.Equal(t, []model.Stage{"door", "open"}, stageChanges(h.drain()))
}

func TestExplicitSuccessorsAllowBranching(t *testing.T) {
	config := model.SequenceConfig{
		Stages: []model.StageSpec{
			{Stage: "choice", Entry: model.TimerAction(time.Second), Next: []model.Stage{"calm", "bright"}},
			{Stage: "calm", Entry: model.TimerAction(time.Second), Next: []model.Stage{"end"}},
			{Stage: "bright", Entry: model.TimerAction(time.Second)},
			{Stage: "end", Terminal: true},
		},
	}

	h := newHarness(t, config)
	h.keeper.Mount()
	require.True(t, h.keeper.RequestAdvance("bright"))
	h.clock.Advance(time.Second)
	assert.Equal(t, model.Stage("end"), h.keeper.Stage())

	other := newHarness(t, config)
	other.keeper.Mount()
	other.clock.Advance(time.Second)
	assert.Equal(t, model.Stage("calm"), other.keeper.Stage(), "timers follow the first successor")
	assert.False(t, other.keeper.RequestAdvance("bright"))
	other.clock.Advance(time.Second)
	assert.Equal(t, model.Stage("end"), other.keeper.Stage())
}

func TestNonLinearJumpsButTerminalIsFinal(t *testing.T) {
	config := model.SequenceConfig{
		NonLinear: true,
		Stages: []model.StageSpec{
			{Stage: "lobby", Entry: model.TapAction(1)},
			{Stage: "garden", Entry: model.TimerAction(time.Minute)},
			{Stage: "library", Entry: model.TimerAction(time.Minute)},
			{Stage: "home", Terminal: true},
		},
	}
	h := newHarness(t, config)
	h.keeper.Mount()

	assert.True(t, h.keeper.RequestAdvance("library"))
	assert.True(t, h.keeper.RequestAdvance("lobby"))
	assert.True(t, h.keeper.RequestAdvance("garden"))
	assert.False(t, h.keeper.RequestAdvance("garden"))
	assert.True(t, h.keeper.RequestAdvance("home"))
	assert.False(t, h.keeper.RequestAdvance("lobby"))
	assert.Equal(t, model.Stage("home"), h.keeper.Stage())
	assert.Equal(t, int32(1), h.completed.Load())
}

func TestZeroDelayTimerAdvancesOnNextTurn(t *testing.T) {
	config := model.SequenceConfig{Stages: []model.StageSpec{
		{Stage: "blink", Entry: model.TimerAction(0)},
		{Stage: "done", Terminal: true},
	}}
	h := newHarness(t, config)
	h.keeper.Mount()
	assert.Equal(t, model.Stage("blink"), h.keeper.Stage())

	h.clock.Advance(0)
	assert.Equal(t, model.Stage("done"), h.keeper.Stage())
}

func TestOnCompleteMayCallBackIntoKeeper(t *testing.T) {
	fake := clock.NewFake(epoch)
	var keeper *Keeper
	calls := 0
	keeper, err := New(tapConfig(), Options{
		Clock: fake,
		OnComplete: func() {
			calls++
			keeper.Reset()
		},
	})
	require.NoError(t, err)
	defer keeper.Unmount()

	keeper.Mount()
	keeper.Tap()
	keeper.Tap()
	keeper.Tap()
	fake.Advance(time.Second)

	assert.Equal(t, 1, calls)
	assert.Equal(t, model.Stage("door"), keeper.Stage())
}

func TestSnapshotBeforeMount(t *testing.T) {
	h := newHarness(t, arrivalConfig())
	snapshot := h.keeper.Snapshot()
	assert.Equal(t, model.StageNone, snapshot.Stage)
	assert.False(t, snapshot.Mounted)
	assert.False(t, snapshot.Completed)
	assert.NotEmpty(t, h.keeper.ID())
	assert.Equal(t, "arrival", h.keeper.Config().Name)
}

func TestSystemClockUnmountLeavesNothingRunning(t *testing.T) {
	defer goleak.VerifyNone(t)

	var completed atomic.Int32
	config := model.SequenceConfig{Stages: []model.StageSpec{
		{Stage: "wait", Entry: model.TimerAction(20 * time.Millisecond)},
		{Stage: "hold", Entry: model.HoldAction(model.HoldParams{ApproachRate: 100, Threshold: 1})},
		{Stage: "done", Terminal: true},
	}}
	keeper, err := New(config, Options{
		FrameInterval: time.Millisecond,
		OnComplete:    func() { completed.Add(1) },
	})
	require.NoError(t, err)

	keeper.Mount()
	keeper.Unmount()
	time.Sleep(80 * time.Millisecond)

	assert.Zero(t, completed.Load())
	assert.Equal(t, model.Stage("wait"), keeper.Stage())
}

func TestSystemClockRunsToCompletion(t *testing.T) {
	defer goleak.VerifyNone(t)

	done := make(chan struct{})
	config := model.SequenceConfig{Stages: []model.StageSpec{
		{Stage: "wait", Entry: model.TimerAction(5 * time.Millisecond)},
		{Stage: "done", Terminal: true},
	}}
	keeper, err := New(config, Options{OnComplete: func() { close(done) }})
	require.NoError(t, err)
	defer keeper.Unmount()

	keeper.Mount()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("widget did not complete")
	}
	assert.Equal(t, model.Stage("done"), keeper.Stage())
}
