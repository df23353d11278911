package ledger

import (
	"testing"
	"time"

	"stagecraft/internal/core/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func newFakeLedger() (*Ledger, *clock.Fake) {
	fake := clock.NewFake(epoch)
	return New(Config{Clock: fake, FrameInterval: 10 * time.Millisecond}), fake
}

func TestScheduleFiresOnce(t *testing.T) {
	ledger, fake := newFakeLedger()
	calls := 0

	handle := ledger.Schedule(func() { calls++ }, 100*time.Millisecond)
	assert.True(t, handle.Valid())
	assert.Equal(t, 1, ledger.Len())

	fake.Advance(99 * time.Millisecond)
	assert.Zero(t, calls)

	fake.Advance(time.Millisecond)
	assert.Equal(t, 1, calls)
	assert.Zero(t, ledger.Len())
	assert.False(t, ledger.Live(handle))

	fake.Advance(time.Hour)
	assert.Equal(t, 1, calls)
}

func TestCancelBeforeDelayPreventsCallback(t *testing.T) {
	ledger, fake := newFakeLedger()
	calls := 0

	handle := ledger.Schedule(func() { calls++ }, time.Second)
	ledger.Cancel(handle)

	fake.Advance(10 * time.Second)
	assert.Zero(t, calls)
	assert.Zero(t, ledger.Len())
}

func TestCancelIsIdempotent(t *testing.T) {
	ledger, fake := newFakeLedger()
	handle := ledger.Schedule(func() {}, time.Second)

	assert.NotPanics(t, func() {
		ledger.Cancel(handle)
		ledger.Cancel(handle)
		handle.Cancel()
		ledger.Cancel(Handle{})
		Handle{}.Cancel()
	})
	fake.Advance(time.Second)
	assert.Zero(t, ledger.Len())
}

func TestCancelIgnoresForeignHandle(t *testing.T) {
	first, fake := newFakeLedger()
	second := New(Config{Clock: fake})
	calls := 0

	handle := first.Schedule(func() { calls++ }, time.Second)
	second.Cancel(handle)

	fake.Advance(time.Second)
	assert.Equal(t, 1, calls)
}

func TestCancelAllStopsEverything(t *testing.T) {
	ledger, fake := newFakeLedger()
	calls := 0
	ticks := 0

	ledger.Schedule(func() { calls++ }, 10*time.Millisecond)
	ledger.Schedule(func() { calls++ }, time.Second)
	ledger.ScheduleFrameLoop(func(time.Duration) { ticks++ })
	require.Equal(t, 3, ledger.Len())

	ledger.CancelAll()
	ledger.CancelAll()

	fake.Advance(time.Minute)
	assert.Zero(t, calls)
	assert.Zero(t, ticks)
	assert.Zero(t, ledger.Len())
	assert.Zero(t, fake.Pending())
}

func TestFrameLoopReportsElapsed(t *testing.T) {
	ledger, fake := newFakeLedger()
	var elapsed []time.Duration

	handle := ledger.ScheduleFrameLoop(func(since time.Duration) {
		elapsed = append(elapsed, since)
	})

	fake.Advance(35 * time.Millisecond)
	assert.Equal(t, []time.Duration{
		10 * time.Millisecond,
		20 * time.Millisecond,
		30 * time.Millisecond,
	}, elapsed)

	handle.Cancel()
	fake.Advance(time.Second)
	assert.Len(t, elapsed, 3)
}

func TestFrameLoopCanCancelItself(t *testing.T) {
	ledger, fake := newFakeLedger()
	ticks := 0
	var handle Handle
	handle = ledger.ScheduleFrameLoop(func(time.Duration) {
		ticks++
		if ticks == 2 {
			ledger.Cancel(handle)
		}
	})

	fake.Advance(time.Second)
	assert.Equal(t, 2, ticks)
	assert.Zero(t, fake.Pending())
}

type recordingDispatcher struct {
	calls int
}

func (dispatcher *recordingDispatcher) Dispatch(fn func()) {
	dispatcher.calls++
	fn()
}

func TestCallbacksRouteThroughDispatcher(t *testing.T) {
	fake := clock.NewFake(epoch)
	dispatcher := &recordingDispatcher{}
	ledger := New(Config{Clock: fake, Dispatcher: dispatcher, FrameInterval: 10 * time.Millisecond})

	ledger.Schedule(func() {}, 5*time.Millisecond)
	ledger.ScheduleFrameLoop(func(time.Duration) {})
	fake.Advance(20 * time.Millisecond)

	assert.Equal(t, 3, dispatcher.calls)
}

// staleDispatcher holds back invocations to mimic a callback already queued
// by the scheduler when the handle is cancelled.
type staleDispatcher struct {
	queued []func()
}

func (dispatcher *staleDispatcher) Dispatch(fn func()) {
	dispatcher.queued = append(dispatcher.queued, fn)
}

func TestQueuedCallbackAfterCancelIsDropped(t *testing.T) {
	fake := clock.NewFake(epoch)
	dispatcher := &staleDispatcher{}
	ledger := New(Config{Clock: fake, Dispatcher: dispatcher})
	calls := 0

	handle := ledger.Schedule(func() { calls++ }, time.Millisecond)
	fake.Advance(time.Millisecond)
	require.Len(t, dispatcher.queued, 1)

	ledger.Cancel(handle)
	dispatcher.queued[0]()
	assert.Zero(t, calls)
}

func TestSystemClockCancelAllLeavesNoCallbacks(t *testing.T) {
	defer goleak.VerifyNone(t)

	ledger := New(Config{FrameInterval: time.Millisecond})
	fired := make(chan struct{}, 16)
	for i := 0; i < 4; i++ {
		ledger.Schedule(func() { fired <- struct{}{} }, 20*time.Millisecond)
	}
	ledger.ScheduleFrameLoop(func(time.Duration) {})
	ledger.CancelAll()

	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, fired)
}
