package clock

import (
	"sync"
	"time"
)

// Fake is a manually advanced Clock. Callbacks run synchronously on the
// goroutine calling Advance, in deadline order.
type Fake struct {
	mu     sync.Mutex
	now    time.Time
	seq    uint64
	timers []*fakeTimer
}

type fakeTimer struct {
	fake     *Fake
	deadline time.Time
	seq      uint64
	fn       func()
	done     bool
}

// NewFake creates a fake clock starting at start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now returns the current fake time.
func (fake *Fake) Now() time.Time {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	return fake.now
}

// AfterFunc schedules f to run once the fake time reaches now+d.
func (fake *Fake) AfterFunc(d time.Duration, f func()) Timer {
	if d < 0 {
		d = 0
	}
	fake.mu.Lock()
	defer fake.mu.Unlock()
	fake.seq++
	timer := &fakeTimer{
		fake:     fake,
		deadline: fake.now.Add(d),
		seq:      fake.seq,
		fn:       f,
	}
	fake.timers = append(fake.timers, timer)
	return timer
}

// Advance moves the clock forward by d, firing every timer whose deadline
// falls inside the window, including timers scheduled by fired callbacks.
func (fake *Fake) Advance(d time.Duration) {
	fake.mu.Lock()
	target := fake.now.Add(d)
	fake.mu.Unlock()

	for {
		fake.mu.Lock()
		next := fake.popDueLocked(target)
		if next == nil {
			if fake.now.Before(target) {
				fake.now = target
			}
			fake.mu.Unlock()
			return
		}
		fake.now = next.deadline
		fake.mu.Unlock()

		next.fn()
	}
}

// Pending reports how many timers are scheduled and not yet fired or stopped.
func (fake *Fake) Pending() int {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	return len(fake.timers)
}

func (fake *Fake) popDueLocked(target time.Time) *fakeTimer {
	index := -1
	for i, timer := range fake.timers {
		if timer.deadline.After(target) {
			continue
		}
		if index < 0 || earlier(timer, fake.timers[index]) {
			index = i
		}
	}
	if index < 0 {
		return nil
	}
	timer := fake.timers[index]
	fake.timers = append(fake.timers[:index], fake.timers[index+1:]...)
	timer.done = true
	return timer
}

func (fake *Fake) removeLocked(target *fakeTimer) {
	for i, timer := range fake.timers {
		if timer == target {
			fake.timers = append(fake.timers[:i], fake.timers[i+1:]...)
			return
		}
	}
}

func earlier(a, b *fakeTimer) bool {
	if a.deadline.Equal(b.deadline) {
		return a.seq < b.seq
	}
	return a.deadline.Before(b.deadline)
}

func (timer *fakeTimer) Stop() bool {
	timer.fake.mu.Lock()
	defer timer.fake.mu.Unlock()
	if timer.done {
		return false
	}
	timer.done = true
	timer.fake.removeLocked(timer)
	return true
}
