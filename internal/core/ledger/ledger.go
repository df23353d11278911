package ledger

import (
	"sync"
	"time"

	"stagecraft/internal/core/clock"

	"go.uber.org/zap"
)

// DefaultFrameInterval approximates one display frame at 60Hz.
const DefaultFrameInterval = 16 * time.Millisecond

// Dispatcher serialises callback invocations with the ledger's owner.
type Dispatcher interface {
	Dispatch(fn func())
}

// Handle identifies one scheduled callback or frame loop.
// The zero Handle is valid and refers to nothing.
type Handle struct {
	id    uint64
	owner *Ledger
}

// ID returns the handle's identifier, unique within its ledger.
func (handle Handle) ID() uint64 {
	return handle.id
}

// Valid reports whether the handle was issued by a ledger.
func (handle Handle) Valid() bool {
	return handle.owner != nil && handle.id != 0
}

// Cancel cancels the handle on its owning ledger.
func (handle Handle) Cancel() {
	if handle.owner != nil {
		handle.owner.Cancel(handle)
	}
}

// Config contains runtime options for a Ledger.
type Config struct {
	Clock         clock.Clock
	FrameInterval time.Duration
	Dispatcher    Dispatcher
	Logger        *zap.Logger
}

type entry struct {
	id      uint64
	timer   clock.Timer
	frame   bool
	started time.Time
}

// Ledger tracks every delayed callback and frame loop created on behalf of
// one owner and guarantees that none of them runs after being cancelled.
type Ledger struct {
	mu      sync.Mutex
	options Config
	nextID  uint64
	entries map[uint64]*entry
}

// New creates a ledger with the provided configuration.
func New(options Config) *Ledger {
	if options.Clock == nil {
		options.Clock = clock.System
	}
	if options.FrameInterval <= 0 {
		options.FrameInterval = DefaultFrameInterval
	}
	if options.Dispatcher == nil {
		options.Dispatcher = &serialDispatcher{}
	}
	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}
	return &Ledger{
		options: options,
		entries: make(map[uint64]*entry),
	}
}

// Schedule registers callback to run once after delay.
func (ledger *Ledger) Schedule(callback func(), delay time.Duration) Handle {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()

	item := ledger.newEntryLocked(false)
	id := item.id
	item.timer = ledger.options.Clock.AfterFunc(delay, func() {
		ledger.options.Dispatcher.Dispatch(func() {
			if !ledger.claim(id) {
				ledger.options.Logger.Debug("dropped cancelled timer", zap.Uint64("handle", id))
				return
			}
			callback()
		})
	})
	return Handle{id: id, owner: ledger}
}

// ScheduleFrameLoop registers tick to run once per frame until the handle is
// cancelled. tick receives the time elapsed since the loop was scheduled.
func (ledger *Ledger) ScheduleFrameLoop(tick func(elapsed time.Duration)) Handle {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()

	item := ledger.newEntryLocked(true)
	item.started = ledger.options.Clock.Now()
	ledger.armFrameLocked(item, tick)
	return Handle{id: item.id, owner: ledger}
}

// Cancel stops the handle. Unknown, foreign and already cancelled handles
// are ignored.
func (ledger *Ledger) Cancel(handle Handle) {
	if handle.owner != ledger || handle.id == 0 {
		return
	}
	ledger.mu.Lock()
	item, ok := ledger.entries[handle.id]
	if ok {
		delete(ledger.entries, handle.id)
	}
	ledger.mu.Unlock()

	if ok && item.timer != nil {
		item.timer.Stop()
	}
}

// CancelAll cancels every handle currently tracked. It is safe to call
// more than once.
func (ledger *Ledger) CancelAll() {
	ledger.mu.Lock()
	items := make([]*entry, 0, len(ledger.entries))
	for id, item := range ledger.entries {
		items = append(items, item)
		delete(ledger.entries, id)
	}
	ledger.mu.Unlock()

	for _, item := range items {
		if item.timer != nil {
			item.timer.Stop()
		}
	}
	if len(items) > 0 {
		ledger.options.Logger.Debug("cancelled outstanding handles", zap.Int("count", len(items)))
	}
}

// Len returns the number of live handles.
func (ledger *Ledger) Len() int {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	return len(ledger.entries)
}

// Live reports whether handle is still scheduled.
func (ledger *Ledger) Live(handle Handle) bool {
	if handle.owner != ledger {
		return false
	}
	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	_, ok := ledger.entries[handle.id]
	return ok
}

func (ledger *Ledger) newEntryLocked(frame bool) *entry {
	ledger.nextID++
	item := &entry{id: ledger.nextID, frame: frame}
	ledger.entries[item.id] = item
	return item
}

func (ledger *Ledger) armFrameLocked(item *entry, tick func(time.Duration)) {
	id := item.id
	item.timer = ledger.options.Clock.AfterFunc(ledger.options.FrameInterval, func() {
		ledger.options.Dispatcher.Dispatch(func() {
			if !ledger.isLive(id) {
				return
			}
			tick(ledger.options.Clock.Now().Sub(item.started))

			ledger.mu.Lock()
			defer ledger.mu.Unlock()
			if current, ok := ledger.entries[id]; ok && current == item {
				ledger.armFrameLocked(item, tick)
			}
		})
	})
}

// claim removes a one-shot entry and reports whether it was still live.
func (ledger *Ledger) claim(id uint64) bool {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	if _, ok := ledger.entries[id]; !ok {
		return false
	}
	delete(ledger.entries, id)
	return true
}

func (ledger *Ledger) isLive(id uint64) bool {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	_, ok := ledger.entries[id]
	return ok
}

type serialDispatcher struct {
	mu sync.Mutex
}

func (dispatcher *serialDispatcher) Dispatch(fn func()) {
	dispatcher.mu.Lock()
	defer dispatcher.mu.Unlock()
	fn()
}
