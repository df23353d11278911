package tui

import (
	"stagecraft/internal/core/stagekeeper"

	tea "github.com/charmbracelet/bubbletea"
)

// Bridge forwards keeper activity to a running program. program.Send is
// goroutine-safe, so every method may be called from any goroutine.
type Bridge struct {
	program *tea.Program
}

// NewBridge creates a bridge to program.
func NewBridge(program *tea.Program) *Bridge {
	return &Bridge{program: program}
}

// Forward relays events until the channel is closed by Unmount.
func (b *Bridge) Forward(events <-chan stagekeeper.Event) {
	for event := range events {
		b.program.Send(EventMsg{Event: event})
	}
}

// Reload hands a mounted replacement widget to the program.
func (b *Bridge) Reload(widget Widget) {
	b.program.Send(ReloadMsg{Widget: widget})
}

// Error shows err in the program without quitting.
func (b *Bridge) Error(err error) {
	b.program.Send(ErrorMsg{Err: err})
}
