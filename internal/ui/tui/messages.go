package tui

import (
	"time"

	"stagecraft/internal/core/stagekeeper"
)

type tickMsg time.Time

// EventMsg carries one keeper event into the program.
type EventMsg struct {
	Event stagekeeper.Event
}

// ReloadMsg swaps in a freshly mounted widget after its definition changed.
type ReloadMsg struct {
	Widget Widget
}

// ErrorMsg reports a failure that should be shown without quitting, such as
// a definition that no longer validates.
type ErrorMsg struct {
	Err error
}
