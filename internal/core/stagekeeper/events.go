package stagekeeper

import (
	"time"

	"stagecraft/internal/core/model"
)

// EventType defines the type of StageKeeper event.
type EventType string

const (
	EventStageChange   EventType = "stage_change"
	EventProgress      EventType = "progress"
	EventTap           EventType = "tap"
	EventHoldCompleted EventType = "hold_completed"
	EventCompleted     EventType = "completed"
	EventIgnored       EventType = "ignored"
)

// Event represents a StageKeeper update for observers.
type Event struct {
	Type     EventType
	Stage    model.Stage
	Previous model.Stage
	Progress float64
	Holding  bool
	Taps     int
	Message  string
	At       time.Time
}

// Snapshot is the read-only view a renderer draws from.
type Snapshot struct {
	Stage         model.Stage
	Entry         model.EntryKind
	Progress      float64
	Holding       bool
	HoldCompleted bool
	Taps          int
	RequiredTaps  int
	Completed     bool
	Mounted       bool
}
