// Package tui renders a widget in the terminal with Bubble Tea. Terminals
// report key presses but not releases, so space toggles the hold gesture.
package tui

import (
	"fmt"
	"strings"
	"time"

	"stagecraft/internal/core/model"
	"stagecraft/internal/core/stagekeeper"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	defaultRefresh = 50 * time.Millisecond
	eventLogSize   = 6
	barWidth       = 40
)

// Widget is the part of a Keeper the terminal renderer drives.
type Widget interface {
	Config() model.SequenceConfig
	Snapshot() stagekeeper.Snapshot
	PointerDown() bool
	PointerUp() bool
	Tap() bool
	RequestAdvance(target model.Stage) bool
	Reset()
	Unmount()
}

// Model is the Bubble Tea model for one widget.
type Model struct {
	widget   Widget
	bar      progress.Model
	snapshot stagekeeper.Snapshot
	refresh  time.Duration
	events   []string
	err      error
	quitting bool
	width    int
}

// NewModel creates a model for a mounted widget.
func NewModel(widget Widget, refresh time.Duration) Model {
	if refresh <= 0 {
		refresh = defaultRefresh
	}

	bar := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(barWidth),
	)
	bar.FullColor = string(colorSuccess)
	bar.EmptyColor = string(colorMuted)

	return Model{
		widget:   widget,
		bar:      bar,
		snapshot: widget.Snapshot(),
		refresh:  refresh,
		width:    80,
	}
}

// Widget returns the widget currently shown.
func (m Model) Widget() Widget {
	return m.widget
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.tickCmd()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = min(barWidth, max(10, msg.Width-12))
		return m, nil

	case tickMsg:
		m.snapshot = m.widget.Snapshot()
		return m, m.tickCmd()

	case EventMsg:
		if msg.Event.Type != stagekeeper.EventProgress {
			m.pushEvent(describeEvent(msg.Event))
		}
		m.snapshot = m.widget.Snapshot()
		return m, nil

	case ReloadMsg:
		m.widget.Unmount()
		m.widget = msg.Widget
		m.err = nil
		m.snapshot = m.widget.Snapshot()
		m.pushEvent("definition reloaded")
		return m, nil

	case ErrorMsg:
		m.err = msg.Err
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case " ", "space", "h":
		if m.snapshot.Holding {
			m.widget.PointerUp()
		} else if !m.widget.PointerDown() {
			m.pushEvent("nothing to hold here")
		}

	case "enter", "t":
		if !m.widget.Tap() {
			m.pushEvent("nothing to tap here")
		}

	case "n":
		next, ok := m.widget.Config().PrimarySuccessor(m.snapshot.Stage)
		if !ok || !m.widget.RequestAdvance(next) {
			m.pushEvent("cannot advance from " + string(m.snapshot.Stage))
		}

	case "r":
		m.widget.Reset()

	case "q", "esc", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	}

	m.snapshot = m.widget.Snapshot()
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder
	config := m.widget.Config()

	sb.WriteString(titleStyle.Render(config.Name))
	sb.WriteString(mutedStyle.Render(" · "))
	sb.WriteString(stageStyle.Render(string(m.snapshot.Stage)))
	sb.WriteString("\n")
	sb.WriteString(m.renderStages(config))
	sb.WriteString("\n\n")

	switch {
	case m.snapshot.Completed && m.snapshot.Stage == config.Terminal():
		sb.WriteString(completeStyle.Render("complete"))
	case m.snapshot.Entry == model.EntryHold:
		sb.WriteString(m.bar.ViewAs(m.snapshot.Progress))
		if m.snapshot.Holding {
			sb.WriteString(holdingStyle.Render("  holding"))
		}
	case m.snapshot.Entry == model.EntryTap:
		sb.WriteString(fmt.Sprintf("taps %d/%d", m.snapshot.Taps, m.snapshot.RequiredTaps))
	case m.snapshot.Entry == model.EntryTimer:
		sb.WriteString(mutedStyle.Render("waiting"))
	}
	sb.WriteString("\n")

	if m.err != nil {
		sb.WriteString(errorStyle.Render(m.err.Error()))
		sb.WriteString("\n")
	}

	if len(m.events) > 0 {
		sb.WriteString("\n")
		for _, line := range m.events {
			sb.WriteString(mutedStyle.Render(line))
			sb.WriteString("\n")
		}
	}

	sb.WriteString(footerStyle.Render("space: hold | enter: tap | n: next | r: reset | q: quit"))
	return sb.String()
}

func (m Model) renderStages(config model.SequenceConfig) string {
	names := config.StageNames()
	parts := make([]string, 0, len(names))
	for _, name := range names {
		if name == m.snapshot.Stage {
			parts = append(parts, stageStyle.Render(string(name)))
			continue
		}
		parts = append(parts, mutedStyle.Render(string(name)))
	}
	return strings.Join(parts, mutedStyle.Render(" > "))
}

func (m *Model) pushEvent(line string) {
	m.events = append(m.events, line)
	if len(m.events) > eventLogSize {
		m.events = m.events[len(m.events)-eventLogSize:]
	}
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func describeEvent(event stagekeeper.Event) string {
	at := event.At.Format("15:04:05.000")
	switch event.Type {
	case stagekeeper.EventStageChange:
		if event.Previous == model.StageNone {
			return fmt.Sprintf("%s entered %s", at, event.Stage)
		}
		return fmt.Sprintf("%s %s -> %s", at, event.Previous, event.Stage)
	case stagekeeper.EventTap:
		return fmt.Sprintf("%s tap %d", at, event.Taps)
	case stagekeeper.EventHoldCompleted:
		return fmt.Sprintf("%s hold complete", at)
	case stagekeeper.EventCompleted:
		return fmt.Sprintf("%s widget complete", at)
	case stagekeeper.EventIgnored:
		return fmt.Sprintf("%s ignored advance to %s", at, event.Message)
	}
	return fmt.Sprintf("%s %s", at, event.Type)
}
