package tui

import "github.com/charmbracelet/lipgloss"

const (
	colorPrimary   lipgloss.Color = "7"
	colorSecondary lipgloss.Color = "4"
	colorMuted     lipgloss.Color = "8"
	colorSuccess   lipgloss.Color = "2"
	colorWarning   lipgloss.Color = "3"
	colorError     lipgloss.Color = "1"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	stageStyle = lipgloss.NewStyle().
			Foreground(colorSecondary).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	holdingStyle = lipgloss.NewStyle().
			Foreground(colorWarning)

	completeStyle = lipgloss.NewStyle().
			Foreground(colorSuccess).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError)

	footerStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			MarginTop(1)
)
