package sim

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

const (
	colorPrimary lipgloss.Color = "7"
	colorMuted   lipgloss.Color = "8"
	colorSuccess lipgloss.Color = "2"
	colorWarning lipgloss.Color = "3"
)

var timelineColumns = []table.Column{
	{Title: "At", Width: 10},
	{Title: "Kind", Width: 6},
	{Title: "What", Width: 16},
	{Title: "Stage", Width: 14},
	{Title: "Detail", Width: 18},
}

// Render formats the result as a table followed by a one-line summary.
func Render(result Result) string {
	rows := make([]table.Row, 0, len(result.Timeline))
	for _, record := range result.Timeline {
		rows = append(rows, table.Row{
			formatOffset(record.At.Seconds()),
			record.Source,
			record.Type,
			string(record.Stage),
			record.Detail,
		})
	}

	timeline := table.New(
		table.WithColumns(timelineColumns),
		table.WithRows(rows),
		table.WithFocused(false),
		table.WithHeight(len(rows)+2),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(colorMuted).
		BorderBottom(true).
		Bold(true).
		Foreground(colorPrimary)
	styles.Cell = styles.Cell.Foreground(colorPrimary)
	styles.Selected = styles.Cell
	timeline.SetStyles(styles)

	var output strings.Builder
	titleStyle := lipgloss.NewStyle().Bold(true)
	output.WriteString(titleStyle.Render(result.Name))
	output.WriteString("\n")
	output.WriteString(timeline.View())
	output.WriteString("\n")
	output.WriteString(renderSummary(result))
	output.WriteString("\n")
	return output.String()
}

func renderSummary(result Result) string {
	mutedStyle := lipgloss.NewStyle().Foreground(colorMuted)
	status := lipgloss.NewStyle().Foreground(colorWarning).Render("incomplete")
	if result.Final.Completed {
		status = lipgloss.NewStyle().Foreground(colorSuccess).Render("completed")
	}
	return fmt.Sprintf("%s %s %s",
		status,
		mutedStyle.Render(fmt.Sprintf("at %s after", result.Final.Stage)),
		mutedStyle.Render(formatOffset(result.Elapsed.Seconds())),
	)
}

func formatOffset(seconds float64) string {
	return fmt.Sprintf("%7.3fs", seconds)
}
