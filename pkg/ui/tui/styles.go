package tui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	accent   = lipgloss.Color("#0096FA")
	magenta  = lipgloss.Color("#FF4081")
	green    = lipgloss.Color("#39FF14")
	yellow   = lipgloss.Color("#FFD700")
	orange   = lipgloss.Color("#FF6700")
	red      = lipgloss.Color("#FF3B30")
	darkBg   = lipgloss.Color("#101418")
	panelBg  = lipgloss.Color("#1C2128")
	dimWhite = lipgloss.Color("#B0B0B0")

	baseStyle = lipgloss.NewStyle().
			Background(darkBg).
			Foreground(dimWhite)

	headerStyle = lipgloss.NewStyle().
			Foreground(accent).
			Bold(true).
			Padding(1, 0)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Background(panelBg).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Background(accent).
			Foreground(darkBg).
			Bold(true).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(accent).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(yellow)

	successStyle = lipgloss.NewStyle().
			Foreground(green).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(red).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(orange).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(dimWhite).
			Faint(true)

	navKindStyle = lipgloss.NewStyle().
			Foreground(magenta).
			Bold(true)

	timestampStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Padding(1, 0, 0, 2)
)

// partStyle returns the style for a part state
func partStyle(state string) lipgloss.Style {
	switch state {
	case "done":
		return successStyle
	case "error":
		return errorStyle
	case "timeout":
		return warningStyle
	default:
		return dimStyle
	}
}
