package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	neonCyan    = lipgloss.Color("#00FFFF")
	neonMagenta = lipgloss.Color("#FF00FF")
	neonGreen   = lipgloss.Color("#39FF14")
	neonYellow  = lipgloss.Color("#FFFF00")
	neonOrange  = lipgloss.Color("#FF6700")
	neonRed     = lipgloss.Color("#FF3131")
	dimWhite    = lipgloss.Color("#B0B0B0")

	bannerStyle = lipgloss.NewStyle().
			Foreground(neonCyan).
			Bold(true).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(neonMagenta).
			Padding(0, 2)

	labelStyle = lipgloss.NewStyle().
			Foreground(neonCyan).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(neonYellow)

	successStyle = lipgloss.NewStyle().
			Foreground(neonGreen).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(neonRed).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(neonOrange)

	highlightStyle = lipgloss.NewStyle().
			Foreground(neonMagenta)

	dimStyle = lipgloss.NewStyle().
			Foreground(dimWhite)

	headerStyle = lipgloss.NewStyle().
			Foreground(neonMagenta).
			Bold(true).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().
			Padding(0, 1)
)

// statusStyle colors an episode status in the summary table
func statusStyle(status string) lipgloss.Style {
	switch status {
	case StatusDownloaded:
		return successStyle
	case StatusSkipped:
		return dimStyle
	case StatusFailed:
		return errorStyle
	default:
		return valueStyle
	}
}
