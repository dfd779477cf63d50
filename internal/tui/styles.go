package tui

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	primaryColor = lipgloss.Color("#7D56F4") // Purple
	okColor      = lipgloss.Color("#43BF6D") // Green
	warnColor    = lipgloss.Color("#FFA500") // Orange
	errorColor   = lipgloss.Color("#FF5F5F") // Red
	subtleColor  = lipgloss.Color("#626262") // Gray
)

// Common styles
var (
	titleStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(subtleColor).
			Width(14)

	valueStyle = lipgloss.NewStyle().Bold(true)

	connectedStyle = lipgloss.NewStyle().
			Foreground(okColor).
			Bold(true)

	degradedStyle = lipgloss.NewStyle().
			Foreground(warnColor).
			Bold(true)

	unavailableStyle = lipgloss.NewStyle().
				Foreground(errorColor).
				Bold(true)

	errTextStyle = lipgloss.NewStyle().Foreground(errorColor)

	helpStyle = lipgloss.NewStyle().
			Foreground(subtleColor).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(1, 2)
)

// brightnessBar renders a fixed-width gauge for a 0-255 value.
func brightnessBar(value int) string {
	const width = 20
	filled := value * width / 255
	if filled > width {
		filled = width
	}
	bar := ""
	for i := 0; i < width; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return bar
}
