package widgets

import "github.com/charmbracelet/lipgloss"

// StatusLevel represents the severity or state of a status indicator.
type StatusLevel int

const (
	// StatusOK indicates a healthy or successful state.
	StatusOK StatusLevel = iota
	// StatusWarning indicates a degraded or warning state.
	StatusWarning
	// StatusCritical indicates an error or critical failure.
	StatusCritical
	// StatusUnknown indicates an indeterminate state, such as a tweak that never ran.
	StatusUnknown
	// StatusPending indicates an operation in progress.
	StatusPending
)

var statusIcons = map[StatusLevel]string{
	StatusOK:       "●",
	StatusWarning:  "●",
	StatusCritical: "●",
	StatusUnknown:  "○",
	StatusPending:  "◌",
}

var statusColors = map[StatusLevel]lipgloss.Color{
	StatusOK:       lipgloss.Color("#22C55E"),
	StatusWarning:  lipgloss.Color("#EAB308"),
	StatusCritical: lipgloss.Color("#EF4444"),
	StatusUnknown:  lipgloss.Color("#6B7280"),
	StatusPending:  lipgloss.Color("#3B82F6"),
}

// Color returns the display color for a level.
func (l StatusLevel) Color() lipgloss.Color {
	return statusColors[l]
}

// RenderStatus renders a colored status dot followed by text. An empty text
// renders the dot alone.
func RenderStatus(level StatusLevel, text string) string {
	icon := lipgloss.NewStyle().Foreground(level.Color()).Render(statusIcons[level])
	if text == "" {
		return icon
	}
	return icon + " " + text
}

// LevelForPercent maps a utilization percentage to a level using the
// warning and danger thresholds.
func LevelForPercent(percent, warning, danger float64) StatusLevel {
	switch {
	case percent >= danger:
		return StatusCritical
	case percent >= warning:
		return StatusWarning
	default:
		return StatusOK
	}
}
