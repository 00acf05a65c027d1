package tui

import "github.com/charmbracelet/lipgloss"

// Styles used throughout the TUI. ApplyTheme rebuilds them.
var (
	styleActiveTab   lipgloss.Style
	styleInactiveTab lipgloss.Style
	styleHeader      lipgloss.Style
	styleFooter      lipgloss.Style
	styleContent     lipgloss.Style
	styleTitle       lipgloss.Style
	styleLabel       lipgloss.Style
	styleMuted       lipgloss.Style
	styleSuccess     lipgloss.Style
	styleError       lipgloss.Style
	styleBadge       lipgloss.Style
	styleSelected    lipgloss.Style
)

// activeTheme is the preset the styles were last built from. Sparkline
// colors are read from it at render time.
var activeTheme ThemePreset

func init() {
	ApplyTheme(MonitoringTheme)
}
