package tui

import "github.com/charmbracelet/lipgloss"

// ThemePreset defines a complete color scheme and layout configuration
// selected by the display.theme config key.
type ThemePreset struct {
	Name        string
	Description string
	// Colors
	Primary    lipgloss.Color
	Secondary  lipgloss.Color
	Success    lipgloss.Color
	Warning    lipgloss.Color
	Danger     lipgloss.Color
	Muted      lipgloss.Color
	Background lipgloss.Color
	// Layout
	ShowBorders bool
	CompactMode bool
}

// Predefined theme presets.
var (
	// MonitoringTheme is the default dark theme.
	MonitoringTheme = ThemePreset{
		Name:        "monitoring",
		Description: "Dark theme for live monitoring",
		Primary:     lipgloss.Color("#2563EB"),
		Secondary:   lipgloss.Color("#06B6D4"),
		Success:     lipgloss.Color("#22C55E"),
		Warning:     lipgloss.Color("#EAB308"),
		Danger:      lipgloss.Color("#EF4444"),
		Muted:       lipgloss.Color("#6B7280"),
		Background:  lipgloss.Color("#0B1220"),
		ShowBorders: true,
	}

	// MinimalTheme drops borders and padding for small consoles.
	MinimalTheme = ThemePreset{
		Name:        "minimal",
		Description: "Borderless compact theme",
		Primary:     lipgloss.Color("#60A5FA"),
		Secondary:   lipgloss.Color("#67E8F9"),
		Success:     lipgloss.Color("#4ADE80"),
		Warning:     lipgloss.Color("#FCD34D"),
		Danger:      lipgloss.Color("#F87171"),
		Muted:       lipgloss.Color("#9CA3AF"),
		Background:  lipgloss.Color("#0F172A"),
		CompactMode: true,
	}

	// FullTheme is a brighter theme with every visual element enabled.
	FullTheme = ThemePreset{
		Name:        "full",
		Description: "Bright theme with borders and padding",
		Primary:     lipgloss.Color("#818CF8"),
		Secondary:   lipgloss.Color("#22D3EE"),
		Success:     lipgloss.Color("#34D399"),
		Warning:     lipgloss.Color("#FBBF24"),
		Danger:      lipgloss.Color("#FB7185"),
		Muted:       lipgloss.Color("#D1D5DB"),
		Background:  lipgloss.Color("#1E293B"),
		ShowBorders: true,
	}
)

var allPresets = []ThemePreset{MonitoringTheme, MinimalTheme, FullTheme}

// GetThemePreset returns the theme preset matching the given name.
// Unknown names return MonitoringTheme as the default.
func GetThemePreset(name string) ThemePreset {
	for _, p := range allPresets {
		if p.Name == name {
			return p
		}
	}
	return MonitoringTheme
}

// AllThemePresets returns all available theme presets.
func AllThemePresets() []ThemePreset {
	out := make([]ThemePreset, len(allPresets))
	copy(out, allPresets)
	return out
}

// ApplyTheme rebuilds the package-level styles from preset.
func ApplyTheme(preset ThemePreset) {
	activeTheme = preset

	styleActiveTab = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(preset.Primary).
		Padding(0, 2)

	styleInactiveTab = lipgloss.NewStyle().
		Foreground(preset.Muted).
		Padding(0, 2)

	styleHeader = lipgloss.NewStyle().MarginBottom(1)
	if preset.ShowBorders {
		styleHeader = styleHeader.
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(preset.Muted)
	}

	styleFooter = lipgloss.NewStyle().
		Foreground(preset.Muted).
		MarginTop(1)

	if preset.CompactMode {
		styleContent = lipgloss.NewStyle().Padding(0, 1)
	} else {
		styleContent = lipgloss.NewStyle().Padding(1, 2)
	}

	styleTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(preset.Secondary)

	styleLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(preset.Primary)

	styleMuted = lipgloss.NewStyle().Foreground(preset.Muted)
	styleSuccess = lipgloss.NewStyle().Foreground(preset.Success)
	styleError = lipgloss.NewStyle().Foreground(preset.Danger)

	styleBadge = lipgloss.NewStyle().
		Foreground(preset.Warning).
		Bold(true)

	styleSelected = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(preset.Primary)
}
