package widgets

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	gaugeFilled = "█"
	gaugeEmpty  = "░"
)

// GaugeConfig controls the appearance of a horizontal bar gauge.
type GaugeConfig struct {
	// Width is the character width of the bar itself.
	Width int
	// Percent is the value from 0 to 100. Out-of-range values are clamped.
	Percent float64
	// Label is optional text shown to the left of the bar.
	Label string
	// Value replaces the default "XX%" text on the right when set.
	Value string
	// HidePercent drops the right-hand text entirely.
	HidePercent bool
	// Warning and Danger are the percentages at which the bar turns
	// yellow and red.
	Warning float64
	Danger  float64
}

// DefaultGaugeConfig returns a 20 column gauge with 70/90 thresholds.
func DefaultGaugeConfig() GaugeConfig {
	return GaugeConfig{
		Width:   20,
		Warning: 70,
		Danger:  90,
	}
}

// RenderGauge renders a bar gauge.
// Format: [Label] ████████░░░░ [Value]
func RenderGauge(cfg GaugeConfig) string {
	percent := math.Max(0, math.Min(100, cfg.Percent))

	width := cfg.Width
	if width <= 0 {
		width = 20
	}
	if cfg.Danger <= 0 {
		cfg.Danger = 90
	}
	if cfg.Warning <= 0 {
		cfg.Warning = 70
	}

	filled := int(math.Round(percent / 100 * float64(width)))
	level := LevelForPercent(percent, cfg.Warning, cfg.Danger)
	bar := lipgloss.NewStyle().Foreground(level.Color()).Render(strings.Repeat(gaugeFilled, filled)) +
		strings.Repeat(gaugeEmpty, width-filled)

	var sb strings.Builder
	if cfg.Label != "" {
		sb.WriteString(cfg.Label)
		sb.WriteString(" ")
	}
	sb.WriteString(bar)
	if !cfg.HidePercent {
		sb.WriteString(" ")
		if cfg.Value != "" {
			sb.WriteString(cfg.Value)
		} else {
			fmt.Fprintf(&sb, "%3.0f%%", percent)
		}
	}
	return sb.String()
}
