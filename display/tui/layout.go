package tui

import (
	"strings"
	"time"

	"gitlab.com/tinyland/lab/cloud-optimizer/internal/format"
)

// LayoutSize represents a responsive breakpoint for terminal width.
type LayoutSize int

const (
	// LayoutCompact is used for terminals narrower than 60 characters.
	LayoutCompact LayoutSize = iota
	// LayoutNormal is used for terminals between 60 and 120 characters wide.
	LayoutNormal
	// LayoutWide is used for terminals wider than 120 characters.
	LayoutWide
)

// DetectLayout returns the appropriate LayoutSize for the given terminal width.
func DetectLayout(width int) LayoutSize {
	switch {
	case width < 60:
		return LayoutCompact
	case width <= 120:
		return LayoutNormal
	default:
		return LayoutWide
	}
}

// LayoutConfig holds responsive layout values that adapt to terminal width.
type LayoutConfig struct {
	// GaugeWidth is the character width for the CPU and RAM bars.
	GaugeWidth int
	// SparklineWidth is the number of history samples drawn per metric.
	SparklineWidth int
	// ShowSparklines controls whether history charts are rendered.
	ShowSparklines bool
	// ShowCommand controls the command column of the startup table.
	ShowCommand bool
	// TableWidth is the width given to startup and tweak tables.
	TableWidth int
}

// LayoutForSize returns a LayoutConfig appropriate for the given size and width.
func LayoutForSize(size LayoutSize, width int) LayoutConfig {
	switch size {
	case LayoutCompact:
		return LayoutConfig{
			GaugeWidth: 10,
			TableWidth: max(width-4, 20),
		}
	case LayoutWide:
		return LayoutConfig{
			GaugeWidth:     30,
			SparklineWidth: 60,
			ShowSparklines: true,
			ShowCommand:    true,
			TableWidth:     width - 8,
		}
	default: // LayoutNormal
		return LayoutConfig{
			GaugeWidth:     20,
			SparklineWidth: 30,
			ShowSparklines: true,
			ShowCommand:    true,
			TableWidth:     width - 6,
		}
	}
}

// truncateText is a convenience wrapper for format.TruncateWithEllipsis.
func truncateText(s string, maxWidth int) string {
	return format.TruncateWithEllipsis(s, maxWidth)
}

// formatRelativeTime is a convenience wrapper for format.FormatTimeSince.
func formatRelativeTime(t, now time.Time) string {
	return format.FormatTimeSince(t, now)
}

// horizontalRule returns a horizontal line of the given width using box-drawing
// characters.
func horizontalRule(width int) string {
	if width <= 0 {
		return ""
	}
	return strings.Repeat("─", width)
}

// sectionTitle renders a centered title with horizontal rules on either side.
// Format: "---- Title ----"
func sectionTitle(title string, width int) string {
	decorLen := len([]rune(title)) + 2
	if width <= 0 || decorLen >= width {
		return title
	}

	remaining := width - decorLen
	left := remaining / 2
	return horizontalRule(left) + " " + title + " " + horizontalRule(remaining-left)
}
