package widgets

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// sparkBlocks are the eight block heights, lowest first.
var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// SparklineConfig controls a sparkline chart.
type SparklineConfig struct {
	// Data points to render, most recent last.
	Data []float64
	// Width is the number of columns. Shorter data is left-padded with
	// spaces; longer data keeps its most recent points. 0 uses len(Data).
	Width int
	// Max fixes the top of the scale (100 for percentages). When zero the
	// scale runs from 0 to the largest visible point, which suits
	// throughput series.
	Max float64
	// Color is applied to the blocks when set.
	Color lipgloss.Color
}

// RenderSparkline renders a unicode sparkline chart.
func RenderSparkline(cfg SparklineConfig) string {
	if len(cfg.Data) == 0 {
		return strings.Repeat(" ", max(cfg.Width, 0))
	}

	data := cfg.Data
	width := cfg.Width
	if width <= 0 {
		width = len(data)
	}
	if len(data) > width {
		data = data[len(data)-width:]
	}

	top := cfg.Max
	if top <= 0 {
		for _, v := range data {
			top = math.Max(top, v)
		}
	}

	runes := make([]rune, 0, len(data))
	for _, v := range data {
		idx := 0
		if top > 0 {
			n := math.Max(0, math.Min(1, v/top))
			idx = int(math.Round(n * float64(len(sparkBlocks)-1)))
		}
		runes = append(runes, sparkBlocks[idx])
	}

	out := string(runes)
	if cfg.Color != "" {
		out = lipgloss.NewStyle().Foreground(cfg.Color).Render(out)
	}
	return strings.Repeat(" ", width-len(data)) + out
}
