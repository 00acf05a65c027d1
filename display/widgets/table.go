package widgets

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Alignment controls text alignment within a table column.
type Alignment int

const (
	// AlignLeft aligns text to the left (default).
	AlignLeft Alignment = iota
	// AlignRight aligns text to the right.
	AlignRight
)

// Column defines a single table column.
type Column struct {
	// Title is the header text.
	Title string
	// Width is the fixed character width. If 0 the column takes an even
	// share of whatever Width is left after fixed columns.
	Width int
	// Align controls text alignment within the column.
	Align Alignment
}

// TableConfig holds the configuration for rendering a table.
type TableConfig struct {
	Columns []Column
	Rows    [][]string
	// Width is the total table width used to size flexible columns.
	Width int
	// Height is the number of data rows shown. 0 shows every row.
	Height int
	// Offset is the index of the first visible row.
	Offset int
	// Cursor is the selected row index, or -1 for no selection.
	Cursor int

	HeaderStyle   lipgloss.Style
	RowStyle      lipgloss.Style
	SelectedStyle lipgloss.Style
	// Separator is placed between columns (default: two spaces).
	Separator string
}

// DefaultTableConfig returns a TableConfig with a bold header and a
// reverse-video selection.
func DefaultTableConfig() TableConfig {
	return TableConfig{
		Cursor:        -1,
		Separator:     "  ",
		HeaderStyle:   lipgloss.NewStyle().Bold(true),
		RowStyle:      lipgloss.NewStyle(),
		SelectedStyle: lipgloss.NewStyle().Reverse(true),
	}
}

// RenderTable renders the header, a rule, and the visible window of rows.
func RenderTable(cfg TableConfig) string {
	if len(cfg.Columns) == 0 {
		return ""
	}
	if cfg.Separator == "" {
		cfg.Separator = "  "
	}

	widths := columnWidths(cfg.Columns, cfg.Width, len(cfg.Separator))

	header := make([]string, len(cfg.Columns))
	rule := make([]string, len(cfg.Columns))
	for i, col := range cfg.Columns {
		header[i] = padOrTruncate(col.Title, widths[i], AlignLeft)
		rule[i] = strings.Repeat("─", widths[i])
	}
	lines := []string{
		cfg.HeaderStyle.Render(strings.Join(header, cfg.Separator)),
		strings.Join(rule, cfg.Separator),
	}

	start, end := cfg.Offset, len(cfg.Rows)
	if start < 0 || start > end {
		start = 0
	}
	if cfg.Height > 0 && start+cfg.Height < end {
		end = start + cfg.Height
	}

	for idx := start; idx < end; idx++ {
		row := cfg.Rows[idx]
		cells := make([]string, len(cfg.Columns))
		for i, col := range cfg.Columns {
			text := ""
			if i < len(row) {
				text = row[i]
			}
			cells[i] = padOrTruncate(text, widths[i], col.Align)
		}
		style := cfg.RowStyle
		if idx == cfg.Cursor {
			style = cfg.SelectedStyle
		}
		lines = append(lines, style.Render(strings.Join(cells, cfg.Separator)))
	}

	return strings.Join(lines, "\n")
}

// ScrollOffset returns the offset that keeps cursor inside a window of
// height rows, moving the window as little as possible.
func ScrollOffset(cursor, offset, height, total int) int {
	if height <= 0 || total <= height {
		return 0
	}
	if cursor < offset {
		offset = cursor
	}
	if cursor >= offset+height {
		offset = cursor - height + 1
	}
	return max(0, min(offset, total-height))
}

func padOrTruncate(s string, width int, align Alignment) string {
	if width <= 0 {
		return ""
	}

	runes := []rune(s)
	if len(runes) > width {
		if width == 1 {
			return string(runes[:1])
		}
		return string(runes[:width-1]) + "…"
	}

	pad := strings.Repeat(" ", width-len(runes))
	if align == AlignRight {
		return pad + s
	}
	return s + pad
}

// columnWidths resolves flexible columns against the total width. Flexible
// columns never shrink below 4 characters.
func columnWidths(cols []Column, total, sepWidth int) []int {
	widths := make([]int, len(cols))
	fixed, flexible := 0, 0
	for i, col := range cols {
		if col.Width > 0 {
			widths[i] = col.Width
			fixed += col.Width
		} else {
			flexible++
		}
	}
	if flexible == 0 {
		return widths
	}

	remaining := total - fixed - sepWidth*(len(cols)-1)
	share := max(4, remaining/flexible)
	for i, col := range cols {
		if col.Width <= 0 {
			widths[i] = share
		}
	}
	return widths
}
