package format

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// TruncateWithEllipsis truncates a string to maxWidth terminal cells,
// appending "..." if the string exceeds the limit. If maxWidth is less than
// 4, the string is hard-truncated without an ellipsis suffix. Wide characters
// count as two cells.
func TruncateWithEllipsis(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if ansi.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth < 4 {
		return ansi.Truncate(s, maxWidth, "")
	}
	return ansi.Truncate(s, maxWidth, "...")
}

// TruncateMiddle shortens a path-like string to maxWidth cells by replacing
// its middle with "...", so both the drive and the file name stay visible.
func TruncateMiddle(s string, maxWidth int) string {
	width := ansi.StringWidth(s)
	if width <= maxWidth {
		return s
	}
	if maxWidth < 7 {
		return TruncateWithEllipsis(s, maxWidth)
	}

	keep := maxWidth - 3
	head := keep / 2
	tail := keep - head
	return ansi.Truncate(s, head, "") + "..." + ansi.TruncateLeft(s, width-tail, "")
}

// UniqueFold returns input without case-insensitive duplicates. The first
// spelling of each value is kept, in order.
func UniqueFold(input []string) []string {
	seen := make(map[string]bool, len(input))
	var result []string
	for _, s := range input {
		key := strings.ToLower(s)
		if seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, s)
	}
	return result
}
