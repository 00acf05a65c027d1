// Package color decides whether cloud-optimizer output may carry ANSI color.
//
// It honours the NO_COLOR convention (https://no-color.org/), TERM=dumb and
// pipe/redirect detection. When color is off, lipgloss is switched to the
// Ascii profile so every styled render produces plain text, which keeps
// -list and -status output clean when redirected to a file.
package color

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// isTerminal is swapped in tests.
var isTerminal = func(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// ShouldDisableColor reports whether output written to f should be plain:
// NO_COLOR is set (any value), TERM is "dumb", or f is not a terminal.
func ShouldDisableColor(f *os.File) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return true
	}
	if os.Getenv("TERM") == "dumb" {
		return true
	}
	return f == nil || !isTerminal(f.Fd())
}

// Apply configures the global lipgloss renderer for output to f and reports
// whether color stays enabled.
func Apply(f *os.File) bool {
	if ShouldDisableColor(f) {
		ForceDisable()
		return false
	}
	return true
}

// ForceDisable sets the lipgloss color profile to Ascii.
func ForceDisable() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// StripANSI removes ANSI escape sequences, for output that bypasses lipgloss.
func StripANSI(s string) string {
	return ansi.Strip(s)
}
