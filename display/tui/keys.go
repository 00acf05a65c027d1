package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all key bindings for the TUI application.
// It implements the help.KeyMap interface for bubbles/help integration.
type keyMap struct {
	Quit    key.Binding
	NextTab key.Binding
	PrevTab key.Binding
	Tab1    key.Binding
	Tab2    key.Binding
	Tab3    key.Binding

	Up       key.Binding
	Down     key.Binding
	GoTop    key.Binding
	GoBottom key.Binding

	Filter      key.Binding
	ClearFilter key.Binding
	Disable     key.Binding
	ToggleView  key.Binding
	Restore     key.Binding
	Apply       key.Binding

	Refresh key.Binding
	Help    key.Binding
}

// ShortHelp returns the compact set of keybindings shown by default in the footer.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.NextTab, k.Down, k.Quit}
}

// FullHelp returns the expanded keybinding groups shown when help is toggled.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NextTab, k.PrevTab, k.Tab1, k.Tab2, k.Tab3},
		{k.Up, k.Down, k.GoTop, k.GoBottom},
		{k.Filter, k.ClearFilter, k.Disable, k.ToggleView, k.Restore},
		{k.Apply, k.Refresh, k.Help, k.Quit},
	}
}

// keys holds the default key bindings used by the application.
var keys = keyMap{
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	NextTab: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next tab")),
	PrevTab: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev tab")),
	Tab1:    key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "monitor")),
	Tab2:    key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "startup")),
	Tab3:    key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "tweaks")),

	Up:       key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/up", "move up")),
	Down:     key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/dn", "move down")),
	GoTop:    key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "top")),
	GoBottom: key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "bottom")),

	Filter:      key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
	ClearFilter: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear filter")),
	Disable:     key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "disable")),
	ToggleView:  key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "active/disabled")),
	Restore:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "restore")),
	Apply:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "apply tweak")),

	Refresh: key.NewBinding(key.WithKeys("R", "ctrl+r"), key.WithHelp("R", "refresh")),
	Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
}
