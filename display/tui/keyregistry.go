package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

// KeyScope identifies where a keybinding is active.
type KeyScope string

const (
	// ScopeGlobal bindings work on every tab.
	ScopeGlobal KeyScope = "global"
	// ScopeList bindings move the cursor on the Startup and Tweaks tabs.
	ScopeList KeyScope = "list"
	// ScopeStartup bindings act on startup entries.
	ScopeStartup KeyScope = "startup"
	// ScopeTweaks bindings act on the tweak catalog.
	ScopeTweaks KeyScope = "tweaks"
)

// KeyEntry represents a single registered keybinding with metadata.
type KeyEntry struct {
	Binding key.Binding
	Scope   KeyScope
}

// KeyRegistry lists every binding of the TUI, for -keys and the tests.
type KeyRegistry struct {
	Entries []KeyEntry
}

// DefaultRegistry returns the registry built from the live key map.
func DefaultRegistry() *KeyRegistry {
	return &KeyRegistry{
		Entries: []KeyEntry{
			{keys.NextTab, ScopeGlobal},
			{keys.PrevTab, ScopeGlobal},
			{keys.Tab1, ScopeGlobal},
			{keys.Tab2, ScopeGlobal},
			{keys.Tab3, ScopeGlobal},
			{keys.Refresh, ScopeGlobal},
			{keys.Help, ScopeGlobal},
			{keys.Quit, ScopeGlobal},

			{keys.Up, ScopeList},
			{keys.Down, ScopeList},
			{keys.GoTop, ScopeList},
			{keys.GoBottom, ScopeList},

			{keys.Filter, ScopeStartup},
			{keys.ClearFilter, ScopeStartup},
			{keys.Disable, ScopeStartup},
			{keys.ToggleView, ScopeStartup},
			{keys.Restore, ScopeStartup},

			{keys.Apply, ScopeTweaks},
		},
	}
}

// ByScope returns all entries matching the given scope.
func (r *KeyRegistry) ByScope(scope KeyScope) []KeyEntry {
	var result []KeyEntry
	for _, e := range r.Entries {
		if e.Scope == scope {
			result = append(result, e)
		}
	}
	return result
}

// Conflicts reports keys bound twice where both bindings can be active at
// once. Global and list bindings are live on every tab, so they conflict
// with each other and with every tab scope; two tab scopes never meet.
func (r *KeyRegistry) Conflicts() []string {
	shared := func(s KeyScope) bool { return s == ScopeGlobal || s == ScopeList }

	var conflicts []string
	for i, a := range r.Entries {
		for _, b := range r.Entries[i+1:] {
			if a.Scope != b.Scope && !shared(a.Scope) && !shared(b.Scope) {
				continue
			}
			for _, ka := range a.Binding.Keys() {
				for _, kb := range b.Binding.Keys() {
					if ka == kb {
						conflicts = append(conflicts, fmt.Sprintf("key %q bound to %q (%s) and %q (%s)",
							ka, a.Binding.Help().Desc, a.Scope, b.Binding.Help().Desc, b.Scope))
					}
				}
			}
		}
	}
	return conflicts
}

// FormatTable returns the bindings grouped by scope.
func (r *KeyRegistry) FormatTable() string {
	var sb strings.Builder
	for _, scope := range []KeyScope{ScopeGlobal, ScopeList, ScopeStartup, ScopeTweaks} {
		entries := r.ByScope(scope)
		if len(entries) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\n%s:\n", strings.ToUpper(string(scope)))
		sb.WriteString(strings.Repeat("-", 40) + "\n")
		for _, e := range entries {
			fmt.Fprintf(&sb, "  %-16s  %s\n", strings.Join(e.Binding.Keys(), ", "), e.Binding.Help().Desc)
		}
	}
	return sb.String()
}

// FormatJSON returns a JSON-compatible slice of binding descriptions.
func (r *KeyRegistry) FormatJSON() []map[string]string {
	result := make([]map[string]string, 0, len(r.Entries))
	for _, e := range r.Entries {
		result = append(result, map[string]string{
			"keys":  strings.Join(e.Binding.Keys(), ", "),
			"desc":  e.Binding.Help().Desc,
			"scope": string(e.Scope),
		})
	}
	return result
}
