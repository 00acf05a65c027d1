package tui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/key"
)

func TestDefaultRegistry_NoConflicts(t *testing.T) {
	for _, c := range DefaultRegistry().Conflicts() {
		t.Errorf("key conflict: %s", c)
	}
}

func TestRegistry_ConflictDetection(t *testing.T) {
	reg := &KeyRegistry{Entries: []KeyEntry{
		{key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "one")), ScopeStartup},
		{key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "two")), ScopeTweaks},
	}}
	if c := reg.Conflicts(); len(c) != 0 {
		t.Errorf("separate tab scopes reported as conflicting: %v", c)
	}

	reg.Entries = append(reg.Entries, KeyEntry{key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "three")), ScopeGlobal})
	if c := reg.Conflicts(); len(c) != 2 {
		t.Errorf("conflicts = %v, want 2", c)
	}
}

func TestDefaultRegistry_CoversKeyMap(t *testing.T) {
	reg := DefaultRegistry()
	var n int
	for _, group := range keys.FullHelp() {
		n += len(group)
	}
	if len(reg.Entries) != n {
		t.Errorf("registry has %d entries, help shows %d", len(reg.Entries), n)
	}
}

func TestRegistry_FormatTable(t *testing.T) {
	out := DefaultRegistry().FormatTable()
	for _, want := range []string{"GLOBAL:", "STARTUP:", "TWEAKS:", "disable", "apply tweak"} {
		if !strings.Contains(out, want) {
			t.Errorf("FormatTable missing %q", want)
		}
	}
}

func TestRegistry_FormatJSON(t *testing.T) {
	entries := DefaultRegistry().FormatJSON()
	if len(entries) == 0 {
		t.Fatal("no entries")
	}
	for _, e := range entries {
		if e["keys"] == "" || e["desc"] == "" || e["scope"] == "" {
			t.Errorf("incomplete entry %v", e)
		}
	}
}
