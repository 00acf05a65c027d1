package main

import (
	"encoding/json"
	"fmt"
	"io"

	"gitlab.com/tinyland/lab/cloud-optimizer/display/tui"
)

// runKeysCommand prints the TUI keybindings as a table or JSON, optionally
// limited to one scope.
func runKeysCommand(w io.Writer, scope string, format string) error {
	reg := tui.DefaultRegistry()
	if scope != "" {
		filtered := reg.ByScope(tui.KeyScope(scope))
		if len(filtered) == 0 {
			return fmt.Errorf("no bindings found for scope %q", scope)
		}
		reg = &tui.KeyRegistry{Entries: filtered}
	}

	switch format {
	case "json":
		data, err := json.MarshalIndent(reg.FormatJSON(), "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "table", "":
		if _, err := fmt.Fprint(w, reg.FormatTable()); err != nil {
			return err
		}
		for _, c := range reg.Conflicts() {
			if _, err := fmt.Fprintf(w, "conflict: %s\n", c); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown keys format %q (supported: table, json)", format)
	}
}
