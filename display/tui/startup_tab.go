package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	zone "github.com/lrstanley/bubblezone"

	"gitlab.com/tinyland/lab/cloud-optimizer/display/widgets"
	"gitlab.com/tinyland/lab/cloud-optimizer/internal/format"
	"gitlab.com/tinyland/lab/cloud-optimizer/startup"
)

// startupChrome is the number of lines above the startup table rows: view
// switch, filter, blank, table header and rule.
const startupChrome = 5

// startupView is the state of the Startup tab.
type startupView struct {
	active   []startup.Entry
	disabled []startup.DisabledEntry
	loaded   bool

	showDisabled bool
	cursor       int
	offset       int

	filter    textinput.Model
	filtering bool
}

func newStartupView() startupView {
	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = "name, command or source"
	ti.CharLimit = 64
	return startupView{filter: ti}
}

func (v startupView) visibleActive() []startup.Entry {
	return startup.FilterEntries(v.active, v.filter.Value())
}

func (v startupView) visibleDisabled() []startup.DisabledEntry {
	return startup.FilterDisabled(v.disabled, v.filter.Value())
}

func (v startupView) rowCount() int {
	if v.showDisabled {
		return len(v.visibleDisabled())
	}
	return len(v.visibleActive())
}

func (v startupView) selectedEntry() (startup.Entry, bool) {
	rows := v.visibleActive()
	if v.showDisabled || v.cursor < 0 || v.cursor >= len(rows) {
		return startup.Entry{}, false
	}
	return rows[v.cursor], true
}

func (v startupView) selectedDisabled() (startup.DisabledEntry, bool) {
	rows := v.visibleDisabled()
	if !v.showDisabled || v.cursor < 0 || v.cursor >= len(rows) {
		return nil, false
	}
	return rows[v.cursor], true
}

// setData replaces both lists, keeping the cursor in range.
func (v *startupView) setData(active []startup.Entry, disabled []startup.DisabledEntry, height int) {
	v.active = active
	v.disabled = disabled
	v.loaded = true
	v.moveTo(v.cursor, height)
}

// moveTo places the cursor on row i (clamped) and scrolls it into view.
func (v *startupView) moveTo(i, height int) {
	n := v.rowCount()
	v.cursor = max(0, min(i, n-1))
	v.offset = widgets.ScrollOffset(v.cursor, v.offset, height, n)
}

func (v *startupView) toggle() {
	v.showDisabled = !v.showDisabled
	v.cursor, v.offset = 0, 0
}

func startupRowZone(i int) string { return fmt.Sprintf("startup-row-%d", i) }

// render draws the Startup tab within height lines.
func (v startupView) render(zones *zone.Manager, lc LayoutConfig, height int) string {
	if !v.loaded {
		return styleMuted.Render("Reading startup entries...")
	}

	activeLabel := fmt.Sprintf("Active (%d)", len(v.active))
	disabledLabel := fmt.Sprintf("Disabled (%d)", len(v.disabled))
	if v.showDisabled {
		activeLabel, disabledLabel = styleMuted.Render(activeLabel), styleTitle.Render(disabledLabel)
	} else {
		activeLabel, disabledLabel = styleTitle.Render(activeLabel), styleMuted.Render(disabledLabel)
	}

	filterLine := styleMuted.Render("/ to filter")
	if v.filtering || v.filter.Value() != "" {
		filterLine = v.filter.View()
	}

	cfg := widgets.DefaultTableConfig()
	cfg.Width = lc.TableWidth
	cfg.Height = max(height-startupChrome, 1)
	cfg.Offset = v.offset
	cfg.Cursor = v.cursor
	cfg.HeaderStyle = styleLabel
	cfg.SelectedStyle = styleSelected

	if v.showDisabled {
		cfg.Columns = []widgets.Column{{Title: "Name", Width: 28}, {Title: "Restores to"}}
		for _, d := range v.visibleDisabled() {
			cfg.Rows = append(cfg.Rows, []string{d.EntryName(), format.TruncateMiddle(d.Origin(), max(lc.TableWidth-30, 8))})
		}
	} else {
		cfg.Columns = []widgets.Column{{Title: "Name", Width: 28}, {Title: "Source", Width: 14}}
		if lc.ShowCommand {
			cfg.Columns = append(cfg.Columns, widgets.Column{Title: "Command"})
		}
		for _, e := range v.visibleActive() {
			cfg.Rows = append(cfg.Rows, []string{e.Name, e.Source.String(), format.TruncateMiddle(e.Exe, max(lc.TableWidth-46, 8))})
		}
	}

	var body string
	if len(cfg.Rows) == 0 {
		body = styleMuted.Render("No entries.")
	} else {
		lines := strings.Split(widgets.RenderTable(cfg), "\n")
		if zones != nil {
			for i := 2; i < len(lines); i++ {
				lines[i] = zones.Mark(startupRowZone(cfg.Offset+i-2), lines[i])
			}
		}
		body = strings.Join(lines, "\n")
	}

	return strings.Join([]string{activeLabel + "   " + disabledLabel, filterLine, "", body}, "\n")
}
