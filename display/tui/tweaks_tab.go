package tui

import (
	"fmt"
	"strings"
	"time"

	zone "github.com/lrstanley/bubblezone"

	"gitlab.com/tinyland/lab/cloud-optimizer/display/widgets"
	"gitlab.com/tinyland/lab/cloud-optimizer/tweaks"
)

// tweaksView is the state of the Tweaks tab.
type tweaksView struct {
	list    []tweaks.Tweak
	history map[string]tweaks.Record
	cursor  int
	// running is the ID of the tweak being applied, if any.
	running string
}

func (v tweaksView) selected() (tweaks.Tweak, bool) {
	if v.cursor < 0 || v.cursor >= len(v.list) {
		return tweaks.Tweak{}, false
	}
	return v.list[v.cursor], true
}

func (v *tweaksView) moveTo(i int) {
	v.cursor = max(0, min(i, len(v.list)-1))
}

func tweakRowZone(i int) string { return fmt.Sprintf("tweak-row-%d", i) }

// render draws the catalog table followed by the selected tweak's details.
func (v tweaksView) render(zones *zone.Manager, lc LayoutConfig, elevated bool, spin string, now time.Time) string {
	if len(v.list) == 0 {
		return styleMuted.Render("No tweaks available.")
	}

	cfg := widgets.DefaultTableConfig()
	cfg.Width = lc.TableWidth
	cfg.Cursor = v.cursor
	cfg.HeaderStyle = styleLabel
	cfg.SelectedStyle = styleSelected
	cfg.Columns = []widgets.Column{
		{Title: "", Width: 2},
		{Title: "Tweak"},
		{Title: "Admin", Width: 5},
		{Title: "Last run", Width: 10, Align: widgets.AlignRight},
	}
	for _, tw := range v.list {
		rec, ran := v.history[tw.ID]
		mark := " "
		switch {
		case tw.ID == v.running:
			mark = "*"
		case ran && rec.OK:
			mark = "+"
		case ran:
			mark = "x"
		}
		admin := ""
		if tw.RequiresAdmin {
			admin = "yes"
		}
		last := "never"
		if ran {
			last = formatRelativeTime(rec.AppliedAt, now)
		}
		cfg.Rows = append(cfg.Rows, []string{mark, tw.Title, admin, last})
	}

	lines := strings.Split(widgets.RenderTable(cfg), "\n")
	if zones != nil {
		for i := 2; i < len(lines); i++ {
			lines[i] = zones.Mark(tweakRowZone(i-2), lines[i])
		}
	}

	tw, _ := v.selected()
	details := []string{
		"",
		styleTitle.Render(tw.Title),
		truncateText(tw.Description, max(lc.TableWidth, 20)),
	}
	if tw.RequiresAdmin && !elevated {
		details = append(details, styleBadge.Render("Requires administrator rights; re-run elevated (-elevate)"))
	}
	switch rec, ran := v.history[tw.ID]; {
	case tw.ID == v.running:
		details = append(details, widgets.RenderStatus(widgets.StatusPending, spin+" applying..."))
	case !ran:
		details = append(details, widgets.RenderStatus(widgets.StatusUnknown, "not applied yet"))
	case rec.OK:
		details = append(details, widgets.RenderStatus(widgets.StatusOK, rec.Summary))
	default:
		details = append(details, widgets.RenderStatus(widgets.StatusCritical, styleError.Render(rec.Summary)))
	}

	return strings.Join(append(lines, details...), "\n")
}
