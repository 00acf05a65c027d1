package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gitlab.com/tinyland/lab/cloud-optimizer/collectors"
	"gitlab.com/tinyland/lab/cloud-optimizer/collectors/sysmetrics"
	"gitlab.com/tinyland/lab/cloud-optimizer/config"
	"gitlab.com/tinyland/lab/cloud-optimizer/display/tui"
	"gitlab.com/tinyland/lab/cloud-optimizer/display/widgets"
	"gitlab.com/tinyland/lab/cloud-optimizer/internal/format"
	"gitlab.com/tinyland/lab/cloud-optimizer/startup"
	"gitlab.com/tinyland/lab/cloud-optimizer/tweaks"
)

const (
	defaultTermWidth = 100
	elevateHint      = "re-run elevated with -elevate"
)

// newLogger builds the process logger from the log section. With an empty
// file the logger writes to stderr, unless quiet is set (the TUI owns the
// terminal), in which case output is discarded. The returned closer is never nil.
func newLogger(cfg config.LogConfig, verbose, quiet bool) (*slog.Logger, io.Closer, error) {
	level := parseLogLevel(cfg.Level)
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.File == "" {
		if quiet {
			return slog.New(slog.NewTextHandler(io.Discard, opts)), io.NopCloser(nil), nil
		}
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), io.NopCloser(nil), nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return slog.New(slog.NewTextHandler(f, opts)), f, nil
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// argsWithout returns args minus every spelling of the boolean flag name,
// so a relaunch does not loop.
func argsWithout(args []string, name string) []string {
	out := make([]string, 0, len(args))
	for i, a := range args {
		if a == "--" {
			return append(out, args[i:]...)
		}
		if strings.HasPrefix(a, "-") {
			trimmed := strings.TrimLeft(a, "-")
			if trimmed == name || strings.HasPrefix(trimmed, name+"=") {
				continue
			}
		}
		out = append(out, a)
	}
	return out
}

// errorHint returns err's message, with the elevation hint appended when
// the failure needs administrator rights.
func errorHint(err error) string {
	if errors.Is(err, startup.ErrPermission) || errors.Is(err, tweaks.ErrPermission) {
		return err.Error() + " (" + elevateHint + ")"
	}
	return err.Error()
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// writeEntries prints active entries as a table or as JSON.
func writeEntries(w io.Writer, entries []startup.Entry, width int, asJSON bool) error {
	if asJSON {
		if entries == nil {
			entries = []startup.Entry{}
		}
		return writeJSON(w, entries)
	}
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No active startup entries.")
		return err
	}

	cmdWidth := max(width-24-16-4, 16)
	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = []string{e.Name, e.Source.String(), format.TruncateMiddle(e.Exe, cmdWidth)}
	}
	cfg := widgets.DefaultTableConfig()
	cfg.Columns = []widgets.Column{
		{Title: "Name", Width: 24},
		{Title: "Source", Width: 16},
		{Title: "Command"},
	}
	cfg.Rows = rows
	cfg.Width = width
	_, err := fmt.Fprintln(w, widgets.RenderTable(cfg))
	return err
}

// disabledView is the JSON shape of a side-store item.
type disabledView struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Origin string `json:"origin"`
	Where  string `json:"where"`
}

func viewDisabled(d startup.DisabledEntry) disabledView {
	switch d := d.(type) {
	case startup.DisabledFile:
		return disabledView{Name: d.Name, Kind: "file", Origin: d.BaseFolder, Where: d.Path}
	case startup.DisabledRegistry:
		return disabledView{Name: d.Name, Kind: "registry", Origin: d.Origin(), Where: d.Data}
	}
	return disabledView{Name: d.EntryName(), Origin: d.Origin()}
}

// writeDisabled prints side-store items as a table or as JSON.
func writeDisabled(w io.Writer, entries []startup.DisabledEntry, width int, asJSON bool) error {
	views := make([]disabledView, len(entries))
	for i, d := range entries {
		views[i] = viewDisabled(d)
	}
	if asJSON {
		return writeJSON(w, views)
	}
	if len(views) == 0 {
		_, err := fmt.Fprintln(w, "No disabled startup entries.")
		return err
	}

	rows := make([][]string, len(views))
	for i, v := range views {
		rows[i] = []string{v.Name, v.Kind, format.TruncateMiddle(v.Origin, max(width-24-10-4, 16))}
	}
	cfg := widgets.DefaultTableConfig()
	cfg.Columns = []widgets.Column{
		{Title: "Name", Width: 24},
		{Title: "Kind", Width: 10},
		{Title: "Restores to"},
	}
	cfg.Rows = rows
	cfg.Width = width
	_, err := fmt.Fprintln(w, widgets.RenderTable(cfg))
	return err
}

// disableByName disables the first active entry named name (case-insensitive).
func disableByName(ctx context.Context, inv tui.StartupManager, name string) (startup.Entry, error) {
	e, ok := startup.FindEntry(inv.ListActive(ctx), name)
	if !ok {
		return startup.Entry{}, fmt.Errorf("no active startup entry named %q", name)
	}
	return e, inv.Disable(ctx, e)
}

// restoreByName restores the first side-store item named name (case-insensitive).
func restoreByName(ctx context.Context, inv tui.StartupManager, name string) (startup.DisabledEntry, error) {
	d, ok := startup.FindDisabled(inv.ListDisabled(ctx), name)
	if !ok {
		return nil, fmt.Errorf("no disabled startup entry named %q", name)
	}
	return d, inv.Restore(ctx, d)
}

// filterBySource keeps the entries from the named source. An empty name
// keeps everything.
func filterBySource(entries []startup.Entry, name string) ([]startup.Entry, error) {
	if name == "" {
		return entries, nil
	}
	src, err := startup.ParseSource(name)
	if err != nil {
		return nil, err
	}
	var out []startup.Entry
	for _, e := range entries {
		if e.Source == src {
			out = append(out, e)
		}
	}
	return out, nil
}

// initConfig writes the default configuration to path unless a file is
// already there. It reports whether a file was written.
func initConfig(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, err
	}
	if err := config.SaveConfig(config.DefaultConfig(), path); err != nil {
		return false, fmt.Errorf("write config: %w", err)
	}
	return true, nil
}

// statusSettle is the gap between the seeding sample and the reported one.
// Rates need two readings of the cumulative counters.
const statusSettle = time.Second

// sampleStatus takes a seeding sample, waits settle, and returns the second
// sample. Both go through a collector runner so a panicking sampler surfaces
// as an error.
func sampleStatus(ctx context.Context, c collectors.Collector, settle time.Duration, logger *slog.Logger) (*sysmetrics.SysMetricsData, []string, error) {
	registry := collectors.NewRegistry()
	registry.Register(c)
	runner := collectors.NewRunner(registry, nil, logger)

	if _, err := runner.RunOnce(ctx, c.Name()); err != nil {
		return nil, nil, err
	}

	timer := time.NewTimer(settle)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	case <-timer.C:
	}

	result, err := runner.RunOnce(ctx, c.Name())
	if err != nil {
		return nil, nil, err
	}
	if result == nil {
		return nil, nil, errors.New("no data")
	}
	data, _ := result.Data.(*sysmetrics.SysMetricsData)
	if data == nil {
		return nil, nil, errors.New("no data")
	}
	return data, result.Warnings, nil
}

// tweakView is the JSON shape of a catalog entry with its last outcome.
type tweakView struct {
	tweaks.Tweak
	LastRun *tweaks.Record `json:"last_run,omitempty"`
}

// writeTweaks prints the catalog with the last outcome of each tweak.
func writeTweaks(w io.Writer, cat tui.TweakCatalog, now time.Time, asJSON bool) error {
	list := cat.List()
	history := cat.History()

	if asJSON {
		views := make([]tweakView, len(list))
		for i, tw := range list {
			views[i] = tweakView{Tweak: tw}
			if rec, ok := history[tw.ID]; ok {
				views[i].LastRun = &rec
			}
		}
		return writeJSON(w, views)
	}

	for _, tw := range list {
		admin := ""
		if tw.RequiresAdmin {
			admin = " [admin]"
		}
		last := "never run"
		if rec, ok := history[tw.ID]; ok {
			state := "ok"
			if !rec.OK {
				state = "failed"
			}
			last = fmt.Sprintf("%s %s: %s", state, format.FormatTimeSince(rec.AppliedAt, now), rec.Summary)
		}
		if _, err := fmt.Fprintf(w, "%-15s %s%s\n  %s\n  last: %s\n", tw.ID, tw.Title, admin, tw.Description, last); err != nil {
			return err
		}
	}
	return nil
}

// statusView is the JSON shape of -status.
type statusView struct {
	sysmetrics.Snapshot
	Warnings []string `json:"warnings,omitempty"`
}

// writeStatus prints one metrics sample as gauges and text rows, or as JSON.
func writeStatus(w io.Writer, snap sysmetrics.Snapshot, warnings []string, width int, asJSON bool) error {
	if asJSON {
		return writeJSON(w, statusView{Snapshot: snap, Warnings: warnings})
	}

	gaugeWidth := min(max(width-30, 10), 40)
	formatted := snap.Formatted()
	lines := make([]string, 0, len(sysmetrics.Keys)+len(warnings))
	for _, k := range sysmetrics.Keys {
		value := formatted[k]
		switch k {
		case "CPU", "RAM":
			percent := snap.CPUPercent
			if k == "RAM" {
				percent = snap.RAMPercent
			}
			g := widgets.DefaultGaugeConfig()
			g.Width = gaugeWidth
			g.Percent = percent
			g.Label = fmt.Sprintf("%-5s", k)
			if k == "RAM" {
				g.Value = fmt.Sprintf("%3.0f%% %s", percent, value)
			}
			lines = append(lines, widgets.RenderGauge(g))
		default:
			lines = append(lines, fmt.Sprintf("%-5s %s", k, value))
		}
	}
	for _, warn := range warnings {
		lines = append(lines, "! "+warn)
	}
	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}
