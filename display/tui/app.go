// Package tui implements the interactive dashboard: a Monitor tab fed by the
// metrics sampler, a Startup tab to disable and restore startup entries, and
// a Tweaks tab to apply catalog tweaks. Mutations run as Bubbletea commands
// so the UI keeps drawing while the registry or filesystem is busy.
package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"gitlab.com/tinyland/lab/cloud-optimizer/collectors"
	"gitlab.com/tinyland/lab/cloud-optimizer/collectors/sysmetrics"
	"gitlab.com/tinyland/lab/cloud-optimizer/startup"
	"gitlab.com/tinyland/lab/cloud-optimizer/tweaks"
)

// actionTimeout bounds a single disable, restore, refresh or tweak.
const actionTimeout = 2 * time.Minute

const (
	elevateHint    = "re-run elevated (-elevate)"
	refreshingText = "Refreshing..."
)

// Tab identifies which tab is currently active.
type Tab int

const (
	TabMonitor Tab = iota
	TabStartup
	TabTweaks
	tabCount // sentinel for wrapping
)

// tabNames maps each Tab value to its display label.
var tabNames = map[Tab]string{
	TabMonitor: "Monitor",
	TabStartup: "Startup",
	TabTweaks:  "Tweaks",
}

func tabZone(t Tab) string { return fmt.Sprintf("tab-%d", t) }

// StartupManager is the part of *startup.Inventory the TUI drives.
type StartupManager interface {
	ListActive(ctx context.Context) []startup.Entry
	ListDisabled(ctx context.Context) []startup.DisabledEntry
	Disable(ctx context.Context, e startup.Entry) error
	Restore(ctx context.Context, d startup.DisabledEntry) error
}

// TweakCatalog is the part of *tweaks.Catalog the TUI drives.
type TweakCatalog interface {
	List() []tweaks.Tweak
	Apply(ctx context.Context, id string) (tweaks.Result, error)
	History() map[string]tweaks.Record
}

// Options configures a Model.
type Options struct {
	Startup StartupManager
	Tweaks  TweakCatalog
	// Theme names a ThemePreset; unknown names use the monitoring theme.
	Theme string
	// Mouse enables clickable tabs and rows.
	Mouse bool
	// Elevated marks admin-only operations as available.
	Elevated bool
}

// Messages produced by the model's commands.
type (
	startupLoadedMsg struct {
		active   []startup.Entry
		disabled []startup.DisabledEntry
	}
	tweakHistoryMsg map[string]tweaks.Record
	actionDoneMsg   struct {
		text string
		err  error
	}
)

// statusLine is the one-line outcome of the last action.
type statusLine struct {
	text string
	err  bool
}

// Model is the top-level Bubbletea model for the cloud-optimizer TUI.
type Model struct {
	activeTab Tab
	width     int
	height    int
	ready     bool

	inv      StartupManager
	catalog  TweakCatalog
	elevated bool

	metrics  *sysmetrics.SysMetricsData
	warnings map[string][]string
	startup  startupView
	tweaks   tweaksView

	busy     bool
	spinner  spinner.Model
	help     help.Model
	showHelp bool
	status   statusLine
	zones    *zone.Manager

	lastUpdated time.Time
	now         func() time.Time
}

// NewModel returns an initialized Model with the Monitor tab active.
func NewModel(opts Options) Model {
	ApplyTheme(GetThemePreset(opts.Theme))

	m := Model{
		activeTab: TabMonitor,
		inv:       opts.Startup,
		catalog:   opts.Tweaks,
		elevated:  opts.Elevated,
		warnings:  make(map[string][]string),
		startup:   newStartupView(),
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:      help.New(),
		now:       time.Now,
	}
	if opts.Tweaks != nil {
		m.tweaks.list = opts.Tweaks.List()
	}
	if opts.Mouse {
		m.zones = zone.New()
	}
	return m
}

// Close releases the mouse zone tracker.
func (m Model) Close() {
	if m.zones != nil {
		m.zones.Close()
	}
}

// Init implements tea.Model. It loads the startup lists and tweak history
// without waiting for the first collector run.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadStartupCmd(), m.loadHistoryCmd())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true
		m.startup.moveTo(m.startup.cursor, m.tableHeight())

	case collectors.Update:
		m.applyCollectorUpdate(msg)

	case startupLoadedMsg:
		m.startup.setData(msg.active, msg.disabled, m.tableHeight())
		if m.status.text == refreshingText {
			m.status = statusLine{}
		}

	case tweakHistoryMsg:
		m.tweaks.history = msg

	case actionDoneMsg:
		m.busy = false
		m.tweaks.running = ""
		m.status = statusLine{text: msg.text}
		if msg.err != nil {
			m.status = statusLine{text: describeError(msg.err), err: true}
		}
		return m, tea.Batch(m.loadStartupCmd(), m.loadHistoryCmd())

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.KeyMsg:
		if m.startup.filtering {
			return m.handleFilterKey(msg)
		}
		return m.handleKey(msg)
	}

	return m, nil
}

func (m *Model) applyCollectorUpdate(u collectors.Update) {
	if u.Error != nil {
		m.warnings[u.Source] = []string{u.Source + ": " + u.Error.Error()}
		return
	}
	if u.Result == nil {
		return
	}
	m.warnings[u.Source] = u.Result.Warnings
	m.lastUpdated = u.Timestamp

	switch data := u.Result.Data.(type) {
	case *sysmetrics.SysMetricsData:
		m.metrics = data
	case *startup.Data:
		m.startup.setData(data.Active, data.Disabled, m.tableHeight())
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
	case key.Matches(msg, keys.NextTab):
		m.activeTab = (m.activeTab + 1) % tabCount
	case key.Matches(msg, keys.PrevTab):
		m.activeTab = (m.activeTab - 1 + tabCount) % tabCount
	case key.Matches(msg, keys.Tab1):
		m.activeTab = TabMonitor
	case key.Matches(msg, keys.Tab2):
		m.activeTab = TabStartup
	case key.Matches(msg, keys.Tab3):
		m.activeTab = TabTweaks
	case key.Matches(msg, keys.Refresh):
		m.status = statusLine{text: refreshingText}
		return m, tea.Batch(m.loadStartupCmd(), m.loadHistoryCmd())
	case key.Matches(msg, keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, keys.GoTop):
		m.moveCursor(-1 << 20)
	case key.Matches(msg, keys.GoBottom):
		m.moveCursor(1 << 20)
	default:
		switch m.activeTab {
		case TabStartup:
			return m.handleStartupKey(msg)
		case TabTweaks:
			return m.handleTweaksKey(msg)
		}
	}
	return m, nil
}

func (m *Model) moveCursor(delta int) {
	switch m.activeTab {
	case TabStartup:
		m.startup.moveTo(m.startup.cursor+delta, m.tableHeight())
	case TabTweaks:
		m.tweaks.moveTo(m.tweaks.cursor + delta)
	}
}

func (m Model) handleStartupKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Filter):
		m.startup.filtering = true
		return m, m.startup.filter.Focus()
	case key.Matches(msg, keys.ClearFilter):
		m.startup.filter.SetValue("")
		m.startup.moveTo(0, m.tableHeight())
	case key.Matches(msg, keys.ToggleView):
		m.startup.toggle()
	case key.Matches(msg, keys.Disable):
		e, ok := m.startup.selectedEntry()
		if !ok {
			return m, nil
		}
		return m.start("Disabling "+e.Name+"...", m.disableCmd(e))
	case key.Matches(msg, keys.Restore):
		d, ok := m.startup.selectedDisabled()
		if !ok {
			return m, nil
		}
		return m.start("Restoring "+d.EntryName()+"...", m.restoreCmd(d))
	}
	return m, nil
}

// handleFilterKey routes keys to the filter box while it has focus. Enter
// keeps the filter, esc clears it.
func (m Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.startup.filtering = false
		m.startup.filter.Blur()
		return m, nil
	case tea.KeyEsc:
		m.startup.filtering = false
		m.startup.filter.Blur()
		m.startup.filter.SetValue("")
		m.startup.moveTo(0, m.tableHeight())
		return m, nil
	case tea.KeyCtrlC:
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.startup.filter, cmd = m.startup.filter.Update(msg)
	m.startup.moveTo(0, m.tableHeight())
	return m, cmd
}

func (m Model) handleTweaksKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !key.Matches(msg, keys.Apply) {
		return m, nil
	}
	tw, ok := m.tweaks.selected()
	if !ok {
		return m, nil
	}
	wasBusy := m.busy
	next, cmd := m.start("Applying "+tw.Title+"...", m.applyCmd(tw.ID))
	if !wasBusy {
		next.tweaks.running = tw.ID
	}
	return next, cmd
}

// start marks the model busy and runs cmd with the spinner going. Only one
// action runs at a time.
func (m Model) start(text string, cmd tea.Cmd) (Model, tea.Cmd) {
	if m.busy {
		m.status = statusLine{text: "Another action is still running", err: true}
		return m, nil
	}
	m.busy = true
	m.status = statusLine{text: text}
	return m, tea.Batch(cmd, m.spinner.Tick)
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.zones == nil {
		return m, nil
	}

	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		m.moveCursor(-1)
		return m, nil
	case msg.Button == tea.MouseButtonWheelDown:
		m.moveCursor(1)
		return m, nil
	case msg.Button != tea.MouseButtonLeft || msg.Action != tea.MouseActionRelease:
		return m, nil
	}

	for t := Tab(0); t < tabCount; t++ {
		if z := m.zones.Get(tabZone(t)); z != nil && z.InBounds(msg) {
			m.activeTab = t
			return m, nil
		}
	}

	switch m.activeTab {
	case TabStartup:
		for i := 0; i < m.startup.rowCount(); i++ {
			if z := m.zones.Get(startupRowZone(i)); z != nil && z.InBounds(msg) {
				m.startup.moveTo(i, m.tableHeight())
				break
			}
		}
	case TabTweaks:
		for i := range m.tweaks.list {
			if z := m.zones.Get(tweakRowZone(i)); z != nil && z.InBounds(msg) {
				m.tweaks.moveTo(i)
				break
			}
		}
	}
	return m, nil
}

func (m Model) loadStartupCmd() tea.Cmd {
	inv := m.inv
	if inv == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return startupLoadedMsg{active: inv.ListActive(ctx), disabled: inv.ListDisabled(ctx)}
	}
}

func (m Model) loadHistoryCmd() tea.Cmd {
	catalog := m.catalog
	if catalog == nil {
		return nil
	}
	return func() tea.Msg {
		return tweakHistoryMsg(catalog.History())
	}
}

func (m Model) disableCmd(e startup.Entry) tea.Cmd {
	inv := m.inv
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		if err := inv.Disable(ctx, e); err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{text: "Disabled " + e.Name}
	}
}

func (m Model) restoreCmd(d startup.DisabledEntry) tea.Cmd {
	inv := m.inv
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		if err := inv.Restore(ctx, d); err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{text: "Restored " + d.EntryName()}
	}
}

func (m Model) applyCmd(id string) tea.Cmd {
	catalog := m.catalog
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		res, err := catalog.Apply(ctx, id)
		if err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{text: res.Message}
	}
}

// describeError renders an action error for the status line, pointing at
// -elevate when rights were missing.
func describeError(err error) string {
	if errors.Is(err, startup.ErrPermission) || errors.Is(err, tweaks.ErrPermission) {
		return err.Error() + "; " + elevateHint
	}
	return err.Error()
}

// tableHeight is the number of lines available to the active tab's content.
func (m Model) tableHeight() int {
	// Header (tab bar, border, margin), footer (margin, status, help) and
	// content padding.
	return max(m.height-10, 3)
}

// View implements tea.Model. It renders the header, active tab content, and footer.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	header := m.renderHeader()
	content := m.renderTabContent()
	footer := m.renderFooter()

	view := lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
	if m.zones != nil {
		return m.zones.Scan(view)
	}
	return view
}

// renderHeader renders the tab bar with the active tab highlighted.
func (m Model) renderHeader() string {
	var tabs []string
	for i := Tab(0); i < tabCount; i++ {
		label := fmt.Sprintf("%d %s", i+1, tabNames[i])
		style := styleInactiveTab
		if i == m.activeTab {
			style = styleActiveTab
		}
		rendered := style.Render(label)
		if m.zones != nil {
			rendered = m.zones.Mark(tabZone(i), rendered)
		}
		tabs = append(tabs, rendered)
	}

	bar := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	if !m.elevated {
		bar = lipgloss.JoinHorizontal(lipgloss.Top, bar, styleMuted.Render("  not elevated"))
	}
	return styleHeader.Width(m.width).Render(bar)
}

// renderTabContent delegates to the appropriate tab renderer based on the active tab.
func (m Model) renderTabContent() string {
	lc := LayoutForSize(DetectLayout(m.width), m.width)

	var content string
	switch m.activeTab {
	case TabMonitor:
		content = renderMonitorContent(m.metrics, m.warnings["sysmetrics"], lc, m.width)
	case TabStartup:
		content = m.startup.render(m.zones, lc, m.tableHeight())
	case TabTweaks:
		content = m.tweaks.render(m.zones, lc, m.elevated, m.spinner.View(), m.now())
	}

	return styleContent.Width(m.width).Render(content)
}

// renderFooter renders the status line, key help and last update time.
func (m Model) renderFooter() string {
	status := m.status.text
	switch {
	case m.busy:
		status = m.spinner.View() + " " + status
	case m.status.err:
		status = styleError.Render(status)
	case status != "":
		status = styleSuccess.Render(status)
	}
	if w := m.warnings["startup"]; len(w) > 0 && m.activeTab == TabStartup && status == "" {
		status = styleMuted.Render(w[0])
	}

	helpLine := m.help.View(keys)
	if !m.lastUpdated.IsZero() {
		helpLine += styleMuted.Render("  Updated: " + m.lastUpdated.Format("15:04:05"))
	}

	return styleFooter.Width(m.width).Render(lipgloss.JoinVertical(lipgloss.Left, status, helpLine))
}
