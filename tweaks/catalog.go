// Package tweaks holds the fixed catalog of one-shot system tweaks: power
// plan, temporary file cleanup, network stack flags, service disablement,
// visual effects and bundled-app startup removal.
//
// Tweaks are not reversible from inside the program. Each Apply call runs the
// tweak once and records the outcome so the TUI can show when it last ran.
package tweaks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"gitlab.com/tinyland/lab/cloud-optimizer/cache"
	"gitlab.com/tinyland/lab/cloud-optimizer/internal/sysexec"
	"gitlab.com/tinyland/lab/cloud-optimizer/internal/winreg"
)

var (
	// ErrPermission is returned when an admin-only tweak is applied without
	// elevation. Nothing has been changed when it is returned.
	ErrPermission = errors.New("tweaks: administrator rights required")

	// ErrUnknownTweak is returned for an ID not in the catalog.
	ErrUnknownTweak = errors.New("tweaks: unknown tweak")
)

// Tweak IDs in catalog order.
const (
	PowerPlan     = "power-plan"
	CleanTemp     = "clean-temp"
	Network       = "network"
	Services      = "services"
	VisualEffects = "visual-effects"
	BundledApps   = "bundled-apps"
)

// Tweak describes one catalog entry.
type Tweak struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	RequiresAdmin bool   `json:"requires_admin"`

	apply func(c *Catalog, ctx context.Context) (Result, error)
}

// Result summarizes a successful run.
type Result struct {
	ID string `json:"id"`
	// Changed counts the items the tweak touched (files, services, values).
	Changed int `json:"changed"`
	// Message is a one-line human summary.
	Message string `json:"message"`
}

var catalog = []Tweak{
	{
		ID:            PowerPlan,
		Title:         "High performance power plan",
		Description:   "Activate the High performance plan and disable monitor, disk, standby and hibernate timeouts on AC power.",
		RequiresAdmin: true,
		apply:         (*Catalog).applyPowerPlan,
	},
	{
		ID:          CleanTemp,
		Title:       "Clean temporary files",
		Description: "Delete the contents of the user and Windows temp, Prefetch and Logs folders. Files in use are skipped.",
		apply:       (*Catalog).applyCleanTemp,
	},
	{
		ID:            Network,
		Title:         "Optimize network",
		Description:   "Enable TCP auto-tuning, chimney offload and receive side scaling, then flush the DNS cache.",
		RequiresAdmin: true,
		apply:         (*Catalog).applyNetwork,
	},
	{
		ID:            Services,
		Title:         "Disable background services",
		Description:   "Stop and disable telemetry, WAP push, SysMain and Windows Search.",
		RequiresAdmin: true,
		apply:         (*Catalog).applyServices,
	},
	{
		ID:          VisualEffects,
		Title:       "Reduce visual effects",
		Description: "Set Explorer to best performance: no taskbar animations, selection alpha or icon shadows.",
		apply:       (*Catalog).applyVisualEffects,
	},
	{
		ID:          BundledApps,
		Title:       "Remove bundled apps from startup",
		Description: "Delete Run entries for OneDrive, Skype, Teams and Spotify and disable their scheduled tasks.",
		apply:       (*Catalog).applyBundledApps,
	},
}

// Options configures a Catalog. Zero fields take defaults.
type Options struct {
	Runner      sysexec.Runner
	Registry    winreg.Registry
	IsElevated  func() bool
	TempFolders []string
	Services    []string
	BundledApps []string
	// Store records the last outcome of each tweak. Nil disables the record.
	Store  *cache.Store
	Logger *slog.Logger
}

// Catalog applies tweaks against the live system (or the fakes in Options).
type Catalog struct {
	runner      sysexec.Runner
	reg         winreg.Registry
	isElevated  func() bool
	tempFolders []string
	services    []string
	bundledApps []string
	store       *cache.Store
	logger      *slog.Logger
	now         func() time.Time
}

// New creates a Catalog.
func New(opts Options) *Catalog {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Runner == nil {
		opts.Runner = sysexec.NewExecRunner(opts.Logger)
	}
	if opts.Registry == nil {
		opts.Registry = winreg.New()
	}
	if opts.IsElevated == nil {
		opts.IsElevated = sysexec.IsElevated
	}
	if len(opts.TempFolders) == 0 {
		opts.TempFolders = DefaultTempFolders
	}
	if len(opts.Services) == 0 {
		opts.Services = DefaultServices
	}
	if len(opts.BundledApps) == 0 {
		opts.BundledApps = DefaultBundledApps
	}
	return &Catalog{
		runner:      opts.Runner,
		reg:         opts.Registry,
		isElevated:  opts.IsElevated,
		tempFolders: opts.TempFolders,
		services:    opts.Services,
		bundledApps: opts.BundledApps,
		store:       opts.Store,
		logger:      opts.Logger,
		now:         time.Now,
	}
}

// List returns the catalog in display order.
func (c *Catalog) List() []Tweak {
	out := make([]Tweak, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup returns the tweak with the given ID.
func Lookup(id string) (Tweak, bool) {
	for _, t := range catalog {
		if t.ID == id {
			return t, true
		}
	}
	return Tweak{}, false
}

// Apply runs one tweak. Admin-only tweaks fail with ErrPermission before
// running anything when the process is not elevated.
func (c *Catalog) Apply(ctx context.Context, id string) (Result, error) {
	t, ok := Lookup(id)
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownTweak, id)
	}
	if t.RequiresAdmin && !c.isElevated() {
		return Result{}, fmt.Errorf("tweaks: %s: %w", id, ErrPermission)
	}

	start := c.now()
	res, err := t.apply(c, ctx)
	res.ID = id
	if err != nil {
		err = fmt.Errorf("tweaks: %s: %w", id, err)
		c.logger.Warn("tweak failed", "tweak", id, "error", err)
	} else {
		c.logger.Info("tweak applied", "tweak", id, "changed", res.Changed, "duration", c.now().Sub(start))
	}
	c.record(id, res, err)
	return res, err
}
