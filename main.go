// cloud-optimizer inspects and tunes a Windows workstation.
//
// It lists and toggles the programs Windows starts at logon, samples live
// system metrics, and applies a small catalog of performance tweaks, either
// through an interactive TUI or one-shot commands.
//
// Usage:
//
//	cloud-optimizer [flags]
//
// Flags:
//
//	-tui                   Launch the interactive TUI (default when no other mode is given)
//	-status                Print one metrics sample
//	-list                  List active startup entries
//	-source string         With -list, only show entries from hkcu, hklm or folder
//	-list-disabled         List disabled startup entries
//	-disable string        Disable the startup entry with this name
//	-restore string        Restore the disabled startup entry with this name
//	-tweaks                List the tweak catalog
//	-tweak string          Apply the tweak with this ID
//	-create-test-entries   Add harmless CloudOptTest Run values
//	-remove-test-entries   Remove the CloudOptTest Run values
//	-json                  Print -status, -list, -list-disabled and -tweaks as JSON
//	-keys                  Print TUI keybindings (-keys-format table|json)
//	-elevate               Relaunch elevated through the UAC prompt
//	-config string         Path to configuration file (default: %APPDATA%\cloud-optimizer\config.yaml)
//	-clear-cache           Remove persisted metrics history and tweak log
//	-init-config           Write the default configuration file if none exists
//	-man                   Print man page to stdout in roff format
//	-verbose               Enable debug logging
//	-version               Print version and exit
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/x/term"

	"gitlab.com/tinyland/lab/cloud-optimizer/cache"
	"gitlab.com/tinyland/lab/cloud-optimizer/collectors/sysmetrics"
	"gitlab.com/tinyland/lab/cloud-optimizer/config"
	"gitlab.com/tinyland/lab/cloud-optimizer/display/color"
	"gitlab.com/tinyland/lab/cloud-optimizer/docs/manpage"
	"gitlab.com/tinyland/lab/cloud-optimizer/internal/format"
	"gitlab.com/tinyland/lab/cloud-optimizer/internal/sysexec"
	"gitlab.com/tinyland/lab/cloud-optimizer/internal/winreg"
	"gitlab.com/tinyland/lab/cloud-optimizer/startup"
	"gitlab.com/tinyland/lab/cloud-optimizer/tweaks"
)

func main() {
	var (
		configPath    = flag.String("config", "", "Path to configuration file (default: %APPDATA%\\cloud-optimizer\\config.yaml)")
		runTUI        = flag.Bool("tui", false, "Launch the interactive TUI (default)")
		runStatus     = flag.Bool("status", false, "Print one metrics sample")
		listActive    = flag.Bool("list", false, "List active startup entries")
		listSource    = flag.String("source", "", "With -list, only show entries from this source (hkcu|hklm|folder)")
		listDisabled  = flag.Bool("list-disabled", false, "List disabled startup entries")
		disableName   = flag.String("disable", "", "Disable the startup entry with this name")
		restoreName   = flag.String("restore", "", "Restore the disabled startup entry with this name")
		listTweaks    = flag.Bool("tweaks", false, "List the tweak catalog")
		tweakID       = flag.String("tweak", "", "Apply the tweak with this ID")
		createTests   = flag.Bool("create-test-entries", false, "Add harmless CloudOptTest Run values")
		removeTests   = flag.Bool("remove-test-entries", false, "Remove the CloudOptTest Run values")
		asJSON        = flag.Bool("json", false, "Print -status, -list, -list-disabled and -tweaks as JSON")
		showKeys      = flag.Bool("keys", false, "Print TUI keybindings")
		keysFormat    = flag.String("keys-format", "table", "Keybinding output format (table|json)")
		keysScope     = flag.String("keys-scope", "", "Only print keybindings of this scope (global|list|startup|tweaks)")
		elevate       = flag.Bool("elevate", false, "Relaunch elevated through the UAC prompt")
		clearCache    = flag.Bool("clear-cache", false, "Remove persisted metrics history and tweak log")
		writeConfig   = flag.Bool("init-config", false, "Write the default configuration file if none exists")
		verbose       = flag.Bool("verbose", false, "Enable debug logging")
		showVersion   = flag.Bool("version", false, "Print version and exit")
		showMan       = flag.Bool("man", false, "Print man page to stdout in roff format")
		termWidthFlag = flag.Int("term-width", 0, "Terminal width override (0 = auto-detect)")
	)
	flag.Parse()

	// ---------------------------------------------------------------
	// Commands that don't require config
	// ---------------------------------------------------------------

	if *showVersion {
		fmt.Printf("cloud-optimizer %s (%s) built %s\n", version, commit, date)
		os.Exit(0)
	}

	if *showMan {
		fmt.Print(manpage.Generate(flag.CommandLine, version, commit, date))
		os.Exit(0)
	}

	if *showKeys {
		if err := runKeysCommand(os.Stdout, *keysScope, *keysFormat); err != nil {
			fmt.Fprintf(os.Stderr, "cloud-optimizer: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if *elevate {
		if sysexec.IsElevated() {
			fmt.Fprintln(os.Stderr, "already running elevated")
			os.Exit(0)
		}
		if err := sysexec.RelaunchElevated(argsWithout(os.Args[1:], "elevate")); err != nil {
			fmt.Fprintf(os.Stderr, "cloud-optimizer: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// ---------------------------------------------------------------
	// Load configuration (required for remaining modes)
	// ---------------------------------------------------------------

	path := *configPath
	if path == "" {
		path = config.DefaultPath()
	}

	if *writeConfig {
		wrote, err := initConfig(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cloud-optimizer: %v\n", err)
			os.Exit(1)
		}
		if wrote {
			fmt.Printf("Wrote default configuration to %s\n", path)
		} else {
			fmt.Printf("%s already exists, leaving it unchanged\n", path)
		}
		os.Exit(0)
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config %s: %v\n", path, err)
		os.Exit(1)
	}

	oneShot := *runStatus || *listActive || *listDisabled || *disableName != "" ||
		*restoreName != "" || *listTweaks || *tweakID != "" || *createTests ||
		*removeTests || *clearCache
	tuiMode := *runTUI || !oneShot

	logger, logCloser, err := newLogger(cfg.Log, *verbose, tuiMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cloud-optimizer: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()

	cacheDir := cfg.Cache.Dir
	if cacheDir == "" {
		cacheDir, _ = cache.DefaultDir()
	}
	store, err := cache.NewStore(cacheDir, logger)
	if err != nil {
		logger.Warn("cache unavailable, history will not persist", "dir", cacheDir, "error", err)
	}

	if *clearCache {
		if store == nil {
			fmt.Fprintln(os.Stderr, "cache directory unavailable")
			os.Exit(1)
		}
		if err := store.Clear(); err != nil {
			fmt.Fprintf(os.Stderr, "clear cache: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Cleared %s\n", store.Dir())
		os.Exit(0)
	}

	elevated := sysexec.IsElevated()
	reg := winreg.New()
	runner := sysexec.NewExecRunner(logger)

	inventory := startup.New(startup.Options{
		Registry:       reg,
		SideStoreDir:   cfg.Startup.SideStoreDir,
		DisabledSubkey: cfg.Startup.DisabledSubkey,
		Extensions:     cfg.Startup.Extensions,
		IsElevated:     sysexec.IsElevated,
		Logger:         logger.With("component", "startup"),
	})
	catalog := tweaks.New(tweaks.Options{
		Runner:      runner,
		Registry:    reg,
		IsElevated:  sysexec.IsElevated,
		TempFolders: cfg.Tweaks.TempFolders,
		Services:    cfg.Tweaks.Services,
		BundledApps: cfg.Tweaks.BundledApps,
		Store:       store,
		Logger:      logger.With("component", "tweaks"),
	})
	sampler := sysmetrics.NewSampler(sysmetrics.Config{
		Interval:    cfg.PollInterval(),
		CPUWindow:   cfg.CPUWindow(),
		HistorySize: cfg.Monitor.HistorySize,
		GPUTool:     cfg.Monitor.GPUTool,
	}, store, logger.With("component", "sysmetrics"))

	// ---------------------------------------------------------------
	// Context with signal handling
	// ---------------------------------------------------------------

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	if !tuiMode {
		color.Apply(os.Stdout)
	}

	width := *termWidthFlag
	if width <= 0 {
		width = defaultTermWidth
		if w, _, err := term.GetSize(os.Stdout.Fd()); err == nil && w > 0 {
			width = w
		}
	}

	// ---------------------------------------------------------------
	// Startup inventory commands
	// ---------------------------------------------------------------

	if *listActive {
		entries, err := filterBySource(inventory.ListActive(ctx), *listSource)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cloud-optimizer: %v\n", err)
			os.Exit(1)
		}
		if err := writeEntries(os.Stdout, entries, width, *asJSON); err != nil {
			fmt.Fprintf(os.Stderr, "cloud-optimizer: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if *listDisabled {
		if err := writeDisabled(os.Stdout, inventory.ListDisabled(ctx), width, *asJSON); err != nil {
			fmt.Fprintf(os.Stderr, "cloud-optimizer: %v\n", err)
			os.Exit(1)
		}
		if !*asJSON {
			fmt.Printf("\nDisabled files are kept in %s\n", inventory.SideStoreDir())
		}
		os.Exit(0)
	}

	if *disableName != "" {
		e, err := disableByName(ctx, inventory, *disableName)
		if err != nil {
			fmt.Fprintf(os.Stderr, "disable failed: %s\n", errorHint(err))
			os.Exit(1)
		}
		fmt.Printf("Disabled %s (%s)\n", e.Name, e.Source)
		os.Exit(0)
	}

	if *restoreName != "" {
		d, err := restoreByName(ctx, inventory, *restoreName)
		if err != nil {
			fmt.Fprintf(os.Stderr, "restore failed: %s\n", errorHint(err))
			os.Exit(1)
		}
		fmt.Printf("Restored %s to %s\n", d.EntryName(), d.Origin())
		os.Exit(0)
	}

	if *createTests || *removeTests {
		var done map[winreg.Hive]bool
		verb := "Created"
		if *createTests {
			done = inventory.CreateTestEntries(ctx)
		} else {
			verb = "Removed"
			done = inventory.RemoveTestEntries(ctx)
		}
		for _, hive := range []winreg.Hive{winreg.CurrentUser, winreg.LocalMachine} {
			state := verb
			switch {
			case done[hive]:
			case hive == winreg.LocalMachine && !elevated:
				state = "Skipped (" + elevateHint + ")"
			case *removeTests:
				state = "Not present"
			default:
				state = "Failed"
			}
			fmt.Printf("%s: %s\n", hive, state)
		}
		if *createTests && !done[winreg.CurrentUser] {
			os.Exit(1)
		}
		os.Exit(0)
	}

	// ---------------------------------------------------------------
	// Tweak commands
	// ---------------------------------------------------------------

	if *listTweaks {
		if err := writeTweaks(os.Stdout, catalog, time.Now(), *asJSON); err != nil {
			fmt.Fprintf(os.Stderr, "cloud-optimizer: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if *tweakID != "" {
		start := time.Now()
		res, err := catalog.Apply(ctx, *tweakID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "tweak %s failed: %s\n", *tweakID, errorHint(err))
			os.Exit(1)
		}
		fmt.Printf("%s (%s)\n", res.Message, format.FormatDuration(time.Since(start)))
		os.Exit(0)
	}

	// ---------------------------------------------------------------
	// Status mode
	// ---------------------------------------------------------------

	if *runStatus {
		data, warnings, err := sampleStatus(ctx, sampler, statusSettle, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sample failed: %v\n", err)
			os.Exit(1)
		}
		if err := sampler.Flush(); err != nil {
			logger.Warn("failed to save sysmetrics history", "error", err)
		}
		if err := writeStatus(os.Stdout, data.Snapshot, warnings, width, *asJSON); err != nil {
			fmt.Fprintf(os.Stderr, "cloud-optimizer: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// ---------------------------------------------------------------
	// TUI mode
	// ---------------------------------------------------------------

	defer func() {
		if r := recover(); r != nil {
			// Attempt to restore terminal from alt-screen before printing error.
			fmt.Print("\x1b[?1049l\x1b[?25h")
			fmt.Fprintf(os.Stderr, "cloud-optimizer: TUI panic: %v\n", r)
			os.Exit(1)
		}
	}()

	if err := runTUIProgram(ctx, cfg, tuiDeps{
		inventory: inventory,
		catalog:   catalog,
		sampler:   sampler,
		elevated:  elevated,
		logger:    logger,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
		logCloser.Close()
		os.Exit(1)
	}
}
