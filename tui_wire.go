package main

import (
	"context"
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"gitlab.com/tinyland/lab/cloud-optimizer/collectors"
	"gitlab.com/tinyland/lab/cloud-optimizer/collectors/sysmetrics"
	"gitlab.com/tinyland/lab/cloud-optimizer/config"
	"gitlab.com/tinyland/lab/cloud-optimizer/display/tui"
	"gitlab.com/tinyland/lab/cloud-optimizer/startup"
	"gitlab.com/tinyland/lab/cloud-optimizer/tweaks"
)

// tuiDeps are the live components the TUI drives.
type tuiDeps struct {
	inventory *startup.Inventory
	catalog   *tweaks.Catalog
	sampler   *sysmetrics.Sampler
	elevated  bool
	logger    *slog.Logger
}

// buildTUIRegistry registers the collectors that feed the TUI: the metrics
// sampler on the poll interval and the startup lists on the refresh interval.
func buildTUIRegistry(cfg *config.Config, deps tuiDeps) *collectors.Registry {
	registry := collectors.NewRegistry()
	registry.Register(deps.sampler)
	registry.Register(startup.NewCollector(deps.inventory, cfg.RefreshInterval()))
	return registry
}

// runTUIProgram runs the Bubbletea program until the user quits or ctx is
// cancelled. Collector updates are forwarded to the program as messages.
func runTUIProgram(ctx context.Context, cfg *config.Config, deps tuiDeps) error {
	registry := buildTUIRegistry(cfg, deps)

	model := tui.NewModel(tui.Options{
		Startup:  deps.inventory,
		Tweaks:   deps.catalog,
		Theme:    cfg.Display.Theme,
		Mouse:    cfg.Display.Mouse,
		Elevated: deps.elevated,
	})
	defer model.Close()

	opts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}
	if cfg.Display.Mouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	p := tea.NewProgram(model, opts...)

	// Start collector runner that sends data updates to the TUI.
	updatesCh := make(chan collectors.Update, collectors.DefaultUpdateBufferSize)
	runner := collectors.NewRunner(registry, updatesCh, deps.logger)
	if err := runner.Start(ctx); err != nil {
		return fmt.Errorf("collector runner: %w", err)
	}

	// Bridge goroutine: collector updates become Bubbletea messages.
	go func() {
		for update := range updatesCh {
			p.Send(update)
		}
	}()

	_, err := p.Run()
	runner.Stop()
	finishCollectors(runner, registry, updatesCh, deps.sampler.Flush, deps.logger)

	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// finishCollectors closes the updates channel, which ends the bridge
// goroutine, and flushes the sampler history. Both wait for every collector
// goroutine to have returned; if one is still running after Stop timed out
// they are skipped and finishCollectors reports false.
func finishCollectors(runner *collectors.Runner, registry *collectors.Registry, updates chan collectors.Update, flush func() error, logger *slog.Logger) bool {
	select {
	case <-runner.Done():
	default:
		logger.Warn("collectors still running, skipping history flush")
		return false
	}
	close(updates)

	for _, st := range registry.AllStatus() {
		logger.Debug("collector summary", "collector", st.Name, "runs", st.RunCount,
			"errors", st.ErrorCount, "last_latency", st.LastLatency)
	}
	if err := flush(); err != nil {
		logger.Warn("failed to save sysmetrics history", "error", err)
	}
	return true
}
