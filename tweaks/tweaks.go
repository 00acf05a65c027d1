package tweaks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gitlab.com/tinyland/lab/cloud-optimizer/internal/format"
	"gitlab.com/tinyland/lab/cloud-optimizer/internal/winreg"
	"gitlab.com/tinyland/lab/cloud-optimizer/startup"
)

// highPerformanceGUID is the built-in High performance power scheme.
const highPerformanceGUID = "8c5e7fda-e8bf-4a96-9a85-a6e23a8c635c"

var powerTimeouts = []string{
	"monitor-timeout-ac",
	"disk-timeout-ac",
	"standby-timeout-ac",
	"hibernate-timeout-ac",
}

// DefaultTempFolders are cleaned by the clean-temp tweak. Environment
// variables are expanded when the tweak runs.
var DefaultTempFolders = []string{
	"$TEMP",
	"$TMP",
	`C:\Windows\Temp`,
	`C:\Windows\Prefetch`,
	`C:\Windows\Logs`,
}

// DefaultServices are stopped and disabled by the services tweak.
var DefaultServices = []string{"DiagTrack", "dmwappushservice", "SysMain", "WSearch"}

// DefaultBundledApps are removed from startup by the bundled-apps tweak.
var DefaultBundledApps = []string{"OneDrive", "Skype", "Teams", "Spotify"}

var networkCommands = [][]string{
	{"netsh", "int", "tcp", "set", "global", "autotuninglevel=normal"},
	{"netsh", "int", "tcp", "set", "global", "chimney=enabled"},
	{"netsh", "int", "tcp", "set", "global", "rss=enabled"},
	{"ipconfig", "/flushdns"},
}

// registryEdit is one value written by the visual-effects tweak.
type registryEdit struct {
	path  string
	value winreg.Value
}

var visualEffectEdits = []registryEdit{
	{`Software\Microsoft\Windows\CurrentVersion\Explorer\VisualEffects`, winreg.DWordValue("VisualFXSetting", 2)},
	{`Software\Microsoft\Windows\CurrentVersion\Explorer\Advanced`, winreg.DWordValue("TaskbarAnimations", 0)},
	{`Software\Microsoft\Windows\CurrentVersion\Explorer\Advanced`, winreg.DWordValue("ListviewAlphaSelect", 0)},
	{`Software\Microsoft\Windows\CurrentVersion\Explorer\Advanced`, winreg.DWordValue("ListviewShadow", 0)},
	{`Software\Microsoft\Windows\CurrentVersion\Explorer\Advanced`, winreg.DWordValue("TaskbarSmallIcons", 1)},
	{`Control Panel\Desktop`, winreg.BinaryValue("UserPreferencesMask", []byte{0x90, 0x12, 0x03, 0x80, 0x10, 0x00, 0x00, 0x00})},
}

func (c *Catalog) run(ctx context.Context, args []string) error {
	res, err := c.runner.Run(ctx, args[0], args[1:]...)
	if err != nil {
		return err
	}
	if !res.OK() {
		msg := strings.TrimSpace(res.Stderr)
		if msg == "" {
			msg = strings.TrimSpace(res.Stdout)
		}
		return fmt.Errorf("%s exited with status %d: %s", strings.Join(args, " "), res.ExitCode, msg)
	}
	return nil
}

func (c *Catalog) applyPowerPlan(ctx context.Context) (Result, error) {
	if err := c.run(ctx, []string{"powercfg", "/setactive", highPerformanceGUID}); err != nil {
		return Result{}, fmt.Errorf("activate plan: %w", err)
	}
	changed := 1
	for _, setting := range powerTimeouts {
		if err := c.run(ctx, []string{"powercfg", "/change", setting, "0"}); err != nil {
			c.logger.Debug("power timeout not changed", "setting", setting, "error", err)
			continue
		}
		changed++
	}
	return Result{Changed: changed, Message: "High performance plan active"}, nil
}

func (c *Catalog) applyCleanTemp(ctx context.Context) (Result, error) {
	var removed int
	var errs []error

	folders := make([]string, 0, len(c.tempFolders))
	for _, folder := range c.tempFolders {
		if folder = filepath.Clean(os.ExpandEnv(folder)); folder != "." {
			folders = append(folders, folder)
		}
	}

	for _, folder := range format.UniqueFold(folders) {
		entries, err := os.ReadDir(folder)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", folder, err))
			continue
		}
		for _, e := range entries {
			if ctx.Err() != nil {
				return Result{Changed: removed}, ctx.Err()
			}
			// Files held open by running programs fail to delete and are skipped.
			if err := os.RemoveAll(filepath.Join(folder, e.Name())); err != nil {
				c.logger.Debug("temp item skipped", "path", filepath.Join(folder, e.Name()), "error", err)
				continue
			}
			removed++
		}
	}

	if removed == 0 && len(errs) > 0 {
		return Result{}, fmt.Errorf("nothing removed: %w", errors.Join(errs...))
	}
	return Result{Changed: removed, Message: fmt.Sprintf("Removed %d items", removed)}, nil
}

func (c *Catalog) applyNetwork(ctx context.Context) (Result, error) {
	changed := 0
	for _, args := range networkCommands {
		err := c.run(ctx, args)
		if err != nil && args[0] != "ipconfig" {
			return Result{Changed: changed}, err
		}
		if err == nil {
			changed++
		}
	}
	return Result{Changed: changed, Message: "TCP settings updated, DNS cache flushed"}, nil
}

func (c *Catalog) applyServices(ctx context.Context) (Result, error) {
	var disabled []string
	var errs []error
	for _, svc := range c.services {
		// A service that is already stopped makes "sc stop" fail; that is fine.
		_ = c.run(ctx, []string{"sc", "stop", svc})
		if err := c.run(ctx, []string{"sc", "config", svc, "start=", "disabled"}); err != nil {
			errs = append(errs, err)
			continue
		}
		disabled = append(disabled, svc)
	}
	if len(disabled) == 0 && len(errs) > 0 {
		return Result{}, fmt.Errorf("no service disabled: %w", errors.Join(errs...))
	}
	return Result{
		Changed: len(disabled),
		Message: "Disabled " + strings.Join(disabled, ", "),
	}, nil
}

func (c *Catalog) applyVisualEffects(context.Context) (Result, error) {
	for i, edit := range visualEffectEdits {
		if err := c.reg.Set(winreg.CurrentUser, edit.path, edit.value); err != nil {
			return Result{Changed: i}, fmt.Errorf("set %s\\%s: %w", edit.path, edit.value.Name, err)
		}
	}
	return Result{
		Changed: len(visualEffectEdits),
		Message: "Visual effects set to best performance (sign out to apply)",
	}, nil
}

func (c *Catalog) applyBundledApps(ctx context.Context) (Result, error) {
	var removed []string
	for _, hive := range []winreg.Hive{winreg.CurrentUser, winreg.LocalMachine} {
		values, err := c.reg.Values(hive, startup.RunKey)
		if err != nil {
			continue
		}
		for _, v := range values {
			if !c.isBundledApp(v.Name) && !c.isBundledApp(v.String()) {
				continue
			}
			if err := c.reg.Delete(hive, startup.RunKey, v.Name); err != nil {
				c.logger.Debug("bundled app entry not removed", "hive", hive.String(), "name", v.Name, "error", err)
				continue
			}
			removed = append(removed, v.Name)
		}
	}

	if c.isElevated() {
		c.disableScheduledTasks(ctx)
	}

	if len(removed) == 0 {
		return Result{}, errors.New("no bundled app found in startup")
	}
	return Result{Changed: len(removed), Message: "Removed " + strings.Join(removed, ", ")}, nil
}

func (c *Catalog) isBundledApp(s string) bool {
	s = strings.ToLower(s)
	for _, app := range c.bundledApps {
		if strings.Contains(s, strings.ToLower(app)) {
			return true
		}
	}
	return false
}

// disableScheduledTasks disables tasks named after a bundled app. Failures
// are logged; the tweak's outcome depends only on the Run entries.
func (c *Catalog) disableScheduledTasks(ctx context.Context) {
	res, err := c.runner.Run(ctx, "schtasks", "/query", "/fo", "LIST")
	if err != nil || !res.OK() {
		c.logger.Debug("scheduled tasks not listed", "error", err, "exit", res.ExitCode)
		return
	}
	listing := strings.ToLower(res.Stdout)
	for _, app := range c.bundledApps {
		if !strings.Contains(listing, strings.ToLower(app)) {
			continue
		}
		if err := c.run(ctx, []string{"schtasks", "/change", "/tn", "*" + app + "*", "/disable"}); err != nil {
			c.logger.Debug("scheduled task not disabled", "app", app, "error", err)
		}
	}
}
