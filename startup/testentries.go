package startup

import (
	"context"
	"errors"

	"gitlab.com/tinyland/lab/cloud-optimizer/internal/winreg"
)

// Names and command of the sample Run values used to try the tool safely.
const (
	TestEntryUser    = "CloudOptTest_User"
	TestEntrySystem  = "CloudOptTest_System"
	TestEntryCommand = "notepad.exe"
)

// CreateTestEntries writes a harmless Run value to HKCU and, when elevated,
// to HKLM. The result reports which hives were written.
func (inv *Inventory) CreateTestEntries(ctx context.Context) map[winreg.Hive]bool {
	return inv.forTestEntries(ctx, "create", func(hive winreg.Hive, name string) error {
		return inv.reg.Set(hive, RunKey, winreg.StringValue(name, TestEntryCommand))
	})
}

// RemoveTestEntries deletes the values written by CreateTestEntries. The
// result reports which hives had a value deleted; a value that was already
// gone reports false.
func (inv *Inventory) RemoveTestEntries(ctx context.Context) map[winreg.Hive]bool {
	return inv.forTestEntries(ctx, "remove", func(hive winreg.Hive, name string) error {
		return inv.reg.Delete(hive, RunKey, name)
	})
}

func (inv *Inventory) forTestEntries(ctx context.Context, op string, fn func(winreg.Hive, string) error) map[winreg.Hive]bool {
	done := map[winreg.Hive]bool{
		winreg.CurrentUser:  false,
		winreg.LocalMachine: false,
	}
	targets := []struct {
		hive winreg.Hive
		name string
	}{
		{winreg.CurrentUser, TestEntryUser},
		{winreg.LocalMachine, TestEntrySystem},
	}

	for _, t := range targets {
		if ctx.Err() != nil {
			break
		}
		if t.hive == winreg.LocalMachine && !inv.isElevated() {
			continue
		}
		if err := fn(t.hive, t.name); errors.Is(err, winreg.ErrNotExist) {
			inv.logger.Debug("test entry not present", "hive", t.hive.String(), "name", t.name)
			continue
		} else if err != nil {
			inv.logger.Warn("test entry "+op+" failed", "hive", t.hive.String(), "name", t.name, "error", err)
			continue
		}
		done[t.hive] = true
	}
	return done
}
