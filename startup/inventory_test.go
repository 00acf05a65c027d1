package startup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gitlab.com/tinyland/lab/cloud-optimizer/internal/winreg"
)

type testEnv struct {
	inv      *Inventory
	reg      *winreg.Memory
	userDir  string
	common   string
	store    string
	elevated bool
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()
	env := &testEnv{
		reg:     winreg.NewMemory(),
		userDir: filepath.Join(root, "user", "Startup"),
		common:  filepath.Join(root, "common", "Startup"),
		store:   filepath.Join(root, "disabled"),
	}
	for _, dir := range []string{env.userDir, env.common} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	env.inv = New(Options{
		Registry:         env.reg,
		UserStartupDir:   env.userDir,
		CommonStartupDir: env.common,
		SideStoreDir:     env.store,
		IsElevated:       func() bool { return env.elevated },
	})
	return env
}

func (env *testEnv) writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(name), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func (env *testEnv) setRun(t *testing.T, hive winreg.Hive, v winreg.Value) {
	t.Helper()
	if err := env.reg.Set(hive, RunKey, v); err != nil {
		t.Fatal(err)
	}
}

func names(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

func disabledNames(entries []DisabledEntry) []string {
	out := make([]string, len(entries))
	for i, d := range entries {
		out[i] = d.EntryName()
	}
	return out
}

func dirNames(t *testing.T, dir string) []string {
	t.Helper()
	des, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var out []string
	for _, de := range des {
		out = append(out, de.Name())
	}
	return out
}

func TestListActive(t *testing.T) {
	env := newTestEnv(t)
	env.setRun(t, winreg.CurrentUser, winreg.StringValue("zeta", `  "C:\Program Files\Zeta\zeta.exe"  `))
	env.setRun(t, winreg.CurrentUser, winreg.StringValue("", `C:\default.exe`))
	env.setRun(t, winreg.LocalMachine, winreg.Value{Name: "Beta", Type: winreg.TypeExpandSZ, Str: `%ProgramFiles%\beta.exe`})
	env.setRun(t, winreg.LocalMachine, winreg.DWordValue("Flag", 1))
	env.writeFile(t, env.userDir, "alpha.lnk")
	env.writeFile(t, env.userDir, "notes.txt")
	env.writeFile(t, env.common, "Gamma.BAT")
	if err := os.Mkdir(filepath.Join(env.userDir, "sub.lnk"), 0o755); err != nil {
		t.Fatal(err)
	}

	got := env.inv.ListActive(context.Background())

	want := []string{"(unnamed)", "alpha", "Beta", "Flag", "Gamma", "zeta"}
	if strings.Join(names(got), ",") != strings.Join(want, ",") {
		t.Fatalf("names = %v, want %v", names(got), want)
	}

	byName := map[string]Entry{}
	for _, e := range got {
		byName[e.Name] = e
	}
	if e := byName["zeta"]; e.Exe != `C:\Program Files\Zeta\zeta.exe` || e.Source != SourceHKCURun {
		t.Errorf("zeta = %+v", e)
	}
	if e := byName["Flag"]; e.Exe != "" || e.Value != "1" || e.Source != SourceHKLMRun {
		t.Errorf("Flag = %+v", e)
	}
	if e := byName["alpha"]; e.Value != filepath.Join(env.userDir, "alpha.lnk") || e.Source != SourceStartupFolder {
		t.Errorf("alpha = %+v", e)
	}
}

func TestListActiveMissingSources(t *testing.T) {
	inv := New(Options{
		Registry:         winreg.NewMemory(),
		UserStartupDir:   filepath.Join(t.TempDir(), "missing"),
		CommonStartupDir: filepath.Join(t.TempDir(), "missing"),
		SideStoreDir:     t.TempDir(),
	})
	if got := inv.ListActive(context.Background()); len(got) != 0 {
		t.Errorf("ListActive = %v, want empty", got)
	}
	if got := inv.ListDisabled(context.Background()); len(got) != 0 {
		t.Errorf("ListDisabled = %v, want empty", got)
	}
}

func TestListActiveSortIsCaseInsensitive(t *testing.T) {
	env := newTestEnv(t)
	for _, n := range []string{"b", "A", "c"} {
		env.setRun(t, winreg.CurrentUser, winreg.StringValue(n, n+".exe"))
	}

	got := names(env.inv.ListActive(context.Background()))
	if strings.Join(got, ",") != "A,b,c" {
		t.Errorf("order = %v, want [A b c]", got)
	}
}

func TestRegistryRoundTrip(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	orig := winreg.Value{Name: "Updater", Type: winreg.TypeExpandSZ, Str: `%LOCALAPPDATA%\upd.exe /bg`}
	env.setRun(t, winreg.CurrentUser, orig)

	entry, ok := FindEntry(env.inv.ListActive(ctx), "updater")
	if !ok {
		t.Fatal("entry not listed")
	}
	if err := env.inv.Disable(ctx, entry); err != nil {
		t.Fatalf("Disable: %v", err)
	}

	if _, err := env.reg.Get(winreg.CurrentUser, RunKey, "Updater"); !errors.Is(err, winreg.ErrNotExist) {
		t.Errorf("value still in Run: %v", err)
	}
	if got := env.inv.ListActive(ctx); len(got) != 0 {
		t.Errorf("active after disable = %v", names(got))
	}

	disabled := env.inv.ListDisabled(ctx)
	if len(disabled) != 1 {
		t.Fatalf("disabled = %v", disabledNames(disabled))
	}
	d, ok := disabled[0].(DisabledRegistry)
	if !ok {
		t.Fatalf("disabled entry type %T", disabled[0])
	}
	if d.Hive != winreg.CurrentUser || d.Data != orig.Str {
		t.Errorf("disabled = %+v", d)
	}

	if err := env.inv.Restore(ctx, d); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	got, err := env.reg.Get(winreg.CurrentUser, RunKey, "Updater")
	if err != nil {
		t.Fatalf("value not restored: %v", err)
	}
	if got.Type != winreg.TypeExpandSZ || got.Str != orig.Str {
		t.Errorf("restored = %+v, want %+v", got, orig)
	}
	if left := env.inv.ListDisabled(ctx); len(left) != 0 {
		t.Errorf("disabled after restore = %v", disabledNames(left))
	}
}

func TestFolderRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		folder func(env *testEnv) string
	}{
		{"user folder", func(env *testEnv) string { return env.userDir }},
		{"common folder", func(env *testEnv) string { return env.common }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			env := newTestEnv(t)
			env.elevated = true
			folder := tt.folder(env)
			path := env.writeFile(t, folder, "Tray Helper.lnk")
			// A file in the other folder must stay put.
			other := env.userDir
			if folder == env.userDir {
				other = env.common
			}
			env.writeFile(t, other, "Unrelated.lnk")

			entry, ok := FindEntry(env.inv.ListActive(ctx), "tray helper")
			if !ok {
				t.Fatal("entry not listed")
			}
			if err := env.inv.Disable(ctx, entry); err != nil {
				t.Fatalf("Disable: %v", err)
			}
			if _, err := os.Stat(path); !os.IsNotExist(err) {
				t.Errorf("file still in Startup folder")
			}

			disabled := env.inv.ListDisabled(ctx)
			if len(disabled) != 1 {
				t.Fatalf("disabled = %v", disabledNames(disabled))
			}
			f := disabled[0].(DisabledFile)
			if f.Name != "Tray Helper" || f.BaseFolder != folder {
				t.Errorf("disabled file = %+v, want base folder %s", f, folder)
			}

			if err := env.inv.Restore(ctx, f); err != nil {
				t.Fatalf("Restore: %v", err)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("file not restored: %v", err)
			}
			if string(data) != "Tray Helper.lnk" {
				t.Errorf("content = %q", data)
			}
			restored, ok := FindEntry(env.inv.ListActive(ctx), "tray helper")
			if !ok || restored.Exe != entry.Exe || restored.Name != entry.Name {
				t.Errorf("round trip changed entry: %+v -> %+v", entry, restored)
			}
			if left := env.inv.ListDisabled(ctx); len(left) != 0 {
				t.Errorf("side-store not empty: %v", disabledNames(left))
			}
		})
	}
}

func TestListDisabledLooseFiles(t *testing.T) {
	env := newTestEnv(t)
	if err := os.MkdirAll(env.store, 0o755); err != nil {
		t.Fatal(err)
	}
	env.writeFile(t, env.store, "old.lnk")

	disabled := env.inv.ListDisabled(context.Background())
	if len(disabled) != 1 {
		t.Fatalf("disabled = %v", disabledNames(disabled))
	}
	if f := disabled[0].(DisabledFile); f.BaseFolder != env.userDir {
		t.Errorf("loose file base folder = %s, want %s", f.BaseFolder, env.userDir)
	}
}

func TestDisableVanishedEntry(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.setRun(t, winreg.CurrentUser, winreg.StringValue("Gone", `C:\gone.exe`))
	env.writeFile(t, env.userDir, "gone.lnk")

	entries := env.inv.ListActive(ctx)
	if err := env.reg.Delete(winreg.CurrentUser, RunKey, "Gone"); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(env.userDir, "gone.lnk")); err != nil {
		t.Fatal(err)
	}

	for _, e := range entries {
		if err := env.inv.Disable(ctx, e); err != nil {
			t.Errorf("Disable(%s) = %v, want nil", e.Name, err)
		}
	}
	if got := env.inv.ListDisabled(ctx); len(got) != 0 {
		t.Errorf("disabled = %v, want empty", disabledNames(got))
	}
}

func TestDisableTwiceIsIdempotent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.setRun(t, winreg.CurrentUser, winreg.StringValue("Once", `C:\once.exe`))

	entry := env.inv.ListActive(ctx)[0]
	for i := 0; i < 2; i++ {
		if err := env.inv.Disable(ctx, entry); err != nil {
			t.Fatalf("Disable #%d: %v", i+1, err)
		}
	}
	if got := env.inv.ListDisabled(ctx); len(got) != 1 {
		t.Errorf("disabled = %v, want one", disabledNames(got))
	}
}

func TestDisableFallsBackToData(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.setRun(t, winreg.CurrentUser, winreg.StringValue("Other", `C:\other.exe`))
	env.setRun(t, winreg.CurrentUser, winreg.StringValue("Renamed", `  C:\app.exe --quiet `))

	stale := Entry{Name: "Original", Value: `C:\app.exe --quiet`, Source: SourceHKCURun}
	if err := env.inv.Disable(ctx, stale); err != nil {
		t.Fatalf("Disable: %v", err)
	}

	if _, err := env.reg.Get(winreg.CurrentUser, RunKey, "Renamed"); !errors.Is(err, winreg.ErrNotExist) {
		t.Error("matched value still in Run")
	}
	if _, err := env.reg.Get(winreg.CurrentUser, RunKey, "Other"); err != nil {
		t.Error("unrelated value was moved")
	}
	if _, err := env.reg.Get(winreg.CurrentUser, env.inv.disabledKey(), "Renamed"); err != nil {
		t.Errorf("matched value not in disabled key: %v", err)
	}
}

func TestMachineHiveRequiresElevation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.setRun(t, winreg.LocalMachine, winreg.StringValue("Agent", `C:\agent.exe`))

	entry := env.inv.ListActive(ctx)[0]
	err := env.inv.Disable(ctx, entry)
	if !errors.Is(err, ErrPermission) {
		t.Fatalf("Disable = %v, want ErrPermission", err)
	}
	var pe *PermissionError
	if !errors.As(err, &pe) || pe.Hive != winreg.LocalMachine {
		t.Errorf("error = %#v, want *PermissionError for HKLM", err)
	}
	if _, err := env.reg.Get(winreg.LocalMachine, RunKey, "Agent"); err != nil {
		t.Errorf("value removed despite refusal: %v", err)
	}

	env.elevated = true
	if err := env.inv.Disable(ctx, entry); err != nil {
		t.Fatalf("elevated Disable: %v", err)
	}
	d, ok := FindDisabled(env.inv.ListDisabled(ctx), "agent")
	if !ok {
		t.Fatal("disabled entry not listed")
	}

	env.elevated = false
	if err := env.inv.Restore(ctx, d); !errors.Is(err, ErrPermission) {
		t.Fatalf("Restore = %v, want ErrPermission", err)
	}
	if _, err := env.reg.Get(winreg.LocalMachine, env.inv.disabledKey(), "Agent"); err != nil {
		t.Errorf("disabled value removed despite refusal: %v", err)
	}
}

func TestDisableWriteFailureLeavesOriginal(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.setRun(t, winreg.CurrentUser, winreg.StringValue("Keep", `C:\keep.exe`))
	entry := env.inv.ListActive(ctx)[0]

	env.reg.SetErr = errors.New("access denied")
	err := env.inv.Disable(ctx, entry)

	var oe *OperationError
	if !errors.As(err, &oe) || oe.Op != "disable" {
		t.Fatalf("Disable = %v, want *OperationError", err)
	}
	if _, err := env.reg.Get(winreg.CurrentUser, RunKey, "Keep"); err != nil {
		t.Errorf("original value lost: %v", err)
	}
}

func TestDisableNameCollision(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.writeFile(t, env.userDir, "app.lnk")
	env.writeFile(t, env.common, "app.lnk")
	env.elevated = true

	for _, e := range env.inv.ListActive(ctx) {
		if err := env.inv.Disable(ctx, e); err != nil {
			t.Fatalf("Disable: %v", err)
		}
	}
	env.writeFile(t, env.userDir, "app.lnk")
	if err := env.inv.Disable(ctx, env.inv.ListActive(ctx)[0]); err != nil {
		t.Fatalf("Disable: %v", err)
	}

	if got := strings.Join(dirNames(t, filepath.Join(env.store, "user")), ","); got != "app (1).lnk,app.lnk" {
		t.Errorf("user side-store = %s", got)
	}
	if got := strings.Join(dirNames(t, filepath.Join(env.store, "common")), ","); got != "app.lnk" {
		t.Errorf("common side-store = %s", got)
	}
}

func TestRestoreNameCollision(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.writeFile(t, env.userDir, "app.lnk")

	if err := env.inv.Disable(ctx, env.inv.ListActive(ctx)[0]); err != nil {
		t.Fatal(err)
	}
	env.writeFile(t, env.userDir, "app.lnk")

	d, ok := FindDisabled(env.inv.ListDisabled(ctx), "app")
	if !ok {
		t.Fatal("disabled entry not listed")
	}
	if err := env.inv.Restore(ctx, d); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	got := strings.Join(dirNames(t, env.userDir), ",")
	if got != "app (restored 1).lnk,app.lnk" {
		t.Errorf("startup folder = %s", got)
	}
}

func TestRestoreDefaultsBaseFolder(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	path := filepath.Join(root, "store", "tool.exe")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	inv := New(Options{Registry: winreg.NewMemory(), UserStartupDir: root, SideStoreDir: filepath.Join(root, "store")})
	if err := inv.Restore(ctx, DisabledFile{Name: "tool", Path: path}); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "tool.exe")); err != nil {
		t.Errorf("file not moved to grandparent: %v", err)
	}
}

func TestRestoreMissingIsNoop(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	items := []DisabledEntry{
		DisabledFile{Name: "ghost", Path: filepath.Join(env.store, "ghost.lnk"), BaseFolder: env.userDir},
		DisabledRegistry{Name: "ghost", Hive: winreg.CurrentUser, BaseKey: env.inv.disabledKey()},
	}
	for _, d := range items {
		if err := env.inv.Restore(ctx, d); err != nil {
			t.Errorf("Restore(%T) = %v, want nil", d, err)
		}
	}
	if got := env.inv.ListActive(ctx); len(got) != 0 {
		t.Errorf("active = %v, want empty", names(got))
	}
}

func TestUnknownSource(t *testing.T) {
	env := newTestEnv(t)
	err := env.inv.Disable(context.Background(), Entry{Name: "x", Source: Source(42)})

	var oe *OperationError
	if !errors.As(err, &oe) {
		t.Fatalf("Disable = %v, want *OperationError", err)
	}
	if err := env.inv.Restore(context.Background(), nil); err == nil {
		t.Error("Restore(nil) = nil, want error")
	}
}

func TestDisableIgnoresDirectoryAndEmptyPath(t *testing.T) {
	env := newTestEnv(t)
	dir := filepath.Join(env.userDir, "folder.lnk")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}

	for _, e := range []Entry{
		{Name: "empty", Source: SourceStartupFolder},
		{Name: "folder", Value: dir, Source: SourceStartupFolder},
	} {
		if err := env.inv.Disable(context.Background(), e); err != nil {
			t.Errorf("Disable(%s) = %v", e.Name, err)
		}
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("directory moved: %v", err)
	}
}

func TestTestEntries(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	created := env.inv.CreateTestEntries(ctx)
	if !created[winreg.CurrentUser] || created[winreg.LocalMachine] {
		t.Errorf("created = %v, want HKCU only", created)
	}

	env.elevated = true
	created = env.inv.CreateTestEntries(ctx)
	if !created[winreg.LocalMachine] {
		t.Errorf("elevated create = %v", created)
	}
	got := names(env.inv.ListActive(ctx))
	if strings.Join(got, ",") != TestEntrySystem+","+TestEntryUser {
		t.Errorf("active = %v", got)
	}

	removed := env.inv.RemoveTestEntries(ctx)
	if !removed[winreg.CurrentUser] || !removed[winreg.LocalMachine] {
		t.Errorf("removed = %v", removed)
	}
	if got := env.inv.ListActive(ctx); len(got) != 0 {
		t.Errorf("active after remove = %v", names(got))
	}

	removed = env.inv.RemoveTestEntries(ctx)
	if removed[winreg.CurrentUser] || removed[winreg.LocalMachine] {
		t.Errorf("second remove = %v, want nothing removed", removed)
	}
}

func TestFilterEntries(t *testing.T) {
	entries := []Entry{
		{Name: "OneDrive", Exe: `C:\od.exe`, Source: SourceHKCURun},
		{Name: "Agent", Exe: `C:\Vendor\agent.exe`, Source: SourceHKLMRun},
		{Name: "notes", Exe: `C:\notes.lnk`, Source: SourceStartupFolder},
		{Name: "Flag", Value: "de ad be ef", Source: SourceHKLMRun},
	}

	tests := []struct {
		query string
		want  string
	}{
		{"", "OneDrive,Agent,notes,Flag"},
		{"drive", "OneDrive"},
		{"VENDOR", "Agent"},
		{"hklm", "Agent,Flag"},
		{"ad be", "Flag"},
		{"startup folder", "notes"},
		{"zzz", ""},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := strings.Join(names(FilterEntries(entries, tt.query)), ",")
			if got != tt.want {
				t.Errorf("FilterEntries(%q) = %s, want %s", tt.query, got, tt.want)
			}
		})
	}
}

func TestParseSource(t *testing.T) {
	for _, src := range []Source{SourceHKCURun, SourceHKLMRun, SourceStartupFolder} {
		got, err := ParseSource(src.String())
		if err != nil || got != src {
			t.Errorf("ParseSource(%q) = %v, %v", src.String(), got, err)
		}
	}
	if _, err := ParseSource("nowhere"); err == nil {
		t.Error("ParseSource(nowhere) = nil error")
	}
}

func TestUniqueTarget(t *testing.T) {
	dir := t.TempDir()
	suffix := func(n int) string { return " (" + string(rune('0'+n)) + ")" }

	if got := uniqueTarget(dir, "a.lnk", suffix); got != filepath.Join(dir, "a.lnk") {
		t.Errorf("free target = %s", got)
	}
	for _, n := range []string{"a.lnk", "a (1).lnk"} {
		if err := os.WriteFile(filepath.Join(dir, n), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if got := uniqueTarget(dir, "a.lnk", suffix); got != filepath.Join(dir, "a (2).lnk") {
		t.Errorf("taken target = %s", got)
	}
}

func TestCollector(t *testing.T) {
	env := newTestEnv(t)
	env.setRun(t, winreg.CurrentUser, winreg.StringValue("one", "one.exe"))

	c := NewCollector(env.inv, 0)
	if c.Name() != "startup" || c.Interval() != DefaultRefreshInterval {
		t.Errorf("collector = %s/%v", c.Name(), c.Interval())
	}
	res, err := c.Collect(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	data := res.Data.(*Data)
	if len(data.Active) != 1 || len(data.Disabled) != 0 {
		t.Errorf("data = %+v", data)
	}
	if len(res.Warnings) != 1 {
		t.Errorf("warnings = %v, want elevation warning", res.Warnings)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Collect(ctx); err == nil {
		t.Error("Collect with cancelled context = nil error")
	}
}
