package tweaks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gitlab.com/tinyland/lab/cloud-optimizer/cache"
	"gitlab.com/tinyland/lab/cloud-optimizer/internal/sysexec"
	"gitlab.com/tinyland/lab/cloud-optimizer/internal/winreg"
	"gitlab.com/tinyland/lab/cloud-optimizer/startup"
)

// scriptedRunner records every command and answers from a table keyed by
// the joined command line. Unlisted commands succeed with empty output.
type scriptedRunner struct {
	calls   []string
	results map[string]sysexec.Result
	errs    map[string]error
}

func (r *scriptedRunner) Run(_ context.Context, name string, args ...string) (sysexec.Result, error) {
	line := strings.Join(append([]string{name}, args...), " ")
	r.calls = append(r.calls, line)
	if err := r.errs[line]; err != nil {
		return sysexec.Result{}, err
	}
	return r.results[line], nil
}

func newTestCatalog(t *testing.T, elevated bool) (*Catalog, *scriptedRunner, *winreg.Memory) {
	t.Helper()
	r := &scriptedRunner{results: map[string]sysexec.Result{}, errs: map[string]error{}}
	reg := winreg.NewMemory()
	c := New(Options{
		Runner:     r,
		Registry:   reg,
		IsElevated: func() bool { return elevated },
	})
	return c, r, reg
}

func TestListOrder(t *testing.T) {
	c, _, _ := newTestCatalog(t, false)
	var ids []string
	for _, tw := range c.List() {
		ids = append(ids, tw.ID)
	}
	want := "power-plan,clean-temp,network,services,visual-effects,bundled-apps"
	if got := strings.Join(ids, ","); got != want {
		t.Errorf("catalog = %s, want %s", got, want)
	}
}

func TestApplyUnknown(t *testing.T) {
	c, _, _ := newTestCatalog(t, true)
	if _, err := c.Apply(context.Background(), "defrag"); !errors.Is(err, ErrUnknownTweak) {
		t.Errorf("Apply(defrag) = %v, want ErrUnknownTweak", err)
	}
}

func TestAdminTweaksRequireElevation(t *testing.T) {
	for _, id := range []string{PowerPlan, Network, Services} {
		t.Run(id, func(t *testing.T) {
			c, r, _ := newTestCatalog(t, false)
			_, err := c.Apply(context.Background(), id)
			if !errors.Is(err, ErrPermission) {
				t.Fatalf("Apply = %v, want ErrPermission", err)
			}
			if len(r.calls) != 0 {
				t.Errorf("commands run before permission check: %v", r.calls)
			}
		})
	}
}

func TestPowerPlan(t *testing.T) {
	c, r, _ := newTestCatalog(t, true)
	r.results["powercfg /change standby-timeout-ac 0"] = sysexec.Result{ExitCode: 1}

	res, err := c.Apply(context.Background(), PowerPlan)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if r.calls[0] != "powercfg /setactive "+highPerformanceGUID {
		t.Errorf("first command = %q", r.calls[0])
	}
	if len(r.calls) != 5 || res.Changed != 4 {
		t.Errorf("calls = %v, changed = %d", r.calls, res.Changed)
	}
}

func TestPowerPlanActivationFailure(t *testing.T) {
	c, r, _ := newTestCatalog(t, true)
	r.results["powercfg /setactive "+highPerformanceGUID] = sysexec.Result{ExitCode: 1, Stderr: "Invalid Parameters"}

	_, err := c.Apply(context.Background(), PowerPlan)
	if err == nil || !strings.Contains(err.Error(), "Invalid Parameters") {
		t.Fatalf("Apply = %v, want activation error", err)
	}
	if len(r.calls) != 1 {
		t.Errorf("timeouts changed after failed activation: %v", r.calls)
	}
}

func TestNetwork(t *testing.T) {
	t.Run("flushdns failure tolerated", func(t *testing.T) {
		c, r, _ := newTestCatalog(t, true)
		r.results["ipconfig /flushdns"] = sysexec.Result{ExitCode: 1}
		res, err := c.Apply(context.Background(), Network)
		if err != nil || res.Changed != 3 {
			t.Errorf("Apply = %+v, %v", res, err)
		}
	})
	t.Run("netsh failure aborts", func(t *testing.T) {
		c, r, _ := newTestCatalog(t, true)
		r.results["netsh int tcp set global chimney=enabled"] = sysexec.Result{ExitCode: 1}
		if _, err := c.Apply(context.Background(), Network); err == nil {
			t.Fatal("Apply = nil, want error")
		}
		if len(r.calls) != 2 {
			t.Errorf("calls after failure = %v", r.calls)
		}
	})
}

func TestServices(t *testing.T) {
	c, r, _ := newTestCatalog(t, true)
	r.results["sc config SysMain start= disabled"] = sysexec.Result{ExitCode: 5, Stdout: "Access is denied."}

	res, err := c.Apply(context.Background(), Services)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.Changed != 3 || strings.Contains(res.Message, "SysMain") {
		t.Errorf("result = %+v", res)
	}

	for _, svc := range DefaultServices {
		r.results["sc config "+svc+" start= disabled"] = sysexec.Result{ExitCode: 1060}
	}
	if _, err := c.Apply(context.Background(), Services); err == nil {
		t.Error("Apply with every service failing = nil, want error")
	}
}

func TestCleanTemp(t *testing.T) {
	root := t.TempDir()
	tmp := filepath.Join(root, "tmp")
	logs := filepath.Join(root, "logs")
	for _, p := range []string{
		filepath.Join(tmp, "a.tmp"),
		filepath.Join(tmp, "nested", "b.tmp"),
		filepath.Join(logs, "c.log"),
	} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	t.Setenv("CLOUDOPT_TEST_TMP", tmp)

	c := New(Options{
		Runner:      &scriptedRunner{},
		Registry:    winreg.NewMemory(),
		IsElevated:  func() bool { return false },
		TempFolders: []string{"$CLOUDOPT_TEST_TMP", tmp, logs, filepath.Join(root, "missing")},
	})
	res, err := c.Apply(context.Background(), CleanTemp)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.Changed != 3 {
		t.Errorf("changed = %d, want 3", res.Changed)
	}
	for _, dir := range []string{tmp, logs} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatalf("folder itself removed: %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("%s not emptied: %v", dir, entries)
		}
	}
}

func TestCleanTempNothingRemoved(t *testing.T) {
	notDir := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(notDir, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	c := New(Options{
		Runner:      &scriptedRunner{},
		Registry:    winreg.NewMemory(),
		IsElevated:  func() bool { return false },
		TempFolders: []string{notDir},
	})
	if _, err := c.Apply(context.Background(), CleanTemp); err == nil {
		t.Error("Apply = nil, want error when every folder failed")
	}
}

func TestVisualEffects(t *testing.T) {
	c, _, reg := newTestCatalog(t, false)
	if _, err := c.Apply(context.Background(), VisualEffects); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	v, err := reg.Get(winreg.CurrentUser, `Software\Microsoft\Windows\CurrentVersion\Explorer\VisualEffects`, "VisualFXSetting")
	if err != nil || v.Type != winreg.TypeDWord || v.Int != 2 {
		t.Errorf("VisualFXSetting = %+v, %v", v, err)
	}
	mask, err := reg.Get(winreg.CurrentUser, `Control Panel\Desktop`, "UserPreferencesMask")
	if err != nil || mask.Type != winreg.TypeBinary || mask.String() != "90 12 03 80 10 00 00 00" {
		t.Errorf("UserPreferencesMask = %+v, %v", mask, err)
	}

	reg.SetErr = errors.New("denied")
	if _, err := c.Apply(context.Background(), VisualEffects); err == nil {
		t.Error("Apply with failing registry = nil, want error")
	}
}

func TestBundledApps(t *testing.T) {
	c, r, reg := newTestCatalog(t, true)
	for _, v := range []winreg.Value{
		winreg.StringValue("OneDrive", `"C:\Users\me\AppData\Local\Microsoft\OneDrive\OneDrive.exe" /background`),
		winreg.StringValue("com.squirrel.Teams.Teams", `C:\Users\me\AppData\Local\Microsoft\Teams\Update.exe`),
		winreg.StringValue("SecurityHealth", `C:\Windows\system32\SecurityHealthSystray.exe`),
	} {
		if err := reg.Set(winreg.CurrentUser, startup.RunKey, v); err != nil {
			t.Fatal(err)
		}
	}
	r.results["schtasks /query /fo LIST"] = sysexec.Result{Stdout: "TaskName: \\OneDrive Standalone Update Task\n"}

	res, err := c.Apply(context.Background(), BundledApps)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.Changed != 2 {
		t.Errorf("changed = %d, want 2", res.Changed)
	}
	left, _ := reg.Values(winreg.CurrentUser, startup.RunKey)
	if len(left) != 1 || left[0].Name != "SecurityHealth" {
		t.Errorf("remaining Run values = %+v", left)
	}

	var disabledTask bool
	for _, call := range r.calls {
		if call == "schtasks /change /tn *OneDrive* /disable" {
			disabledTask = true
		}
		if strings.Contains(call, "*Skype*") {
			t.Errorf("task change for app not in listing: %s", call)
		}
	}
	if !disabledTask {
		t.Errorf("OneDrive task not disabled: %v", r.calls)
	}

	if _, err := c.Apply(context.Background(), BundledApps); err == nil {
		t.Error("second Apply = nil, want nothing-found error")
	}
}

func TestHistory(t *testing.T) {
	store, err := cache.NewStore(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	c := New(Options{
		Runner:     &scriptedRunner{},
		Registry:   winreg.NewMemory(),
		IsElevated: func() bool { return false },
		Store:      store,
	})
	if h := c.History(); len(h) != 0 {
		t.Fatalf("initial history = %v", h)
	}

	if _, err := c.Apply(context.Background(), VisualEffects); err != nil {
		t.Fatal(err)
	}
	_, _ = c.Apply(context.Background(), BundledApps)

	h := c.History()
	if rec := h[VisualEffects]; !rec.OK || rec.AppliedAt.IsZero() {
		t.Errorf("visual-effects record = %+v", rec)
	}
	if rec := h[BundledApps]; rec.OK || !strings.Contains(rec.Summary, "no bundled app") {
		t.Errorf("bundled-apps record = %+v", rec)
	}
}
