package startup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gitlab.com/tinyland/lab/cloud-optimizer/internal/winreg"
)

const (
	// RunKey is the per-hive key whose values run at logon.
	RunKey = `Software\Microsoft\Windows\CurrentVersion\Run`

	// DefaultDisabledSubkey is created under RunKey to hold disabled values.
	DefaultDisabledSubkey = "DisabledByCloudOptimizer"

	// DefaultSideStoreDir receives files moved out of the Startup folders.
	DefaultSideStoreDir = `C:\CloudOptimizerDisabled`

	// startupFolderSuffix is appended to %APPDATA% and %PROGRAMDATA%.
	startupFolderSuffix = `Microsoft\Windows\Start Menu\Programs\Startup`

	// Side-store subdirectories recording which Startup folder a file left.
	userOrigin   = "user"
	commonOrigin = "common"
)

// DefaultExtensions are the file types treated as startup items.
var DefaultExtensions = []string{".lnk", ".exe", ".bat", ".cmd", ".vbs", ".ps1", ".ini"}

// DefaultStartupDirs returns the per-user and machine Startup folders derived
// from %APPDATA% and %PROGRAMDATA%. A missing variable yields "".
func DefaultStartupDirs() (user, common string) {
	if appData := os.Getenv("APPDATA"); appData != "" {
		user = filepath.Join(appData, startupFolderSuffix)
	}
	if programData := os.Getenv("PROGRAMDATA"); programData != "" {
		common = filepath.Join(programData, startupFolderSuffix)
	}
	return user, common
}

// Options configures an Inventory. Zero fields take defaults.
type Options struct {
	// Registry is the registry to read and modify. Defaults to the live one.
	Registry winreg.Registry
	// UserStartupDir and CommonStartupDir default to DefaultStartupDirs().
	UserStartupDir   string
	CommonStartupDir string
	// SideStoreDir defaults to DefaultSideStoreDir.
	SideStoreDir string
	// DisabledSubkey defaults to DefaultDisabledSubkey.
	DisabledSubkey string
	// Extensions defaults to DefaultExtensions. Compared case-insensitively.
	Extensions []string
	// IsElevated reports whether HKLM may be modified. Defaults to "false".
	IsElevated func() bool
	// Logger receives per-source diagnostics. Nil means discard.
	Logger *slog.Logger
}

// Inventory enumerates and toggles startup items. It keeps no state between
// calls: every listing is read from the registry and filesystem again.
// Methods are not safe for concurrent use on the same items.
type Inventory struct {
	reg        winreg.Registry
	userDir    string
	commonDir  string
	sideStore  string
	subkey     string
	extensions map[string]bool
	isElevated func() bool
	logger     *slog.Logger
}

// New creates an Inventory from opts.
func New(opts Options) *Inventory {
	if opts.Registry == nil {
		opts.Registry = winreg.New()
	}
	if opts.UserStartupDir == "" && opts.CommonStartupDir == "" {
		opts.UserStartupDir, opts.CommonStartupDir = DefaultStartupDirs()
	}
	if opts.SideStoreDir == "" {
		opts.SideStoreDir = DefaultSideStoreDir
	}
	if opts.DisabledSubkey == "" {
		opts.DisabledSubkey = DefaultDisabledSubkey
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = DefaultExtensions
	}
	if opts.IsElevated == nil {
		opts.IsElevated = func() bool { return false }
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	exts := make(map[string]bool, len(opts.Extensions))
	for _, e := range opts.Extensions {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[e] = true
	}

	return &Inventory{
		reg:        opts.Registry,
		userDir:    opts.UserStartupDir,
		commonDir:  opts.CommonStartupDir,
		sideStore:  opts.SideStoreDir,
		subkey:     opts.DisabledSubkey,
		extensions: exts,
		isElevated: opts.IsElevated,
		logger:     opts.Logger,
	}
}

// SideStoreDir returns the directory disabled folder items are moved to.
func (inv *Inventory) SideStoreDir() string {
	return inv.sideStore
}

// disabledKey is the full path of the disabled subkey under each hive.
func (inv *Inventory) disabledKey() string {
	return RunKey + `\` + inv.subkey
}

// ListActive returns every active startup entry: HKCU Run, HKLM Run, then the
// per-user and machine Startup folders, sorted case-insensitively by name.
// A source that cannot be read contributes nothing; the call never fails.
func (inv *Inventory) ListActive(ctx context.Context) []Entry {
	var entries []Entry

	for _, src := range []Source{SourceHKCURun, SourceHKLMRun} {
		if ctx.Err() != nil {
			break
		}
		entries = append(entries, inv.listRegistry(src)...)
	}
	for _, dir := range []string{inv.userDir, inv.commonDir} {
		if ctx.Err() != nil {
			break
		}
		entries = append(entries, inv.listFolder(dir)...)
	}

	sortByName(entries, func(e Entry) string { return e.Name })
	return entries
}

func (inv *Inventory) listRegistry(src Source) []Entry {
	hive, _ := src.hive()
	values, err := inv.reg.Values(hive, RunKey)
	if err != nil {
		inv.logger.Debug("startup source unavailable", "source", src.String(), "error", err)
		return nil
	}

	entries := make([]Entry, 0, len(values))
	for _, v := range values {
		var exe string
		if v.IsString() {
			exe = strings.Trim(strings.TrimSpace(v.Str), `"`)
		}
		entries = append(entries, newEntry(v.Name, exe, v.String(), src))
	}
	return entries
}

func (inv *Inventory) listFolder(dir string) []Entry {
	if dir == "" {
		return nil
	}
	des, err := os.ReadDir(dir)
	if err != nil {
		inv.logger.Debug("startup folder unavailable", "dir", dir, "error", err)
		return nil
	}

	var entries []Entry
	for _, de := range des {
		path := filepath.Join(dir, de.Name())
		if de.IsDir() || inv.inSideStore(path) {
			continue
		}
		if !inv.extensions[strings.ToLower(filepath.Ext(de.Name()))] {
			continue
		}
		entries = append(entries, newEntry(stem(de.Name()), path, path, SourceStartupFolder))
	}
	return entries
}

// inSideStore reports whether path lies inside the side-store directory.
func (inv *Inventory) inSideStore(path string) bool {
	store := strings.ToLower(filepath.Clean(inv.sideStore))
	p := strings.ToLower(filepath.Clean(path))
	return p == store || strings.HasPrefix(p, store+string(filepath.Separator))
}

// Disable moves an active entry into its side-store. An entry that no longer
// exists is treated as already disabled. Disabling an HKLM entry without
// elevation fails with ErrPermission before anything is changed.
func (inv *Inventory) Disable(ctx context.Context, e Entry) error {
	if err := ctx.Err(); err != nil {
		return opError("disable", e.Name, err)
	}

	switch e.Source {
	case SourceHKCURun, SourceHKLMRun:
		return inv.disableRegistry(e)
	case SourceStartupFolder:
		return inv.disableFile(e)
	default:
		return opError("disable", e.Name, fmt.Errorf("unknown source %v", e.Source))
	}
}

func (inv *Inventory) disableRegistry(e Entry) error {
	hive, _ := e.Source.hive()
	if hive == winreg.LocalMachine && !inv.isElevated() {
		return &PermissionError{Op: "disable", Hive: hive}
	}

	v, err := inv.reg.Get(hive, RunKey, e.Name)
	if errors.Is(err, winreg.ErrNotExist) {
		// The listing may be stale; fall back to matching the recorded data.
		v, err = inv.findByData(hive, e.Value)
	}
	if errors.Is(err, winreg.ErrNotExist) {
		inv.logger.Debug("startup entry already gone", "name", e.Name, "source", e.Source.String())
		return nil
	}
	if err != nil {
		return opError("disable", e.Name, err)
	}

	if err := inv.moveValue(hive, RunKey, inv.disabledKey(), v); err != nil {
		return opError("disable", e.Name, err)
	}
	inv.logger.Info("disabled startup entry", "name", v.Name, "hive", hive.String())
	return nil
}

// findByData returns the first Run value whose text equals data, ignoring
// surrounding whitespace. Two values with identical data are not told apart.
func (inv *Inventory) findByData(hive winreg.Hive, data string) (winreg.Value, error) {
	values, err := inv.reg.Values(hive, RunKey)
	if err != nil {
		return winreg.Value{}, err
	}
	want := strings.TrimSpace(data)
	for _, v := range values {
		if strings.TrimSpace(v.String()) == want {
			return v, nil
		}
	}
	return winreg.Value{}, winreg.ErrNotExist
}

// moveValue copies v from one key to another in the same hive, then deletes
// the original. If the delete fails the copy is removed again so the value
// stays in exactly one place.
func (inv *Inventory) moveValue(hive winreg.Hive, from, to string, v winreg.Value) error {
	if err := inv.reg.Set(hive, to, v); err != nil {
		return fmt.Errorf("write %s\\%s: %w", hive, to, err)
	}
	err := inv.reg.Delete(hive, from, v.Name)
	if err == nil || errors.Is(err, winreg.ErrNotExist) {
		return nil
	}
	if rbErr := inv.reg.Delete(hive, to, v.Name); rbErr != nil && !errors.Is(rbErr, winreg.ErrNotExist) {
		inv.logger.Warn("rollback of registry copy failed", "name", v.Name, "key", to, "error", rbErr)
	}
	return fmt.Errorf("delete from %s\\%s: %w", hive, from, err)
}

func (inv *Inventory) disableFile(e Entry) error {
	path := e.Value
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		inv.logger.Debug("startup file already gone", "path", path)
		return nil
	}
	if err != nil {
		return opError("disable", e.Name, err)
	}
	if info.IsDir() {
		return nil
	}

	dir := filepath.Join(inv.sideStore, inv.originOf(path))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return opError("disable", e.Name, err)
	}
	target := uniqueTarget(dir, filepath.Base(path), func(n int) string {
		return fmt.Sprintf(" (%d)", n)
	})
	if err := moveFile(path, target); err != nil {
		return opError("disable", e.Name, err)
	}
	inv.logger.Info("disabled startup file", "from", path, "to", target)
	return nil
}

// originOf returns the side-store subdirectory for a file in a Startup
// folder: commonOrigin for the machine folder, userOrigin otherwise.
func (inv *Inventory) originOf(path string) string {
	if inv.commonDir != "" && sameDir(filepath.Dir(path), inv.commonDir) {
		return commonOrigin
	}
	return userOrigin
}

// originFolder maps a side-store subdirectory back to its Startup folder,
// falling back to the other folder when the recorded one is not configured.
func (inv *Inventory) originFolder(origin string) string {
	primary, fallback := inv.userDir, inv.commonDir
	if origin == commonOrigin {
		primary, fallback = inv.commonDir, inv.userDir
	}
	if primary != "" {
		return primary
	}
	return fallback
}

// ListDisabled returns the items currently in a side-store: files in the
// side-store directory and values under each hive's disabled subkey, sorted
// case-insensitively by name. Files carry the Startup folder they came from.
// The call never fails.
func (inv *Inventory) ListDisabled(ctx context.Context) []DisabledEntry {
	var out []DisabledEntry

	for _, origin := range []string{userOrigin, commonOrigin} {
		out = append(out, inv.listSideStore(filepath.Join(inv.sideStore, origin), inv.originFolder(origin))...)
	}

	// Files placed directly in the side-store carry no origin.
	legacy := inv.userDir
	if legacy == "" || !isDir(legacy) {
		legacy = inv.commonDir
	}
	out = append(out, inv.listSideStore(inv.sideStore, legacy)...)

	for _, hive := range []winreg.Hive{winreg.CurrentUser, winreg.LocalMachine} {
		if ctx.Err() != nil {
			break
		}
		values, err := inv.reg.Values(hive, inv.disabledKey())
		if err != nil {
			inv.logger.Debug("disabled subkey unavailable", "hive", hive.String(), "error", err)
			continue
		}
		for _, v := range values {
			out = append(out, DisabledRegistry{
				Name:    v.Name,
				Hive:    hive,
				BaseKey: inv.disabledKey(),
				Data:    v.String(),
			})
		}
	}

	sortByName(out, func(d DisabledEntry) string { return d.EntryName() })
	return out
}

// Restore moves a disabled item back to where it came from. An item no
// longer in the side-store is treated as already restored. Restoring an
// HKLM value without elevation fails with ErrPermission before anything is
// changed.
func (inv *Inventory) Restore(ctx context.Context, d DisabledEntry) error {
	if d == nil {
		return opError("restore", "", errors.New("nil entry"))
	}
	if err := ctx.Err(); err != nil {
		return opError("restore", d.EntryName(), err)
	}

	switch d := d.(type) {
	case DisabledRegistry:
		return inv.restoreRegistry(d)
	case DisabledFile:
		return inv.restoreFile(d)
	default:
		return opError("restore", d.EntryName(), fmt.Errorf("unknown disabled entry %T", d))
	}
}

func (inv *Inventory) listSideStore(dir, base string) []DisabledEntry {
	des, err := os.ReadDir(dir)
	if err != nil {
		inv.logger.Debug("side-store unavailable", "dir", dir, "error", err)
		return nil
	}
	var out []DisabledEntry
	for _, de := range des {
		if de.IsDir() {
			continue
		}
		out = append(out, DisabledFile{
			Name:       stem(de.Name()),
			Path:       filepath.Join(dir, de.Name()),
			BaseFolder: base,
		})
	}
	return out
}

func (inv *Inventory) restoreRegistry(d DisabledRegistry) error {
	if d.Hive == winreg.LocalMachine && !inv.isElevated() {
		return &PermissionError{Op: "restore", Hive: d.Hive}
	}

	key := d.BaseKey
	if key == "" {
		key = inv.disabledKey()
	}
	v, err := inv.reg.Get(d.Hive, key, d.Name)
	if errors.Is(err, winreg.ErrNotExist) {
		inv.logger.Debug("disabled value already gone", "name", d.Name, "hive", d.Hive.String())
		return nil
	}
	if err != nil {
		return opError("restore", d.Name, err)
	}

	if err := inv.moveValue(d.Hive, key, RunKey, v); err != nil {
		return opError("restore", d.Name, err)
	}
	inv.logger.Info("restored startup entry", "name", d.Name, "hive", d.Hive.String())
	return nil
}

func (inv *Inventory) restoreFile(d DisabledFile) error {
	if d.Path == "" {
		return nil
	}
	if _, err := os.Stat(d.Path); errors.Is(err, fs.ErrNotExist) {
		return nil
	} else if err != nil {
		return opError("restore", d.Name, err)
	}

	base := d.BaseFolder
	if base == "" {
		base = filepath.Dir(filepath.Dir(d.Path))
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return opError("restore", d.Name, err)
	}
	target := uniqueTarget(base, filepath.Base(d.Path), func(n int) string {
		return fmt.Sprintf(" (restored %d)", n)
	})
	if err := moveFile(d.Path, target); err != nil {
		return opError("restore", d.Name, err)
	}
	inv.logger.Info("restored startup file", "from", d.Path, "to", target)
	return nil
}

// stem returns a file name without its extension.
func stem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func sameDir(a, b string) bool {
	return strings.EqualFold(filepath.Clean(a), filepath.Clean(b))
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func sortByName[T any](items []T, name func(T) string) {
	sort.SliceStable(items, func(i, j int) bool {
		return strings.ToLower(name(items[i])) < strings.ToLower(name(items[j]))
	})
}
