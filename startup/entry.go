// Package startup lists the programs Windows launches at logon and moves
// them in and out of a side-store so they can be disabled and restored.
//
// Registry entries live in the Run key of HKCU or HKLM; disabling moves the
// value into a DisabledByCloudOptimizer subkey of the same hive. Folder
// entries live in the per-user or machine Startup folder; disabling moves
// the file into a side-store directory. In both cases the item is written to
// its new location before it is removed from the old one.
package startup

import (
	"fmt"
	"strings"

	"gitlab.com/tinyland/lab/cloud-optimizer/internal/winreg"
)

// Source identifies where an active startup entry comes from.
type Source int

const (
	SourceHKCURun Source = iota + 1
	SourceHKLMRun
	SourceStartupFolder
)

var sourceLabels = map[Source]string{
	SourceHKCURun:       "HKCU Run",
	SourceHKLMRun:       "HKLM Run",
	SourceStartupFolder: "Startup Folder",
}

// String returns the label shown in listings ("HKCU Run", "Startup Folder", ...).
func (s Source) String() string {
	if label, ok := sourceLabels[s]; ok {
		return label
	}
	return fmt.Sprintf("source(%d)", int(s))
}

// MarshalText encodes the source as its label.
func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseSource is the inverse of String; it also accepts "hkcu", "hklm" and "folder".
func ParseSource(s string) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hkcu run", "hkcu":
		return SourceHKCURun, nil
	case "hklm run", "hklm":
		return SourceHKLMRun, nil
	case "startup folder", "folder":
		return SourceStartupFolder, nil
	}
	return 0, fmt.Errorf("startup: unknown source %q", s)
}

// hive maps a registry source to its hive.
func (s Source) hive() (winreg.Hive, bool) {
	switch s {
	case SourceHKCURun:
		return winreg.CurrentUser, true
	case SourceHKLMRun:
		return winreg.LocalMachine, true
	}
	return 0, false
}

// unnamed is shown for registry values with an empty name (the default value).
const unnamed = "(unnamed)"

// Entry is one active auto-launch item as seen at listing time.
type Entry struct {
	// Name is the registry value name or the file name without extension.
	Name string `json:"name"`
	// Exe is the unquoted command line for string registry data, or the file path.
	Exe string `json:"exe"`
	// Value is the raw registry data as text, or the file path. Disable uses it
	// to find the value again when the name no longer matches.
	Value string `json:"value"`
	// Source selects which disable operation applies.
	Source Source `json:"source"`
}

func newEntry(name, exe, value string, src Source) Entry {
	if name == "" {
		name = unnamed
	}
	return Entry{Name: name, Exe: exe, Value: value, Source: src}
}

// DisabledEntry is an item sitting in a side-store. It is either a
// DisabledFile or a DisabledRegistry; no other implementations exist.
type DisabledEntry interface {
	// EntryName is the name shown in listings.
	EntryName() string
	// Origin describes where Restore will put the item back.
	Origin() string

	disabledEntry()
}

// DisabledFile is a Startup-folder file moved into the side-store directory.
type DisabledFile struct {
	Name       string `json:"name"`
	Path       string `json:"path"`
	BaseFolder string `json:"base_folder"`
}

func (d DisabledFile) EntryName() string { return d.Name }
func (d DisabledFile) Origin() string    { return d.BaseFolder }
func (DisabledFile) disabledEntry()      {}

// DisabledRegistry is a Run value moved into the disabled subkey of its hive.
type DisabledRegistry struct {
	Name    string      `json:"name"`
	Hive    winreg.Hive `json:"hive"`
	BaseKey string      `json:"base_key"`
	Data    string      `json:"data"`
}

func (d DisabledRegistry) EntryName() string { return d.Name }
func (d DisabledRegistry) Origin() string    { return d.Hive.String() + `\` + RunKey }
func (DisabledRegistry) disabledEntry()      {}
