// Package manpage generates a roff-formatted man page for cloud-optimizer.
//
// The page is built at runtime from the registered command-line flags, the
// TUI KeyRegistry and the default configuration, so it cannot drift from
// the code.
//
// Usage:
//
//	cloud-optimizer -man > cloud-optimizer.1
package manpage

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"gitlab.com/tinyland/lab/cloud-optimizer/config"
	"gitlab.com/tinyland/lab/cloud-optimizer/display/tui"
)

// Generate produces a complete roff-formatted man(1) page. flags supplies
// the OPTIONS section; a nil set leaves it empty. The version, commit, and
// date parameters come from the build-time linker variables.
func Generate(flags *flag.FlagSet, version, commit, date string) string {
	var b strings.Builder

	writeHeader(&b, version)
	writeName(&b)
	writeSynopsis(&b)
	writeDescription(&b)
	writeOptions(&b, flags)
	writeKeybindings(&b)
	writeConfiguration(&b, config.DefaultConfig())
	writeFiles(&b)
	writeExamples(&b)
	writeExitStatus(&b)
	writeFooter(&b, version, commit, date)

	return b.String()
}

// roffEscape escapes special roff characters in a string.
func roffEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `-`, `\-`)
	if strings.HasPrefix(s, ".") || strings.HasPrefix(s, "'") {
		s = `\&` + s
	}
	return s
}

func writeHeader(b *strings.Builder, version string) {
	month := time.Now().Format("January 2006")
	fmt.Fprintf(b, ".TH CLOUD-OPTIMIZER 1 \"%s\" \"cloud-optimizer %s\" \"User Commands\"\n", month, version)
}

func writeName(b *strings.Builder) {
	b.WriteString(`.SH NAME
cloud\-optimizer \- inspect startup items, live metrics and performance tweaks on Windows
`)
}

func writeSynopsis(b *strings.Builder) {
	b.WriteString(`.SH SYNOPSIS
.B cloud\-optimizer
[\fIOPTIONS\fR]
`)
}

func writeDescription(b *strings.Builder) {
	b.WriteString(`.SH DESCRIPTION
.B cloud\-optimizer
lists the programs Windows launches at logon from the HKCU and HKLM Run keys
and the per-user and machine Startup folders. Disabling an entry moves it
into a side-store (a registry subkey or a directory) instead of deleting it,
so it can be restored later.
.PP
It also samples CPU, memory, GPU, temperature, disk and network activity,
and applies a fixed catalog of performance tweaks.
.PP
The tool operates in two modes:
.IP \(bu 2
.B TUI mode
(default): an interactive terminal UI with Monitor, Startup and Tweaks tabs.
.IP \(bu 2
.B One-shot mode
(\fB\-list\fR, \fB\-disable\fR, \fB\-tweak\fR, ...): runs one command and exits.
.PP
Changes to HKLM, the machine Startup folder and most tweaks need
administrator rights. Use \fB\-elevate\fR to relaunch through the UAC prompt.
`)
}

func writeOptions(b *strings.Builder, flags *flag.FlagSet) {
	b.WriteString(".SH OPTIONS\n")
	if flags == nil {
		return
	}

	flags.VisitAll(func(f *flag.Flag) {
		b.WriteString(".TP\n")
		name, usage := flag.UnquoteUsage(f)
		if name != "" {
			fmt.Fprintf(b, ".BR \\-%s \" \\fI%s\\fR\"\n", roffEscape(f.Name), name)
		} else {
			fmt.Fprintf(b, ".B \\-%s\n", roffEscape(f.Name))
		}
		b.WriteString(roffEscape(usage))
		if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "0" {
			fmt.Fprintf(b, " Default: %s.", roffEscape(f.DefValue))
		}
		b.WriteString("\n")
	})
}

func writeKeybindings(b *strings.Builder) {
	b.WriteString(`.SH KEYBINDINGS
The following keybindings are active in the TUI.
`)

	registry := tui.DefaultRegistry()

	scopes := []struct {
		scope tui.KeyScope
		name  string
		desc  string
	}{
		{tui.ScopeGlobal, "Global", "Active on every tab."},
		{tui.ScopeList, "Lists", "Move the cursor on the Startup and Tweaks tabs."},
		{tui.ScopeStartup, "Startup tab", "Act on the selected startup entry."},
		{tui.ScopeTweaks, "Tweaks tab", "Act on the selected tweak."},
	}

	for _, s := range scopes {
		entries := registry.ByScope(s.scope)
		if len(entries) == 0 {
			continue
		}
		fmt.Fprintf(b, ".SS %s\n%s\n", s.name, s.desc)
		for _, e := range entries {
			keysStr := strings.Join(e.Binding.Keys(), ", ")
			fmt.Fprintf(b, ".TP\n.B %s\n%s\n", roffEscape(keysStr), e.Binding.Help().Desc)
		}
	}
}

func writeConfiguration(b *strings.Builder, def *config.Config) {
	b.WriteString(`.SH CONFIGURATION
Configuration is read from a YAML file at
.B %APPDATA%\\cloud\-optimizer\\config.yaml
by default, or from the path given with \fB\-config\fR. A missing file
means every default below applies; a partial file overrides only the keys
it sets.
`)

	sections := []struct {
		name string
		keys [][2]string
	}{
		{"monitor", [][2]string{
			{"poll_interval", "Duration between metric samples. Default: " + def.Monitor.PollInterval + "."},
			{"cpu_window", "How long each CPU measurement blocks. Default: " + def.Monitor.CPUWindow + "."},
			{"gpu_tool", "GPU utilization tool looked up on PATH; empty disables GPU. Default: " + def.Monitor.GPUTool + "."},
			{"history_size", fmt.Sprintf("Samples kept for sparklines. Default: %d.", def.Monitor.HistorySize)},
		}},
		{"startup", [][2]string{
			{"side_store_dir", "Directory receiving disabled Startup-folder files. Default: " + def.Startup.SideStoreDir + "."},
			{"disabled_subkey", "Subkey of each Run key receiving disabled values. Default: " + def.Startup.DisabledSubkey + "."},
			{"extensions", "File types listed from the Startup folders. Default: " + strings.Join(def.Startup.Extensions, ", ") + "."},
			{"refresh_interval", "Duration between startup list refreshes in the TUI. Default: " + def.Startup.RefreshInterval + "."},
		}},
		{"tweaks", [][2]string{
			{"temp_folders", "Folders emptied by clean-temp. $VARS are expanded."},
			{"services", "Services stopped and disabled by the services tweak. Default: " + strings.Join(def.Tweaks.Services, ", ") + "."},
			{"bundled_apps", "Apps removed from startup by bundled-apps. Default: " + strings.Join(def.Tweaks.BundledApps, ", ") + "."},
		}},
		{"display", [][2]string{
			{"theme", "Display theme: minimal, full or monitoring. Default: " + def.Display.Theme + "."},
			{"mouse", fmt.Sprintf("Clickable tabs and rows. Default: %t.", def.Display.Mouse)},
		}},
		{"log", [][2]string{
			{"file", "Log file path; empty logs to stderr outside the TUI."},
			{"level", "One of debug, info, warn, error. Default: " + def.Log.Level + "."},
		}},
		{"cache", [][2]string{
			{"dir", "Directory for metrics history and the tweak log."},
		}},
	}

	for _, s := range sections {
		fmt.Fprintf(b, ".SS %s\n", s.name)
		for _, kv := range s.keys {
			fmt.Fprintf(b, ".TP\n.B %s\n%s\n", kv[0], roffEscape(kv[1]))
		}
	}
}

func themeNames() string {
	var names []string
	for _, p := range tui.AllThemePresets() {
		names = append(names, p.Name)
	}
	return strings.Join(names, ", ")
}

func writeFiles(b *strings.Builder) {
	b.WriteString(`.SH FILES
.TP
.I %APPDATA%\\cloud\-optimizer\\config.yaml
Configuration file (YAML).
.TP
.I %LOCALAPPDATA%\\cloud\-optimizer\\
Cache directory for metrics history, the tweak log and the log file.
.TP
.I C:\\CloudOptimizerDisabled\\
Default side-store for disabled Startup-folder files.
.TP
.I HKCU|HKLM\\Software\\Microsoft\\Windows\\CurrentVersion\\Run\\DisabledByCloudOptimizer
Default side-store for disabled Run values.
`)
}

func writeExamples(b *strings.Builder) {
	b.WriteString(`.SH EXAMPLES
List active and disabled startup entries:
.PP
.nf
cloud\-optimizer \-list
cloud\-optimizer \-list\-disabled \-json
.fi
.PP
Disable an entry and bring it back:
.PP
.nf
cloud\-optimizer \-disable OneDrive
cloud\-optimizer \-restore OneDrive
.fi
.PP
Try the tool on harmless entries first:
.PP
.nf
cloud\-optimizer \-create\-test\-entries
cloud\-optimizer \-disable CloudOptTest_User
cloud\-optimizer \-remove\-test\-entries
.fi
.PP
Apply a tweak as administrator:
.PP
.nf
cloud\-optimizer \-elevate \-tweak power\-plan
.fi
.PP
View keybindings:
.PP
.nf
cloud\-optimizer \-keys
cloud\-optimizer \-keys \-keys\-scope startup \-keys\-format json
.fi
`)
}

func writeExitStatus(b *strings.Builder) {
	b.WriteString(".SH EXIT STATUS\n")
	b.WriteString(".TP\n.B 0\n")
	b.WriteString("Success.\n")
	b.WriteString(".TP\n.B 1\n")
	b.WriteString("The command failed, including a refused change that needs administrator rights.\n")
}

func writeFooter(b *strings.Builder, version, commit, date string) {
	fmt.Fprintf(b, ".SH VERSION\n%s (%s) built %s\n", version, commit, date)
}
