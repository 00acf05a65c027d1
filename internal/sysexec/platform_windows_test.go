//go:build windows

package sysexec

import (
	"reflect"
	"testing"

	"golang.org/x/sys/windows"
)

func TestCommandLineRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"plain", []string{"-list", "-json"}},
		{"spaces", []string{"-disable", "Tray Helper"}},
		{"trailing backslash", []string{"-config", `C:\cfg dir\`, "-list"}},
		{"embedded quote", []string{"-disable", `say "hi"`}},
		{"empty arg", []string{"-restore", ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// DecomposeCommandLine treats the first word as the program name.
			got, err := windows.DecomposeCommandLine("app.exe " + commandLine(tt.args))
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got[1:], tt.args) {
				t.Errorf("round trip = %q, want %q", got[1:], tt.args)
			}
		})
	}
}
