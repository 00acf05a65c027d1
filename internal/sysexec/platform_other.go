//go:build !windows

package sysexec

import (
	"os"
	"os/exec"
)

func hideWindow(*exec.Cmd) {}

// IsElevated reports whether the process runs as root.
func IsElevated() bool {
	return os.Geteuid() == 0
}

// RelaunchElevated is only available on Windows.
func RelaunchElevated([]string) error {
	return ErrUnsupported
}
