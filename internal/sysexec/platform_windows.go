//go:build windows

package sysexec

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

func hideWindow(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: windows.CREATE_NO_WINDOW,
	}
}

// IsElevated reports whether the process token is elevated (UAC admin).
func IsElevated() bool {
	return windows.GetCurrentProcessToken().IsElevated()
}

// RelaunchElevated starts a new copy of the current executable through the
// "runas" verb, which shows the UAC prompt. The given arguments are passed
// through escaped. The caller should exit after a nil return.
func RelaunchElevated(args []string) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("sysexec: locate executable: %w", err)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("sysexec: working directory: %w", err)
	}

	verbPtr, _ := windows.UTF16PtrFromString("runas")
	exePtr, _ := windows.UTF16PtrFromString(exe)
	argPtr, _ := windows.UTF16PtrFromString(commandLine(args))
	cwdPtr, _ := windows.UTF16PtrFromString(cwd)

	if err := windows.ShellExecute(0, verbPtr, exePtr, argPtr, cwdPtr, windows.SW_NORMAL); err != nil {
		return fmt.Errorf("sysexec: relaunch elevated: %w", err)
	}
	return nil
}

// commandLine joins args with the escaping CommandLineToArgvW undoes, so
// quotes and trailing backslashes survive the relaunch.
func commandLine(args []string) string {
	return windows.ComposeCommandLine(args)
}
