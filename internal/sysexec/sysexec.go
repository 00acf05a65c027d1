// Package sysexec runs external system tools (powercfg, netsh, sc, nvidia-smi)
// without flashing a console window, and answers whether the process holds
// administrative rights.
package sysexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
)

// Result is the outcome of a command that started successfully.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// OK reports whether the command exited with status 0.
func (r Result) OK() bool {
	return r.ExitCode == 0
}

// Runner executes external commands. A non-zero exit status is reported in
// Result.ExitCode, not as an error; the error is reserved for commands that
// could not be started or were cancelled.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// ExecRunner runs commands through os/exec.
type ExecRunner struct {
	logger *slog.Logger
}

// NewExecRunner creates an ExecRunner. If logger is nil, a no-op logger is used.
func NewExecRunner(logger *slog.Logger) *ExecRunner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ExecRunner{logger: logger}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	hideWindow(cmd)

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr) && ctx.Err() == nil:
		res.ExitCode = exitErr.ExitCode()
	default:
		return res, fmt.Errorf("sysexec: run %s: %w", name, err)
	}

	r.logger.Debug("command finished",
		"cmd", name+" "+strings.Join(args, " "),
		"exit", res.ExitCode,
	)
	return res, nil
}

// LookPath returns the absolute path of an executable on PATH, or "" if absent.
func LookPath(name string) string {
	path, err := exec.LookPath(name)
	if err != nil {
		return ""
	}
	return path
}

// ErrUnsupported is returned by operations that only exist on Windows.
var ErrUnsupported = errors.New("sysexec: not supported on this platform")

var _ Runner = (*ExecRunner)(nil)
