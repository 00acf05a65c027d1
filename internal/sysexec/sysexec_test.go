package sysexec

import (
	"context"
	"runtime"
	"testing"
)

func TestResultOK(t *testing.T) {
	if !(Result{}).OK() {
		t.Error("zero exit code should be OK")
	}
	if (Result{ExitCode: 2}).OK() {
		t.Error("exit code 2 should not be OK")
	}
}

func TestExecRunner(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses POSIX sh")
	}
	if LookPath("sh") == "" {
		t.Skip("sh not on PATH")
	}

	r := NewExecRunner(nil)

	t.Run("captures stdout", func(t *testing.T) {
		res, err := r.Run(context.Background(), "sh", "-c", "echo 42")
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if res.Stdout != "42\n" {
			t.Errorf("Stdout = %q, want %q", res.Stdout, "42\n")
		}
	})

	t.Run("non-zero exit is not an error", func(t *testing.T) {
		res, err := r.Run(context.Background(), "sh", "-c", "echo oops >&2; exit 3")
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if res.ExitCode != 3 {
			t.Errorf("ExitCode = %d, want 3", res.ExitCode)
		}
		if res.Stderr != "oops\n" {
			t.Errorf("Stderr = %q", res.Stderr)
		}
	})

	t.Run("missing binary is an error", func(t *testing.T) {
		if _, err := r.Run(context.Background(), "definitely-not-a-real-binary-xyz"); err == nil {
			t.Error("expected error for missing binary")
		}
	})
}

func TestLookPathMissing(t *testing.T) {
	if got := LookPath("definitely-not-a-real-binary-xyz"); got != "" {
		t.Errorf("LookPath = %q, want empty", got)
	}
}
