package invoke

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/mattjoyce/codex-bridge/internal/log"
)

func TestMain(m *testing.M) {
	log.Setup("ERROR") // Suppress logs in tests
	os.Exit(m.Run())
}

// writeScript creates an executable shell script standing in for the Codex
// binary. The scripts ignore the argument vector; argument construction is
// covered separately by the BuildArgs tests.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-codex")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestBuildArgsReadOnly(t *testing.T) {
	v := New("codex", 0)
	args := v.BuildArgs(Request{
		Prompt:           "explain the auth flow",
		WorkingDirectory: "/work/app",
		ExecutionMode:    "on-failure",
		SandboxMode:      "read-only",
		AllowWrite:       false,
	})

	want := []string{
		"exec", "-C", "/work/app",
		"-c", "sandbox_permissions=[]",
		"-s", "read-only",
		"--", "explain the auth flow",
	}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("args = %v, want %v", args, want)
	}
}

func TestBuildArgsFullAuto(t *testing.T) {
	v := New("codex", 0)
	args := v.BuildArgs(Request{
		Prompt:           "apply the fix",
		WorkingDirectory: "/work/app",
		ExecutionMode:    "on-failure",
		SandboxMode:      "workspace-write",
		AllowWrite:       true,
	})

	want := []string{"exec", "-C", "/work/app", "--full-auto", "--", "apply the fix"}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("args = %v, want %v", args, want)
	}
}

func TestBuildArgsExplicitSandboxWhenWritable(t *testing.T) {
	v := New("codex", 0)
	args := v.BuildArgs(Request{
		Prompt:           "task",
		WorkingDirectory: "/work/app",
		ExecutionMode:    "never",
		SandboxMode:      "workspace-write",
		AllowWrite:       true,
	})

	want := []string{"exec", "-C", "/work/app", "-s", "workspace-write", "--", "task"}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("args = %v, want %v", args, want)
	}
}

func TestBuildArgsDashPromptStaysPositional(t *testing.T) {
	v := New("codex", 0)
	args := v.BuildArgs(Request{
		Prompt:           "-rf --delete everything",
		WorkingDirectory: "/work/app",
		ExecutionMode:    "on-failure",
		SandboxMode:      "read-only",
	})

	last := args[len(args)-1]
	if last != "-rf --delete everything" {
		t.Errorf("prompt was altered: %q", last)
	}
	if args[len(args)-2] != "--" {
		t.Errorf("prompt must follow the end-of-flags delimiter, got %q", args[len(args)-2])
	}
}

func TestInvokeSuccess(t *testing.T) {
	script := writeScript(t, `echo "all done"`)
	v := New(script, time.Second)

	res := v.Invoke(context.Background(), Request{
		Prompt:           "task",
		WorkingDirectory: t.TempDir(),
		SandboxMode:      "read-only",
		Timeout:          10 * time.Second,
	})

	if res.Outcome != OutcomeSuccess {
		t.Fatalf("outcome = %s, want success (message: %s)", res.Outcome, res.Message)
	}
	if !strings.Contains(res.Stdout, "all done") {
		t.Errorf("stdout = %q", res.Stdout)
	}
}

func TestInvokeNonZeroExit(t *testing.T) {
	script := writeScript(t, `echo "boom: missing credentials" >&2; exit 3`)
	v := New(script, time.Second)

	res := v.Invoke(context.Background(), Request{
		Prompt:           "task",
		WorkingDirectory: t.TempDir(),
		SandboxMode:      "read-only",
		Timeout:          10 * time.Second,
	})

	if res.Outcome != OutcomeFailed {
		t.Fatalf("outcome = %s, want failed", res.Outcome)
	}
	if res.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", res.ExitCode)
	}
	if !strings.Contains(res.Message, "exit code: 3") {
		t.Errorf("message should name the exit code, got %q", res.Message)
	}
	if !strings.Contains(res.Message, "boom: missing credentials") {
		t.Errorf("message should carry stderr detail, got %q", res.Message)
	}
}

func TestInvokeNonZeroExitEmptyStderr(t *testing.T) {
	script := writeScript(t, `exit 1`)
	v := New(script, time.Second)

	res := v.Invoke(context.Background(), Request{
		Prompt:           "task",
		WorkingDirectory: t.TempDir(),
		SandboxMode:      "read-only",
		Timeout:          10 * time.Second,
	})

	if res.Outcome != OutcomeFailed {
		t.Fatalf("outcome = %s, want failed", res.Outcome)
	}
	if !strings.Contains(res.Message, "Unknown error") {
		t.Errorf("empty stderr should yield the placeholder message, got %q", res.Message)
	}
}

func TestInvokeToolNotFound(t *testing.T) {
	v := New("definitely-not-a-real-binary-1b9c", time.Second)

	res := v.Invoke(context.Background(), Request{
		Prompt:           "task",
		WorkingDirectory: t.TempDir(),
		SandboxMode:      "read-only",
		Timeout:          10 * time.Second,
	})

	if res.Outcome != OutcomeToolNotFound {
		t.Fatalf("outcome = %s, want tool_not_found", res.Outcome)
	}
	if res.Message != InstallHint {
		t.Errorf("message = %q, want the install hint", res.Message)
	}
}

func TestInvokeTimeout(t *testing.T) {
	// exec replaces the shell so SIGTERM lands on the sleeping process itself.
	script := writeScript(t, `exec sleep 30`)
	v := New(script, 2*time.Second)

	start := time.Now()
	res := v.Invoke(context.Background(), Request{
		Prompt:           "task",
		WorkingDirectory: t.TempDir(),
		SandboxMode:      "read-only",
		Timeout:          200 * time.Millisecond,
	})
	elapsed := time.Since(start)

	if res.Outcome != OutcomeTimedOut {
		t.Fatalf("outcome = %s, want timed_out", res.Outcome)
	}
	if !strings.Contains(res.Message, "timed out") {
		t.Errorf("message = %q", res.Message)
	}
	// SIGTERM should end the process well inside the grace period.
	if elapsed > 2*time.Second {
		t.Errorf("invocation took %v, expected prompt termination", elapsed)
	}
}

func TestInvokeTimeoutEscalatesToKill(t *testing.T) {
	// A busy loop that ignores SIGTERM forces the SIGKILL path. No child
	// processes so reaping is immediate once the shell dies.
	script := writeScript(t, "trap '' TERM\nwhile :; do :; done")
	v := New(script, 300*time.Millisecond)

	start := time.Now()
	res := v.Invoke(context.Background(), Request{
		Prompt:           "task",
		WorkingDirectory: t.TempDir(),
		SandboxMode:      "read-only",
		Timeout:          100 * time.Millisecond,
	})
	elapsed := time.Since(start)

	if res.Outcome != OutcomeTimedOut {
		t.Fatalf("outcome = %s, want timed_out", res.Outcome)
	}
	if elapsed < 350*time.Millisecond {
		t.Errorf("terminated in %v, before the grace period elapsed", elapsed)
	}
	if elapsed > 3*time.Second {
		t.Errorf("SIGKILL escalation took %v", elapsed)
	}
}

func TestInvokeContextCancellation(t *testing.T) {
	script := writeScript(t, `exec sleep 30`)
	v := New(script, 2*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	res := v.Invoke(ctx, Request{
		Prompt:           "task",
		WorkingDirectory: t.TempDir(),
		SandboxMode:      "read-only",
		Timeout:          time.Minute,
	})

	if res.Outcome != OutcomeFailed {
		t.Fatalf("outcome = %s, want failed on cancellation", res.Outcome)
	}
	if !strings.Contains(res.Message, "cancelled") {
		t.Errorf("message = %q", res.Message)
	}
	if time.Since(start) > 2*time.Second {
		t.Errorf("cancellation took %v", time.Since(start))
	}
}

func TestTruncateStderr(t *testing.T) {
	long := strings.Repeat("e", maxStderrBytes+100)
	if got := truncateStderr(long); len(got) != maxStderrBytes {
		t.Errorf("truncated length = %d, want %d", len(got), maxStderrBytes)
	}
	if got := truncateStderr("short"); got != "short" {
		t.Errorf("short stderr must pass through, got %q", got)
	}
}
