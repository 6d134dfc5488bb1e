// Package invoke runs the external Codex CLI under a wall-clock timeout with
// graceful-then-forced termination, and classifies the outcome.
package invoke

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"syscall"
	"time"

	"github.com/mattjoyce/codex-bridge/internal/log"
)

const (
	// maxStderrBytes caps the amount of stderr captured from an invocation.
	maxStderrBytes = 64 * 1024

	// DefaultGracePeriod is the time waited after SIGTERM before SIGKILL.
	DefaultGracePeriod = 5 * time.Second
)

// InstallHint is surfaced when the Codex binary cannot be found.
const InstallHint = "codex command not found. Please ensure OpenAI Codex CLI is installed: npm install -g @openai/codex"

// Outcome classifies how an invocation terminated.
type Outcome string

const (
	OutcomeSuccess      Outcome = "success"
	OutcomeFailed       Outcome = "failed"
	OutcomeTimedOut     Outcome = "timed_out"
	OutcomeToolNotFound Outcome = "tool_not_found"
)

// Request describes a single delegated invocation. WorkingDirectory must
// already be validated by the caller (absolute, existing, outside the
// denylist); the invoker trusts it.
type Request struct {
	Prompt           string
	WorkingDirectory string
	ExecutionMode    string
	SandboxMode      string
	AllowWrite       bool
	Timeout          time.Duration
}

// Result captures the terminal state of an invocation. Exactly one of the
// Outcome values applies; Stdout and Stderr hold whatever was captured
// before termination.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Outcome  Outcome
	Message  string
}

// Invoker launches Codex CLI processes. One Invoker serves the whole process
// and is safe for concurrent use; each call runs its own subprocess.
type Invoker struct {
	binary      string
	gracePeriod time.Duration
	logger      *slog.Logger
}

// New creates an Invoker for the given binary. gracePeriod <= 0 falls back
// to DefaultGracePeriod.
func New(binary string, gracePeriod time.Duration) *Invoker {
	if gracePeriod <= 0 {
		gracePeriod = DefaultGracePeriod
	}
	return &Invoker{
		binary:      binary,
		gracePeriod: gracePeriod,
		logger:      log.WithComponent("invoke"),
	}
}

// BuildArgs constructs the argument vector for a request. The layout is
// positional: the exec sub-command, the working directory, policy flags,
// then the mandatory end-of-flags delimiter and the raw prompt. The
// delimiter is a security contract: a prompt starting with a dash must
// reach Codex as positional text, never be parsed as a flag.
func (v *Invoker) BuildArgs(req Request) []string {
	args := []string{"exec", "-C", req.WorkingDirectory}

	// Strip all filesystem-mutation capability when writes are not allowed,
	// regardless of the requested sandbox mode.
	if !req.AllowWrite {
		args = append(args, "-c", "sandbox_permissions=[]")
	}

	if req.ExecutionMode == "on-failure" && req.SandboxMode == "workspace-write" && req.AllowWrite {
		// Convenience flag covering both mode axes.
		args = append(args, "--full-auto")
	} else {
		args = append(args, "-s", req.SandboxMode)
	}

	args = append(args, "--", req.Prompt)
	return args
}

// Invoke runs Codex with the arguments built from req, bounded by
// req.Timeout. On timeout (or ctx cancellation) the process is sent SIGTERM,
// given a grace period to exit, then SIGKILLed; the process is always reaped
// before Invoke returns, on every path.
func (v *Invoker) Invoke(ctx context.Context, req Request) Result {
	args := v.BuildArgs(req)

	// Termination is managed manually below, so plain Command rather than
	// CommandContext.
	cmd := exec.Command(v.binary, args...)
	cmd.Dir = req.WorkingDirectory // belt-and-suspenders alongside -C

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	v.logger.Debug("invoking codex", "binary", v.binary, "dir", req.WorkingDirectory, "timeout", req.Timeout)

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return Result{
				Outcome: OutcomeToolNotFound,
				Message: InstallHint,
			}
		}
		return Result{
			Outcome: OutcomeFailed,
			Message: fmt.Sprintf("failed to start codex: %v", err),
		}
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
	}()

	timeoutTimer := time.NewTimer(req.Timeout)
	defer timeoutTimer.Stop()

	select {
	case <-timeoutTimer.C:
		v.terminate(cmd, waitErr)
		return Result{
			Stdout:  stdout.String(),
			Stderr:  truncateStderr(stderr.String()),
			Outcome: OutcomeTimedOut,
			Message: fmt.Sprintf("Codex CLI execution timed out (exceeded %d seconds)", int(req.Timeout.Seconds())),
		}

	case <-ctx.Done():
		v.terminate(cmd, waitErr)
		return Result{
			Stdout:  stdout.String(),
			Stderr:  truncateStderr(stderr.String()),
			Outcome: OutcomeFailed,
			Message: fmt.Sprintf("invocation cancelled: %v", ctx.Err()),
		}

	case err := <-waitErr:
		stderrStr := truncateStderr(stderr.String())

		if err != nil {
			exitErr, ok := err.(*exec.ExitError)
			if !ok {
				return Result{
					Stdout:  stdout.String(),
					Stderr:  stderrStr,
					Outcome: OutcomeFailed,
					Message: fmt.Sprintf("wait for codex: %v", err),
				}
			}

			message := stderrMessage(stderrStr)
			v.logger.Warn("codex exited with non-zero status", "exit_code", exitErr.ExitCode())
			return Result{
				Stdout:   stdout.String(),
				Stderr:   stderrStr,
				ExitCode: exitErr.ExitCode(),
				Outcome:  OutcomeFailed,
				Message:  fmt.Sprintf("Codex CLI execution failed (exit code: %d): %s", exitErr.ExitCode(), message),
			}
		}

		return Result{
			Stdout:  stdout.String(),
			Stderr:  stderrStr,
			Outcome: OutcomeSuccess,
		}
	}
}

// terminate escalates from SIGTERM to SIGKILL and reaps the process. The
// waitErr channel is drained on every path so no zombie is left behind.
func (v *Invoker) terminate(cmd *exec.Cmd, waitErr <-chan error) {
	v.logger.Warn("codex execution timed out, sending SIGTERM")
	if cmd.Process != nil {
		if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
			v.logger.Error("failed to send SIGTERM", "error", err)
		}
	}

	grace := time.NewTimer(v.gracePeriod)
	defer grace.Stop()

	select {
	case <-waitErr:
		v.logger.Info("codex exited after SIGTERM")
	case <-grace.C:
		v.logger.Warn("codex did not exit after SIGTERM, sending SIGKILL")
		if cmd.Process != nil {
			if err := cmd.Process.Kill(); err != nil {
				v.logger.Error("failed to send SIGKILL", "error", err)
			}
		}
		<-waitErr // wait for process to die
	}
}

// stderrMessage derives a human-readable failure message from stderr.
func stderrMessage(stderr string) string {
	trimmed := bytes.TrimSpace([]byte(stderr))
	if len(trimmed) == 0 {
		return "Unknown error"
	}
	return string(trimmed)
}

// truncateStderr truncates stderr to maxStderrBytes.
func truncateStderr(s string) string {
	if len(s) > maxStderrBytes {
		return s[:maxStderrBytes]
	}
	return s
}
