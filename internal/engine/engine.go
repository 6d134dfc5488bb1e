// Package engine decides whether and how a task is delegated to the Codex
// CLI, and validates the caller-supplied working directory before anything
// touches the filesystem or spawns a process.
package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// dangerousPaths are system directories the bridge refuses to operate in.
var dangerousPaths = []string{"/etc", "/usr/bin", "/bin", "/sbin", "/root"}

// Engine analyzes tasks and gates delegation. The v1 policy always
// delegates and passes prompts through unchanged; the methods exist so
// keyword filtering or prompt rewriting can land without touching callers.
type Engine struct{}

// New creates a delegation Engine.
func New() *Engine {
	return &Engine{}
}

// ShouldDelegate reports whether a task is suitable for delegation.
func (e *Engine) ShouldDelegate(taskDescription string) bool {
	return true
}

// PreparePrompt converts a task description into the instruction sent to
// Codex.
func (e *Engine) PreparePrompt(taskDescription string) string {
	return taskDescription
}

// ValidateWorkingDirectory checks that directory is an absolute path to an
// existing directory outside the denylist of sensitive system paths.
func (e *Engine) ValidateWorkingDirectory(directory string) error {
	if !filepath.IsAbs(directory) {
		return fmt.Errorf("working directory must be an absolute path: %s", directory)
	}

	info, err := os.Stat(directory)
	if err != nil {
		return fmt.Errorf("working directory does not exist: %s", directory)
	}
	if !info.IsDir() {
		return fmt.Errorf("working directory is not a directory: %s", directory)
	}

	normalized := filepath.Clean(directory)
	for _, dangerous := range dangerousPaths {
		if normalized == dangerous || strings.HasPrefix(normalized, dangerous+string(filepath.Separator)) {
			return fmt.Errorf("working directory is under a protected system path: %s", directory)
		}
	}

	return nil
}
