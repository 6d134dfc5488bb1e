// Package doctor validates codex-bridge configuration and the local
// Codex CLI installation.
package doctor

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattjoyce/codex-bridge/internal/config"
	"github.com/mattjoyce/codex-bridge/internal/invoke"
)

// Result holds the outcome of a validation run.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Issue describes a single validation error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// Doctor validates configuration against the local environment.
type Doctor struct {
	cfg    *config.Config
	lookUp func(string) (string, error)
}

// New creates a Doctor from a loaded config.
func New(cfg *config.Config) *Doctor {
	return &Doctor{cfg: cfg, lookUp: exec.LookPath}
}

// Validate runs all checks and returns a result.
func (d *Doctor) Validate() *Result {
	r := &Result{Valid: true}

	d.checkCodexBinary(r)
	d.checkTimeouts(r)
	d.checkCacheBounds(r)
	d.checkHistoryPath(r)
	d.checkAPIConfig(r)
	d.warnAllowWrite(r)

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

// checkCodexBinary verifies the Codex CLI is resolvable on PATH.
func (d *Doctor) checkCodexBinary(r *Result) {
	if d.cfg.Codex.Binary == "" {
		d.addError(r, "codex", "codex.binary", "codex.binary is required")
		return
	}
	path, err := d.lookUp(d.cfg.Codex.Binary)
	if err != nil {
		d.addError(r, "codex", "codex.binary", invoke.InstallHint)
		return
	}
	info, err := os.Stat(path)
	if err == nil && info.Mode()&0o111 == 0 {
		d.addError(r, "codex", "codex.binary",
			fmt.Sprintf("%q resolved to %q but it is not executable", d.cfg.Codex.Binary, path))
	}
}

// checkTimeouts validates the timeout and grace period relationship.
func (d *Doctor) checkTimeouts(r *Result) {
	if d.cfg.Codex.DefaultTimeout <= 0 {
		d.addError(r, "codex", "codex.default_timeout", "default_timeout must be positive")
	}
	if d.cfg.Codex.GracePeriod <= 0 {
		d.addError(r, "codex", "codex.grace_period", "grace_period must be positive")
	}
	if d.cfg.Codex.DefaultTimeout > 0 && d.cfg.Codex.DefaultTimeout < 10*time.Second {
		d.addWarning(r, "codex", "codex.default_timeout",
			fmt.Sprintf("default_timeout %s is very short; delegated tasks routinely run for minutes", d.cfg.Codex.DefaultTimeout))
	}
}

// checkCacheBounds validates cache sizing.
func (d *Doctor) checkCacheBounds(r *Result) {
	if d.cfg.Cache.TTL <= 0 {
		d.addError(r, "cache", "cache.ttl", "ttl must be positive")
	}
	if d.cfg.Cache.MaxEntries <= 0 {
		d.addError(r, "cache", "cache.max_entries", "max_entries must be positive")
	}
	if d.cfg.Cache.MaxEntries > 10000 {
		d.addWarning(r, "cache", "cache.max_entries",
			"max_entries above 10000 holds full delegation outputs in memory")
	}
}

// checkHistoryPath verifies the history database directory is writable.
func (d *Doctor) checkHistoryPath(r *Result) {
	if d.cfg.History.Path == "" {
		return
	}
	dir := filepath.Dir(d.cfg.History.Path)
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			d.addWarning(r, "history", "history.path",
				fmt.Sprintf("directory %q does not exist yet (it will be created on start)", dir))
			return
		}
		d.addError(r, "history", "history.path", fmt.Sprintf("cannot stat %q: %v", dir, err))
		return
	}
	if !info.IsDir() {
		d.addError(r, "history", "history.path", fmt.Sprintf("%q is not a directory", dir))
		return
	}
	probe := filepath.Join(dir, ".doctor-probe")
	if err := os.WriteFile(probe, nil, 0o600); err != nil {
		d.addError(r, "history", "history.path", fmt.Sprintf("directory %q is not writable: %v", dir, err))
		return
	}
	os.Remove(probe)
}

// checkAPIConfig checks API server settings.
func (d *Doctor) checkAPIConfig(r *Result) {
	if !d.cfg.API.Enabled {
		return
	}
	if d.cfg.API.Listen == "" {
		d.addError(r, "api", "api.listen", "api.listen is required when API is enabled")
	}
	if d.cfg.API.Auth.APIKey == "" {
		d.addError(r, "api", "api.auth.api_key",
			"API enabled but no api_key configured (possibly unresolved environment variable)")
	}
	if d.cfg.API.Listen != "" && !strings.HasPrefix(d.cfg.API.Listen, "127.0.0.1") &&
		!strings.HasPrefix(d.cfg.API.Listen, "localhost") {
		d.addWarning(r, "api", "api.listen",
			fmt.Sprintf("listening on %q exposes delegation beyond the local host", d.cfg.API.Listen))
	}
}

// warnAllowWrite flags globally enabled workspace writes.
func (d *Doctor) warnAllowWrite(r *Result) {
	if d.cfg.Codex.AllowWrite {
		d.addWarning(r, "codex", "codex.allow_write",
			"allow_write is enabled; delegated tasks may modify files in their working directory")
	}
}

// FormatHuman returns a human-readable validation report.
func FormatHuman(r *Result) string {
	var b strings.Builder

	if r.Valid && len(r.Warnings) == 0 {
		b.WriteString("Configuration valid.\n")
		return b.String()
	}

	if r.Valid && len(r.Warnings) > 0 {
		b.WriteString("Configuration valid")
		fmt.Fprintf(&b, " (%d warning(s))\n", len(r.Warnings))
	}

	if !r.Valid {
		fmt.Fprintf(&b, "Configuration invalid (%d error(s), %d warning(s))\n", len(r.Errors), len(r.Warnings))
	}

	for _, e := range r.Errors {
		if e.Field != "" {
			fmt.Fprintf(&b, "  ERROR [%s] %s: %s\n", e.Category, e.Field, e.Message)
		} else {
			fmt.Fprintf(&b, "  ERROR [%s] %s\n", e.Category, e.Message)
		}
	}
	for _, w := range r.Warnings {
		if w.Field != "" {
			fmt.Fprintf(&b, "  WARN  [%s] %s: %s\n", w.Category, w.Field, w.Message)
		} else {
			fmt.Fprintf(&b, "  WARN  [%s] %s\n", w.Category, w.Message)
		}
	}

	return b.String()
}

// FormatJSON returns the result as indented JSON.
func FormatJSON(r *Result) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
