// Package bridge orchestrates delegation: it validates the request, consults
// the result cache, invokes the Codex CLI on a miss, and assembles the
// structured result envelope callers see.
package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/mattjoyce/codex-bridge/internal/cache"
	"github.com/mattjoyce/codex-bridge/internal/engine"
	"github.com/mattjoyce/codex-bridge/internal/history"
	"github.com/mattjoyce/codex-bridge/internal/invoke"
	"github.com/mattjoyce/codex-bridge/internal/log"
)

//go:generate mockgen -destination=mocks/mock_bridge.go -package=mocks github.com/mattjoyce/codex-bridge/internal/bridge Invoker,Recorder

// Invoker runs one external Codex invocation. Satisfied by *invoke.Invoker.
type Invoker interface {
	Invoke(ctx context.Context, req invoke.Request) invoke.Result
}

// Recorder persists invocation audit entries. Satisfied by *history.Store.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) (string, error)
}

var (
	validExecutionModes = map[string]bool{"untrusted": true, "on-failure": true, "on-request": true, "never": true}
	validSandboxModes   = map[string]bool{"read-only": true, "workspace-write": true, "danger-full-access": true}
	validOutputFormats  = map[string]bool{"diff": true, "full_file": true, "explanation": true}
)

// DelegateRequest carries one task to delegate. Empty mode fields take the
// documented defaults; TimeoutSeconds of zero takes the configured default.
type DelegateRequest struct {
	TaskDescription  string `json:"task_description"`
	WorkingDirectory string `json:"working_directory"`
	ExecutionMode    string `json:"execution_mode,omitempty"`
	SandboxMode      string `json:"sandbox_mode,omitempty"`
	OutputFormat     string `json:"output_format,omitempty"`
	TimeoutSeconds   int    `json:"timeout_seconds,omitempty"`
}

// OperationMode explains a sandbox downgrade to the caller.
type OperationMode struct {
	Mode        string `json:"mode"`
	Description string `json:"description"`
	Hint        string `json:"hint,omitempty"`
}

// DelegateResult is the structured outcome of a delegation. Terminal
// failures are surfaced here as data (status + error_type + message), never
// as an unstructured crash.
type DelegateResult struct {
	Status               string         `json:"status"`
	Type                 string         `json:"type,omitempty"`
	Content              string         `json:"content,omitempty"`
	Format               string         `json:"format,omitempty"`
	Message              string         `json:"message,omitempty"`
	ErrorType            string         `json:"error_type,omitempty"`
	WorkingDirectory     string         `json:"working_directory,omitempty"`
	ExecutionMode        string         `json:"execution_mode,omitempty"`
	SandboxMode          string         `json:"sandbox_mode,omitempty"`
	RequestedSandboxMode string         `json:"requested_sandbox_mode,omitempty"`
	Stderr               string         `json:"stderr,omitempty"`
	CacheHit             bool           `json:"cache_hit"`
	OperationMode        *OperationMode `json:"operation_mode,omitempty"`
}

// Bridge wires the delegation engine, result cache, invoker, and history
// log together. One Bridge serves the whole process and is safe for
// concurrent use.
type Bridge struct {
	engine         *engine.Engine
	cache          *cache.ResultCache
	invoker        Invoker
	recorder       Recorder
	allowWrite     bool
	defaultTimeout time.Duration
	logger         *slog.Logger
}

// New creates a Bridge. recorder may be nil to disable the audit log.
func New(eng *engine.Engine, rc *cache.ResultCache, inv Invoker, recorder Recorder, allowWrite bool, defaultTimeout time.Duration) *Bridge {
	return &Bridge{
		engine:         eng,
		cache:          rc,
		invoker:        inv,
		recorder:       recorder,
		allowWrite:     allowWrite,
		defaultTimeout: defaultTimeout,
		logger:         log.WithComponent("bridge"),
	}
}

// Delegate runs one task end to end. Every outcome, including failures, is
// returned as a structured result.
func (b *Bridge) Delegate(ctx context.Context, req DelegateRequest) *DelegateResult {
	started := time.Now()
	applyRequestDefaults(&req)

	if res := b.validateRequest(req); res != nil {
		return res
	}

	// 1. Validate working directory before anything touches it.
	if err := b.engine.ValidateWorkingDirectory(req.WorkingDirectory); err != nil {
		return &DelegateResult{
			Status:    "error",
			ErrorType: "invalid_directory",
			Message:   err.Error(),
		}
	}

	// 2. Enforce read-only mode when writes are not allowed.
	effectiveSandbox := req.SandboxMode
	var modeNotice *OperationMode
	if !b.allowWrite && req.SandboxMode != "read-only" {
		effectiveSandbox = "read-only"
		modeNotice = &OperationMode{
			Mode:        "planning",
			Description: "Operating in planning and analysis mode (read-only)",
			Hint:        "To apply changes, restart the server with allow_write enabled",
		}
	}

	params := cache.Params{
		TaskDescription:  req.TaskDescription,
		WorkingDirectory: req.WorkingDirectory,
		ExecutionMode:    req.ExecutionMode,
		SandboxMode:      effectiveSandbox,
		OutputFormat:     req.OutputFormat,
	}

	// 3. Check the cache; a hit short-circuits invocation entirely.
	if cached, ok := b.cache.Get(params); ok {
		var result DelegateResult
		if err := json.Unmarshal([]byte(cached), &result); err == nil {
			result.CacheHit = true
			b.record(ctx, req, effectiveSandbox, "cache_hit", true, started)
			return &result
		}
		// Unparsable cached payload: fall through to a fresh invocation.
		b.logger.Warn("discarding unparsable cache entry")
	}

	// 4. Delegation gate.
	if !b.engine.ShouldDelegate(req.TaskDescription) {
		return &DelegateResult{
			Status:  "rejected",
			Message: "The task is not suitable for delegation to Codex CLI",
		}
	}

	// 5. Invoke Codex CLI.
	prompt := b.engine.PreparePrompt(req.TaskDescription)
	timeout := time.Duration(req.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = b.defaultTimeout
	}

	invRes := b.invoker.Invoke(ctx, invoke.Request{
		Prompt:           prompt,
		WorkingDirectory: req.WorkingDirectory,
		ExecutionMode:    req.ExecutionMode,
		SandboxMode:      effectiveSandbox,
		AllowWrite:       b.allowWrite,
		Timeout:          timeout,
	})

	if invRes.Outcome != invoke.OutcomeSuccess {
		result := &DelegateResult{
			Status:               "error",
			ErrorType:            string(invRes.Outcome),
			Message:              invRes.Message,
			WorkingDirectory:     req.WorkingDirectory,
			ExecutionMode:        req.ExecutionMode,
			SandboxMode:          effectiveSandbox,
			RequestedSandboxMode: req.SandboxMode,
			Stderr:               strings.TrimSpace(invRes.Stderr),
			OperationMode:        modeNotice,
		}
		b.record(ctx, req, effectiveSandbox, string(invRes.Outcome), false, started)
		return result
	}

	// 6. Classify output and assemble the envelope.
	outputType := invoke.ClassifyOutput(invRes.Stdout, req.OutputFormat)
	result := &DelegateResult{
		Status:               "success",
		Type:                 outputType,
		Content:              strings.TrimSpace(invRes.Stdout),
		Format:               req.OutputFormat,
		WorkingDirectory:     req.WorkingDirectory,
		ExecutionMode:        req.ExecutionMode,
		SandboxMode:          effectiveSandbox,
		RequestedSandboxMode: req.SandboxMode,
		Stderr:               strings.TrimSpace(invRes.Stderr),
		OperationMode:        modeNotice,
		CacheHit:             false,
	}

	// 7. Store in cache. A cache failure degrades to "no caching for this
	// result", never a user-visible error.
	if payload, err := json.Marshal(result); err != nil {
		b.logger.Warn("failed to serialize result for caching", "error", err)
	} else {
		b.cache.Set(params, string(payload))
	}

	b.record(ctx, req, effectiveSandbox, string(invoke.OutcomeSuccess), false, started)
	return result
}

// record writes an audit entry; failures are logged and swallowed.
func (b *Bridge) record(ctx context.Context, req DelegateRequest, effectiveSandbox, outcome string, cacheHit bool, started time.Time) {
	if b.recorder == nil {
		return
	}
	_, err := b.recorder.Record(ctx, history.Entry{
		Task:             req.TaskDescription,
		WorkingDirectory: req.WorkingDirectory,
		ExecutionMode:    req.ExecutionMode,
		SandboxMode:      effectiveSandbox,
		OutputFormat:     req.OutputFormat,
		Outcome:          outcome,
		CacheHit:         cacheHit,
		DurationMS:       time.Since(started).Milliseconds(),
	})
	if err != nil {
		b.logger.Warn("failed to record invocation", "error", err)
	}
}

func applyRequestDefaults(req *DelegateRequest) {
	if req.ExecutionMode == "" {
		req.ExecutionMode = "on-failure"
	}
	if req.SandboxMode == "" {
		req.SandboxMode = "workspace-write"
	}
	if req.OutputFormat == "" {
		req.OutputFormat = "diff"
	}
}

// validateRequest rejects malformed requests before any filesystem work.
func (b *Bridge) validateRequest(req DelegateRequest) *DelegateResult {
	switch {
	case strings.TrimSpace(req.TaskDescription) == "":
		return &DelegateResult{Status: "error", ErrorType: "invalid_argument", Message: "task_description is required"}
	case req.WorkingDirectory == "":
		return &DelegateResult{Status: "error", ErrorType: "invalid_argument", Message: "working_directory is required"}
	case !validExecutionModes[req.ExecutionMode]:
		return &DelegateResult{Status: "error", ErrorType: "invalid_argument", Message: "execution_mode must be one of: untrusted, on-failure, on-request, never"}
	case !validSandboxModes[req.SandboxMode]:
		return &DelegateResult{Status: "error", ErrorType: "invalid_argument", Message: "sandbox_mode must be one of: read-only, workspace-write, danger-full-access"}
	case !validOutputFormats[req.OutputFormat]:
		return &DelegateResult{Status: "error", ErrorType: "invalid_argument", Message: "output_format must be one of: diff, full_file, explanation"}
	case req.TimeoutSeconds < 0:
		return &DelegateResult{Status: "error", ErrorType: "invalid_argument", Message: "timeout_seconds must not be negative"}
	}
	return nil
}
