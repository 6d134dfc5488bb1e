package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Params identifies a delegated task for caching purposes. The directory
// fingerprint is combined with these fields at key-derivation time, so the
// same logical task against a modified tree maps to a different key.
type Params struct {
	TaskDescription  string
	WorkingDirectory string
	ExecutionMode    string
	SandboxMode      string
	OutputFormat     string
}

// canonicalKey is the canonical encoding hashed into a cache key. Fields are
// declared in sorted key order; encoding/json emits struct fields in
// declaration order, so identical logical inputs always serialize to
// identical bytes regardless of how the Params were assembled.
type canonicalKey struct {
	Directory    string `json:"directory"`
	ExecMode     string `json:"exec_mode"`
	FilesHash    string `json:"files_hash"`
	OutputFormat string `json:"output_format"`
	SandboxMode  string `json:"sandbox_mode"`
	Task         string `json:"task"`
}

// DeriveKey folds task parameters and a directory fingerprint into a stable
// 64-character hex identity. Identical inputs always yield the identical
// key; any single differing input yields a different key.
func DeriveKey(p Params, filesHash string) string {
	if filesHash == "" {
		filesHash = "none"
	}

	canonical, _ := json.Marshal(canonicalKey{
		Directory:    p.WorkingDirectory,
		ExecMode:     p.ExecutionMode,
		FilesHash:    filesHash,
		OutputFormat: p.OutputFormat,
		SandboxMode:  p.SandboxMode,
		Task:         p.TaskDescription,
	})

	digest := sha256.Sum256(canonical)
	return hex.EncodeToString(digest[:])
}
