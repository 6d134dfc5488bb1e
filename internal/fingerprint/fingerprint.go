// Package fingerprint produces deterministic digests of directory contents.
//
// A fingerprint changes whenever any tracked file's content changes, or a
// tracked file is added or removed. It deliberately ignores hidden entries,
// dependency caches, and compiled artifacts so that noise like a .git update
// or a rebuilt wheel does not invalidate cached results.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

// skipDirs are directory names never descended into.
var skipDirs = map[string]bool{
	"node_modules": true,
	"__pycache__":  true,
	".git":         true,
	"vendor":       true,
	"target":       true,
	"dist":         true,
	"build":        true,
	".venv":        true,
}

// skipExtensions mark compiled or binary artifacts excluded from hashing.
var skipExtensions = map[string]bool{
	".pyc":   true,
	".so":    true,
	".exe":   true,
	".bin":   true,
	".o":     true,
	".a":     true,
	".dll":   true,
	".dylib": true,
	".class": true,
}

// Directory computes a deterministic content fingerprint of the directory
// tree rooted at dir. Two byte-identical trees always produce the same
// fingerprint; any content change to a tracked file, or the addition or
// removal of one, produces a different fingerprint.
//
// Unreadable individual files are skipped so a transient permission error
// on one file cannot poison every lookup for the directory. If the walk
// itself fails, Fallback() is returned instead: a value that is never equal
// across calls, guaranteeing a cache miss. Recomputing an expensive result
// is always preferred over serving a stale one when directory state cannot
// be established.
func Directory(dir string) string {
	var records []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == dir {
				return walkErr
			}
			// Unreadable subtree: skip it, keep fingerprinting the rest.
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		name := d.Name()
		if d.IsDir() {
			if path == dir {
				return nil
			}
			if strings.HasPrefix(name, ".") || skipDirs[name] {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}
		if strings.HasPrefix(name, ".") || skipExtensions[strings.ToLower(filepath.Ext(name))] {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			// Skip files that cannot be read.
			return nil
		}

		relPath, err := filepath.Rel(dir, path)
		if err != nil {
			return nil
		}

		sum := blake3.Sum256(content)
		records = append(records, relPath+":"+hex.EncodeToString(sum[:]))
		return nil
	})
	if err != nil {
		return Fallback()
	}

	// WalkDir visits entries in lexical order, so records are already sorted
	// by relative path.
	combined := strings.Join(records, "|")
	digest := sha256.Sum256([]byte(combined))
	return hex.EncodeToString(digest[:])
}

// Fallback returns a fingerprint substitute for directories whose state
// cannot be established. Every call yields a distinct value so that two
// failed scans moments apart can never coincidentally collide into a
// false cache hit.
func Fallback() string {
	return fmt.Sprintf("fallback:%s:%d", uuid.NewString(), time.Now().UnixNano())
}
