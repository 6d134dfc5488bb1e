// Package cache provides the in-memory result cache that lets the bridge
// skip re-running identical Codex tasks against unchanged directories.
package cache

import (
	"sync"
	"time"

	"github.com/mattjoyce/codex-bridge/internal/fingerprint"
)

// entry is a single cached result. lastAccessed drives LRU eviction and is
// never earlier than createdAt.
type entry struct {
	value        string
	createdAt    time.Time
	lastAccessed time.Time
	taskSummary  string
}

// ResultCache is a bounded, TTL-aware, LRU-evicting store of delegation
// results keyed by task parameters plus a directory content fingerprint.
// It is safe for concurrent use; every check-then-act sequence (expiry on
// read, evict-then-insert) runs under a single mutex.
//
// Values are opaque to the cache. Callers serialize whatever they want.
type ResultCache struct {
	mu         sync.Mutex
	entries    map[string]*entry
	ttl        time.Duration
	maxEntries int

	// now is swappable for tests.
	now func() time.Time
	// fingerprintFn is swappable for tests.
	fingerprintFn func(dir string) string
}

// Stats is a read-only snapshot of cache state. ExpiredEntries counts
// entries whose TTL has lapsed but which have not been physically removed
// yet; expiry is lazy, so stale entries linger until touched or swept.
type Stats struct {
	TotalEntries   int     `json:"total_entries"`
	ExpiredEntries int     `json:"expired_entries"`
	ActiveEntries  int     `json:"active_entries"`
	MaxEntries     int     `json:"max_entries"`
	TTLSeconds     int     `json:"ttl_seconds"`
	OldestEntryAge float64 `json:"oldest_entry_age_seconds"`
}

// New creates a ResultCache with the given TTL and capacity. Both are
// immutable after construction. The cache is created once at startup and
// injected into every call site; there is no package-level instance.
func New(ttl time.Duration, maxEntries int) *ResultCache {
	return &ResultCache{
		entries:       make(map[string]*entry),
		ttl:           ttl,
		maxEntries:    maxEntries,
		now:           time.Now,
		fingerprintFn: fingerprint.Directory,
	}
}

// Get recomputes the directory fingerprint for p, derives the key, and
// returns the cached value if present and fresh. Expired entries are removed
// on discovery. A hit refreshes the entry's eviction priority.
func (c *ResultCache) Get(p Params) (string, bool) {
	filesHash := c.fingerprintFn(p.WorkingDirectory)
	key := DeriveKey(p, filesHash)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return "", false
	}

	now := c.now()
	if now.Sub(e.createdAt) > c.ttl {
		delete(c.entries, key)
		return "", false
	}

	e.lastAccessed = now
	return e.value, true
}

// Set stores result under the key derived from p and the directory's current
// fingerprint. When inserting a new key into a cache at capacity, the entry
// with the oldest last access is evicted first, so |entries| never exceeds
// the configured maximum after Set returns.
func (c *ResultCache) Set(p Params, result string) {
	filesHash := c.fingerprintFn(p.WorkingDirectory)
	key := DeriveKey(p, filesHash)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}

	now := c.now()
	c.entries[key] = &entry{
		value:        result,
		createdAt:    now,
		lastAccessed: now,
		taskSummary:  summarize(p.TaskDescription),
	}
}

// evictOldestLocked removes the least recently accessed entry. Ties are
// broken by key so eviction stays deterministic. Caller holds c.mu.
func (c *ResultCache) evictOldestLocked() {
	if len(c.entries) == 0 {
		return
	}

	var oldestKey string
	var oldest *entry
	for key, e := range c.entries {
		if oldest == nil ||
			e.lastAccessed.Before(oldest.lastAccessed) ||
			(e.lastAccessed.Equal(oldest.lastAccessed) && key < oldestKey) {
			oldestKey = key
			oldest = e
		}
	}

	delete(c.entries, oldestKey)
}

// Clear removes all entries unconditionally.
func (c *ResultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
}

// CleanupExpired removes every entry whose TTL has lapsed and returns the
// number removed. This is hygiene only; Get is correct without it.
func (c *ResultCache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if now.Sub(e.createdAt) > c.ttl {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Stats returns a snapshot of cache state.
func (c *ResultCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	expired := 0
	var oldest time.Time
	for _, e := range c.entries {
		if now.Sub(e.createdAt) > c.ttl {
			expired++
		}
		if oldest.IsZero() || e.createdAt.Before(oldest) {
			oldest = e.createdAt
		}
	}

	oldestAge := 0.0
	if !oldest.IsZero() {
		oldestAge = now.Sub(oldest).Seconds()
	}

	return Stats{
		TotalEntries:   len(c.entries),
		ExpiredEntries: expired,
		ActiveEntries:  len(c.entries) - expired,
		MaxEntries:     c.maxEntries,
		TTLSeconds:     int(c.ttl.Seconds()),
		OldestEntryAge: oldestAge,
	}
}

// summarize truncates long task descriptions kept alongside entries for
// debugging via stats and logs.
func summarize(task string) string {
	const max = 100
	if len(task) > max {
		return task[:max] + "..."
	}
	return task
}
