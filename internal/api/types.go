package api

import (
	"github.com/mattjoyce/codex-bridge/internal/cache"
)

// ErrorResponse is returned on errors
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthzResponse is returned by GET /healthz.
type HealthzResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	CacheEntries  int    `json:"cache_entries"`
	CacheActive   int    `json:"cache_active"`
}

// CacheStatsResponse is returned by GET /cache/stats. Expired entries are
// swept before the snapshot is taken so the numbers reflect live state.
type CacheStatsResponse struct {
	cache.Stats
	CleanedExpiredEntries int    `json:"cleaned_expired_entries"`
	Status                string `json:"status"`
}

// CacheClearResponse is returned by POST /cache/clear.
type CacheClearResponse struct {
	Status         string `json:"status"`
	Message        string `json:"message"`
	ClearedEntries int    `json:"cleared_entries"`
}
