package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/mattjoyce/codex-bridge/internal/bridge"
)

// handleHealthz handles GET /healthz (no auth).
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	stats := s.cache.Stats()

	s.writeJSON(w, http.StatusOK, HealthzResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		CacheEntries:  stats.TotalEntries,
		CacheActive:   stats.ActiveEntries,
	})
}

// handleDelegate handles POST /delegate. Delegation outcomes are structured
// data: a failed invocation is still a 200 with status=error in the body.
// Only malformed requests map to HTTP error codes.
func (s *Server) handleDelegate(w http.ResponseWriter, r *http.Request) {
	var req bridge.DelegateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result := s.delegator.Delegate(r.Context(), req)

	status := http.StatusOK
	switch result.ErrorType {
	case "invalid_argument", "invalid_directory":
		status = http.StatusBadRequest
	}

	s.writeJSON(w, status, result)
}

// handleCacheStats handles GET /cache/stats. Expired entries are swept
// first so the reported numbers reflect live state.
func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	cleaned := s.cache.CleanupExpired()
	stats := s.cache.Stats()

	s.writeJSON(w, http.StatusOK, CacheStatsResponse{
		Stats:                 stats,
		CleanedExpiredEntries: cleaned,
		Status:                "success",
	})
}

// handleCacheClear handles POST /cache/clear.
func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	stats := s.cache.Stats()
	s.cache.Clear()

	s.logger.Info("cache cleared", "cleared_entries", stats.TotalEntries)
	s.writeJSON(w, http.StatusOK, CacheClearResponse{
		Status:         "success",
		Message:        "Cache has been cleared",
		ClearedEntries: stats.TotalEntries,
	})
}

// handleHistory handles GET /history?limit=n.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeError(w, http.StatusNotFound, "invocation history is disabled")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			s.writeError(w, http.StatusBadRequest, "limit must be an integer between 1 and 500")
			return
		}
		limit = n
	}

	entries, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to read invocation history", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to read invocation history")
		return
	}

	s.writeJSON(w, http.StatusOK, entries)
}
