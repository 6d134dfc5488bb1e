// Package watch implements the codex-bridge terminal monitor TUI.
package watch

import (
	"encoding/json"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// --- Message types ---

type healthMsg struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	CacheEntries  int    `json:"cache_entries"`
	CacheActive   int    `json:"cache_active"`
}

type statsMsg struct {
	TotalEntries          int     `json:"total_entries"`
	ExpiredEntries        int     `json:"expired_entries"`
	ActiveEntries         int     `json:"active_entries"`
	MaxEntries            int     `json:"max_entries"`
	TTLSeconds            int     `json:"ttl_seconds"`
	OldestEntryAge        float64 `json:"oldest_entry_age_seconds"`
	CleanedExpiredEntries int     `json:"cleaned_expired_entries"`
}

type historyMsg []historyRow

type historyRow struct {
	Task       string    `json:"task"`
	Outcome    string    `json:"outcome"`
	CacheHit   bool      `json:"cache_hit"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

type tickMsg time.Time

type errMsg error

// --- Commands ---

// fetchHealth queries the /healthz endpoint.
func fetchHealth(apiURL, apiKey string) tea.Msg {
	var h healthMsg
	if err := getJSON(apiURL+"/healthz", apiKey, &h); err != nil {
		return errMsg(err)
	}
	return h
}

// fetchStats queries the /cache/stats endpoint.
func fetchStats(apiURL, apiKey string) tea.Msg {
	var s statsMsg
	if err := getJSON(apiURL+"/cache/stats", apiKey, &s); err != nil {
		return errMsg(err)
	}
	return s
}

// fetchHistory queries the /history endpoint.
func fetchHistory(apiURL, apiKey string) tea.Msg {
	var rows []historyRow
	if err := getJSON(apiURL+"/history?limit=10", apiKey, &rows); err != nil {
		return errMsg(err)
	}
	return historyMsg(rows)
}

func getJSON(url, apiKey string, out any) error {
	client := &http.Client{Timeout: 2 * time.Second}
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return err
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return json.NewDecoder(resp.Body).Decode(out)
}
