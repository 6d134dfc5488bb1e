package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Entry is one recorded delegation.
type Entry struct {
	ID               string    `json:"id"`
	Task             string    `json:"task"`
	WorkingDirectory string    `json:"working_directory"`
	ExecutionMode    string    `json:"execution_mode"`
	SandboxMode      string    `json:"sandbox_mode"`
	OutputFormat     string    `json:"output_format"`
	Outcome          string    `json:"outcome"`
	CacheHit         bool      `json:"cache_hit"`
	DurationMS       int64     `json:"duration_ms"`
	CreatedAt        time.Time `json:"created_at"`
}

// Store records and queries the invocation log.
type Store struct {
	db *sql.DB
}

// NewStore wraps an opened database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Record inserts one entry and returns its generated ID.
func (s *Store) Record(ctx context.Context, e Entry) (string, error) {
	if e.Task == "" {
		return "", fmt.Errorf("task is empty")
	}
	if e.Outcome == "" {
		return "", fmt.Errorf("outcome is empty")
	}

	id := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339Nano)

	cacheHit := 0
	if e.CacheHit {
		cacheHit = 1
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO invocation_log(
  id, task, working_directory, execution_mode, sandbox_mode, output_format,
  outcome, cache_hit, duration_ms, created_at
)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`, id, summarize(e.Task), e.WorkingDirectory, e.ExecutionMode, e.SandboxMode,
		e.OutputFormat, e.Outcome, cacheHit, e.DurationMS, now)
	if err != nil {
		return "", fmt.Errorf("record invocation: %w", err)
	}
	return id, nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, task, working_directory, execution_mode, sandbox_mode, output_format,
       outcome, cache_hit, duration_ms, created_at
FROM invocation_log
ORDER BY created_at DESC, rowid DESC
LIMIT ?;
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query invocation log: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var cacheHit int
		var createdAt string
		if err := rows.Scan(&e.ID, &e.Task, &e.WorkingDirectory, &e.ExecutionMode,
			&e.SandboxMode, &e.OutputFormat, &e.Outcome, &cacheHit, &e.DurationMS, &createdAt); err != nil {
			return nil, fmt.Errorf("scan invocation row: %w", err)
		}
		e.CacheHit = cacheHit != 0
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			e.CreatedAt = t
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invocation rows: %w", err)
	}
	return entries, nil
}

// summarize truncates long task descriptions before storage.
func summarize(task string) string {
	const max = 100
	if len(task) > max {
		return task[:max] + "..."
	}
	return task
}
