package history

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
)

func setupTestStore(t *testing.T) (*Store, *sql.DB) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "history.db")
	db, err := OpenSQLite(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return NewStore(db), db
}

func TestRecordAndRecent(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	id, err := store.Record(ctx, Entry{
		Task:             "summarize the repo",
		WorkingDirectory: "/work/app",
		ExecutionMode:    "on-failure",
		SandboxMode:      "read-only",
		OutputFormat:     "explanation",
		Outcome:          "success",
		CacheHit:         false,
		DurationMS:       1234,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if id == "" {
		t.Fatal("expected a generated id")
	}

	entries, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}

	e := entries[0]
	if e.ID != id {
		t.Errorf("id = %q, want %q", e.ID, id)
	}
	if e.Task != "summarize the repo" || e.Outcome != "success" {
		t.Errorf("entry round-trip mismatch: %+v", e)
	}
	if e.DurationMS != 1234 {
		t.Errorf("duration = %d", e.DurationMS)
	}
	if e.CacheHit {
		t.Error("cache_hit should be false")
	}
	if e.CreatedAt.IsZero() {
		t.Error("created_at was not parsed")
	}
}

func TestRecentOrderingAndLimit(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	for _, task := range []string{"first", "second", "third"} {
		if _, err := store.Record(ctx, Entry{Task: task, Outcome: "success"}); err != nil {
			t.Fatalf("record %s: %v", task, err)
		}
	}

	entries, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Task != "third" || entries[1].Task != "second" {
		t.Errorf("newest-first ordering broken: %q, %q", entries[0].Task, entries[1].Task)
	}
}

func TestRecentDefaultLimit(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		if _, err := store.Record(ctx, Entry{Task: "t", Outcome: "success"}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	entries, err := store.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 20 {
		t.Errorf("default limit = %d entries, want 20", len(entries))
	}
}

func TestRecordRejectsEmptyFields(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	if _, err := store.Record(ctx, Entry{Outcome: "success"}); err == nil {
		t.Error("empty task should be rejected")
	}
	if _, err := store.Record(ctx, Entry{Task: "t"}); err == nil {
		t.Error("empty outcome should be rejected")
	}
}

func TestRecordTruncatesLongTask(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	long := strings.Repeat("x", 200)
	if _, err := store.Record(ctx, Entry{Task: long, Outcome: "success"}); err != nil {
		t.Fatalf("record: %v", err)
	}

	entries, err := store.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries[0].Task) != 103 || !strings.HasSuffix(entries[0].Task, "...") {
		t.Errorf("stored task = %d chars, want 100 + ellipsis", len(entries[0].Task))
	}
}

func TestOpenSQLiteCreatesParentDir(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "deeper", "history.db")
	db, err := OpenSQLite(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Close()
}

func TestOpenSQLiteRejectsEmptyPath(t *testing.T) {
	if _, err := OpenSQLite(context.Background(), ""); err == nil {
		t.Error("empty path should be rejected")
	}
}
