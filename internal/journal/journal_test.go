package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func mustOpen(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "state"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndRecent(t *testing.T) {
	store := mustOpen(t)
	ctx := context.Background()

	events := []Entry{
		{RunID: "r1", Path: "/w/epics/a.md", Kind: "Epic", Action: ActionCreated, RemoteKey: "BOOK-1"},
		{RunID: "r1", Path: "/w/tasks/b.md", Kind: "Task", Action: ActionFailed, Error: "boom"},
		{RunID: "r1", Path: "/w/epics/a.md", Kind: "Epic", Action: ActionUpdated, RemoteKey: "BOOK-1"},
	}
	for _, e := range events {
		if err := store.Record(ctx, e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	recent, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("len(Recent) = %d, want 2", len(recent))
	}
	if recent[0].Action != ActionUpdated || recent[1].Action != ActionFailed {
		t.Fatalf("unexpected order: %+v", recent)
	}
	if recent[1].Error != "boom" {
		t.Fatalf("Error = %q", recent[1].Error)
	}
	if recent[0].CreatedAt.IsZero() {
		t.Fatal("expected CreatedAt to be set")
	}

	all, err := store.Recent(ctx, 0)
	if err != nil || len(all) != 3 {
		t.Fatalf("Recent(0) = %d entries, err=%v", len(all), err)
	}
}

func TestLastForPath(t *testing.T) {
	store := mustOpen(t)
	ctx := context.Background()

	missing, err := store.LastForPath(ctx, "/w/none.md")
	if err != nil || missing != nil {
		t.Fatalf("LastForPath(missing) = %+v, %v", missing, err)
	}

	stamp := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	_ = store.Record(ctx, Entry{RunID: "r1", Path: "/w/s.md", Action: ActionCreated, RemoteKey: "BOOK-1", CreatedAt: stamp})
	_ = store.Record(ctx, Entry{RunID: "r2", Path: "/w/s.md", Action: ActionRecreated, RemoteKey: "BOOK-9", PreviousKey: "BOOK-1"})

	last, err := store.LastForPath(ctx, "/w/s.md")
	if err != nil {
		t.Fatalf("LastForPath: %v", err)
	}
	if last.Action != ActionRecreated || last.PreviousKey != "BOOK-1" || last.RemoteKey != "BOOK-9" {
		t.Fatalf("unexpected last entry: %+v", last)
	}

	history, err := store.ForPath(ctx, "/w/s.md", 0)
	if err != nil || len(history) != 2 {
		t.Fatalf("ForPath = %d entries, err=%v", len(history), err)
	}
	if !history[1].CreatedAt.Equal(stamp) {
		t.Fatalf("CreatedAt = %v, want %v", history[1].CreatedAt, stamp)
	}
}

func TestRecordValidation(t *testing.T) {
	store := mustOpen(t)
	if err := store.Record(context.Background(), Entry{Action: ActionCreated}); err == nil {
		t.Fatal("expected error for missing path")
	}
	if err := store.Record(context.Background(), Entry{Path: "/w/a.md"}); err == nil {
		t.Fatal("expected error for missing action")
	}
}

func TestReopenKeepsHistory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	store, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Record(context.Background(), Entry{Path: "/w/a.md", Action: ActionSkipped}); err != nil {
		t.Fatal(err)
	}
	_ = store.Close()

	store, err = Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()
	entries, err := store.Recent(context.Background(), 10)
	if err != nil || len(entries) != 1 {
		t.Fatalf("after reopen: %d entries, err=%v", len(entries), err)
	}
}

func TestSchemaMismatch(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	store, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatal(err)
	}
	_ = store.Close()

	if _, err := Open(dir); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
