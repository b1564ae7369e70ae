// Package journal keeps a local SQLite history of sync outcomes.
//
// The journal is write-mostly: the sync engine records one event per
// processed file, and the status and history commands read it back. It is
// not consulted when deciding whether to create or update an issue; the
// markdown file's JIRA: line stays the single source of linkage.
package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

const schemaVersion = 1

// FileName is the database file created inside the state directory.
const FileName = "journal.db"

// ErrSchemaMismatch indicates the database was written by another version.
var ErrSchemaMismatch = errors.New("journal schema version mismatch")

// Action classifies a recorded sync outcome.
type Action string

const (
	ActionCreated   Action = "created"
	ActionUpdated   Action = "updated"
	ActionRecreated Action = "recreated"
	ActionSkipped   Action = "skipped"
	ActionFailed    Action = "failed"
)

// Entry is one recorded sync outcome.
type Entry struct {
	ID          int64
	RunID       string
	Path        string
	Kind        string
	Action      Action
	RemoteKey   string
	PreviousKey string // key that was replaced when an issue was recreated
	Error       string
	CreatedAt   time.Time
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

const entryColumns = "id, run_id, path, kind, action, remote_key, previous_key, error_message, created_at"

// Store is the journal database handle.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open creates or opens the journal inside dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	dbPath := filepath.Join(dir, FileName)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath, now: time.Now}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record appends an entry. CreatedAt defaults to now.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if strings.TrimSpace(e.Path) == "" {
		return errors.New("journal entry requires a path")
	}
	if e.Action == "" {
		return errors.New("journal entry requires an action")
	}
	created := e.CreatedAt
	if created.IsZero() {
		created = s.now()
	}

	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO sync_events (run_id, path, kind, action, remote_key, previous_key, error_message, created_at)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			e.RunID, e.Path, e.Kind, string(e.Action), e.RemoteKey, e.PreviousKey, e.Error,
			created.UTC().Format(time.RFC3339Nano),
		)
		return err
	})
}

// Recent returns up to limit entries, newest first. A non-positive limit
// returns everything.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM sync_events ORDER BY id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.query(ctx, query, args...)
}

// ForPath returns the history of a single file, newest first.
func (s *Store) ForPath(ctx context.Context, path string, limit int) ([]Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM sync_events WHERE path = ? ORDER BY id DESC`
	args := []any{path}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.query(ctx, query, args...)
}

// LastForPath returns the newest entry for path, or nil when none exists.
func (s *Store) LastForPath(ctx context.Context, path string) (*Entry, error) {
	entries, err := s.ForPath(ctx, path, 1)
	if err != nil || len(entries) == 0 {
		return nil, err
	}
	return &entries[0], nil
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			action     string
			createdRaw string
		)
		if err := rows.Scan(&e.ID, &e.RunID, &e.Path, &e.Kind, &action, &e.RemoteKey, &e.PreviousKey, &e.Error, &createdRaw); err != nil {
			return nil, fmt.Errorf("scan journal row: %w", err)
		}
		e.Action = Action(action)
		if t, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
			e.CreatedAt = t
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal: %w", err)
	}
	return entries, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to reset)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
