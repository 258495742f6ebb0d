package history

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Entry is one streaming session in the ledger. StoppedAt is zero while the
// session is still running or was never stopped cleanly.
type Entry struct {
	ID               string
	Reference        string
	InputURL         string
	DestinationCount int
	StartedAt        time.Time
	StoppedAt        time.Time
}

// Duration returns the session length, or zero when the session has no
// recorded stop.
func (e Entry) Duration() time.Duration {
	if e.StoppedAt.IsZero() {
		return 0
	}
	return e.StoppedAt.Sub(e.StartedAt)
}

// Store keeps the streaming history ledger in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
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

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordStart appends a new session entry for reference.
func (s *Store) RecordStart(reference, inputURL string, destinationCount int) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.Exec(
		`INSERT INTO stream_history (id, reference, input_url, destination_count, started_at)
         VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), reference, inputURL, destinationCount, now,
	)
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	return nil
}

// RecordStop closes the most recent open session for reference. A stop with
// no matching open session is a no-op, not an error: the server may have
// been stopped out-of-band.
func (s *Store) RecordStop(reference string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.Exec(
		`UPDATE stream_history SET stopped_at = ?
         WHERE id = (
             SELECT id FROM stream_history
             WHERE reference = ? AND stopped_at IS NULL
             ORDER BY started_at DESC LIMIT 1
         )`,
		now, reference,
	)
	if err != nil {
		return fmt.Errorf("close history entry: %w", err)
	}
	return nil
}

// List returns the most recent sessions, newest first, capped at limit.
// A non-positive limit returns everything.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, reference, input_url, destination_count, started_at, stopped_at
              FROM stream_history ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry     Entry
			startedAt string
			stoppedAt sql.NullString
		)
		if err := rows.Scan(&entry.ID, &entry.Reference, &entry.InputURL, &entry.DestinationCount, &startedAt, &stoppedAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		entry.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
		if stoppedAt.Valid {
			entry.StoppedAt, _ = time.Parse(time.RFC3339Nano, stoppedAt.String)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}
	return entries, nil
}

// OpenSessions returns the sessions that have a start but no stop, newest
// first.
func (s *Store) OpenSessions(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, reference, input_url, destination_count, started_at, stopped_at
         FROM stream_history WHERE stopped_at IS NULL ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query open sessions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry     Entry
			startedAt string
			stoppedAt sql.NullString
		)
		if err := rows.Scan(&entry.ID, &entry.Reference, &entry.InputURL, &entry.DestinationCount, &startedAt, &stoppedAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		entry.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}
	return entries, nil
}

// Prune deletes entries older than the cutoff. Returns how many rows were
// removed.
func (s *Store) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM stream_history WHERE started_at < ?",
		olderThan.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune rows affected: %w", err)
	}
	return removed, nil
}
