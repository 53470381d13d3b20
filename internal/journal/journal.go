package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"txrmwatch/internal/events"
	"txrmwatch/internal/logging"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; users clear the journal database after a bump.
const schemaVersion = 1

// ErrSchemaMismatch indicates the journal database was written by a
// different schema version.
var ErrSchemaMismatch = errors.New("journal schema version mismatch")

// FileName is the journal database file placed under the log directory.
const FileName = "journal.db"

// Store is an append-only record of status events backed by SQLite. It is
// observational only: nothing reads it to make monitoring decisions, and
// deleting the file loses nothing but history.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Open initializes or connects to the journal database under dir.
func Open(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	dbPath := filepath.Join(dir, FileName)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
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

	store := &Store{db: db, path: dbPath, logger: logging.WithComponent(logger, "journal")}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
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
		if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create journal schema: %w", err)
		}
		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
		return nil
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: found %d, expected %d (delete %s to reset)", ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

// Append records one event.
func (s *Store) Append(ctx context.Context, event events.Event) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO events (id, created_at, kind, path, detail) VALUES (?, ?, ?, ?, ?)",
		event.ID,
		event.Timestamp.UTC().Format(time.RFC3339Nano),
		string(event.Kind),
		nullableString(event.Path),
		nullableString(event.Detail),
	)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]events.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, created_at, kind, path, detail FROM events ORDER BY created_at DESC, id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []events.Event
	for rows.Next() {
		var (
			event     events.Event
			createdAt string
			kind      string
			path      sql.NullString
			detail    sql.NullString
		)
		if err := rows.Scan(&event.ID, &createdAt, &kind, &path, &detail); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if ts, parseErr := time.Parse(time.RFC3339Nano, createdAt); parseErr == nil {
			event.Timestamp = ts
		}
		event.Kind = events.Kind(kind)
		event.Path = path.String
		event.Detail = detail.String
		out = append(out, event)
	}
	return out, rows.Err()
}

// Prune deletes events older than retention.
func (s *Store) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().Add(-retention).Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx, "DELETE FROM events WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	removed, _ := res.RowsAffected()
	if removed > 0 {
		s.logger.Debug("journal pruned", logging.Int64(logging.FieldCount, removed))
	}
	return removed, nil
}

// Sink adapts the store to the event sink interface. Append failures are
// logged and dropped; the journal never blocks monitoring.
type Sink struct {
	store  *Store
	logger *slog.Logger
}

// NewSink wraps store as an event sink.
func NewSink(store *Store, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Sink{store: store, logger: logging.WithComponent(logger, "journal")}
}

func (s *Sink) Emit(event events.Event) {
	if s == nil || s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.Append(ctx, event); err != nil {
		s.logger.Warn("journal append failed",
			logging.String(logging.FieldEvent, string(event.Kind)),
			logging.Error(err))
	}
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
