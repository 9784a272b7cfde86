package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements SnapshotStore using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// SnapshotInfo describes a stored snapshot without its payload.
type SnapshotInfo struct {
	Name      string    `db:"name"`
	Size      int       `db:"size"`
	UpdatedAt time.Time `db:"updated_at"`
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// LoadSnapshot retrieves the payload stored under name.
func (s *SQLiteStore) LoadSnapshot(ctx context.Context, name string) ([]byte, error) {
	var payload string
	err := s.db.GetContext(ctx, &payload, "SELECT payload FROM snapshots WHERE name = ?", name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading snapshot %s: %w", name, err)
	}
	return []byte(payload), nil
}

// SaveSnapshot inserts or replaces the payload stored under name.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, name string, payload []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (name, payload, size, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			payload = excluded.payload,
			size = excluded.size,
			updated_at = excluded.updated_at`,
		name, string(payload), len(payload), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving snapshot %s: %w", name, err)
	}
	return nil
}

// DeleteSnapshot removes the snapshot stored under name.
func (s *SQLiteStore) DeleteSnapshot(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM snapshots WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("deleting snapshot %s: %w", name, err)
	}
	return nil
}

// ListSnapshots returns metadata for every stored snapshot, most recently
// updated first.
func (s *SQLiteStore) ListSnapshots(ctx context.Context) ([]SnapshotInfo, error) {
	var infos []SnapshotInfo
	err := s.db.SelectContext(ctx, &infos,
		"SELECT name, size, updated_at FROM snapshots ORDER BY updated_at DESC, name",
	)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	return infos, nil
}
