// Package store persists DDL snapshots: a SQLite snapshot store, YAML snapshot files
// and plain DDL scripts.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // registers the sqlite database/sql driver

	"github.com/stokaro/ddldiff/dbschema/types"
)

// ErrSnapshotNotFound is returned when no snapshot has the requested ID.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Store keeps snapshots by ID.
type Store interface {
	Save(ctx context.Context, snap *types.Snapshot) error
	Load(ctx context.Context, id string) (*types.Snapshot, error)
	List(ctx context.Context) ([]Info, error)
	Delete(ctx context.Context, id string) error
}

// Info describes a stored snapshot without its objects.
type Info struct {
	ID               string
	Owner            string
	CapturedAt       time.Time
	SourceConnection string
	ObjectCount      int
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS snapshots (
		id                TEXT PRIMARY KEY,
		owner             TEXT NOT NULL,
		captured_at       TEXT NOT NULL,
		source_connection TEXT NOT NULL DEFAULT '',
		object_count      INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS snapshot_objects (
		snapshot_id TEXT NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
		object_key  TEXT NOT NULL,
		ddl         TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (snapshot_id, object_key)
	)`,
	`CREATE TABLE IF NOT EXISTS snapshot_warnings (
		snapshot_id TEXT NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
		seq         INTEGER NOT NULL,
		kind        TEXT NOT NULL,
		object_key  TEXT NOT NULL DEFAULT '',
		message     TEXT NOT NULL,
		PRIMARY KEY (snapshot_id, seq)
	)`,
}

// SQLiteStore implements Store backed by a SQLite database file.
//
// Objects are stored under the TYPE/OWNER/NAME text form of their key. Loading
// decodes the keys again, so rows written by other tools or older versions with
// malformed keys or unknown object types come back as snapshot warnings instead of
// failing the load.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenSQLite opens the store at path, creating the file and its tables if needed.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create store tables: %w", err)
		}
	}
	return &SQLiteStore{db: db, logger: slog.Default()}, nil
}

// WithLogger sets the logger used to report decoding warnings on load.
func (s *SQLiteStore) WithLogger(logger *slog.Logger) *SQLiteStore {
	s.logger = logger
	return s
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save stores snap, replacing any snapshot with the same ID.
func (s *SQLiteStore) Save(ctx context.Context, snap *types.Snapshot) error {
	if snap == nil {
		return errors.New("cannot save a nil snapshot")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := deleteSnapshot(ctx, tx, snap.ID); err != nil {
		return fmt.Errorf("replace snapshot %s: %w", snap.ID, err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO snapshots (id, owner, captured_at, source_connection, object_count) VALUES (?, ?, ?, ?, ?)`,
		snap.ID, snap.Owner, snap.CapturedAt.UTC().Format(time.RFC3339Nano), snap.SourceConnection, snap.Len())
	if err != nil {
		return fmt.Errorf("insert snapshot %s: %w", snap.ID, err)
	}

	insertObject, err := tx.PrepareContext(ctx, `INSERT INTO snapshot_objects (snapshot_id, object_key, ddl) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer insertObject.Close()

	var execErr error
	snap.Each(func(key types.ObjectKey, ddl string) {
		if execErr != nil {
			return
		}
		if _, err := insertObject.ExecContext(ctx, snap.ID, key.String(), ddl); err != nil {
			execErr = fmt.Errorf("insert object %s: %w", key, err)
		}
	})
	if execErr != nil {
		return execErr
	}

	for i, w := range snap.Warnings() {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO snapshot_warnings (snapshot_id, seq, kind, object_key, message) VALUES (?, ?, ?, ?, ?)`,
			snap.ID, i, string(w.Kind), w.Key, w.Message)
		if err != nil {
			return fmt.Errorf("insert warning: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot %s: %w", snap.ID, err)
	}
	return nil
}

// Load reads the snapshot with the given ID.
func (s *SQLiteStore) Load(ctx context.Context, id string) (*types.Snapshot, error) {
	var info Info
	var captured string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, owner, captured_at, source_connection, object_count FROM snapshots WHERE id = ?`, id).
		Scan(&info.ID, &info.Owner, &captured, &info.SourceConnection, &info.ObjectCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", id, err)
	}
	if info.CapturedAt, err = time.Parse(time.RFC3339Nano, captured); err != nil {
		return nil, fmt.Errorf("snapshot %s has an invalid capture time %q: %w", id, captured, err)
	}

	b := types.NewSnapshotBuilder(info.Owner).
		WithID(info.ID).
		WithCapturedAt(info.CapturedAt).
		WithSourceConnection(info.SourceConnection)

	if err := s.loadWarnings(ctx, id, b); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT object_key, ddl FROM snapshot_objects WHERE snapshot_id = ? ORDER BY object_key`, id)
	if err != nil {
		return nil, fmt.Errorf("load objects of snapshot %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, ddl string
		if err := rows.Scan(&key, &ddl); err != nil {
			return nil, fmt.Errorf("scan object: %w", err)
		}
		if !b.AddEncoded(key, ddl) {
			s.logger.Warn("Skipped stored object", "snapshot", id, "key", key)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return b.Build(), nil
}

func (s *SQLiteStore) loadWarnings(ctx context.Context, id string, b *types.SnapshotBuilder) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, object_key, message FROM snapshot_warnings WHERE snapshot_id = ? ORDER BY seq`, id)
	if err != nil {
		return fmt.Errorf("load warnings of snapshot %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var w types.Warning
		var kind string
		if err := rows.Scan(&kind, &w.Key, &w.Message); err != nil {
			return fmt.Errorf("scan warning: %w", err)
		}
		w.Kind = types.WarningKind(kind)
		b.Warn(w)
	}
	return rows.Err()
}

// List returns the stored snapshots, newest first.
func (s *SQLiteStore) List(ctx context.Context) ([]Info, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner, captured_at, source_connection, object_count FROM snapshots ORDER BY captured_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var infos []Info
	for rows.Next() {
		var info Info
		var captured string
		if err := rows.Scan(&info.ID, &info.Owner, &captured, &info.SourceConnection, &info.ObjectCount); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		// An unparsable time sorts as zero rather than hiding the snapshot.
		info.CapturedAt, _ = time.Parse(time.RFC3339Nano, captured)
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// Delete removes the snapshot with the given ID.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("delete snapshot %s: %w", id, err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	if err := deleteSnapshot(ctx, tx, id); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", id, err)
	}
	return tx.Commit()
}

// deleteSnapshot removes a snapshot with its objects and warnings. Rows are removed
// explicitly so the result does not depend on the foreign_keys pragma.
func deleteSnapshot(ctx context.Context, tx *sql.Tx, id string) error {
	for _, table := range []string{"snapshot_objects", "snapshot_warnings", "snapshots"} {
		column := "snapshot_id"
		if table == "snapshots" {
			column = "id"
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s = ?", table, column), id); err != nil {
			return err
		}
	}
	return nil
}
