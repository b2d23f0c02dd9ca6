// Package db persists groups, rules and tracking sessions in SQLite.
package db

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/grovetools/proctrack/errors"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const DefaultBusyTimeout = 5 * time.Second

const schema = `
CREATE TABLE IF NOT EXISTS groups (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL UNIQUE,
	view_offset INTEGER NOT NULL DEFAULT 0,
	created_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS rules (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	group_id INTEGER NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
	type     TEXT NOT NULL CHECK (type IN ('exec', 'regex')),
	pattern  TEXT NOT NULL,
	UNIQUE (group_id, type, pattern)
);

CREATE TABLE IF NOT EXISTS tracking_sessions (
	id                 TEXT PRIMARY KEY,
	seq                INTEGER NOT NULL,
	rule_id            INTEGER NOT NULL,
	group_id           INTEGER NOT NULL,
	process_id         INTEGER NOT NULL,
	process_start_time INTEGER NOT NULL,
	executable         TEXT NOT NULL DEFAULT '',
	started_at         INTEGER NOT NULL,
	stopped_at         INTEGER
);

CREATE INDEX IF NOT EXISTS idx_sessions_group_seq ON tracking_sessions (group_id, seq);

CREATE UNIQUE INDEX IF NOT EXISTS one_open_session
	ON tracking_sessions (rule_id, process_id, process_start_time)
	WHERE stopped_at IS NULL;

CREATE TABLE IF NOT EXISTS title_changes (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL REFERENCES tracking_sessions(id) ON DELETE CASCADE,
	changed_at INTEGER NOT NULL,
	title      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_title_changes_session ON title_changes (session_id, changed_at);
`

// DB wraps the SQLite connection pool.
type DB struct {
	sql *sql.DB
}

// Open opens or creates the database at path and applies the schema.
// Connections use WAL journaling so readers never see torn writes.
func Open(path string, busyTimeout time.Duration) (*DB, error) {
	if busyTimeout <= 0 {
		busyTimeout = DefaultBusyTimeout
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.PersistenceFailed("create database directory", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)",
		path, busyTimeout.Milliseconds())
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.PersistenceFailed("open database", err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, errors.PersistenceFailed("ping database", err).WithDetail("path", path)
	}

	d := &DB{sql: sqlDB}
	if err := d.migrate(context.Background()); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return d, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.sql.Close()
}

func (d *DB) migrate(ctx context.Context) error {
	if _, err := d.sql.ExecContext(ctx, schema); err != nil {
		return errors.PersistenceFailed("migrate schema", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if stderrors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
