// Package database opens and bootstraps the relational stores backing users and tasks.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// TimeLayout is how timestamps are stored in SQLite TEXT columns.
const TimeLayout = time.RFC3339Nano

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	email TEXT NOT NULL UNIQUE,
	user_name TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS tasks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	text TEXT NOT NULL,
	is_done INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tasks_user_id ON tasks(user_id);
`

// OpenSQLite opens a SQLite database and switches it to WAL. journal_mode is stored
// in the database file; per-connection pragmas belong in the DSN (see SQLiteFileDSN).
func OpenSQLite(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// MigrateSQLite ensures the schema exists.
func MigrateSQLite(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("sqlite migrate: %w", err)
	}
	return nil
}

// SQLiteFileDSN builds a DSN like file:/absolute/path?_pragma=busy_timeout(5000)&... and creates the parent directory. Pragmas in the DSN apply to every pooled connection.
func SQLiteFileDSN(path string) (string, error) {
	path = strings.TrimPrefix(path, "file:")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return "file:" + filepath.ToSlash(abs) + "?" + sqlitePragmas, nil
}

const sqlitePragmas = "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=synchronous(NORMAL)"

// FormatTime renders t for storage in a TEXT column.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime is the inverse of FormatTime. Unparseable values yield the zero time.
func ParseTime(s string) time.Time {
	ts, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return ts
}
