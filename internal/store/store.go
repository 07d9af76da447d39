// Package store owns the SQLite schema and all reads/writes against it
// (spec §6). It knows nothing about the proxy pipeline or audit entry
// types — internal/auditlog and internal/cleanup call its narrow, typed
// methods, keeping the schema the single source of truth for column names.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps the SQLite connection used for both the audit log sink and
// the CLI read/write paths.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS tracking_domains (
	domain    TEXT PRIMARY KEY,
	hit_count INTEGER NOT NULL DEFAULT 0,
	blocked   INTEGER NOT NULL DEFAULT 0,
	category  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS tracking_ips (
	ip        TEXT PRIMARY KEY,
	hit_count INTEGER NOT NULL DEFAULT 0,
	blocked   INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS cookie_traffic (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	domain    TEXT NOT NULL,
	cookie    TEXT NOT NULL,
	timestamp INTEGER NOT NULL,
	blocked   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS fingerprint_rotations (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp       INTEGER NOT NULL,
	user_agent      TEXT NOT NULL,
	accept_language TEXT NOT NULL,
	mode            TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS request_log (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	domain     TEXT NOT NULL,
	path       TEXT NOT NULL,
	timestamp  INTEGER NOT NULL,
	user_agent TEXT NOT NULL,
	client_ip  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS whitelist (
	domain TEXT PRIMARY KEY,
	reason TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_cookie_traffic_ts ON cookie_traffic(timestamp);
CREATE INDEX IF NOT EXISTS idx_fingerprint_rotations_ts ON fingerprint_rotations(timestamp);
CREATE INDEX IF NOT EXISTS idx_request_log_ts ON request_log(timestamp);
`

// Open opens (creating if necessary) the SQLite database at path, sets the
// WAL/synchronous pragmas spec §6 mandates, and bootstraps the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite tolerates only one writer at a time; a single open connection
	// avoids SQLITE_BUSY under the sink's single-writer model.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// WithTx runs fn inside a transaction, committing on success and rolling
// back on error or panic.
func (s *Store) WithTx(ctx context.Context, fn func(*sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
		if err != nil {
			tx.Rollback()
			return
		}
		err = tx.Commit()
	}()
	err = fn(tx)
	return err
}

func unixMillis(t time.Time) int64 {
	return t.UnixMilli()
}
