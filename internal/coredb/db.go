// SPDX-License-Identifier: AGPL-3.0-or-later

// Package coredb stores the dispatch journal in a local SQLite file.
package coredb

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/flowd-org/ask/internal/paths"
	_ "modernc.org/sqlite"
)

const (
	sqliteDriverName = "sqlite"

	defaultGlobalMaxBytes  = 64 << 20 // 64 MiB
	defaultJournalMaxBytes = 16 << 20 // 16 MiB

	busyTimeout = 5 * time.Second

	// FileName is the database file inside the data directory.
	FileName = "ask.db"
)

// Options controls how the Core DB is opened. Zero values select defaults.
type Options struct {
	// DataDir holds the database file; empty means paths.DataDir().
	DataDir string
	// MaxBytes bounds the whole database file through max_page_count.
	MaxBytes int64
	// JournalMaxBytes bounds the summed payload size of journal rows.
	JournalMaxBytes int64
}

func (o Options) withDefaults() Options {
	if o.DataDir == "" {
		o.DataDir = paths.DataDir()
	}
	if o.MaxBytes <= 0 {
		o.MaxBytes = defaultGlobalMaxBytes
	}
	if o.JournalMaxBytes <= 0 {
		o.JournalMaxBytes = defaultJournalMaxBytes
	}
	return o
}

// DB wraps the SQLite connection holding the dispatch journal.
type DB struct {
	sql  *sql.DB
	opts Options
	path string
}

// Open creates the data directory if needed, opens the database and
// applies migrations.
func Open(ctx context.Context, opts Options) (*DB, error) {
	opts = opts.withDefaults()
	if err := os.MkdirAll(opts.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}
	path := filepath.Join(opts.DataDir, FileName)

	conn, err := sql.Open(sqliteDriverName, dsn(path, opts))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps the per-connection pragmas in force.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if err := limitSize(ctx, conn, opts.MaxBytes); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := applyMigrations(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &DB{sql: conn, opts: opts, path: path}, nil
}

// dsn encodes the connection pragmas for the modernc driver.
func dsn(path string, opts Options) string {
	q := url.Values{}
	for _, p := range []string{
		fmt.Sprintf("busy_timeout(%d)", busyTimeout.Milliseconds()),
		"journal_mode(WAL)",
		"synchronous(FULL)",
		"foreign_keys(ON)",
		"wal_autocheckpoint(1000)",
		fmt.Sprintf("journal_size_limit(%d)", opts.JournalMaxBytes),
	} {
		q.Add("_pragma", p)
	}
	return "file:" + filepath.ToSlash(path) + "?" + q.Encode()
}

// limitSize caps the file at maxBytes by translating it to pages.
func limitSize(ctx context.Context, conn *sql.DB, maxBytes int64) error {
	var pageSize int64
	if err := conn.QueryRowContext(ctx, "PRAGMA page_size;").Scan(&pageSize); err != nil || pageSize <= 0 {
		pageSize = 4096
	}
	pages := maxBytes / pageSize
	if pages <= 0 {
		pages = 1
	}
	if _, err := conn.ExecContext(ctx, fmt.Sprintf("PRAGMA max_page_count=%d;", pages)); err != nil {
		return fmt.Errorf("set max_page_count: %w", err)
	}
	return nil
}

// Journal returns the dispatch journal bounded by the DB's JournalMaxBytes.
func (db *DB) Journal() *Journal {
	if db == nil {
		return nil
	}
	return NewJournal(db, db.opts.JournalMaxBytes)
}

// Close shuts down the underlying SQLite connection.
func (db *DB) Close() error {
	if db == nil || db.sql == nil {
		return nil
	}
	return db.sql.Close()
}

// SQL exposes the raw connection.
func (db *DB) SQL() *sql.DB {
	if db == nil {
		return nil
	}
	return db.sql
}

// Path is the database file location.
func (db *DB) Path() string {
	if db == nil {
		return ""
	}
	return db.path
}
