// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package uploads

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/cola-tui/internal/backend"
)

// =============================================================================
// SCHEMA
// =============================================================================

// ledgerSchema is applied on every open.
const ledgerSchema = `
CREATE TABLE IF NOT EXISTS uploads (
    sha256      TEXT NOT NULL,
    thread_id   TEXT NOT NULL,   -- empty when uploaded with no thread selected
    filename    TEXT NOT NULL,
    size        INTEGER NOT NULL,
    message     TEXT,
    uploaded_at INTEGER NOT NULL, -- Unix timestamp
    PRIMARY KEY (sha256, thread_id)
);

CREATE INDEX IF NOT EXISTS idx_uploads_thread ON uploads(thread_id);
`

// Entry is one successful upload.
type Entry struct {
	SHA256     string
	ThreadID   backend.ID
	Filename   string
	Size       int64
	Message    string
	UploadedAt time.Time
}

// =============================================================================
// LEDGER
// =============================================================================

// Ledger remembers uploaded content per thread.
type Ledger struct {
	db *sql.DB
}

// OpenLedger opens or creates the ledger database at path.
func OpenLedger(path string) (*Ledger, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(ledgerSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize ledger schema: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Seen reports whether content with hash was already uploaded to thread.
func (l *Ledger) Seen(hash string, thread backend.ID) (bool, error) {
	var n int
	err := l.db.QueryRow(
		"SELECT 1 FROM uploads WHERE sha256 = ? AND thread_id = ?",
		hash, thread.String(),
	).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ledger lookup: %w", err)
	}
	return true, nil
}

// Record stores e, replacing an earlier entry for the same hash and thread.
func (l *Ledger) Record(e Entry) error {
	if e.UploadedAt.IsZero() {
		e.UploadedAt = time.Now()
	}
	_, err := l.db.Exec(`
		INSERT OR REPLACE INTO uploads (sha256, thread_id, filename, size, message, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.SHA256, e.ThreadID.String(), e.Filename, e.Size, e.Message, e.UploadedAt.Unix())
	if err != nil {
		return fmt.Errorf("ledger record: %w", err)
	}
	return nil
}

// List returns the entries for thread, newest first. An empty thread lists
// everything.
func (l *Ledger) List(thread backend.ID) ([]Entry, error) {
	query := "SELECT sha256, thread_id, filename, size, COALESCE(message, ''), uploaded_at FROM uploads"
	var args []any
	if !thread.IsZero() {
		query += " WHERE thread_id = ?"
		args = append(args, thread.String())
	}
	query += " ORDER BY uploaded_at DESC, filename"

	rows, err := l.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("ledger list: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e        Entry
			threadID string
			unix     int64
		)
		if err := rows.Scan(&e.SHA256, &threadID, &e.Filename, &e.Size, &e.Message, &unix); err != nil {
			return nil, fmt.Errorf("ledger scan: %w", err)
		}
		e.ThreadID = backend.ID(threadID)
		e.UploadedAt = time.Unix(unix, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Forget drops every entry of thread, used after the thread is deleted.
func (l *Ledger) Forget(thread backend.ID) error {
	if _, err := l.db.Exec("DELETE FROM uploads WHERE thread_id = ?", thread.String()); err != nil {
		return fmt.Errorf("ledger forget: %w", err)
	}
	return nil
}

// Close closes the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}
