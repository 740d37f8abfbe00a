package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists HTTP cache records per source URL and output fingerprints
// per generated filename across invocations.
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if needed) the cache database at the given path
// and applies pending migrations.
func NewStore(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate cache database: %w", err)
	}

	return &Store{db: db}, nil
}

// LookupPage returns the cache record for a URL, or nil if the URL has never
// been fetched. Read errors are treated as a miss so a damaged cache can
// never fail a run.
func (s *Store) LookupPage(url string) *Record {
	record := Record{URL: url}
	var fetchedAt int64

	err := s.db.QueryRow(`
		SELECT etag, last_modified, fingerprint, fetched_at
		FROM pages WHERE url = ?
	`, url).Scan(&record.ETag, &record.LastModified, &record.Fingerprint, &fetchedAt)

	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		slog.Warn("Cache read error, treating as miss", "url", url, "error", err)
		return nil
	}

	record.FetchedAt = time.Unix(fetchedAt, 0).UTC()
	return &record
}

// UpdatePage replaces the record for a URL. Validators and fingerprint are
// written as one row, never piecemeal.
func (s *Store) UpdatePage(record Record) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO pages (url, etag, last_modified, fingerprint, fetched_at)
		VALUES (?, ?, ?, ?, ?)
	`, record.URL, record.ETag, record.LastModified, record.Fingerprint, record.FetchedAt.Unix())

	if err != nil {
		return fmt.Errorf("failed to update cache record: %w", err)
	}

	return nil
}

// LookupOutput returns the fingerprint of the last written output for a
// filename, or empty if none was recorded.
func (s *Store) LookupOutput(filename string) string {
	var fingerprint string

	err := s.db.QueryRow(`
		SELECT fingerprint FROM outputs WHERE filename = ?
	`, filename).Scan(&fingerprint)

	if err == sql.ErrNoRows {
		return ""
	}
	if err != nil {
		slog.Warn("Output fingerprint read error, treating as miss", "filename", filename, "error", err)
		return ""
	}

	return fingerprint
}

// UpdateOutput records the fingerprint of a freshly written output file.
func (s *Store) UpdateOutput(filename, fingerprint string) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO outputs (filename, fingerprint, written_at)
		VALUES (?, ?, ?)
	`, filename, fingerprint, time.Now().UTC().Unix())

	if err != nil {
		return fmt.Errorf("failed to update output fingerprint: %w", err)
	}

	return nil
}

// GetStats returns cache statistics
func (s *Store) GetStats() (Stats, error) {
	var stats Stats

	err := s.db.QueryRow("SELECT COUNT(*) FROM pages").Scan(&stats.Pages)
	if err != nil {
		return stats, err
	}

	err = s.db.QueryRow("SELECT COUNT(*) FROM outputs").Scan(&stats.Outputs)
	if err != nil {
		return stats, err
	}

	var oldest sql.NullInt64
	err = s.db.QueryRow("SELECT MIN(fetched_at) FROM pages").Scan(&oldest)
	if err != nil && err != sql.ErrNoRows {
		return stats, err
	}
	if oldest.Valid && oldest.Int64 > 0 {
		stats.OldestFetch = time.Unix(oldest.Int64, 0).UTC()
	}

	return stats, nil
}

// Close closes the cache database
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Fingerprint computes the hex-encoded sha256 fingerprint of a body.
func Fingerprint(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
