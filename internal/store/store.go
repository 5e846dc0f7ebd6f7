// Package store keeps a local history of publish attempts so past
// posts can be inspected from the CLI. It is a convenience sidecar:
// none of the publishing components read from it.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS publishes (
	id         TEXT PRIMARY KEY,
	platform   TEXT NOT NULL,
	post_id    TEXT NOT NULL DEFAULT '',
	post_url   TEXT NOT NULL DEFAULT '',
	content    TEXT NOT NULL,
	image_path TEXT NOT NULL DEFAULT '',
	success    INTEGER NOT NULL,
	error      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_publishes_created_at ON publishes(created_at DESC);
`

// Store wraps the sqlite connection.
type Store struct {
	db *sql.DB
}

// Record is one publish attempt, successful or not.
type Record struct {
	ID        string
	Platform  string
	PostID    string
	PostURL   string
	Content   string
	ImagePath string
	Success   bool
	Error     string
	CreatedAt time.Time
}

// New opens (or creates) the history database at dbPath.
func New(ctx context.Context, dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite doesn't handle concurrent writes well.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordPublish inserts a publish attempt, assigning it an id and
// timestamp, and returns the completed record.
func (s *Store) RecordPublish(ctx context.Context, rec Record) (Record, error) {
	rec.ID = uuid.NewString()
	rec.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO publishes (id, platform, post_id, post_url, content, image_path, success, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Platform, rec.PostID, rec.PostURL, rec.Content, rec.ImagePath,
		boolToInt(rec.Success), rec.Error, rec.CreatedAt,
	)
	if err != nil {
		return Record{}, fmt.Errorf("insert publish record: %w", err)
	}

	return rec, nil
}

// ListRecent returns the newest publish records, most recent first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, platform, post_id, post_url, content, image_path, success, error, created_at
		FROM publishes
		ORDER BY created_at DESC, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query publishes: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var success int
		if err := rows.Scan(&rec.ID, &rec.Platform, &rec.PostID, &rec.PostURL,
			&rec.Content, &rec.ImagePath, &success, &rec.Error, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan publish record: %w", err)
		}
		rec.Success = success != 0
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate publishes: %w", err)
	}

	return records, nil
}

// CountByPlatform returns how many successful posts each platform has.
func (s *Store) CountByPlatform(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT platform, COUNT(*) FROM publishes WHERE success = 1 GROUP BY platform`)
	if err != nil {
		return nil, fmt.Errorf("query counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var platform string
		var n int
		if err := rows.Scan(&platform, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[platform] = n
	}
	return counts, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
