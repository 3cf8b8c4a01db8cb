// Package archive provides SQLite-backed storage of classified posts so the
// feed history stays queryable after posts fall out of the upstream listing.
package archive

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/AmirthaaSK/ecoverse-cyber-threat-monitoring/internal/classifier"
)

// DB wraps an SQLite connection for classified-post storage.
type DB struct {
	db *sql.DB
}

// Entry is one archived classified post.
type Entry struct {
	ID        string                    `json:"id"`
	FetchedAt time.Time                 `json:"fetched_at"`
	Post      classifier.ClassifiedPost `json:"post"`
}

// Open opens or creates an SQLite database at the given path.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening archive database: %w", err)
	}

	// Single writer connection to avoid SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating archive database: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Insert archives one classified post with the given fetch time.
func (d *DB) Insert(p classifier.ClassifiedPost, fetchedAt time.Time) error {
	keywordsJSON, err := json.Marshal(p.MatchedKeywords)
	if err != nil {
		keywordsJSON = []byte("[]")
	}

	_, err = d.db.Exec(`
		INSERT INTO posts (id, post_id, title, url, score, severity, incident_type, keywords, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(),
		p.ID,
		p.Title,
		p.URL,
		p.Score,
		string(p.Severity),
		string(p.IncidentType),
		string(keywordsJSON),
		fetchedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting post: %w", err)
	}
	return nil
}

// InsertBatch archives a full cycle's worth of posts. The first failure
// aborts the batch.
func (d *DB) InsertBatch(posts []classifier.ClassifiedPost, fetchedAt time.Time) error {
	for _, p := range posts {
		if err := d.Insert(p, fetchedAt); err != nil {
			return err
		}
	}
	return nil
}

// QueryFilter controls which entries are returned by Query.
type QueryFilter struct {
	Since        time.Time
	Until        time.Time
	Severity     string
	IncidentType string
	Limit        int
}

// Query returns entries matching the filter, ordered by fetch time descending.
func (d *DB) Query(f QueryFilter) ([]*Entry, error) {
	query := `SELECT id, post_id, title, url, score, severity, incident_type, keywords, fetched_at
		FROM posts WHERE 1=1`
	var args []interface{}

	if !f.Since.IsZero() {
		query += " AND fetched_at >= ?"
		args = append(args, f.Since.UTC().Format(time.RFC3339Nano))
	}
	if !f.Until.IsZero() {
		query += " AND fetched_at <= ?"
		args = append(args, f.Until.UTC().Format(time.RFC3339Nano))
	}
	if f.Severity != "" {
		query += " AND severity = ?"
		args = append(args, f.Severity)
	}
	if f.IncidentType != "" {
		query += " AND incident_type = ?"
		args = append(args, f.IncidentType)
	}

	query += " ORDER BY fetched_at DESC"

	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying posts: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Purge deletes entries older than the given retention duration.
func (d *DB) Purge(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).UTC().Format(time.RFC3339Nano)
	result, err := d.db.Exec(`DELETE FROM posts WHERE fetched_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purging old posts: %w", err)
	}
	return result.RowsAffected()
}

// Count returns the total number of archived posts.
func (d *DB) Count() (int, error) {
	var count int
	err := d.db.QueryRow(`SELECT COUNT(*) FROM posts`).Scan(&count)
	return count, err
}

func scanEntry(rows *sql.Rows) (*Entry, error) {
	var e Entry
	var tsStr, keywordsJSON string

	err := rows.Scan(
		&e.ID,
		&e.Post.ID,
		&e.Post.Title,
		&e.Post.URL,
		&e.Post.Score,
		&e.Post.Severity,
		&e.Post.IncidentType,
		&keywordsJSON,
		&tsStr,
	)
	if err != nil {
		return nil, fmt.Errorf("scanning post row: %w", err)
	}

	e.FetchedAt, _ = time.Parse(time.RFC3339Nano, tsStr)
	if keywordsJSON != "" {
		_ = json.Unmarshal([]byte(keywordsJSON), &e.Post.MatchedKeywords)
	}

	return &e, nil
}

func migrate(db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS posts (
			id            TEXT PRIMARY KEY,
			post_id       TEXT NOT NULL,
			title         TEXT NOT NULL,
			url           TEXT,
			score         INTEGER,
			severity      TEXT NOT NULL,
			incident_type TEXT NOT NULL,
			keywords      TEXT,
			fetched_at    TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_fetched ON posts(fetched_at)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_type ON posts(incident_type, fetched_at)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}

	slog.Debug("archive schema up to date")
	return nil
}
