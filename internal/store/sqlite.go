package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/amishk599/jobscout/internal/model"
)

// SeenListing is a row of the seen_listings table.
type SeenListing struct {
	ID        string
	Watch     string
	Title     string
	Company   string
	URL       string
	FirstSeen time.Time
}

// SQLiteStore tracks listings already reported by the watcher.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures the
// seen_listings table exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Verify the connection is alive.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	createTable := `CREATE TABLE IF NOT EXISTS seen_listings (
		listing_id TEXT PRIMARY KEY,
		watch      TEXT NOT NULL DEFAULT '',
		title      TEXT NOT NULL DEFAULT '',
		company    TEXT NOT NULL DEFAULT '',
		url        TEXT NOT NULL DEFAULT '',
		first_seen INTEGER NOT NULL
	)`
	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating seen_listings table: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS seen_listings_first_seen ON seen_listings (first_seen)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating seen_listings index: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// HasSeen returns true if the given listing ID has already been recorded.
func (s *SQLiteStore) HasSeen(jobID string) (bool, error) {
	var exists int
	err := s.db.QueryRow("SELECT 1 FROM seen_listings WHERE listing_id = ?", jobID).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking seen status for %s: %w", jobID, err)
	}
	return true, nil
}

// MarkSeen records a listing as reported by watch. If it already exists the
// call is a no-op and the original first-seen time is kept.
func (s *SQLiteStore) MarkSeen(watch string, job model.Job) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO seen_listings (listing_id, watch, title, company, url, first_seen)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		job.ID, watch, job.Title, job.Company, job.URL, s.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("marking listing %s as seen: %w", job.ID, err)
	}
	return nil
}

// Cleanup deletes seen listings older than the given duration.
func (s *SQLiteStore) Cleanup(olderThan time.Duration) error {
	cutoff := s.now().Add(-olderThan).Unix()
	_, err := s.db.Exec("DELETE FROM seen_listings WHERE first_seen < ?", cutoff)
	if err != nil {
		return fmt.Errorf("cleaning up seen listings older than %v: %w", olderThan, err)
	}
	return nil
}

// IsEmpty returns true if the seen_listings table has no entries.
func (s *SQLiteStore) IsEmpty() (bool, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM seen_listings").Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking if store is empty: %w", err)
	}
	return count == 0, nil
}

// Recent returns up to limit listings, newest first.
func (s *SQLiteStore) Recent(limit int) ([]SeenListing, error) {
	rows, err := s.db.Query(
		`SELECT listing_id, watch, title, company, url, first_seen
		 FROM seen_listings ORDER BY first_seen DESC, listing_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing recent seen listings: %w", err)
	}
	defer rows.Close()

	var out []SeenListing
	for rows.Next() {
		var l SeenListing
		var firstSeen int64
		if err := rows.Scan(&l.ID, &l.Watch, &l.Title, &l.Company, &l.URL, &firstSeen); err != nil {
			return nil, fmt.Errorf("scanning seen listing: %w", err)
		}
		l.FirstSeen = time.Unix(firstSeen, 0)
		out = append(out, l)
	}
	return out, rows.Err()
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ model.JobStore = (*SQLiteStore)(nil)
