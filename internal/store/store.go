// Package store reads and writes the local WaniKani cache: a SQLite
// database holding the raw API resources (reviews, subjects,
// assignments) as JSON, refreshed by `wksim sync` and consumed by the
// forecast.
package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Cache collections. Each is a table of raw API resources keyed by id.
const (
	CollectionReviews     = "reviews"
	CollectionSubjects    = "subjects"
	CollectionAssignments = "assignments"
)

// Collections lists all cache collections in sync order.
var Collections = []string{CollectionReviews, CollectionSubjects, CollectionAssignments}

func validCollection(name string) bool {
	for _, c := range Collections {
		if c == name {
			return true
		}
	}
	return false
}

// Store wraps the SQLite cache database.
type Store struct {
	db *sqlx.DB
}

// Open connects to the SQLite cache at dsn, applies recommended pragmas,
// and creates the cache tables if they do not exist yet.
func Open(dsn string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	for _, collection := range Collections {
		schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY,
			object TEXT,
			data JSON
		)`, collection)
		if _, err := db.Exec(schema); err != nil {
			db.Close()
			return nil, fmt.Errorf("create table %s: %w", collection, err)
		}
	}

	return &Store{db: db}, nil
}

// DB returns the underlying *sqlx.DB for raw queries.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// applyPragmas configures SQLite for optimal single-user performance.
func applyPragmas(db *sqlx.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// DefaultDBPath resolves the cache file path in priority order:
// 1. WKSIM_DB environment variable
// 2. $XDG_DATA_HOME/wksim/wanikani_cache.db
// 3. ~/.local/share/wksim/wanikani_cache.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("WKSIM_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "wksim", "wanikani_cache.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
