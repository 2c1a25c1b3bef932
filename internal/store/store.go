// Package store persists the business directory in a local SQLite database.
//
// A single Store owns the connection. SQLite is opened with a single
// connection and WAL journaling so concurrent pipeline goroutines serialize
// through the driver instead of tripping over SQLITE_BUSY.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"votewallet/internal/logging"
)

// Store wraps the SQLite handle for the business directory.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the database at path and applies the schema.
// The special path ":memory:" opens an in-memory database for tests.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One connection: the sqlite file is single-writer anyway, and a pool
	// of connections each see their own :memory: database.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}

	s := &Store{db: db, path: path}
	if err := s.applySchema(); err != nil {
		db.Close()
		return nil, err
	}

	logging.Store("opened database at %s", path)
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) applySchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS businesses (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			secondary_categories TEXT NOT NULL DEFAULT '',
			tags TEXT NOT NULL DEFAULT '',
			address TEXT NOT NULL DEFAULT '',
			city TEXT NOT NULL DEFAULT '',
			state TEXT NOT NULL DEFAULT '',
			zip TEXT NOT NULL DEFAULT '',
			country TEXT NOT NULL DEFAULT '',
			lat REAL NOT NULL DEFAULT 0,
			lon REAL NOT NULL DEFAULT 0,
			website TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			hours TEXT NOT NULL DEFAULT '',
			price_range TEXT NOT NULL DEFAULT '',
			founded_year INTEGER NOT NULL DEFAULT 0,
			employee_count INTEGER NOT NULL DEFAULT 0,
			logo_url TEXT NOT NULL DEFAULT '',
			photo_urls TEXT NOT NULL DEFAULT '',
			attributes TEXT NOT NULL DEFAULT '',
			data_source TEXT NOT NULL DEFAULT '',
			data_quality INTEGER NOT NULL DEFAULT 0,
			active INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_businesses_name_city
			ON businesses (lower(name), lower(city))`,
		`CREATE TABLE IF NOT EXISTS business_alignments (
			business_id TEXT PRIMARY KEY REFERENCES businesses(id),
			liberal REAL NOT NULL DEFAULT 0,
			conservative REAL NOT NULL DEFAULT 0,
			libertarian REAL NOT NULL DEFAULT 0,
			green REAL NOT NULL DEFAULT 0,
			centrist REAL NOT NULL DEFAULT 0,
			confidence REAL NOT NULL DEFAULT 0,
			source TEXT NOT NULL DEFAULT '',
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS user_alignments (
			user_id TEXT PRIMARY KEY,
			liberal REAL NOT NULL DEFAULT 0,
			conservative REAL NOT NULL DEFAULT 0,
			libertarian REAL NOT NULL DEFAULT 0,
			green REAL NOT NULL DEFAULT 0,
			centrist REAL NOT NULL DEFAULT 0,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS categories (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			icon TEXT NOT NULL DEFAULT '',
			color TEXT NOT NULL DEFAULT '',
			keywords TEXT NOT NULL DEFAULT '',
			active INTEGER NOT NULL DEFAULT 1
		)`,
		`CREATE TABLE IF NOT EXISTS tags (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			keywords TEXT NOT NULL DEFAULT '',
			active INTEGER NOT NULL DEFAULT 1
		)`,
		`CREATE TABLE IF NOT EXISTS business_tags (
			business_id TEXT NOT NULL REFERENCES businesses(id),
			tag_id INTEGER NOT NULL REFERENCES tags(id),
			PRIMARY KEY (business_id, tag_id)
		)`,
		`CREATE TABLE IF NOT EXISTS political_activities (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			business_id TEXT NOT NULL REFERENCES businesses(id),
			type TEXT NOT NULL,
			date TEXT NOT NULL DEFAULT '',
			amount REAL NOT NULL DEFAULT 0,
			impact TEXT NOT NULL DEFAULT 'neutral',
			axis TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			source_url TEXT NOT NULL DEFAULT '',
			source_type TEXT NOT NULL DEFAULT '',
			confidence REAL NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_activities_business
			ON political_activities (business_id)`,
		`CREATE TABLE IF NOT EXISTS data_sources (
			name TEXT PRIMARY KEY,
			requests_per_hour INTEGER NOT NULL DEFAULT 0,
			api_key_env TEXT NOT NULL DEFAULT '',
			active INTEGER NOT NULL DEFAULT 1,
			last_synced_at TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS sync_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			source TEXT NOT NULL,
			region TEXT NOT NULL DEFAULT '',
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL DEFAULT '',
			processed INTEGER NOT NULL DEFAULT 0,
			added INTEGER NOT NULL DEFAULT 0,
			updated INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'running',
			errors TEXT NOT NULL DEFAULT ''
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// Stats summarizes the database contents for the status command.
type Stats struct {
	Businesses        int `json:"businesses"`
	ActiveBusinesses  int `json:"active_businesses"`
	Alignments        int `json:"alignments"`
	Categories        int `json:"categories"`
	Tags              int `json:"tags"`
	Activities        int `json:"activities"`
	SyncRuns          int `json:"sync_runs"`
	WithLogo          int `json:"with_logo"`
	WithoutLogo       int `json:"without_logo"`
	UncategorizedHint int `json:"uncategorized"`
}

// GetStats counts the principal tables.
func (s *Store) GetStats() (*Stats, error) {
	stats := &Stats{}
	counters := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM businesses", &stats.Businesses},
		{"SELECT COUNT(*) FROM businesses WHERE active = 1", &stats.ActiveBusinesses},
		{"SELECT COUNT(*) FROM business_alignments", &stats.Alignments},
		{"SELECT COUNT(*) FROM categories WHERE active = 1", &stats.Categories},
		{"SELECT COUNT(*) FROM tags WHERE active = 1", &stats.Tags},
		{"SELECT COUNT(*) FROM political_activities", &stats.Activities},
		{"SELECT COUNT(*) FROM sync_logs", &stats.SyncRuns},
		{"SELECT COUNT(*) FROM businesses WHERE active = 1 AND logo_url != ''", &stats.WithLogo},
		{"SELECT COUNT(*) FROM businesses WHERE active = 1 AND logo_url = ''", &stats.WithoutLogo},
		{"SELECT COUNT(*) FROM businesses WHERE active = 1 AND category = ''", &stats.UncategorizedHint},
	}
	for _, c := range counters {
		if err := s.db.QueryRow(c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("count query: %w", err)
		}
	}
	return stats, nil
}

// marshalStrings serializes a string slice for a TEXT column; empty slices
// become empty strings.
func marshalStrings(vals []string) (string, error) {
	if len(vals) == 0 {
		return "", nil
	}
	data, err := json.Marshal(vals)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalStrings(data string) ([]string, error) {
	if data == "" {
		return nil, nil
	}
	var vals []string
	if err := json.Unmarshal([]byte(data), &vals); err != nil {
		return nil, err
	}
	return vals, nil
}

// formatTime serializes a timestamp; zero times become empty strings.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
