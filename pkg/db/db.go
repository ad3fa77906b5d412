package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Register driver
)

// DB wraps the sql.DB connection.
type DB struct {
	*sql.DB
}

// Init opens the database and runs migrations.
func Init(path string) (*DB, error) {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	// Enable WAL mode for better concurrency and set busy timeout
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=30000;"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	d := &DB{db}
	// Enforce single connection to avoid SQLITE_BUSY errors during concurrent writes
	db.SetMaxOpenConns(1)

	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return d, nil
}

func (d *DB) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS course (
			id TEXT PRIMARY KEY,
			name TEXT,
			wind_bearing_deg REAL NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS mark (
			id TEXT PRIMARY KEY,
			course_id TEXT NOT NULL,
			role TEXT NOT NULL,
			seq INTEGER NOT NULL DEFAULT 0,
			lat REAL NOT NULL,
			lng REAL NOT NULL,
			assigned_buoy_id TEXT,
			gate INTEGER NOT NULL DEFAULT 0,
			gate_width_boat_lengths REAL NOT NULL DEFAULT 0,
			boat_length_meters REAL NOT NULL DEFAULT 0,
			gate_port_buoy_id TEXT,
			gate_starboard_buoy_id TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_mark_course ON mark(course_id, seq)`,
		`CREATE TABLE IF NOT EXISTS buoy (
			id TEXT PRIMARY KEY,
			name TEXT,
			state TEXT NOT NULL DEFAULT 'idle',
			lat REAL NOT NULL DEFAULT 0,
			lng REAL NOT NULL DEFAULT 0,
			battery_pct REAL NOT NULL DEFAULT 0,
			signal_pct REAL NOT NULL DEFAULT 0,
			water_temp_c REAL NOT NULL DEFAULT 0,
			last_seen TIMESTAMP
		)`,
	}

	for _, q := range queries {
		if _, err := d.Exec(q); err != nil {
			return fmt.Errorf("exec %q: %w", q[:30], err)
		}
	}
	return nil
}
