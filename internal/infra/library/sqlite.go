// Package library maintains the durable media library: the music folder
// on disk plus a SQLite database of track metadata (identity, display
// name, probed duration, insertion time). Playlist membership derives
// from this library, not from the persisted playback state.
package library

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/rs/zerolog/log"
)

const schemaVersion = "1"

// DB wraps the library database.
type DB struct {
	db   *sql.DB
	path string
}

// NewDB creates a database handle over the given file path.
func NewDB(path string) *DB {
	return &DB{path: path}
}

// Open opens the database and initializes the schema.
func (d *DB) Open() error {
	if err := os.MkdirAll(filepath.Dir(d.path), 0o755); err != nil {
		return fmt.Errorf("create library directory: %w", err)
	}

	db, err := sql.Open("sqlite3", d.path+"?_journal=WAL&_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("open library database: %w", err)
	}

	// SQLite supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	d.db = db

	if err := d.initSchema(); err != nil {
		d.db.Close()
		d.db = nil
		return fmt.Errorf("initialize library schema: %w", err)
	}

	log.Info().Str("path", d.path).Msg("Library database opened")
	return nil
}

// Close closes the database.
func (d *DB) Close() error {
	if d.db == nil {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	return err
}

func (d *DB) initSchema() error {
	if _, err := d.db.Exec(`
		CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS tracks (
			path             TEXT PRIMARY KEY,
			id               TEXT NOT NULL UNIQUE,
			name             TEXT NOT NULL,
			duration_seconds REAL NOT NULL DEFAULT 0,
			added_at         TEXT NOT NULL
		);
	`); err != nil {
		return err
	}

	_, err := d.db.Exec(`
		INSERT INTO meta (key, value) VALUES ('schema_version', ?)
		ON CONFLICT(key) DO UPDATE SET value = ?
	`, schemaVersion, schemaVersion)
	return err
}
