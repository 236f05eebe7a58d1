// Package store persists the catalog index, conversation sessions and the
// order ledger in SQLite, and sessions alternatively in Redis.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"voiceorder/internal/logging"
)

// DB is a migrated SQLite handle shared by the catalog index, the session
// store and the ledger.
type DB struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the database at path. ":memory:" gives a
// private in-memory database.
func Open(path string) (*DB, error) {
	timer := logging.StartTimer(logging.CategoryStore, "store.Open")
	defer timer.Stop()

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			logging.StoreError("Failed to create directory %s: %v", dir, err)
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open(driverName, path)
	if err != nil {
		logging.StoreError("Failed to open database at %s: %v", path, err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: writes serialise and ":memory:" stays a single database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
			logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
		}
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		logging.StoreDebug("Failed to enable foreign keys: %v", err)
	}

	if err := initialize(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	logging.Store("Opened %s database at %s", driverName, path)
	return &DB{db: db, path: path}, nil
}

// Close closes the handle.
func (d *DB) Close() error { return d.db.Close() }

// Path returns the database path.
func (d *DB) Path() string { return d.path }

// SQL exposes the raw handle.
func (d *DB) SQL() *sql.DB { return d.db }

func unixNano(t time.Time) int64 { return t.UTC().UnixNano() }
