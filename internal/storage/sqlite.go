// Package storage is the station's local SQLite cache: the saved login
// session, the roster/honor/equipment/reservation snapshots mirrored from
// the Wampums backend, and the settings the dashboard can edit.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite connection shared by all repositories.
type DB struct {
	*sql.DB
}

// NewDB opens (creating if needed) the cache database at the given path.
func NewDB(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	// WAL keeps dashboard reads flowing while a sync swaps a snapshot in;
	// busy_timeout covers the brief write lock during that swap. Snapshot
	// tables mirror backend rows and are replaced wholesale, so the schema
	// declares no foreign keys and none are enabled here.
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	// One sync writer plus a handful of dashboard readers.
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)

	return &DB{DB: db}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.DB.Close()
}

// Transaction runs fn inside a transaction, rolling back if fn errors.
// The snapshot repositories use it to replace a whole collection
// atomically, so the dashboard never sees a half-swapped roster.
func (db *DB) Transaction(fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rolling back transaction: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}
