// Package store persists the shopping list and purchase history in a local
// SQLite file.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"listacerta/internal/logging"
	"listacerta/internal/shopping"

	// Both drivers are registered; config picks one by name.
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Driver names accepted by Open.
const (
	DriverModernc = "sqlite"  // pure Go, the default
	DriverCgo     = "sqlite3" // mattn/go-sqlite3, needs cgo
)

// SQLiteStore implements shopping.Store.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	path   string
	driver string
}

var _ shopping.Store = (*SQLiteStore)(nil)

// Open opens (creating if needed) the database at path with driver.
// An empty driver means DriverModernc.
func Open(driver, path string) (*SQLiteStore, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Open")
	defer timer.Stop()

	if driver == "" {
		driver = DriverModernc
	}
	if driver != DriverModernc && driver != DriverCgo {
		return nil, fmt.Errorf("unsupported sqlite driver %q", driver)
	}
	logging.Store("Opening %s database at %s", driver, path)

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			logging.StoreError("Failed to create directory %s: %v", dir, err)
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open(driver, path)
	if err != nil {
		logging.StoreError("Failed to open database at %s: %v", path, err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			logging.StoreDebug("%s failed: %v", pragma, err)
		}
	}

	s := &SQLiteStore{db: db, path: path, driver: driver}
	if err := s.initialize(context.Background()); err != nil {
		logging.StoreError("Failed to initialize schema: %v", err)
		db.Close()
		return nil, err
	}
	logging.Store("Store ready (schema v%d)", CurrentSchemaVersion)
	return s, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

// Driver returns the driver name in use.
func (s *SQLiteStore) Driver() string { return s.driver }

// Close closes the database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
