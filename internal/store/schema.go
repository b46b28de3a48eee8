package store

import (
	"context"
	"database/sql"
	"fmt"

	"listacerta/internal/logging"
)

// Schema versions:
// v1: items, purchases, purchase_items
// v2: items.image_url and items.created_at
const CurrentSchemaVersion = 2

const schema = `
CREATE TABLE IF NOT EXISTS items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	quantity REAL NOT NULL DEFAULT 1,
	completed INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS purchases (
	id TEXT PRIMARY KEY,
	purchased_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS purchase_items (
	purchase_id TEXT NOT NULL REFERENCES purchases(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	item_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	quantity REAL NOT NULL,
	PRIMARY KEY (purchase_id, position)
);
CREATE INDEX IF NOT EXISTS idx_purchases_date ON purchases(purchased_at);
`

// migration adds a column missing from databases created by older versions.
type migration struct {
	Table  string
	Column string
	Def    string
}

var pendingMigrations = []migration{
	{"items", "image_url", "TEXT NOT NULL DEFAULT ''"},
	{"items", "created_at", "DATETIME"},
}

func (s *SQLiteStore) initialize(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	if err := runMigrations(ctx, s.db); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", CurrentSchemaVersion)); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	return nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	applied := 0
	for _, m := range pendingMigrations {
		ok, err := columnExists(ctx, db, m.Table, m.Column)
		if err != nil {
			return err
		}
		if ok {
			continue
		}
		query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.Table, m.Column, m.Def)
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("migration %s.%s: %w", m.Table, m.Column, err)
		}
		logging.Store("Migration applied: added %s.%s", m.Table, m.Column)
		applied++
	}
	logging.StoreDebug("Schema migrations complete: applied=%d", applied)
	return nil
}

// SchemaVersion returns PRAGMA user_version.
func (s *SQLiteStore) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v)
	return v, err
}

func columnExists(ctx context.Context, db *sql.DB, table, column string) (bool, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("table_info(%s): %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid, notnull, pk int
			name, ctype      string
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
