package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"listacerta/internal/logging"
	"listacerta/internal/shopping"
)

const itemColumns = "id, name, quantity, completed, image_url, created_at"

// AddItem inserts item and returns it with its assigned id.
func (s *SQLiteStore) AddItem(ctx context.Context, item shopping.Item) (shopping.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO items (name, quantity, completed, image_url, created_at) VALUES (?, ?, ?, ?, ?)",
		item.Name, item.Quantity, item.Completed, item.ImageURL, formatTime(item.CreatedAt))
	if err != nil {
		return shopping.Item{}, fmt.Errorf("insert item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return shopping.Item{}, fmt.Errorf("insert item: %w", err)
	}
	item.ID = id
	logging.StoreDebug("Inserted item %d", id)
	return item, nil
}

// GetItem returns one item or shopping.ErrNotFound.
func (s *SQLiteStore) GetItem(ctx context.Context, id int64) (shopping.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+itemColumns+" FROM items WHERE id = ?", id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return shopping.Item{}, fmt.Errorf("item %d: %w", id, shopping.ErrNotFound)
	}
	return item, err
}

// ListItems returns all items in insertion order.
func (s *SQLiteStore) ListItems(ctx context.Context) ([]shopping.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT "+itemColumns+" FROM items ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []shopping.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// UpdateItem overwrites name, quantity, completed and image of an item.
func (s *SQLiteStore) UpdateItem(ctx context.Context, item shopping.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE items SET name = ?, quantity = ?, completed = ?, image_url = ? WHERE id = ?",
		item.Name, item.Quantity, item.Completed, item.ImageURL, item.ID)
	if err != nil {
		return fmt.Errorf("update item %d: %w", item.ID, err)
	}
	return expectOne(res, "item", item.ID)
}

// DeleteItem removes an item.
func (s *SQLiteStore) DeleteItem(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM items WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete item %d: %w", id, err)
	}
	return expectOne(res, "item", id)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(sc scanner) (shopping.Item, error) {
	var (
		item      shopping.Item
		completed bool
		created   sql.NullString
	)
	if err := sc.Scan(&item.ID, &item.Name, &item.Quantity, &completed, &item.ImageURL, &created); err != nil {
		return shopping.Item{}, err
	}
	item.Completed = completed
	if created.Valid {
		item.CreatedAt = parseTime(created.String)
	}
	return item, nil
}

func expectOne(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, shopping.ErrNotFound)
	}
	return nil
}

// Times are stored as fixed-width UTC text so both drivers read them back
// the same and string order matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339Nano, s)
	}
	if err != nil {
		logging.StoreDebug("Unparseable timestamp %q: %v", s, err)
		return time.Time{}
	}
	return t
}
