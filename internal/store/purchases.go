package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"listacerta/internal/logging"
	"listacerta/internal/shopping"
)

// CompletePurchase stores rec and clears the list in one transaction.
func (s *SQLiteStore) CompletePurchase(ctx context.Context, rec shopping.PurchaseRecord) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin purchase: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.StoreError("Rollback of purchase %s failed: %v", rec.ID, rbErr)
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, "INSERT INTO purchases (id, purchased_at) VALUES (?, ?)",
		rec.ID, formatTime(rec.Date)); err != nil {
		return fmt.Errorf("insert purchase %s: %w", rec.ID, err)
	}
	for i, it := range rec.Items {
		if _, err = tx.ExecContext(ctx,
			"INSERT INTO purchase_items (purchase_id, position, item_id, name, quantity) VALUES (?, ?, ?, ?, ?)",
			rec.ID, i, it.ID, it.Name, it.Quantity); err != nil {
			return fmt.Errorf("insert purchase item %q: %w", it.Name, err)
		}
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM items"); err != nil {
		return fmt.Errorf("clear list: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit purchase %s: %w", rec.ID, err)
	}
	logging.Store("Archived purchase %s (%d items)", rec.ID, len(rec.Items))
	return nil
}

// ListPurchases returns every purchase, newest first.
func (s *SQLiteStore) ListPurchases(ctx context.Context) ([]shopping.PurchaseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.purchased_at, pi.item_id, pi.name, pi.quantity
		FROM purchases p
		LEFT JOIN purchase_items pi ON pi.purchase_id = p.id
		ORDER BY p.purchased_at DESC, p.id, pi.position`)
	if err != nil {
		return nil, fmt.Errorf("query purchases: %w", err)
	}
	defer rows.Close()

	var (
		out   []shopping.PurchaseRecord
		index = make(map[string]int)
	)
	for rows.Next() {
		var (
			id, date string
			itemID   sql.NullInt64
			name     sql.NullString
			qty      sql.NullFloat64
		)
		if err := rows.Scan(&id, &date, &itemID, &name, &qty); err != nil {
			return nil, err
		}
		i, ok := index[id]
		if !ok {
			i = len(out)
			index[id] = i
			out = append(out, shopping.PurchaseRecord{ID: id, Date: parseTime(date), Items: []shopping.HistoricItem{}})
		}
		if itemID.Valid {
			out[i].Items = append(out[i].Items, shopping.HistoricItem{
				ID:       itemID.Int64,
				Name:     name.String,
				Quantity: qty.Float64,
			})
		}
	}
	return out, rows.Err()
}

// GetPurchase returns one purchase or shopping.ErrNotFound.
func (s *SQLiteStore) GetPurchase(ctx context.Context, id string) (shopping.PurchaseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var date string
	err := s.db.QueryRowContext(ctx, "SELECT purchased_at FROM purchases WHERE id = ?", id).Scan(&date)
	if errors.Is(err, sql.ErrNoRows) {
		return shopping.PurchaseRecord{}, fmt.Errorf("purchase %s: %w", id, shopping.ErrNotFound)
	}
	if err != nil {
		return shopping.PurchaseRecord{}, fmt.Errorf("query purchase %s: %w", id, err)
	}

	rec := shopping.PurchaseRecord{ID: id, Date: parseTime(date), Items: []shopping.HistoricItem{}}
	rows, err := s.db.QueryContext(ctx,
		"SELECT item_id, name, quantity FROM purchase_items WHERE purchase_id = ? ORDER BY position", id)
	if err != nil {
		return shopping.PurchaseRecord{}, fmt.Errorf("query purchase items %s: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var it shopping.HistoricItem
		if err := rows.Scan(&it.ID, &it.Name, &it.Quantity); err != nil {
			return shopping.PurchaseRecord{}, err
		}
		rec.Items = append(rec.Items, it)
	}
	return rec, rows.Err()
}
