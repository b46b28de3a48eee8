// Package shopping holds the shopping list domain: items, purchase history,
// supermarket price comparisons and the Service that ties them to storage
// and the AI gateway.
package shopping

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by stores for unknown item or purchase ids.
	ErrNotFound = errors.New("not found")
	// ErrEmptyName rejects items without a name.
	ErrEmptyName = errors.New("item name is required")
	// ErrNoActiveItems means every item is already checked off.
	ErrNoActiveItems = errors.New("no pending items to compare")
	// ErrNoLocation means neither a city nor coordinates were given.
	ErrNoLocation = errors.New("a city and state or coordinates are required")
	// ErrEmptyList means there is nothing to archive.
	ErrEmptyList = errors.New("shopping list is empty")
)

// Item is one line of the shopping list. Quantity is fractional so
// "0.5" kg of cheese is representable.
type Item struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Quantity  float64   `json:"quantity"`
	Completed bool      `json:"completed"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// HistoricItem is an item as it was when its purchase was completed.
type HistoricItem struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
}

// PurchaseRecord is a completed shopping trip.
type PurchaseRecord struct {
	ID    string         `json:"id"`
	Date  time.Time      `json:"date"`
	Items []HistoricItem `json:"items"`
}

// Find returns the historic item with the given id.
func (r PurchaseRecord) Find(itemID int64) (HistoricItem, bool) {
	for _, it := range r.Items {
		if it.ID == itemID {
			return it, true
		}
	}
	return HistoricItem{}, false
}
