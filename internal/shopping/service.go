package shopping

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"listacerta/internal/logging"
	"listacerta/internal/suggest"

	"github.com/google/uuid"
)

// Store persists the list and the purchase history.
type Store interface {
	AddItem(ctx context.Context, item Item) (Item, error)
	GetItem(ctx context.Context, id int64) (Item, error)
	ListItems(ctx context.Context) ([]Item, error)
	UpdateItem(ctx context.Context, item Item) error
	DeleteItem(ctx context.Context, id int64) error
	// CompletePurchase stores rec and empties the list atomically.
	CompletePurchase(ctx context.Context, rec PurchaseRecord) error
	ListPurchases(ctx context.Context) ([]PurchaseRecord, error)
	GetPurchase(ctx context.Context, id string) (PurchaseRecord, error)
}

// PriceComparer quotes a list at nearby supermarkets.
type PriceComparer interface {
	ComparePrices(ctx context.Context, items []Item, loc Location) (*Comparison, error)
}

// Service implements the shopping list operations.
type Service struct {
	store    Store
	comparer PriceComparer
	now      func() time.Time
	newID    func() string
}

// NewService creates a service. comparer may be nil when no API key is
// configured; ComparePrices then fails.
func NewService(store Store, comparer PriceComparer) *Service {
	return &Service{
		store:    store,
		comparer: comparer,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// AddItem appends a new unchecked item. A non-positive quantity becomes 1.
func (s *Service) AddItem(ctx context.Context, name string, quantity float64, imageURL string) (Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Item{}, ErrEmptyName
	}
	if quantity <= 0 {
		quantity = 1
	}
	item, err := s.store.AddItem(ctx, Item{
		Name:      name,
		Quantity:  quantity,
		ImageURL:  imageURL,
		CreatedAt: s.now(),
	})
	if err != nil {
		return Item{}, fmt.Errorf("add item %q: %w", name, err)
	}
	logging.Shopping("Added item %d %q x%v", item.ID, item.Name, item.Quantity)
	return item, nil
}

// AddSuggestion adds a picked suggestion, keeping its image.
func (s *Service) AddSuggestion(ctx context.Context, sg suggest.Suggestion, quantity float64) (Item, error) {
	var image string
	if sg.HasImage() {
		image = *sg.ImageURL
	}
	return s.AddItem(ctx, sg.Name, quantity, image)
}

// Item returns one item.
func (s *Service) Item(ctx context.Context, id int64) (Item, error) {
	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return Item{}, fmt.Errorf("get item %d: %w", id, err)
	}
	return item, nil
}

// RemoveItem deletes an item from the list.
func (s *Service) RemoveItem(ctx context.Context, id int64) error {
	if err := s.store.DeleteItem(ctx, id); err != nil {
		return fmt.Errorf("remove item %d: %w", id, err)
	}
	logging.Shopping("Removed item %d", id)
	return nil
}

// ToggleItem flips the completed flag and returns the updated item.
func (s *Service) ToggleItem(ctx context.Context, id int64) (Item, error) {
	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return Item{}, fmt.Errorf("toggle item %d: %w", id, err)
	}
	item.Completed = !item.Completed
	if err := s.store.UpdateItem(ctx, item); err != nil {
		return Item{}, fmt.Errorf("toggle item %d: %w", id, err)
	}
	return item, nil
}

// SetQuantity changes an item's quantity. Quantities must be positive.
func (s *Service) SetQuantity(ctx context.Context, id int64, quantity float64) (Item, error) {
	if quantity <= 0 {
		return Item{}, fmt.Errorf("quantity must be positive, got %v", quantity)
	}
	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return Item{}, fmt.Errorf("set quantity of item %d: %w", id, err)
	}
	item.Quantity = quantity
	if err := s.store.UpdateItem(ctx, item); err != nil {
		return Item{}, fmt.Errorf("set quantity of item %d: %w", id, err)
	}
	return item, nil
}

// Items returns the list in insertion order.
func (s *Service) Items(ctx context.Context) ([]Item, error) {
	items, err := s.store.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

// ComparePrices quotes the items still to buy at supermarkets near loc.
func (s *Service) ComparePrices(ctx context.Context, loc Location) (*Comparison, error) {
	items, err := s.Items(ctx)
	if err != nil {
		return nil, err
	}
	var active []Item
	for _, it := range items {
		if !it.Completed {
			active = append(active, it)
		}
	}
	if len(active) == 0 {
		return nil, ErrNoActiveItems
	}
	if err := loc.Validate(); err != nil {
		return nil, err
	}
	if s.comparer == nil {
		return nil, errors.New("price comparison is not configured")
	}

	timer := logging.StartTimer(logging.CategoryShopping, "ComparePrices")
	defer timer.Stop()

	cmp, err := s.comparer.ComparePrices(ctx, active, loc)
	if err != nil {
		logging.ShoppingWarn("Price comparison for %d items near %s failed: %v", len(active), loc, err)
		return nil, fmt.Errorf("compare prices: %w", err)
	}
	cmp.Location = loc
	logging.Shopping("Compared %d items at %d supermarkets near %s", len(active), len(cmp.Supermarkets), loc)
	return cmp, nil
}

// CompletePurchase archives every item, checked or not, into a new purchase
// record and clears the list.
func (s *Service) CompletePurchase(ctx context.Context) (PurchaseRecord, error) {
	items, err := s.Items(ctx)
	if err != nil {
		return PurchaseRecord{}, err
	}
	if len(items) == 0 {
		return PurchaseRecord{}, ErrEmptyList
	}

	rec := PurchaseRecord{
		ID:    s.newID(),
		Date:  s.now(),
		Items: make([]HistoricItem, len(items)),
	}
	for i, it := range items {
		rec.Items[i] = HistoricItem{ID: it.ID, Name: it.Name, Quantity: it.Quantity}
	}
	if err := s.store.CompletePurchase(ctx, rec); err != nil {
		return PurchaseRecord{}, fmt.Errorf("complete purchase: %w", err)
	}
	logging.Shopping("Completed purchase %s with %d items", rec.ID, len(rec.Items))
	return rec, nil
}

// History returns past purchases, newest first.
func (s *Service) History(ctx context.Context) ([]PurchaseRecord, error) {
	recs, err := s.store.ListPurchases(ctx)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Date.After(recs[j].Date) })
	return recs, nil
}

// ReuseItem puts an item from a past purchase back on the list, without an
// image.
func (s *Service) ReuseItem(ctx context.Context, recordID string, itemID int64) (Item, error) {
	rec, err := s.store.GetPurchase(ctx, recordID)
	if err != nil {
		return Item{}, fmt.Errorf("reuse from purchase %s: %w", recordID, err)
	}
	hist, ok := rec.Find(itemID)
	if !ok {
		return Item{}, fmt.Errorf("reuse item %d from purchase %s: %w", itemID, recordID, ErrNotFound)
	}
	return s.AddItem(ctx, hist.Name, hist.Quantity, "")
}
