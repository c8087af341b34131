package memory

import (
	"context"
	"fmt"
	"rentals/src/inventory"
	"rentals/src/models"
	"rentals/src/types"
	"sync"
)

type rentalKey struct {
	kind types.RentalType
	id   uint
}

// RentalStore keeps rentals in process memory with the same versioned
// compare-and-set semantics as the database store.
type RentalStore struct {
	mu    sync.Mutex
	items map[rentalKey]models.RentalItem
}

func NewRentalStore(items ...models.RentalItem) *RentalStore {
	s := &RentalStore{items: map[rentalKey]models.RentalItem{}}
	for _, item := range items {
		s.items[rentalKey{item.Kind(), item.ItemID()}] = clone(item)
	}
	return s
}

func (s *RentalStore) Find(ctx context.Context, kind types.RentalType, id uint) (models.RentalItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[rentalKey{kind, id}]
	if !ok {
		return nil, inventory.ErrItemNotFound
	}
	return clone(item), nil
}

func (s *RentalStore) Save(ctx context.Context, item models.RentalItem) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := rentalKey{item.Kind(), item.ItemID()}
	current, ok := s.items[key]
	if !ok {
		return false, inventory.ErrItemNotFound
	}
	if current.Revision() != item.Revision() {
		return false, nil
	}
	next := clone(item)
	if err := bump(next); err != nil {
		return false, err
	}
	s.items[key] = next
	return true, nil
}

func clone(item models.RentalItem) models.RentalItem {
	switch v := item.(type) {
	case *models.House:
		c := *v
		c.AvailableDates = append(types.StringList{}, v.AvailableDates...)
		c.Images = append(types.StringList{}, v.Images...)
		return &c
	case *models.Car:
		c := *v
		c.AvailableDates = append(types.StringList{}, v.AvailableDates...)
		c.Images = append(types.StringList{}, v.Images...)
		return &c
	case *models.Hotel:
		c := *v
		c.Images = append(types.StringList{}, v.Images...)
		return &c
	}
	return item
}

func bump(item models.RentalItem) error {
	switch v := item.(type) {
	case *models.House:
		v.Version++
	case *models.Car:
		v.Version++
	case *models.Hotel:
		v.Version++
	default:
		return fmt.Errorf("unsupported rental %T", item)
	}
	return nil
}
