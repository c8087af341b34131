package memory

import (
	"context"
	"errors"
	"rentals/src/booking"
	"rentals/src/models"
	"rentals/src/types"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// BookingStore keeps bookings in process memory. It backs STORE_DRIVER=memory
// and the unit tests.
type BookingStore struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]models.Booking
}

func NewBookingStore() *BookingStore {
	return &BookingStore{bookings: map[uuid.UUID]models.Booking{}}
}

func (s *BookingStore) Create(ctx context.Context, b *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookings[b.ID]; ok {
		return errors.New("duplicate booking id")
	}
	now := time.Now()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	s.bookings[b.ID] = *b
	return nil
}

func (s *BookingStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, booking.ErrBookingNotFound
	}
	return &b, nil
}

func (s *BookingStore) FindBySessionID(ctx context.Context, sessionID string) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bookings {
		if b.CheckoutSessionID != nil && *b.CheckoutSessionID == sessionID {
			return &b, nil
		}
	}
	return nil, booking.ErrBookingNotFound
}

func (s *BookingStore) ListByRenter(ctx context.Context, renterID uint) ([]models.Booking, error) {
	return s.filter(func(b models.Booking) bool {
		return b.RenterID == renterID
	}), nil
}

func (s *BookingStore) ListActive(ctx context.Context, renterID uint, kind types.RentalType, rentalID uint) ([]models.Booking, error) {
	return s.filter(func(b models.Booking) bool {
		return b.RenterID == renterID && b.RentalType == kind && b.RentalID == rentalID &&
			(b.Status == types.BOOKING_PENDING || b.Status == types.BOOKING_CONFIRMED)
	}), nil
}

func (s *BookingStore) ListStalePending(ctx context.Context, before time.Time, limit int) ([]models.Booking, error) {
	stale := s.filter(func(b models.Booking) bool {
		return b.Status == types.BOOKING_PENDING && !b.NeedsReconciliation && b.CreatedAt.Before(before)
	})
	if limit > 0 && len(stale) > limit {
		stale = stale[:limit]
	}
	return stale, nil
}

func (s *BookingStore) AttachSession(ctx context.Context, id uuid.UUID, sessionID string) error {
	return s.update(id, func(b *models.Booking) bool {
		b.CheckoutSessionID = &sessionID
		return true
	})
}

func (s *BookingStore) Transition(ctx context.Context, id uuid.UUID, from types.BookingStatus, changes models.BookingChanges) (bool, error) {
	applied := false
	err := s.update(id, func(b *models.Booking) bool {
		if b.Status != from {
			return false
		}
		changes.Apply(b)
		applied = true
		return true
	})
	return applied, err
}

func (s *BookingStore) UpdateDates(ctx context.Context, id uuid.UUID, from types.BookingStatus, start, end time.Time) (bool, error) {
	applied := false
	err := s.update(id, func(b *models.Booking) bool {
		if b.Status != from {
			return false
		}
		b.StartDate, b.EndDate = start, end
		applied = true
		return true
	})
	return applied, err
}

func (s *BookingStore) FlagReconciliation(ctx context.Context, id uuid.UUID, note string) error {
	return s.update(id, func(b *models.Booking) bool {
		b.NeedsReconciliation = true
		b.ReconciliationNote = &note
		return true
	})
}

func (s *BookingStore) update(id uuid.UUID, fn func(b *models.Booking) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return booking.ErrBookingNotFound
	}
	if fn(&b) {
		b.UpdatedAt = time.Now()
		s.bookings[id] = b
	}
	return nil
}

func (s *BookingStore) filter(keep func(models.Booking) bool) []models.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Booking{}
	for _, b := range s.bookings {
		if keep(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
