package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"rentals/src/models"
	"rentals/src/types"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Repository interface {
	Create(ctx context.Context, b *models.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	FindBySessionID(ctx context.Context, sessionID string) (*models.Booking, error)
	ListByRenter(ctx context.Context, renterID uint) ([]models.Booking, error)
	// ListActive returns the pending and confirmed bookings a renter holds on a rental.
	ListActive(ctx context.Context, renterID uint, kind types.RentalType, rentalID uint) ([]models.Booking, error)
	// ListStalePending returns pending bookings created before the cutoff
	// that are not flagged for manual reconciliation.
	ListStalePending(ctx context.Context, before time.Time, limit int) ([]models.Booking, error)
	AttachSession(ctx context.Context, id uuid.UUID, sessionID string) error
	// Transition applies changes only while the booking is still in status from.
	Transition(ctx context.Context, id uuid.UUID, from types.BookingStatus, changes models.BookingChanges) (bool, error)
	UpdateDates(ctx context.Context, id uuid.UUID, from types.BookingStatus, start, end time.Time) (bool, error)
	FlagReconciliation(ctx context.Context, id uuid.UUID, note string) error
}

type Ledger interface {
	Find(ctx context.Context, kind types.RentalType, id uint) (models.RentalItem, error)
	Reserve(ctx context.Context, kind types.RentalType, id uint, start, end time.Time) error
	Release(ctx context.Context, kind types.RentalType, id uint, start, end time.Time) error
	Reschedule(ctx context.Context, kind types.RentalType, id uint, oldStart, oldEnd, newStart, newEnd time.Time) error
}

type Refunder interface {
	Refund(ctx context.Context, paymentID string, amount decimal.Decimal, currency, idempotencyKey string) (string, error)
}

const (
	NOTICE_CONFIRMED = "booking.confirmed"
	NOTICE_CANCELLED = "booking.cancelled"
)

type Notice struct {
	UserID    uint
	BookingID uuid.UUID
	Kind      string
	Title     string
	Message   string
}

// Notifier delivers notices on a best effort basis, it never fails the caller.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func WithCurrency(currency string) Option {
	return func(s *Service) {
		s.currency = currency
	}
}

type Service struct {
	// transitions of one booking are serialized within the process, the
	// conditional updates in Repository cover concurrent instances
	stripes [64]sync.Mutex

	repo     Repository
	ledger   Ledger
	refunds  Refunder
	notifier Notifier
	currency string
	now      func() time.Time
}

func NewService(repo Repository, ledger Ledger, refunds Refunder, notifier Notifier, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		ledger:   ledger,
		refunds:  refunds,
		notifier: notifier,
		currency: "usd",
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateInput struct {
	RenterID   uint
	RentalType types.RentalType
	RentalID   uint
	StartDate  time.Time
	EndDate    time.Time
	Guests     uint
}

// CreatePending records a booking awaiting payment. Inventory is only taken
// once the payment is confirmed.
func (s *Service) CreatePending(ctx context.Context, in CreateInput) (*models.Booking, models.RentalItem, error) {
	if !in.RentalType.Valid() {
		return nil, nil, invalid("rentalType", "must be one of house, hotel or car")
	}
	start, end := models.DateOnly(in.StartDate), models.DateOnly(in.EndDate)
	if !end.After(start) {
		return nil, nil, invalid("endDate", "must be after startDate")
	}
	if start.Before(models.DateOnly(s.now())) {
		return nil, nil, invalid("startDate", "must not be in the past")
	}
	if in.Guests < 1 {
		return nil, nil, invalid("guests", "must be at least 1")
	}

	item, err := s.ledger.Find(ctx, in.RentalType, in.RentalID)
	if err != nil {
		return nil, nil, err
	}
	if capacity := item.GuestCapacity(); capacity > 0 && in.Guests > capacity {
		return nil, nil, invalid("guests", fmt.Sprintf("must not exceed %d", capacity))
	}
	if !item.Covers(start, end) {
		return nil, nil, ErrInventoryConflict
	}

	active, err := s.repo.ListActive(ctx, in.RenterID, in.RentalType, in.RentalID)
	if err != nil {
		return nil, nil, err
	}
	for _, other := range active {
		if overlaps(in.RentalType, start, end, other.StartDate, other.EndDate) {
			return nil, nil, ErrOverlappingBooking
		}
	}

	units := item.Units(start, end)
	b := &models.Booking{
		ID:         uuid.New(),
		RenterID:   in.RenterID,
		RentalType: in.RentalType,
		RentalID:   in.RentalID,
		StartDate:  start,
		EndDate:    end,
		Guests:     in.Guests,
		TotalPrice: item.UnitPrice().Mul(decimal.NewFromInt(int64(units))),
		Currency:   s.currency,
		Status:     types.BOOKING_PENDING,
	}
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, nil, err
	}
	log.Printf("[Booking] created pending booking %s for %s %d (%s..%s)\n", b.ID, b.RentalType, b.RentalID, models.FormatDate(start), models.FormatDate(end))
	return b, item, nil
}

// overlaps compares two booked ranges, car ranges include their end date.
func overlaps(kind types.RentalType, s1, e1, s2, e2 time.Time) bool {
	if kind == types.RENTAL_CAR {
		return !s1.After(e2) && !s2.After(e1)
	}
	return s1.Before(e2) && s2.Before(e1)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID, actor types.Actor) (*models.Booking, error) {
	b, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(b, actor) {
		return nil, ErrForbidden
	}
	return b, nil
}

func (s *Service) FindBySession(ctx context.Context, sessionID string) (*models.Booking, error) {
	return s.repo.FindBySessionID(ctx, sessionID)
}

// ListForRenter returns the renter's bookings joined with rental display data.
func (s *Service) ListForRenter(ctx context.Context, renterID uint) ([]models.BookingView, error) {
	bookings, err := s.repo.ListByRenter(ctx, renterID)
	if err != nil {
		return nil, err
	}
	views := make([]models.BookingView, 0, len(bookings))
	for _, b := range bookings {
		view := models.BookingView{Booking: b}
		item, err := s.ledger.Find(ctx, b.RentalType, b.RentalID)
		if err == nil {
			snapshot := item.Snapshot()
			view.Rental = &snapshot
		} else if !errors.Is(err, ErrItemNotFound) {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// ListStalePending is used by the pending sweeper.
func (s *Service) ListStalePending(ctx context.Context, olderThan time.Duration, limit int) ([]models.Booking, error) {
	return s.repo.ListStalePending(ctx, s.now().Add(-olderThan), limit)
}

func (s *Service) lock(id uuid.UUID) func() {
	m := &s.stripes[int(id[15])%len(s.stripes)]
	m.Lock()
	return m.Unlock
}

func canManage(b *models.Booking, actor types.Actor) bool {
	return actor.IsAdmin() || (actor.ID != 0 && actor.ID == b.RenterID)
}
