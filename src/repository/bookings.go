package repository

import (
	"context"
	"errors"
	"rentals/src/booking"
	"rentals/src/models"
	"rentals/src/models/scopes"
	"rentals/src/types"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) Create(ctx context.Context, b *models.Booking) error {
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *BookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var b models.Booking
	if err := r.db.WithContext(ctx).Scopes(scopes.WithID(id)).First(&b).Error; err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

func (r *BookingRepository) FindBySessionID(ctx context.Context, sessionID string) (*models.Booking, error) {
	var b models.Booking
	if err := r.db.WithContext(ctx).Where("checkout_session_id = ?", sessionID).First(&b).Error; err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

func (r *BookingRepository) ListByRenter(ctx context.Context, renterID uint) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.WithContext(ctx).
		Scopes(scopes.ForRenter(renterID)).
		Order("created_at desc").
		Find(&bookings).
		Error
	return bookings, err
}

func (r *BookingRepository) ListActive(ctx context.Context, renterID uint, kind types.RentalType, rentalID uint) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.WithContext(ctx).
		Scopes(scopes.ForRenter(renterID), scopes.ForRental(kind, rentalID), scopes.Active).
		Find(&bookings).
		Error
	return bookings, err
}

func (r *BookingRepository) ListStalePending(ctx context.Context, before time.Time, limit int) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.WithContext(ctx).
		Scopes(scopes.WithPendingStatus, scopes.Reconciled, scopes.CreatedBefore(before)).
		Order("created_at").
		Limit(limit).
		Find(&bookings).
		Error
	return bookings, err
}

func (r *BookingRepository) AttachSession(ctx context.Context, id uuid.UUID, sessionID string) error {
	res := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Scopes(scopes.WithID(id)).
		Update("checkout_session_id", sessionID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return booking.ErrBookingNotFound
	}
	return nil
}

// Transition is a conditional update, concurrent callers cannot both move
// the booking out of the same status.
func (r *BookingRepository) Transition(ctx context.Context, id uuid.UUID, from types.BookingStatus, changes models.BookingChanges) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Scopes(scopes.WithID(id), scopes.WithStatus(from)).
		Updates(changes.Columns())
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *BookingRepository) UpdateDates(ctx context.Context, id uuid.UUID, from types.BookingStatus, start, end time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Scopes(scopes.WithID(id), scopes.WithStatus(from)).
		Updates(map[string]any{"start_date": start, "end_date": end})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *BookingRepository) FlagReconciliation(ctx context.Context, id uuid.UUID, note string) error {
	return r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Scopes(scopes.WithID(id)).
		Updates(map[string]any{"needs_reconciliation": true, "reconciliation_note": note}).
		Error
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return booking.ErrBookingNotFound
	}
	return err
}
