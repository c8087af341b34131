package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"rentals/src/inventory"
	"rentals/src/models"
	"rentals/src/types"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Confirm moves a pending booking to confirmed once its payment succeeded.
// Confirming an already confirmed booking is a no-op, so duplicate or late
// payment events are harmless.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID, paymentID string) (*models.Booking, error) {
	defer s.lock(id)()

	b, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch b.Status {
	case types.BOOKING_CONFIRMED:
		log.Printf("[Booking] %s already confirmed, ignoring\n", b.ID)
		return b, nil
	case types.BOOKING_PENDING:
	default:
		log.Printf("[Booking] ALERT: payment %s received for %s booking %s\n", paymentID, b.Status, b.ID)
		return b, fmt.Errorf("confirm %s booking: %w", b.Status, ErrInvalidTransition)
	}

	if err := s.ledger.Reserve(ctx, b.RentalType, b.RentalID, b.StartDate, b.EndDate); err != nil {
		if !errors.Is(err, inventory.ErrOutOfInventory) {
			return nil, err
		}
		// a concurrent confirm of the same booking may have taken the dates
		if current, ferr := s.repo.FindByID(ctx, id); ferr == nil && current.Status == types.BOOKING_CONFIRMED {
			return current, nil
		}
		note := fmt.Sprintf("payment %s captured but %s %d is no longer available", paymentID, b.RentalType, b.RentalID)
		log.Printf("[Booking] ALERT: booking %s needs reconciliation: %s\n", b.ID, note)
		if ferr := s.repo.FlagReconciliation(ctx, b.ID, note); ferr != nil {
			log.Printf("[Booking] could not flag booking %s: %s\n", b.ID, ferr.Error())
		}
		return b, ErrInventoryConflict
	}

	now := s.now()
	changes := models.BookingChanges{Status: types.BOOKING_CONFIRMED, PaidAt: &now}
	if paymentID != "" {
		changes.PaymentID = &paymentID
	}
	ok, err := s.repo.Transition(ctx, b.ID, types.BOOKING_PENDING, changes)
	if err != nil || !ok {
		// lost the race, give back what we took
		if rerr := s.ledger.Release(ctx, b.RentalType, b.RentalID, b.StartDate, b.EndDate); rerr != nil {
			log.Printf("[Booking] ALERT: could not release inventory for %s: %s\n", b.ID, rerr.Error())
		}
		if err != nil {
			return nil, err
		}
		current, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if current.Status == types.BOOKING_CONFIRMED {
			return current, nil
		}
		return current, fmt.Errorf("confirm %s booking: %w", current.Status, ErrInvalidTransition)
	}
	changes.Apply(b)
	log.Printf("[Booking] confirmed %s (payment %s)\n", b.ID, paymentID)

	s.notifier.Notify(ctx, Notice{
		UserID:    b.RenterID,
		BookingID: b.ID,
		Kind:      NOTICE_CONFIRMED,
		Title:     "Booking confirmed",
		Message:   fmt.Sprintf("Your booking from %s to %s is confirmed.", models.FormatDate(b.StartDate), models.FormatDate(b.EndDate)),
	})
	return b, nil
}

// Expire abandons a pending booking. Any other status is left untouched.
func (s *Service) Expire(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	defer s.lock(id)()

	b, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status != types.BOOKING_PENDING {
		log.Printf("[Booking] not expiring %s booking %s\n", b.Status, b.ID)
		return b, nil
	}
	changes := models.BookingChanges{Status: types.BOOKING_EXPIRED}
	ok, err := s.repo.Transition(ctx, b.ID, types.BOOKING_PENDING, changes)
	if err != nil {
		return nil, err
	}
	if !ok {
		return s.repo.FindByID(ctx, id)
	}
	changes.Apply(b)
	log.Printf("[Booking] expired %s\n", b.ID)
	return b, nil
}

type CancellationOutcome struct {
	Booking          *models.Booking `json:"booking"`
	RefundAmount     decimal.Decimal `json:"refundAmount"`
	RefundPercentage int             `json:"refundPercentage"`
	RefundReference  string          `json:"refundReference,omitempty"`
}

// Cancel cancels a confirmed booking on behalf of its renter or an admin.
// The refund is issued before anything else changes, a failed refund
// leaves the booking confirmed.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, actor types.Actor) (*CancellationOutcome, error) {
	defer s.lock(id)()

	b, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(b, actor) {
		log.Printf("[Booking] user %d is not allowed to cancel %s\n", actor.ID, b.ID)
		return nil, ErrForbidden
	}
	if b.Status != types.BOOKING_CONFIRMED {
		return nil, fmt.Errorf("cancel %s booking: %w", b.Status, ErrInvalidTransition)
	}

	now := s.now()
	pct := RefundPercentage(DaysUntilStart(b.StartDate, now))
	amount := RefundAmount(b.TotalPrice, pct)

	var reference string
	if b.PaymentID != nil && *b.PaymentID != "" && amount.IsPositive() {
		reference, err = s.refunds.Refund(ctx, *b.PaymentID, amount, b.Currency, refundKey(b.ID, amount))
		if err != nil {
			log.Printf("[Booking] refund of %s for %s failed: %s\n", amount, b.ID, err.Error())
			return nil, fmt.Errorf("%w: %s", ErrRefundFailed, err.Error())
		}
	}

	changes := models.BookingChanges{
		Status:           types.BOOKING_CANCELLED,
		RefundAmount:     &amount,
		RefundPercentage: &pct,
		CancelledAt:      &now,
	}
	if reference != "" {
		changes.RefundReference = &reference
	}
	ok, err := s.repo.Transition(ctx, b.ID, types.BOOKING_CONFIRMED, changes)
	if err != nil {
		log.Printf("[Booking] ALERT: refund %s issued but booking %s was not updated: %s\n", reference, b.ID, err.Error())
		return nil, err
	}
	if !ok {
		current, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("cancel %s booking: %w", current.Status, ErrInvalidTransition)
	}
	changes.Apply(b)

	if err := s.ledger.Release(ctx, b.RentalType, b.RentalID, b.StartDate, b.EndDate); err != nil {
		log.Printf("[Booking] ALERT: could not release inventory for cancelled booking %s: %s\n", b.ID, err.Error())
	}
	log.Printf("[Booking] cancelled %s, refunded %d%% (%s)\n", b.ID, pct, amount)

	s.notifier.Notify(ctx, Notice{
		UserID:    b.RenterID,
		BookingID: b.ID,
		Kind:      NOTICE_CANCELLED,
		Title:     "Booking cancelled",
		Message:   fmt.Sprintf("Your booking was cancelled. Refund: %s %s (%d%%).", amount.StringFixed(2), b.Currency, pct),
	})

	return &CancellationOutcome{
		Booking:          b,
		RefundAmount:     amount,
		RefundPercentage: pct,
		RefundReference:  reference,
	}, nil
}

// UpdateDates moves a booking that is not cancelled. A confirmed booking
// keeps its inventory consistent by moving the held range. The number of
// billable nights or days is fixed by the checkout amount, so only shifts
// that keep it are accepted.
func (s *Service) UpdateDates(ctx context.Context, id uuid.UUID, actor types.Actor, newStart, newEnd *time.Time) (*models.Booking, error) {
	defer s.lock(id)()

	b, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(b, actor) {
		return nil, ErrForbidden
	}
	if b.Status == types.BOOKING_CANCELLED {
		return nil, fmt.Errorf("reschedule %s booking: %w", b.Status, ErrInvalidTransition)
	}

	start, end := b.StartDate, b.EndDate
	if newStart != nil {
		start = models.DateOnly(*newStart)
	}
	if newEnd != nil {
		end = models.DateOnly(*newEnd)
	}
	if !end.After(start) {
		return nil, invalid("endDate", "must be after startDate")
	}
	if start.Before(models.DateOnly(s.now())) {
		return nil, invalid("startDate", "must not be in the past")
	}
	if start.Equal(b.StartDate) && end.Equal(b.EndDate) {
		return b, nil
	}
	item, err := s.ledger.Find(ctx, b.RentalType, b.RentalID)
	if err != nil {
		return nil, err
	}
	if booked := item.Units(b.StartDate, b.EndDate); item.Units(start, end) != booked {
		unit := "nights"
		if b.RentalType == types.RENTAL_CAR {
			unit = "days"
		}
		return nil, invalid("endDate", fmt.Sprintf("must keep the booked length of %d %s", booked, unit))
	}

	held := b.Status == types.BOOKING_CONFIRMED
	if held {
		if err := s.ledger.Reschedule(ctx, b.RentalType, b.RentalID, b.StartDate, b.EndDate, start, end); err != nil {
			if errors.Is(err, inventory.ErrOutOfInventory) {
				return nil, ErrInventoryConflict
			}
			return nil, err
		}
	}
	ok, err := s.repo.UpdateDates(ctx, b.ID, b.Status, start, end)
	if err != nil || !ok {
		if held {
			if rerr := s.ledger.Reschedule(ctx, b.RentalType, b.RentalID, start, end, b.StartDate, b.EndDate); rerr != nil {
				log.Printf("[Booking] ALERT: could not restore inventory for %s: %s\n", b.ID, rerr.Error())
			}
		}
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("reschedule booking: %w", ErrInvalidTransition)
	}
	log.Printf("[Booking] rescheduled %s to %s..%s\n", b.ID, models.FormatDate(start), models.FormatDate(end))
	b.StartDate, b.EndDate = start, end
	return b, nil
}

// refundKey changes with the amount, a retry after the refund window moved
// must not reuse the key of the earlier attempt.
func refundKey(id uuid.UUID, amount decimal.Decimal) string {
	return fmt.Sprintf("refund-%s-%s", id, amount.StringFixed(2))
}
