package common

import (
	"context"
	"errors"
	"log"
	"rentals/src/booking"
	"rentals/src/models"
	"rentals/src/payment"
	"rentals/src/types"
	"time"

	"github.com/google/uuid"
)

type BookingMachine interface {
	Confirm(ctx context.Context, id uuid.UUID, paymentID string) (*models.Booking, error)
	Expire(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	ListStalePending(ctx context.Context, olderThan time.Duration, limit int) ([]models.Booking, error)
}

type SessionLookup interface {
	RetrieveSessionStatus(ctx context.Context, sessionID string) (*payment.SessionStatus, error)
}

// SyncBookingWithSession applies the provider's view of a checkout session to
// a pending booking. It covers webhooks that were lost or delayed.
func SyncBookingWithSession(ctx context.Context, machine BookingMachine, sessions SessionLookup, b *models.Booking) (*models.Booking, error) {
	if b.Status != types.BOOKING_PENDING || b.CheckoutSessionID == nil || *b.CheckoutSessionID == "" {
		return b, nil
	}
	status, err := sessions.RetrieveSessionStatus(ctx, *b.CheckoutSessionID)
	if err != nil {
		return b, err
	}
	return ApplySessionStatus(ctx, machine, b, status)
}

func ApplySessionStatus(ctx context.Context, machine BookingMachine, b *models.Booking, status *payment.SessionStatus) (*models.Booking, error) {
	if b.Status != types.BOOKING_PENDING {
		return b, nil
	}
	switch {
	case status.Settled():
		log.Printf("[PendingBookings] session %s is paid, confirming %s\n", status.SessionID, b.ID)
		return machine.Confirm(ctx, b.ID, status.PaymentID)
	case status.Status == payment.SESSION_EXPIRED:
		log.Printf("[PendingBookings] session %s expired, expiring %s\n", status.SessionID, b.ID)
		return machine.Expire(ctx, b.ID)
	}
	return b, nil
}

type SweepResult struct {
	Checked   int
	Confirmed int
	Expired   int
	Failed    int
}

// PendingSweeper resolves pending bookings whose checkout window has passed.
type PendingSweeper struct {
	machine  BookingMachine
	sessions SessionLookup
	// bookings older than this have outlived their checkout session
	cutoff time.Duration
	limit  int
}

func NewPendingSweeper(machine BookingMachine, sessions SessionLookup, checkoutTTL time.Duration, limit int) *PendingSweeper {
	if limit <= 0 {
		limit = 100
	}
	return &PendingSweeper{
		machine:  machine,
		sessions: sessions,
		cutoff:   checkoutTTL + 5*time.Minute,
		limit:    limit,
	}
}

func (p *PendingSweeper) Sweep(ctx context.Context) (*SweepResult, error) {
	stale, err := p.machine.ListStalePending(ctx, p.cutoff, p.limit)
	if err != nil {
		log.Printf("[PendingBookings] Error listing pending bookings: %s\n", err.Error())
		return nil, err
	}
	result := &SweepResult{Checked: len(stale)}
	for i := range stale {
		b := &stale[i]
		var updated *models.Booking
		if b.CheckoutSessionID == nil || *b.CheckoutSessionID == "" {
			// checkout never started
			updated, err = p.machine.Expire(ctx, b.ID)
		} else {
			updated, err = SyncBookingWithSession(ctx, p.machine, p.sessions, b)
		}
		if err != nil {
			if !errors.Is(err, booking.ErrInventoryConflict) && !errors.Is(err, booking.ErrInvalidTransition) {
				log.Printf("[PendingBookings] Error resolving %s: %s\n", b.ID, err.Error())
			}
			result.Failed++
			continue
		}
		switch updated.Status {
		case types.BOOKING_CONFIRMED:
			result.Confirmed++
		case types.BOOKING_EXPIRED:
			result.Expired++
		}
	}
	if result.Checked > 0 {
		log.Printf("[PendingBookings] checked %d, confirmed %d, expired %d, failed %d\n", result.Checked, result.Confirmed, result.Expired, result.Failed)
	}
	return result, nil
}

// Run is the scheduler task.
func (p *PendingSweeper) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	p.Sweep(ctx)
}
