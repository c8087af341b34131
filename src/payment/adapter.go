package payment

import (
	"context"
	"fmt"
	"log"
	"rentals/src/models"
	"rentals/src/types"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SessionStore interface {
	AttachSession(ctx context.Context, id uuid.UUID, sessionID string) error
}

// Adapter turns bookings into provider checkout sessions and refunds.
type Adapter struct {
	gateway Gateway
	store   SessionStore
	appHost string
	ttl     time.Duration
	now     func() time.Time
}

func NewAdapter(gateway Gateway, store SessionStore, appHost string, ttl time.Duration) *Adapter {
	return &Adapter{
		gateway: gateway,
		store:   store,
		appHost: strings.TrimRight(appHost, "/"),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (a *Adapter) CreateSession(ctx context.Context, b *models.Booking, rental models.Snapshot) (*Session, error) {
	if b.Status != types.BOOKING_PENDING {
		return nil, ErrNotPending
	}
	if b.CheckoutSessionID != nil && *b.CheckoutSessionID != "" {
		return nil, ErrSessionExists
	}
	req := CheckoutRequest{
		BookingID:   b.ID.String(),
		CustomerRef: fmt.Sprintf("%d", b.RenterID),
		AmountMinor: ToMinorUnits(b.TotalPrice, b.Currency),
		Currency:    b.Currency,
		ProductName: rental.Title,
		Description: fmt.Sprintf("%s to %s, %d guest(s)", models.FormatDate(b.StartDate), models.FormatDate(b.EndDate), b.Guests),
		Image:       rental.Image,
		SuccessURL:  fmt.Sprintf("%s/checkout/success?session_id={CHECKOUT_SESSION_ID}", a.appHost),
		CancelURL:   fmt.Sprintf("%s/checkout/cancel?booking_id=%s", a.appHost, b.ID),
		ExpiresAt:   a.now().Add(a.ttl),
	}
	session, err := a.gateway.CreateCheckoutSession(ctx, req)
	if err != nil {
		log.Printf("[Payment] could not create checkout session for %s: %s\n", b.ID, err.Error())
		return nil, fmt.Errorf("%w: %s", ErrProvider, err.Error())
	}
	if err := a.store.AttachSession(ctx, b.ID, session.SessionID); err != nil {
		log.Printf("[Payment] created session %s but could not store it on %s: %s\n", session.SessionID, b.ID, err.Error())
		return nil, err
	}
	b.CheckoutSessionID = &session.SessionID
	log.Printf("[Payment] checkout session %s created for %s\n", session.SessionID, b.ID)
	return session, nil
}

// Refund returns part or all of a captured payment. The idempotency key
// makes retries of the same cancellation refund only once.
func (a *Adapter) Refund(ctx context.Context, paymentID string, amount decimal.Decimal, currency, idempotencyKey string) (string, error) {
	ref, err := a.gateway.CreateRefund(ctx, RefundRequest{
		PaymentID:      paymentID,
		AmountMinor:    ToMinorUnits(amount, currency),
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrProvider, err.Error())
	}
	log.Printf("[Payment] refund %s issued for %s (%s %s)\n", ref, paymentID, amount.StringFixed(2), currency)
	return ref, nil
}

func (a *Adapter) RetrieveSessionStatus(ctx context.Context, sessionID string) (*SessionStatus, error) {
	status, err := a.gateway.RetrieveSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrProvider, err.Error())
	}
	return status, nil
}
