package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"rentals/src/booking"
	"rentals/src/models"
	"rentals/src/payment"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"github.com/tidwall/gjson"
)

var (
	ErrSignatureInvalid = errors.New("webhook signature verification failed")
	ErrMalformedPayload = errors.New("webhook payload could not be parsed")
)

const (
	EVENT_SESSION_COMPLETED       = "checkout.session.completed"
	EVENT_SESSION_EXPIRED         = "checkout.session.expired"
	EVENT_ASYNC_PAYMENT_SUCCEEDED = "checkout.session.async_payment_succeeded"
	EVENT_ASYNC_PAYMENT_FAILED    = "checkout.session.async_payment_failed"
)

// Transitions is the part of the booking state machine driven by payments.
type Transitions interface {
	Confirm(ctx context.Context, id uuid.UUID, paymentID string) (*models.Booking, error)
	Expire(ctx context.Context, id uuid.UUID) (*models.Booking, error)
}

// Reconciler applies provider payment events to bookings. Events may arrive
// more than once and in any order.
type Reconciler struct {
	secret        string
	allowUnsigned bool
	machine       Transitions
	events        EventLog
}

func NewReconciler(secret string, allowUnsigned bool, machine Transitions, events EventLog) *Reconciler {
	if secret == "" {
		if allowUnsigned {
			log.Println("[Webhook] WARNING: no signing secret configured, UNSIGNED payment events will be accepted")
		} else {
			log.Println("[Webhook] WARNING: no signing secret configured, every payment event will be rejected")
		}
	}
	return &Reconciler{
		secret:        secret,
		allowUnsigned: allowUnsigned,
		machine:       machine,
		events:        events,
	}
}

// Ingest authenticates, parses and applies one webhook delivery. Only
// ErrSignatureInvalid and ErrMalformedPayload are caller errors, any other
// error is an infrastructure failure worth a provider retry.
func (r *Reconciler) Ingest(ctx context.Context, payload []byte, signature string) error {
	event, err := r.authenticate(payload, signature)
	if err != nil {
		return err
	}
	log.Printf("[Webhook] %s %s\n", event.ID, event.Type)

	switch event.Type {
	case EVENT_SESSION_COMPLETED, EVENT_SESSION_EXPIRED, EVENT_ASYNC_PAYMENT_SUCCEEDED, EVENT_ASYNC_PAYMENT_FAILED:
	default:
		return nil
	}

	if event.Data == nil {
		return fmt.Errorf("%w: event %s has no data", ErrMalformedPayload, event.ID)
	}
	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		log.Printf("[Webhook] Error parsing CheckoutSession: %s\n", err.Error())
		return fmt.Errorf("%w: %s", ErrMalformedPayload, err.Error())
	}
	status := payment.StatusFromCheckoutSession(&cs)
	bookingID, err := uuid.Parse(status.BookingID)
	if err != nil {
		log.Printf("[Webhook] session %s does not reference a booking, ignoring\n", cs.ID)
		return nil
	}

	claimed, err := r.events.Claim(ctx, event.ID)
	if err != nil {
		// the state machine is idempotent, carry on without dedupe
		log.Printf("[Webhook] could not record event %s: %s\n", event.ID, err.Error())
	} else if !claimed {
		log.Printf("[Webhook] event %s already processed\n", event.ID)
		return nil
	}

	if err := r.apply(ctx, string(event.Type), bookingID, status); err != nil {
		if ferr := r.events.Forget(ctx, event.ID); ferr != nil {
			log.Printf("[Webhook] could not release event %s: %s\n", event.ID, ferr.Error())
		}
		return err
	}
	return nil
}

func (r *Reconciler) authenticate(payload []byte, signature string) (*stripe.Event, error) {
	if r.secret == "" {
		if !r.allowUnsigned {
			log.Println("[Webhook] rejecting event, no signing secret configured")
			return nil, ErrSignatureInvalid
		}
		log.Println("[Webhook] WARNING: accepting UNSIGNED event, signature verification is disabled")
		if !gjson.ValidBytes(payload) || !gjson.GetBytes(payload, "id").Exists() {
			return nil, ErrMalformedPayload
		}
		var event stripe.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrMalformedPayload, err.Error())
		}
		return &event, nil
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, r.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		if isSignatureError(err) {
			log.Printf("[Webhook] possible tampering, signature check failed: %s\n", err.Error())
			return nil, ErrSignatureInvalid
		}
		log.Printf("[Webhook] Error parsing event: %s\n", err.Error())
		return nil, fmt.Errorf("%w: %s", ErrMalformedPayload, err.Error())
	}
	if event.ID == "" {
		return nil, ErrMalformedPayload
	}
	return &event, nil
}

func isSignatureError(err error) bool {
	return errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrTooOld)
}

func (r *Reconciler) apply(ctx context.Context, eventType string, bookingID uuid.UUID, status *payment.SessionStatus) error {
	var err error
	switch eventType {
	case EVENT_SESSION_COMPLETED:
		if !status.Settled() {
			log.Printf("[Webhook] session %s completed with payment %s, waiting for async payment\n", status.SessionID, status.PaymentStatus)
			return nil
		}
		_, err = r.machine.Confirm(ctx, bookingID, status.PaymentID)
	case EVENT_ASYNC_PAYMENT_SUCCEEDED:
		_, err = r.machine.Confirm(ctx, bookingID, status.PaymentID)
	case EVENT_SESSION_EXPIRED, EVENT_ASYNC_PAYMENT_FAILED:
		_, err = r.machine.Expire(ctx, bookingID)
	}
	switch {
	case err == nil:
		return nil
	case errors.Is(err, booking.ErrBookingNotFound):
		log.Printf("[Webhook] booking %s not found for session %s\n", bookingID, status.SessionID)
		return nil
	case errors.Is(err, booking.ErrInvalidTransition), errors.Is(err, booking.ErrInventoryConflict):
		log.Printf("[Webhook] booking %s left unchanged: %s\n", bookingID, err.Error())
		return nil
	}
	log.Printf("[Webhook] Error applying %s to booking %s: %s\n", eventType, bookingID, err.Error())
	return fmt.Errorf("apply %s: %w", eventType, err)
}
