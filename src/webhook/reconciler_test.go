package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"rentals/src/booking"
	"rentals/src/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/stripe/stripe-go/v82/webhook"
)

const testSecret = "whsec_test_secret"

type mockTransitions struct {
	mock.Mock
}

func (m *mockTransitions) Confirm(ctx context.Context, id uuid.UUID, paymentID string) (*models.Booking, error) {
	args := m.Called(ctx, id, paymentID)
	return nil, args.Error(0)
}

func (m *mockTransitions) Expire(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	args := m.Called(ctx, id)
	return nil, args.Error(0)
}

func eventPayload(eventID, eventType string, session map[string]any) []byte {
	b, _ := json.Marshal(map[string]any{
		"id":          eventID,
		"object":      "event",
		"api_version": "2025-04-30.basil",
		"type":        eventType,
		"data":        map[string]any{"object": session},
	})
	return b
}

func paidSession(bookingID uuid.UUID) map[string]any {
	return map[string]any{
		"id":             "cs_test_1",
		"object":         "checkout.session",
		"status":         "complete",
		"payment_status": "paid",
		"payment_intent": "pi_test_1",
		"metadata":       map[string]string{"booking_id": bookingID.String()},
	}
}

func sign(payload []byte) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: payload,
		Secret:  testSecret,
	}).Header
}

type ReconcilerTestSuite struct {
	suite.Suite
	machine    *mockTransitions
	events     *MemoryEventLog
	reconciler *Reconciler
	bookingID  uuid.UUID
}

func (s *ReconcilerTestSuite) SetupTest() {
	s.machine = &mockTransitions{}
	s.events = NewMemoryEventLog(time.Hour)
	s.reconciler = NewReconciler(testSecret, false, s.machine, s.events)
	s.bookingID = uuid.New()
}

func (s *ReconcilerTestSuite) TestCompletedSessionConfirmsBooking() {
	payload := eventPayload("evt_1", EVENT_SESSION_COMPLETED, paidSession(s.bookingID))
	s.machine.On("Confirm", mock.Anything, s.bookingID, "pi_test_1").Return(nil).Once()

	s.NoError(s.reconciler.Ingest(context.Background(), payload, sign(payload)))
	s.machine.AssertExpectations(s.T())
}

func (s *ReconcilerTestSuite) TestInvalidSignatureNeverReachesStateMachine() {
	payload := eventPayload("evt_1", EVENT_SESSION_COMPLETED, paidSession(s.bookingID))

	err := s.reconciler.Ingest(context.Background(), payload, "t=1,v1=deadbeef")
	s.ErrorIs(err, ErrSignatureInvalid)

	err = s.reconciler.Ingest(context.Background(), payload, "")
	s.ErrorIs(err, ErrSignatureInvalid)

	s.machine.AssertNotCalled(s.T(), "Confirm", mock.Anything, mock.Anything, mock.Anything)
}

func (s *ReconcilerTestSuite) TestTamperedPayloadRejected() {
	payload := eventPayload("evt_1", EVENT_SESSION_EXPIRED, paidSession(s.bookingID))
	header := sign(payload)
	tampered := eventPayload("evt_1", EVENT_SESSION_COMPLETED, paidSession(s.bookingID))

	s.ErrorIs(s.reconciler.Ingest(context.Background(), tampered, header), ErrSignatureInvalid)
	s.machine.AssertNotCalled(s.T(), "Confirm", mock.Anything, mock.Anything, mock.Anything)
}

func (s *ReconcilerTestSuite) TestSignedGarbageIsMalformed() {
	payload := []byte("{not json")

	s.ErrorIs(s.reconciler.Ingest(context.Background(), payload, sign(payload)), ErrMalformedPayload)
}

func (s *ReconcilerTestSuite) TestDuplicateEventProcessedOnce() {
	payload := eventPayload("evt_dup", EVENT_SESSION_COMPLETED, paidSession(s.bookingID))
	s.machine.On("Confirm", mock.Anything, s.bookingID, "pi_test_1").Return(nil).Once()

	s.NoError(s.reconciler.Ingest(context.Background(), payload, sign(payload)))
	s.NoError(s.reconciler.Ingest(context.Background(), payload, sign(payload)))
	s.machine.AssertNumberOfCalls(s.T(), "Confirm", 1)
}

func (s *ReconcilerTestSuite) TestExpiredSessionExpiresBooking() {
	session := paidSession(s.bookingID)
	session["status"] = "expired"
	session["payment_status"] = "unpaid"
	delete(session, "payment_intent")
	payload := eventPayload("evt_2", EVENT_SESSION_EXPIRED, session)
	s.machine.On("Expire", mock.Anything, s.bookingID).Return(nil).Once()

	s.NoError(s.reconciler.Ingest(context.Background(), payload, sign(payload)))
	s.machine.AssertExpectations(s.T())
}

func (s *ReconcilerTestSuite) TestUnpaidCompletionWaitsForAsyncPayment() {
	session := paidSession(s.bookingID)
	session["payment_status"] = "unpaid"
	payload := eventPayload("evt_3", EVENT_SESSION_COMPLETED, session)

	s.NoError(s.reconciler.Ingest(context.Background(), payload, sign(payload)))
	s.machine.AssertNotCalled(s.T(), "Confirm", mock.Anything, mock.Anything, mock.Anything)

	async := eventPayload("evt_4", EVENT_ASYNC_PAYMENT_SUCCEEDED, session)
	s.machine.On("Confirm", mock.Anything, s.bookingID, "pi_test_1").Return(nil).Once()
	s.NoError(s.reconciler.Ingest(context.Background(), async, sign(async)))
	s.machine.AssertExpectations(s.T())
}

func (s *ReconcilerTestSuite) TestUnrelatedEventsAcknowledged() {
	payload := eventPayload("evt_5", "customer.created", map[string]any{"id": "cus_1", "object": "customer"})

	s.NoError(s.reconciler.Ingest(context.Background(), payload, sign(payload)))
	s.machine.AssertNotCalled(s.T(), "Confirm", mock.Anything, mock.Anything, mock.Anything)
	s.machine.AssertNotCalled(s.T(), "Expire", mock.Anything, mock.Anything)
}

func (s *ReconcilerTestSuite) TestBusinessOutcomesAcknowledged() {
	payload := eventPayload("evt_6", EVENT_SESSION_COMPLETED, paidSession(s.bookingID))
	s.machine.On("Confirm", mock.Anything, s.bookingID, "pi_test_1").Return(booking.ErrInventoryConflict).Once()

	s.NoError(s.reconciler.Ingest(context.Background(), payload, sign(payload)))

	other := eventPayload("evt_7", EVENT_SESSION_COMPLETED, paidSession(s.bookingID))
	s.machine.On("Confirm", mock.Anything, s.bookingID, "pi_test_1").Return(booking.ErrBookingNotFound).Once()
	s.NoError(s.reconciler.Ingest(context.Background(), other, sign(other)))
}

func (s *ReconcilerTestSuite) TestStorageFailureReleasesClaim() {
	payload := eventPayload("evt_8", EVENT_SESSION_COMPLETED, paidSession(s.bookingID))
	s.machine.On("Confirm", mock.Anything, s.bookingID, "pi_test_1").Return(errors.New("connection refused")).Once()
	s.machine.On("Confirm", mock.Anything, s.bookingID, "pi_test_1").Return(nil).Once()

	err := s.reconciler.Ingest(context.Background(), payload, sign(payload))
	s.Error(err)
	s.NotErrorIs(err, ErrSignatureInvalid)

	// the provider retries and the event is processed this time
	s.NoError(s.reconciler.Ingest(context.Background(), payload, sign(payload)))
	s.machine.AssertNumberOfCalls(s.T(), "Confirm", 2)
}

func (s *ReconcilerTestSuite) TestUnsignedRejectedWithoutSecret() {
	r := NewReconciler("", false, s.machine, s.events)
	payload := eventPayload("evt_9", EVENT_SESSION_COMPLETED, paidSession(s.bookingID))

	s.ErrorIs(r.Ingest(context.Background(), payload, ""), ErrSignatureInvalid)
}

func (s *ReconcilerTestSuite) TestUnsignedAcceptedInDevMode() {
	r := NewReconciler("", true, s.machine, s.events)
	payload := eventPayload("evt_10", EVENT_SESSION_COMPLETED, paidSession(s.bookingID))
	s.machine.On("Confirm", mock.Anything, s.bookingID, "pi_test_1").Return(nil).Once()

	s.NoError(r.Ingest(context.Background(), payload, ""))
	s.ErrorIs(r.Ingest(context.Background(), []byte("nope"), ""), ErrMalformedPayload)
	s.machine.AssertExpectations(s.T())
}

func TestReconcilerTestSuite(t *testing.T) {
	suite.Run(t, new(ReconcilerTestSuite))
}
