package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"rentals/src/models"
	"rentals/src/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/stripe/stripe-go/v82"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*Session, error) {
	args := m.Called(ctx, req)
	if s, ok := args.Get(0).(*Session); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockGateway) RetrieveSession(ctx context.Context, sessionID string) (*SessionStatus, error) {
	args := m.Called(ctx, sessionID)
	if s, ok := args.Get(0).(*SessionStatus); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockGateway) CreateRefund(ctx context.Context, req RefundRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) AttachSession(ctx context.Context, id uuid.UUID, sessionID string) error {
	return m.Called(ctx, id, sessionID).Error(0)
}

type AdapterTestSuite struct {
	suite.Suite
	gateway *mockGateway
	store   *mockStore
	adapter *Adapter
	now     time.Time
}

func (s *AdapterTestSuite) SetupTest() {
	s.gateway = &mockGateway{}
	s.store = &mockStore{}
	s.now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.adapter = NewAdapter(s.gateway, s.store, "https://rentals.test/", time.Hour)
	s.adapter.now = func() time.Time { return s.now }
}

func (s *AdapterTestSuite) pendingBooking() *models.Booking {
	return &models.Booking{
		ID:         uuid.New(),
		RenterID:   42,
		RentalType: types.RENTAL_HOUSE,
		RentalID:   1,
		StartDate:  time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC),
		Guests:     2,
		TotalPrice: decimal.RequireFromString("300.50"),
		Currency:   "usd",
		Status:     types.BOOKING_PENDING,
	}
}

func (s *AdapterTestSuite) TestCreateSessionStoresSessionID() {
	b := s.pendingBooking()
	s.gateway.On("CreateCheckoutSession", mock.Anything, mock.MatchedBy(func(req CheckoutRequest) bool {
		return req.BookingID == b.ID.String() &&
			req.AmountMinor == 30050 &&
			req.ProductName == "Beach house" &&
			req.ExpiresAt.Equal(s.now.Add(time.Hour)) &&
			req.SuccessURL == "https://rentals.test/checkout/success?session_id={CHECKOUT_SESSION_ID}"
	})).Return(&Session{SessionID: "cs_1", RedirectURL: "https://pay.test/cs_1"}, nil)
	s.store.On("AttachSession", mock.Anything, b.ID, "cs_1").Return(nil)

	session, err := s.adapter.CreateSession(context.Background(), b, models.Snapshot{Title: "Beach house"})
	s.Require().NoError(err)
	s.Equal("https://pay.test/cs_1", session.RedirectURL)
	s.Equal("cs_1", *b.CheckoutSessionID)
	s.gateway.AssertExpectations(s.T())
	s.store.AssertExpectations(s.T())
}

func (s *AdapterTestSuite) TestCreateSessionRejectsExistingSession() {
	b := s.pendingBooking()
	existing := "cs_old"
	b.CheckoutSessionID = &existing

	_, err := s.adapter.CreateSession(context.Background(), b, models.Snapshot{})
	s.ErrorIs(err, ErrSessionExists)
	s.gateway.AssertNotCalled(s.T(), "CreateCheckoutSession", mock.Anything, mock.Anything)
}

func (s *AdapterTestSuite) TestCreateSessionRejectsConfirmedBooking() {
	b := s.pendingBooking()
	b.Status = types.BOOKING_CONFIRMED

	_, err := s.adapter.CreateSession(context.Background(), b, models.Snapshot{})
	s.ErrorIs(err, ErrNotPending)
}

func (s *AdapterTestSuite) TestCreateSessionProviderFailure() {
	b := s.pendingBooking()
	s.gateway.On("CreateCheckoutSession", mock.Anything, mock.Anything).Return(nil, errors.New("card network down"))

	_, err := s.adapter.CreateSession(context.Background(), b, models.Snapshot{})
	s.ErrorIs(err, ErrProvider)
	s.Nil(b.CheckoutSessionID)
	s.store.AssertNotCalled(s.T(), "AttachSession", mock.Anything, mock.Anything, mock.Anything)
}

func (s *AdapterTestSuite) TestRefundPassesIdempotencyKey() {
	s.gateway.On("CreateRefund", mock.Anything, RefundRequest{
		PaymentID:      "pi_1",
		AmountMinor:    15000,
		IdempotencyKey: "refund-abc",
	}).Return("re_1", nil)

	ref, err := s.adapter.Refund(context.Background(), "pi_1", decimal.RequireFromString("150"), "usd", "refund-abc")
	s.Require().NoError(err)
	s.Equal("re_1", ref)
}

func (s *AdapterTestSuite) TestRefundFailure() {
	s.gateway.On("CreateRefund", mock.Anything, mock.Anything).Return("", errors.New("charge already refunded"))

	_, err := s.adapter.Refund(context.Background(), "pi_1", decimal.RequireFromString("150"), "usd", "refund-abc")
	s.ErrorIs(err, ErrProvider)
}

func (s *AdapterTestSuite) TestRetrieveSessionStatus() {
	s.gateway.On("RetrieveSession", mock.Anything, "cs_1").Return(&SessionStatus{
		SessionID:     "cs_1",
		Status:        SESSION_COMPLETE,
		PaymentStatus: PAYMENT_PAID,
		PaymentID:     "pi_1",
	}, nil)

	status, err := s.adapter.RetrieveSessionStatus(context.Background(), "cs_1")
	s.Require().NoError(err)
	s.True(status.Settled())
}

func TestAdapterTestSuite(t *testing.T) {
	suite.Run(t, new(AdapterTestSuite))
}

func TestToMinorUnits(t *testing.T) {
	assert.Equal(t, int64(30000), ToMinorUnits(decimal.RequireFromString("300"), "usd"))
	assert.Equal(t, int64(1999), ToMinorUnits(decimal.RequireFromString("19.99"), "EUR"))
	assert.Equal(t, int64(5000), ToMinorUnits(decimal.RequireFromString("5000"), "jpy"))
}

func TestStatusFromCheckoutSession(t *testing.T) {
	status := StatusFromCheckoutSession(&stripe.CheckoutSession{
		ID:                "cs_1",
		Status:            stripe.CheckoutSessionStatusComplete,
		PaymentStatus:     stripe.CheckoutSessionPaymentStatusPaid,
		ClientReferenceID: "b-1",
		PaymentIntent:     &stripe.PaymentIntent{ID: "pi_1"},
	})

	assert.Equal(t, "b-1", status.BookingID)
	assert.Equal(t, "pi_1", status.PaymentID)
	assert.True(t, status.Settled())
}

func TestLocalGatewayLifecycle(t *testing.T) {
	g := NewLocalGateway("http://localhost:9090")
	ctx := context.Background()

	session, err := g.CreateCheckoutSession(ctx, CheckoutRequest{BookingID: "b-1"})
	require.NoError(t, err)
	status, err := g.RetrieveSession(ctx, session.SessionID)
	require.NoError(t, err)
	assert.False(t, status.Settled())

	_, err = g.Complete(session.SessionID)
	require.NoError(t, err)
	status, _ = g.RetrieveSession(ctx, session.SessionID)
	assert.True(t, status.Settled())
	assert.NotEmpty(t, status.PaymentID)

	ref1, _ := g.CreateRefund(ctx, RefundRequest{PaymentID: status.PaymentID, IdempotencyKey: "k"})
	ref2, _ := g.CreateRefund(ctx, RefundRequest{PaymentID: status.PaymentID, IdempotencyKey: "k"})
	assert.Equal(t, ref1, ref2)
}
