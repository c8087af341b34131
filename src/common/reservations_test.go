package common

import (
	"context"
	"testing"
	"time"

	"rentals/src/booking"
	"rentals/src/inventory"
	"rentals/src/models"
	"rentals/src/payment"
	"rentals/src/repository/memory"
	"rentals/src/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type noopNotifier struct{}

func (noopNotifier) Notify(ctx context.Context, n booking.Notice) {}

type PendingSweeperTestSuite struct {
	suite.Suite
	ctx      context.Context
	bookings *memory.BookingStore
	rentals  *memory.RentalStore
	gateway  *payment.LocalGateway
	adapter  *payment.Adapter
}

func (s *PendingSweeperTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.bookings = memory.NewBookingStore()
	s.rentals = memory.NewRentalStore(&models.House{
		ID:             1,
		Title:          "Cabin",
		PricePerNight:  decimal.NewFromInt(120),
		MaxGuests:      2,
		AvailableDates: types.StringList{"2099-01-01", "2099-01-02", "2099-01-03", "2099-01-04", "2099-01-05", "2099-01-06", "2099-01-07", "2099-01-08"},
	})
	s.gateway = payment.NewLocalGateway("http://localhost:9090")
	s.adapter = payment.NewAdapter(s.gateway, s.bookings, "http://localhost:3000", 30*time.Minute)
}

func (s *PendingSweeperTestSuite) service(now func() time.Time) *booking.Service {
	return booking.NewService(s.bookings, inventory.NewLedger(s.rentals), s.adapter, noopNotifier{}, booking.WithClock(now))
}

func (s *PendingSweeperTestSuite) pending(svc *booking.Service, start, end string, checkout bool) *models.Booking {
	startDate, _ := models.ParseDate(start)
	endDate, _ := models.ParseDate(end)
	b, item, err := svc.CreatePending(s.ctx, booking.CreateInput{
		RenterID:   5,
		RentalType: types.RENTAL_HOUSE,
		RentalID:   1,
		StartDate:  startDate,
		EndDate:    endDate,
		Guests:     1,
	})
	s.Require().NoError(err)
	if checkout {
		_, err = s.adapter.CreateSession(s.ctx, b, item.Snapshot())
		s.Require().NoError(err)
	}
	return b
}

func (s *PendingSweeperTestSuite) status(b *models.Booking) types.BookingStatus {
	current, err := s.bookings.FindByID(s.ctx, b.ID)
	s.Require().NoError(err)
	return current.Status
}

func (s *PendingSweeperTestSuite) TestSweepResolvesStaleBookings() {
	// an hour ahead, every booking created now is past its checkout window
	svc := s.service(func() time.Time { return time.Now().Add(time.Hour) })
	abandoned := s.pending(svc, "2099-01-01", "2099-01-02", false)
	paid := s.pending(svc, "2099-01-03", "2099-01-04", true)
	lapsed := s.pending(svc, "2099-01-05", "2099-01-06", true)
	open := s.pending(svc, "2099-01-07", "2099-01-08", true)

	_, err := s.gateway.Complete(*paid.CheckoutSessionID)
	s.Require().NoError(err)
	_, err = s.gateway.Expire(*lapsed.CheckoutSessionID)
	s.Require().NoError(err)

	result, err := NewPendingSweeper(svc, s.adapter, 30*time.Minute, 10).Sweep(s.ctx)
	s.Require().NoError(err)
	s.Equal(4, result.Checked)
	s.Equal(1, result.Confirmed)
	s.Equal(2, result.Expired)
	s.Equal(0, result.Failed)

	s.Equal(types.BOOKING_EXPIRED, s.status(abandoned))
	s.Equal(types.BOOKING_CONFIRMED, s.status(paid))
	s.Equal(types.BOOKING_EXPIRED, s.status(lapsed))
	s.Equal(types.BOOKING_PENDING, s.status(open))

	item, err := s.rentals.Find(s.ctx, types.RENTAL_HOUSE, 1)
	s.Require().NoError(err)
	s.NotContains(item.Availability().Dates, "2099-01-03")
	s.Contains(item.Availability().Dates, "2099-01-01")
}

func (s *PendingSweeperTestSuite) TestSweepSkipsFreshBookings() {
	svc := s.service(time.Now)
	b := s.pending(svc, "2099-01-01", "2099-01-02", false)

	result, err := NewPendingSweeper(svc, s.adapter, 30*time.Minute, 0).Sweep(s.ctx)
	s.Require().NoError(err)
	s.Equal(0, result.Checked)
	s.Equal(types.BOOKING_PENDING, s.status(b))
}

func (s *PendingSweeperTestSuite) TestSyncConfirmsPaidSession() {
	svc := s.service(time.Now)
	b := s.pending(svc, "2099-01-01", "2099-01-03", true)
	_, err := s.gateway.Complete(*b.CheckoutSessionID)
	s.Require().NoError(err)

	current, err := s.bookings.FindByID(s.ctx, b.ID)
	s.Require().NoError(err)
	synced, err := SyncBookingWithSession(s.ctx, svc, s.adapter, current)
	s.Require().NoError(err)
	s.Equal(types.BOOKING_CONFIRMED, synced.Status)
	s.NotNil(synced.PaymentID)

	// terminal or confirmed bookings are returned as they are
	again, err := SyncBookingWithSession(s.ctx, svc, s.adapter, synced)
	s.Require().NoError(err)
	s.Same(synced, again)
}

func TestPendingSweeperTestSuite(t *testing.T) {
	suite.Run(t, new(PendingSweeperTestSuite))
}
