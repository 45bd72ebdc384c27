package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	"ticket-booking/internal/data/entity"
	"ticket-booking/internal/data/repository"
	"ticket-booking/internal/gateway"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	cardOK       = "4242424242424242"
	cardDeclined = "4000000000000002"
	cardTimeout  = "4000000000000119"
)

type sagaFixture struct {
	repo        *repository.Repository
	reservation ReservationService
	gw          *gateway.SimulatedGateway
	pub         *capturePublisher
	saga        BookingSagaService
}

// chargeHookGateway runs a callback before delegating the charge. Used to
// interleave hold expiry with an in-flight payment.
type chargeHookGateway struct {
	gateway.PaymentGateway
	onCharge func()
}

func (g *chargeHookGateway) Charge(ctx context.Context, req gateway.ChargeRequest) (*gateway.Charge, error) {
	if g.onCharge != nil {
		g.onCharge()
	}
	return g.PaymentGateway.Charge(ctx, req)
}

func newSagaFixture(t *testing.T, wrap func(gateway.PaymentGateway) gateway.PaymentGateway) *sagaFixture {
	t.Helper()

	repo := repository.NewMemoryRepository()
	config := testConfig()
	log := zap.NewNop()

	reservation := NewReservationService(repo, NoopSeatCache{}, config, log)
	gw := gateway.NewSimulatedGateway(log)
	pub := &capturePublisher{}

	var pg gateway.PaymentGateway = gw
	if wrap != nil {
		pg = wrap(gw)
	}

	return &sagaFixture{
		repo:        repo,
		reservation: reservation,
		gw:          gw,
		pub:         pub,
		saga:        NewBookingSagaService(repo, reservation, pg, pub, config, log),
	}
}

func (f *sagaFixture) reserve(t *testing.T, customerID uuid.UUID, seats int) (*entity.Hold, []uuid.UUID) {
	t.Helper()

	eventID, seatIDs := provisionEvent(t, f.repo, seats)
	hold, err := f.reservation.Reserve(context.Background(), customerID, eventID, seatIDs, 0)
	require.NoError(t, err)
	return hold, seatIDs
}

func TestConfirmBooking_HappyPath(t *testing.T) {
	ctx := context.Background()
	f := newSagaFixture(t, nil)
	customerID := uuid.New()
	hold, seatIDs := f.reserve(t, customerID, 2)

	booking, err := f.saga.ConfirmBooking(ctx, customerID, hold.ID, PaymentDetails{Method: "card", CardNumber: cardOK})
	require.NoError(t, err)

	assert.Equal(t, entity.BookingStatusConfirmed, booking.Status)
	assert.True(t, strings.HasPrefix(booking.Reference, "BOOK-"))
	assert.Equal(t, 150.0, booking.TotalAmount) // 2 seats at 75
	assert.Equal(t, "USD", booking.Currency)
	require.NotNil(t, booking.PaymentRef)
	require.NotNil(t, booking.ConfirmedAt)

	allSeatsInState(t, f.repo, seatIDs, entity.SeatStateBooked)

	stored, err := f.reservation.GetHold(ctx, hold.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.HoldStatusConverted, stored.Status)

	require.Len(t, f.pub.confirmed, 1)
	assert.Equal(t, booking.ID.String(), f.pub.confirmed[0].BookingID)
	assert.Len(t, f.pub.confirmed[0].SeatIDs, 2)
}

func TestConfirmBooking_DeclinedCardReleasesHold(t *testing.T) {
	ctx := context.Background()
	f := newSagaFixture(t, nil)
	customerID := uuid.New()
	hold, seatIDs := f.reserve(t, customerID, 2)

	_, err := f.saga.ConfirmBooking(ctx, customerID, hold.ID, PaymentDetails{Method: "card", CardNumber: cardDeclined})

	var failed *BookingFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, "charge_payment", failed.Step)
	assert.False(t, failed.RequiresAttention)

	allSeatsInState(t, f.repo, seatIDs, entity.SeatStateFree)

	stored, err := f.reservation.GetHold(ctx, hold.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.HoldStatusReleased, stored.Status)
	assert.Equal(t, "payment_failed", stored.ReleaseReason)

	booking, err := f.repo.Booking.FindByID(ctx, failed.BookingID)
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusFailed, booking.Status)

	require.Len(t, f.pub.failed, 1)
}

func TestConfirmBooking_ExpiredHoldIsRejectedBeforeCharge(t *testing.T) {
	ctx := context.Background()
	f := newSagaFixture(t, nil)
	customerID := uuid.New()

	eventID, seatIDs := provisionEvent(t, f.repo, 1)
	hold, err := f.reservation.Reserve(ctx, customerID, eventID, seatIDs, time.Nanosecond)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)

	_, err = f.saga.ConfirmBooking(ctx, customerID, hold.ID, PaymentDetails{Method: "card", CardNumber: cardOK})

	var expired *HoldExpiredError
	require.ErrorAs(t, err, &expired)

	// Nothing was charged.
	_, found, lookupErr := f.gw.LookupCharge(ctx, hold.ID.String())
	require.NoError(t, lookupErr)
	assert.False(t, found)
}

func TestConfirmBooking_OnlyOwnerMayConfirm(t *testing.T) {
	ctx := context.Background()
	f := newSagaFixture(t, nil)
	hold, _ := f.reserve(t, uuid.New(), 1)

	_, err := f.saga.ConfirmBooking(ctx, uuid.New(), hold.ID, PaymentDetails{Method: "card", CardNumber: cardOK})
	assert.ErrorIs(t, err, ErrNotHoldOwner)
}

func TestConfirmBooking_HoldExpiresMidPayment_ChargeRefunded(t *testing.T) {
	ctx := context.Background()

	var f *sagaFixture
	var holdID uuid.UUID
	f = newSagaFixture(t, func(inner gateway.PaymentGateway) gateway.PaymentGateway {
		return &chargeHookGateway{PaymentGateway: inner, onCharge: func() {
			// The sweeper settles the hold while the charge is in flight.
			// Back-date the deadline so the deadline-guarded expiry wins.
			overdue, err := f.repo.Hold.UpdateExpiry(ctx, holdID, time.Now().Add(-time.Second))
			require.NoError(t, err)
			require.True(t, overdue)
			won, err := f.reservation.ExpireHold(ctx, holdID)
			require.NoError(t, err)
			require.True(t, won)
		}}
	})

	customerID := uuid.New()
	hold, seatIDs := f.reserve(t, customerID, 1)
	holdID = hold.ID

	_, err := f.saga.ConfirmBooking(ctx, customerID, hold.ID, PaymentDetails{Method: "card", CardNumber: cardOK})

	var failed *BookingFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, "convert_hold", failed.Step)
	assert.False(t, failed.RequiresAttention)

	allSeatsInState(t, f.repo, seatIDs, entity.SeatStateFree)

	booking, err := f.repo.Booking.FindByID(ctx, failed.BookingID)
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusFailed, booking.Status)
	assert.False(t, booking.RequiresAttention)
	require.NotNil(t, booking.PaymentRef) // the refunded charge is recorded
}

func TestConfirmBooking_RefundFailureFlagsForAttention(t *testing.T) {
	ctx := context.Background()

	var f *sagaFixture
	var holdID uuid.UUID
	f = newSagaFixture(t, func(inner gateway.PaymentGateway) gateway.PaymentGateway {
		return &chargeHookGateway{PaymentGateway: inner, onCharge: func() {
			// Back-date the deadline so the deadline-guarded expiry wins.
			overdue, err := f.repo.Hold.UpdateExpiry(ctx, holdID, time.Now().Add(-time.Second))
			require.NoError(t, err)
			require.True(t, overdue)
			_, err = f.reservation.ExpireHold(ctx, holdID)
			require.NoError(t, err)
		}}
	})
	f.gw.FailRefunds = true

	customerID := uuid.New()
	hold, _ := f.reserve(t, customerID, 1)
	holdID = hold.ID

	_, err := f.saga.ConfirmBooking(ctx, customerID, hold.ID, PaymentDetails{Method: "card", CardNumber: cardOK})

	var failed *BookingFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, "refund", failed.Step)
	assert.True(t, failed.RequiresAttention)

	booking, err := f.repo.Booking.FindByID(ctx, failed.BookingID)
	require.NoError(t, err)
	assert.True(t, booking.RequiresAttention)

	require.Len(t, f.pub.failed, 1)
	assert.True(t, f.pub.failed[0].RequiresAttention)
}

func TestConfirmBooking_TimeoutWithSuccessfulChargeConfirms(t *testing.T) {
	ctx := context.Background()
	f := newSagaFixture(t, nil)
	customerID := uuid.New()
	hold, seatIDs := f.reserve(t, customerID, 1)

	// The test card makes the gateway record the charge but report a
	// timeout; the lookup by idempotency key finds the money was taken.
	booking, err := f.saga.ConfirmBooking(ctx, customerID, hold.ID, PaymentDetails{Method: "card", CardNumber: cardTimeout})
	require.NoError(t, err)

	assert.Equal(t, entity.BookingStatusConfirmed, booking.Status)
	allSeatsInState(t, f.repo, seatIDs, entity.SeatStateBooked)
}

func TestRecoverPending_ConvertedButUnconfirmedBookingConfirms(t *testing.T) {
	ctx := context.Background()
	f := newSagaFixture(t, nil)
	customerID := uuid.New()

	// Crash point: the charge succeeded and the hold was converted, but the
	// coordinator died before recording the confirmation.
	hold, seatIDs := f.reserve(t, customerID, 1)
	booking := pendingBooking(t, f.repo, hold, 75)
	_, err := f.gw.Charge(ctx, gateway.ChargeRequest{
		IdempotencyKey: booking.ID.String(),
		Amount:         booking.TotalAmount,
		Currency:       "USD",
		CardNumber:     cardOK,
	})
	require.NoError(t, err)
	require.NoError(t, f.reservation.Convert(ctx, hold.ID, booking.ID))

	// If recovery wrongly compensated, the failing refund would surface as a
	// failed booking flagged for attention.
	f.gw.FailRefunds = true

	require.NoError(t, f.saga.RecoverPending(ctx))

	stored, err := f.repo.Booking.FindByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusConfirmed, stored.Status)
	assert.False(t, stored.RequiresAttention)
	require.NotNil(t, stored.PaymentRef)

	// The seats stay booked under this booking; nothing was released.
	seats, err := f.repo.Ledger.FindByIDs(ctx, seatIDs)
	require.NoError(t, err)
	for _, seat := range seats {
		assert.Equal(t, entity.SeatStateBooked, seat.State)
		require.NotNil(t, seat.BookingID)
		assert.Equal(t, booking.ID, *seat.BookingID)
	}
}

func TestRunRecovery_SettlesParkedBooking(t *testing.T) {
	f := newSagaFixture(t, nil)
	customerID := uuid.New()

	// A booking parked in pending_payment, its charge already taken: only a
	// later recovery pass can settle it.
	hold, seatIDs := f.reserve(t, customerID, 1)
	booking := pendingBooking(t, f.repo, hold, 75)
	_, err := f.gw.Charge(context.Background(), gateway.ChargeRequest{
		IdempotencyKey: booking.ID.String(),
		Amount:         booking.TotalAmount,
		Currency:       "USD",
		CardNumber:     cardOK,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.saga.RunRecovery(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool {
		stored, err := f.repo.Booking.FindByID(context.Background(), booking.ID)
		return err == nil && stored.Status == entity.BookingStatusConfirmed
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("recovery loop did not stop after cancel")
	}

	allSeatsInState(t, f.repo, seatIDs, entity.SeatStateBooked)
}

func TestRecoverPending_SettlesBothWays(t *testing.T) {
	ctx := context.Background()
	f := newSagaFixture(t, nil)
	customerID := uuid.New()

	// Booking whose charge succeeded before the crash.
	paidHold, paidSeats := f.reserve(t, customerID, 1)
	paid := pendingBooking(t, f.repo, paidHold, 75)
	_, err := f.gw.Charge(ctx, gateway.ChargeRequest{
		IdempotencyKey: paid.ID.String(),
		Amount:         paid.TotalAmount,
		Currency:       "USD",
		CardNumber:     cardOK,
	})
	require.NoError(t, err)

	// Booking that crashed before any charge reached the gateway.
	unpaidHold, unpaidSeats := f.reserve(t, customerID, 1)
	unpaid := pendingBooking(t, f.repo, unpaidHold, 75)

	require.NoError(t, f.saga.RecoverPending(ctx))

	stored, err := f.repo.Booking.FindByID(ctx, paid.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusConfirmed, stored.Status)
	allSeatsInState(t, f.repo, paidSeats, entity.SeatStateBooked)

	stored, err = f.repo.Booking.FindByID(ctx, unpaid.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusFailed, stored.Status)
	allSeatsInState(t, f.repo, unpaidSeats, entity.SeatStateFree)

	releasedHold, err := f.reservation.GetHold(ctx, unpaidHold.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.HoldStatusReleased, releasedHold.Status)
}

func TestGetBooking_ScopedToCustomer(t *testing.T) {
	ctx := context.Background()
	f := newSagaFixture(t, nil)
	customerID := uuid.New()
	hold, _ := f.reserve(t, customerID, 1)

	booking, err := f.saga.ConfirmBooking(ctx, customerID, hold.ID, PaymentDetails{Method: "card", CardNumber: cardOK})
	require.NoError(t, err)

	got, err := f.saga.GetBooking(ctx, customerID, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.ID, got.ID)

	_, err = f.saga.GetBooking(ctx, uuid.New(), booking.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestListBookings_Paginates(t *testing.T) {
	ctx := context.Background()
	f := newSagaFixture(t, nil)
	customerID := uuid.New()

	for i := 0; i < 3; i++ {
		hold, _ := f.reserve(t, customerID, 1)
		_, err := f.saga.ConfirmBooking(ctx, customerID, hold.ID, PaymentDetails{Method: "card", CardNumber: cardOK})
		require.NoError(t, err)
	}

	bookings, total, err := f.saga.ListBookings(ctx, customerID, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, bookings, 2)

	bookings, _, err = f.saga.ListBookings(ctx, customerID, 2, 2)
	require.NoError(t, err)
	assert.Len(t, bookings, 1)
}

// pendingBooking writes a booking stuck in pending_payment, as left behind by
// a coordinator that died mid-saga.
func pendingBooking(t *testing.T, repo *repository.Repository, hold *entity.Hold, amount float64) *entity.Booking {
	t.Helper()

	now := time.Now()
	booking := &entity.Booking{
		BaseNoDelete: entity.BaseNoDelete{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Reference:    "BOOK-20260826-120000-0001",
		CustomerID:   hold.CustomerID,
		EventID:      hold.EventID,
		HoldID:       hold.ID,
		TotalAmount:  amount,
		Currency:     "USD",
		Status:       entity.BookingStatusPendingPayment,
	}
	for _, seatID := range hold.SeatIDs {
		booking.Seats = append(booking.Seats, entity.BookingSeat{
			BaseSimple: entity.BaseSimple{ID: uuid.New(), CreatedAt: now},
			BookingID:  booking.ID,
			SeatID:     seatID,
			Price:      amount,
		})
	}
	require.NoError(t, repo.Booking.Create(context.Background(), booking))
	return booking
}
