package usecase

import (
	"context"
	"testing"
	"time"

	"ticket-booking/internal/data/entity"
	"ticket-booking/internal/data/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newReservationFixture(t *testing.T) (ReservationService, *repository.Repository) {
	t.Helper()

	repo := repository.NewMemoryRepository()
	service := NewReservationService(repo, NoopSeatCache{}, testConfig(), zap.NewNop())
	return service, repo
}

func TestReserve_PlacesHoldOnFreeSeats(t *testing.T) {
	ctx := context.Background()
	service, repo := newReservationFixture(t)
	eventID, seatIDs := provisionEvent(t, repo, 3)
	customerID := uuid.New()

	hold, err := service.Reserve(ctx, customerID, eventID, seatIDs, 0)
	require.NoError(t, err)

	assert.Equal(t, entity.HoldStatusActive, hold.Status)
	assert.Equal(t, customerID, hold.CustomerID)
	assert.Len(t, hold.SeatIDs, 3)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), hold.ExpiresAt, time.Second)

	allSeatsInState(t, repo, seatIDs, entity.SeatStateHeld)
}

func TestReserve_ClampsDurationToMax(t *testing.T) {
	ctx := context.Background()
	service, repo := newReservationFixture(t)
	eventID, seatIDs := provisionEvent(t, repo, 1)

	hold, err := service.Reserve(ctx, uuid.New(), eventID, seatIDs, time.Hour)
	require.NoError(t, err)

	assert.WithinDuration(t, time.Now().Add(15*time.Minute), hold.ExpiresAt, time.Second)
}

func TestReserve_ConflictLeavesNothingHeld(t *testing.T) {
	ctx := context.Background()
	service, repo := newReservationFixture(t)
	eventID, seatIDs := provisionEvent(t, repo, 3)

	_, err := service.Reserve(ctx, uuid.New(), eventID, seatIDs[:1], 0)
	require.NoError(t, err)

	// Second customer wants all three; the overlap fails the whole request.
	_, err = service.Reserve(ctx, uuid.New(), eventID, seatIDs, 0)

	var unavailable *repository.SeatUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, []uuid.UUID{seatIDs[0]}, unavailable.Conflicting)

	allSeatsInState(t, repo, seatIDs[1:], entity.SeatStateFree)
}

func TestReserve_UnknownSeatIsUnavailable(t *testing.T) {
	ctx := context.Background()
	service, repo := newReservationFixture(t)
	eventID, seatIDs := provisionEvent(t, repo, 1)

	phantom := uuid.New()
	_, err := service.Reserve(ctx, uuid.New(), eventID, append(seatIDs, phantom), 0)

	var unavailable *repository.SeatUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Contains(t, unavailable.Conflicting, phantom)
	allSeatsInState(t, repo, seatIDs, entity.SeatStateFree)
}

func TestReserve_RejectsSeatFromAnotherEvent(t *testing.T) {
	ctx := context.Background()
	service, repo := newReservationFixture(t)
	eventID, _ := provisionEvent(t, repo, 1)
	_, otherSeats := provisionEvent(t, repo, 1)

	_, err := service.Reserve(ctx, uuid.New(), eventID, otherSeats, 0)
	assert.ErrorIs(t, err, ErrSeatEventMismatch)
}

func TestReserve_RejectsEmptySeatSet(t *testing.T) {
	ctx := context.Background()
	service, repo := newReservationFixture(t)
	eventID, _ := provisionEvent(t, repo, 1)

	_, err := service.Reserve(ctx, uuid.New(), eventID, nil, 0)
	assert.ErrorIs(t, err, ErrEmptySeatSet)

	_, err = service.Reserve(ctx, uuid.New(), eventID, []uuid.UUID{uuid.Nil}, 0)
	assert.ErrorIs(t, err, ErrEmptySeatSet)
}

func TestReserve_DeduplicatesSeatIDs(t *testing.T) {
	ctx := context.Background()
	service, repo := newReservationFixture(t)
	eventID, seatIDs := provisionEvent(t, repo, 1)

	hold, err := service.Reserve(ctx, uuid.New(), eventID, []uuid.UUID{seatIDs[0], seatIDs[0]}, 0)
	require.NoError(t, err)
	assert.Len(t, hold.SeatIDs, 1)
}

func TestExtend_PushesDeadlineWithinMax(t *testing.T) {
	ctx := context.Background()
	service, repo := newReservationFixture(t)
	eventID, seatIDs := provisionEvent(t, repo, 1)
	customerID := uuid.New()

	hold, err := service.Reserve(ctx, customerID, eventID, seatIDs, 5*time.Minute)
	require.NoError(t, err)

	extended, err := service.Extend(ctx, customerID, hold.ID, 5*time.Minute)
	require.NoError(t, err)
	assert.WithinDuration(t, hold.ExpiresAt.Add(5*time.Minute), extended.ExpiresAt, time.Second)

	// A second big extension clamps to now + max.
	extended, err = service.Extend(ctx, customerID, hold.ID, time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), extended.ExpiresAt, time.Second)
}

func TestExtend_OnlyOwnerMayExtend(t *testing.T) {
	ctx := context.Background()
	service, repo := newReservationFixture(t)
	eventID, seatIDs := provisionEvent(t, repo, 1)

	hold, err := service.Reserve(ctx, uuid.New(), eventID, seatIDs, 0)
	require.NoError(t, err)

	_, err = service.Extend(ctx, uuid.New(), hold.ID, time.Minute)
	assert.ErrorIs(t, err, ErrNotHoldOwner)
}

func TestExtend_ExpiredHoldCannotBeExtended(t *testing.T) {
	ctx := context.Background()
	service, repo := newReservationFixture(t)
	eventID, seatIDs := provisionEvent(t, repo, 1)
	customerID := uuid.New()

	hold, err := service.Reserve(ctx, customerID, eventID, seatIDs, time.Nanosecond)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)

	_, err = service.Extend(ctx, customerID, hold.ID, time.Minute)

	var expired *HoldExpiredError
	assert.ErrorAs(t, err, &expired)
}

func TestConvert_BooksSeatsExactlyOnce(t *testing.T) {
	ctx := context.Background()
	service, repo := newReservationFixture(t)
	eventID, seatIDs := provisionEvent(t, repo, 2)

	hold, err := service.Reserve(ctx, uuid.New(), eventID, seatIDs, 0)
	require.NoError(t, err)

	bookingID := uuid.New()
	require.NoError(t, service.Convert(ctx, hold.ID, bookingID))
	allSeatsInState(t, repo, seatIDs, entity.SeatStateBooked)

	// The terminal transition is single-shot.
	err = service.Convert(ctx, hold.ID, uuid.New())
	var notActive *HoldNotActiveError
	require.ErrorAs(t, err, &notActive)
	assert.Equal(t, entity.HoldStatusConverted, notActive.Status)
}

func TestConvert_OverdueHoldExpiresAndFreesSeats(t *testing.T) {
	ctx := context.Background()
	service, repo := newReservationFixture(t)
	eventID, seatIDs := provisionEvent(t, repo, 2)

	hold, err := service.Reserve(ctx, uuid.New(), eventID, seatIDs, time.Nanosecond)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)

	err = service.Convert(ctx, hold.ID, uuid.New())

	var expired *HoldExpiredError
	require.ErrorAs(t, err, &expired)

	stored, err := service.GetHold(ctx, hold.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.HoldStatusExpired, stored.Status)
	allSeatsInState(t, repo, seatIDs, entity.SeatStateFree)
}

func TestRelease_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	service, repo := newReservationFixture(t)
	eventID, seatIDs := provisionEvent(t, repo, 2)

	hold, err := service.Reserve(ctx, uuid.New(), eventID, seatIDs, 0)
	require.NoError(t, err)

	require.NoError(t, service.Release(ctx, hold.ID, "cancelled"))
	require.NoError(t, service.Release(ctx, hold.ID, "cancelled"))

	stored, err := service.GetHold(ctx, hold.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.HoldStatusReleased, stored.Status)
	assert.Equal(t, "cancelled", stored.ReleaseReason)
	allSeatsInState(t, repo, seatIDs, entity.SeatStateFree)
}

func TestCancel_OnlyOwnerMayCancel(t *testing.T) {
	ctx := context.Background()
	service, repo := newReservationFixture(t)
	eventID, seatIDs := provisionEvent(t, repo, 1)
	customerID := uuid.New()

	hold, err := service.Reserve(ctx, customerID, eventID, seatIDs, 0)
	require.NoError(t, err)

	err = service.Cancel(ctx, uuid.New(), hold.ID)
	assert.ErrorIs(t, err, ErrNotHoldOwner)

	require.NoError(t, service.Cancel(ctx, customerID, hold.ID))
	allSeatsInState(t, repo, seatIDs, entity.SeatStateFree)
}

func TestExpireHold_SingleWinner(t *testing.T) {
	ctx := context.Background()
	service, repo := newReservationFixture(t)
	eventID, seatIDs := provisionEvent(t, repo, 1)

	hold, err := service.Reserve(ctx, uuid.New(), eventID, seatIDs, time.Nanosecond)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)

	won, err := service.ExpireHold(ctx, hold.ID)
	require.NoError(t, err)
	assert.True(t, won)

	won, err = service.ExpireHold(ctx, hold.ID)
	require.NoError(t, err)
	assert.False(t, won)

	allSeatsInState(t, repo, seatIDs, entity.SeatStateFree)

	// Expired seats are immediately reservable by someone else.
	_, err = service.Reserve(ctx, uuid.New(), eventID, seatIDs, 0)
	require.NoError(t, err)
}

func TestExpireHold_LosesToConcurrentExtend(t *testing.T) {
	ctx := context.Background()
	service, repo := newReservationFixture(t)
	eventID, seatIDs := provisionEvent(t, repo, 1)

	hold, err := service.Reserve(ctx, uuid.New(), eventID, seatIDs, time.Nanosecond)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)

	// An extend lands after the sweeper picked the hold up as overdue but
	// before it claimed the transition. The extend must win.
	extended, err := repo.Hold.UpdateExpiry(ctx, hold.ID, time.Now().Add(5*time.Minute))
	require.NoError(t, err)
	require.True(t, extended)

	won, err := service.ExpireHold(ctx, hold.ID)
	require.NoError(t, err)
	assert.False(t, won)

	stored, err := service.GetHold(ctx, hold.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.HoldStatusActive, stored.Status)

	allSeatsInState(t, repo, seatIDs, entity.SeatStateHeld)
}
