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

func newSweeperFixture(t *testing.T) (SweeperService, ReservationService, *repository.Repository, *capturePublisher) {
	t.Helper()

	repo := repository.NewMemoryRepository()
	config := testConfig()
	log := zap.NewNop()
	pub := &capturePublisher{}

	reservation := NewReservationService(repo, NoopSeatCache{}, config, log)
	sweeper := NewSweeperService(repo, reservation, pub, config, log)
	return sweeper, reservation, repo, pub
}

func TestSweepOnce_ExpiresOnlyOverdueHolds(t *testing.T) {
	ctx := context.Background()
	sweeper, reservation, repo, pub := newSweeperFixture(t)

	eventID, seatIDs := provisionEvent(t, repo, 4)

	overdue, err := reservation.Reserve(ctx, uuid.New(), eventID, seatIDs[:2], time.Nanosecond)
	require.NoError(t, err)
	alive, err := reservation.Reserve(ctx, uuid.New(), eventID, seatIDs[2:], 5*time.Minute)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)

	expired, err := sweeper.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	allSeatsInState(t, repo, seatIDs[:2], entity.SeatStateFree)
	allSeatsInState(t, repo, seatIDs[2:], entity.SeatStateHeld)

	stored, err := reservation.GetHold(ctx, overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.HoldStatusExpired, stored.Status)

	stored, err = reservation.GetHold(ctx, alive.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.HoldStatusActive, stored.Status)

	require.Len(t, pub.expired, 1)
	assert.Equal(t, overdue.ID.String(), pub.expired[0].HoldID)
	assert.Len(t, pub.expired[0].SeatIDs, 2)

	// Nothing left for the next pass.
	expired, err = sweeper.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, expired)
}

func TestSweepOnce_LosesGracefullyToConcurrentConvert(t *testing.T) {
	ctx := context.Background()
	sweeper, reservation, repo, pub := newSweeperFixture(t)

	eventID, seatIDs := provisionEvent(t, repo, 1)
	hold, err := reservation.Reserve(ctx, uuid.New(), eventID, seatIDs, time.Nanosecond)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)

	// Another worker settles the hold between FindExpired and ExpireHold.
	won, err := repo.Hold.TransitionStatus(ctx, hold.ID, entity.HoldStatusReleased, "cancelled")
	require.NoError(t, err)
	require.True(t, won)
	require.NoError(t, repo.Ledger.Release(ctx, seatIDs, hold.ID))

	expired, err := sweeper.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, expired)
	assert.Empty(t, pub.expired)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	sweeper, _, _, _ := newSweeperFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}
