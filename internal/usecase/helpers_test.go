package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"ticket-booking/internal/data/entity"
	"ticket-booking/internal/data/repository"
	"ticket-booking/internal/queue"
	"ticket-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func testConfig() *utils.Config {
	return &utils.Config{
		Hold: utils.HoldConfig{
			DefaultDuration: 5 * time.Minute,
			MaxDuration:     15 * time.Minute,
			SweepInterval:   time.Second,
			SweepBatchSize:  100,
		},
		Payment: utils.PaymentConfig{
			Currency:         "USD",
			ChargeTimeout:    time.Second,
			RecoveryInterval: time.Second,
		},
	}
}

func provisionEvent(t *testing.T, repo *repository.Repository, n int) (uuid.UUID, []uuid.UUID) {
	t.Helper()

	eventID := uuid.New()
	seats := make([]*entity.Seat, n)
	ids := make([]uuid.UUID, n)
	for i := 0; i < n; i++ {
		ids[i] = uuid.New()
		seats[i] = &entity.Seat{
			BaseNoDelete: entity.BaseNoDelete{ID: ids[i]},
			EventID:      eventID,
			SectionID:    uuid.New(),
			SeatLabel:    "A1",
			SeatRow:      "A",
			SeatColumn:   i + 1,
			Price:        75,
		}
	}
	require.NoError(t, repo.Ledger.Provision(context.Background(), seats))
	return eventID, ids
}

func seatStates(t *testing.T, repo *repository.Repository, ids []uuid.UUID) []entity.SeatState {
	t.Helper()

	seats, err := repo.Ledger.FindByIDs(context.Background(), ids)
	require.NoError(t, err)

	states := make([]entity.SeatState, len(seats))
	for i, seat := range seats {
		states[i] = seat.State
	}
	return states
}

func allSeatsInState(t *testing.T, repo *repository.Repository, ids []uuid.UUID, want entity.SeatState) {
	t.Helper()

	for _, state := range seatStates(t, repo, ids) {
		require.Equal(t, want, state)
	}
}

// capturePublisher records published events for assertions.
type capturePublisher struct {
	mu        sync.Mutex
	confirmed []queue.BookingConfirmedEvent
	failed    []queue.BookingFailedEvent
	expired   []queue.HoldExpiredEvent
}

func (p *capturePublisher) PublishBookingConfirmed(_ context.Context, event queue.BookingConfirmedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.confirmed = append(p.confirmed, event)
	return nil
}

func (p *capturePublisher) PublishBookingFailed(_ context.Context, event queue.BookingFailedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed = append(p.failed, event)
	return nil
}

func (p *capturePublisher) PublishHoldExpired(_ context.Context, event queue.HoldExpiredEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expired = append(p.expired, event)
	return nil
}

func (p *capturePublisher) Close() error { return nil }
