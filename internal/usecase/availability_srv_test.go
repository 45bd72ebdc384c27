package usecase

import (
	"context"
	"sync"
	"testing"

	"ticket-booking/internal/data/entity"
	"ticket-booking/internal/data/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recordingSeatCache is an in-process SeatCache that counts operations.
type recordingSeatCache struct {
	mu          sync.Mutex
	entries     map[uuid.UUID][]*entity.Seat
	sets        int
	invalidates int
}

func newRecordingSeatCache() *recordingSeatCache {
	return &recordingSeatCache{entries: make(map[uuid.UUID][]*entity.Seat)}
}

func (c *recordingSeatCache) GetSnapshot(_ context.Context, eventID uuid.UUID) ([]*entity.Seat, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	seats, ok := c.entries[eventID]
	return seats, ok
}

func (c *recordingSeatCache) SetSnapshot(_ context.Context, eventID uuid.UUID, seats []*entity.Seat) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[eventID] = seats
	c.sets++
}

func (c *recordingSeatCache) Invalidate(_ context.Context, eventID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, eventID)
	c.invalidates++
}

func TestSnapshot_ReadThroughCache(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	cache := newRecordingSeatCache()
	service := NewAvailabilityService(repo, cache, zap.NewNop())

	eventID, _ := provisionEvent(t, repo, 3)

	seats, err := service.Snapshot(ctx, eventID)
	require.NoError(t, err)
	assert.Len(t, seats, 3)
	assert.Equal(t, 1, cache.sets)

	// Second read is served from the cache.
	seats, err = service.Snapshot(ctx, eventID)
	require.NoError(t, err)
	assert.Len(t, seats, 3)
	assert.Equal(t, 1, cache.sets)
}

func TestSnapshot_InvalidatedAfterReserve(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	cache := newRecordingSeatCache()
	config := testConfig()
	log := zap.NewNop()

	availability := NewAvailabilityService(repo, cache, log)
	reservation := NewReservationService(repo, cache, config, log)

	eventID, seatIDs := provisionEvent(t, repo, 2)

	seats, err := availability.Snapshot(ctx, eventID)
	require.NoError(t, err)
	for _, seat := range seats {
		assert.Equal(t, entity.SeatStateFree, seat.State)
	}

	_, err = reservation.Reserve(ctx, uuid.New(), eventID, seatIDs, 0)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, cache.invalidates, 1)

	// The next snapshot reflects the held seats, not the stale entry.
	seats, err = availability.Snapshot(ctx, eventID)
	require.NoError(t, err)
	for _, seat := range seats {
		assert.Equal(t, entity.SeatStateHeld, seat.State)
	}
}

func TestProvisionSeats_AssignsIdentityAndFreeState(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	service := NewAvailabilityService(repo, NoopSeatCache{}, zap.NewNop())

	eventID := uuid.New()
	seats := []*entity.Seat{
		{SectionID: uuid.New(), SeatLabel: "A1", SeatRow: "A", SeatColumn: 1, Price: 50},
		{SectionID: uuid.New(), SeatLabel: "A2", SeatRow: "A", SeatColumn: 2, Price: 50},
	}

	require.NoError(t, service.ProvisionSeats(ctx, eventID, seats))

	stored, err := repo.Ledger.Snapshot(ctx, eventID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	for _, seat := range stored {
		assert.NotEqual(t, uuid.Nil, seat.ID)
		assert.Equal(t, eventID, seat.EventID)
		assert.Equal(t, entity.SeatStateFree, seat.State)
	}
}

func TestProvisionSeats_RejectsEmptySet(t *testing.T) {
	repo := repository.NewMemoryRepository()
	service := NewAvailabilityService(repo, NoopSeatCache{}, zap.NewNop())

	err := service.ProvisionSeats(context.Background(), uuid.New(), nil)
	assert.ErrorIs(t, err, ErrEmptySeatSet)
}
