package usecase

import (
	"context"
	"fmt"
	"time"

	"ticket-booking/internal/data/entity"
	"ticket-booking/internal/data/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AvailabilityService serves seat maps for browsing. Snapshots are consistent
// at a point in time but may be a few seconds stale through the cache; the
// ledger guards remain the only source of truth at reserve time.
type AvailabilityService interface {
	Snapshot(ctx context.Context, eventID uuid.UUID) ([]*entity.Seat, error)

	// ProvisionSeats loads seat inventory for an event. Admin-only; seats
	// start free.
	ProvisionSeats(ctx context.Context, eventID uuid.UUID, seats []*entity.Seat) error
}

type availabilityService struct {
	repo  *repository.Repository
	cache SeatCache
	log   *zap.Logger
}

func NewAvailabilityService(repo *repository.Repository, cache SeatCache, log *zap.Logger) AvailabilityService {
	return &availabilityService{
		repo:  repo,
		cache: cache,
		log:   log.With(zap.String("service", "availability")),
	}
}

func (s *availabilityService) Snapshot(ctx context.Context, eventID uuid.UUID) ([]*entity.Seat, error) {
	if seats, ok := s.cache.GetSnapshot(ctx, eventID); ok {
		return seats, nil
	}

	seats, err := s.repo.Ledger.Snapshot(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("snapshot seats: %w", err)
	}

	s.cache.SetSnapshot(ctx, eventID, seats)
	return seats, nil
}

func (s *availabilityService) ProvisionSeats(ctx context.Context, eventID uuid.UUID, seats []*entity.Seat) error {
	if len(seats) == 0 {
		return ErrEmptySeatSet
	}

	now := time.Now()
	for _, seat := range seats {
		if seat.ID == uuid.Nil {
			seat.ID = uuid.New()
		}
		seat.EventID = eventID
		seat.State = entity.SeatStateFree
		seat.Version = 0
		seat.CreatedAt = now
		seat.UpdatedAt = now
	}

	if err := s.repo.Ledger.Provision(ctx, seats); err != nil {
		return fmt.Errorf("provision seats: %w", err)
	}

	s.cache.Invalidate(ctx, eventID)

	s.log.Info("Seats provisioned",
		zap.String("event_id", eventID.String()),
		zap.Int("count", len(seats)),
	)

	return nil
}
