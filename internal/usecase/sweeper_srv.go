package usecase

import (
	"context"
	"fmt"
	"time"

	"ticket-booking/internal/data/repository"
	"ticket-booking/internal/queue"
	"ticket-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SweeperService reclaims seats from holds whose deadline passed without a
// conversion. Expiry also happens lazily on the read path; the sweeper exists
// so abandoned holds free up even when nobody touches them again.
type SweeperService interface {
	// Run blocks, sweeping every configured interval until ctx is cancelled.
	Run(ctx context.Context)

	// SweepOnce expires one batch of overdue holds and reports how many this
	// pass settled.
	SweepOnce(ctx context.Context) (int, error)
}

type sweeperService struct {
	repo        *repository.Repository
	reservation ReservationService
	publisher   queue.Publisher
	config      *utils.Config
	log         *zap.Logger
}

func NewSweeperService(
	repo *repository.Repository,
	reservation ReservationService,
	publisher queue.Publisher,
	config *utils.Config,
	log *zap.Logger,
) SweeperService {
	return &sweeperService{
		repo:        repo,
		reservation: reservation,
		publisher:   publisher,
		config:      config,
		log:         log.With(zap.String("service", "sweeper")),
	}
}

func (s *sweeperService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.config.Hold.SweepInterval)
	defer ticker.Stop()

	s.log.Info("Hold sweeper started",
		zap.Duration("interval", s.config.Hold.SweepInterval),
		zap.Int("batch_size", s.config.Hold.SweepBatchSize),
	)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Hold sweeper stopped")
			return
		case <-ticker.C:
			expired, err := s.SweepOnce(ctx)
			if err != nil {
				s.log.Error("Sweep pass failed", zap.Error(err))
				continue
			}
			if expired > 0 {
				s.log.Info("Sweep pass expired holds", zap.Int("count", expired))
			}
		}
	}
}

func (s *sweeperService) SweepOnce(ctx context.Context) (int, error) {
	overdue, err := s.repo.Hold.FindExpired(ctx, time.Now(), s.config.Hold.SweepBatchSize)
	if err != nil {
		return 0, fmt.Errorf("find expired holds: %w", err)
	}

	expired := 0
	for _, hold := range overdue {
		won, err := s.reservation.ExpireHold(ctx, hold.ID)
		if err != nil {
			// One bad hold must not stall the batch.
			s.log.Error("Failed to expire hold",
				zap.Error(err),
				zap.String("hold_id", hold.ID.String()),
			)
			continue
		}
		if !won {
			// A concurrent convert or release settled it first.
			continue
		}
		expired++

		s.publishExpired(ctx, hold.ID, hold.CustomerID, hold.EventID, hold.SeatIDs)
	}

	return expired, nil
}

func (s *sweeperService) publishExpired(ctx context.Context, holdID, customerID, eventID uuid.UUID, seatIDs []uuid.UUID) {
	ids := make([]string, len(seatIDs))
	for i, id := range seatIDs {
		ids[i] = id.String()
	}

	err := s.publisher.PublishHoldExpired(ctx, queue.HoldExpiredEvent{
		HoldID:     holdID.String(),
		CustomerID: customerID.String(),
		EventID:    eventID.String(),
		SeatIDs:    ids,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		s.log.Warn("Failed to publish hold expired event",
			zap.Error(err),
			zap.String("hold_id", holdID.String()),
		)
	}
}
