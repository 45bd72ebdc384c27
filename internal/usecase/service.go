package usecase

import (
	"ticket-booking/internal/data/repository"
	"ticket-booking/internal/gateway"
	"ticket-booking/internal/queue"
	"ticket-booking/pkg/utils"

	"go.uber.org/zap"
)

type Service struct {
	Reservation  ReservationService
	Saga         BookingSagaService
	Availability AvailabilityService
	Sweeper      SweeperService
}

func NewService(
	repo *repository.Repository,
	gw gateway.PaymentGateway,
	publisher queue.Publisher,
	cache SeatCache,
	config *utils.Config,
	log *zap.Logger,
) *Service {
	reservation := NewReservationService(repo, cache, config, log)

	return &Service{
		Reservation:  reservation,
		Saga:         NewBookingSagaService(repo, reservation, gw, publisher, config, log),
		Availability: NewAvailabilityService(repo, cache, log),
		Sweeper:      NewSweeperService(repo, reservation, publisher, config, log),
	}
}
