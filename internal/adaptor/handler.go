package adaptor

import (
	"ticket-booking/internal/usecase"

	"go.uber.org/zap"
)

type Handler struct {
	Reservation  *ReservationHandler
	Booking      *BookingHandler
	Availability *AvailabilityHandler
}

func NewHandler(service *usecase.Service, log *zap.Logger) *Handler {
	return &Handler{
		Reservation:  NewReservationHandler(service.Reservation, log),
		Booking:      NewBookingHandler(service.Saga, log),
		Availability: NewAvailabilityHandler(service.Availability, log),
	}
}
