package wire

import (
	"ticket-booking/internal/adaptor"
	"ticket-booking/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireReservation(r chi.Router, reservationHandler *adaptor.ReservationHandler, log *zap.Logger) {
	r.Route("/api/reservations", func(r chi.Router) {
		r.Use(middleware.Identity(log))

		// POST /api/reservations - Place a hold on seats
		r.Post("/", reservationHandler.CreateReservation)

		// GET /api/reservations/{id} - Inspect a hold
		r.Get("/{id}", reservationHandler.GetReservation)

		// POST /api/reservations/{id}/extend - Push the hold deadline forward
		r.Post("/{id}/extend", reservationHandler.ExtendReservation)

		// DELETE /api/reservations/{id} - Give the seats back
		r.Delete("/{id}", reservationHandler.CancelReservation)
	})
}
