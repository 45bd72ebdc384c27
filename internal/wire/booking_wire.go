package wire

import (
	"ticket-booking/internal/adaptor"
	"ticket-booking/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireBooking(r chi.Router, bookingHandler *adaptor.BookingHandler, log *zap.Logger) {
	r.Route("/api/bookings", func(r chi.Router) {
		r.Use(middleware.Identity(log))

		// POST /api/bookings - Pay for a hold and confirm the seats
		r.Post("/", bookingHandler.ConfirmBooking)

		// GET /api/bookings - Booking history for the calling customer
		r.Get("/", bookingHandler.ListBookings)

		// GET /api/bookings/{id} - Single booking detail
		r.Get("/{id}", bookingHandler.GetBooking)
	})
}
