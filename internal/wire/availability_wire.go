package wire

import (
	"ticket-booking/internal/adaptor"
	"ticket-booking/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireAvailability(r chi.Router, availabilityHandler *adaptor.AvailabilityHandler, log *zap.Logger) {
	// GET /api/events/{id}/seats - Seat map with availability (public)
	r.Get("/api/events/{id}/seats", availabilityHandler.GetSeatMap)

	// POST /api/admin/events/{id}/seats - Load seat inventory (admin)
	r.Route("/api/admin/events", func(r chi.Router) {
		r.Use(middleware.Identity(log))

		r.Post("/{id}/seats", availabilityHandler.ProvisionSeats)
	})
}
