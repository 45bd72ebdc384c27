package adaptor

import (
	"encoding/json"
	"net/http"

	"ticket-booking/internal/data/entity"
	"ticket-booking/internal/dto/request"
	"ticket-booking/internal/dto/response"
	"ticket-booking/internal/usecase"
	"ticket-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AvailabilityHandler struct {
	service usecase.AvailabilityService
	log     *zap.Logger
}

func NewAvailabilityHandler(service usecase.AvailabilityService, log *zap.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{
		service: service,
		log:     log.With(zap.String("handler", "availability")),
	}
}

// GetSeatMap handles GET /api/events/{id}/seats (public)
func (h *AvailabilityHandler) GetSeatMap(w http.ResponseWriter, r *http.Request) {
	eventID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid event ID", nil)
		return
	}

	seats, err := h.service.Snapshot(r.Context(), eventID)
	if err != nil {
		respondError(w, h.log, err, "get seat map")
		return
	}

	utils.ResponseSuccess(w, "success", response.SeatMapToResponse(eventID.String(), seats))
}

// ProvisionSeats handles POST /api/admin/events/{id}/seats (admin only)
func (h *AvailabilityHandler) ProvisionSeats(w http.ResponseWriter, r *http.Request) {
	eventID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid event ID", nil)
		return
	}

	var req request.ProvisionSeatsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	seats := make([]*entity.Seat, len(req.Seats))
	for i, s := range req.Seats {
		sectionID, err := uuid.Parse(s.SectionID)
		if err != nil {
			utils.ResponseBadRequest(w, "Invalid section ID", nil)
			return
		}
		seats[i] = &entity.Seat{
			SectionID:  sectionID,
			SeatLabel:  s.SeatLabel,
			SeatRow:    s.SeatRow,
			SeatColumn: s.SeatColumn,
			Price:      s.Price,
		}
	}

	if err := h.service.ProvisionSeats(r.Context(), eventID, seats); err != nil {
		respondError(w, h.log, err, "provision seats")
		return
	}

	utils.ResponseCreated(w, "success", map[string]int{"provisioned": len(seats)})
}
