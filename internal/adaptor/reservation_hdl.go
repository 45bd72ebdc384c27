package adaptor

import (
	"encoding/json"
	"net/http"
	"time"

	"ticket-booking/internal/dto/request"
	"ticket-booking/internal/dto/response"
	"ticket-booking/internal/usecase"
	"ticket-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ReservationHandler struct {
	service usecase.ReservationService
	log     *zap.Logger
}

func NewReservationHandler(service usecase.ReservationService, log *zap.Logger) *ReservationHandler {
	return &ReservationHandler{
		service: service,
		log:     log.With(zap.String("handler", "reservation")),
	}
}

// CreateReservation handles POST /api/reservations
func (h *ReservationHandler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	customerID, ok := utils.GetCustomerIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Customer identity required")
		return
	}

	var req request.CreateReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	eventID, err := uuid.Parse(req.EventID)
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid event ID", nil)
		return
	}

	seatIDs, err := parseUUIDs(req.SeatIDs)
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid seat ID", nil)
		return
	}

	duration := time.Duration(req.DurationMinutes) * time.Minute

	hold, err := h.service.Reserve(r.Context(), customerID, eventID, seatIDs, duration)
	if err != nil {
		respondError(w, h.log, err, "create reservation")
		return
	}

	utils.ResponseCreated(w, "success", response.HoldToResponse(hold))
}

// ExtendReservation handles POST /api/reservations/{id}/extend
func (h *ReservationHandler) ExtendReservation(w http.ResponseWriter, r *http.Request) {
	customerID, ok := utils.GetCustomerIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Customer identity required")
		return
	}

	holdID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid reservation ID", nil)
		return
	}

	var req request.ExtendReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	additional := time.Duration(req.AdditionalMinutes) * time.Minute

	hold, err := h.service.Extend(r.Context(), customerID, holdID, additional)
	if err != nil {
		respondError(w, h.log, err, "extend reservation")
		return
	}

	utils.ResponseSuccess(w, "success", response.HoldToResponse(hold))
}

// GetReservation handles GET /api/reservations/{id}
func (h *ReservationHandler) GetReservation(w http.ResponseWriter, r *http.Request) {
	customerID, ok := utils.GetCustomerIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Customer identity required")
		return
	}

	holdID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid reservation ID", nil)
		return
	}

	hold, err := h.service.GetHold(r.Context(), holdID)
	if err != nil {
		respondError(w, h.log, err, "get reservation")
		return
	}
	if hold.CustomerID != customerID {
		utils.ResponseForbidden(w, usecase.ErrNotHoldOwner.Error())
		return
	}

	utils.ResponseSuccess(w, "success", response.HoldToResponse(hold))
}

// CancelReservation handles DELETE /api/reservations/{id}
func (h *ReservationHandler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	customerID, ok := utils.GetCustomerIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Customer identity required")
		return
	}

	holdID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid reservation ID", nil)
		return
	}

	if err := h.service.Cancel(r.Context(), customerID, holdID); err != nil {
		respondError(w, h.log, err, "cancel reservation")
		return
	}

	utils.ResponseSuccess(w, "success", nil)
}

func parseUUIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, len(raw))
	for i, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}
