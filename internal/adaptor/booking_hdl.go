package adaptor

import (
	"encoding/json"
	"net/http"

	"ticket-booking/internal/dto/request"
	"ticket-booking/internal/dto/response"
	"ticket-booking/internal/usecase"
	"ticket-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BookingHandler struct {
	service usecase.BookingSagaService
	log     *zap.Logger
}

func NewBookingHandler(service usecase.BookingSagaService, log *zap.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log.With(zap.String("handler", "booking")),
	}
}

// ConfirmBooking handles POST /api/bookings
func (h *BookingHandler) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	customerID, ok := utils.GetCustomerIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Customer identity required")
		return
	}

	var req request.ConfirmBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	holdID, err := uuid.Parse(req.HoldID)
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid hold ID", nil)
		return
	}

	booking, err := h.service.ConfirmBooking(r.Context(), customerID, holdID, usecase.PaymentDetails{
		Method:     req.PaymentMethod,
		CardNumber: req.CardNumber,
	})
	if err != nil {
		respondError(w, h.log, err, "confirm booking")
		return
	}

	utils.ResponseCreated(w, "success", response.BookingToResponse(booking))
}

// GetBooking handles GET /api/bookings/{id}
func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	customerID, ok := utils.GetCustomerIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Customer identity required")
		return
	}

	bookingID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid booking ID", nil)
		return
	}

	booking, err := h.service.GetBooking(r.Context(), customerID, bookingID)
	if err != nil {
		respondError(w, h.log, err, "get booking")
		return
	}

	utils.ResponseSuccess(w, "success", response.BookingToResponse(booking))
}

// ListBookings handles GET /api/bookings
func (h *BookingHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	customerID, ok := utils.GetCustomerIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Customer identity required")
		return
	}

	query := r.URL.Query()
	req := request.PaginatedRequest{
		Page:    utils.ParseInt(query.Get("page"), 1),
		PerPage: utils.ParseInt(query.Get("per_page"), 10),
	}

	bookings, total, err := h.service.ListBookings(r.Context(), customerID, req.Limit(), req.Offset())
	if err != nil {
		respondError(w, h.log, err, "list bookings")
		return
	}

	data := make([]response.BookingResponse, len(bookings))
	for i, booking := range bookings {
		data[i] = response.BookingToResponse(booking)
	}

	utils.ResponseSuccess(w, "success", response.NewPaginatedResponse(data, req.Page, req.Limit(), total))
}
