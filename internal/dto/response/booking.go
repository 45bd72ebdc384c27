package response

import (
	"time"

	"ticket-booking/internal/data/entity"
)

type BookingSeatResponse struct {
	SeatID    string  `json:"seat_id"`
	SectionID string  `json:"section_id"`
	SeatLabel string  `json:"seat_label"`
	Price     float64 `json:"price"`
}

type BookingResponse struct {
	ID            string                `json:"id"`
	Reference     string                `json:"reference"`
	CustomerID    string                `json:"customer_id"`
	EventID       string                `json:"event_id"`
	HoldID        string                `json:"hold_id"`
	Seats         []BookingSeatResponse `json:"seats"`
	TotalAmount   float64               `json:"total_amount"`
	Currency      string                `json:"currency"`
	Status        entity.BookingStatus  `json:"status"`
	PaymentRef    *string               `json:"payment_ref,omitempty"`
	FailureReason string                `json:"failure_reason,omitempty"`
	ConfirmedAt   *time.Time            `json:"confirmed_at,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
}

func BookingToResponse(booking *entity.Booking) BookingResponse {
	seats := make([]BookingSeatResponse, len(booking.Seats))
	for i, seat := range booking.Seats {
		seats[i] = BookingSeatResponse{
			SeatID:    seat.SeatID.String(),
			SectionID: seat.SectionID.String(),
			SeatLabel: seat.SeatLabel,
			Price:     seat.Price,
		}
	}

	return BookingResponse{
		ID:            booking.ID.String(),
		Reference:     booking.Reference,
		CustomerID:    booking.CustomerID.String(),
		EventID:       booking.EventID.String(),
		HoldID:        booking.HoldID.String(),
		Seats:         seats,
		TotalAmount:   booking.TotalAmount,
		Currency:      booking.Currency,
		Status:        booking.Status,
		PaymentRef:    booking.PaymentRef,
		FailureReason: booking.FailureReason,
		ConfirmedAt:   booking.ConfirmedAt,
		CreatedAt:     booking.CreatedAt,
	}
}
