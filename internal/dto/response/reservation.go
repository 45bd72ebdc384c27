package response

import (
	"time"

	"ticket-booking/internal/data/entity"
)

type HoldResponse struct {
	ID            string            `json:"id"`
	CustomerID    string            `json:"customer_id"`
	EventID       string            `json:"event_id"`
	SeatIDs       []string          `json:"seat_ids"`
	Status        entity.HoldStatus `json:"status"`
	ExpiresAt     time.Time         `json:"expires_at"`
	ReleaseReason string            `json:"release_reason,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

func HoldToResponse(hold *entity.Hold) HoldResponse {
	seatIDs := make([]string, len(hold.SeatIDs))
	for i, id := range hold.SeatIDs {
		seatIDs[i] = id.String()
	}

	return HoldResponse{
		ID:            hold.ID.String(),
		CustomerID:    hold.CustomerID.String(),
		EventID:       hold.EventID.String(),
		SeatIDs:       seatIDs,
		Status:        hold.Status,
		ExpiresAt:     hold.ExpiresAt,
		ReleaseReason: hold.ReleaseReason,
		CreatedAt:     hold.CreatedAt,
	}
}
