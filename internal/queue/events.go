package queue

import "time"

// Queue names, one durable queue per event type.
const (
	QueueBookingConfirmed = "booking.confirmed"
	QueueBookingFailed    = "booking.failed"
	QueueHoldExpired      = "hold.expired"
)

// BookingConfirmedEvent announces a paid, finalized booking. Downstream
// consumers (notification, analytics) key off BookingID.
type BookingConfirmedEvent struct {
	BookingID  string    `json:"booking_id"`
	Reference  string    `json:"reference"`
	CustomerID string    `json:"customer_id"`
	EventID    string    `json:"event_id"`
	SeatIDs    []string  `json:"seat_ids"`
	Amount     float64   `json:"amount"`
	Currency   string    `json:"currency"`
	OccurredAt time.Time `json:"occurred_at"`
}

// BookingFailedEvent announces a booking attempt that ended without a
// confirmed sale. RequiresAttention is set when a successful charge could
// not be refunded and operator intervention is needed.
type BookingFailedEvent struct {
	BookingID         string    `json:"booking_id"`
	CustomerID        string    `json:"customer_id"`
	EventID           string    `json:"event_id"`
	Reason            string    `json:"reason"`
	RequiresAttention bool      `json:"requires_attention"`
	OccurredAt        time.Time `json:"occurred_at"`
}

// HoldExpiredEvent announces that the sweeper returned a hold's seats to the
// free pool.
type HoldExpiredEvent struct {
	HoldID     string    `json:"hold_id"`
	CustomerID string    `json:"customer_id"`
	EventID    string    `json:"event_id"`
	SeatIDs    []string  `json:"seat_ids"`
	OccurredAt time.Time `json:"occurred_at"`
}
