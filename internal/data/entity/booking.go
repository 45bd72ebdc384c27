package entity

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusPendingPayment BookingStatus = "pending_payment"
	BookingStatusConfirmed      BookingStatus = "confirmed"
	BookingStatusCancelled      BookingStatus = "cancelled"
	BookingStatusFailed         BookingStatus = "failed"
)

// Booking is the durable record of a checkout attempt. It is created in
// pending_payment when the saga starts collecting payment and moves to
// confirmed only after both the charge and the hold conversion succeeded.
// RequiresAttention marks the rare case where the charge went through, the
// hold had expired, and the compensating refund also failed: money was taken
// without seats and an operator has to step in.
type Booking struct {
	BaseNoDelete
	Reference         string        `db:"reference"` // human-facing order id
	CustomerID        uuid.UUID     `db:"customer_id"`
	EventID           uuid.UUID     `db:"event_id"`
	HoldID            uuid.UUID     `db:"hold_id"`
	Seats             []BookingSeat `db:"-"` // booking_seats rows, hydrated by the repository
	TotalAmount       float64       `db:"total_amount"`
	Currency          string        `db:"currency"`
	Status            BookingStatus `db:"status"`
	PaymentRef        *string       `db:"payment_ref"` // gateway charge reference
	FailureReason     string        `db:"failure_reason"`
	RequiresAttention bool          `db:"requires_attention"`
	ConfirmedAt       *time.Time    `db:"confirmed_at"`
}

// Terminal reports whether the booking outcome is settled.
func (b *Booking) Terminal() bool {
	return b.Status != BookingStatusPendingPayment
}
