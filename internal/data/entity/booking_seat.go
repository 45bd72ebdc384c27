package entity

import "github.com/google/uuid"

// BookingSeat snapshots one seat of a booking with the price that was
// charged for it. The snapshot stays valid even if the catalog later
// reprices the seat.
type BookingSeat struct {
	BaseSimple
	BookingID uuid.UUID `db:"booking_id"`
	SeatID    uuid.UUID `db:"seat_id"`
	SectionID uuid.UUID `db:"section_id"`
	SeatLabel string    `db:"seat_label"`
	Price     float64   `db:"price"`
}
