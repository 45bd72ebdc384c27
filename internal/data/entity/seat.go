package entity

import "github.com/google/uuid"

type SeatState string

const (
	SeatStateFree   SeatState = "free"
	SeatStateHeld   SeatState = "held"
	SeatStateBooked SeatState = "booked"
)

// Seat is one bookable unit of an event's inventory. State transitions go
// through the seat ledger only: free -> held(hold_id) -> booked(booking_id),
// or held -> free when a hold is released or expires. Version increments on
// every state change and backs the ledger's compare-and-swap updates.
type Seat struct {
	BaseNoDelete
	EventID    uuid.UUID  `db:"event_id"`
	SectionID  uuid.UUID  `db:"section_id"`
	SeatLabel  string     `db:"seat_label"`  // A1, A2, B1, etc.
	SeatRow    string     `db:"seat_row"`    // A, B, C, etc.
	SeatColumn int        `db:"seat_column"` // 1, 2, 3, etc.
	Price      float64    `db:"price"`
	State      SeatState  `db:"state"`
	HoldID     *uuid.UUID `db:"hold_id"`    // set while state = held
	BookingID  *uuid.UUID `db:"booking_id"` // set once state = booked
	Version    int        `db:"version"`
}

func (s *Seat) IsFree() bool {
	return s.State == SeatStateFree
}

// HeldBy reports whether the seat is currently held by the given hold.
func (s *Seat) HeldBy(holdID uuid.UUID) bool {
	return s.State == SeatStateHeld && s.HoldID != nil && *s.HoldID == holdID
}
