package usecase

import (
	"errors"
	"fmt"
	"time"

	"ticket-booking/internal/data/entity"

	"github.com/google/uuid"
)

// ErrEmptySeatSet is returned when a reservation names no seats.
var ErrEmptySeatSet = errors.New("seat set must not be empty")

// ErrSeatEventMismatch is returned when a requested seat does not belong to
// the event being reserved.
var ErrSeatEventMismatch = errors.New("seat does not belong to this event")

// ErrNotHoldOwner is returned when a customer operates on a hold owned by
// someone else.
var ErrNotHoldOwner = errors.New("hold belongs to another customer")

// HoldNotActiveError is returned when an operation requires an active hold
// but the hold already reached a terminal status.
type HoldNotActiveError struct {
	HoldID uuid.UUID
	Status entity.HoldStatus
}

func (e *HoldNotActiveError) Error() string {
	return fmt.Sprintf("hold %s is not active (status %s)", e.HoldID, e.Status)
}

// HoldExpiredError is returned when a hold's deadline has passed. The
// customer has to reselect seats and reserve again.
type HoldExpiredError struct {
	HoldID    uuid.UUID
	ExpiredAt time.Time
}

func (e *HoldExpiredError) Error() string {
	return fmt.Sprintf("hold %s expired at %s", e.HoldID, e.ExpiredAt.Format(time.RFC3339))
}

// BookingFailedError reports a booking attempt that ended without a
// confirmed sale, naming the saga step that failed. RequiresAttention is set
// when a charge was taken and the compensating refund also failed.
type BookingFailedError struct {
	BookingID         uuid.UUID
	Step              string
	Reason            string
	RequiresAttention bool
	Err               error
}

func (e *BookingFailedError) Error() string {
	return fmt.Sprintf("booking %s failed at %s: %s", e.BookingID, e.Step, e.Reason)
}

func (e *BookingFailedError) Unwrap() error {
	return e.Err
}
