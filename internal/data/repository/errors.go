package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested record does not exist. Handlers
// translate it into an HTTP 404.
var ErrNotFound = errors.New("not found")

// SeatUnavailableError is returned by the seat ledger when one or more of
// the requested seats is not free. The reservation is all-or-nothing, so no
// seat state changed; Conflicting lists exactly the seats that blocked it.
type SeatUnavailableError struct {
	Conflicting []uuid.UUID
}

func (e *SeatUnavailableError) Error() string {
	ids := make([]string, len(e.Conflicting))
	for i, id := range e.Conflicting {
		ids[i] = id.String()
	}
	return fmt.Sprintf("seats unavailable: %s", strings.Join(ids, ", "))
}

// HoldMismatchError is returned when the ledger is asked to book seats on
// behalf of a hold that is no longer their holder. It means the hold expired
// and the seat was reassigned, or the ledger and hold store disagree; the
// caller must treat it as a consistency fault and never ignore it silently.
type HoldMismatchError struct {
	SeatID uuid.UUID
	HoldID uuid.UUID
}

func (e *HoldMismatchError) Error() string {
	return fmt.Sprintf("seat %s is not held by hold %s", e.SeatID, e.HoldID)
}
