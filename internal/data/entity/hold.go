package entity

import (
	"time"

	"github.com/google/uuid"
)

type HoldStatus string

const (
	HoldStatusActive    HoldStatus = "active"
	HoldStatusExpired   HoldStatus = "expired"
	HoldStatusConverted HoldStatus = "converted"
	HoldStatusReleased  HoldStatus = "released"
)

// Hold is a time-bounded claim on a set of seats by one customer while they
// check out. Exactly one terminal transition wins: active -> converted
// (booking confirmed), active -> expired (swept), or active -> released
// (explicit cancel or payment failure). Terminal holds are never mutated
// again; rows are kept for audit.
type Hold struct {
	BaseNoDelete
	CustomerID    uuid.UUID   `db:"customer_id"`
	EventID       uuid.UUID   `db:"event_id"`
	SeatIDs       []uuid.UUID `db:"-"` // hold_seats rows, hydrated by the repository
	Status        HoldStatus  `db:"status"`
	ExpiresAt     time.Time   `db:"expires_at"`
	ReleaseReason string      `db:"release_reason"` // empty unless released/expired
}

// Terminal reports whether the hold has reached a final status.
func (h *Hold) Terminal() bool {
	return h.Status != HoldStatusActive
}

// ExpiredAt reports whether the hold deadline has passed at the given
// instant. A hold can be past its deadline while still recorded as active;
// the sweeper or the next guarded transition settles it.
func (h *Hold) ExpiredAt(now time.Time) bool {
	return !h.ExpiresAt.After(now)
}
