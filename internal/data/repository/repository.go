package repository

import (
	"ticket-booking/pkg/database"

	"go.uber.org/zap"
)

type Repository struct {
	Ledger  SeatLedgerRepository
	Hold    HoldRepository
	Booking BookingRepository
}

// NewRepository wires the postgres-backed repositories.
func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		Ledger:  NewSeatLedgerRepository(db, log),
		Hold:    NewHoldRepository(db, log),
		Booking: NewBookingRepository(db, log),
	}
}

// NewMemoryRepository wires the in-memory repositories. Used by tests and
// by standalone mode when no database is configured.
func NewMemoryRepository() *Repository {
	return &Repository{
		Ledger:  NewMemorySeatLedger(),
		Hold:    NewMemoryHoldRepository(),
		Booking: NewMemoryBookingRepository(),
	}
}
