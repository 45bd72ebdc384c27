package repository

import (
	"context"
	"fmt"

	"ticket-booking/internal/data/entity"
	"ticket-booking/pkg/database"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SeatLedgerRepository is the authoritative store for per-seat state. The
// mutating operations are state-guarded and atomic across the whole seat
// set: concurrent callers contending for the same seat see exactly one
// winner. Nothing outside the reservation layer writes seat state.
type SeatLedgerRepository interface {
	// Provision inserts the seat inventory for an event as handed over by
	// the catalog service. All seats start free.
	Provision(ctx context.Context, seats []*entity.Seat) error

	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.Seat, error)

	// TryMarkHeld transitions every seat in seatIDs from free to
	// held(holdID), or changes nothing and returns *SeatUnavailableError
	// listing the seats that were not free.
	TryMarkHeld(ctx context.Context, seatIDs []uuid.UUID, holdID uuid.UUID) error

	// MarkBooked transitions seats from held(holdID) to booked(bookingID).
	// Returns *HoldMismatchError if any seat's current holder differs.
	MarkBooked(ctx context.Context, seatIDs []uuid.UUID, holdID, bookingID uuid.UUID) error

	// Release transitions seats from held(holdID) back to free. Seats
	// already free or held by a different hold are skipped, not an error.
	Release(ctx context.Context, seatIDs []uuid.UUID, holdID uuid.UUID) error

	// Snapshot returns the current state of all seats for an event.
	Snapshot(ctx context.Context, eventID uuid.UUID) ([]*entity.Seat, error)
}

type seatLedgerRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewSeatLedgerRepository(db database.PgxIface, log *zap.Logger) SeatLedgerRepository {
	return &seatLedgerRepository{
		db:  db,
		log: log.With(zap.String("repository", "seat_ledger")),
	}
}

const seatColumns = `id, event_id, section_id, seat_label, seat_row, seat_column, price, state, hold_id, booking_id, version, created_at, updated_at`

func (r *seatLedgerRepository) Provision(ctx context.Context, seats []*entity.Seat) error {
	if len(seats) == 0 {
		return nil
	}

	query := `INSERT INTO seats (id, event_id, section_id, seat_label, seat_row, seat_column, price, state, version, created_at, updated_at) VALUES `
	args := []interface{}{}

	for i, seat := range seats {
		if i > 0 {
			query += ", "
		}
		query += fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			i*11+1, i*11+2, i*11+3, i*11+4, i*11+5, i*11+6, i*11+7, i*11+8, i*11+9, i*11+10, i*11+11)

		args = append(args,
			seat.ID,
			seat.EventID,
			seat.SectionID,
			seat.SeatLabel,
			seat.SeatRow,
			seat.SeatColumn,
			seat.Price,
			entity.SeatStateFree,
			0,
			seat.CreatedAt,
			seat.UpdatedAt,
		)
	}

	_, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to provision seats",
			zap.Error(err),
			zap.Int("count", len(seats)),
		)
		return fmt.Errorf("provision seats: %w", err)
	}

	return nil
}

func (r *seatLedgerRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.Seat, error) {
	if len(ids) == 0 {
		return []*entity.Seat{}, nil
	}

	query := `SELECT ` + seatColumns + ` FROM seats WHERE id = ANY($1)`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		r.log.Error("Failed to find seats by IDs",
			zap.Error(err),
			zap.Int("seat_count", len(ids)),
		)
		return nil, fmt.Errorf("find seats: %w", err)
	}
	defer rows.Close()

	var seats []*entity.Seat
	for rows.Next() {
		seat, err := scanSeat(rows)
		if err != nil {
			r.log.Error("Failed to scan seat row", zap.Error(err))
			return nil, fmt.Errorf("scan seat: %w", err)
		}
		seats = append(seats, seat)
	}

	return seats, nil
}

func (r *seatLedgerRepository) TryMarkHeld(ctx context.Context, seatIDs []uuid.UUID, holdID uuid.UUID) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin hold transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Guarded update: only seats currently free change. If fewer rows than
	// requested were touched, at least one seat was contested and the whole
	// reservation must not happen.
	tag, err := tx.Exec(ctx, `
		UPDATE seats
		SET state = $1, hold_id = $2, version = version + 1, updated_at = NOW()
		WHERE id = ANY($3) AND state = $4
	`, entity.SeatStateHeld, holdID, seatIDs, entity.SeatStateFree)
	if err != nil {
		r.log.Error("Failed to mark seats held",
			zap.Error(err),
			zap.String("hold_id", holdID.String()),
		)
		return fmt.Errorf("mark seats held: %w", err)
	}

	if tag.RowsAffected() != int64(len(seatIDs)) {
		if err := tx.Rollback(ctx); err != nil {
			r.log.Warn("Rollback after contested hold failed", zap.Error(err))
		}

		conflicting, cErr := r.conflictingSeats(ctx, seatIDs)
		if cErr != nil {
			return cErr
		}
		return &SeatUnavailableError{Conflicting: conflicting}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit hold transaction: %w", err)
	}

	return nil
}

// conflictingSeats reports which of the requested seats are not free right
// now, including ids that do not exist at all.
func (r *seatLedgerRepository) conflictingSeats(ctx context.Context, seatIDs []uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `SELECT id, state FROM seats WHERE id = ANY($1)`, seatIDs)
	if err != nil {
		return nil, fmt.Errorf("query contested seats: %w", err)
	}
	defer rows.Close()

	free := make(map[uuid.UUID]bool, len(seatIDs))
	found := make(map[uuid.UUID]bool, len(seatIDs))
	for rows.Next() {
		var id uuid.UUID
		var state entity.SeatState
		if err := rows.Scan(&id, &state); err != nil {
			return nil, fmt.Errorf("scan contested seat: %w", err)
		}
		found[id] = true
		free[id] = state == entity.SeatStateFree
	}

	var conflicting []uuid.UUID
	for _, id := range seatIDs {
		if !found[id] || !free[id] {
			conflicting = append(conflicting, id)
		}
	}
	return conflicting, nil
}

func (r *seatLedgerRepository) MarkBooked(ctx context.Context, seatIDs []uuid.UUID, holdID, bookingID uuid.UUID) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin booking transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE seats
		SET state = $1, booking_id = $2, hold_id = NULL, version = version + 1, updated_at = NOW()
		WHERE id = ANY($3) AND state = $4 AND hold_id = $5
	`, entity.SeatStateBooked, bookingID, seatIDs, entity.SeatStateHeld, holdID)
	if err != nil {
		r.log.Error("Failed to mark seats booked",
			zap.Error(err),
			zap.String("hold_id", holdID.String()),
			zap.String("booking_id", bookingID.String()),
		)
		return fmt.Errorf("mark seats booked: %w", err)
	}

	if tag.RowsAffected() != int64(len(seatIDs)) {
		if err := tx.Rollback(ctx); err != nil {
			r.log.Warn("Rollback after hold mismatch failed", zap.Error(err))
		}

		offender, oErr := r.firstMismatch(ctx, seatIDs, holdID)
		if oErr != nil {
			return oErr
		}
		return &HoldMismatchError{SeatID: offender, HoldID: holdID}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit booking transaction: %w", err)
	}

	return nil
}

func (r *seatLedgerRepository) firstMismatch(ctx context.Context, seatIDs []uuid.UUID, holdID uuid.UUID) (uuid.UUID, error) {
	seats, err := r.FindByIDs(ctx, seatIDs)
	if err != nil {
		return uuid.Nil, err
	}
	for _, seat := range seats {
		if !seat.HeldBy(holdID) {
			return seat.ID, nil
		}
	}
	// The offending seat vanished between update and inspection; report the
	// first requested id rather than nothing.
	return seatIDs[0], nil
}

func (r *seatLedgerRepository) Release(ctx context.Context, seatIDs []uuid.UUID, holdID uuid.UUID) error {
	if len(seatIDs) == 0 {
		return nil
	}

	// Idempotent: seats not held by this hold are left untouched.
	_, err := r.db.Exec(ctx, `
		UPDATE seats
		SET state = $1, hold_id = NULL, version = version + 1, updated_at = NOW()
		WHERE id = ANY($2) AND state = $3 AND hold_id = $4
	`, entity.SeatStateFree, seatIDs, entity.SeatStateHeld, holdID)
	if err != nil {
		r.log.Error("Failed to release seats",
			zap.Error(err),
			zap.String("hold_id", holdID.String()),
		)
		return fmt.Errorf("release seats: %w", err)
	}

	return nil
}

func (r *seatLedgerRepository) Snapshot(ctx context.Context, eventID uuid.UUID) ([]*entity.Seat, error) {
	query := `SELECT ` + seatColumns + ` FROM seats WHERE event_id = $1 ORDER BY seat_row, seat_column`

	rows, err := r.db.Query(ctx, query, eventID)
	if err != nil {
		r.log.Error("Failed to snapshot event seats",
			zap.Error(err),
			zap.String("event_id", eventID.String()),
		)
		return nil, fmt.Errorf("snapshot seats: %w", err)
	}
	defer rows.Close()

	var seats []*entity.Seat
	for rows.Next() {
		seat, err := scanSeat(rows)
		if err != nil {
			r.log.Error("Failed to scan seat row", zap.Error(err))
			return nil, fmt.Errorf("scan seat: %w", err)
		}
		seats = append(seats, seat)
	}

	return seats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSeat(row rowScanner) (*entity.Seat, error) {
	var seat entity.Seat
	err := row.Scan(
		&seat.ID,
		&seat.EventID,
		&seat.SectionID,
		&seat.SeatLabel,
		&seat.SeatRow,
		&seat.SeatColumn,
		&seat.Price,
		&seat.State,
		&seat.HoldID,
		&seat.BookingID,
		&seat.Version,
		&seat.CreatedAt,
		&seat.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &seat, nil
}
