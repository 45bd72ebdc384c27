package repository

import (
	"context"
	"fmt"
	"time"

	"ticket-booking/internal/data/entity"
	"ticket-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// HoldRepository stores hold records. Status changes go through guarded
// updates so that convert, release and expire race safely: whichever caller
// transitions the row out of active first wins, the others see reported=false.
type HoldRepository interface {
	Create(ctx context.Context, hold *entity.Hold) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Hold, error)

	// FindExpired returns active holds whose deadline passed at or before now.
	FindExpired(ctx context.Context, now time.Time, limit int) ([]*entity.Hold, error)

	// TransitionStatus moves the hold from active to the given terminal
	// status. Returns false when the hold was not active anymore.
	TransitionStatus(ctx context.Context, holdID uuid.UUID, to entity.HoldStatus, reason string) (bool, error)

	// ExpireIfOverdue moves the hold to expired only while it is active AND
	// its deadline has passed at the given instant. An extend committed
	// after the caller decided the hold was overdue therefore wins.
	ExpireIfOverdue(ctx context.Context, holdID uuid.UUID, now time.Time) (bool, error)

	// UpdateExpiry pushes the deadline forward. Returns false when the hold
	// is no longer active.
	UpdateExpiry(ctx context.Context, holdID uuid.UUID, expiresAt time.Time) (bool, error)
}

type holdRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewHoldRepository(db database.PgxIface, log *zap.Logger) HoldRepository {
	return &holdRepository{
		db:  db,
		log: log.With(zap.String("repository", "hold")),
	}
}

func (r *holdRepository) Create(ctx context.Context, hold *entity.Hold) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin hold transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO holds (id, customer_id, event_id, status, expires_at, release_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		hold.ID,
		hold.CustomerID,
		hold.EventID,
		hold.Status,
		hold.ExpiresAt,
		hold.ReleaseReason,
		hold.CreatedAt,
		hold.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create hold",
			zap.Error(err),
			zap.String("hold_id", hold.ID.String()),
			zap.String("customer_id", hold.CustomerID.String()),
		)
		return fmt.Errorf("create hold: %w", err)
	}

	query := `INSERT INTO hold_seats (hold_id, seat_id) VALUES `
	args := []interface{}{}
	for i, seatID := range hold.SeatIDs {
		if i > 0 {
			query += ", "
		}
		query += fmt.Sprintf("($%d, $%d)", i*2+1, i*2+2)
		args = append(args, hold.ID, seatID)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		r.log.Error("Failed to create hold seats",
			zap.Error(err),
			zap.String("hold_id", hold.ID.String()),
			zap.Int("seat_count", len(hold.SeatIDs)),
		)
		return fmt.Errorf("create hold seats: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit hold transaction: %w", err)
	}

	return nil
}

func (r *holdRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Hold, error) {
	query := `
		SELECT id, customer_id, event_id, status, expires_at, release_reason, created_at, updated_at
		FROM holds
		WHERE id = $1
	`

	var hold entity.Hold
	err := r.db.QueryRow(ctx, query, id).Scan(
		&hold.ID,
		&hold.CustomerID,
		&hold.EventID,
		&hold.Status,
		&hold.ExpiresAt,
		&hold.ReleaseReason,
		&hold.CreatedAt,
		&hold.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find hold by ID",
			zap.Error(err),
			zap.String("hold_id", id.String()),
		)
		return nil, fmt.Errorf("find hold: %w", err)
	}

	seatIDs, err := r.holdSeatIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	hold.SeatIDs = seatIDs

	return &hold, nil
}

func (r *holdRepository) holdSeatIDs(ctx context.Context, holdID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `SELECT seat_id FROM hold_seats WHERE hold_id = $1`, holdID)
	if err != nil {
		r.log.Error("Failed to load hold seats",
			zap.Error(err),
			zap.String("hold_id", holdID.String()),
		)
		return nil, fmt.Errorf("load hold seats: %w", err)
	}
	defer rows.Close()

	var seatIDs []uuid.UUID
	for rows.Next() {
		var seatID uuid.UUID
		if err := rows.Scan(&seatID); err != nil {
			return nil, fmt.Errorf("scan hold seat: %w", err)
		}
		seatIDs = append(seatIDs, seatID)
	}

	return seatIDs, nil
}

func (r *holdRepository) FindExpired(ctx context.Context, now time.Time, limit int) ([]*entity.Hold, error) {
	query := `
		SELECT id, customer_id, event_id, status, expires_at, release_reason, created_at, updated_at
		FROM holds
		WHERE status = $1 AND expires_at <= $2
		ORDER BY expires_at
		LIMIT $3
	`

	rows, err := r.db.Query(ctx, query, entity.HoldStatusActive, now, limit)
	if err != nil {
		r.log.Error("Failed to find expired holds", zap.Error(err))
		return nil, fmt.Errorf("find expired holds: %w", err)
	}
	defer rows.Close()

	var holds []*entity.Hold
	for rows.Next() {
		var hold entity.Hold
		err := rows.Scan(
			&hold.ID,
			&hold.CustomerID,
			&hold.EventID,
			&hold.Status,
			&hold.ExpiresAt,
			&hold.ReleaseReason,
			&hold.CreatedAt,
			&hold.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan hold: %w", err)
		}
		holds = append(holds, &hold)
	}
	rows.Close()

	for _, hold := range holds {
		seatIDs, err := r.holdSeatIDs(ctx, hold.ID)
		if err != nil {
			return nil, err
		}
		hold.SeatIDs = seatIDs
	}

	return holds, nil
}

func (r *holdRepository) TransitionStatus(ctx context.Context, holdID uuid.UUID, to entity.HoldStatus, reason string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE holds
		SET status = $1, release_reason = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4
	`, to, reason, holdID, entity.HoldStatusActive)
	if err != nil {
		r.log.Error("Failed to transition hold status",
			zap.Error(err),
			zap.String("hold_id", holdID.String()),
			zap.String("to", string(to)),
		)
		return false, fmt.Errorf("transition hold status: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

func (r *holdRepository) ExpireIfOverdue(ctx context.Context, holdID uuid.UUID, now time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE holds
		SET status = $1, release_reason = 'expired', updated_at = NOW()
		WHERE id = $2 AND status = $3 AND expires_at <= $4
	`, entity.HoldStatusExpired, holdID, entity.HoldStatusActive, now)
	if err != nil {
		r.log.Error("Failed to expire hold",
			zap.Error(err),
			zap.String("hold_id", holdID.String()),
		)
		return false, fmt.Errorf("expire hold: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

func (r *holdRepository) UpdateExpiry(ctx context.Context, holdID uuid.UUID, expiresAt time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE holds
		SET expires_at = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`, expiresAt, holdID, entity.HoldStatusActive)
	if err != nil {
		r.log.Error("Failed to update hold expiry",
			zap.Error(err),
			zap.String("hold_id", holdID.String()),
		)
		return false, fmt.Errorf("update hold expiry: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}
