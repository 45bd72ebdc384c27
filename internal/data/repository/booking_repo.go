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

// BookingRepository stores booking outcomes. Bookings are the only records
// retained indefinitely; a booking row plus its seat snapshots is written in
// one transaction when the saga enters payment collection.
type BookingRepository interface {
	Create(ctx context.Context, booking *entity.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	FindByCustomerID(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*entity.Booking, error)
	CountByCustomerID(ctx context.Context, customerID uuid.UUID) (int64, error)

	// FindPendingPayment returns bookings still awaiting a payment outcome,
	// used by saga recovery after a coordinator restart.
	FindPendingPayment(ctx context.Context) ([]*entity.Booking, error)

	MarkConfirmed(ctx context.Context, id uuid.UUID, paymentRef string, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string, paymentRef *string, requiresAttention bool) error
	MarkCancelled(ctx context.Context, id uuid.UUID, reason string) error
}

type bookingRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewBookingRepository(db database.PgxIface, log *zap.Logger) BookingRepository {
	return &bookingRepository{
		db:  db,
		log: log.With(zap.String("repository", "booking")),
	}
}

const bookingColumns = `id, reference, customer_id, event_id, hold_id, total_amount, currency, status, payment_ref, failure_reason, requires_attention, confirmed_at, created_at, updated_at`

func (r *bookingRepository) Create(ctx context.Context, booking *entity.Booking) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin booking transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO bookings (id, reference, customer_id, event_id, hold_id, total_amount, currency, status, failure_reason, requires_attention, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		booking.ID,
		booking.Reference,
		booking.CustomerID,
		booking.EventID,
		booking.HoldID,
		booking.TotalAmount,
		booking.Currency,
		booking.Status,
		booking.FailureReason,
		booking.RequiresAttention,
		booking.CreatedAt,
		booking.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create booking",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
			zap.String("reference", booking.Reference),
		)
		return fmt.Errorf("create booking: %w", err)
	}

	query := `INSERT INTO booking_seats (id, booking_id, seat_id, section_id, seat_label, price, created_at) VALUES `
	args := []interface{}{}
	for i, seat := range booking.Seats {
		if i > 0 {
			query += ", "
		}
		query += fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			i*7+1, i*7+2, i*7+3, i*7+4, i*7+5, i*7+6, i*7+7)
		args = append(args,
			seat.ID,
			booking.ID,
			seat.SeatID,
			seat.SectionID,
			seat.SeatLabel,
			seat.Price,
			seat.CreatedAt,
		)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		r.log.Error("Failed to create booking seats",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
			zap.Int("seat_count", len(booking.Seats)),
		)
		return fmt.Errorf("create booking seats: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit booking transaction: %w", err)
	}

	return nil
}

func (r *bookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := r.scanBooking(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking by ID",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return nil, fmt.Errorf("find booking: %w", err)
	}

	seats, err := r.bookingSeats(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	booking.Seats = seats

	return booking, nil
}

func (r *bookingRepository) FindByCustomerID(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE customer_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, customerID, limit, offset)
	if err != nil {
		r.log.Error("Failed to find bookings by customer",
			zap.Error(err),
			zap.String("customer_id", customerID.String()),
		)
		return nil, fmt.Errorf("find bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*entity.Booking
	for rows.Next() {
		booking, err := r.scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}
	rows.Close()

	for _, booking := range bookings {
		seats, err := r.bookingSeats(ctx, booking.ID)
		if err != nil {
			return nil, err
		}
		booking.Seats = seats
	}

	return bookings, nil
}

func (r *bookingRepository) CountByCustomerID(ctx context.Context, customerID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM bookings WHERE customer_id = $1`, customerID).Scan(&total)
	if err != nil {
		r.log.Error("Failed to count bookings",
			zap.Error(err),
			zap.String("customer_id", customerID.String()),
		)
		return 0, fmt.Errorf("count bookings: %w", err)
	}
	return total, nil
}

func (r *bookingRepository) FindPendingPayment(ctx context.Context) ([]*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE status = $1 ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, entity.BookingStatusPendingPayment)
	if err != nil {
		r.log.Error("Failed to find pending bookings", zap.Error(err))
		return nil, fmt.Errorf("find pending bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*entity.Booking
	for rows.Next() {
		booking, err := r.scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}
	rows.Close()

	for _, booking := range bookings {
		seats, err := r.bookingSeats(ctx, booking.ID)
		if err != nil {
			return nil, err
		}
		booking.Seats = seats
	}

	return bookings, nil
}

func (r *bookingRepository) MarkConfirmed(ctx context.Context, id uuid.UUID, paymentRef string, at time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE bookings
		SET status = $1, payment_ref = $2, confirmed_at = $3, updated_at = NOW()
		WHERE id = $4 AND status = $5
	`, entity.BookingStatusConfirmed, paymentRef, at, id, entity.BookingStatusPendingPayment)
	if err != nil {
		r.log.Error("Failed to confirm booking",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return fmt.Errorf("confirm booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("confirm booking %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *bookingRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string, paymentRef *string, requiresAttention bool) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE bookings
		SET status = $1, failure_reason = $2, payment_ref = COALESCE($3, payment_ref), requires_attention = $4, updated_at = NOW()
		WHERE id = $5 AND status = $6
	`, entity.BookingStatusFailed, reason, paymentRef, requiresAttention, id, entity.BookingStatusPendingPayment)
	if err != nil {
		r.log.Error("Failed to mark booking failed",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return fmt.Errorf("fail booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("fail booking %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *bookingRepository) MarkCancelled(ctx context.Context, id uuid.UUID, reason string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE bookings
		SET status = $1, failure_reason = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4
	`, entity.BookingStatusCancelled, reason, id, entity.BookingStatusPendingPayment)
	if err != nil {
		r.log.Error("Failed to cancel booking",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return fmt.Errorf("cancel booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("cancel booking %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *bookingRepository) scanBooking(row rowScanner) (*entity.Booking, error) {
	var booking entity.Booking
	err := row.Scan(
		&booking.ID,
		&booking.Reference,
		&booking.CustomerID,
		&booking.EventID,
		&booking.HoldID,
		&booking.TotalAmount,
		&booking.Currency,
		&booking.Status,
		&booking.PaymentRef,
		&booking.FailureReason,
		&booking.RequiresAttention,
		&booking.ConfirmedAt,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) bookingSeats(ctx context.Context, bookingID uuid.UUID) ([]entity.BookingSeat, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, booking_id, seat_id, section_id, seat_label, price, created_at
		FROM booking_seats
		WHERE booking_id = $1
	`, bookingID)
	if err != nil {
		r.log.Error("Failed to load booking seats",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return nil, fmt.Errorf("load booking seats: %w", err)
	}
	defer rows.Close()

	var seats []entity.BookingSeat
	for rows.Next() {
		var seat entity.BookingSeat
		err := rows.Scan(
			&seat.ID,
			&seat.BookingID,
			&seat.SeatID,
			&seat.SectionID,
			&seat.SeatLabel,
			&seat.Price,
			&seat.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan booking seat: %w", err)
		}
		seats = append(seats, seat)
	}

	return seats, nil
}
