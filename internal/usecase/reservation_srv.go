package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"ticket-booking/internal/data/entity"
	"ticket-booking/internal/data/repository"
	"ticket-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReservationService owns the hold lifecycle on top of the seat ledger. It
// is the only component that mutates seat state; the saga coordinator and
// the sweeper go through it.
//
// Hold state machine: active -> converted | released | expired. The terminal
// transition is claimed with a guarded status update before seats are
// touched, so convert, release and expire race safely: exactly one wins.
type ReservationService interface {
	// Reserve places an all-or-nothing hold on the seats for the given
	// duration. A zero duration means the configured default; longer
	// requests are clamped to the configured maximum.
	Reserve(ctx context.Context, customerID, eventID uuid.UUID, seatIDs []uuid.UUID, holdDuration time.Duration) (*entity.Hold, error)

	// Extend pushes an active, unexpired hold's deadline forward.
	Extend(ctx context.Context, customerID, holdID uuid.UUID, additional time.Duration) (*entity.Hold, error)

	// Convert turns the hold into a permanent booking of its seats.
	Convert(ctx context.Context, holdID, bookingID uuid.UUID) error

	// Release returns the hold's seats to the free pool. Idempotent: a hold
	// already in a terminal state is left as is.
	Release(ctx context.Context, holdID uuid.UUID, reason string) error

	// Cancel is customer-initiated release with an ownership check.
	Cancel(ctx context.Context, customerID, holdID uuid.UUID) error

	// ExpireHold settles an overdue hold. Returns false when someone else
	// already moved the hold to a terminal state.
	ExpireHold(ctx context.Context, holdID uuid.UUID) (bool, error)

	GetHold(ctx context.Context, holdID uuid.UUID) (*entity.Hold, error)
}

type reservationService struct {
	repo   *repository.Repository
	cache  SeatCache
	config *utils.Config
	log    *zap.Logger
}

func NewReservationService(repo *repository.Repository, cache SeatCache, config *utils.Config, log *zap.Logger) ReservationService {
	return &reservationService{
		repo:   repo,
		cache:  cache,
		config: config,
		log:    log.With(zap.String("service", "reservation")),
	}
}

func (s *reservationService) Reserve(ctx context.Context, customerID, eventID uuid.UUID, seatIDs []uuid.UUID, holdDuration time.Duration) (*entity.Hold, error) {
	seatIDs = dedupeSorted(seatIDs)
	if len(seatIDs) == 0 {
		return nil, ErrEmptySeatSet
	}

	if holdDuration <= 0 {
		holdDuration = s.config.Hold.DefaultDuration
	}
	if holdDuration > s.config.Hold.MaxDuration {
		holdDuration = s.config.Hold.MaxDuration
	}

	// Validate the seats against the provisioned inventory before touching
	// ledger state. Unknown ids surface as unavailable.
	seats, err := s.repo.Ledger.FindByIDs(ctx, seatIDs)
	if err != nil {
		return nil, fmt.Errorf("validate seats: %w", err)
	}
	if len(seats) != len(seatIDs) {
		known := make(map[uuid.UUID]bool, len(seats))
		for _, seat := range seats {
			known[seat.ID] = true
		}
		var missing []uuid.UUID
		for _, id := range seatIDs {
			if !known[id] {
				missing = append(missing, id)
			}
		}
		return nil, &repository.SeatUnavailableError{Conflicting: missing}
	}
	for _, seat := range seats {
		if seat.EventID != eventID {
			return nil, fmt.Errorf("seat %s: %w", seat.ID, ErrSeatEventMismatch)
		}
	}

	holdID := uuid.New()
	if err := s.repo.Ledger.TryMarkHeld(ctx, seatIDs, holdID); err != nil {
		var unavailable *repository.SeatUnavailableError
		if errors.As(err, &unavailable) {
			s.log.Info("Reservation lost seat contention",
				zap.String("customer_id", customerID.String()),
				zap.String("event_id", eventID.String()),
				zap.Int("conflicting", len(unavailable.Conflicting)),
			)
			return nil, err
		}
		return nil, fmt.Errorf("hold seats: %w", err)
	}

	now := time.Now()
	hold := &entity.Hold{
		BaseNoDelete: entity.BaseNoDelete{
			ID:        holdID,
			CreatedAt: now,
			UpdatedAt: now,
		},
		CustomerID: customerID,
		EventID:    eventID,
		SeatIDs:    seatIDs,
		Status:     entity.HoldStatusActive,
		ExpiresAt:  now.Add(holdDuration),
	}

	if err := s.repo.Hold.Create(ctx, hold); err != nil {
		// Compensate: the seats were marked held but the hold record could
		// not be written, so give them back.
		if rErr := s.repo.Ledger.Release(ctx, seatIDs, holdID); rErr != nil {
			s.log.Error("Failed to roll back seats after hold create failure",
				zap.Error(rErr),
				zap.String("hold_id", holdID.String()),
			)
		}
		return nil, fmt.Errorf("create hold: %w", err)
	}

	s.cache.Invalidate(ctx, eventID)

	s.log.Info("Hold created",
		zap.String("hold_id", holdID.String()),
		zap.String("customer_id", customerID.String()),
		zap.String("event_id", eventID.String()),
		zap.Int("seat_count", len(seatIDs)),
		zap.Time("expires_at", hold.ExpiresAt),
	)

	return hold, nil
}

func (s *reservationService) Extend(ctx context.Context, customerID, holdID uuid.UUID, additional time.Duration) (*entity.Hold, error) {
	hold, err := s.requireHold(ctx, holdID)
	if err != nil {
		return nil, err
	}
	if hold.CustomerID != customerID {
		return nil, ErrNotHoldOwner
	}
	if hold.Terminal() {
		return nil, &HoldNotActiveError{HoldID: holdID, Status: hold.Status}
	}
	if hold.ExpiredAt(time.Now()) {
		return nil, &HoldExpiredError{HoldID: holdID, ExpiredAt: hold.ExpiresAt}
	}

	if additional <= 0 {
		additional = s.config.Hold.DefaultDuration
	}
	newExpiry := hold.ExpiresAt.Add(additional)
	if max := time.Now().Add(s.config.Hold.MaxDuration); newExpiry.After(max) {
		newExpiry = max
	}

	ok, err := s.repo.Hold.UpdateExpiry(ctx, holdID, newExpiry)
	if err != nil {
		return nil, fmt.Errorf("extend hold: %w", err)
	}
	if !ok {
		// Lost a race with convert/release/expire between read and update.
		return nil, &HoldNotActiveError{HoldID: holdID, Status: hold.Status}
	}

	hold.ExpiresAt = newExpiry

	s.log.Info("Hold extended",
		zap.String("hold_id", holdID.String()),
		zap.Time("expires_at", newExpiry),
	)

	return hold, nil
}

func (s *reservationService) Convert(ctx context.Context, holdID, bookingID uuid.UUID) error {
	hold, err := s.requireHold(ctx, holdID)
	if err != nil {
		return err
	}

	if hold.Terminal() {
		if hold.Status == entity.HoldStatusExpired {
			return &HoldExpiredError{HoldID: holdID, ExpiredAt: hold.ExpiresAt}
		}
		return &HoldNotActiveError{HoldID: holdID, Status: hold.Status}
	}

	if hold.ExpiredAt(time.Now()) {
		// Past deadline but not yet swept: settle it here rather than
		// handing an overdue hold to the booking path.
		if _, err := s.ExpireHold(ctx, holdID); err != nil {
			s.log.Warn("Failed to settle overdue hold during convert",
				zap.Error(err),
				zap.String("hold_id", holdID.String()),
			)
		}
		return &HoldExpiredError{HoldID: holdID, ExpiredAt: hold.ExpiresAt}
	}

	// Claim the terminal transition first; the loser of this update never
	// touches seat state.
	won, err := s.repo.Hold.TransitionStatus(ctx, holdID, entity.HoldStatusConverted, "")
	if err != nil {
		return fmt.Errorf("convert hold: %w", err)
	}
	if !won {
		current, err := s.requireHold(ctx, holdID)
		if err != nil {
			return err
		}
		if current.Status == entity.HoldStatusExpired {
			return &HoldExpiredError{HoldID: holdID, ExpiredAt: current.ExpiresAt}
		}
		return &HoldNotActiveError{HoldID: holdID, Status: current.Status}
	}

	if err := s.repo.Ledger.MarkBooked(ctx, hold.SeatIDs, holdID, bookingID); err != nil {
		var mismatch *repository.HoldMismatchError
		if errors.As(err, &mismatch) {
			// Ledger and hold store disagree: the hold row said active but
			// a seat is not held by it. Fatal consistency fault.
			s.log.Error("HOLD MISMATCH: ledger disagrees with hold record",
				zap.Error(err),
				zap.String("hold_id", holdID.String()),
				zap.String("booking_id", bookingID.String()),
				zap.String("seat_id", mismatch.SeatID.String()),
			)
		}
		return err
	}

	s.cache.Invalidate(ctx, hold.EventID)

	s.log.Info("Hold converted",
		zap.String("hold_id", holdID.String()),
		zap.String("booking_id", bookingID.String()),
		zap.Int("seat_count", len(hold.SeatIDs)),
	)

	return nil
}

func (s *reservationService) Release(ctx context.Context, holdID uuid.UUID, reason string) error {
	hold, err := s.requireHold(ctx, holdID)
	if err != nil {
		return err
	}
	if hold.Terminal() {
		return nil // idempotent
	}

	won, err := s.repo.Hold.TransitionStatus(ctx, holdID, entity.HoldStatusReleased, reason)
	if err != nil {
		return fmt.Errorf("release hold: %w", err)
	}
	if !won {
		return nil // someone else already settled it
	}

	if err := s.repo.Ledger.Release(ctx, hold.SeatIDs, holdID); err != nil {
		return fmt.Errorf("release seats: %w", err)
	}

	s.cache.Invalidate(ctx, hold.EventID)

	s.log.Info("Hold released",
		zap.String("hold_id", holdID.String()),
		zap.String("reason", reason),
	)

	return nil
}

func (s *reservationService) Cancel(ctx context.Context, customerID, holdID uuid.UUID) error {
	hold, err := s.requireHold(ctx, holdID)
	if err != nil {
		return err
	}
	if hold.CustomerID != customerID {
		return ErrNotHoldOwner
	}

	return s.Release(ctx, holdID, "cancelled")
}

func (s *reservationService) ExpireHold(ctx context.Context, holdID uuid.UUID) (bool, error) {
	hold, err := s.requireHold(ctx, holdID)
	if err != nil {
		return false, err
	}
	if hold.Terminal() {
		return false, nil
	}

	// Deadline-guarded: an extend that committed after the caller found the
	// hold overdue wins, and the hold stays active.
	won, err := s.repo.Hold.ExpireIfOverdue(ctx, holdID, time.Now())
	if err != nil {
		return false, fmt.Errorf("expire hold: %w", err)
	}
	if !won {
		return false, nil
	}

	if err := s.repo.Ledger.Release(ctx, hold.SeatIDs, holdID); err != nil {
		return true, fmt.Errorf("release expired seats: %w", err)
	}

	s.cache.Invalidate(ctx, hold.EventID)

	return true, nil
}

func (s *reservationService) GetHold(ctx context.Context, holdID uuid.UUID) (*entity.Hold, error) {
	return s.requireHold(ctx, holdID)
}

func (s *reservationService) requireHold(ctx context.Context, holdID uuid.UUID) (*entity.Hold, error) {
	hold, err := s.repo.Hold.FindByID(ctx, holdID)
	if err != nil {
		return nil, fmt.Errorf("find hold: %w", err)
	}
	if hold == nil {
		return nil, fmt.Errorf("hold %s: %w", holdID, repository.ErrNotFound)
	}
	return hold, nil
}

// dedupeSorted removes duplicate ids and sorts them, giving a stable lock
// acquisition order for ledger implementations that lock per seat.
func dedupeSorted(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})
	return out
}
