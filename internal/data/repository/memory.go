package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"ticket-booking/internal/data/entity"

	"github.com/google/uuid"
)

// In-memory repository implementations. They satisfy the same interfaces as
// the postgres ones and honor the same state guards, with one mutex per
// store serializing conflicting access. Tests run against these; standalone
// mode uses them when no database is configured.

type MemorySeatLedger struct {
	mu    sync.Mutex
	seats map[uuid.UUID]*entity.Seat
}

func NewMemorySeatLedger() *MemorySeatLedger {
	return &MemorySeatLedger{
		seats: make(map[uuid.UUID]*entity.Seat),
	}
}

func (l *MemorySeatLedger) Provision(ctx context.Context, seats []*entity.Seat) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Insert-only, matching the table's primary key: re-provisioning an id
	// must never reset live seat state.
	for _, seat := range seats {
		if _, ok := l.seats[seat.ID]; ok {
			return fmt.Errorf("provision seats: seat %s already exists", seat.ID)
		}
	}

	for _, seat := range seats {
		cp := *seat
		cp.State = entity.SeatStateFree
		cp.HoldID = nil
		cp.BookingID = nil
		cp.Version = 0
		l.seats[cp.ID] = &cp
	}
	return nil
}

func (l *MemorySeatLedger) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.Seat, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var seats []*entity.Seat
	for _, id := range ids {
		if seat, ok := l.seats[id]; ok {
			cp := *seat
			seats = append(seats, &cp)
		}
	}
	return seats, nil
}

func (l *MemorySeatLedger) TryMarkHeld(ctx context.Context, seatIDs []uuid.UUID, holdID uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	// All-or-nothing: check the full set before touching anything.
	var conflicting []uuid.UUID
	for _, id := range seatIDs {
		seat, ok := l.seats[id]
		if !ok || !seat.IsFree() {
			conflicting = append(conflicting, id)
		}
	}
	if len(conflicting) > 0 {
		return &SeatUnavailableError{Conflicting: conflicting}
	}

	hid := holdID
	now := time.Now()
	for _, id := range seatIDs {
		seat := l.seats[id]
		seat.State = entity.SeatStateHeld
		seat.HoldID = &hid
		seat.Version++
		seat.UpdatedAt = now
	}
	return nil
}

func (l *MemorySeatLedger) MarkBooked(ctx context.Context, seatIDs []uuid.UUID, holdID, bookingID uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, id := range seatIDs {
		seat, ok := l.seats[id]
		if !ok || !seat.HeldBy(holdID) {
			return &HoldMismatchError{SeatID: id, HoldID: holdID}
		}
	}

	bid := bookingID
	now := time.Now()
	for _, id := range seatIDs {
		seat := l.seats[id]
		seat.State = entity.SeatStateBooked
		seat.HoldID = nil
		seat.BookingID = &bid
		seat.Version++
		seat.UpdatedAt = now
	}
	return nil
}

func (l *MemorySeatLedger) Release(ctx context.Context, seatIDs []uuid.UUID, holdID uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for _, id := range seatIDs {
		seat, ok := l.seats[id]
		if !ok || !seat.HeldBy(holdID) {
			continue // idempotent: already free or owned elsewhere
		}
		seat.State = entity.SeatStateFree
		seat.HoldID = nil
		seat.Version++
		seat.UpdatedAt = now
	}
	return nil
}

func (l *MemorySeatLedger) Snapshot(ctx context.Context, eventID uuid.UUID) ([]*entity.Seat, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var seats []*entity.Seat
	for _, seat := range l.seats {
		if seat.EventID == eventID {
			cp := *seat
			seats = append(seats, &cp)
		}
	}

	sort.Slice(seats, func(i, j int) bool {
		if seats[i].SeatRow != seats[j].SeatRow {
			return seats[i].SeatRow < seats[j].SeatRow
		}
		return seats[i].SeatColumn < seats[j].SeatColumn
	})

	return seats, nil
}

type MemoryHoldRepository struct {
	mu    sync.Mutex
	holds map[uuid.UUID]*entity.Hold
}

func NewMemoryHoldRepository() *MemoryHoldRepository {
	return &MemoryHoldRepository{
		holds: make(map[uuid.UUID]*entity.Hold),
	}
}

func (r *MemoryHoldRepository) Create(ctx context.Context, hold *entity.Hold) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *hold
	cp.SeatIDs = append([]uuid.UUID(nil), hold.SeatIDs...)
	r.holds[cp.ID] = &cp
	return nil
}

func (r *MemoryHoldRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Hold, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	hold, ok := r.holds[id]
	if !ok {
		return nil, nil
	}
	cp := *hold
	cp.SeatIDs = append([]uuid.UUID(nil), hold.SeatIDs...)
	return &cp, nil
}

func (r *MemoryHoldRepository) FindExpired(ctx context.Context, now time.Time, limit int) ([]*entity.Hold, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var expired []*entity.Hold
	for _, hold := range r.holds {
		if hold.Status == entity.HoldStatusActive && hold.ExpiredAt(now) {
			cp := *hold
			cp.SeatIDs = append([]uuid.UUID(nil), hold.SeatIDs...)
			expired = append(expired, &cp)
		}
	}

	sort.Slice(expired, func(i, j int) bool {
		return expired[i].ExpiresAt.Before(expired[j].ExpiresAt)
	})
	if limit > 0 && len(expired) > limit {
		expired = expired[:limit]
	}

	return expired, nil
}

func (r *MemoryHoldRepository) TransitionStatus(ctx context.Context, holdID uuid.UUID, to entity.HoldStatus, reason string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	hold, ok := r.holds[holdID]
	if !ok || hold.Status != entity.HoldStatusActive {
		return false, nil
	}

	hold.Status = to
	hold.ReleaseReason = reason
	hold.UpdatedAt = time.Now()
	return true, nil
}

func (r *MemoryHoldRepository) ExpireIfOverdue(ctx context.Context, holdID uuid.UUID, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	hold, ok := r.holds[holdID]
	if !ok || hold.Status != entity.HoldStatusActive || hold.ExpiresAt.After(now) {
		return false, nil
	}

	hold.Status = entity.HoldStatusExpired
	hold.ReleaseReason = "expired"
	hold.UpdatedAt = time.Now()
	return true, nil
}

func (r *MemoryHoldRepository) UpdateExpiry(ctx context.Context, holdID uuid.UUID, expiresAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	hold, ok := r.holds[holdID]
	if !ok || hold.Status != entity.HoldStatusActive {
		return false, nil
	}

	hold.ExpiresAt = expiresAt
	hold.UpdatedAt = time.Now()
	return true, nil
}

type MemoryBookingRepository struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]*entity.Booking
}

func NewMemoryBookingRepository() *MemoryBookingRepository {
	return &MemoryBookingRepository{
		bookings: make(map[uuid.UUID]*entity.Booking),
	}
}

func (r *MemoryBookingRepository) Create(ctx context.Context, booking *entity.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *booking
	cp.Seats = append([]entity.BookingSeat(nil), booking.Seats...)
	r.bookings[cp.ID] = &cp
	return nil
}

func (r *MemoryBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	booking, ok := r.bookings[id]
	if !ok {
		return nil, nil
	}
	return copyBooking(booking), nil
}

func (r *MemoryBookingRepository) FindByCustomerID(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []*entity.Booking
	for _, booking := range r.bookings {
		if booking.CustomerID == customerID {
			all = append(all, copyBooking(booking))
		}
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if offset >= len(all) {
		return []*entity.Booking{}, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *MemoryBookingRepository) CountByCustomerID(ctx context.Context, customerID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var total int64
	for _, booking := range r.bookings {
		if booking.CustomerID == customerID {
			total++
		}
	}
	return total, nil
}

func (r *MemoryBookingRepository) FindPendingPayment(ctx context.Context) ([]*entity.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var pending []*entity.Booking
	for _, booking := range r.bookings {
		if booking.Status == entity.BookingStatusPendingPayment {
			pending = append(pending, copyBooking(booking))
		}
	}

	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})

	return pending, nil
}

func (r *MemoryBookingRepository) MarkConfirmed(ctx context.Context, id uuid.UUID, paymentRef string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	booking, ok := r.bookings[id]
	if !ok || booking.Status != entity.BookingStatusPendingPayment {
		return ErrNotFound
	}

	booking.Status = entity.BookingStatusConfirmed
	booking.PaymentRef = &paymentRef
	confirmedAt := at
	booking.ConfirmedAt = &confirmedAt
	booking.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryBookingRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string, paymentRef *string, requiresAttention bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	booking, ok := r.bookings[id]
	if !ok || booking.Status != entity.BookingStatusPendingPayment {
		return ErrNotFound
	}

	booking.Status = entity.BookingStatusFailed
	booking.FailureReason = reason
	if paymentRef != nil {
		booking.PaymentRef = paymentRef
	}
	booking.RequiresAttention = requiresAttention
	booking.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryBookingRepository) MarkCancelled(ctx context.Context, id uuid.UUID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	booking, ok := r.bookings[id]
	if !ok || booking.Status != entity.BookingStatusPendingPayment {
		return ErrNotFound
	}

	booking.Status = entity.BookingStatusCancelled
	booking.FailureReason = reason
	booking.UpdatedAt = time.Now()
	return nil
}

func copyBooking(booking *entity.Booking) *entity.Booking {
	cp := *booking
	cp.Seats = append([]entity.BookingSeat(nil), booking.Seats...)
	return &cp
}
