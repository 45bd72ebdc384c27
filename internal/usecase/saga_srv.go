package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ticket-booking/internal/data/entity"
	"ticket-booking/internal/data/repository"
	"ticket-booking/internal/gateway"
	"ticket-booking/internal/queue"
	"ticket-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentDetails carries the customer's payment instrument through to the
// gateway. The core never stores it.
type PaymentDetails struct {
	Method     string
	CardNumber string
}

// BookingSagaService drives the reserve -> pay -> confirm transaction across
// the reservation manager and the external payment gateway. It is the only
// component allowed to initiate compensating actions (release, refund).
//
// Saga steps for ConfirmBooking:
//  1. verify the hold (reserve already happened);
//  2. create a Booking in pending_payment;
//  3. charge the gateway, idempotency key = booking id;
//  4. convert the hold; success confirms the booking (commit point);
//  5. any failure after a successful charge refunds it; any failure before
//     releases the hold.
type BookingSagaService interface {
	ConfirmBooking(ctx context.Context, customerID, holdID uuid.UUID, payment PaymentDetails) (*entity.Booking, error)

	// RecoverPending settles bookings left in pending_payment by a crashed
	// coordinator. The gateway is queried by idempotency key; a booking is
	// never re-charged.
	RecoverPending(ctx context.Context) error

	// RunRecovery blocks, re-running RecoverPending every interval until ctx
	// is cancelled. Bookings parked by an unknown payment outcome are only
	// ever settled by a later pass, so one pass at startup is not enough.
	RunRecovery(ctx context.Context, interval time.Duration)

	GetBooking(ctx context.Context, customerID, bookingID uuid.UUID) (*entity.Booking, error)
	ListBookings(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*entity.Booking, int64, error)
}

type bookingSagaService struct {
	repo        *repository.Repository
	reservation ReservationService
	gateway     gateway.PaymentGateway
	publisher   queue.Publisher
	config      *utils.Config
	log         *zap.Logger
}

func NewBookingSagaService(
	repo *repository.Repository,
	reservation ReservationService,
	gw gateway.PaymentGateway,
	publisher queue.Publisher,
	config *utils.Config,
	log *zap.Logger,
) BookingSagaService {
	return &bookingSagaService{
		repo:        repo,
		reservation: reservation,
		gateway:     gw,
		publisher:   publisher,
		config:      config,
		log:         log.With(zap.String("service", "booking_saga")),
	}
}

func (s *bookingSagaService) ConfirmBooking(ctx context.Context, customerID, holdID uuid.UUID, payment PaymentDetails) (*entity.Booking, error) {
	hold, err := s.reservation.GetHold(ctx, holdID)
	if err != nil {
		return nil, err
	}
	if hold.CustomerID != customerID {
		return nil, ErrNotHoldOwner
	}
	if hold.Terminal() {
		if hold.Status == entity.HoldStatusExpired {
			return nil, &HoldExpiredError{HoldID: holdID, ExpiredAt: hold.ExpiresAt}
		}
		return nil, &HoldNotActiveError{HoldID: holdID, Status: hold.Status}
	}
	if hold.ExpiredAt(time.Now()) {
		return nil, &HoldExpiredError{HoldID: holdID, ExpiredAt: hold.ExpiresAt}
	}

	booking, err := s.createPendingBooking(ctx, hold)
	if err != nil {
		return nil, err
	}

	// Step 3: charge. The timeout here is deliberately much shorter than the
	// hold duration so a legitimate in-flight payment is never swept.
	chargeCtx, cancel := context.WithTimeout(ctx, s.config.Payment.ChargeTimeout)
	defer cancel()

	charge, err := s.gateway.Charge(chargeCtx, gateway.ChargeRequest{
		IdempotencyKey: booking.ID.String(),
		Amount:         booking.TotalAmount,
		Currency:       booking.Currency,
		Method:         payment.Method,
		CardNumber:     payment.CardNumber,
	})
	if err != nil {
		var payErr *gateway.PaymentError
		if errors.As(err, &payErr) && payErr.Timeout {
			// Outcome unknown: ask the gateway before compensating, exactly
			// like crash recovery would. Never assume the charge failed.
			return s.settleUnknownOutcome(ctx, booking, hold, payErr)
		}

		reason := "payment failed"
		if errors.As(err, &payErr) {
			reason = payErr.Reason
		}
		return nil, s.compensateUnpaid(ctx, booking, hold, reason, err)
	}

	return s.finalize(ctx, booking, hold, charge)
}

// finalize runs step 4 after a known-successful charge.
func (s *bookingSagaService) finalize(ctx context.Context, booking *entity.Booking, hold *entity.Hold, charge *gateway.Charge) (*entity.Booking, error) {
	err := s.reservation.Convert(ctx, hold.ID, booking.ID)
	if err != nil {
		var notActive *HoldNotActiveError
		if errors.As(err, &notActive) && notActive.Status == entity.HoldStatusConverted {
			// A previous run may have converted this hold for this very
			// booking and died before recording the confirmation. Refunding
			// now would leave the seats booked with the money returned, so
			// ask the ledger who the seats belong to before compensating.
			booked, ledgerErr := s.seatsBookedUnder(ctx, hold, booking.ID)
			if ledgerErr != nil {
				// Cannot tell; leave the booking pending for the next
				// recovery pass rather than risk a wrong refund.
				return nil, fmt.Errorf("verify seat ownership: %w", ledgerErr)
			}
			if booked {
				err = nil
			}
		}
	}
	if err == nil {
		now := time.Now()
		if err := s.repo.Booking.MarkConfirmed(ctx, booking.ID, charge.Reference, now); err != nil {
			// Seats are booked and money taken; the status row lagging
			// behind is recoverable, not a compensation case.
			s.log.Error("Booking confirmed but status update failed",
				zap.Error(err),
				zap.String("booking_id", booking.ID.String()),
			)
		}
		booking.Status = entity.BookingStatusConfirmed
		booking.PaymentRef = &charge.Reference
		booking.ConfirmedAt = &now

		s.log.Info("Booking confirmed",
			zap.String("booking_id", booking.ID.String()),
			zap.String("reference", booking.Reference),
			zap.String("charge_ref", charge.Reference),
			zap.Float64("amount", booking.TotalAmount),
		)
		s.publishConfirmed(ctx, booking)
		return booking, nil
	}

	// The hold was settled out from under us after the customer paid: the
	// charge must be compensated with a refund.
	s.log.Warn("Hold conversion failed after successful charge, refunding",
		zap.Error(err),
		zap.String("booking_id", booking.ID.String()),
		zap.String("hold_id", hold.ID.String()),
	)

	if refundErr := s.gateway.Refund(ctx, charge.Reference, charge.Amount); refundErr != nil {
		// Money taken, no seats, refund failed. Flag for an operator and
		// say so loudly; this must never be silently discarded.
		s.log.Error("REFUND FAILED: charge taken without seats, operator attention required",
			zap.Error(refundErr),
			zap.String("booking_id", booking.ID.String()),
			zap.String("charge_ref", charge.Reference),
			zap.Float64("amount", charge.Amount),
		)
		s.markFailed(ctx, booking, "hold expired and refund failed", &charge.Reference, true)
		return nil, &BookingFailedError{
			BookingID:         booking.ID,
			Step:              "refund",
			Reason:            "hold expired and refund failed",
			RequiresAttention: true,
			Err:               refundErr,
		}
	}

	s.markFailed(ctx, booking, "hold expired before confirmation, charge refunded", &charge.Reference, false)
	return nil, &BookingFailedError{
		BookingID: booking.ID,
		Step:      "convert_hold",
		Reason:    "hold expired before confirmation, charge refunded",
		Err:       err,
	}
}

// settleUnknownOutcome handles a charge whose result never reached us.
func (s *bookingSagaService) settleUnknownOutcome(ctx context.Context, booking *entity.Booking, hold *entity.Hold, payErr *gateway.PaymentError) (*entity.Booking, error) {
	charge, found, err := s.gateway.LookupCharge(ctx, booking.ID.String())
	if err != nil {
		// Gateway unreachable: leave the booking pending for recovery.
		s.log.Error("Charge outcome unknown and lookup failed, leaving booking pending",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
		)
		return nil, &BookingFailedError{
			BookingID: booking.ID,
			Step:      "charge_payment",
			Reason:    "payment outcome unknown, booking queued for recovery",
			Err:       payErr,
		}
	}

	if found && charge.Status == gateway.ChargeStatusSucceeded {
		return s.finalize(ctx, booking, hold, charge)
	}
	if found && charge.Status == gateway.ChargeStatusPending {
		return nil, &BookingFailedError{
			BookingID: booking.ID,
			Step:      "charge_payment",
			Reason:    "payment still pending, booking queued for recovery",
			Err:       payErr,
		}
	}

	return nil, s.compensateUnpaid(ctx, booking, hold, "payment timed out", payErr)
}

// compensateUnpaid rolls back step 1 after a charge that is known to have
// not happened.
func (s *bookingSagaService) compensateUnpaid(ctx context.Context, booking *entity.Booking, hold *entity.Hold, reason string, cause error) error {
	if err := s.reservation.Release(ctx, hold.ID, "payment_failed"); err != nil {
		s.log.Error("Failed to release hold after payment failure",
			zap.Error(err),
			zap.String("hold_id", hold.ID.String()),
			zap.String("booking_id", booking.ID.String()),
		)
	}
	s.markFailed(ctx, booking, reason, nil, false)

	s.log.Info("Booking failed, hold released",
		zap.String("booking_id", booking.ID.String()),
		zap.String("reason", reason),
	)

	return &BookingFailedError{
		BookingID: booking.ID,
		Step:      "charge_payment",
		Reason:    reason,
		Err:       cause,
	}
}

// seatsBookedUnder reports whether every seat of the hold is currently
// booked under the given booking id.
func (s *bookingSagaService) seatsBookedUnder(ctx context.Context, hold *entity.Hold, bookingID uuid.UUID) (bool, error) {
	seats, err := s.repo.Ledger.FindByIDs(ctx, hold.SeatIDs)
	if err != nil {
		return false, err
	}
	if len(seats) != len(hold.SeatIDs) {
		return false, nil
	}
	for _, seat := range seats {
		if seat.State != entity.SeatStateBooked || seat.BookingID == nil || *seat.BookingID != bookingID {
			return false, nil
		}
	}
	return true, nil
}

func (s *bookingSagaService) createPendingBooking(ctx context.Context, hold *entity.Hold) (*entity.Booking, error) {
	seats, err := s.repo.Ledger.FindByIDs(ctx, hold.SeatIDs)
	if err != nil {
		return nil, fmt.Errorf("load hold seats: %w", err)
	}
	if len(seats) != len(hold.SeatIDs) {
		return nil, fmt.Errorf("hold %s references unknown seats: %w", hold.ID, repository.ErrNotFound)
	}

	now := time.Now()
	bookingID := uuid.New()

	var total float64
	bookingSeats := make([]entity.BookingSeat, len(seats))
	for i, seat := range seats {
		total += seat.Price
		bookingSeats[i] = entity.BookingSeat{
			BaseSimple: entity.BaseSimple{
				ID:        uuid.New(),
				CreatedAt: now,
			},
			BookingID: bookingID,
			SeatID:    seat.ID,
			SectionID: seat.SectionID,
			SeatLabel: seat.SeatLabel,
			Price:     seat.Price,
		}
	}

	booking := &entity.Booking{
		BaseNoDelete: entity.BaseNoDelete{
			ID:        bookingID,
			CreatedAt: now,
			UpdatedAt: now,
		},
		Reference:   utils.GenerateBookingReference(),
		CustomerID:  hold.CustomerID,
		EventID:     hold.EventID,
		HoldID:      hold.ID,
		Seats:       bookingSeats,
		TotalAmount: total,
		Currency:    s.config.Payment.Currency,
		Status:      entity.BookingStatusPendingPayment,
	}

	if err := s.repo.Booking.Create(ctx, booking); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	s.log.Info("Booking created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("reference", booking.Reference),
		zap.String("hold_id", hold.ID.String()),
		zap.Float64("total", total),
	)

	return booking, nil
}

func (s *bookingSagaService) RecoverPending(ctx context.Context) error {
	pending, err := s.repo.Booking.FindPendingPayment(ctx)
	if err != nil {
		return fmt.Errorf("list pending bookings: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	s.log.Info("Recovering pending bookings", zap.Int("count", len(pending)))

	for _, booking := range pending {
		if err := s.recoverOne(ctx, booking); err != nil {
			s.log.Error("Failed to recover booking",
				zap.Error(err),
				zap.String("booking_id", booking.ID.String()),
			)
		}
	}

	return nil
}

func (s *bookingSagaService) RunRecovery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info("Booking recovery loop started", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Booking recovery loop stopped")
			return
		case <-ticker.C:
			if err := s.RecoverPending(ctx); err != nil {
				s.log.Error("Recovery pass failed", zap.Error(err))
			}
		}
	}
}

func (s *bookingSagaService) recoverOne(ctx context.Context, booking *entity.Booking) error {
	charge, found, err := s.gateway.LookupCharge(ctx, booking.ID.String())
	if err != nil {
		return fmt.Errorf("lookup charge: %w", err)
	}

	hold, err := s.reservation.GetHold(ctx, booking.HoldID)
	if err != nil {
		return err
	}

	switch {
	case found && charge.Status == gateway.ChargeStatusSucceeded:
		// Customer paid; finish the saga forward or refund.
		_, err := s.finalize(ctx, booking, hold, charge)
		var failed *BookingFailedError
		if err != nil && !errors.As(err, &failed) {
			return err
		}
		return nil

	case found && charge.Status == gateway.ChargeStatusPending:
		// Still in flight at the gateway; next recovery pass decides.
		s.log.Info("Charge still pending at gateway, leaving booking for next pass",
			zap.String("booking_id", booking.ID.String()),
		)
		return nil

	default:
		// Never charged or charge failed: compensate the reservation.
		if err := s.reservation.Release(ctx, booking.HoldID, "payment_failed"); err != nil {
			return err
		}
		s.markFailed(ctx, booking, "no successful charge found during recovery", nil, false)
		return nil
	}
}

func (s *bookingSagaService) GetBooking(ctx context.Context, customerID, bookingID uuid.UUID) (*entity.Booking, error) {
	booking, err := s.repo.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("find booking: %w", err)
	}
	if booking == nil || booking.CustomerID != customerID {
		return nil, fmt.Errorf("booking %s: %w", bookingID, repository.ErrNotFound)
	}
	return booking, nil
}

func (s *bookingSagaService) ListBookings(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*entity.Booking, int64, error) {
	bookings, err := s.repo.Booking.FindByCustomerID(ctx, customerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}

	total, err := s.repo.Booking.CountByCustomerID(ctx, customerID)
	if err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}

	return bookings, total, nil
}

func (s *bookingSagaService) markFailed(ctx context.Context, booking *entity.Booking, reason string, paymentRef *string, requiresAttention bool) {
	if err := s.repo.Booking.MarkFailed(ctx, booking.ID, reason, paymentRef, requiresAttention); err != nil {
		s.log.Error("Failed to mark booking failed",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
		)
	}
	booking.Status = entity.BookingStatusFailed
	booking.FailureReason = reason
	booking.RequiresAttention = requiresAttention
	if paymentRef != nil {
		booking.PaymentRef = paymentRef
	}

	s.publishFailed(ctx, booking)
}

func (s *bookingSagaService) publishConfirmed(ctx context.Context, booking *entity.Booking) {
	seatIDs := make([]string, len(booking.Seats))
	for i, seat := range booking.Seats {
		seatIDs[i] = seat.SeatID.String()
	}

	err := s.publisher.PublishBookingConfirmed(ctx, queue.BookingConfirmedEvent{
		BookingID:  booking.ID.String(),
		Reference:  booking.Reference,
		CustomerID: booking.CustomerID.String(),
		EventID:    booking.EventID.String(),
		SeatIDs:    seatIDs,
		Amount:     booking.TotalAmount,
		Currency:   booking.Currency,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		s.log.Warn("Failed to publish booking confirmed event",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
		)
	}
}

func (s *bookingSagaService) publishFailed(ctx context.Context, booking *entity.Booking) {
	err := s.publisher.PublishBookingFailed(ctx, queue.BookingFailedEvent{
		BookingID:         booking.ID.String(),
		CustomerID:        booking.CustomerID.String(),
		EventID:           booking.EventID.String(),
		Reason:            booking.FailureReason,
		RequiresAttention: booking.RequiresAttention,
		OccurredAt:        time.Now().UTC(),
	})
	if err != nil {
		s.log.Warn("Failed to publish booking failed event",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
		)
	}
}
