package adaptor

import (
	"errors"
	"net/http"

	"ticket-booking/internal/data/repository"
	"ticket-booking/internal/gateway"
	"ticket-booking/internal/usecase"
	"ticket-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// respondError maps service errors onto HTTP responses. Seat contention is a
// 409 with the losing seats listed; a dead hold is 410; payment declines are
// 402. Anything unrecognized is a 500 with the detail kept out of the body.
func respondError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	var (
		unavailable *repository.SeatUnavailableError
		notActive   *usecase.HoldNotActiveError
		expired     *usecase.HoldExpiredError
		failed      *usecase.BookingFailedError
		payment     *gateway.PaymentError
	)

	switch {
	case errors.As(err, &unavailable):
		log.Info(operation+" rejected, seats unavailable",
			zap.Int("conflicting", len(unavailable.Conflicting)))
		utils.ResponseConflict(w, "Some seats are no longer available", map[string][]uuid.UUID{
			"conflicting_seat_ids": unavailable.Conflicting,
		})

	case errors.As(err, &expired):
		log.Info(operation+" rejected, hold expired",
			zap.String("hold_id", expired.HoldID.String()))
		utils.ResponseGone(w, err.Error())

	case errors.As(err, &notActive):
		log.Info(operation+" rejected, hold not active",
			zap.String("hold_id", notActive.HoldID.String()),
			zap.String("status", string(notActive.Status)))
		utils.ResponseGone(w, err.Error())

	case errors.As(err, &failed):
		respondBookingFailed(w, log, failed, operation)

	case errors.As(err, &payment):
		log.Info(operation+" rejected by payment gateway", zap.String("reason", payment.Reason))
		utils.ResponsePaymentRequired(w, "Payment was not accepted", map[string]string{
			"reason": payment.Reason,
		})

	case errors.Is(err, usecase.ErrNotHoldOwner):
		log.Warn(operation + " rejected, hold owned by another customer")
		utils.ResponseForbidden(w, err.Error())

	case errors.Is(err, usecase.ErrEmptySeatSet),
		errors.Is(err, usecase.ErrSeatEventMismatch):
		utils.ResponseBadRequest(w, err.Error(), nil)

	case errors.Is(err, repository.ErrNotFound):
		utils.ResponseNotFound(w, err.Error())

	default:
		log.Error("Failed to "+operation, zap.Error(err))
		utils.ResponseInternalError(w, "Internal server error")
	}
}

func respondBookingFailed(w http.ResponseWriter, log *zap.Logger, failed *usecase.BookingFailedError, operation string) {
	log.Warn(operation+" failed",
		zap.String("booking_id", failed.BookingID.String()),
		zap.String("step", failed.Step),
		zap.String("reason", failed.Reason),
		zap.Bool("requires_attention", failed.RequiresAttention),
	)

	detail := map[string]string{
		"booking_id": failed.BookingID.String(),
		"reason":     failed.Reason,
	}

	var expired *usecase.HoldExpiredError
	if errors.As(failed.Err, &expired) {
		utils.ResponseGone(w, failed.Reason)
		return
	}

	utils.ResponsePaymentRequired(w, "Booking could not be completed", detail)
}
