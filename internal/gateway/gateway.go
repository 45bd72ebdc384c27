package gateway

import (
	"context"
	"fmt"
	"time"
)

type ChargeStatus string

const (
	ChargeStatusSucceeded ChargeStatus = "succeeded"
	ChargeStatusFailed    ChargeStatus = "failed"
	ChargeStatusPending   ChargeStatus = "pending"
)

// Charge is the gateway's record of one payment attempt. Reference is the
// gateway-side id used for refunds.
type Charge struct {
	Reference      string       `json:"reference"`
	IdempotencyKey string       `json:"idempotency_key"`
	Amount         float64      `json:"amount"`
	Currency       string       `json:"currency"`
	Status         ChargeStatus `json:"status"`
	CreatedAt      time.Time    `json:"created_at"`
}

type ChargeRequest struct {
	// IdempotencyKey makes retried charges safe: the gateway must apply a
	// given key at most once. The saga uses the booking id.
	IdempotencyKey string
	Amount         float64
	Currency       string
	Method         string
	CardNumber     string
}

// PaymentGateway is the external payment collaborator. Implementations must
// honor idempotency on Charge and expose charge lookup by idempotency key so
// that a restarted coordinator can settle in-flight bookings without ever
// charging twice.
type PaymentGateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*Charge, error)
	Refund(ctx context.Context, chargeRef string, amount float64) error

	// LookupCharge reports the charge recorded under the idempotency key,
	// or found=false when the gateway never saw the key.
	LookupCharge(ctx context.Context, idempotencyKey string) (charge *Charge, found bool, err error)
}

// PaymentError is a gateway-reported charge failure. Timeout marks cases
// where the outcome is unknown to the caller (deadline hit, connection
// lost); such bookings go through recovery instead of immediate retry.
type PaymentError struct {
	Reason  string
	Timeout bool
}

func (e *PaymentError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("payment timed out: %s", e.Reason)
	}
	return fmt.Sprintf("payment failed: %s", e.Reason)
}

// RefundError means a compensating refund did not go through. The saga
// treats it as fatal and flags the booking for operator attention.
type RefundError struct {
	ChargeRef string
	Reason    string
}

func (e *RefundError) Error() string {
	return fmt.Sprintf("refund of charge %s failed: %s", e.ChargeRef, e.Reason)
}
