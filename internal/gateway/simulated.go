package gateway

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SimulatedGateway is an in-process stand-in for a real payment provider.
// Outcomes are driven by the card number, mirroring PSP test cards:
//
//	ending 0002 — declined
//	ending 0119 — processing error reported as timeout (outcome unknown)
//	anything else — succeeds
//
// Charges are idempotent per key: a repeated Charge with a known key returns
// the recorded outcome without charging again.
type SimulatedGateway struct {
	mu      sync.Mutex
	charges map[string]*Charge
	log     *zap.Logger

	// FailRefunds makes every refund fail. Exercises the operator-attention
	// path in dev setups.
	FailRefunds bool
}

func NewSimulatedGateway(log *zap.Logger) *SimulatedGateway {
	return &SimulatedGateway{
		charges: make(map[string]*Charge),
		log:     log.With(zap.String("gateway", "simulated")),
	}
}

func (g *SimulatedGateway) Charge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	if err := ctx.Err(); err != nil {
		return nil, &PaymentError{Reason: err.Error(), Timeout: true}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if existing, ok := g.charges[req.IdempotencyKey]; ok {
		g.log.Info("Charge replayed by idempotency key",
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.String("status", string(existing.Status)),
		)
		if existing.Status == ChargeStatusFailed {
			return nil, &PaymentError{Reason: "card declined"}
		}
		return existing, nil
	}

	charge := &Charge{
		Reference:      fmt.Sprintf("ch_%d", time.Now().UnixNano()),
		IdempotencyKey: req.IdempotencyKey,
		Amount:         req.Amount,
		Currency:       req.Currency,
		Status:         ChargeStatusSucceeded,
		CreatedAt:      time.Now(),
	}

	switch {
	case strings.HasSuffix(req.CardNumber, "0002"):
		charge.Status = ChargeStatusFailed
		g.charges[req.IdempotencyKey] = charge
		g.log.Info("Charge declined",
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.Float64("amount", req.Amount),
		)
		return nil, &PaymentError{Reason: "card declined"}

	case strings.HasSuffix(req.CardNumber, "0119"):
		// The charge went through on the gateway side but the caller never
		// learns it: the unknown-outcome case recovery has to settle.
		g.charges[req.IdempotencyKey] = charge
		g.log.Warn("Charge outcome withheld to simulate timeout",
			zap.String("idempotency_key", req.IdempotencyKey),
		)
		return nil, &PaymentError{Reason: "gateway did not respond", Timeout: true}
	}

	g.charges[req.IdempotencyKey] = charge
	g.log.Info("Charge succeeded",
		zap.String("idempotency_key", req.IdempotencyKey),
		zap.String("reference", charge.Reference),
		zap.Float64("amount", req.Amount),
	)
	return charge, nil
}

func (g *SimulatedGateway) Refund(ctx context.Context, chargeRef string, amount float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.FailRefunds {
		return &RefundError{ChargeRef: chargeRef, Reason: "refunds disabled"}
	}

	for _, charge := range g.charges {
		if charge.Reference == chargeRef {
			g.log.Info("Charge refunded",
				zap.String("reference", chargeRef),
				zap.Float64("amount", amount),
			)
			return nil
		}
	}
	return &RefundError{ChargeRef: chargeRef, Reason: "unknown charge"}
}

func (g *SimulatedGateway) LookupCharge(ctx context.Context, idempotencyKey string) (*Charge, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	charge, ok := g.charges[idempotencyKey]
	return charge, ok, nil
}
