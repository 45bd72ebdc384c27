package utils

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	CustomerIDKey contextKey = "customer_id"
)

// GetCustomerIDFromContext returns the authenticated customer id placed in
// the context by the identity middleware. The id is opaque to this core; the
// upstream auth gateway is trusted to have verified it.
func GetCustomerIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	val := ctx.Value(CustomerIDKey)
	if val == nil {
		return uuid.Nil, false
	}

	idStr, ok := val.(string)
	if !ok {
		return uuid.Nil, false
	}

	customerID, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, false
	}

	return customerID, true
}

func SetCustomerContext(ctx context.Context, customerID uuid.UUID) context.Context {
	return context.WithValue(ctx, CustomerIDKey, customerID.String())
}
