package middleware

import (
	"net/http"

	"ticket-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Identity extracts the authenticated customer id injected by the upstream
// API gateway. Authentication itself happens outside this service; the
// gateway strips any client-supplied X-Customer-ID and sets its own after
// verifying the session, so the header is trusted here.
func Identity(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("X-Customer-ID")
			if header == "" {
				utils.ResponseUnauthorized(w, "Missing customer identity")
				return
			}

			customerID, err := uuid.Parse(header)
			if err != nil {
				logger.Warn("Malformed customer identity header",
					zap.String("value", header),
					zap.String("path", r.URL.Path),
				)
				utils.ResponseUnauthorized(w, "Invalid customer identity")
				return
			}

			ctx := utils.SetCustomerContext(r.Context(), customerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
