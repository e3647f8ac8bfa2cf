package middleware

import (
	"log/slog"
	"net/http"

	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/pkg/logger"
)

// SessionHeader identifies one storefront tab or client; searches sharing it
// supersede each other.
const SessionHeader = "X-Search-Session"

// RequestLogger returns middleware that builds a request-scoped logger enriched
// with correlation_id, search_session, trace_id, and span_id, then stores it in
// context via logger.NewContext.
//
// Mount it after RequestLogging (which sets correlation_id) and Tracing
// (which sets the span context).
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if session := r.Header.Get(SessionHeader); session != "" {
				ctx = logger.WithSessionID(ctx, session)
			}

			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
