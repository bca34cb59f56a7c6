package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/trato-app/trato-backend/pkg/logger"
)

const requestIDHeader = "X-Request-Id"

// RequestID honours an inbound X-Request-Id, minting one otherwise, and
// echoes it back on the response so clients can correlate.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := inboundRequestID(r)
			w.Header().Set(requestIDHeader, reqID)

			if logg == nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(logg.WithRequestID(r.Context(), reqID)))
		})
	}
}

func inboundRequestID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(requestIDHeader)); id != "" {
		return id
	}
	return uuid.NewString()
}
