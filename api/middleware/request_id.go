package middleware

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/logger"
)

const requestIDHeader = "X-Request-Id"

// Inbound ids end up in logs and error bodies, so only short opaque tokens
// are trusted.
var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{8,128}$`)

// RequestID reuses a well-formed X-Request-Id from the caller or mints one,
// echoes it on the response and attaches it to the request logger.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(requestIDHeader)
			if !requestIDPattern.MatchString(reqID) {
				reqID = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, reqID)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
