package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const RequestIDKey contextKey = "request_id"

const RequestIDHeader = "X-Request-ID"

// RequestID returns the id RequestLogging attached to ctx, or "".
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// requestIDFrom reuses a caller supplied id when it parses as a UUID.
func requestIDFrom(r *http.Request) string {
	if h := r.Header.Get(RequestIDHeader); h != "" {
		if id, err := uuid.Parse(h); err == nil {
			return id.String()
		}
	}
	return uuid.NewString()
}
