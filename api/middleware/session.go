package middleware

import (
	"context"
	"net/http"

	"github.com/sofiaduarte/threadline-backend/pkg/logger"
)

type contextKey string

const (
	ctxSessionKey contextKey = "session_key"
	ctxGuestID    contextKey = "guest_id"
)

const (
	sessionKeyHeader = "X-Session-Key"
	guestIDHeader    = "X-Guest-Id"
)

// Session lifts the caller's identity headers into the request context. An
// authenticated caller presents a session key; an anonymous one a guest id.
// Neither is required here; handlers that need one reject its absence.
func Session(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if key := r.Header.Get(sessionKeyHeader); key != "" {
				ctx = context.WithValue(ctx, ctxSessionKey, key)
				if logg != nil {
					ctx = logg.WithSessionID(ctx, key)
				}
			}
			if guestID := r.Header.Get(guestIDHeader); guestID != "" {
				ctx = context.WithValue(ctx, ctxGuestID, guestID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func SessionKeyFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxSessionKey).(string); ok {
		return v
	}
	return ""
}

func GuestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxGuestID).(string); ok {
		return v
	}
	return ""
}

// WithSessionKey injects the session key into the context.
func WithSessionKey(ctx context.Context, key string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxSessionKey, key)
}

// WithGuestID injects the guest identifier into the context.
func WithGuestID(ctx context.Context, guestID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxGuestID, guestID)
}
