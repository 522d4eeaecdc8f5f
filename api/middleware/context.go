package middleware

import (
	"context"

	"github.com/LucasBenitez7/acme-commerce-starter-sub000/internal/orders"
)

type contextKey string

const ctxCaller contextKey = "caller"

// CallerFromContext returns the authenticated caller seeded by Auth.
func CallerFromContext(ctx context.Context) (orders.Caller, bool) {
	if ctx == nil {
		return orders.Caller{}, false
	}
	caller, ok := ctx.Value(ctxCaller).(orders.Caller)
	return caller, ok
}

// WithCaller injects the caller into the context for downstream handlers.
func WithCaller(ctx context.Context, caller orders.Caller) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxCaller, caller)
}

// callerKey identifies the caller for scoping cached responses.
func callerKey(ctx context.Context) string {
	caller, ok := CallerFromContext(ctx)
	if !ok {
		return "anonymous"
	}
	if caller.UserID != nil {
		return caller.UserID.String()
	}
	if caller.Email != "" {
		return caller.Email
	}
	return string(caller.Role)
}
