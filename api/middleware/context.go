package middleware

import (
	"context"

	"github.com/angelmondragon/carrental-backend/internal/policy"
)

type contextKey string

const ctxPrincipal contextKey = "principal"

// WithPrincipal stores the caller on the context.
func WithPrincipal(ctx context.Context, p policy.Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxPrincipal, p)
}

// PrincipalFromContext returns the caller, or a guest when Auth did not run.
func PrincipalFromContext(ctx context.Context) policy.Principal {
	if ctx == nil {
		return policy.Guest()
	}
	if p, ok := ctx.Value(ctxPrincipal).(policy.Principal); ok {
		return p
	}
	return policy.Guest()
}
