package middleware

import (
	"context"

	"github.com/google/uuid"
)

type authClaimsKey struct{}

// AuthClaims carries the authenticated user identity through the request context.
type AuthClaims struct {
	UserID uuid.UUID
	Email  string
	Tier   string
}

// WithAuthClaims returns a context carrying the given claims.
func WithAuthClaims(ctx context.Context, claims AuthClaims) context.Context {
	return context.WithValue(ctx, authClaimsKey{}, claims)
}

// AuthClaimsFromContext extracts the authenticated user claims, if present.
func AuthClaimsFromContext(ctx context.Context) (AuthClaims, bool) {
	claims, ok := ctx.Value(authClaimsKey{}).(AuthClaims)
	return claims, ok
}
