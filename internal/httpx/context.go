package httpx

import (
	"context"

	"github.com/ariefcatur/go-order-workflows/internal/auth"
)

type ctxKey int

const claimsKey ctxKey = iota

func withClaims(ctx context.Context, c *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

func ClaimsFrom(ctx context.Context) *auth.Claims {
	c, _ := ctx.Value(claimsKey).(*auth.Claims)
	return c
}

// userID is only called behind Authenticate, which guarantees claims.
func userID(ctx context.Context) string {
	if c := ClaimsFrom(ctx); c != nil {
		return c.UserID
	}
	return ""
}
