package auth

import (
	"context"
)

type contextKey string

const PrincipalKey contextKey = "principal"

// Principal identifies the caller of an API request.
type Principal struct {
	Name          string
	Authenticated bool
}

func GetPrincipalFromContext(ctx context.Context) (*Principal, bool) {
	principal, ok := ctx.Value(PrincipalKey).(*Principal)
	return principal, ok
}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}
