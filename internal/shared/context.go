package shared

import "context"

// Principal carries the identity claims of the authenticated caller as issued
// by the external identity provider. Subject is the provider's stable user ID
// (a Keycloak UUID); Email is the secondary claim used as a lookup fallback.
type Principal struct {
	Subject string
	Email   string
}

type principalContextKey struct{}

// ContextWithPrincipal stores the authenticated principal in context.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the authenticated principal from context.
// Returns nil when the request carries no authentication.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey{}).(*Principal)
	return p
}
