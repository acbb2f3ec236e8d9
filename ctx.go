package accounts

import (
	"context"
)

var actorCtxKey = &contextKey{"actor"}
var claimsCtxKey = &contextKey{"claims"}

type contextKey struct {
	name string
}

// WithActorContext sets the Actor in the given context
func WithActorContext(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorCtxKey, actor)
}

// ActorFromContext finds the actor from the context. Absent actors are how
// optional-auth reads express anonymous callers; the policy chain treats
// the nil case itself.
func ActorFromContext(ctx context.Context) (*Actor, bool) {
	raw, ok := ctx.Value(actorCtxKey).(*Actor)
	return raw, ok
}

// WithClaimsContext sets the AccountClaims in the given context
func WithClaimsContext(ctx context.Context, claims *AccountClaims) context.Context {
	return context.WithValue(ctx, claimsCtxKey, claims)
}

// ClaimsFromContext extracts the AccountClaims from the context
func ClaimsFromContext(ctx context.Context) (*AccountClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(*AccountClaims)
	return raw, ok
}
