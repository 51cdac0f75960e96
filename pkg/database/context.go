package database

import "context"

type contextKey string

const propertyScopeKey contextKey = "property_scope"

// SetPropertyScope stores a property-scoped connection in the context.
func SetPropertyScope(ctx context.Context, scope *PropertyScope) context.Context {
	return context.WithValue(ctx, propertyScopeKey, scope)
}

// GetPropertyScope retrieves the property-scoped connection from the context.
// Repositories must fail when no scope is present; queries outside a property
// scope would bypass RLS.
func GetPropertyScope(ctx context.Context) (*PropertyScope, bool) {
	scope, ok := ctx.Value(propertyScopeKey).(*PropertyScope)
	return scope, ok
}
