package domain

import "context"

type contextKey string

// CallerContextKey stores the resolved AuthContext on a request context.
const CallerContextKey contextKey = "caller"

// AuthContext is the identity resolved from a bearer credential.
type AuthContext struct {
	CallerID string
	IsAdmin  bool
}

// WithCaller returns ctx carrying the given caller.
func WithCaller(ctx context.Context, caller AuthContext) context.Context {
	return context.WithValue(ctx, CallerContextKey, caller)
}

// CallerFrom returns the caller stored by the auth middleware.
func CallerFrom(ctx context.Context) (AuthContext, bool) {
	c, ok := ctx.Value(CallerContextKey).(AuthContext)
	return c, ok
}

// ProfileRepository exposes the admin flag of a profile.
type ProfileRepository interface {
	// IsAdmin returns ErrNotFound when the profile does not exist.
	IsAdmin(ctx context.Context, userID string) (bool, error)
}
