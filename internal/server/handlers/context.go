package handlers

import "context"

type contextKey int

const userKey contextKey = 0

// WithUser returns ctx carrying the email of the authenticated user.
func WithUser(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, userKey, email)
}

// UserEmail returns the email of the authenticated user, if any.
func UserEmail(ctx context.Context) (string, bool) {
	e, ok := ctx.Value(userKey).(string)
	return e, ok && e != ""
}
