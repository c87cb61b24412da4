package middleware

import (
	"context"

	chimw "github.com/go-chi/chi/v5/middleware"
)

type ctxKey int

const (
	userIDKey ctxKey = iota
	rolesKey
)

func InjectUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

func UserID(ctx context.Context) string {
	v := ctx.Value(userIDKey)
	if v == nil {
		return ""
	}
	return v.(string)
}

func InjectRoles(ctx context.Context, roles []string) context.Context {
	return context.WithValue(ctx, rolesKey, roles)
}

// Roles are the back-office roles from the access token.
func Roles(ctx context.Context) []string {
	v := ctx.Value(rolesKey)
	if v == nil {
		return nil
	}
	return v.([]string)
}

func RequestIDFromContext(ctx context.Context) string {
	return chimw.GetReqID(ctx)
}
