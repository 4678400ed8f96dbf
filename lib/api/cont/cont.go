// Package cont carries the authenticated caller through a request context.
package cont

import (
	"context"
	"gigacode/entity"
)

type userKey struct{}

func PutUser(ctx context.Context, user *entity.User) context.Context {
	if user == nil {
		return ctx
	}
	return context.WithValue(ctx, userKey{}, user)
}

// GetUser returns nil when the request did not pass authentication.
func GetUser(ctx context.Context) *entity.User {
	user, _ := ctx.Value(userKey{}).(*entity.User)
	return user
}

// Caller names the authenticated user for logs, "anonymous" otherwise.
func Caller(ctx context.Context) string {
	if user := GetUser(ctx); user != nil && user.Username != "" {
		return user.Username
	}
	return "anonymous"
}
