package auth

import (
	"context"

	"github.com/shelfwise/shelfwise/internal/types"
)

type contextKey string

const authContextKey contextKey = "shelfwise_auth"

// AuthInfo holds authenticated identity information extracted from an API key.
type AuthInfo struct {
	KeyID    string
	UserID   string
	UserName string
	Role     types.Role
}

// IsAdmin reports whether the principal holds the admin role.
func (a *AuthInfo) IsAdmin() bool {
	return a.Role == types.RoleAdmin
}

func ContextWithAuth(ctx context.Context, info *AuthInfo) context.Context {
	return context.WithValue(ctx, authContextKey, info)
}

func AuthFromContext(ctx context.Context) (*AuthInfo, bool) {
	info, ok := ctx.Value(authContextKey).(*AuthInfo)
	return info, ok
}
