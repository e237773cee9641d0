package middleware

import (
	"context"

	"meetdesk-backend/internal/domain"
)

type userKey struct{}

// WithUser attaches the authenticated user to ctx
func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFromContext returns the authenticated user of ctx
func UserFromContext(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(userKey{}).(*domain.User)
	return user, ok && user != nil
}

// ContextIdentity resolves the current user from the request context
type ContextIdentity struct{}

// CurrentUser implements meeting.IdentityProvider
func (ContextIdentity) CurrentUser(ctx context.Context) (*domain.User, bool) {
	return UserFromContext(ctx)
}
