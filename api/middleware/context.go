package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

type contextKey string

const (
	ctxAccountID contextKey = "account_id"
	ctxRole      contextKey = "actor_role"
)

// AccountIDFromContext returns the authenticated account id, or uuid.Nil.
func AccountIDFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	if v, ok := ctx.Value(ctxAccountID).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

func RoleFromContext(ctx context.Context) enums.Role {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(enums.Role); ok {
		return v
	}
	return ""
}

// WithAccount injects the caller identity into the context. Used by Auth and tests.
func WithAccount(ctx context.Context, accountID uuid.UUID, role enums.Role) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxAccountID, accountID)
	return context.WithValue(ctx, ctxRole, role)
}
