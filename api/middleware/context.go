package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradeinz-backend/internal/lifecycle"
	"github.com/angelmondragon/tradeinz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradeinz-backend/pkg/errors"
)

type contextKey string

const (
	ctxUserID    contextKey = "user_id"
	ctxRole      contextKey = "actor_role"
	ctxPartnerID contextKey = "partner_id"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

func PartnerIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxPartnerID).(string); ok {
		return v
	}
	return ""
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithRole injects the actor role into the context.
func WithRole(ctx context.Context, role string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxRole, role)
}

// WithPartnerID injects the partner identifier into the context.
func WithPartnerID(ctx context.Context, partnerID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxPartnerID, partnerID)
}

// ActorFromContext rebuilds the verified actor from the request context.
func ActorFromContext(ctx context.Context) (lifecycle.Actor, error) {
	userID, err := uuid.Parse(UserIDFromContext(ctx))
	if err != nil {
		return lifecycle.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing actor identity")
	}

	role, err := enums.ParseMemberRole(RoleFromContext(ctx))
	if err != nil {
		return lifecycle.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing actor role")
	}

	actor := lifecycle.Actor{UserID: userID, Role: role}
	if raw := PartnerIDFromContext(ctx); raw != "" {
		partnerID, err := uuid.Parse(raw)
		if err != nil {
			return lifecycle.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid partner context")
		}
		actor.PartnerID = &partnerID
	}
	return actor, nil
}
