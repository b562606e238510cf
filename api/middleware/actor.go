package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/lumeplay/lumeplay-backend/api/responses"
	"github.com/lumeplay/lumeplay-backend/pkg/enums"
	pkgerrors "github.com/lumeplay/lumeplay-backend/pkg/errors"
	"github.com/lumeplay/lumeplay-backend/pkg/logger"
)

const (
	actorIDHeader   = "X-Actor-Id"
	actorRoleHeader = "X-Actor-Role"
)

type contextKey string

const (
	ctxActorID   contextKey = "actor_id"
	ctxActorRole contextKey = "actor_role"
)

// Actor lifts the identity the auth gateway installs on every request into
// the context. Requests without a resolvable identity pass through anonymous;
// RequireActor and RequireRole decide whether that is acceptable per route.
func Actor(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if raw := r.Header.Get(actorIDHeader); raw != "" {
				if actorID, err := uuid.Parse(raw); err == nil {
					ctx = context.WithValue(ctx, ctxActorID, actorID)
					if logg != nil {
						ctx = logg.WithUserID(ctx, actorID.String())
					}
				}
			}
			if raw := r.Header.Get(actorRoleHeader); raw != "" {
				if role, err := enums.ParseActorRole(raw); err == nil {
					ctx = context.WithValue(ctx, ctxActorRole, role)
					if logg != nil {
						ctx = logg.WithActorRole(ctx, role.String())
					}
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ActorID returns the caller's id, or uuid.Nil when anonymous.
func ActorID(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	if v, ok := ctx.Value(ctxActorID).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

// ActorRole returns the caller's role, or the empty role when anonymous.
func ActorRole(ctx context.Context) enums.ActorRole {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxActorRole).(enums.ActorRole); ok {
		return v
	}
	return ""
}

// RequireActor rejects requests without a resolvable identity.
func RequireActor(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ActorID(r.Context()) == uuid.Nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole rejects authenticated callers whose role does not match.
func RequireRole(role enums.ActorRole, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ActorID(r.Context()) == uuid.Nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing"))
				return
			}
			if ActorRole(r.Context()) != role {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
