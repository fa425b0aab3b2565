package middleware

import (
	"net/http"

	"github.com/angelmondragon/tradeinz-backend/api/responses"
	"github.com/angelmondragon/tradeinz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradeinz-backend/pkg/errors"
	"github.com/angelmondragon/tradeinz-backend/pkg/logger"
)

// RequireCapability gates a route on the actor role's capability grant.
// Fine-grained ownership checks stay in the services; this only answers
// "may this kind of actor hit this operation at all".
func RequireCapability(capability enums.Capability, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, err := enums.ParseMemberRole(RoleFromContext(r.Context()))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing actor role"))
				return
			}
			if !role.HasCapability(capability) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "operation not permitted for role").
					WithDetails(map[string]any{"capability": capability}))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePartnerContext ensures the verified actor carries a partner id.
func RequirePartnerContext(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if PartnerIDFromContext(r.Context()) == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "partner context required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
