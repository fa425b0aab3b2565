package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/tradeinz-backend/api/responses"
	pkgauth "github.com/angelmondragon/tradeinz-backend/pkg/auth"
	"github.com/angelmondragon/tradeinz-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/tradeinz-backend/pkg/errors"
	"github.com/angelmondragon/tradeinz-backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the
// verified actor.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgauth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := WithUserID(r.Context(), claims.UserID.String())
			ctx = WithRole(ctx, string(claims.Role))
			if claims.PartnerID != nil {
				ctx = WithPartnerID(ctx, claims.PartnerID.String())
			}

			if logg != nil {
				fields := map[string]any{
					"user_id":    claims.UserID.String(),
					"actor_role": string(claims.Role),
				}
				if claims.PartnerID != nil {
					fields["partner_id"] = claims.PartnerID.String()
				}
				ctx = logg.WithFields(ctx, fields)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
