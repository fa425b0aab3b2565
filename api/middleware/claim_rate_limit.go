package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/tradeinz-backend/api/responses"
	pkgerrors "github.com/angelmondragon/tradeinz-backend/pkg/errors"
	"github.com/angelmondragon/tradeinz-backend/pkg/logger"
)

const (
	claimRateLimit  = 30
	claimRateWindow = time.Minute
)

// RateLimiter is the fixed-window limiter surface, implemented by the
// redis client.
type RateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// ClaimRateLimit throttles claim attempts per partner. The losers of a busy
// claim race tend to hammer retry, this keeps the hot path sane.
func ClaimRateLimit(limiter RateLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			scope := "claim:" + PartnerIDFromContext(r.Context())
			allowed, count, err := limiter.FixedWindowAllow(r.Context(), scope, claimRateLimit, claimRateWindow)
			if err != nil {
				// rate limiting is best effort, redis trouble must not block claims
				logError(r.Context(), logg, "rate limit check failed", err)
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many claim attempts").
					WithDetails(map[string]any{"count": count}))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
