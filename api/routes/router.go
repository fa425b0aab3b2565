package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/tradeinz-backend/api/controllers"
	ordercontrollers "github.com/angelmondragon/tradeinz-backend/api/controllers/orders"
	"github.com/angelmondragon/tradeinz-backend/api/middleware"
	"github.com/angelmondragon/tradeinz-backend/internal/matching"
	"github.com/angelmondragon/tradeinz-backend/internal/orders"
	"github.com/angelmondragon/tradeinz-backend/pkg/config"
	"github.com/angelmondragon/tradeinz-backend/pkg/enums"
	"github.com/angelmondragon/tradeinz-backend/pkg/logger"
	"github.com/angelmondragon/tradeinz-backend/pkg/redis"
)

// Dependencies carries everything the router wires into handlers.
type Dependencies struct {
	Config     *config.Config
	Logger     *logger.Logger
	Redis      *redis.Client
	Orders     orders.Service
	Matching   matching.Service
	HealthDeps map[string]controllers.Pinger
	MetricsReg *prometheus.Registry
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.HealthDeps))
	})

	if deps.MetricsReg != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.MetricsReg, promhttp.HandlerOpts{}))
	}

	r.Get("/api/public/ping", controllers.PublicPing())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/v1/partner/orders", func(r chi.Router) {
			r.Use(middleware.RequirePartnerContext(logg))

			r.With(middleware.RequireCapability(enums.CapabilityViewFeed, logg)).
				Get("/available", ordercontrollers.Feed(deps.Matching, logg))
			r.With(
				middleware.RequireCapability(enums.CapabilityClaimOrder, logg),
				middleware.ClaimRateLimit(deps.Redis, logg),
			).Post("/{orderId}/claim", ordercontrollers.Claim(deps.Orders, logg))
			r.With(middleware.RequireCapability(enums.CapabilityRespondToClaim, logg)).
				Post("/{orderId}/response", ordercontrollers.Respond(deps.Orders, logg))
		})

		r.Route("/v1/orders", func(r chi.Router) {
			r.With(middleware.RequireCapability(enums.CapabilityViewOrder, logg)).
				Get("/{orderId}", ordercontrollers.Detail(deps.Orders, logg))
			r.With(middleware.RequireCapability(enums.CapabilityUpdateOrderStatus, logg)).
				Patch("/{orderId}/status", ordercontrollers.UpdateStatus(deps.Orders, logg))
			r.With(middleware.RequireCapability(enums.CapabilityAssignAgent, logg)).
				Post("/{orderId}/assign-agent", ordercontrollers.AssignAgent(deps.Orders, logg))
		})

		r.With(middleware.RequireCapability(enums.CapabilityIntakeOrder, logg)).
			Post("/v1/internal/orders", ordercontrollers.Intake(deps.Orders, logg))
	})

	return r
}
