package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	analyticscontrollers "github.com/angelmondragon/storefront-backend/api/controllers/analytics"
	ordercontrollers "github.com/angelmondragon/storefront-backend/api/controllers/orders"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/analytics"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/promotions"
	"github.com/angelmondragon/storefront-backend/internal/reconciliation"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

// Store is the Redis surface used by the HTTP layer for idempotency and
// rate limiting.
type Store interface {
	pkgredis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Services are the domain services exposed over HTTP. Analytics may be nil
// when BigQuery is not configured.
type Services struct {
	Checkout       checkout.Reconciler
	Promotions     promotions.Service
	Orders         orders.Service
	Reconciliation reconciliation.Service
	Analytics      analytics.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	store Store,
	services Services,
	readiness ...controllers.ReadinessCheck,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	confirmPolicy := middleware.RateLimitPolicy{
		Name:   "checkout_confirm",
		Window: cfg.RateLimit.ConfirmWindow,
		Limit:  cfg.RateLimit.ConfirmLimit,
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness...))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.RoleCustomer, enums.RoleAdmin))
		r.Use(middleware.Idempotency(store, logg))

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/quote", controllers.CheckoutQuote(services.Checkout, logg))
			r.Post("/intents", controllers.CheckoutCreateIntent(services.Checkout, logg))
			r.With(middleware.RateLimit(confirmPolicy, store, logg)).
				Post("/confirm", controllers.CheckoutConfirm(services.Checkout, logg))
		})
		r.Post("/promotions/validate", controllers.PromotionValidate(services.Promotions, logg))
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.List(services.Orders, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(services.Orders, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.RoleAdmin))
		r.Use(middleware.Idempotency(store, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.AdminList(services.Orders, logg))
			r.Get("/{orderId}", ordercontrollers.AdminDetail(services.Orders, logg))
			r.Patch("/{orderId}", ordercontrollers.AdminUpdateFulfillment(services.Orders, logg))
		})
		r.Route("/promotions", func(r chi.Router) {
			r.Post("/", controllers.AdminPromotionCreate(services.Promotions, logg))
			r.Get("/", controllers.AdminPromotionList(services.Promotions, logg))
			r.Patch("/{promotionId}", controllers.AdminPromotionSetActive(services.Promotions, logg))
		})
		r.Route("/reconciliation/exceptions", func(r chi.Router) {
			r.Get("/", controllers.AdminExceptionList(services.Reconciliation, logg))
			r.Post("/{exceptionId}/resolve", controllers.AdminExceptionResolve(services.Reconciliation, logg))
		})
		r.Get("/analytics/sales", analyticscontrollers.Sales(services.Analytics, logg))
	})

	return r
}
