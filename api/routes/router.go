package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/LucasBenitez7/acme-commerce-starter-sub000/api/controllers"
	ordercontrollers "github.com/LucasBenitez7/acme-commerce-starter-sub000/api/controllers/orders"
	webhookcontrollers "github.com/LucasBenitez7/acme-commerce-starter-sub000/api/controllers/webhooks"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/api/middleware"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/internal/orders"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/internal/payments"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/config"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/db"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/enums"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/logger"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/metrics"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	ordersSvc orders.Service,
	paymentService webhookcontrollers.PaymentWebhookService,
	paymentGuard *payments.IdempotencyGuard,
	gatherer prometheus.Gatherer,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	deps := []controllers.Dependency{{Name: "db", Pinger: dbP}}
	if redisClient != nil {
		deps = append(deps, controllers.Dependency{Name: "redis", Pinger: redisClient})
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps...))
	})

	r.Method(http.MethodGet, "/metrics", metrics.Handler(gatherer))

	if paymentGuard != nil {
		r.Post("/webhooks/payments", webhookcontrollers.PaymentWebhook(paymentService, cfg.Payments.WebhookSecret, paymentGuard, logg))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		if redisClient != nil {
			r.Use(middleware.Idempotency(redisClient, logg))
		}

		r.Route("/orders/{orderId}", func(r chi.Router) {
			r.Get("/", ordercontrollers.Detail(ordersSvc, logg))
			r.Get("/history", ordercontrollers.History(ordersSvc, logg))
			r.Post("/cancel", ordercontrollers.Cancel(ordersSvc, logg))
			r.Post("/returns", ordercontrollers.RequestReturn(ordersSvc, logg))
		})

		r.Route("/admin/orders/{orderId}", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.CallerRoleAdmin, logg))
			r.Post("/pay", ordercontrollers.MarkPaid(ordersSvc, logg))
			r.Post("/cancel", ordercontrollers.Cancel(ordersSvc, logg))
			r.Post("/returns/resolve", ordercontrollers.ResolveReturn(ordersSvc, logg))
			r.Post("/returns/reject", ordercontrollers.RejectReturn(ordersSvc, logg))
		})
	})

	return r
}
