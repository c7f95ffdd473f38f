package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/rxexchange-backend/api/controllers"
	ordercontrollers "github.com/angelmondragon/rxexchange-backend/api/controllers/orders"
	"github.com/angelmondragon/rxexchange-backend/api/middleware"
	"github.com/angelmondragon/rxexchange-backend/internal/orders"
	"github.com/angelmondragon/rxexchange-backend/pkg/config"
	"github.com/angelmondragon/rxexchange-backend/pkg/db"
	"github.com/angelmondragon/rxexchange-backend/pkg/enums"
	"github.com/angelmondragon/rxexchange-backend/pkg/logger"
	"github.com/angelmondragon/rxexchange-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	ordersSvc orders.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	// a nil *redis.Client must not leak into the interfaces below as a non-nil value
	var (
		cache controllers.Pinger
		store redis.IdempotencyStore
	)
	if redisClient != nil {
		cache = redisClient
		store = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, cache))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(store, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.List(ordersSvc, logg))
			r.With(middleware.RequireTenantType(logg, enums.TenantTypePharmacy)).Post("/", ordercontrollers.Create(ordersSvc, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(ordersSvc, logg))
			r.Post("/{orderId}/cancel", ordercontrollers.CancelOrder(ordersSvc, logg))
			r.Post("/{orderId}/receipt", ordercontrollers.ConfirmReceipt(ordersSvc, logg))
		})

		r.Route("/supplier/orders", func(r chi.Router) {
			r.Use(middleware.RequireTenantType(logg, enums.TenantTypeSupplier))
			r.Post("/{orderId}/confirm", ordercontrollers.SupplierConfirm(ordersSvc, logg))
			r.Post("/{orderId}/reject", ordercontrollers.SupplierReject(ordersSvc, logg))
			r.Post("/{orderId}/ship", ordercontrollers.SupplierShip(ordersSvc, logg))
			r.Post("/{orderId}/cancel", ordercontrollers.SupplierCancel(ordersSvc, logg))
		})

		r.Route("/logistics/orders", func(r chi.Router) {
			r.Use(middleware.RequireTenantType(logg, enums.TenantTypeLogistics))
			r.Post("/{orderId}/transport", ordercontrollers.LogisticsTransport(ordersSvc, logg))
		})
	})

	return r
}
