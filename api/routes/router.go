package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trato-app/trato-backend/api/controllers"
	catalogcontrollers "github.com/trato-app/trato-backend/api/controllers/catalog"
	ordercontrollers "github.com/trato-app/trato-backend/api/controllers/orders"
	"github.com/trato-app/trato-backend/api/middleware"
	"github.com/trato-app/trato-backend/internal/catalog"
	"github.com/trato-app/trato-backend/internal/notifications"
	"github.com/trato-app/trato-backend/internal/orders"
	"github.com/trato-app/trato-backend/pkg/config"
	"github.com/trato-app/trato-backend/pkg/enums"
	"github.com/trato-app/trato-backend/pkg/logger"
	"github.com/trato-app/trato-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	registry *prometheus.Registry,
	redisClient *redis.Client,
	healthChecks map[string]controllers.Pinger,
	catalogService catalog.Service,
	ordersService orders.Service,
	notificationsService notifications.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, healthChecks))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", catalogcontrollers.BrowseProducts(catalogService, logg))
			r.Get("/{productId}", catalogcontrollers.GetProduct(catalogService, logg))
		})
		r.Get("/daily-products", catalogcontrollers.BrowseDailyProducts(catalogService, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.ListMine(ordersService, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(ordersService, logg))
			r.With(middleware.RequireRole(logg, enums.MemberRoleBuyer.String())).
				Post("/", ordercontrollers.Checkout(ordersService, logg))
			r.With(middleware.RequireRole(logg, enums.MemberRoleBuyer.String(), enums.MemberRoleAdmin.String())).
				Post("/{orderId}/cancel", ordercontrollers.Cancel(ordersService, logg))
		})

		r.Route("/seller", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.MemberRoleSeller.String()))

			r.Route("/products", func(r chi.Router) {
				r.Get("/", catalogcontrollers.ListSellerProducts(catalogService, logg))
				r.Post("/", catalogcontrollers.CreateProduct(catalogService, logg))
				r.Patch("/{productId}", catalogcontrollers.UpdateProduct(catalogService, logg))
				r.Delete("/{productId}", catalogcontrollers.DeleteProduct(catalogService, logg))
				r.Put("/{productId}/stock", catalogcontrollers.SetStock(catalogService, logg))
			})
			r.Route("/daily-products", func(r chi.Router) {
				r.Get("/", catalogcontrollers.ListSellerDailyProducts(catalogService, logg))
				r.Post("/", catalogcontrollers.CreateDailyProduct(catalogService, logg))
				r.Post("/{dailyProductId}/close", catalogcontrollers.CloseDailyProduct(catalogService, logg))
			})
			r.Route("/orders", func(r chi.Router) {
				r.Get("/", ordercontrollers.ListSeller(ordersService, logg))
				r.Post("/{orderId}/accept", ordercontrollers.Accept(ordersService, logg))
				r.Post("/{orderId}/ready", ordercontrollers.MarkReady(ordersService, logg))
				r.Post("/{orderId}/deliver", ordercontrollers.MarkDelivered(ordersService, logg))
			})
		})

		r.Route("/driver/orders", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.MemberRoleDriver.String()))
			r.Get("/queue", ordercontrollers.DriverQueue(ordersService, logg))
			r.Post("/{orderId}/claim", ordercontrollers.Claim(ordersService, logg))
			r.Post("/{orderId}/pickup", ordercontrollers.MarkPickedUp(ordersService, logg))
			r.Post("/{orderId}/transit", ordercontrollers.MarkInTransit(ordersService, logg))
			r.Post("/{orderId}/deliver", ordercontrollers.MarkDelivered(ordersService, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
		})
	})

	return r
}
