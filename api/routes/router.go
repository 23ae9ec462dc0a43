package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dukahq/storefront-backend/api/controllers"
	"github.com/dukahq/storefront-backend/api/middleware"
	"github.com/dukahq/storefront-backend/internal/cart"
	"github.com/dukahq/storefront-backend/internal/catalog"
	"github.com/dukahq/storefront-backend/internal/checkout"
	"github.com/dukahq/storefront-backend/pkg/config"
	"github.com/dukahq/storefront-backend/pkg/db"
	"github.com/dukahq/storefront-backend/pkg/logger"
	"github.com/dukahq/storefront-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	catalogService *catalog.Service,
	cartStore *cart.Store,
	gate *checkout.Gate,
	registry *prometheus.Registry,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.CartSession(cfg.Session, logg))

		r.Get("/products", controllers.ProductList(catalogService, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(gate, logg))
			r.Post("/items", controllers.CartAddItem(cartStore, gate, logg))
			r.Delete("/items/{productID}", controllers.CartRemoveItem(cartStore, gate, logg))
			r.Delete("/", controllers.CartClear(cartStore, gate, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", controllers.CheckoutState(gate, logg))
			r.Post("/proceed", controllers.CheckoutProceed(gate, logg))
			r.Post("/method", controllers.CheckoutSelectMethod(gate, logg))
			r.Post("/dispatch", controllers.CheckoutDispatch(gate, logg))
			r.Post("/cancel", controllers.CheckoutCancel(gate, logg))
		})
	})

	return r
}
