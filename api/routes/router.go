package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ruralmart/ruralmart-backend/api/controllers"
	"github.com/ruralmart/ruralmart-backend/api/middleware"
	"github.com/ruralmart/ruralmart-backend/internal/auth"
	"github.com/ruralmart/ruralmart-backend/internal/cart"
	checkoutsvc "github.com/ruralmart/ruralmart-backend/internal/checkout"
	"github.com/ruralmart/ruralmart-backend/internal/orders"
	"github.com/ruralmart/ruralmart-backend/internal/payments"
	"github.com/ruralmart/ruralmart-backend/internal/products"
	"github.com/ruralmart/ruralmart-backend/internal/reviews"
	"github.com/ruralmart/ruralmart-backend/pkg/config"
	"github.com/ruralmart/ruralmart-backend/pkg/db"
	"github.com/ruralmart/ruralmart-backend/pkg/logger"
	"github.com/ruralmart/ruralmart-backend/pkg/metrics"
	"github.com/ruralmart/ruralmart-backend/pkg/paystack"
	"github.com/ruralmart/ruralmart-backend/pkg/redis"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       *db.Client
	Redis    *redis.Client
	Paystack *paystack.Client
	Registry *prometheus.Registry

	HTTPMetrics *metrics.HTTPMetrics

	AuthService     auth.Service
	ProductsService products.Service
	CartService     cart.Service
	CheckoutService checkoutsvc.Service
	OrdersService   orders.Service
	PaymentsService payments.Service
	ReviewsService  reviews.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(cfg.App),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Registry))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/paystack", controllers.PaystackWebhook(deps.PaymentsService, deps.Paystack, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).Post("/login", controllers.AuthLogin(deps.AuthService, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, deps.Redis, logg)).Post("/register", controllers.AuthRegister(deps.AuthService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Public catalog surface.
		r.Get("/products", controllers.ProductsList(deps.ProductsService, logg))
		r.Get("/products/{id}", controllers.ProductsGet(deps.ProductsService, logg))
		r.Get("/products/{id}/reviews", controllers.ProductReviewsList(deps.ReviewsService, logg))
		r.Get("/categories", controllers.CategoriesList(deps.ProductsService, logg))
		r.Get("/payment-methods", controllers.PaymentMethodsList(deps.PaymentsService, logg))

		// Authenticated surface.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))

			r.Get("/me", controllers.AuthMe(deps.AuthService, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartGet(deps.CartService, logg))
				r.Delete("/", controllers.CartClear(deps.CartService, logg))
				r.Post("/items", controllers.CartAddItem(deps.CartService, logg))
				r.Patch("/items/{itemID}", controllers.CartUpdateItem(deps.CartService, logg))
				r.Delete("/items/{itemID}", controllers.CartRemoveItem(deps.CartService, logg))
			})

			r.Post("/checkout", controllers.OrdersCheckout(deps.CheckoutService, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.OrdersList(deps.OrdersService, logg))
				r.Get("/{id}", controllers.OrdersGet(deps.OrdersService, logg))
				r.Post("/{id}/items", controllers.OrdersAddItem(deps.OrdersService, logg))
				r.Patch("/{id}/items/{itemID}", controllers.OrdersUpdateItem(deps.OrdersService, logg))
				r.Delete("/{id}/items/{itemID}", controllers.OrdersRemoveItem(deps.OrdersService, logg))
				r.Post("/{id}/cancel", controllers.OrdersCancel(deps.OrdersService, logg))
			})

			r.Route("/payments", func(r chi.Router) {
				r.Post("/", controllers.PaymentsCreate(deps.PaymentsService, logg))
				r.Get("/{id}", controllers.PaymentsGet(deps.PaymentsService, logg))
				r.Post("/{id}/initialize", controllers.PaymentsInitialize(deps.PaymentsService, logg))
				r.Post("/{id}/verify", controllers.PaymentsVerify(deps.PaymentsService, logg))
				r.Get("/{id}/transactions", controllers.PaymentsListTransactions(deps.PaymentsService, logg))
			})

			r.Route("/reviews", func(r chi.Router) {
				r.Post("/", controllers.ReviewsCreate(deps.ReviewsService, logg))
				r.Patch("/{id}", controllers.ReviewsUpdate(deps.ReviewsService, logg))
				r.Delete("/{id}", controllers.ReviewsDelete(deps.ReviewsService, logg))
			})

			// Catalog administration.
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin(logg))

				r.Post("/products", controllers.ProductsCreate(deps.ProductsService, logg))
				r.Patch("/products/{id}", controllers.ProductsUpdate(deps.ProductsService, logg))
				r.Delete("/products/{id}", controllers.ProductsDelete(deps.ProductsService, logg))
				r.Post("/categories", controllers.CategoriesCreate(deps.ProductsService, logg))
			})
		})
	})

	return r
}
