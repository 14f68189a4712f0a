package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sethvargo/go-retry"

	"github.com/ruralmart/ruralmart-backend/api/routes"
	"github.com/ruralmart/ruralmart-backend/internal/auth"
	"github.com/ruralmart/ruralmart-backend/internal/cart"
	"github.com/ruralmart/ruralmart-backend/internal/checkout"
	"github.com/ruralmart/ruralmart-backend/internal/orders"
	"github.com/ruralmart/ruralmart-backend/internal/payments"
	"github.com/ruralmart/ruralmart-backend/internal/products"
	"github.com/ruralmart/ruralmart-backend/internal/reviews"
	"github.com/ruralmart/ruralmart-backend/internal/users"
	"github.com/ruralmart/ruralmart-backend/pkg/config"
	"github.com/ruralmart/ruralmart-backend/pkg/db"
	"github.com/ruralmart/ruralmart-backend/pkg/logger"
	"github.com/ruralmart/ruralmart-backend/pkg/metrics"
	"github.com/ruralmart/ruralmart-backend/pkg/migrate"
	"github.com/ruralmart/ruralmart-backend/pkg/paystack"
	"github.com/ruralmart/ruralmart-backend/pkg/redis"
)

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := waitForPing(context.Background(), dbClient.Ping); err != nil {
		logg.Error(context.Background(), "database not reachable", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	paystackClient, err := paystack.NewClient(cfg.Paystack)
	if err != nil {
		logg.Error(context.Background(), "failed to build paystack client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := metrics.NewHTTPMetrics(registry)
	paymentMetrics := metrics.NewPaymentMetrics(registry)

	usersRepo := users.NewRepository(dbClient.DB())
	productsRepo := products.NewRepository(dbClient.DB())
	cartRepo := cart.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())
	paymentsRepo := payments.NewRepository(dbClient.DB())
	reviewsRepo := reviews.NewRepository(dbClient.DB())

	authService, err := auth.NewService(usersRepo, cfg.JWT, cfg.Password)
	exitOnErr(logg, "auth service", err)

	productsService, err := products.NewService(productsRepo)
	exitOnErr(logg, "products service", err)

	cartService, err := cart.NewService(cartRepo, productsRepo, dbClient)
	exitOnErr(logg, "cart service", err)

	ordersService, err := orders.NewService(ordersRepo, productsRepo, dbClient)
	exitOnErr(logg, "orders service", err)

	checkoutService, err := checkout.NewService(cartRepo, ordersRepo, dbClient)
	exitOnErr(logg, "checkout service", err)

	paymentsService, err := payments.NewService(
		paymentsRepo,
		ordersRepo,
		usersRepo,
		paystackClient,
		redisClient,
		dbClient,
		paymentMetrics,
		cfg.Webhook.IdempotencyTTL,
	)
	exitOnErr(logg, "payments service", err)

	reviewsService, err := reviews.NewService(reviewsRepo, productsRepo)
	exitOnErr(logg, "reviews service", err)

	router := routes.NewRouter(routes.Deps{
		Config:          cfg,
		Logger:          logg,
		DB:              dbClient,
		Redis:           redisClient,
		Paystack:        paystackClient,
		Registry:        registry,
		HTTPMetrics:     httpMetrics,
		AuthService:     authService,
		ProductsService: productsService,
		CartService:     cartService,
		CheckoutService: checkoutService,
		OrdersService:   ordersService,
		PaymentsService: paymentsService,
		ReviewsService:  reviewsService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logg.Info(logg.WithField(ctx, "signal", sig.String()), "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			os.Exit(1)
		}
	}
}

// waitForPing retries dependency pings with fibonacci backoff so the server
// can start while its backing services are still coming up.
func waitForPing(ctx context.Context, ping func(context.Context) error) error {
	backoff := retry.WithMaxRetries(6, retry.NewFibonacci(500*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := ping(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

func exitOnErr(logg *logger.Logger, what string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to create "+what, err)
	os.Exit(1)
}
