package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/angelmondragon/wholesale-backend/api/routes"
	"github.com/angelmondragon/wholesale-backend/internal/address"
	"github.com/angelmondragon/wholesale-backend/internal/cart"
	"github.com/angelmondragon/wholesale-backend/internal/checkout"
	"github.com/angelmondragon/wholesale-backend/internal/ledger"
	"github.com/angelmondragon/wholesale-backend/internal/orders"
	"github.com/angelmondragon/wholesale-backend/internal/payments"
	"github.com/angelmondragon/wholesale-backend/internal/products"
	"github.com/angelmondragon/wholesale-backend/internal/wishlist"
	"github.com/angelmondragon/wholesale-backend/pkg/config"
	"github.com/angelmondragon/wholesale-backend/pkg/db"
	"github.com/angelmondragon/wholesale-backend/pkg/gateway"
	"github.com/angelmondragon/wholesale-backend/pkg/instance"
	"github.com/angelmondragon/wholesale-backend/pkg/logger"
	"github.com/angelmondragon/wholesale-backend/pkg/metrics"
	"github.com/angelmondragon/wholesale-backend/pkg/migrate"
	"github.com/angelmondragon/wholesale-backend/pkg/outbox"
	"github.com/angelmondragon/wholesale-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

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
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	var redisClient *redis.Client
	if cfg.Redis.Configured() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Append(err, redisClient.Close())
		}()
	} else {
		logg.Warn(ctx, "redis not configured; idempotency, rate limiting and checkout locks disabled")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	services, err := buildServices(ctx, cfg, logg, dbClient, redisClient, reg)
	if err != nil {
		return err
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := instance.GetID("local")
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
		"driver":   cfg.DB.Driver,
		"gateway":  cfg.Gateway.Enabled(),
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, dbClient, redisClient, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), services),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func buildServices(
	ctx context.Context,
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	reg prometheus.Registerer,
) (routes.Services, error) {
	conn := dbClient.DB()
	productRepo := products.NewRepository(conn)
	cartRepo := cart.NewRepository(conn)
	ledgerRepo := ledger.NewRepository(conn)
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)

	cartSvc, err := cart.NewService(dbClient, cartRepo, productRepo)
	if err != nil {
		return routes.Services{}, err
	}

	checkoutParams := checkout.ServiceParams{
		Tx:            dbClient,
		Carts:         cartRepo,
		Ledger:        ledgerRepo,
		Outbox:        emitter,
		GatewayConfig: cfg.Gateway,
		Metrics:       metrics.NewCheckoutMetrics(reg),
		Logger:        logg,
	}
	paymentsParams := payments.ServiceParams{
		Tx:      dbClient,
		Ledger:  ledgerRepo,
		Outbox:  emitter,
		Metrics: metrics.NewReconciliationMetrics(reg),
		Logger:  logg,
	}

	if cfg.Gateway.Enabled() {
		gw, err := gateway.NewClient(cfg.Gateway.KeyID, cfg.Gateway.KeySecret,
			gateway.WithBaseURL(cfg.Gateway.BaseURL),
			gateway.WithTimeout(cfg.Gateway.Timeout),
		)
		if err != nil {
			return routes.Services{}, err
		}
		checkoutParams.Gateway = gw
		paymentsParams.GatewaySecret = cfg.Gateway.KeySecret
	} else {
		logg.Warn(ctx, "payment gateway not configured; only cash checkout is available")
	}

	if redisClient != nil {
		if cfg.FeatureFlags.CheckoutLock {
			lock, err := redis.NewKeyedLock(redisClient, "checkout", cfg.Gateway.LockTTL)
			if err != nil {
				return routes.Services{}, err
			}
			checkoutParams.Lock = lock
		}
		guard, err := redis.NewKeyedLock(redisClient, "payment_callback", cfg.Gateway.LockTTL)
		if err != nil {
			return routes.Services{}, err
		}
		paymentsParams.Guard = guard
	}

	checkoutSvc, err := checkout.NewService(checkoutParams)
	if err != nil {
		return routes.Services{}, err
	}
	paymentsSvc, err := payments.NewService(paymentsParams)
	if err != nil {
		return routes.Services{}, err
	}
	ordersSvc, err := orders.NewService(orders.NewRepository(conn))
	if err != nil {
		return routes.Services{}, err
	}
	wishlistSvc, err := wishlist.NewService(wishlist.ServiceParams{
		WishlistRepo: wishlist.NewRepository(conn),
		ProductRepo:  productRepo,
	})
	if err != nil {
		return routes.Services{}, err
	}
	addressSvc, err := address.NewService(address.NewRepository(conn))
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Cart:     cartSvc,
		Checkout: checkoutSvc,
		Payments: paymentsSvc,
		Orders:   ordersSvc,
		Wishlist: wishlistSvc,
		Address:  addressSvc,

		DeadLetters: outbox.NewDLQRepository(conn),
	}, nil
}
