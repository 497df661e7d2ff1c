package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/wholesale-backend/api/controllers"
	"github.com/angelmondragon/wholesale-backend/api/middleware"
	"github.com/angelmondragon/wholesale-backend/internal/address"
	"github.com/angelmondragon/wholesale-backend/internal/cart"
	checkoutsvc "github.com/angelmondragon/wholesale-backend/internal/checkout"
	"github.com/angelmondragon/wholesale-backend/internal/orders"
	"github.com/angelmondragon/wholesale-backend/internal/payments"
	"github.com/angelmondragon/wholesale-backend/internal/wishlist"
	"github.com/angelmondragon/wholesale-backend/pkg/config"
	"github.com/angelmondragon/wholesale-backend/pkg/db"
	"github.com/angelmondragon/wholesale-backend/pkg/enums"
	"github.com/angelmondragon/wholesale-backend/pkg/logger"
	"github.com/angelmondragon/wholesale-backend/pkg/redis"
)

// Services bundles the domain services mounted by the router. A nil service
// answers its routes with an internal error.
type Services struct {
	Cart     cart.Service
	Checkout checkoutsvc.Service
	Payments payments.Service
	Orders   orders.Service
	Wishlist wishlist.Service
	Address  address.Service

	DeadLetters controllers.DeadLetterLister
}

// NewRouter builds the API handler. redisClient may be nil, in which case
// idempotency and rate limiting are skipped. metrics is mounted at
// cfg.Metrics.Path when non-nil.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	metrics http.Handler,
	svc Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	var (
		idempotencyStore redis.IdempotencyStore
		rateStore        *redis.Client
		redisPinger      controllers.Pinger
	)
	if redisClient != nil {
		idempotencyStore = redisClient
		rateStore = redisClient
		redisPinger = redisClient
	}
	var dbPinger controllers.Pinger
	if dbP != nil {
		dbPinger = dbP
	}

	verifyPolicy := middleware.NewRateLimitPolicy(
		"payments_verify",
		cfg.RateLimit.VerifyWindow,
		cfg.RateLimit.VerifyIPLimit,
		cfg.RateLimit.VerifyUserLimit,
	)
	var verifyLimiter func(http.Handler) http.Handler
	if rateStore != nil {
		verifyLimiter = middleware.RateLimit(verifyPolicy, rateStore, logg)
	} else {
		verifyLimiter = func(next http.Handler) http.Handler { return next }
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg,
			controllers.ReadinessCheck{Name: "db", Pinger: dbPinger},
			controllers.ReadinessCheck{Name: "redis", Pinger: redisPinger},
		))
	})

	if metrics != nil {
		path := cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.Method(http.MethodGet, path, metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(svc.Cart, logg))
			r.Post("/items", controllers.CartAddItem(svc.Cart, logg))
			r.Post("/items/{productId}/decrement", controllers.CartDecrementItem(svc.Cart, logg))
			r.Delete("/items/{productId}", controllers.CartRemoveItem(svc.Cart, logg))
		})

		r.Post("/checkout", controllers.Checkout(svc.Checkout, logg))
		r.With(verifyLimiter).Post("/payments/verify", controllers.PaymentVerify(svc.Payments, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrdersList(svc.Orders, logg))
			r.Get("/{orderId}", controllers.OrderDetail(svc.Orders, logg))
		})

		r.Route("/wishlist", func(r chi.Router) {
			r.Get("/", controllers.WishlistList(svc.Wishlist, logg))
			r.Post("/", controllers.WishlistAdd(svc.Wishlist, logg))
			r.Delete("/{productId}", controllers.WishlistRemove(svc.Wishlist, logg))
		})

		r.Route("/addresses", func(r chi.Router) {
			r.Get("/", controllers.AddressList(svc.Address, logg))
			r.Post("/", controllers.AddressCreate(svc.Address, logg))
			r.Put("/{addressId}", controllers.AddressUpdate(svc.Address, logg))
			r.Delete("/{addressId}", controllers.AddressDelete(svc.Address, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.RoleAdmin, logg))
		r.Get("/orders", controllers.AdminOrdersList(svc.Orders, logg))
		r.Get("/outbox/dead-letters", controllers.AdminDeadLetters(svc.DeadLetters, logg))
	})

	return r
}
