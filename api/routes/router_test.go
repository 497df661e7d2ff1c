package routes

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/wholesale-backend/internal/address"
	"github.com/angelmondragon/wholesale-backend/internal/cart"
	"github.com/angelmondragon/wholesale-backend/internal/checkout"
	"github.com/angelmondragon/wholesale-backend/internal/ledger"
	"github.com/angelmondragon/wholesale-backend/internal/orders"
	"github.com/angelmondragon/wholesale-backend/internal/payments"
	"github.com/angelmondragon/wholesale-backend/internal/products"
	"github.com/angelmondragon/wholesale-backend/internal/wishlist"
	pkgauth "github.com/angelmondragon/wholesale-backend/pkg/auth"
	"github.com/angelmondragon/wholesale-backend/pkg/config"
	pkgdb "github.com/angelmondragon/wholesale-backend/pkg/db"
	"github.com/angelmondragon/wholesale-backend/pkg/db/dbtest"
	"github.com/angelmondragon/wholesale-backend/pkg/db/models"
	"github.com/angelmondragon/wholesale-backend/pkg/enums"
	"github.com/angelmondragon/wholesale-backend/pkg/logger"
	"github.com/angelmondragon/wholesale-backend/pkg/metrics"
	"github.com/angelmondragon/wholesale-backend/pkg/outbox"
)

type testServer struct {
	handler http.Handler
	cfg     *config.Config
	db      *pkgdb.Client
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	gormDB := dbtest.Open(t)
	client := pkgdb.FromGorm(gormDB)
	logg := logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard})
	reg := prometheus.NewRegistry()

	cfg := &config.Config{
		App:     config.AppConfig{Env: "test"},
		JWT:     config.JWTConfig{Secret: "router-secret", Issuer: "wholesale-test", ExpirationMinutes: 30},
		Metrics: config.MetricsConfig{Path: "/metrics"},
	}

	productRepo := products.NewRepository(gormDB)
	cartRepo := cart.NewRepository(gormDB)
	ledgerRepo := ledger.NewRepository(gormDB)
	emitter := outbox.NewService(outbox.NewRepository(gormDB), logg)

	cartSvc, err := cart.NewService(client, cartRepo, productRepo)
	require.NoError(t, err)
	checkoutSvc, err := checkout.NewService(checkout.ServiceParams{
		Tx:      client,
		Carts:   cartRepo,
		Ledger:  ledgerRepo,
		Outbox:  emitter,
		Metrics: metrics.NewCheckoutMetrics(reg),
		Logger:  logg,
	})
	require.NoError(t, err)
	paymentsSvc, err := payments.NewService(payments.ServiceParams{
		Tx:      client,
		Ledger:  ledgerRepo,
		Outbox:  emitter,
		Metrics: metrics.NewReconciliationMetrics(reg),
		Logger:  logg,
	})
	require.NoError(t, err)
	ordersSvc, err := orders.NewService(orders.NewRepository(gormDB))
	require.NoError(t, err)
	wishlistSvc, err := wishlist.NewService(wishlist.ServiceParams{
		WishlistRepo: wishlist.NewRepository(gormDB),
		ProductRepo:  productRepo,
	})
	require.NoError(t, err)
	addressSvc, err := address.NewService(address.NewRepository(gormDB))
	require.NoError(t, err)

	handler := NewRouter(cfg, logg, client, nil, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), Services{
		Cart:     cartSvc,
		Checkout: checkoutSvc,
		Payments: paymentsSvc,
		Orders:   ordersSvc,
		Wishlist: wishlistSvc,
		Address:  addressSvc,

		DeadLetters: outbox.NewDLQRepository(client.DB()),
	})
	return testServer{handler: handler, cfg: cfg, db: client}
}

func (s testServer) token(t *testing.T, userID uuid.UUID, role enums.Role) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(s.cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{UserID: userID, Role: role})
	require.NoError(t, err)
	return token
}

func (s testServer) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/health/live", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec = srv.do(t, http.MethodGet, "/health/ready", "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = srv.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIRequiresToken(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/api/v1/cart", "/api/v1/orders", "/api/v1/wishlist", "/api/v1/addresses", "/api/admin/v1/orders"} {
		rec := srv.do(t, http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/api/admin/v1/orders", srv.token(t, uuid.New(), enums.RoleUser), "")
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/admin/v1/orders", srv.token(t, uuid.New(), enums.RoleAdmin), "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCashCheckoutThroughRouter(t *testing.T) {
	srv := newTestServer(t)
	userID := uuid.New()
	token := srv.token(t, userID, enums.RoleUser)
	product := dbtest.CreateProduct(t, srv.db.DB(), "Bedsheet", "125.00", 1)

	rec := srv.do(t, http.MethodPost, "/api/v1/cart/items", token, `{"product_id":"`+product.ID.String()+`","quantity":2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = srv.do(t, http.MethodPost, "/api/v1/checkout", token, `{"payment_method":"CASH"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		Data struct {
			State string `json:"state"`
			Order struct {
				ID     uuid.UUID `json:"id"`
				Status string    `json:"status"`
			} `json:"order"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, string(checkout.StateComplete), created.Data.State)
	assert.Equal(t, string(enums.OrderStatusDelivered), created.Data.Order.Status)

	rec = srv.do(t, http.MethodGet, "/api/v1/orders/"+created.Data.Order.ID.String(), token, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = srv.do(t, http.MethodPost, "/api/v1/checkout", token, `{"payment_method":"CASH"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, "second checkout sees an empty cart")

	assert.EqualValues(t, 0, dbtest.Count(t, srv.db.DB(), &models.CartItem{}))
}

func TestOnlineCheckoutWithoutGatewayIsUnavailable(t *testing.T) {
	srv := newTestServer(t)
	userID := uuid.New()
	token := srv.token(t, userID, enums.RoleUser)
	product := dbtest.CreateProduct(t, srv.db.DB(), "Towel", "30.00", 1)

	rec := srv.do(t, http.MethodPost, "/api/v1/cart/items", token, `{"product_id":"`+product.ID.String()+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = srv.do(t, http.MethodPost, "/api/v1/checkout", token, `{"payment_method":"ONLINE"}`)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code, rec.Body.String())

	rec = srv.do(t, http.MethodPost, "/api/v1/payments/verify", token,
		`{"razorpay_order_id":"order_x","razorpay_payment_id":"pay_x","razorpay_signature":"sig"}`)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code, rec.Body.String())
}

func TestAdminDeadLettersListsParkedEvents(t *testing.T) {
	srv := newTestServer(t)
	msg := "max publish attempts reached"
	require.NoError(t, srv.db.DB().Create(&models.OutboxDLQ{
		ID:            uuid.New(),
		EventID:       uuid.New(),
		EventType:     enums.EventPaymentFailed,
		AggregateType: enums.AggregatePayment,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"version":1}`),
		ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
		ErrorMessage:  &msg,
		AttemptCount:  10,
	}).Error)

	rec := srv.do(t, http.MethodGet, "/api/admin/v1/outbox/dead-letters?limit=5", srv.token(t, uuid.New(), enums.RoleAdmin), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Data struct {
			DeadLetters []struct {
				EventType   string `json:"event_type"`
				ErrorReason string `json:"error_reason"`
			} `json:"dead_letters"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data.DeadLetters, 1)
	assert.Equal(t, "payment_failed", body.Data.DeadLetters[0].EventType)
	assert.Equal(t, "max_attempts", body.Data.DeadLetters[0].ErrorReason)

	rec = srv.do(t, http.MethodGet, "/api/admin/v1/outbox/dead-letters?limit=0", srv.token(t, uuid.New(), enums.RoleAdmin), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
