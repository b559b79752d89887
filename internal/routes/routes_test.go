package routes

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/skein/internal/billing"
	"github.com/dukerupert/skein/internal/cookie"
	"github.com/dukerupert/skein/internal/crypto"
	"github.com/dukerupert/skein/internal/handler/admin"
	"github.com/dukerupert/skein/internal/handler/storefront"
	"github.com/dukerupert/skein/internal/handler/webhook"
	"github.com/dukerupert/skein/internal/middleware"
	"github.com/dukerupert/skein/internal/repository/repotest"
	"github.com/dukerupert/skein/internal/router"
	"github.com/dukerupert/skein/internal/service"
)

func newServer(t *testing.T, withWebhook bool) http.Handler {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := repotest.NewMemory()
	payments := billing.NewMockProvider()
	numbers, err := service.NewSnowflakeNumbers(1)
	require.NoError(t, err)

	inventory := service.NewInventoryService(store, nil, logger)
	checkout := service.NewCheckoutService(store, numbers, service.NopNotifier{}, logger)
	orders := service.NewOrderService(store, service.NopNotifier{}, payments, logger)
	reviews := service.NewReviewService(store, logger)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	enc, err := crypto.NewAESEncryptor(key)
	require.NoError(t, err)
	carts := storefront.NewCartStore(cookie.NewSealer(cookie.NewConfig("", false), enc), 0)

	cartLimiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	t.Cleanup(cartLimiter.Stop)
	strictLimiter := middleware.NewRateLimiter(middleware.StrictRateLimiterConfig())
	t.Cleanup(strictLimiter.Stop)

	metrics := middleware.NewMetrics("skein_test", prometheus.NewRegistry())

	r := router.New(middleware.RequestID, metrics.Middleware)
	RegisterOpsRoutes(r, OpsDeps{
		Health:  func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) },
		Metrics: metrics.Handler(),
	})
	RegisterStorefrontRoutes(r, StorefrontDeps{
		CartHandler:     storefront.NewCartHandler(inventory, carts),
		StockHandler:    storefront.NewStockHandler(inventory),
		CheckoutHandler: storefront.NewCheckoutHandler(checkout, inventory, payments, carts, nil, ""),
		OrderHandler:    storefront.NewOrderLookupHandler(orders),
		ReviewHandler:   storefront.NewReviewHandler(reviews),
		CartLimiter:     cartLimiter,
		StrictLimiter:   strictLimiter,
	})
	RegisterAdminRoutes(r, AdminDeps{
		Auth:             middleware.AuthConfig{Secret: []byte("routes-test-secret")},
		OrderHandler:     admin.NewOrderHandler(orders),
		InventoryHandler: admin.NewInventoryHandler(inventory),
		ReviewHandler:    admin.NewReviewHandler(reviews),
	})

	var deps WebhookDeps
	if withWebhook {
		deps.StripeHandler = webhook.NewStripeHandler(orders, "whsec_routes")
	}
	RegisterWebhookRoutes(r, deps)
	return r
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Error.Code
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, rd))
	return rec
}

func TestRoutes_Table(t *testing.T) {
	srv := newServer(t, true)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{name: "health", method: http.MethodGet, path: "/health", status: http.StatusOK},
		{name: "metrics", method: http.MethodGet, path: "/metrics", status: http.StatusOK},
		{name: "empty cart", method: http.MethodGet, path: "/cart", status: http.StatusOK},
		{name: "unknown product", method: http.MethodGet, path: "/products/9b2f8c1e-0000-4000-8000-000000000000", status: http.StatusNotFound, code: "not_found"},
		{name: "admin needs token", method: http.MethodGet, path: "/admin/orders", status: http.StatusUnauthorized, code: "unauthorized"},
		{name: "admin adjust needs token", method: http.MethodPost, path: "/admin/stock/adjust", body: `{}`, status: http.StatusUnauthorized, code: "unauthorized"},
		{name: "unsigned webhook", method: http.MethodPost, path: "/webhooks/stripe", body: `{}`, status: http.StatusBadRequest, code: "invalid"},
		{name: "unknown route", method: http.MethodGet, path: "/nope", status: http.StatusNotFound, code: "not_found"},
		{name: "wrong method", method: http.MethodPut, path: "/cart", status: http.StatusMethodNotAllowed, code: "method_not_allowed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(srv, tt.method, tt.path, tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.code != "" {
				assert.Equal(t, tt.code, errorCode(t, rec))
			}
		})
	}
}

func TestRoutes_WebhookDisabledWithoutSecret(t *testing.T) {
	srv := newServer(t, false)

	rec := serve(srv, http.MethodPost, "/webhooks/stripe", `{}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRoutes_CheckoutUsesStrictLimiter(t *testing.T) {
	srv := newServer(t, true)
	burst := middleware.StrictRateLimiterConfig().BurstSize

	for i := 0; i < burst; i++ {
		rec := serve(srv, http.MethodPost, "/checkout", `{}`)
		require.Equal(t, http.StatusBadRequest, rec.Code, "request %d", i)
	}

	rec := serve(srv, http.MethodPost, "/checkout", `{}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate_limit", errorCode(t, rec))

	// Cart reads have their own budget.
	rec = serve(srv, http.MethodGet, "/cart", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
