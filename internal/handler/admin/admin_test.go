package admin

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/skein/internal/billing"
	"github.com/dukerupert/skein/internal/domain"
	"github.com/dukerupert/skein/internal/middleware"
	"github.com/dukerupert/skein/internal/repository/repotest"
	"github.com/dukerupert/skein/internal/service"
)

var testSecret = []byte("admin-test-secret")

type testEnv struct {
	t        *testing.T
	store    *repotest.Memory
	checkout domain.CheckoutService
	reviews  domain.ReviewService
	handler  http.Handler
	token    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := repotest.NewMemory()

	numbers, err := service.NewSnowflakeNumbers(2)
	require.NoError(t, err)

	inventory := service.NewInventoryService(store, nil, logger)
	checkout := service.NewCheckoutService(store, numbers, service.NopNotifier{}, logger)
	orders := service.NewOrderService(store, service.NopNotifier{}, billing.NewMockProvider(), logger)
	reviews := service.NewReviewService(store, logger)

	orderH := NewOrderHandler(orders)
	inventoryH := NewInventoryHandler(inventory)
	reviewH := NewReviewHandler(reviews)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /admin/orders", orderH.List)
	mux.HandleFunc("GET /admin/orders/{id}", orderH.Get)
	mux.HandleFunc("PATCH /admin/orders/{id}/status", orderH.UpdateStatus)
	mux.HandleFunc("POST /admin/stock/adjust", inventoryH.Adjust)
	mux.HandleFunc("POST /admin/colors/{id}/variants", inventoryH.AddVariant)
	mux.HandleFunc("GET /admin/products/{id}/stock", inventoryH.ProductStock)
	mux.HandleFunc("DELETE /admin/products/{id}/reviews/{reviewID}", reviewH.Delete)
	mux.HandleFunc("POST /admin/products/{id}/rating/recompute", reviewH.RecomputeRating)

	return &testEnv{
		t:        t,
		store:    store,
		checkout: checkout,
		reviews:  reviews,
		handler:  middleware.RequireAdmin(middleware.AuthConfig{Secret: testSecret})(mux),
		token:    signToken(t, middleware.RoleAdmin),
	}
}

func signToken(t *testing.T, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.AdminClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "ops@skein.test",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString(testSecret)
	require.NoError(t, err)
	return signed
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	e.t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// place records an order for one unit of each product.
func (e *testEnv) place(paymentID string, products ...uuid.UUID) *domain.Order {
	e.t.Helper()

	req := domain.CheckoutRequest{
		CustomerName:  "Ada Weaver",
		CustomerEmail: "ada@example.com",
		Shipping: domain.Address{
			Line1:      "12 Loom Street",
			City:       "Portland",
			PostalCode: "97201",
			Country:    "US",
		},
		PaymentID: paymentID,
	}
	for _, p := range products {
		req.Lines = append(req.Lines, domain.CheckoutLine{ProductID: p, Quantity: 1})
	}
	order, err := e.checkout.PlaceOrder(context.Background(), req)
	require.NoError(e.t, err)
	return order
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type apiError struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}
