package storefront

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/skein/internal/billing"
	"github.com/dukerupert/skein/internal/cookie"
	"github.com/dukerupert/skein/internal/crypto"
	"github.com/dukerupert/skein/internal/repository/repotest"
	"github.com/dukerupert/skein/internal/service"
)

// testEnv wires the storefront handlers to real services over the in-memory
// store and carries the cart cookie between requests like a browser would.
type testEnv struct {
	t        *testing.T
	store    *repotest.Memory
	payments *billing.MockProvider
	mux      *http.ServeMux
	cart     *http.Cookie
}

func newTestEnv(t *testing.T) *testEnv {
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
	carts := NewCartStore(cookie.NewSealer(cookie.NewConfig("", false), enc), 0)

	cartH := NewCartHandler(inventory, carts)
	stockH := NewStockHandler(inventory)
	checkoutH := NewCheckoutHandler(checkout, inventory, payments, carts, nil, "")
	orderH := NewOrderLookupHandler(orders)
	reviewH := NewReviewHandler(reviews)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /cart", cartH.View)
	mux.HandleFunc("POST /cart/items", cartH.AddItem)
	mux.HandleFunc("POST /cart/items/increase", cartH.Increase)
	mux.HandleFunc("POST /cart/items/decrease", cartH.Decrease)
	mux.HandleFunc("POST /cart/items/remove", cartH.Remove)
	mux.HandleFunc("DELETE /cart", cartH.Clear)
	mux.HandleFunc("GET /stock", stockH.Level)
	mux.HandleFunc("GET /products/{id}", stockH.Product)
	mux.HandleFunc("POST /checkout/payment-intent", checkoutH.CreatePaymentIntent)
	mux.HandleFunc("POST /checkout", checkoutH.PlaceOrder)
	mux.HandleFunc("GET /orders/{number}", orderH.Get)
	mux.HandleFunc("GET /products/{id}/reviews", reviewH.List)
	mux.HandleFunc("POST /products/{id}/reviews", reviewH.Add)

	return &testEnv{t: t, store: store, payments: payments, mux: mux}
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
	if e.cart != nil {
		req.AddCookie(e.cart)
	}

	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.Name != cookie.CartCookieName {
			continue
		}
		if c.MaxAge < 0 {
			e.cart = nil
		} else {
			e.cart = c
		}
	}
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type apiError struct {
	Error struct {
		Code      string            `json:"code"`
		Message   string            `json:"message"`
		Fields    map[string]string `json:"fields"`
		Line      *int              `json:"line"`
		Available *int32            `json:"available"`
	} `json:"error"`
}

// teeShop seeds a t-shirt sold by color and size plus a plain tote.
type teeShop struct {
	tee, black, mSize uuid.UUID
	tote              uuid.UUID
}

func seedShop(store *repotest.Memory) teeShop {
	var s teeShop
	s.tee = store.SeedProduct("Crew Tee", 2500, 0)
	s.black = store.SeedColor(s.tee, "Black", 0)
	s.mSize = store.SeedVariant(s.black, "M", 2)
	store.SeedVariant(s.black, "L", 5)
	s.tote = store.SeedProduct("Tote", 1500, 4)
	return s
}

func lineBody(productID, colorID uuid.UUID, size string) string {
	b, _ := json.Marshal(map[string]string{
		"product_id": productID.String(),
		"color_id":   colorID.String(),
		"size":       size,
	})
	return string(b)
}

func productBody(productID uuid.UUID) string {
	return `{"product_id":"` + productID.String() + `"}`
}
