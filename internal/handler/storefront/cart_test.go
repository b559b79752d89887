package storefront

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/skein/internal/cookie"
)

func TestCart_EmptyView(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/cart", "")
	require.Equal(t, http.StatusOK, rec.Code)

	cart := decodeBody[CartResponse](t, rec)
	assert.Empty(t, cart.Lines)
	assert.Zero(t, cart.TotalCents)
	assert.False(t, cart.CanCheckout)
}

func TestCart_AddMergeAndMutate(t *testing.T) {
	env := newTestEnv(t)
	shop := seedShop(env.store)
	medium := lineBody(shop.tee, shop.black, "m")

	rec := env.do(http.MethodPost, "/cart/items", medium)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, env.cart, "cart cookie set")

	rec = env.do(http.MethodPost, "/cart/items", medium)
	cart := decodeBody[CartResponse](t, rec)
	require.Len(t, cart.Lines, 1, "same selection merges")
	line := cart.Lines[0]
	assert.Equal(t, int32(2), line.Quantity)
	assert.Equal(t, "Crew Tee", line.Title)
	assert.Equal(t, int32(2500), line.UnitPriceCents)
	assert.Equal(t, int32(2), line.Available)
	assert.False(t, line.CanIncrease)
	assert.False(t, line.ExceedsStock)
	assert.Equal(t, int64(5000), cart.TotalCents)
	assert.True(t, cart.CanCheckout)

	// Increase does not consult stock; the view flags the overage.
	cart = decodeBody[CartResponse](t, env.do(http.MethodPost, "/cart/items/increase", medium))
	assert.Equal(t, int32(3), cart.Lines[0].Quantity)
	assert.True(t, cart.Lines[0].ExceedsStock)
	assert.False(t, cart.CanCheckout)

	cart = decodeBody[CartResponse](t, env.do(http.MethodPost, "/cart/items", productBody(shop.tote)))
	require.Len(t, cart.Lines, 2)
	assert.Equal(t, 4, cart.ItemCount)
	assert.Equal(t, int32(4), cart.Lines[1].Available)

	cart = decodeBody[CartResponse](t, env.do(http.MethodPost, "/cart/items/decrease", productBody(shop.tote)))
	require.Len(t, cart.Lines, 1, "line reaching zero is dropped")

	cart = decodeBody[CartResponse](t, env.do(http.MethodPost, "/cart/items/remove", medium))
	assert.Empty(t, cart.Lines)
	assert.Nil(t, env.cart, "empty cart clears the cookie")
}

func TestCart_DistinctSelections(t *testing.T) {
	env := newTestEnv(t)
	shop := seedShop(env.store)

	env.do(http.MethodPost, "/cart/items", lineBody(shop.tee, shop.black, "M"))
	cart := decodeBody[CartResponse](t, env.do(http.MethodPost, "/cart/items", lineBody(shop.tee, shop.black, "L")))

	require.Len(t, cart.Lines, 2)
	assert.Equal(t, int32(5), cart.Lines[1].Available)
}

func TestCart_UnknownKeyIsNoop(t *testing.T) {
	env := newTestEnv(t)
	shop := seedShop(env.store)
	env.do(http.MethodPost, "/cart/items", productBody(shop.tote))

	rec := env.do(http.MethodPost, "/cart/items/increase", productBody(uuid.New()))
	require.Equal(t, http.StatusOK, rec.Code)
	cart := decodeBody[CartResponse](t, rec)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, int32(1), cart.Lines[0].Quantity)
}

func TestCart_AddRejected(t *testing.T) {
	env := newTestEnv(t)
	shop := seedShop(env.store)
	otherColor := env.store.SeedColor(shop.tote, "Natural", 3)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantField  string
	}{
		{name: "unknown product", body: productBody(uuid.New()), wantStatus: http.StatusNotFound},
		{name: "missing product id", body: `{}`, wantStatus: http.StatusBadRequest, wantField: "product_id"},
		{name: "color required", body: productBody(shop.tee), wantStatus: http.StatusBadRequest, wantField: "color_id"},
		{name: "foreign color", body: lineBody(shop.tee, otherColor, "M"), wantStatus: http.StatusBadRequest, wantField: "color_id"},
		{name: "size required", body: lineBody(shop.tee, shop.black, ""), wantStatus: http.StatusBadRequest, wantField: "size"},
		{name: "unknown size", body: lineBody(shop.tee, shop.black, "XXXL"), wantStatus: http.StatusBadRequest, wantField: "size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodPost, "/cart/items", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantField != "" {
				assert.Contains(t, decodeBody[apiError](t, rec).Error.Fields, tt.wantField)
			}
		})
	}
	assert.Nil(t, env.cart)
}

func TestCart_TamperedCookie(t *testing.T) {
	env := newTestEnv(t)
	env.cart = &http.Cookie{Name: cookie.CartCookieName, Value: "Zm9yZ2VkLWNhcnQtY29udGVudHMtdGhhdC1pcy1sb25nLWVub3VnaA=="}

	rec := env.do(http.MethodGet, "/cart", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[CartResponse](t, rec).Lines)
}

func TestCart_Clear(t *testing.T) {
	env := newTestEnv(t)
	shop := seedShop(env.store)
	env.do(http.MethodPost, "/cart/items", productBody(shop.tote))
	require.NotNil(t, env.cart)

	rec := env.do(http.MethodDelete, "/cart", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, env.cart)
}
