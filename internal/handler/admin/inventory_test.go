package admin

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/skein/internal/domain"
)

func adjustBody(target uuid.UUID, kind, op string, amount int) string {
	return fmt.Sprintf(`{"target_id":%q,"kind":%q,"op":%q,"amount":%d}`, target, kind, op, amount)
}

func TestInventory_Adjust(t *testing.T) {
	env := newTestEnv(t)
	tee := env.store.SeedProduct("Crew Tee", 2500, 0)
	black := env.store.SeedColor(tee, "Black", 0)
	medium := env.store.SeedVariant(black, "M", 2)
	tote := env.store.SeedProduct("Tote", 1500, 4)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantQty    int32
		wantCode   string
	}{
		{name: "add to variant", body: adjustBody(medium, "variant", "add", 3), wantStatus: http.StatusOK, wantQty: 5},
		{name: "subtract floors at zero", body: adjustBody(medium, "variant", "subtract", 9), wantStatus: http.StatusOK, wantQty: 0},
		{name: "set plain product", body: adjustBody(tote, "product", "set", 12), wantStatus: http.StatusOK, wantQty: 12},
		{name: "color tracked per size", body: adjustBody(black, "color", "add", 1), wantStatus: http.StatusConflict, wantCode: domain.ECONFLICT},
		{name: "product tracked per color", body: adjustBody(tee, "product", "add", 1), wantStatus: http.StatusConflict, wantCode: domain.ECONFLICT},
		{name: "unknown target", body: adjustBody(uuid.New(), "variant", "add", 1), wantStatus: http.StatusNotFound, wantCode: domain.ENOTFOUND},
		{name: "bad kind", body: adjustBody(tote, "shelf", "add", 1), wantStatus: http.StatusBadRequest, wantCode: domain.EINVALID},
		{name: "negative amount", body: adjustBody(tote, "product", "add", -1), wantStatus: http.StatusBadRequest, wantCode: domain.EINVALID},
		{name: "bad target id", body: `{"target_id":"nope","kind":"product","op":"add","amount":1}`, wantStatus: http.StatusBadRequest, wantCode: domain.EINVALID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodPost, "/admin/stock/adjust", tt.body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeBody[apiError](t, rec).Error.Code)
				return
			}
			assert.Equal(t, tt.wantQty, decodeBody[domain.StockLevel](t, rec).Available)
		})
	}
}

func TestInventory_AddVariant(t *testing.T) {
	env := newTestEnv(t)
	tee := env.store.SeedProduct("Crew Tee", 2500, 0)
	black := env.store.SeedColor(tee, "Black", 0)
	path := "/admin/colors/" + black.String() + "/variants"

	rec := env.do(http.MethodPost, path, `{"size":"xl","quantity":4}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	v := decodeBody[domain.Variant](t, rec)
	assert.Equal(t, domain.Size("XL"), v.Size)
	assert.Equal(t, int32(4), env.store.VariantQuantity(v.ID))

	rec = env.do(http.MethodPost, path, `{"size":"XL","quantity":1}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(http.MethodPost, path, `{"size":"HUGE","quantity":1}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody[apiError](t, rec).Error.Fields, "size")

	rec = env.do(http.MethodPost, "/admin/colors/"+uuid.NewString()+"/variants", `{"size":"S","quantity":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInventory_ProductStock(t *testing.T) {
	env := newTestEnv(t)
	tee := env.store.SeedProduct("Crew Tee", 2500, 0)
	black := env.store.SeedColor(tee, "Black", 0)
	env.store.SeedVariant(black, "M", 2)
	env.store.SeedVariant(black, "L", 5)

	rec := env.do(http.MethodGet, "/admin/products/"+tee.String()+"/stock", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	p := decodeBody[domain.Product](t, rec)
	require.Len(t, p.Colors, 1)
	assert.Equal(t, int32(7), p.Colors[0].TotalAvailable())

	rec = env.do(http.MethodGet, "/admin/products/"+uuid.NewString()+"/stock", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
