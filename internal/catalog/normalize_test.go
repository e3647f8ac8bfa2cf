package catalog

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/internal/domain"
)

func decodeItem(t *testing.T, body string) domain.CatalogItem {
	t.Helper()
	var raw rawItem
	require.NoError(t, json.Unmarshal([]byte(body), &raw))
	return normalizeItem(raw)
}

func TestNormalizeItem_PricePriority(t *testing.T) {
	tests := []struct {
		name string
		body string
		want *float64
	}{
		{"sale price wins", `{"salePrice": 90, "price": 100, "basePrice": 120}`, ptr(90)},
		{"list price next", `{"price": 100, "basePrice": 120}`, ptr(100)},
		{"base price last", `{"basePrice": 120}`, ptr(120)},
		{"numeric string", `{"price": " 1500.5 "}`, ptr(1500.5)},
		{"non numeric sale price is skipped", `{"salePrice": "consultar", "price": 100}`, ptr(100)},
		{"null sale price is skipped", `{"salePrice": null, "basePrice": 7}`, ptr(7)},
		{"no price", `{"name": "x"}`, nil},
		{"boolean is not a price", `{"price": true}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := decodeItem(t, tt.body)
			assert.Equal(t, tt.want, item.Price)
		})
	}
}

func TestNormalizeItem_IdentityFallbacks(t *testing.T) {
	item := decodeItem(t, `{"_id": "abc", "title": "Gorra trucker", "sku": "GT-1"}`)
	assert.Equal(t, "abc", item.ID)
	assert.Equal(t, "Gorra trucker", item.Name)
	assert.Equal(t, "GT-1", item.SKU)

	item = decodeItem(t, `{"id": 42, "sku": "ONLY-SKU"}`)
	assert.Equal(t, "42", item.ID)
	assert.Equal(t, "ONLY-SKU", item.Name)
}

func TestNormalizeItem_Images(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantMain string
		wantLen  int
	}{
		{
			name:     "integrator main wins over main",
			body:     `{"images": [{"image_url": "a.jpg"}, {"url": "b.jpg", "main": true}, {"src": "c.jpg", "main_integrator": true}]}`,
			wantMain: "c.jpg",
			wantLen:  3,
		},
		{
			name:     "main wins over first",
			body:     `{"images": [{"image_url": "a.jpg"}, {"url": "b.jpg", "main": true}]}`,
			wantMain: "b.jpg",
			wantLen:  2,
		},
		{
			name:     "bare strings",
			body:     `{"images": ["a.jpg", "b.jpg"]}`,
			wantMain: "a.jpg",
			wantLen:  2,
		},
		{
			name:     "single string instead of list",
			body:     `{"images": "solo.jpg"}`,
			wantMain: "solo.jpg",
			wantLen:  1,
		},
		{
			name:     "images without url are dropped",
			body:     `{"images": [{"main": true}], "image": "fallback.jpg"}`,
			wantMain: "fallback.jpg",
			wantLen:  0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := decodeItem(t, tt.body)
			assert.Equal(t, tt.wantMain, item.ImageURL)
			assert.Len(t, item.Images, tt.wantLen)
		})
	}
}

func TestNormalizeItem_Families(t *testing.T) {
	item := decodeItem(t, `{"families": [
		{"id": "1", "title": "Gorras", "description": "GORRAS"},
		{"_id": "2", "description": "Mochilas"},
		{"value": "3"},
		"Llaveros"
	]}`)

	require.Len(t, item.Families, 4)
	assert.Equal(t, domain.Family{ID: "1", Title: "Gorras", Description: "GORRAS"}, item.Families[0])
	assert.Equal(t, domain.Family{ID: "2", Title: "Mochilas", Description: "Mochilas"}, item.Families[1])
	assert.Equal(t, domain.Family{ID: "3", Title: "Familia 3"}, item.Families[2])
	assert.Equal(t, domain.Family{ID: "Llaveros", Title: "Llaveros"}, item.Families[3])
}

func TestNormalizeItem_VariantsAndProviderItems(t *testing.T) {
	item := decodeItem(t, `{
		"variants": [{"sku": "V1", "color": "Rojo", "size": "M"}],
		"products": [
			{"sku": "P1", "stock": 10, "color": "Azul", "achromatic": false},
			{"sku": "P2", "stock": "5", "material": "Algodón", "achromatic": 1},
			"garbage"
		]
	}`)

	require.Len(t, item.Variants, 1)
	assert.Equal(t, "Rojo", item.Variants[0].Color)
	assert.Equal(t, "V1", item.Variants[0].ID)

	require.Len(t, item.ProviderItems, 2)
	assert.Equal(t, 15, item.Stock)
	assert.True(t, item.ProviderItems[1].Achromatic)
	assert.Equal(t, "Algodón", item.ProviderItems[1].Material)
}

func TestNormalizeItem_MinimumOrderAndTiers(t *testing.T) {
	item := decodeItem(t, `{"minimum_order_quantity": "50", "priceTiers": [{"min": 50, "price": 10}]}`)
	assert.Equal(t, 50, item.MinimumOrderQuantity)
	assert.JSONEq(t, `[{"min": 50, "price": 10}]`, string(item.PriceTiers))

	item = decodeItem(t, `{"priceTiers": "none"}`)
	assert.Equal(t, 1, item.MinimumOrderQuantity)
	assert.Nil(t, item.PriceTiers)
}

func TestNormalizeItem_DetailFields(t *testing.T) {
	item := decodeItem(t, `{
		"subattributes": [{"name": "Color", "value": "Rojo"}],
		"printing_types": [{"name": "Bordado"}],
		"dimensions": "n/a",
		"packaging": "Bolsa individual",
		"units_per_box": "100",
		"supplementary_information_text": "Lavar a mano",
		"tax": 21,
		"brandcapsProduct": true
	}`)

	assert.JSONEq(t, `[{"name": "Color", "value": "Rojo"}]`, string(item.SubAttributes))
	assert.JSONEq(t, `[{"name": "Bordado"}]`, string(item.PrintingTypes))
	assert.Nil(t, item.Dimensions)
	assert.Equal(t, "Bolsa individual", item.Packaging)
	assert.Equal(t, 100, item.UnitsPerBox)
	assert.Equal(t, "Lavar a mano", item.SupplementaryInformation)
	require.NotNil(t, item.Tax)
	assert.Equal(t, 21.0, *item.Tax)
	assert.True(t, item.BrandcapsProduct)

	bare := decodeItem(t, `{"units_per_box": -4, "tax": "n/a"}`)
	assert.Zero(t, bare.UnitsPerBox)
	assert.Nil(t, bare.Tax)
	assert.False(t, bare.BrandcapsProduct)
}

func TestLooseNumber_IntOrClamps(t *testing.T) {
	assert.Equal(t, math.MaxInt32, looseNumber{value: 1e20, valid: true}.intOr(0))
	assert.Equal(t, -math.MaxInt32, looseNumber{value: -1e20, valid: true}.intOr(0))
	assert.Equal(t, 7, looseNumber{value: 7.9, valid: true}.intOr(0))
	assert.Equal(t, 3, looseNumber{}.intOr(3))
}

func TestPageCount(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"explicit", `{"items": [], "totalPages": 4}`, 4},
		{"string", `{"items": [], "totalPages": "3"}`, 3},
		{"from total", `{"items": [], "total": 50}`, 3},
		{"from string total", `{"items": [], "total": "48"}`, 2},
		{"invalid total pages falls back to total", `{"items": [], "total": 25, "totalPages": "n/a"}`, 2},
		{"nothing", `{"items": []}`, 1},
		{"zero total", `{"items": [], "total": 0}`, 1},
		{"huge total pages is clamped", `{"items": [], "totalPages": 1e20}`, math.MaxInt32},
		{"huge total is clamped", `{"items": [], "total": "1e30"}`, math.MaxInt32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p rawPage
			require.NoError(t, json.Unmarshal([]byte(tt.body), &p))
			assert.Equal(t, tt.want, pageCount(p, 24))
		})
	}
}

func TestRawPage_RejectsNonListItems(t *testing.T) {
	var p rawPage
	assert.Error(t, json.Unmarshal([]byte(`{"items": "oops"}`), &p))
	assert.Error(t, json.Unmarshal([]byte(`[1, 2]`), &p))
	assert.NoError(t, json.Unmarshal([]byte(`{"items": null}`), &p))
}

func TestRawPage_ProductsFallback(t *testing.T) {
	var p rawPage
	require.NoError(t, json.Unmarshal([]byte(`{"products": [{"id": "a"}]}`), &p))
	require.Len(t, p.items(), 1)
	assert.Equal(t, "a", string(p.items()[0].ID))
}

func ptr(v float64) *float64 { return &v }
