package urlstate

import (
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"

	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/internal/domain"
)

func busyState() domain.FilterState {
	return domain.FilterState{
		Query:         "gorra",
		Categories:    []string{"Gorras", "Viseras"},
		SubAttributes: []domain.SubAttribute{{Key: domain.SubColors, Value: "Rojo"}},
		PriceMin:      f64(100),
		PriceMax:      f64(900),
		Sort:          domain.SortPriceDesc,
		Page:          4,
	}
}

// assertOnlyChanged fails when any key other than the listed ones differs
// between the encoded before and after states.
func assertOnlyChanged(t *testing.T, before, after url.Values, changed ...string) {
	t.Helper()
	skip := map[string]bool{KeyPage: true}
	for _, k := range changed {
		skip[k] = true
	}
	keys := map[string]bool{}
	for k := range before {
		keys[k] = true
	}
	for k := range after {
		keys[k] = true
	}
	for k := range keys {
		if skip[k] {
			continue
		}
		if diff := cmp.Diff(before[k], after[k], cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("key %q changed unexpectedly (-before +after):\n%s", k, diff)
		}
	}
}

func TestToggleCategory_Isolation(t *testing.T) {
	codec := defaultCodec()
	s := busyState()

	added := codec.ToggleCategory(s, "Mochilas")
	assert.Equal(t, []string{"Gorras", "Viseras", "Mochilas"}, added.Categories)
	assert.Equal(t, 1, added.Page)
	assertOnlyChanged(t, codec.Encode(s), codec.Encode(added), KeyFamily)

	removed := codec.ToggleCategory(s, "Gorras")
	assert.Equal(t, []string{"Viseras"}, removed.Categories)
	assertOnlyChanged(t, codec.Encode(s), codec.Encode(removed), KeyFamily)

	assert.Equal(t, []string{"Gorras", "Viseras"}, s.Categories, "input state is untouched")
	assert.Equal(t, 4, s.Page)
}

func TestToggleCategory_HiddenIsNotSelectable(t *testing.T) {
	codec := defaultCodec()
	next := codec.ToggleCategory(domain.NewFilterState(), "Logo 24")
	assert.Empty(t, next.Categories)
}

func TestToggleSubAttribute(t *testing.T) {
	codec := defaultCodec()
	s := busyState()
	azul := domain.SubAttribute{Key: domain.SubColors, Value: "Azul"}

	added := codec.ToggleSubAttribute(s, azul)
	assert.Contains(t, added.SubAttributes, azul)
	assertOnlyChanged(t, codec.Encode(s), codec.Encode(added), KeySub)

	removed := codec.ToggleSubAttribute(added, azul)
	assert.Equal(t, s.SubAttributes, removed.SubAttributes)

	invalid := codec.ToggleSubAttribute(s, domain.SubAttribute{Key: "brand", Value: "x"})
	assert.Equal(t, s.SubAttributes, invalid.SubAttributes)
}

func TestWithPriceRange(t *testing.T) {
	codec := defaultCodec()
	s := busyState()
	bounds := domain.PriceBounds{Min: 0, Max: 1000, Step: 10}

	next := WithPriceRange(s, bounds, f64(200), f64(300))
	assert.Equal(t, 200.0, *next.PriceMin)
	assert.Equal(t, 300.0, *next.PriceMax)
	assertOnlyChanged(t, codec.Encode(s), codec.Encode(next), KeyPriceFrom, KeyPriceTo)

	full := WithPriceRange(s, bounds, f64(0), f64(1000))
	assert.Nil(t, full.PriceMin, "lower bound at the minimum is unbounded")
	assert.Nil(t, full.PriceMax, "upper bound at the maximum is unbounded")

	cleared := WithPriceRange(s, bounds, nil, nil)
	assert.Nil(t, cleared.PriceMin)
	assert.Nil(t, cleared.PriceMax)
	assert.Equal(t, 100.0, *s.PriceMin)
}

func TestWithSort(t *testing.T) {
	codec := defaultCodec()
	s := busyState()

	next := WithSort(s, domain.SortAlphaAsc)
	assert.Equal(t, domain.SortAlphaAsc, next.Sort)
	assert.Equal(t, 1, next.Page)
	assertOnlyChanged(t, codec.Encode(s), codec.Encode(next), KeySort)

	assert.Equal(t, domain.SortPriceAsc, WithSort(s, "bogus").Sort)
}

func TestWithPage_KeepsFilters(t *testing.T) {
	codec := defaultCodec()
	s := busyState()

	next := WithPage(s, 7)
	assert.Equal(t, 7, next.Page)
	assertOnlyChanged(t, codec.Encode(s), codec.Encode(next))
	assert.Equal(t, 1, WithPage(s, 0).Page)
}

func TestCleared(t *testing.T) {
	next := Cleared(busyState())
	assert.Equal(t, domain.FilterState{Query: "gorra", Sort: domain.SortPriceDesc, Page: 1}, next)
}
