package search

import (
	"math"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/internal/domain"
	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/pkg/slug"
)

// HiddenFunc reports whether a category or facet label must never be shown.
type HiddenFunc func(label string) bool

// DeriveFacets collects the distinct colors, materials and sizes across both
// variant lists of every item, in first-seen order, and the distinct
// categories sorted with Spanish collation. Empty and hidden values are
// dropped.
func DeriveFacets(items []domain.CatalogItem, hidden HiddenFunc) domain.Facets {
	if hidden == nil {
		hidden = func(string) bool { return false }
	}

	var colors, materials, sizes []string
	keep := func(dst []string, v string) []string {
		if strings.TrimSpace(v) == "" || hidden(v) {
			return dst
		}
		return append(dst, v)
	}

	var families []domain.Family
	for _, item := range items {
		for _, list := range [][]domain.Variant{item.Variants, item.ProviderItems} {
			for _, v := range list {
				colors = keep(colors, v.Color)
				materials = keep(materials, v.Material)
				sizes = keep(sizes, v.Size)
			}
		}
		for _, f := range item.Families {
			if strings.TrimSpace(f.Title) == "" || hidden(f.Title) || hidden(f.Description) {
				continue
			}
			families = append(families, f)
		}
	}

	return domain.Facets{
		Colors:     lo.Uniq(colors),
		Materials:  lo.Uniq(materials),
		Sizes:      lo.Uniq(sizes),
		Categories: SortFamilies(UniqueFamilies(families)),
	}
}

// UniqueFamilies drops repeated families, keyed by id or, without one, by
// the slug of the title. The first occurrence wins.
func UniqueFamilies(families []domain.Family) []domain.Family {
	return lo.UniqBy(families, func(f domain.Family) string {
		if f.ID != "" {
			return "id:" + f.ID
		}
		return "slug:" + slug.Generate(f.Title)
	})
}

// SortFamilies orders families by title using Spanish collation. The input
// is sorted in place and returned.
func SortFamilies(families []domain.Family) []domain.Family {
	col := newCollator()
	slices.SortStableFunc(families, func(a, b domain.Family) int {
		return col.CompareString(a.Title, b.Title)
	})
	if families == nil {
		return []domain.Family{}
	}
	return families
}

// ComputePriceBounds derives the price slider range from the items' finite
// prices, or returns the default bounds when none has a price.
func ComputePriceBounds(items []domain.CatalogItem) domain.PriceBounds {
	lowest, highest := math.Inf(1), math.Inf(-1)
	for _, item := range items {
		if item.Price == nil {
			continue
		}
		p := *item.Price
		if math.IsNaN(p) || math.IsInf(p, 0) {
			continue
		}
		lowest = math.Min(lowest, p)
		highest = math.Max(highest, p)
	}
	if math.IsInf(lowest, 1) {
		return domain.DefaultPriceBounds()
	}

	minP := math.Max(0, math.Floor(lowest))
	maxP := math.Ceil(highest)
	step := math.Max(1, math.Round((maxP-minP)/100))
	return domain.PriceBounds{Min: minP, Max: maxP, Step: step}
}
