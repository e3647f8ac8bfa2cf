package search

import (
	"cmp"
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/internal/domain"
)

// newCollator returns a Spanish, case-insensitive collator. Collators are not
// safe for concurrent use, so callers create one per operation.
func newCollator() *collate.Collator {
	return collate.New(language.Spanish, collate.IgnoreCase)
}

// ApplyFilters keeps items whose resolved price lies in [min, max]. A nil
// bound is unbounded. Items without a price count as +Inf: they pass a
// lower bound and fail any upper bound. The input is not modified.
func ApplyFilters(items []domain.CatalogItem, min, max *float64) []domain.CatalogItem {
	out := make([]domain.CatalogItem, 0, len(items))
	for _, item := range items {
		price := item.ResolvedPrice()
		if min != nil && price < *min {
			continue
		}
		if max != nil && price > *max {
			continue
		}
		out = append(out, item)
	}
	return out
}

// ApplySort returns a stably sorted copy of items. Items comparing equal keep
// their input order.
func ApplySort(items []domain.CatalogItem, order domain.SortOrder) []domain.CatalogItem {
	out := slices.Clone(items)
	switch order {
	case domain.SortPriceDesc:
		slices.SortStableFunc(out, func(a, b domain.CatalogItem) int {
			return cmp.Compare(b.ResolvedPrice(), a.ResolvedPrice())
		})
	case domain.SortAlphaAsc:
		col := newCollator()
		slices.SortStableFunc(out, func(a, b domain.CatalogItem) int {
			return col.CompareString(a.Name, b.Name)
		})
	default:
		slices.SortStableFunc(out, func(a, b domain.CatalogItem) int {
			return cmp.Compare(a.ResolvedPrice(), b.ResolvedPrice())
		})
	}
	return out
}
