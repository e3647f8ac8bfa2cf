package urlstate

import (
	"slices"

	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/internal/domain"
)

// Every transition returns a new state that differs from s in exactly one
// dimension, plus the page reset to 1 (except WithPage). s is never
// modified.

// ToggleCategory adds category when absent and removes it when present.
// Hidden categories cannot be selected.
func (c *Codec) ToggleCategory(s domain.FilterState, category string) domain.FilterState {
	next := s.Clone()
	if i := slices.Index(next.Categories, category); i >= 0 {
		next.Categories = slices.Delete(next.Categories, i, i+1)
	} else if !c.Hidden(category) {
		next.Categories = append(next.Categories, category)
	}
	next.Page = 1
	return next
}

// ToggleSubAttribute adds or removes a sub-attribute selection.
func (c *Codec) ToggleSubAttribute(s domain.FilterState, attr domain.SubAttribute) domain.FilterState {
	next := s.Clone()
	if i := slices.Index(next.SubAttributes, attr); i >= 0 {
		next.SubAttributes = slices.Delete(next.SubAttributes, i, i+1)
	} else if attr.Key.Valid() && attr.Value != "" && !c.Hidden(attr.Value) {
		next.SubAttributes = append(next.SubAttributes, attr)
	}
	next.Page = 1
	return next
}

// WithPriceRange sets the price bounds. A nil bound, or one at or beyond the
// matching end of bounds, becomes unbounded so the URL only carries
// restrictions the user actually applied.
func WithPriceRange(s domain.FilterState, bounds domain.PriceBounds, lo, hi *float64) domain.FilterState {
	next := s.Clone()
	next.PriceMin, next.PriceMax = nil, nil
	if lo != nil && *lo > bounds.Min {
		v := *lo
		next.PriceMin = &v
	}
	if hi != nil && *hi < bounds.Max {
		v := *hi
		next.PriceMax = &v
	}
	next.Page = 1
	return next
}

// WithSort changes the sort order.
func WithSort(s domain.FilterState, order domain.SortOrder) domain.FilterState {
	next := s.Clone()
	next.Sort = domain.ParseSortOrder(string(order))
	next.Page = 1
	return next
}

// WithPage moves to another page, keeping every filter.
func WithPage(s domain.FilterState, page int) domain.FilterState {
	next := s.Clone()
	next.Page = max(1, page)
	return next
}

// Cleared drops categories, sub-attributes and prices but keeps the text
// query and sort order.
func Cleared(s domain.FilterState) domain.FilterState {
	next := domain.NewFilterState()
	next.Query = s.Query
	next.Sort = domain.ParseSortOrder(string(s.Sort))
	return next
}
