package domain

import "strings"

// SortOrder is one of the three total orderings the storefront offers.
type SortOrder string

const (
	SortPriceAsc  SortOrder = "price_asc"
	SortPriceDesc SortOrder = "price_desc"
	SortAlphaAsc  SortOrder = "alpha_asc"
)

// ParseSortOrder returns the matching order, or SortPriceAsc when s is empty
// or unrecognized.
func ParseSortOrder(s string) SortOrder {
	switch SortOrder(s) {
	case SortPriceDesc:
		return SortPriceDesc
	case SortAlphaAsc:
		return SortAlphaAsc
	default:
		return SortPriceAsc
	}
}

// SubAttributeKey names a variant dimension that can be filtered on.
type SubAttributeKey string

const (
	SubColors   SubAttributeKey = "colors"
	SubMaterial SubAttributeKey = "material"
	SubSize     SubAttributeKey = "size"
)

// Valid reports whether k is one of the known keys.
func (k SubAttributeKey) Valid() bool {
	return k == SubColors || k == SubMaterial || k == SubSize
}

// SubAttribute is a selected facet value such as colors:Rojo.
type SubAttribute struct {
	Key   SubAttributeKey `json:"key"`
	Value string          `json:"value"`
}

// String renders the attribute in its wire form "<key>:<value>".
func (a SubAttribute) String() string {
	return string(a.Key) + ":" + a.Value
}

// ParseSubAttribute splits raw on its first colon. A missing colon means the
// whole string is a color. ok is false for unknown keys or empty values.
func ParseSubAttribute(raw string) (attr SubAttribute, ok bool) {
	key, value, found := strings.Cut(raw, ":")
	if !found {
		key, value = string(SubColors), raw
	}
	attr = SubAttribute{Key: SubAttributeKey(key), Value: value}
	if !attr.Key.Valid() || strings.TrimSpace(value) == "" {
		return SubAttribute{}, false
	}
	return attr, true
}

// FilterState is the full set of user-selected search parameters. It is a
// value type: transitions return modified copies.
type FilterState struct {
	Query         string         `json:"query"`
	Categories    []string       `json:"categories"`
	SubAttributes []SubAttribute `json:"sub_attributes"`
	PriceMin      *float64       `json:"price_min,omitempty"`
	PriceMax      *float64       `json:"price_max,omitempty"`
	Sort          SortOrder      `json:"sort"`
	Page          int            `json:"page"`
}

// NewFilterState returns the state of an empty search.
func NewFilterState() FilterState {
	return FilterState{Sort: SortPriceAsc, Page: 1}
}

// Clone returns a deep copy of s.
func (s FilterState) Clone() FilterState {
	out := s
	if s.Categories != nil {
		out.Categories = append([]string(nil), s.Categories...)
	}
	if s.SubAttributes != nil {
		out.SubAttributes = append([]SubAttribute(nil), s.SubAttributes...)
	}
	if s.PriceMin != nil {
		v := *s.PriceMin
		out.PriceMin = &v
	}
	if s.PriceMax != nil {
		v := *s.PriceMax
		out.PriceMax = &v
	}
	return out
}

// CatalogQuery returns the dimensions that are forwarded upstream. Price,
// sort and page are always applied locally.
func (s FilterState) CatalogQuery() CatalogQuery {
	return CatalogQuery{
		Text:          s.Query,
		Families:      append([]string(nil), s.Categories...),
		SubAttributes: append([]SubAttribute(nil), s.SubAttributes...),
	}
}

// CatalogQuery holds the non-paginated filters sent to the upstream catalog.
type CatalogQuery struct {
	Text          string
	Families      []string
	SubAttributes []SubAttribute
}
