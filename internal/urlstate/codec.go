package urlstate

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/internal/domain"
)

// Query string keys.
const (
	KeyQuery     = "q"
	KeyFamily    = "family"
	KeySub       = "sub"
	KeyPriceFrom = "priceFrom"
	KeyPriceTo   = "priceTo"
	KeySort      = "sort"
	KeyPage      = "page"
)

// Codec maps filter state to and from query strings.
type Codec struct {
	hidden *Denylist
}

// NewCodec creates a codec that drops categories and sub-attribute values
// matched by hidden. A nil denylist hides nothing.
func NewCodec(hidden *Denylist) *Codec {
	return &Codec{hidden: hidden}
}

// Hidden reports whether a label is denylisted.
func (c *Codec) Hidden(label string) bool {
	return c.hidden.Hidden(label)
}

// Decode builds a filter state from query values. It never fails: unknown
// or invalid values fall back to their defaults.
func (c *Codec) Decode(v url.Values) domain.FilterState {
	s := domain.NewFilterState()
	s.Query = v.Get(KeyQuery)

	for _, f := range v[KeyFamily] {
		if strings.TrimSpace(f) == "" || c.Hidden(f) {
			continue
		}
		s.Categories = append(s.Categories, f)
	}

	for _, raw := range v[KeySub] {
		attr, ok := domain.ParseSubAttribute(raw)
		if !ok || c.Hidden(attr.Value) {
			continue
		}
		s.SubAttributes = append(s.SubAttributes, attr)
	}

	s.PriceMin = parsePrice(v.Get(KeyPriceFrom))
	s.PriceMax = parsePrice(v.Get(KeyPriceTo))
	s.Sort = domain.ParseSortOrder(v.Get(KeySort))
	s.Page = parsePage(v.Get(KeyPage))
	return s
}

// DecodeQuery parses a raw query string. Malformed pairs are skipped.
func (c *Codec) DecodeQuery(raw string) domain.FilterState {
	v, _ := url.ParseQuery(strings.TrimPrefix(raw, "?"))
	return c.Decode(v)
}

// Encode renders s as query values. Unbounded prices, an empty query and
// page 1 are omitted; sort is always present.
func (c *Codec) Encode(s domain.FilterState) url.Values {
	v := url.Values{}
	if s.Query != "" {
		v.Set(KeyQuery, s.Query)
	}
	for _, f := range s.Categories {
		v.Add(KeyFamily, f)
	}
	for _, a := range s.SubAttributes {
		v.Add(KeySub, a.String())
	}
	if s.PriceMin != nil {
		v.Set(KeyPriceFrom, formatPrice(*s.PriceMin))
	}
	if s.PriceMax != nil {
		v.Set(KeyPriceTo, formatPrice(*s.PriceMax))
	}
	v.Set(KeySort, string(domain.ParseSortOrder(string(s.Sort))))
	if s.Page > 1 {
		v.Set(KeyPage, strconv.Itoa(s.Page))
	}
	return v
}

// Query renders s as an encoded query string without the leading "?".
func (c *Codec) Query(s domain.FilterState) string {
	return c.Encode(s).Encode()
}

func parsePrice(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parsePage(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 1
	}
	return n
}
