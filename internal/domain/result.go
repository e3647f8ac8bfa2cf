package domain

// Facets lists the values available for filtering in the current result set.
type Facets struct {
	Colors     []string `json:"colors"`
	Materials  []string `json:"materials"`
	Sizes      []string `json:"sizes"`
	Categories []Family `json:"categories"`
}

// PriceBounds configures the price slider.
type PriceBounds struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Step float64 `json:"step"`
}

// DefaultPriceBounds is used when no item carries a price.
func DefaultPriceBounds() PriceBounds {
	return PriceBounds{Min: 0, Max: 100000, Step: 1000}
}

// Links are encoded query strings for navigating from a result page.
type Links struct {
	Self string `json:"self"`
	Prev string `json:"prev,omitempty"`
	Next string `json:"next,omitempty"`
}

// PageResult is one page of a search.
type PageResult struct {
	Items       []CatalogItem `json:"items"`
	Page        int           `json:"page"`
	PageSize    int           `json:"page_size"`
	TotalPages  int           `json:"total_pages"`
	Total       int           `json:"total"`
	Facets      Facets        `json:"facets"`
	PriceBounds PriceBounds   `json:"price_bounds"`
	Partial     bool          `json:"partial"`
	State       FilterState   `json:"state"`
	Links       Links         `json:"links"`
}

// ProductDetail is a single item plus items from the same families.
type ProductDetail struct {
	Item    CatalogItem   `json:"item"`
	Related []CatalogItem `json:"related"`
}
