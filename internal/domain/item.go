package domain

import (
	"encoding/json"
	"math"
)

// Family is a catalog category.
type Family struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Label returns the text the upstream catalog filters families by.
func (f Family) Label() string {
	if f.Description != "" {
		return f.Description
	}
	return f.Title
}

// Variant is a purchasable variation of an item. Provider items share the
// same shape.
type Variant struct {
	ID         string `json:"id,omitempty"`
	SKU        string `json:"sku,omitempty"`
	Stock      int    `json:"stock"`
	Color      string `json:"color,omitempty"`
	Material   string `json:"material,omitempty"`
	Size       string `json:"size,omitempty"`
	Achromatic bool   `json:"achromatic,omitempty"`
}

// Image is a product picture.
type Image struct {
	URL  string `json:"url"`
	Main bool   `json:"main"`
}

// CatalogItem is the canonical product produced once at ingestion. Nothing
// downstream of the catalog package inspects upstream field shapes.
type CatalogItem struct {
	ID                   string          `json:"id"`
	Name                 string          `json:"name"`
	Description          string          `json:"description,omitempty"`
	SKU                  string          `json:"sku,omitempty"`
	Price                *float64        `json:"price"`
	BasePrice            *float64        `json:"base_price,omitempty"`
	Families             []Family        `json:"families"`
	Variants             []Variant       `json:"variants"`
	ProviderItems        []Variant       `json:"provider_items"`
	Images               []Image         `json:"images"`
	ImageURL             string          `json:"image_url"`
	Stock                int             `json:"stock"`
	MinimumOrderQuantity int             `json:"minimum_order_quantity"`
	PriceTiers           json.RawMessage `json:"price_tiers,omitempty"`

	// Detail page fields, passed through as the catalog sends them.
	SubAttributes            json.RawMessage `json:"subattributes,omitempty"`
	PrintingTypes            json.RawMessage `json:"printing_types,omitempty"`
	Dimensions               json.RawMessage `json:"dimensions,omitempty"`
	Packaging                string          `json:"packaging,omitempty"`
	UnitsPerBox              int             `json:"units_per_box,omitempty"`
	SupplementaryInformation string          `json:"supplementary_information_text,omitempty"`
	Tax                      *float64        `json:"tax,omitempty"`
	BrandcapsProduct         bool            `json:"brandcaps_product"`
}

// ResolvedPrice returns the item's price, or +Inf when it has none.
func (i CatalogItem) ResolvedPrice() float64 {
	if i.Price == nil {
		return math.Inf(1)
	}
	return *i.Price
}

// AggregationResult is every upstream page merged in page order.
type AggregationResult struct {
	Items       []CatalogItem
	TotalCount  int
	Partial     bool
	FailedPages []int
}
