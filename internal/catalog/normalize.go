package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"

	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/internal/domain"
)

var errItemsNotList = errors.New("items is not a list")

type rawPage struct {
	Items      *looseList[rawItem] `json:"items"`
	Products   looseList[rawItem]  `json:"products"`
	Total      looseNumber         `json:"total"`
	TotalPages looseNumber         `json:"totalPages"`
}

// UnmarshalJSON rejects bodies whose item list is present but not a list,
// which is the only shape problem that makes a page unusable.
func (p *rawPage) UnmarshalJSON(data []byte) error {
	type plain rawPage
	var shape struct {
		Items json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(data, &shape); err != nil {
		return err
	}
	if items := bytes.TrimSpace(shape.Items); len(items) > 0 && items[0] != '[' && !bytes.Equal(items, []byte("null")) {
		return errItemsNotList
	}
	return json.Unmarshal(data, (*plain)(p))
}

func (p *rawPage) items() []rawItem {
	if p.Items != nil {
		return *p.Items
	}
	return p.Products
}

type rawFamily struct {
	ID          looseString `json:"id"`
	MongoID     looseString `json:"_id"`
	Value       looseString `json:"value"`
	Title       looseString `json:"title"`
	Description looseString `json:"description"`
	Name        looseString `json:"name"`
}

// UnmarshalJSON also accepts a bare string, used as both id and title.
func (f *rawFamily) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s looseString
		_ = s.UnmarshalJSON(data)
		*f = rawFamily{ID: s, Title: s}
		return nil
	}
	type plain rawFamily
	return json.Unmarshal(data, (*plain)(f))
}

type rawVariant struct {
	ID         looseString `json:"id"`
	MongoID    looseString `json:"_id"`
	SKU        looseString `json:"sku"`
	Stock      looseNumber `json:"stock"`
	Color      looseString `json:"color"`
	Material   looseString `json:"material"`
	Size       looseString `json:"size"`
	Achromatic looseBool   `json:"achromatic"`
}

type rawImage struct {
	URL            looseString `json:"url"`
	ImageURL       looseString `json:"image_url"`
	Src            looseString `json:"src"`
	Main           looseBool   `json:"main"`
	MainIntegrator looseBool   `json:"main_integrator"`
}

// UnmarshalJSON also accepts a bare URL string.
func (i *rawImage) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s looseString
		_ = s.UnmarshalJSON(data)
		*i = rawImage{URL: s}
		return nil
	}
	type plain rawImage
	return json.Unmarshal(data, (*plain)(i))
}

func (i rawImage) url() string {
	return firstNonEmpty(i.URL, i.ImageURL, i.Src)
}

type rawItem struct {
	ID                   looseString           `json:"id"`
	MongoID              looseString           `json:"_id"`
	SKU                  looseString           `json:"sku"`
	Name                 looseString           `json:"name"`
	Title                looseString           `json:"title"`
	Description          looseString           `json:"description"`
	SalePrice            looseNumber           `json:"salePrice"`
	Price                looseNumber           `json:"price"`
	BasePrice            looseNumber           `json:"basePrice"`
	Families             looseList[rawFamily]  `json:"families"`
	Variants             looseList[rawVariant] `json:"variants"`
	Products             looseList[rawVariant] `json:"products"`
	Images               looseList[rawImage]   `json:"images"`
	Image                looseString           `json:"image"`
	MinimumOrderQuantity looseNumber           `json:"minimum_order_quantity"`
	PriceTiers           json.RawMessage       `json:"priceTiers"`

	SubAttributes            json.RawMessage `json:"subattributes"`
	PrintingTypes            json.RawMessage `json:"printing_types"`
	Dimensions               json.RawMessage `json:"dimensions"`
	Packaging                looseString     `json:"packaging"`
	UnitsPerBox              looseNumber     `json:"units_per_box"`
	SupplementaryInformation looseString     `json:"supplementary_information_text"`
	Tax                      looseNumber     `json:"tax"`
	BrandcapsProduct         looseBool       `json:"brandcapsProduct"`
}

// normalizeItem converts one upstream record into the canonical item.
func normalizeItem(r rawItem) domain.CatalogItem {
	item := domain.CatalogItem{
		ID:                   firstNonEmpty(r.ID, r.MongoID, r.SKU),
		Name:                 firstNonEmpty(r.Name, r.Title, r.SKU),
		Description:          string(r.Description),
		SKU:                  string(r.SKU),
		Price:                firstNumber(r.SalePrice, r.Price, r.BasePrice),
		BasePrice:            r.BasePrice.ptr(),
		Families:             normalizeFamilies(r.Families),
		Variants:             normalizeVariants(r.Variants),
		ProviderItems:        normalizeVariants(r.Products),
		MinimumOrderQuantity: max(1, r.MinimumOrderQuantity.intOr(1)),
		PriceTiers:           rawList(r.PriceTiers),

		SubAttributes:            rawList(r.SubAttributes),
		PrintingTypes:            rawList(r.PrintingTypes),
		Dimensions:               rawList(r.Dimensions),
		Packaging:                string(r.Packaging),
		UnitsPerBox:              max(0, r.UnitsPerBox.intOr(0)),
		SupplementaryInformation: string(r.SupplementaryInformation),
		Tax:                      r.Tax.ptr(),
		BrandcapsProduct:         bool(r.BrandcapsProduct),
	}

	item.Images, item.ImageURL = normalizeImages(r.Images)
	if item.ImageURL == "" {
		item.ImageURL = string(r.Image)
	}
	for _, p := range item.ProviderItems {
		item.Stock += p.Stock
	}
	return item
}

// rawList keeps a copy of v when it is a JSON array and drops anything else.
func rawList(v json.RawMessage) json.RawMessage {
	if v = bytes.TrimSpace(v); len(v) == 0 || v[0] != '[' {
		return nil
	}
	return append(json.RawMessage(nil), v...)
}

func normalizeItems(raws []rawItem) []domain.CatalogItem {
	items := make([]domain.CatalogItem, 0, len(raws))
	for _, r := range raws {
		items = append(items, normalizeItem(r))
	}
	return items
}

func normalizeFamily(f rawFamily) domain.Family {
	id := firstNonEmpty(f.ID, f.MongoID, f.Value, f.Description, f.Title)
	title := firstNonEmpty(f.Title, f.Description, f.Name)
	if title == "" {
		title = "Familia " + id
	}
	return domain.Family{ID: id, Title: title, Description: string(f.Description)}
}

func normalizeFamilies(raws []rawFamily) []domain.Family {
	out := make([]domain.Family, 0, len(raws))
	for _, f := range raws {
		out = append(out, normalizeFamily(f))
	}
	return out
}

func normalizeVariants(raws []rawVariant) []domain.Variant {
	out := make([]domain.Variant, 0, len(raws))
	for _, v := range raws {
		out = append(out, domain.Variant{
			ID:         firstNonEmpty(v.ID, v.MongoID, v.SKU),
			SKU:        string(v.SKU),
			Stock:      v.Stock.intOr(0),
			Color:      string(v.Color),
			Material:   string(v.Material),
			Size:       string(v.Size),
			Achromatic: bool(v.Achromatic),
		})
	}
	return out
}

// normalizeImages keeps every image with a URL and picks the main one:
// the integrator's main image, then the main image, then the first.
func normalizeImages(raws []rawImage) ([]domain.Image, string) {
	images := make([]domain.Image, 0, len(raws))
	mainIdx, integratorIdx := -1, -1
	for _, r := range raws {
		u := r.url()
		if u == "" {
			continue
		}
		if r.MainIntegrator && integratorIdx < 0 {
			integratorIdx = len(images)
		}
		if r.Main && mainIdx < 0 {
			mainIdx = len(images)
		}
		images = append(images, domain.Image{URL: u, Main: bool(r.Main)})
	}
	switch {
	case len(images) == 0:
		return images, ""
	case integratorIdx >= 0:
		return images, images[integratorIdx].URL
	case mainIdx >= 0:
		return images, images[mainIdx].URL
	default:
		return images, images[0].URL
	}
}

// pageCount derives the number of upstream pages: totalPages when present,
// else ceil(total/pageSize), else 1.
func pageCount(p rawPage, pageSize int) int {
	if p.TotalPages.valid && p.TotalPages.value >= 1 {
		return p.TotalPages.intOr(1)
	}
	if p.Total.valid && p.Total.value > 0 && pageSize > 0 {
		pages := looseNumber{value: math.Ceil(p.Total.value / float64(pageSize)), valid: true}
		return max(1, pages.intOr(1))
	}
	return 1
}
