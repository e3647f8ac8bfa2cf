package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/internal/domain"
	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/pkg/httputil"
	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/pkg/validator"
)

// QuoteHandler accepts quote requests from the storefront cart.
type QuoteHandler struct {
	quotes QuoteSubmitter
	logger *slog.Logger
}

// NewQuoteHandler creates a new quote HTTP handler.
func NewQuoteHandler(quotes QuoteSubmitter, logger *slog.Logger) *QuoteHandler {
	return &QuoteHandler{quotes: quotes, logger: logger}
}

// --- Request DTOs ---

// QuoteRequestBody is the JSON body of POST /api/quotes. The storefront
// cart posts its lines under "cart"; "items" is accepted as well.
type QuoteRequestBody struct {
	// Customer is validated on the domain request.
	Customer domain.Customer `json:"customer" validate:"-"`
	Items    []QuoteLineBody `json:"items" validate:"max=200,dive"`
	Cart     []QuoteLineBody `json:"cart" validate:"max=200,dive"`
}

// QuoteLineBody is one cart line as the storefront stores it.
type QuoteLineBody struct {
	ID           string              `json:"_id"`
	ProductID    string              `json:"product_id"`
	Name         string              `json:"name"`
	Title        string              `json:"title"`
	SKU          string              `json:"sku"`
	Variant      *QuoteVariantBody   `json:"variant"`
	Qty          *int                `json:"qty" validate:"omitempty,gte=0"`
	Price        decimal.NullDecimal `json:"price"`
	UnitPrice    decimal.NullDecimal `json:"unit_price"`
	BelowMinimum bool                `json:"belowMinimum"`
	PricingNote  string              `json:"pricingNote"`
}

// QuoteVariantBody is the variant a cart line was picked from.
type QuoteVariantBody struct {
	SKU string `json:"sku"`
}

func (b QuoteRequestBody) toDomain() domain.QuoteRequest {
	lines := b.Items
	if len(lines) == 0 {
		lines = b.Cart
	}
	return domain.QuoteRequest{
		Customer: b.Customer,
		Items: lo.Map(lines, func(l QuoteLineBody, _ int) domain.QuoteItem {
			return l.toDomain()
		}),
	}
}

func (l QuoteLineBody) toDomain() domain.QuoteItem {
	item := domain.QuoteItem{
		ProductID:    lo.CoalesceOrEmpty(l.ProductID, l.ID),
		Name:         lo.CoalesceOrEmpty(strings.TrimSpace(l.Name), strings.TrimSpace(l.Title), "Producto"),
		SKU:          l.SKU,
		Qty:          1,
		UnitPrice:    decimal.Zero,
		BelowMinimum: l.BelowMinimum,
		PricingNote:  l.PricingNote,
	}
	if l.Variant != nil && l.Variant.SKU != "" {
		item.SKU = l.Variant.SKU
	}
	if l.Qty != nil {
		item.Qty = *l.Qty
	}
	switch {
	case l.Price.Valid:
		item.UnitPrice = l.Price.Decimal
	case l.UnitPrice.Valid:
		item.UnitPrice = l.UnitPrice.Decimal
	}
	return item
}

// --- Handlers ---

// Usage handles GET /api/quotes
func (h *QuoteHandler) Usage(w http.ResponseWriter, r *http.Request) {
	httputil.WriteData(w, http.StatusOK, map[string]string{
		"hint": "Usá POST con {customer, cart}",
	})
}

// Submit handles POST /api/quotes
func (h *QuoteHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var body QuoteRequestBody
	if err := validator.DecodeAndValidate(r, &body); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	receipt, err := h.quotes.Submit(r.Context(), body.toDomain())
	if err != nil {
		var valErr *validator.ValidationError
		if errors.As(err, &valErr) {
			httputil.WriteValidationError(w, err)
			return
		}
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, receipt)
}
