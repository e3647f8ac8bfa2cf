package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote statuses.
const (
	QuoteStatusSent = "sent"
)

// Customer identifies who asked for the quote.
type Customer struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"required,email"`
	Company string `json:"company,omitempty" validate:"max=200"`
	Phone   string `json:"phone,omitempty" validate:"max=50"`
	Message string `json:"message,omitempty" validate:"max=4000"`
}

// QuoteItem is one cart line.
type QuoteItem struct {
	ProductID    string          `json:"product_id,omitempty"`
	Name         string          `json:"name" validate:"required"`
	SKU          string          `json:"sku,omitempty"`
	Qty          int             `json:"qty" validate:"gte=1"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	BelowMinimum bool            `json:"below_minimum,omitempty"`
	PricingNote  string          `json:"pricing_note,omitempty" validate:"max=500"`
}

// Subtotal is UnitPrice times Qty.
func (i QuoteItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Qty)))
}

// QuoteRequest is the payload of a quote submission.
type QuoteRequest struct {
	Customer Customer    `json:"customer" validate:"required"`
	Items    []QuoteItem `json:"items" validate:"required,min=1,dive"`
}

// Quote is a validated request with computed totals.
type Quote struct {
	ID          string
	Customer    Customer
	Items       []QuoteItem
	Total       decimal.Decimal
	SubmittedAt time.Time
}

// QuoteReceipt is returned to the storefront after a quote is sent.
type QuoteReceipt struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}
