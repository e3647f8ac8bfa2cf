package http

import (
	"context"

	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/internal/domain"
)

// Searcher runs storefront searches.
type Searcher interface {
	SearchLatest(ctx context.Context, session string, state domain.FilterState) (*domain.PageResult, error)
}

// ProductGetter loads product detail pages.
type ProductGetter interface {
	Get(ctx context.Context, id string) (*domain.ProductDetail, error)
}

// FamilyLister lists catalog categories.
type FamilyLister interface {
	List(ctx context.Context) ([]domain.Family, string, error)
}

// QuoteSubmitter forwards quote requests.
type QuoteSubmitter interface {
	Submit(ctx context.Context, req domain.QuoteRequest) (*domain.QuoteReceipt, error)
}
