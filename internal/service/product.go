package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/samber/lo"

	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/internal/catalog"
	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/internal/domain"
	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/internal/search"
	apperrors "github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/pkg/errors"
)

// RelatedLimit is the maximum number of related products returned with a
// product.
const RelatedLimit = 12

// ItemSource reads single items and pages from the catalog.
type ItemSource interface {
	FetchItem(ctx context.Context, id string) (*domain.CatalogItem, error)
	FetchPage(ctx context.Context, q domain.CatalogQuery, page, pageSize int) (*catalog.Page, error)
}

// ProductService serves product detail pages.
type ProductService struct {
	items  ItemSource
	hidden search.HiddenFunc
	logger *slog.Logger
}

// NewProductService creates a new product service. Families and description
// lines matched by hidden are removed from every returned item.
func NewProductService(items ItemSource, hidden search.HiddenFunc, logger *slog.Logger) *ProductService {
	return &ProductService{items: items, hidden: hidden, logger: logger}
}

// Get returns the item with the given id and up to RelatedLimit items that
// share one of its families. Related products are best effort.
func (s *ProductService) Get(ctx context.Context, id string) (*domain.ProductDetail, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}

	item, err := s.items.FetchItem(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrNotFound):
			return nil, apperrors.NotFound("product", id)
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			return nil, apperrors.ServiceUnavailable("CATALOG_UNAVAILABLE",
				"the product catalog is temporarily unavailable", catalogRetryAfter, err)
		}
	}

	redacted := search.RedactItem(*item, s.hidden)
	return &domain.ProductDetail{Item: redacted, Related: s.related(ctx, &redacted)}, nil
}

func (s *ProductService) related(ctx context.Context, item *domain.CatalogItem) []domain.CatalogItem {
	labels := lo.Uniq(lo.FilterMap(item.Families, func(f domain.Family, _ int) (string, bool) {
		label := f.Label()
		return label, label != ""
	}))
	if len(labels) == 0 {
		return []domain.CatalogItem{}
	}

	page, err := s.items.FetchPage(ctx, domain.CatalogQuery{Families: labels}, 1, RelatedLimit+1)
	if err != nil {
		s.logger.WarnContext(ctx, "related products unavailable",
			slog.String("product_id", item.ID),
			slog.String("error", err.Error()),
		)
		return []domain.CatalogItem{}
	}

	related := lo.Filter(page.Items, func(it domain.CatalogItem, _ int) bool {
		return it.ID != item.ID
	})
	related = search.Redact(related, s.hidden)
	if len(related) > RelatedLimit {
		related = related[:RelatedLimit]
	}
	return related
}
