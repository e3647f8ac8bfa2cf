package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/internal/domain"
	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/internal/search"
	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/internal/urlstate"
	apperrors "github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/pkg/errors"
	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/pkg/pagination"
	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/pkg/tracing"
)

// catalogRetryAfter is advertised to clients when the upstream catalog is down.
const catalogRetryAfter = 10 * time.Second

// Aggregator merges all upstream pages for a query.
type Aggregator interface {
	AggregateAll(ctx context.Context, q domain.CatalogQuery, pageSize int) (*domain.AggregationResult, error)
}

// SearchService turns a filter state into one page of results.
type SearchService struct {
	agg      Aggregator
	codec    *urlstate.Codec
	latest   *Superseder
	pageSize int
	logger   *slog.Logger
}

// NewSearchService creates a new search service.
func NewSearchService(agg Aggregator, codec *urlstate.Codec, pageSize int, logger *slog.Logger) *SearchService {
	if pageSize < 1 {
		pageSize = pagination.DefaultPageSize
	}
	return &SearchService{
		agg:      agg,
		codec:    codec,
		latest:   NewSuperseder(),
		pageSize: pageSize,
		logger:   logger,
	}
}

// Search aggregates the catalog for state, applies price filtering and
// ordering locally and returns the requested page with facets computed over
// the whole merged set.
func (s *SearchService) Search(ctx context.Context, state domain.FilterState) (*domain.PageResult, error) {
	ctx, span := tracing.Tracer().Start(ctx, "service.Search")
	defer span.End()

	agg, err := s.agg.AggregateAll(ctx, state.CatalogQuery(), s.pageSize)
	if err != nil {
		if ctx.Err() != nil {
			return nil, context.Cause(ctx)
		}
		tracing.RecordError(span, err)
		return nil, apperrors.ServiceUnavailable("CATALOG_UNAVAILABLE",
			"the product catalog is temporarily unavailable", catalogRetryAfter, err)
	}

	items := search.Redact(agg.Items, s.codec.Hidden)
	filtered := search.ApplyFilters(items, state.PriceMin, state.PriceMax)
	sorted := search.ApplySort(filtered, state.Sort)
	window := pagination.Paginate(sorted, state.Page, s.pageSize)

	current := state.Clone()
	current.Page = window.Page

	links := domain.Links{Self: s.codec.Query(current)}
	if window.HasPrev() {
		links.Prev = s.codec.Query(urlstate.WithPage(current, window.Page-1))
	}
	if window.HasNext() {
		links.Next = s.codec.Query(urlstate.WithPage(current, window.Page+1))
	}

	span.SetAttributes(
		attribute.Int("search.aggregated", len(agg.Items)),
		attribute.Int("search.matched", window.Total),
		attribute.Bool("search.partial", agg.Partial),
	)

	return &domain.PageResult{
		Items:       window.Items,
		Page:        window.Page,
		PageSize:    window.PageSize,
		TotalPages:  window.TotalPages,
		Total:       window.Total,
		Facets:      search.DeriveFacets(items, s.codec.Hidden),
		PriceBounds: search.ComputePriceBounds(items),
		Partial:     agg.Partial,
		State:       current,
		Links:       links,
	}, nil
}

// SearchLatest runs Search as the newest request of session. A request that
// is overtaken by a later one for the same session returns ErrSuperseded and
// its results are discarded. An empty session disables superseding.
func (s *SearchService) SearchLatest(ctx context.Context, session string, state domain.FilterState) (*domain.PageResult, error) {
	ctx, done := s.latest.Begin(ctx, session)
	defer done()

	res, err := s.Search(ctx, state)
	if errors.Is(context.Cause(ctx), ErrSuperseded) {
		s.logger.DebugContext(ctx, "search superseded", slog.String("session", session))
		return nil, ErrSuperseded
	}
	return res, err
}
