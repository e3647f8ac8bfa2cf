package search

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/internal/catalog"
	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/internal/domain"
	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/pkg/tracing"
)

const (
	// DefaultConcurrency bounds in-flight page fetches per aggregation.
	DefaultConcurrency = 8
	// DefaultMaxPages caps how many upstream pages one aggregation reads.
	DefaultMaxPages = 250
	// DefaultHeadroom is kept free before the caller's deadline to filter,
	// sort and write the response.
	DefaultHeadroom = 2 * time.Second
)

var (
	partialAggregations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "search_partial_aggregations_total",
		Help: "Aggregations that returned without every upstream page",
	})

	failedPages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "search_failed_pages_total",
		Help: "Upstream pages after the first that failed and were treated as empty",
	})

	exhaustedBudgets = promauto.NewCounter(prometheus.CounterOpts{
		Name: "search_fanout_budget_exhausted_total",
		Help: "Aggregations whose later pages ran out of time and were dropped",
	})

	aggregatedPages = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "search_aggregated_pages",
		Help:    "Number of upstream pages read per aggregation",
		Buckets: prometheus.ExponentialBuckets(1, 2, 9),
	})
)

// PageFetcher fetches a single upstream page.
type PageFetcher interface {
	FetchPage(ctx context.Context, q domain.CatalogQuery, page, pageSize int) (*catalog.Page, error)
}

// Aggregator merges every upstream page of a query into one item set.
type Aggregator struct {
	pages       PageFetcher
	concurrency int
	maxPages    int
	budget      time.Duration
	headroom    time.Duration
	logger      *slog.Logger
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithConcurrency sets how many pages may be fetched at once.
func WithConcurrency(n int) AggregatorOption {
	return func(a *Aggregator) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// WithMaxPages caps the number of pages read.
func WithMaxPages(n int) AggregatorOption {
	return func(a *Aggregator) {
		if n > 0 {
			a.maxPages = n
		}
	}
}

// WithFanoutBudget bounds how long pages 2..N may take once page 1 is in.
// Zero leaves them bounded only by the caller's deadline minus headroom.
func WithFanoutBudget(d time.Duration) AggregatorOption {
	return func(a *Aggregator) {
		if d > 0 {
			a.budget = d
		}
	}
}

// WithHeadroom sets how much of the caller's deadline is left unused by
// upstream fetches.
func WithHeadroom(d time.Duration) AggregatorOption {
	return func(a *Aggregator) {
		if d >= 0 {
			a.headroom = d
		}
	}
}

// NewAggregator creates an aggregator on top of a page fetcher.
func NewAggregator(pages PageFetcher, logger *slog.Logger, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		pages:       pages,
		concurrency: DefaultConcurrency,
		maxPages:    DefaultMaxPages,
		headroom:    DefaultHeadroom,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AggregateAll fetches page 1, then pages 2..N with bounded concurrency,
// and concatenates them in page order.
//
// A failure on page 1 fails the aggregation. Failures on later pages are
// treated as empty pages and reported through Partial and FailedPages.
// Upstream work stops at ctx's deadline minus the headroom, and pages 2..N
// also stop when the fan-out budget runs out; pages still pending then
// count as failed. Cancelling ctx aborts in-flight fetches and returns the
// context error.
func (a *Aggregator) AggregateAll(ctx context.Context, q domain.CatalogQuery, pageSize int) (*domain.AggregationResult, error) {
	ctx, span := tracing.Tracer().Start(ctx, "search.AggregateAll")
	defer span.End()

	workCtx, cancelWork := a.upstreamContext(ctx)
	defer cancelWork()

	first, err := a.pages.FetchPage(workCtx, q, 1, pageSize)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, fmt.Errorf("fetch first page: %w", err)
	}

	totalPages := max(1, first.TotalPages)
	truncated := false
	if totalPages > a.maxPages {
		a.logger.WarnContext(ctx, "upstream page count exceeds limit, truncating",
			slog.Int("total_pages", totalPages),
			slog.Int("max_pages", a.maxPages),
		)
		totalPages = a.maxPages
		truncated = true
	}
	span.SetAttributes(attribute.Int("search.total_pages", totalPages))
	aggregatedPages.Observe(float64(totalPages))

	fanCtx := workCtx
	if a.budget > 0 {
		var cancelFan context.CancelFunc
		fanCtx, cancelFan = context.WithTimeout(workCtx, a.budget)
		defer cancelFan()
	}

	// rest[i] holds page i+2. Each goroutine owns exactly one slot; a slot
	// that never completes counts as a failed page.
	rest := make([][]domain.CatalogItem, totalPages-1)
	fetched := make([]bool, totalPages-1)

	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for p := 2; p <= totalPages; p++ {
		if fanCtx.Err() != nil {
			break
		}
		idx := p - 2
		g.Go(func() error {
			if fanCtx.Err() != nil {
				return nil
			}
			page, err := a.pages.FetchPage(fanCtx, q, p, pageSize)
			if err != nil {
				if fanCtx.Err() == nil {
					a.logger.WarnContext(ctx, "catalog page failed, treating as empty",
						slog.Int("page", p),
						slog.String("error", err.Error()),
					)
				}
				return nil
			}
			rest[idx] = page.Items
			fetched[idx] = true
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	if fanCtx.Err() != nil && slices.Contains(fetched, false) {
		exhaustedBudgets.Inc()
		a.logger.WarnContext(ctx, "fan-out budget exhausted, returning fetched pages",
			slog.Int("total_pages", totalPages),
			slog.Duration("budget", a.budget),
			slog.Duration("headroom", a.headroom),
		)
	}

	size := len(first.Items)
	for _, items := range rest {
		size += len(items)
	}
	result := &domain.AggregationResult{
		Items:   make([]domain.CatalogItem, 0, size),
		Partial: truncated,
	}
	result.Items = append(result.Items, first.Items...)
	for i, items := range rest {
		if !fetched[i] {
			result.FailedPages = append(result.FailedPages, i+2)
			continue
		}
		result.Items = append(result.Items, items...)
	}
	result.TotalCount = len(result.Items)

	if len(result.FailedPages) > 0 {
		result.Partial = true
		failedPages.Add(float64(len(result.FailedPages)))
		a.logger.WarnContext(ctx, "aggregation is partial",
			slog.Any("failed_pages", result.FailedPages),
			slog.Int("total_pages", totalPages),
			slog.Int("items", result.TotalCount),
		)
	}
	if result.Partial {
		partialAggregations.Inc()
	}
	span.SetAttributes(
		attribute.Int("search.items", result.TotalCount),
		attribute.Bool("search.partial", result.Partial),
	)
	return result, nil
}

// upstreamContext stops upstream fetches headroom before ctx's deadline so
// the caller can still answer.
func (a *Aggregator) upstreamContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if deadline, ok := ctx.Deadline(); ok {
		return context.WithDeadline(ctx, deadline.Add(-a.headroom))
	}
	return context.WithCancel(ctx)
}
