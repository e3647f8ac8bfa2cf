package service

import (
	"context"
	"io"
	"log/slog"

	"github.com/stretchr/testify/mock"

	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/internal/catalog"
	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/internal/domain"
	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/internal/mailer"
)

// --- Mocks ---

type mockAggregator struct {
	mock.Mock
}

func (m *mockAggregator) AggregateAll(ctx context.Context, q domain.CatalogQuery, pageSize int) (*domain.AggregationResult, error) {
	args := m.Called(ctx, q, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AggregationResult), args.Error(1)
}

type mockItemSource struct {
	mock.Mock
}

func (m *mockItemSource) FetchItem(ctx context.Context, id string) (*domain.CatalogItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CatalogItem), args.Error(1)
}

func (m *mockItemSource) FetchPage(ctx context.Context, q domain.CatalogQuery, page, pageSize int) (*catalog.Page, error) {
	args := m.Called(ctx, q, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Page), args.Error(1)
}

type mockFamilySource struct {
	mock.Mock
}

func (m *mockFamilySource) FetchFamilies(ctx context.Context, etag string) (*catalog.Families, error) {
	args := m.Called(ctx, etag)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Families), args.Error(1)
}

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, msg mailer.Message) error {
	return m.Called(ctx, msg).Error(0)
}

type mockQuotePublisher struct {
	mock.Mock
}

func (m *mockQuotePublisher) PublishQuoteRequested(ctx context.Context, q *domain.Quote) error {
	return m.Called(ctx, q).Error(0)
}

// --- Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func f64(v float64) *float64 { return &v }

func priced(id string, price float64) domain.CatalogItem {
	return domain.CatalogItem{ID: id, Name: "Item " + id, Price: f64(price)}
}

func itemIDs(items []domain.CatalogItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}
