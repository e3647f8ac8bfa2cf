package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/internal/domain"
	apperrors "github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/pkg/errors"
)

func TestSuperseder_CancelsPreviousForSameKey(t *testing.T) {
	s := NewSuperseder()

	first, doneFirst := s.Begin(context.Background(), "tab-1")
	defer doneFirst()
	other, doneOther := s.Begin(context.Background(), "tab-2")
	defer doneOther()

	second, doneSecond := s.Begin(context.Background(), "tab-1")
	defer doneSecond()

	assert.ErrorIs(t, context.Cause(first), ErrSuperseded)
	assert.NoError(t, second.Err())
	assert.NoError(t, other.Err())
	assert.Equal(t, 2, s.Len())
}

func TestSuperseder_DoneOnlyRemovesOwnFlight(t *testing.T) {
	s := NewSuperseder()

	_, doneFirst := s.Begin(context.Background(), "tab-1")
	second, doneSecond := s.Begin(context.Background(), "tab-1")

	doneFirst()
	assert.Equal(t, 1, s.Len())
	assert.NoError(t, second.Err())

	doneSecond()
	assert.Equal(t, 0, s.Len())
	assert.ErrorIs(t, second.Err(), context.Canceled)
	assert.NotErrorIs(t, context.Cause(second), ErrSuperseded)
}

func TestSuperseder_EmptyKeyIsNotTracked(t *testing.T) {
	s := NewSuperseder()
	parent := context.Background()

	ctx, done := s.Begin(parent, "")
	defer done()

	assert.Equal(t, parent, ctx)
	assert.Equal(t, 0, s.Len())
}

func TestErrSuperseded_MapsToConflict(t *testing.T) {
	assert.Equal(t, http.StatusConflict, apperrors.HTTPStatus(ErrSuperseded))
}

// blockingAggregator waits for cancellation on its first call and answers
// every later call immediately.
type blockingAggregator struct {
	started chan struct{}
	calls   chan struct{}
}

func (b *blockingAggregator) AggregateAll(ctx context.Context, _ domain.CatalogQuery, _ int) (*domain.AggregationResult, error) {
	select {
	case b.calls <- struct{}{}:
		close(b.started)
		<-ctx.Done()
		return nil, ctx.Err()
	default:
		return &domain.AggregationResult{Items: []domain.CatalogItem{priced("new", 1)}, TotalCount: 1}, nil
	}
}

func TestSearchLatest_NewerRequestWins(t *testing.T) {
	agg := &blockingAggregator{started: make(chan struct{}), calls: make(chan struct{}, 1)}
	svc := newTestSearchService(agg)

	type outcome struct {
		res *domain.PageResult
		err error
	}
	firstDone := make(chan outcome, 1)
	go func() {
		res, err := svc.SearchLatest(context.Background(), "tab-1", domain.NewFilterState())
		firstDone <- outcome{res, err}
	}()

	select {
	case <-agg.started:
	case <-time.After(2 * time.Second):
		t.Fatal("first search never reached the aggregator")
	}

	res, err := svc.SearchLatest(context.Background(), "tab-1", domain.NewFilterState())
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, itemIDs(res.Items))

	select {
	case got := <-firstDone:
		assert.Nil(t, got.res)
		assert.ErrorIs(t, got.err, ErrSuperseded)
	case <-time.After(2 * time.Second):
		t.Fatal("superseded search did not return")
	}
	assert.Equal(t, 0, svc.latest.Len())
}
