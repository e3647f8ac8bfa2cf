package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/internal/cache"
	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/internal/catalog"
	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/internal/domain"
	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/internal/search"
	apperrors "github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/pkg/errors"
)

const familiesCacheKey = "families"

// FamilySource lists catalog families with conditional revalidation.
type FamilySource interface {
	FetchFamilies(ctx context.Context, etag string) (*catalog.Families, error)
}

// FamilyService serves the category list from a revalidating cache.
type FamilyService struct {
	source FamilySource
	store  cache.Store
	hidden search.HiddenFunc
	now    func() time.Time
	logger *slog.Logger
}

// NewFamilyService creates a new family service. Families matched by hidden
// are never returned.
func NewFamilyService(source FamilySource, store cache.Store, hidden search.HiddenFunc, logger *slog.Logger) *FamilyService {
	return &FamilyService{
		source: source,
		store:  store,
		hidden: hidden,
		now:    time.Now,
		logger: logger,
	}
}

// List returns the visible families sorted by title together with an entity
// tag for the returned list. The upstream is always revalidated against the
// cached token; when it fails a cached list is served stale.
func (s *FamilyService) List(ctx context.Context) ([]domain.Family, string, error) {
	entry, found, err := s.store.Get(ctx, familiesCacheKey)
	if err != nil {
		s.logger.WarnContext(ctx, "families cache read failed", slog.String("error", err.Error()))
		found = false
	}

	token := ""
	if found {
		token = entry.Token
	}

	res, err := s.source.FetchFamilies(ctx, token)
	switch {
	case err != nil && found:
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		s.logger.WarnContext(ctx, "families upstream failed, serving stale copy",
			slog.String("error", err.Error()),
			slog.Time("stored_at", entry.StoredAt),
		)
		return s.decode(entry)
	case err != nil:
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		return nil, "", apperrors.ServiceUnavailable("CATALOG_UNAVAILABLE",
			"the category list is temporarily unavailable", catalogRetryAfter, err)
	case res.NotModified && found:
		return s.decode(entry)
	case res.NotModified:
		return nil, "", apperrors.Internal(fmt.Errorf("families: upstream answered 304 to an unconditional request"))
	}

	families := lo.Filter(search.SortFamilies(search.UniqueFamilies(res.Families)), func(f domain.Family, _ int) bool {
		return s.hidden == nil || !(s.hidden(f.Title) || s.hidden(f.Description))
	})

	value, err := json.Marshal(families)
	if err != nil {
		return nil, "", apperrors.Internal(fmt.Errorf("encode families: %w", err))
	}
	if err := s.store.Put(ctx, familiesCacheKey, cache.Entry{Value: value, Token: res.ETag, StoredAt: s.now()}); err != nil {
		s.logger.WarnContext(ctx, "families cache write failed", slog.String("error", err.Error()))
	}

	return families, contentETag(value), nil
}

func (s *FamilyService) decode(entry cache.Entry) ([]domain.Family, string, error) {
	var families []domain.Family
	if err := json.Unmarshal(entry.Value, &families); err != nil {
		return nil, "", apperrors.Internal(fmt.Errorf("decode cached families: %w", err))
	}
	if families == nil {
		families = []domain.Family{}
	}
	return families, contentETag(entry.Value), nil
}

// contentETag is a strong entity tag derived from the encoded list.
func contentETag(body []byte) string {
	sum := sha256.Sum256(body)
	return `"` + hex.EncodeToString(sum[:8]) + `"`
}
