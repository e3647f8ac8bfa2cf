package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/internal/domain"
	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/internal/mailer"
	apperrors "github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/pkg/errors"
	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/pkg/validator"
)

// MaxQuoteItems bounds the number of cart lines in one quote request.
const MaxQuoteItems = 200

// QuotePublisher announces submitted quotes.
type QuotePublisher interface {
	PublishQuoteRequested(ctx context.Context, q *domain.Quote) error
}

// QuoteService forwards storefront quote requests to the sales inbox.
type QuoteService struct {
	sender    mailer.Sender
	publisher QuotePublisher
	to        string
	now       func() time.Time
	logger    *slog.Logger
}

// NewQuoteService creates a new quote service. publisher may be nil when no
// event broker is configured.
func NewQuoteService(sender mailer.Sender, publisher QuotePublisher, to string, logger *slog.Logger) *QuoteService {
	return &QuoteService{
		sender:    sender,
		publisher: publisher,
		to:        to,
		now:       time.Now,
		logger:    logger,
	}
}

// Submit validates a quote request, emails it to the sales inbox and
// publishes a quote.requested event.
func (s *QuoteService) Submit(ctx context.Context, req domain.QuoteRequest) (*domain.QuoteReceipt, error) {
	req = normalizeQuoteRequest(req)
	if err := validator.Validate(req); err != nil {
		return nil, err
	}
	if len(req.Items) > MaxQuoteItems {
		return nil, apperrors.InvalidInput(fmt.Sprintf("a quote must not contain more than %d items", MaxQuoteItems))
	}
	if _, neg := lo.Find(req.Items, func(it domain.QuoteItem) bool { return it.UnitPrice.IsNegative() }); neg {
		return nil, apperrors.InvalidInput("unit price must not be negative")
	}

	quote := &domain.Quote{
		ID:       uuid.NewString(),
		Customer: req.Customer,
		Items:    req.Items,
		Total: lo.Reduce(req.Items, func(sum decimal.Decimal, it domain.QuoteItem, _ int) decimal.Decimal {
			return sum.Add(it.Subtotal())
		}, decimal.Zero),
		SubmittedAt: s.now().UTC(),
	}

	msg, err := mailer.RenderQuote(s.to, quote)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("render quote email: %w", err))
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		return nil, apperrors.ServiceUnavailable("MAIL_UNAVAILABLE",
			"the quote could not be delivered, please try again", time.Minute, err)
	}

	s.logger.InfoContext(ctx, "quote request sent",
		slog.String("quote_id", quote.ID),
		slog.Int("items", len(quote.Items)),
		slog.String("total", quote.Total.StringFixed(2)),
	)

	if s.publisher != nil {
		if err := s.publisher.PublishQuoteRequested(ctx, quote); err != nil {
			s.logger.WarnContext(ctx, "failed to publish quote.requested event",
				slog.String("quote_id", quote.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	return &domain.QuoteReceipt{ID: quote.ID, Status: domain.QuoteStatusSent}, nil
}

func normalizeQuoteRequest(req domain.QuoteRequest) domain.QuoteRequest {
	c := &req.Customer
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	c.Company = strings.TrimSpace(c.Company)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Message = strings.TrimSpace(c.Message)

	req.Items = lo.Map(req.Items, func(it domain.QuoteItem, _ int) domain.QuoteItem {
		it.Name = strings.TrimSpace(it.Name)
		it.SKU = strings.TrimSpace(it.SKU)
		it.PricingNote = strings.TrimSpace(it.PricingNote)
		return it
	})
	return req
}
