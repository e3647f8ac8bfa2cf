package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/internal/domain"
	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/pkg/kafka"
)

// TopicQuoteRequested receives one event per submitted quote.
var TopicQuoteRequested = kafka.Topic("quote", "requested")

const (
	EventQuoteRequested = "quote.requested"
	SourceStorefront    = "storefront"
)

// QuoteLineData is one cart line of a quote.requested event.
type QuoteLineData struct {
	ProductID string `json:"product_id,omitempty"`
	Name      string `json:"name"`
	SKU       string `json:"sku,omitempty"`
	Qty       int    `json:"qty"`
	UnitPrice string `json:"unit_price"`
	Subtotal  string `json:"subtotal"`
}

// QuoteRequestedData is the payload of a quote.requested event. Money is
// carried as decimal strings.
type QuoteRequestedData struct {
	ID            string          `json:"id"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email"`
	Company       string          `json:"company,omitempty"`
	Items         []QuoteLineData `json:"items"`
	Total         string          `json:"total"`
	SubmittedAt   string          `json:"submitted_at"`
}

// Publisher is the subset of the Kafka producer used here.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *kafka.Event) error
}

// Producer publishes storefront domain events.
type Producer struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(publisher Publisher, logger *slog.Logger) *Producer {
	return &Producer{publisher: publisher, logger: logger}
}

// PublishQuoteRequested publishes a quote.requested event.
func (p *Producer) PublishQuoteRequested(ctx context.Context, q *domain.Quote) error {
	data := QuoteRequestedData{
		ID:            q.ID,
		CustomerName:  q.Customer.Name,
		CustomerEmail: q.Customer.Email,
		Company:       q.Customer.Company,
		Items:         make([]QuoteLineData, 0, len(q.Items)),
		Total:         q.Total.StringFixed(2),
		SubmittedAt:   q.SubmittedAt.UTC().Format(time.RFC3339),
	}
	for _, it := range q.Items {
		data.Items = append(data.Items, QuoteLineData{
			ProductID: it.ProductID,
			Name:      it.Name,
			SKU:       it.SKU,
			Qty:       it.Qty,
			UnitPrice: it.UnitPrice.StringFixed(2),
			Subtotal:  it.Subtotal().StringFixed(2),
		})
	}

	evt, err := kafka.NewEvent(ctx, EventQuoteRequested, q.ID, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("build quote.requested event: %w", err)
	}

	if err := p.publisher.Publish(ctx, TopicQuoteRequested, evt); err != nil {
		return fmt.Errorf("publish quote.requested: %w", err)
	}

	p.logger.DebugContext(ctx, "published quote.requested event",
		slog.String("quote_id", q.ID),
		slog.String("topic", TopicQuoteRequested),
	)
	return nil
}
