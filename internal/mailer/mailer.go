package mailer

import (
	"context"
	"embed"
)

const (
	FromName             = "Brandcaps Cotizaciones"
	QuoteRequestTemplate = "quote_request.tmpl"

	maxRetries = 3
)

//go:embed "templates"
var FS embed.FS

// Message is a rendered email ready to be delivered.
type Message struct {
	To      string
	ReplyTo string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
