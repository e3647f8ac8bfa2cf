package mailer

import (
	"bytes"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/shopspring/decimal"

	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/internal/domain"
)

var funcs = map[string]any{
	"money": FormatMoney,
	"inc":   func(i int) int { return i + 1 },
	"dash": func(s string) string {
		if strings.TrimSpace(s) == "" {
			return "-"
		}
		return s
	},
	"notes": lineNotes,
}

var (
	textTemplates = texttemplate.Must(texttemplate.New("").Funcs(funcs).ParseFS(FS, "templates/*.tmpl"))
	htmlTemplates = htmltemplate.Must(htmltemplate.New("").Funcs(funcs).ParseFS(FS, "templates/*.tmpl"))
)

// quoteView exposes per-line subtotals to the templates.
type quoteView struct {
	Customer domain.Customer
	Items    []quoteLine
	Total    decimal.Decimal
}

type quoteLine struct {
	domain.QuoteItem
	Subtotal decimal.Decimal
}

// RenderQuote renders the sales-team notification for a quote. Customer
// supplied text is escaped in the HTML body.
func RenderQuote(to string, q *domain.Quote) (Message, error) {
	view := quoteView{Customer: q.Customer, Total: q.Total}
	for _, it := range q.Items {
		view.Items = append(view.Items, quoteLine{QuoteItem: it, Subtotal: it.Subtotal()})
	}

	var subject, text, html bytes.Buffer
	if err := textTemplates.ExecuteTemplate(&subject, "subject", view); err != nil {
		return Message{}, err
	}
	if err := textTemplates.ExecuteTemplate(&text, "plainBody", view); err != nil {
		return Message{}, err
	}
	if err := htmlTemplates.ExecuteTemplate(&html, "htmlBody", view); err != nil {
		return Message{}, err
	}

	return Message{
		To:      to,
		ReplyTo: q.Customer.Email,
		Subject: strings.Join(strings.Fields(subject.String()), " "),
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}

func lineNotes(it quoteLine) string {
	var notes []string
	if it.BelowMinimum {
		notes = append(notes, "Cantidad menor al mínimo")
	}
	if n := strings.TrimSpace(it.PricingNote); n != "" {
		notes = append(notes, n)
	}
	return strings.Join(notes, " · ")
}

// FormatMoney renders an amount the way Argentine storefronts print prices,
// e.g. "$ 1.234,56".
func FormatMoney(d decimal.Decimal) string {
	fixed := d.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	b.WriteString("$ ")
	if d.IsNegative() && !d.Round(2).IsZero() {
		b.WriteByte('-')
	}
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	b.WriteByte(',')
	b.WriteString(frac)
	return b.String()
}
