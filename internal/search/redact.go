package search

import (
	"strings"

	"github.com/samber/lo"

	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/internal/domain"
)

// Redact returns copies of items with hidden families removed and hidden
// lines dropped from their descriptive texts. The input slice is not modified.
func Redact(items []domain.CatalogItem, hidden HiddenFunc) []domain.CatalogItem {
	if hidden == nil {
		return items
	}
	return lo.Map(items, func(item domain.CatalogItem, _ int) domain.CatalogItem {
		return RedactItem(item, hidden)
	})
}

// RedactItem is Redact for a single item.
func RedactItem(item domain.CatalogItem, hidden HiddenFunc) domain.CatalogItem {
	if hidden == nil {
		return item
	}
	if lo.SomeBy(item.Families, func(f domain.Family) bool { return familyHidden(f, hidden) }) {
		item.Families = lo.Reject(item.Families, func(f domain.Family, _ int) bool {
			return familyHidden(f, hidden)
		})
	}
	item.Description = redactLines(item.Description, hidden)
	item.SupplementaryInformation = redactLines(item.SupplementaryInformation, hidden)
	return item
}

func familyHidden(f domain.Family, hidden HiddenFunc) bool {
	return hidden(f.Title) || hidden(f.Description)
}

// redactLines drops every line of text that hidden matches, keeping the
// remaining lines and their order.
func redactLines(text string, hidden HiddenFunc) string {
	if text == "" {
		return text
	}
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	kept := lo.Reject(lines, func(line string, _ int) bool { return hidden(line) })
	if len(kept) == len(lines) {
		return text
	}
	return strings.Join(kept, "\n")
}
