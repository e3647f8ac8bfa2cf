package urlstate

import (
	"strings"

	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/pkg/slug"
)

// DefaultHiddenCategories is the denylist used when none is configured.
var DefaultHiddenCategories = []string{"logo 24", "logo24", "logo-24hs", "logo-24"}

type hiddenTerm struct {
	folded string
	slug   string
}

// Denylist hides categories that must never be selectable or shown. A label
// is hidden when its folded form contains a term, or when its slug equals a
// term's slug or starts with "<term-slug>-".
type Denylist struct {
	terms []hiddenTerm
}

// NewDenylist builds a denylist from the given terms. Blank terms are ignored.
func NewDenylist(terms ...string) *Denylist {
	d := &Denylist{}
	for _, t := range terms {
		folded := slug.Fold(t)
		if folded == "" {
			continue
		}
		d.terms = append(d.terms, hiddenTerm{folded: folded, slug: slug.Generate(t)})
	}
	return d
}

// Hidden reports whether label matches any term. A nil denylist hides nothing.
func (d *Denylist) Hidden(label string) bool {
	if d == nil || len(d.terms) == 0 {
		return false
	}
	folded := slug.Fold(label)
	if folded == "" {
		return false
	}
	s := slug.Generate(label)
	for _, t := range d.terms {
		if strings.Contains(folded, t.folded) {
			return true
		}
		if t.slug != "" && (s == t.slug || strings.HasPrefix(s, t.slug+"-")) {
			return true
		}
	}
	return false
}

// Terms returns the folded terms, mainly for logging.
func (d *Denylist) Terms() []string {
	if d == nil {
		return nil
	}
	out := make([]string, len(d.terms))
	for i, t := range d.terms {
		out[i] = t.folded
	}
	return out
}
