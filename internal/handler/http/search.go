package http

import (
	"log/slog"
	"net/http"

	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/internal/urlstate"
	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/pkg/httputil"
	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/pkg/middleware"
)

// SearchHandler serves the aggregated product search.
type SearchHandler struct {
	search Searcher
	codec  *urlstate.Codec
	logger *slog.Logger
}

// NewSearchHandler creates a new search HTTP handler.
func NewSearchHandler(search Searcher, codec *urlstate.Codec, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{search: search, codec: codec, logger: logger}
}

// Search handles GET /api/search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	state := h.codec.Decode(r.URL.Query())
	session := r.Header.Get(middleware.SessionHeader)

	res, err := h.search.SearchLatest(r.Context(), session, state)
	if err != nil {
		if r.Context().Err() != nil {
			// Client went away; nobody is left to answer.
			return
		}
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if res.Partial {
		// Missing upstream pages may be back on the next request.
		w.Header().Set("Cache-Control", "no-store")
	}
	httputil.WriteData(w, http.StatusOK, res)
}
