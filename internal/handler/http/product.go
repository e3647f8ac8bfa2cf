package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/pkg/httputil"
)

// ProductHandler serves product detail.
type ProductHandler struct {
	products ProductGetter
	logger   *slog.Logger
}

// NewProductHandler creates a new product HTTP handler.
func NewProductHandler(products ProductGetter, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{products: products, logger: logger}
}

// GetProduct handles GET /api/products/{id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	detail, err := h.products.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, detail)
}
