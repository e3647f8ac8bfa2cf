package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/pkg/httputil"
)

// FamilyHandler serves the category list.
type FamilyHandler struct {
	families FamilyLister
	logger   *slog.Logger
}

// NewFamilyHandler creates a new family HTTP handler.
func NewFamilyHandler(families FamilyLister, logger *slog.Logger) *FamilyHandler {
	return &FamilyHandler{families: families, logger: logger}
}

// ListFamilies handles GET /api/families. A matching If-None-Match yields 304.
func (h *FamilyHandler) ListFamilies(w http.ResponseWriter, r *http.Request) {
	families, etag, err := h.families.List(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if etag != "" {
		w.Header().Set("ETag", etag)
		if etagMatches(r.Header.Get("If-None-Match"), etag) {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	httputil.WriteData(w, http.StatusOK, families)
}

// etagMatches implements the weak comparison If-None-Match calls for.
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	want := strings.TrimPrefix(etag, "W/")
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == want {
			return true
		}
	}
	return false
}
