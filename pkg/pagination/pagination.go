package pagination

// DefaultPageSize is the storefront grid size.
const DefaultPageSize = 24

// Window is one page cut out of a fully materialized, ordered result set.
type Window[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
	Total      int `json:"total"`
}

// HasNext reports whether a page follows this one.
func (w Window[T]) HasNext() bool {
	return w.Page < w.TotalPages
}

// HasPrev reports whether a page precedes this one.
func (w Window[T]) HasPrev() bool {
	return w.Page > 1
}

// TotalPages returns ceil(total/pageSize), never less than 1.
func TotalPages(total, pageSize int) int {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	pages := total / pageSize
	if total%pageSize > 0 {
		pages++
	}
	if pages < 1 {
		pages = 1
	}
	return pages
}

// ClampPage moves page into [1, totalPages].
func ClampPage(page, totalPages int) int {
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}
	return page
}

// Paginate slices items into the requested page. Out-of-range pages are
// clamped rather than rejected, so an empty set still yields page 1 of 1.
func Paginate[T any](items []T, page, pageSize int) Window[T] {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	total := len(items)
	totalPages := TotalPages(total, pageSize)
	page = ClampPage(page, totalPages)

	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	slice := make([]T, end-start)
	copy(slice, items[start:end])

	return Window[T]{
		Items:      slice,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
		Total:      total,
	}
}
