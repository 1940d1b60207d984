package models

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page        int  `json:"page"`
	PageSize    int  `json:"page_size"`
	TotalCount  int  `json:"total_count"`
	TotalPages  int  `json:"total_pages"`
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`
}

// Pagination bounds. Sizes outside the window are clamped, never rejected.
const (
	MinPageSize     = 1
	MaxPageSize     = 100
	DefaultPageSize = 20
)

// NormalizePage returns page coerced to >= 1.
func NormalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// NormalizePageSize clamps size into [MinPageSize, MaxPageSize],
// substituting the default when unset.
func NormalizePageSize(size int) int {
	if size == 0 {
		return DefaultPageSize
	}
	if size < MinPageSize {
		return MinPageSize
	}
	if size > MaxPageSize {
		return MaxPageSize
	}
	return size
}

// NewPagination derives the full metadata set from page, size and total.
// total_pages is 1 when the result set is empty so clients always have a
// valid last page to point at.
func NewPagination(page, size, total int) *Pagination {
	page = NormalizePage(page)
	size = NormalizePageSize(size)

	pages := 1
	if total > 0 {
		pages = (total + size - 1) / size
	}

	return &Pagination{
		Page:        page,
		PageSize:    size,
		TotalCount:  total,
		TotalPages:  pages,
		HasNext:     page < pages,
		HasPrevious: page > 1,
	}
}

// Offset returns the SQL offset for the page.
func (p *Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}
