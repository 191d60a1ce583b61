package shared

import "strings"

// Page size bounds applied by Filter.Normalize
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Filter selects one page of a listing
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string // asc or desc
	Search   string
}

// Normalize clamps paging into range and folds OrderDir to asc or desc
func (f Filter) Normalize() Filter {
	f.Page = max(f.Page, 1)
	switch {
	case f.PageSize < 1:
		f.PageSize = DefaultPageSize
	case f.PageSize > MaxPageSize:
		f.PageSize = MaxPageSize
	}
	if strings.EqualFold(strings.TrimSpace(f.OrderDir), "desc") {
		f.OrderDir = "desc"
	} else {
		f.OrderDir = "asc"
	}
	f.Search = strings.TrimSpace(f.Search)
	return f
}

func (f Filter) Offset() int {
	return (f.Page - 1) * f.PageSize
}

// Paginated is one page of T plus the size of the whole listing
type Paginated[T any] struct {
	Items      []T
	Total      int64
	Page       int
	PageSize   int
	TotalPages int
}

// NewPaginated wraps items fetched with filter
func NewPaginated[T any](items []T, total int64, filter Filter) Paginated[T] {
	return Paginated[T]{
		Items:      items,
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalPages: PageCount(total, filter.PageSize),
	}
}

// PageCount returns how many pages of size hold total rows
func PageCount(total int64, size int) int {
	if size < 1 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}
