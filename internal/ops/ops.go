package ops

import (
	"strings"

	"github.com/hpungsan/santa/internal/errors"
	"github.com/hpungsan/santa/internal/wish"
)

// Limits
const (
	DefaultPageSize  = 9
	DefaultFeedLimit = 10
	MaxEventLimit    = 50
	MaxBulkDelete    = 100
	bulkDeleteFanout = 8
)

// Pagination contains pagination metadata for a page of wishes.
type Pagination struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	TotalPages int  `json:"total_pages"`
	Total      int  `json:"total"`
	HasMore    bool `json:"has_more"`
}

// Page is one page of a filtered wish list.
type Page struct {
	Items      []wish.Wish `json:"items"`
	Pagination Pagination  `json:"pagination"`
}

// TotalPages returns ceil(n/size); 0 when n is 0.
func TotalPages(n, size int) int {
	if n <= 0 || size <= 0 {
		return 0
	}
	return (n + size - 1) / size
}

// Paginate slices wishes into the requested page. page is clamped into
// [1, TotalPages]; an empty set always yields page 1 with no items.
func Paginate(wishes []wish.Wish, page, size int) Page {
	if size <= 0 {
		size = DefaultPageSize
	}
	total := len(wishes)
	pages := TotalPages(total, size)

	page = min(max(page, 1), max(pages, 1))

	items := []wish.Wish{}
	start := (page - 1) * size
	if start < total {
		end := min(start+size, total)
		items = append(items, wishes[start:end]...)
	}

	return Page{
		Items: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   size,
			TotalPages: pages,
			Total:      total,
			HasMore:    page < pages,
		},
	}
}

// NormalizeCategoryFilter lowercases a filter value and maps "" to "all".
// Unknown categories are rejected.
func NormalizeCategoryFilter(category string) (string, error) {
	c := strings.ToLower(strings.TrimSpace(category))
	if c == "" || c == wish.CategoryAll {
		return wish.CategoryAll, nil
	}
	if !wish.Category(c).Valid() {
		return "", errors.NewInvalidRequest("category must be one of: all, material, help, communication, experience")
	}
	return c, nil
}

// FilterByCategory returns the wishes whose category matches exactly.
// "all" or "" returns the input unchanged.
func FilterByCategory(wishes []wish.Wish, category string) []wish.Wish {
	if category == "" || category == wish.CategoryAll {
		return wishes
	}
	filtered := []wish.Wish{}
	for _, w := range wishes {
		if string(w.Category) == category {
			filtered = append(filtered, w)
		}
	}
	return filtered
}

// validateID rejects non-positive wish IDs.
func validateID(id int64) error {
	if id <= 0 {
		return errors.NewInvalidRequest("id must be a positive integer")
	}
	return nil
}

// clampEventLimit applies the event limit default and bounds.
func clampEventLimit(limit int) int {
	if limit <= 0 {
		return DefaultFeedLimit
	}
	return min(limit, MaxEventLimit)
}
