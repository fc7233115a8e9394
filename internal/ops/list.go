package ops

import (
	"context"

	"github.com/hpungsan/santa/internal/store"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	Category string // "all" or "" disables filtering
	Page     int    // 1-based, clamped
	PageSize int    // default: 9
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Page
	Category string `json:"category"`
	Sort     string `json:"sort"`
}

// List returns one page of wishes, newest first, optionally filtered by category.
func List(ctx context.Context, s store.Store, input ListInput) (*ListOutput, error) {
	category, err := NormalizeCategoryFilter(input.Category)
	if err != nil {
		return nil, err
	}

	wishes, err := s.ListWishes(ctx)
	if err != nil {
		return nil, err
	}

	return &ListOutput{
		Page:     Paginate(FilterByCategory(wishes, category), input.Page, input.PageSize),
		Category: category,
		Sort:     "created_at_desc",
	}, nil
}
