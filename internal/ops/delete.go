package ops

import (
	"context"

	"github.com/hpungsan/santa/internal/store"
)

// DeleteOutput contains the result of the Delete operation.
type DeleteOutput struct {
	Success bool  `json:"success"`
	ID      int64 `json:"id"`
}

// Delete removes a wish and its events.
func Delete(ctx context.Context, s store.Store, id int64) (*DeleteOutput, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	if err := s.DeleteWish(ctx, id); err != nil {
		return nil, err
	}
	return &DeleteOutput{Success: true, ID: id}, nil
}
