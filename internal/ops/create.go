package ops

import (
	"context"

	"github.com/hpungsan/santa/internal/store"
	"github.com/hpungsan/santa/internal/wish"
)

// CreateInput contains parameters for the Create operation.
type CreateInput struct {
	Draft           wish.Draft
	RequireCategory bool
}

// CreateOutput contains the result of the Create operation.
type CreateOutput struct {
	Wish    wish.Wish   `json:"wish"`
	Event   *wish.Event `json:"event,omitempty"`
	Warning string      `json:"warning,omitempty"`

	// EventErr is the failure to record the wish_created event, if any.
	EventErr error `json:"-"`
}

// Create validates and persists a wish, then records a wish_created event.
// The wish is saved even when the event cannot be written; Event is nil and
// EventErr is set then.
func Create(ctx context.Context, s store.Store, input CreateInput) (*CreateOutput, error) {
	draft, err := wish.ValidateDraft(input.Draft, input.RequireCategory)
	if err != nil {
		return nil, err
	}

	w := &wish.Wish{
		Wish:     draft.Wish,
		Country:  draft.Country,
		Telegram: draft.Telegram,
		Category: draft.Category,
	}
	if err := s.InsertWish(ctx, w); err != nil {
		return nil, err
	}

	out := &CreateOutput{Wish: *w}

	e := &wish.Event{
		Type:      wish.EventWishCreated,
		WishID:    w.ID,
		Country:   w.Country,
		Timestamp: w.Timestamp,
	}
	if err := s.InsertEvent(ctx, e); err != nil {
		out.EventErr = err
		out.Warning = "wish saved, but its activity event was not recorded"
	} else {
		out.Event = e
	}

	return out, nil
}
