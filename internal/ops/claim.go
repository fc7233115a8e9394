package ops

import (
	"context"

	"github.com/hpungsan/santa/internal/errors"
	"github.com/hpungsan/santa/internal/store"
	"github.com/hpungsan/santa/internal/wish"
)

// Claim records that someone revealed the contact of a wish.
func Claim(ctx context.Context, s store.Store, id int64) (*wish.Event, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	w, err := s.GetWish(ctx, id)
	if err != nil {
		return nil, err
	}

	e := &wish.Event{
		Type:    wish.EventWishClaimed,
		WishID:  w.ID,
		Country: w.Country,
	}
	if err := s.InsertEvent(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// RecordEventInput contains parameters for RecordEvent.
type RecordEventInput struct {
	Type   wish.EventType `json:"type"`
	WishID int64          `json:"wish_id"`
}

// RecordEvent appends a client-reported event. Only claims can be reported;
// wish_created events are written by Create.
func RecordEvent(ctx context.Context, s store.Store, input RecordEventInput) (*wish.Event, error) {
	switch input.Type {
	case wish.EventWishClaimed:
		return Claim(ctx, s, input.WishID)
	case wish.EventWishCreated:
		return nil, errors.NewInvalidRequest("wish_created events are recorded when a wish is created")
	default:
		return nil, errors.NewInvalidRequest("type must be wish_claimed")
	}
}

// Events returns up to limit recent events, newest first.
// limit defaults to 10 and is capped at 50.
func Events(ctx context.Context, s store.Store, limit int) ([]wish.Event, error) {
	return s.RecentEvents(ctx, clampEventLimit(limit))
}
