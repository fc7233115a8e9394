package board

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/hpungsan/santa/internal/errors"
	"github.com/hpungsan/santa/internal/wish"
)

// Summary is the part of a wish shown before the contact is revealed.
type Summary struct {
	ID       int64         `json:"id"`
	Wish     string        `json:"wish"`
	Country  string        `json:"country"`
	Category wish.Category `json:"category,omitempty"`
}

// Dialog is one opening of a wish's detail view. The contact handle is
// hidden until Reveal; only the first reveal of an opening records a claim.
type Dialog struct {
	wish    wish.Wish
	backend Backend
	effects Effects
	log     zerolog.Logger

	mu       sync.Mutex
	revealed bool
	claimed  bool
	closed   bool
}

func newDialog(w wish.Wish, b Backend, effects Effects, log zerolog.Logger) *Dialog {
	return &Dialog{wish: w, backend: b, effects: effects, log: log}
}

// Summary returns the wish without its contact handle.
func (d *Dialog) Summary() Summary {
	return Summary{
		ID:       d.wish.ID,
		Wish:     d.wish.Wish,
		Country:  d.wish.Country,
		Category: d.wish.Category,
	}
}

// Reveal returns the contact handle. The first call records a wish_claimed
// event and fires the celebration; later calls in the same opening only
// return the handle. A failed claim write is logged, the handle is still shown.
func (d *Dialog) Reveal(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return "", errors.NewConflict("dialog is closed")
	}
	d.revealed = true
	if d.claimed {
		return d.wish.Telegram, nil
	}
	d.claimed = true

	if _, err := d.backend.ClaimWish(ctx, d.wish.ID); err != nil {
		d.log.Warn().Err(err).Int64("wish_id", d.wish.ID).Msg("record claim failed")
	}
	d.effects.Celebrate(string(wish.EventWishClaimed))
	return d.wish.Telegram, nil
}

// Revealed reports whether the handle is currently shown.
func (d *Dialog) Revealed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.revealed
}

// Close hides the handle again and ends this opening.
func (d *Dialog) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.revealed = false
	d.closed = true
}

// Closed reports whether Close was called.
func (d *Dialog) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}
