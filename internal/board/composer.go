package board

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/hpungsan/santa/internal/errors"
	"github.com/hpungsan/santa/internal/wish"
)

// ComposerOptions configures a Composer.
type ComposerOptions struct {
	ChannelURL      string
	RequireCategory bool
	Effects         Effects
	Logger          zerolog.Logger
}

// Composer validates new wishes and gates them behind a subscription
// confirmation before anything is persisted.
type Composer struct {
	backend         Backend
	channelURL      string
	requireCategory bool
	effects         Effects
	log             zerolog.Logger
}

// NewComposer returns a Composer writing through b.
func NewComposer(b Backend, opts ComposerOptions) *Composer {
	return &Composer{
		backend:         b,
		channelURL:      opts.ChannelURL,
		requireCategory: opts.RequireCategory,
		effects:         effectsOrNop(opts.Effects),
		log:             opts.Logger,
	}
}

// Submit validates d. On success it returns the confirmation gate; nothing
// is stored until the gate is confirmed.
func (c *Composer) Submit(d wish.Draft) (*Pending, error) {
	draft, err := wish.ValidateDraft(d, c.requireCategory)
	if err != nil {
		return nil, err
	}
	return &Pending{Draft: draft, ChannelURL: c.channelURL, composer: c}, nil
}

// Pending is a validated wish waiting for the subscription acknowledgement.
type Pending struct {
	Draft      wish.Draft
	ChannelURL string

	composer *Composer
	mu       sync.Mutex
	done     bool
}

// Confirm stores the wish, fires the celebration and navigates to the wish
// list. A failed store call is returned and may be confirmed again by the user;
// it is never retried automatically.
func (p *Pending) Confirm(ctx context.Context) (*wish.Wish, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.done {
		return nil, errors.NewConflict("this wish was already confirmed or cancelled")
	}

	c := p.composer
	w, err := c.backend.CreateWish(ctx, p.Draft)
	if err != nil {
		c.log.Error().Err(err).Msg("create wish failed")
		return nil, userError(err)
	}
	p.done = true

	c.log.Info().Int64("wish_id", w.ID).Str("country", w.Country).Msg("wish created")
	c.effects.Celebrate(string(wish.EventWishCreated))
	c.effects.Navigate("/wishes")
	return w, nil
}

// Cancel discards the wish. Cancelling never persists anything.
func (p *Pending) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done = true
}

// Done reports whether the gate was confirmed or cancelled.
func (p *Pending) Done() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}
