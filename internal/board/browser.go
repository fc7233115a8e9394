package board

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hpungsan/santa/internal/errors"
	"github.com/hpungsan/santa/internal/ops"
	"github.com/hpungsan/santa/internal/wish"
)

// BrowserOptions configures a Browser.
type BrowserOptions struct {
	PageSize int           // default: 9
	Interval time.Duration // polling interval for Run
	Effects  Effects
	Logger   zerolog.Logger
}

// Browser keeps a polled copy of all wishes and pages through it client-side.
type Browser struct {
	backend  Backend
	pageSize int
	interval time.Duration
	effects  Effects
	log      zerolog.Logger

	mu       sync.Mutex
	wishes   []wish.Wish
	loaded   bool
	category string
	page     int
}

// View is what the browser currently shows.
type View struct {
	ops.Page
	Category string `json:"category"`
	Loaded   bool   `json:"loaded"`
}

// NewBrowser returns a Browser reading through b.
func NewBrowser(b Backend, opts BrowserOptions) *Browser {
	size := opts.PageSize
	if size <= 0 {
		size = ops.DefaultPageSize
	}
	return &Browser{
		backend:  b,
		pageSize: size,
		interval: opts.Interval,
		effects:  effectsOrNop(opts.Effects),
		log:      opts.Logger,
		wishes:   []wish.Wish{},
		category: wish.CategoryAll,
		page:     1,
	}
}

// Refresh replaces the local copy with the store's list. On failure the
// stale list is kept and the error returned.
func (b *Browser) Refresh(ctx context.Context) error {
	wishes, err := b.backend.ListWishes(ctx)
	if err != nil {
		b.log.Warn().Err(err).Msg("wish list refresh failed")
		return userError(err)
	}

	b.mu.Lock()
	b.wishes = wishes
	b.loaded = true
	b.mu.Unlock()
	return nil
}

// Run refreshes immediately and then on every interval until ctx is done.
func (b *Browser) Run(ctx context.Context) {
	Poll(ctx, b.interval, func(ctx context.Context) {
		_ = b.Refresh(ctx)
	})
}

// SetCategory changes the filter and returns to the first page.
func (b *Browser) SetCategory(category string) error {
	c, err := ops.NormalizeCategoryFilter(category)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.category = c
	b.page = 1
	return nil
}

// SetPage moves to page n, clamped to the available pages.
func (b *Browser) SetPage(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.page = ops.Paginate(ops.FilterByCategory(b.wishes, b.category), n, b.pageSize).Pagination.Page
}

// View returns the current page, recomputed from the filtered list.
func (b *Browser) View() View {
	b.mu.Lock()
	defer b.mu.Unlock()
	return View{
		Page:     ops.Paginate(ops.FilterByCategory(b.wishes, b.category), b.page, b.pageSize),
		Category: b.category,
		Loaded:   b.loaded,
	}
}

// Wish looks a wish up in the local copy.
func (b *Browser) Wish(id int64) (wish.Wish, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, w := range b.wishes {
		if w.ID == id {
			return w, true
		}
	}
	return wish.Wish{}, false
}

// Open starts a detail view for the wish. Every call starts a fresh reveal cycle.
func (b *Browser) Open(id int64) (*Dialog, error) {
	w, ok := b.Wish(id)
	if !ok {
		return nil, errors.NewNotFound("wish", id)
	}
	return newDialog(w, b.backend, b.effects, b.log), nil
}
