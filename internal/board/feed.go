package board

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hpungsan/santa/internal/ops"
	"github.com/hpungsan/santa/internal/wish"
)

// FeedOptions configures a FeedReader.
type FeedOptions struct {
	Limit    int           // default: 10
	Interval time.Duration // polling interval for Run
	Logger   zerolog.Logger
	Now      func() time.Time
}

// FeedSnapshot is the latest activity feed state.
type FeedSnapshot struct {
	Activities []ops.Activity `json:"activities"`
	Counts     ops.Counts     `json:"counts"`
	UpdatedAt  time.Time      `json:"updated_at"`
	Loaded     bool           `json:"loaded"`
}

// FeedReader polls recent events and wish counts. Background failures are
// logged and the previous snapshot is kept.
type FeedReader struct {
	backend  Backend
	limit    int
	interval time.Duration
	log      zerolog.Logger
	now      func() time.Time

	mu        sync.Mutex
	events    []wish.Event
	wishes    []wish.Wish
	updatedAt time.Time
	loaded    bool
}

// NewFeedReader returns a FeedReader reading through b.
func NewFeedReader(b Backend, opts FeedOptions) *FeedReader {
	limit := opts.Limit
	if limit <= 0 {
		limit = ops.DefaultFeedLimit
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &FeedReader{
		backend:  b,
		limit:    limit,
		interval: opts.Interval,
		log:      opts.Logger,
		now:      now,
	}
}

// Refresh fetches the newest events and the wish list for the counts.
func (f *FeedReader) Refresh(ctx context.Context) error {
	events, err := f.backend.RecentEvents(ctx, f.limit)
	if err != nil {
		f.log.Debug().Err(err).Msg("activity feed refresh failed")
		return err
	}
	wishes, err := f.backend.ListWishes(ctx)
	if err != nil {
		f.log.Debug().Err(err).Msg("activity counts refresh failed")
		return err
	}
	if len(events) > f.limit {
		events = events[:f.limit]
	}

	f.mu.Lock()
	f.events = events
	f.wishes = wishes
	f.updatedAt = f.now()
	f.loaded = true
	f.mu.Unlock()
	return nil
}

// Run refreshes immediately and then on every interval until ctx is done.
func (f *FeedReader) Run(ctx context.Context) {
	Poll(ctx, f.interval, func(ctx context.Context) {
		_ = f.Refresh(ctx)
	})
}

// Snapshot returns the current feed, with relative times computed now.
func (f *FeedReader) Snapshot() FeedSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	return FeedSnapshot{
		Activities: ops.Activities(f.events, now),
		Counts:     ops.CountRecent(f.wishes, now),
		UpdatedAt:  f.updatedAt,
		Loaded:     f.loaded,
	}
}
