package ops

import (
	"context"
	"fmt"
	"time"

	"github.com/hpungsan/santa/internal/store"
	"github.com/hpungsan/santa/internal/wish"
)

// Activity is an event prepared for display.
type Activity struct {
	ID        int64          `json:"id"`
	Type      wish.EventType `json:"type"`
	WishID    int64          `json:"wish_id"`
	Country   string         `json:"country,omitempty"`
	Timestamp int64          `json:"timestamp"`
	Message   string         `json:"message"`
	Ago       string         `json:"ago"`
}

// Counts holds the number of wishes created in trailing windows.
type Counts struct {
	Day   int `json:"day"`
	Week  int `json:"week"`
	Total int `json:"total"`
}

// FeedInput contains parameters for the Feed operation.
type FeedInput struct {
	Limit int       // default: 10
	Now   time.Time // zero means time.Now()
}

// FeedOutput contains the result of the Feed operation.
type FeedOutput struct {
	Activities []Activity `json:"activities"`
	Counts     Counts     `json:"counts"`
}

// Feed returns the newest activities and the 24h/7d wish counts.
func Feed(ctx context.Context, s store.Store, input FeedInput) (*FeedOutput, error) {
	now := input.Now
	if now.IsZero() {
		now = time.Now()
	}

	events, err := s.RecentEvents(ctx, clampEventLimit(input.Limit))
	if err != nil {
		return nil, err
	}
	wishes, err := s.ListWishes(ctx)
	if err != nil {
		return nil, err
	}

	return &FeedOutput{
		Activities: Activities(events, now),
		Counts:     CountRecent(wishes, now),
	}, nil
}

// Activities maps events to display records relative to now.
func Activities(events []wish.Event, now time.Time) []Activity {
	out := make([]Activity, 0, len(events))
	for _, e := range events {
		out = append(out, Activity{
			ID:        e.ID,
			Type:      e.Type,
			WishID:    e.WishID,
			Country:   e.Country,
			Timestamp: e.Timestamp,
			Message:   ActivityMessage(e),
			Ago:       FormatAgo(now, time.UnixMilli(e.Timestamp)),
		})
	}
	return out
}

// ActivityMessage is the one-line description of an event.
func ActivityMessage(e wish.Event) string {
	switch e.Type {
	case wish.EventWishCreated:
		if e.Country != "" {
			return "A wish was made from " + e.Country
		}
		return "A wish was made"
	case wish.EventWishClaimed:
		return "Someone became a Secret Santa"
	default:
		return string(e.Type)
	}
}

// CountRecent counts wishes created within 24 hours and 7 days of now.
func CountRecent(wishes []wish.Wish, now time.Time) Counts {
	dayAgo := now.Add(-24 * time.Hour).UnixMilli()
	weekAgo := now.Add(-7 * 24 * time.Hour).UnixMilli()

	c := Counts{Total: len(wishes)}
	for _, w := range wishes {
		if w.Timestamp >= dayAgo {
			c.Day++
		}
		if w.Timestamp >= weekAgo {
			c.Week++
		}
	}
	return c
}

// FormatAgo renders the time since t in coarse buckets.
func FormatAgo(now, t time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%d min ago", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%d h ago", int(d/time.Hour))
	default:
		return fmt.Sprintf("%d d ago", int(d/(24*time.Hour)))
	}
}
