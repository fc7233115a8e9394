package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/santa/internal/errors"
	"github.com/hpungsan/santa/internal/geoip"
	"github.com/hpungsan/santa/internal/store"
	"github.com/hpungsan/santa/internal/wish"
)

// MaxVisitorIDLen bounds client-supplied visitor IDs.
const MaxVisitorIDLen = 128

// TrackVisitInput contains parameters for the TrackVisit operation.
type TrackVisitInput struct {
	VisitorID string
	IP        string // optional, used for the country lookup
}

// TrackVisit creates a visitor record or bumps its last visit. When a
// resolver is given and IP is set, the country is looked up; lookup failures
// leave the country unchanged.
func TrackVisit(ctx context.Context, s store.Store, resolver geoip.CountryResolver, input TrackVisitInput) (*wish.Visitor, error) {
	id := strings.TrimSpace(input.VisitorID)
	if id == "" {
		return nil, errors.NewInvalidRequest("visitor_id is required")
	}
	if len(id) > MaxVisitorIDLen {
		return nil, errors.NewInvalidRequest("visitor_id is too long")
	}

	v := &wish.Visitor{ID: id}
	if resolver != nil && input.IP != "" {
		if country, err := resolver.CountryCode(input.IP); err == nil {
			v.Country = country
		}
	}

	if err := s.TouchVisitor(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// VisitorStatsOutput contains the result of the VisitorStats operation.
type VisitorStatsOutput struct {
	Count  int `json:"count"`
	Wishes int `json:"wishes"`
}

// VisitorStats returns the visitor and wish totals shown to moderators.
func VisitorStats(ctx context.Context, s store.Store) (*VisitorStatsOutput, error) {
	n, err := s.CountVisitors(ctx)
	if err != nil {
		return nil, err
	}
	wishes, err := s.ListWishes(ctx)
	if err != nil {
		return nil, err
	}
	return &VisitorStatsOutput{Count: n, Wishes: len(wishes)}, nil
}
