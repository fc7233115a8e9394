package ops

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/hpungsan/santa/internal/geoip"
	"github.com/hpungsan/santa/internal/store"
	"github.com/hpungsan/santa/internal/wish"
)

// Local runs the board's backend calls directly against a Store.
type Local struct {
	Store           store.Store
	Resolver        geoip.CountryResolver
	RequireCategory bool
	ClientIP        string // used for visitor country lookups
	Logger          zerolog.Logger
}

// NewLocal returns a Local backend over s.
func NewLocal(s store.Store, requireCategory bool) *Local {
	return &Local{Store: s, RequireCategory: requireCategory, Logger: zerolog.Nop()}
}

// ForClient returns a copy of l that attributes visits to ip.
func (l *Local) ForClient(ip string) *Local {
	c := *l
	c.ClientIP = ip
	return &c
}

func (l *Local) ListWishes(ctx context.Context) ([]wish.Wish, error) {
	return l.Store.ListWishes(ctx)
}

func (l *Local) CreateWish(ctx context.Context, d wish.Draft) (*wish.Wish, error) {
	out, err := Create(ctx, l.Store, CreateInput{Draft: d, RequireCategory: l.RequireCategory})
	if err != nil {
		return nil, err
	}
	if out.EventErr != nil {
		l.Logger.Warn().Err(out.EventErr).Int64("wish_id", out.Wish.ID).Msg("record wish_created event failed")
	}
	return &out.Wish, nil
}

func (l *Local) DeleteWish(ctx context.Context, id int64) error {
	_, err := Delete(ctx, l.Store, id)
	return err
}

func (l *Local) ClaimWish(ctx context.Context, id int64) (*wish.Event, error) {
	return Claim(ctx, l.Store, id)
}

func (l *Local) RecentEvents(ctx context.Context, limit int) ([]wish.Event, error) {
	return Events(ctx, l.Store, limit)
}

func (l *Local) TrackVisitor(ctx context.Context, visitorID string) error {
	_, err := TrackVisit(ctx, l.Store, l.Resolver, TrackVisitInput{VisitorID: visitorID, IP: l.ClientIP})
	return err
}

func (l *Local) VisitorCount(ctx context.Context) (int, error) {
	return l.Store.CountVisitors(ctx)
}
