// Package board holds the interactive pieces of the wish board: composing,
// browsing and revealing wishes, the activity feed, notification popups,
// moderation and visitor tracking. Every component talks to storage only
// through Backend, so the same code runs against a local store or a remote
// server.
package board

import (
	"context"

	"github.com/hpungsan/santa/internal/errors"
	"github.com/hpungsan/santa/internal/wish"
)

// Backend is the wish store as seen by the components.
type Backend interface {
	ListWishes(ctx context.Context) ([]wish.Wish, error)
	// CreateWish persists the wish and records its wish_created event.
	CreateWish(ctx context.Context, d wish.Draft) (*wish.Wish, error)
	DeleteWish(ctx context.Context, id int64) error
	// ClaimWish records a wish_claimed event.
	ClaimWish(ctx context.Context, id int64) (*wish.Event, error)
	RecentEvents(ctx context.Context, limit int) ([]wish.Event, error)
	TrackVisitor(ctx context.Context, visitorID string) error
	VisitorCount(ctx context.Context) (int, error)
}

// adminCredentialed is implemented by backends that must forward the
// moderator password, such as the remote client.
type adminCredentialed interface {
	SetAdminPassword(password string)
}

// userError maps failures of user-initiated actions to what the user sees:
// coded request errors pass through, anything else means the store is unavailable.
func userError(err error) error {
	se := errors.As(err)
	switch se.Code {
	case errors.ErrInvalidRequest, errors.ErrUnauthorized, errors.ErrNotFound, errors.ErrConflict, errors.ErrUnavailable:
		return se
	default:
		return errors.NewUnavailable(err)
	}
}
