// Package store is the persistence boundary for wishes, events and visitors.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	"github.com/hpungsan/santa/internal/config"
	"github.com/hpungsan/santa/internal/db"
	"github.com/hpungsan/santa/internal/wish"
)

// Store persists the board's records. Implementations serialize their own
// writes and return coded errors from internal/errors.
type Store interface {
	ListWishes(ctx context.Context) ([]wish.Wish, error)
	GetWish(ctx context.Context, id int64) (*wish.Wish, error)
	InsertWish(ctx context.Context, w *wish.Wish) error
	// DeleteWish removes the wish and every event that references it.
	DeleteWish(ctx context.Context, id int64) error

	// InsertEvent appends an event, trimming to the store's retention.
	InsertEvent(ctx context.Context, e *wish.Event) error
	RecentEvents(ctx context.Context, limit int) ([]wish.Event, error)

	TouchVisitor(ctx context.Context, v *wish.Visitor) error
	CountVisitors(ctx context.Context) (int, error)

	Close() error
}

// Open builds the store selected by cfg.Store. baseDir holds the SQLite
// database and the JSON document.
func Open(ctx context.Context, cfg *config.Config, baseDir string) (Store, error) {
	switch cfg.Store {
	case config.StoreSQLite, "":
		database, err := db.Init(baseDir)
		if err != nil {
			return nil, err
		}
		db.ConfigurePool(database, cfg)
		return NewSQLite(database, cfg.EventRetention), nil
	case config.StorePostgres:
		return OpenPostgres(ctx, cfg)
	case config.StoreFile:
		return OpenFile(filepath.Join(baseDir, DocumentName), cfg.EventRetention)
	default:
		return nil, fmt.Errorf("store %q cannot be opened locally", cfg.Store)
	}
}

// SQLite adapts the internal/db queries to Store.
type SQLite struct {
	db     *sql.DB
	retain int
}

// NewSQLite wraps an initialized database. retain <= 0 keeps every event.
func NewSQLite(database *sql.DB, retain int) *SQLite {
	return &SQLite{db: database, retain: retain}
}

func (s *SQLite) ListWishes(ctx context.Context) ([]wish.Wish, error) {
	return db.ListWishes(ctx, s.db)
}

func (s *SQLite) GetWish(ctx context.Context, id int64) (*wish.Wish, error) {
	return db.GetWish(ctx, s.db, id)
}

func (s *SQLite) InsertWish(ctx context.Context, w *wish.Wish) error {
	return db.InsertWish(ctx, s.db, w)
}

func (s *SQLite) DeleteWish(ctx context.Context, id int64) error {
	return db.DeleteWish(ctx, s.db, id)
}

func (s *SQLite) InsertEvent(ctx context.Context, e *wish.Event) error {
	return db.InsertEvent(ctx, s.db, e, s.retain)
}

func (s *SQLite) RecentEvents(ctx context.Context, limit int) ([]wish.Event, error) {
	return db.RecentEvents(ctx, s.db, limit)
}

func (s *SQLite) TouchVisitor(ctx context.Context, v *wish.Visitor) error {
	return db.TouchVisitor(ctx, s.db, v)
}

func (s *SQLite) CountVisitors(ctx context.Context) (int, error) {
	return db.CountVisitors(ctx, s.db)
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
