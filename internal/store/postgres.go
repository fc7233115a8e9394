package store

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hpungsan/santa/internal/config"
	"github.com/hpungsan/santa/internal/errors"
	"github.com/hpungsan/santa/internal/wish"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS wishes (
  id         BIGSERIAL PRIMARY KEY,
  wish       TEXT NOT NULL,
  country    TEXT NOT NULL,
  telegram   TEXT NOT NULL,
  category   TEXT,
  created_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_wishes_created ON wishes(created_at DESC);

CREATE TABLE IF NOT EXISTS events (
  id         BIGSERIAL PRIMARY KEY,
  type       TEXT NOT NULL,
  wish_id    BIGINT NOT NULL,
  country    TEXT,
  created_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_created ON events(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_events_wish ON events(wish_id);

CREATE TABLE IF NOT EXISTS visitors (
  id          TEXT PRIMARY KEY,
  first_visit BIGINT NOT NULL,
  last_visit  BIGINT NOT NULL,
  country     TEXT
);
`

// Postgres stores records in PostgreSQL through a pgx pool.
type Postgres struct {
	pool   *pgxpool.Pool
	retain int
}

// OpenPostgres connects to cfg.DatabaseURL and ensures the schema exists.
func OpenPostgres(ctx context.Context, cfg *config.Config) (*Postgres, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("database_url is required for the postgres store")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	poolCfg.MaxConns = 10
	if cfg.DBMaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.DBMaxOpenConns)
	}
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return &Postgres{pool: pool, retain: cfg.EventRetention}, nil
}

func (p *Postgres) ListWishes(ctx context.Context) ([]wish.Wish, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, wish, country, telegram, COALESCE(category, ''), created_at
		FROM wishes
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	wishes := []wish.Wish{}
	for rows.Next() {
		var (
			w        wish.Wish
			category string
		)
		if err := rows.Scan(&w.ID, &w.Wish, &w.Country, &w.Telegram, &category, &w.Timestamp); err != nil {
			return nil, errors.NewInternal(err)
		}
		w.Category = wish.Category(category)
		wishes = append(wishes, w)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return wishes, nil
}

func (p *Postgres) GetWish(ctx context.Context, id int64) (*wish.Wish, error) {
	var (
		w        wish.Wish
		category string
	)
	err := p.pool.QueryRow(ctx, `
		SELECT id, wish, country, telegram, COALESCE(category, ''), created_at
		FROM wishes WHERE id = $1
	`, id).Scan(&w.ID, &w.Wish, &w.Country, &w.Telegram, &category, &w.Timestamp)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.NewNotFound("wish", id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	w.Category = wish.Category(category)
	return &w, nil
}

func (p *Postgres) InsertWish(ctx context.Context, w *wish.Wish) error {
	if w.Timestamp == 0 {
		w.Timestamp = wish.NowMillis()
	}
	err := p.pool.QueryRow(ctx, `
		INSERT INTO wishes (wish, country, telegram, category, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5)
		RETURNING id
	`, w.Wish, w.Country, w.Telegram, string(w.Category), w.Timestamp).Scan(&w.ID)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

func (p *Postgres) DeleteWish(ctx context.Context, id int64) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `DELETE FROM wishes WHERE id = $1`, id)
	if err != nil {
		return errors.NewInternal(err)
	}
	if tag.RowsAffected() == 0 {
		return errors.NewNotFound("wish", id)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM events WHERE wish_id = $1`, id); err != nil {
		return errors.NewInternal(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

func (p *Postgres) InsertEvent(ctx context.Context, e *wish.Event) error {
	if e.Timestamp == 0 {
		e.Timestamp = wish.NowMillis()
	}
	err := p.pool.QueryRow(ctx, `
		INSERT INTO events (type, wish_id, country, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4)
		RETURNING id
	`, string(e.Type), e.WishID, e.Country, e.Timestamp).Scan(&e.ID)
	if err != nil {
		return errors.NewInternal(err)
	}

	if p.retain > 0 {
		_, err := p.pool.Exec(ctx, `
			DELETE FROM events
			WHERE id NOT IN (
				SELECT id FROM events ORDER BY created_at DESC, id DESC LIMIT $1
			)
		`, p.retain)
		if err != nil {
			return errors.NewInternal(err)
		}
	}
	return nil
}

func (p *Postgres) RecentEvents(ctx context.Context, limit int) ([]wish.Event, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, type, wish_id, COALESCE(country, ''), created_at
		FROM events
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	events := []wish.Event{}
	for rows.Next() {
		var (
			e   wish.Event
			typ string
		)
		if err := rows.Scan(&e.ID, &typ, &e.WishID, &e.Country, &e.Timestamp); err != nil {
			return nil, errors.NewInternal(err)
		}
		e.Type = wish.EventType(typ)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return events, nil
}

func (p *Postgres) TouchVisitor(ctx context.Context, v *wish.Visitor) error {
	if v.LastVisit == 0 {
		v.LastVisit = wish.NowMillis()
	}
	err := p.pool.QueryRow(ctx, `
		INSERT INTO visitors (id, first_visit, last_visit, country)
		VALUES ($1, $2, $2, NULLIF($3, ''))
		ON CONFLICT (id) DO UPDATE SET
			last_visit = EXCLUDED.last_visit,
			country = COALESCE(EXCLUDED.country, visitors.country)
		RETURNING first_visit, last_visit, COALESCE(country, '')
	`, v.ID, v.LastVisit, v.Country).Scan(&v.FirstVisit, &v.LastVisit, &v.Country)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

func (p *Postgres) CountVisitors(ctx context.Context) (int, error) {
	var n int
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM visitors`).Scan(&n); err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
