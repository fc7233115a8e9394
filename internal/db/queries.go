package db

import (
	"context"
	"database/sql"

	"github.com/hpungsan/santa/internal/errors"
	"github.com/hpungsan/santa/internal/wish"
)

// InsertWish stores a new wish and fills in its ID.
// A zero Timestamp is set to the current time.
func InsertWish(ctx context.Context, db *sql.DB, w *wish.Wish) error {
	if w.Timestamp == 0 {
		w.Timestamp = wish.NowMillis()
	}

	query := `
		INSERT INTO wishes (wish, country, telegram, category, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := db.ExecContext(ctx, query,
		w.Wish, w.Country, w.Telegram, toNullString(string(w.Category)), w.Timestamp,
	)
	if err != nil {
		return errors.NewInternal(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return errors.NewInternal(err)
	}
	w.ID = id

	return nil
}

// ListWishes returns every wish, newest first.
func ListWishes(ctx context.Context, db *sql.DB) ([]wish.Wish, error) {
	query := `
		SELECT id, wish, country, telegram, category, created_at
		FROM wishes
		ORDER BY created_at DESC, id DESC
	`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	wishes := []wish.Wish{}
	for rows.Next() {
		var (
			w        wish.Wish
			category sql.NullString
		)
		if err := rows.Scan(&w.ID, &w.Wish, &w.Country, &w.Telegram, &category, &w.Timestamp); err != nil {
			return nil, errors.NewInternal(err)
		}
		w.Category = wish.Category(category.String)
		wishes = append(wishes, w)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	return wishes, nil
}

// GetWish retrieves a single wish by ID.
func GetWish(ctx context.Context, db *sql.DB, id int64) (*wish.Wish, error) {
	query := `
		SELECT id, wish, country, telegram, category, created_at
		FROM wishes
		WHERE id = ?
	`

	var (
		w        wish.Wish
		category sql.NullString
	)
	err := db.QueryRowContext(ctx, query, id).Scan(&w.ID, &w.Wish, &w.Country, &w.Telegram, &category, &w.Timestamp)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("wish", id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	w.Category = wish.Category(category.String)

	return &w, nil
}

// DeleteWish removes a wish and the events that reference it.
func DeleteWish(ctx context.Context, db *sql.DB, id int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `DELETE FROM wishes WHERE id = ?`, id)
	if err != nil {
		return errors.NewInternal(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound("wish", id)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE wish_id = ?`, id); err != nil {
		return errors.NewInternal(err)
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// InsertEvent appends an event and trims the table to the newest retain rows.
// retain <= 0 keeps everything.
func InsertEvent(ctx context.Context, db *sql.DB, e *wish.Event, retain int) error {
	if e.Timestamp == 0 {
		e.Timestamp = wish.NowMillis()
	}

	result, err := db.ExecContext(ctx, `
		INSERT INTO events (type, wish_id, country, created_at)
		VALUES (?, ?, ?, ?)
	`, string(e.Type), e.WishID, toNullString(e.Country), e.Timestamp)
	if err != nil {
		return errors.NewInternal(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return errors.NewInternal(err)
	}
	e.ID = id

	if retain > 0 {
		_, err := db.ExecContext(ctx, `
			DELETE FROM events
			WHERE id NOT IN (
				SELECT id FROM events ORDER BY created_at DESC, id DESC LIMIT ?
			)
		`, retain)
		if err != nil {
			return errors.NewInternal(err)
		}
	}

	return nil
}

// RecentEvents returns up to limit events, newest first.
func RecentEvents(ctx context.Context, db *sql.DB, limit int) ([]wish.Event, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, type, wish_id, country, created_at
		FROM events
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	events := []wish.Event{}
	for rows.Next() {
		var (
			e       wish.Event
			typ     string
			country sql.NullString
		)
		if err := rows.Scan(&e.ID, &typ, &e.WishID, &country, &e.Timestamp); err != nil {
			return nil, errors.NewInternal(err)
		}
		e.Type = wish.EventType(typ)
		e.Country = country.String
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	return events, nil
}

// TouchVisitor creates the visitor record or bumps its last_visit.
// On return v holds the stored record (FirstVisit included).
func TouchVisitor(ctx context.Context, db *sql.DB, v *wish.Visitor) error {
	if v.LastVisit == 0 {
		v.LastVisit = wish.NowMillis()
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO visitors (id, first_visit, last_visit, country)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			last_visit = excluded.last_visit,
			country = COALESCE(excluded.country, visitors.country)
	`, v.ID, v.LastVisit, v.LastVisit, toNullString(v.Country))
	if err != nil {
		return errors.NewInternal(err)
	}

	var country sql.NullString
	err = db.QueryRowContext(ctx, `
		SELECT first_visit, last_visit, country FROM visitors WHERE id = ?
	`, v.ID).Scan(&v.FirstVisit, &v.LastVisit, &country)
	if err != nil {
		return errors.NewInternal(err)
	}
	v.Country = country.String

	return nil
}

// CountVisitors returns the number of distinct visitors.
func CountVisitors(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM visitors`).Scan(&n); err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

// toNullString maps "" to NULL.
func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
