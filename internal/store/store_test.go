package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/santa/internal/config"
	"github.com/hpungsan/santa/internal/errors"
	"github.com/hpungsan/santa/internal/wish"
)

// testStoreContract exercises behavior every Store must share.
func testStoreContract(t *testing.T, open func(t *testing.T, retain int) Store) {
	ctx := context.Background()

	t.Run("wish lifecycle", func(t *testing.T) {
		s := open(t, 50)

		older := &wish.Wish{Wish: "Socks", Country: "Chile", Telegram: "@s", Timestamp: 1000}
		newer := &wish.Wish{Wish: "A bike", Country: "Norway", Telegram: "@nora", Category: wish.CategoryMaterial, Timestamp: 2000}
		require.NoError(t, s.InsertWish(ctx, older))
		require.NoError(t, s.InsertWish(ctx, newer))
		require.NotZero(t, older.ID)
		require.NotEqual(t, older.ID, newer.ID)

		wishes, err := s.ListWishes(ctx)
		require.NoError(t, err)
		require.Len(t, wishes, 2)
		require.Equal(t, *newer, wishes[0])
		require.Equal(t, *older, wishes[1])

		got, err := s.GetWish(ctx, newer.ID)
		require.NoError(t, err)
		require.Equal(t, *newer, *got)

		require.NoError(t, s.DeleteWish(ctx, older.ID))
		_, err = s.GetWish(ctx, older.ID)
		require.True(t, errors.Is(err, errors.ErrNotFound))

		err = s.DeleteWish(ctx, older.ID)
		require.True(t, errors.Is(err, errors.ErrNotFound))
	})

	t.Run("empty list is not nil", func(t *testing.T) {
		s := open(t, 50)
		wishes, err := s.ListWishes(ctx)
		require.NoError(t, err)
		require.NotNil(t, wishes)
		require.Empty(t, wishes)
	})

	t.Run("events newest first with retention", func(t *testing.T) {
		s := open(t, 3)
		for i := int64(1); i <= 5; i++ {
			require.NoError(t, s.InsertEvent(ctx, &wish.Event{
				Type: wish.EventWishCreated, WishID: i, Timestamp: i * 1000,
			}))
		}

		events, err := s.RecentEvents(ctx, 10)
		require.NoError(t, err)
		require.Len(t, events, 3)
		require.Equal(t, int64(5), events[0].WishID)
		require.Equal(t, int64(3), events[2].WishID)

		events, err = s.RecentEvents(ctx, 1)
		require.NoError(t, err)
		require.Len(t, events, 1)
	})

	t.Run("delete removes events of the wish", func(t *testing.T) {
		s := open(t, 50)
		w := &wish.Wish{Wish: "Tea", Country: "India", Telegram: "@t"}
		require.NoError(t, s.InsertWish(ctx, w))
		require.NoError(t, s.InsertEvent(ctx, &wish.Event{Type: wish.EventWishCreated, WishID: w.ID}))
		require.NoError(t, s.InsertEvent(ctx, &wish.Event{Type: wish.EventWishClaimed, WishID: w.ID}))
		require.NoError(t, s.InsertEvent(ctx, &wish.Event{Type: wish.EventWishClaimed, WishID: w.ID + 100}))

		require.NoError(t, s.DeleteWish(ctx, w.ID))

		events, err := s.RecentEvents(ctx, 10)
		require.NoError(t, err)
		require.Len(t, events, 1)
		require.Equal(t, w.ID+100, events[0].WishID)
	})

	t.Run("visitors upsert", func(t *testing.T) {
		s := open(t, 50)
		v := &wish.Visitor{ID: "visitor_1", LastVisit: 100, Country: "DE"}
		require.NoError(t, s.TouchVisitor(ctx, v))
		require.Equal(t, int64(100), v.FirstVisit)

		again := &wish.Visitor{ID: "visitor_1", LastVisit: 900}
		require.NoError(t, s.TouchVisitor(ctx, again))
		require.Equal(t, int64(100), again.FirstVisit)
		require.Equal(t, int64(900), again.LastVisit)
		require.Equal(t, "DE", again.Country)

		require.NoError(t, s.TouchVisitor(ctx, &wish.Visitor{ID: "visitor_2"}))

		n, err := s.CountVisitors(ctx)
		require.NoError(t, err)
		require.Equal(t, 2, n)
	})
}

func TestSQLiteStore(t *testing.T) {
	testStoreContract(t, func(t *testing.T, retain int) Store {
		cfg := config.DefaultConfig()
		cfg.EventRetention = retain
		s, err := Open(context.Background(), cfg, t.TempDir())
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestFileStore(t *testing.T) {
	testStoreContract(t, func(t *testing.T, retain int) Store {
		s, err := OpenFile(filepath.Join(t.TempDir(), DocumentName), retain)
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestFileStore_PersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), DocumentName)

	s, err := OpenFile(path, 50)
	require.NoError(t, err)
	w := &wish.Wish{Wish: "Books", Country: "Kenya", Telegram: "@b", Category: wish.CategoryHelp}
	require.NoError(t, s.InsertWish(ctx, w))
	require.NoError(t, s.InsertEvent(ctx, &wish.Event{Type: wish.EventWishCreated, WishID: w.ID}))
	require.NoError(t, s.TouchVisitor(ctx, &wish.Visitor{ID: "visitor_x"}))

	reopened, err := OpenFile(path, 50)
	require.NoError(t, err)

	wishes, err := reopened.ListWishes(ctx)
	require.NoError(t, err)
	require.Equal(t, []wish.Wish{*w}, wishes)

	events, err := reopened.RecentEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)

	n, err := reopened.CountVisitors(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"site_visitors"`)
	require.Contains(t, string(data), `"notifications"`)
}

func TestFileStore_TimestampIDsBumpOnCollision(t *testing.T) {
	ctx := context.Background()
	s, err := OpenFile(filepath.Join(t.TempDir(), DocumentName), 50)
	require.NoError(t, err)

	a := &wish.Wish{Wish: "a", Country: "c", Telegram: "@a", Timestamp: 5000}
	b := &wish.Wish{Wish: "b", Country: "c", Telegram: "@b", Timestamp: 5000}
	require.NoError(t, s.InsertWish(ctx, a))
	require.NoError(t, s.InsertWish(ctx, b))

	require.Equal(t, int64(5000), a.ID)
	require.Equal(t, int64(5001), b.ID)
}

func TestFileStore_CorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), DocumentName)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := OpenFile(path, 50)
	require.Error(t, err)
}

func TestOpen_UnknownStore(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Store = config.StoreRemote
	_, err := Open(context.Background(), cfg, t.TempDir())
	require.Error(t, err)
}
