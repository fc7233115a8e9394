package board

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/santa/internal/errors"
	"github.com/hpungsan/santa/internal/logging"
	"github.com/hpungsan/santa/internal/wish"
)

func seedCategories(b *fakeBackend, n int, c wish.Category) {
	for i := 0; i < n; i++ {
		b.seed(wish.Wish{Wish: fmt.Sprintf("%s %d", c, i), Country: "Peru", Telegram: "@p", Category: c})
	}
}

func TestBrowser_PaginatesAndFilters(t *testing.T) {
	b := newFakeBackend()
	seedCategories(b, 12, wish.CategoryMaterial)
	seedCategories(b, 4, wish.CategoryHelp)

	br := NewBrowser(b, BrowserOptions{Logger: logging.Nop()})
	require.False(t, br.View().Loaded)
	require.NoError(t, br.Refresh(context.Background()))

	v := br.View()
	require.True(t, v.Loaded)
	require.Equal(t, 16, v.Pagination.Total)
	require.Equal(t, 2, v.Pagination.TotalPages)
	require.Len(t, v.Items, 9)

	br.SetPage(2)
	require.Len(t, br.View().Items, 7)

	require.NoError(t, br.SetCategory("help"))
	v = br.View()
	require.Equal(t, 1, v.Pagination.Page, "changing the filter resets to page 1")
	require.Equal(t, 4, v.Pagination.Total)
	for _, w := range v.Items {
		require.Equal(t, wish.CategoryHelp, w.Category)
	}

	require.NoError(t, br.SetCategory("all"))
	require.Equal(t, 16, br.View().Pagination.Total)

	require.True(t, errors.Is(br.SetCategory("cars"), errors.ErrInvalidRequest))
}

func TestBrowser_SetPageClamps(t *testing.T) {
	b := newFakeBackend()
	seedCategories(b, 10, wish.CategoryHelp)
	br := NewBrowser(b, BrowserOptions{Logger: logging.Nop()})
	require.NoError(t, br.Refresh(context.Background()))

	br.SetPage(50)
	require.Equal(t, 2, br.View().Pagination.Page)
	br.SetPage(-1)
	require.Equal(t, 1, br.View().Pagination.Page)
}

func TestBrowser_SetPageOnEmptyList(t *testing.T) {
	b := newFakeBackend()
	br := NewBrowser(b, BrowserOptions{Logger: logging.Nop()})
	require.NoError(t, br.Refresh(context.Background()))

	br.SetPage(3)
	view := br.View()
	require.Equal(t, 1, view.Pagination.Page)
	require.Equal(t, 0, view.Pagination.TotalPages)
	require.Empty(t, view.Items)

	seedCategories(b, 30, wish.CategoryHelp)
	require.NoError(t, br.Refresh(context.Background()))
	view = br.View()
	require.Equal(t, 1, view.Pagination.Page)
	require.Equal(t, 4, view.Pagination.TotalPages)
}

func TestBrowser_RefreshFailureKeepsStaleList(t *testing.T) {
	b := newFakeBackend()
	seedCategories(b, 3, wish.CategoryHelp)
	br := NewBrowser(b, BrowserOptions{Logger: logging.Nop()})
	require.NoError(t, br.Refresh(context.Background()))

	b.set(func(f *fakeBackend) { f.failList = true })
	err := br.Refresh(context.Background())
	require.True(t, errors.Is(err, errors.ErrUnavailable))
	require.Equal(t, 3, br.View().Pagination.Total)
}

func TestBrowser_RunPolls(t *testing.T) {
	b := newFakeBackend()
	br := NewBrowser(b, BrowserOptions{Interval: 10 * time.Millisecond, Logger: logging.Nop()})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		br.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return br.View().Loaded }, time.Second, 5*time.Millisecond)
	b.seed(wish.Wish{Wish: "late", Country: "Peru", Telegram: "@l"})
	require.Eventually(t, func() bool { return br.View().Pagination.Total == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestBrowser_OpenUnknown(t *testing.T) {
	br := NewBrowser(newFakeBackend(), BrowserOptions{Logger: logging.Nop()})
	_, err := br.Open(9)
	require.True(t, errors.Is(err, errors.ErrNotFound))
}
