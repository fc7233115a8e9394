package board

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/santa/internal/logging"
)

func TestNewVisitorID(t *testing.T) {
	a := NewVisitorID()
	b := NewVisitorID()
	require.True(t, strings.HasPrefix(a, VisitorIDPrefix))
	require.Len(t, a, len(VisitorIDPrefix)+26)
	require.NotEqual(t, a, b)
}

func TestTracker_PersistsIDAcrossInstances(t *testing.T) {
	b := newFakeBackend()
	ids := NewFileIDStore(t.TempDir())

	first := NewTracker(b, ids, logging.Nop()).Report(context.Background())
	second := NewTracker(b, ids, logging.Nop()).Report(context.Background())

	require.Equal(t, first, second)
	require.Equal(t, 2, b.visitors[first])
	n, _ := b.VisitorCount(context.Background())
	require.Equal(t, 1, n)
}

func TestTracker_FailureIsSwallowed(t *testing.T) {
	b := newFakeBackend()
	b.set(func(f *fakeBackend) { f.failVisit = true })

	id := NewTracker(b, nil, logging.Nop()).Report(context.Background())
	require.NotEmpty(t, id)
}

func TestTracker_ReportAsync(t *testing.T) {
	b := newFakeBackend()
	ids := &MemoryIDStore{}
	tr := NewTracker(b, ids, logging.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	tr.ReportAsync(ctx)
	cancel()

	require.Eventually(t, func() bool {
		n, _ := b.VisitorCount(context.Background())
		return n == 1
	}, time.Second, 5*time.Millisecond)
}
