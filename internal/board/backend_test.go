package board

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/hpungsan/santa/internal/errors"
	"github.com/hpungsan/santa/internal/wish"
)

var errDown = stderrors.New("connection refused")

// fakeBackend is an in-memory Backend with switchable failures.
type fakeBackend struct {
	mu       sync.Mutex
	nextID   int64
	wishes   []wish.Wish
	events   []wish.Event // newest first
	visitors map[string]int

	failList   bool
	failCreate bool
	failClaim  bool
	failEvents bool
	failVisit  bool
	failDelete map[int64]bool

	listCalls   int
	createCalls int
	claimCalls  int
	password    string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{nextID: 1, visitors: map[string]int{}, failDelete: map[int64]bool{}}
}

func (f *fakeBackend) seed(ws ...wish.Wish) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, w := range ws {
		if w.ID == 0 {
			w.ID = f.nextID
		}
		f.nextID = max(f.nextID, w.ID) + 1
		f.wishes = append([]wish.Wish{w}, f.wishes...)
	}
}

func (f *fakeBackend) addEvent(e wish.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append([]wish.Event{e}, f.events...)
}

func (f *fakeBackend) set(fn func(f *fakeBackend)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeBackend) ListWishes(ctx context.Context) ([]wish.Wish, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.failList {
		return nil, errors.NewUnavailable(errDown)
	}
	out := make([]wish.Wish, len(f.wishes))
	copy(out, f.wishes)
	return out, nil
}

func (f *fakeBackend) CreateWish(ctx context.Context, d wish.Draft) (*wish.Wish, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.failCreate {
		return nil, errDown
	}
	w := wish.Wish{ID: f.nextID, Wish: d.Wish, Country: d.Country, Telegram: d.Telegram, Category: d.Category, Timestamp: wish.NowMillis()}
	f.nextID++
	f.wishes = append([]wish.Wish{w}, f.wishes...)
	f.events = append([]wish.Event{{ID: int64(len(f.events) + 1), Type: wish.EventWishCreated, WishID: w.ID, Country: w.Country, Timestamp: w.Timestamp}}, f.events...)
	return &w, nil
}

func (f *fakeBackend) DeleteWish(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete[id] {
		return errors.NewUnavailable(errDown)
	}
	for i, w := range f.wishes {
		if w.ID == id {
			f.wishes = append(f.wishes[:i:i], f.wishes[i+1:]...)
			return nil
		}
	}
	return errors.NewNotFound("wish", id)
}

func (f *fakeBackend) ClaimWish(ctx context.Context, id int64) (*wish.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claimCalls++
	if f.failClaim {
		return nil, errDown
	}
	e := wish.Event{ID: int64(len(f.events) + 1), Type: wish.EventWishClaimed, WishID: id, Timestamp: wish.NowMillis()}
	f.events = append([]wish.Event{e}, f.events...)
	return &e, nil
}

func (f *fakeBackend) RecentEvents(ctx context.Context, limit int) ([]wish.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failEvents {
		return nil, errDown
	}
	n := min(limit, len(f.events))
	out := make([]wish.Event, n)
	copy(out, f.events[:n])
	return out, nil
}

func (f *fakeBackend) TrackVisitor(ctx context.Context, visitorID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failVisit {
		return errDown
	}
	f.visitors[visitorID]++
	return nil
}

func (f *fakeBackend) VisitorCount(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.visitors), nil
}

func (f *fakeBackend) SetAdminPassword(password string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.password = password
}

type recordedEffects struct {
	mu         sync.Mutex
	celebrated []string
	navigated  []string
}

func (r *recordedEffects) Celebrate(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.celebrated = append(r.celebrated, reason)
}

func (r *recordedEffects) Navigate(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.navigated = append(r.navigated, path)
}
