package store

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/hpungsan/santa/internal/errors"
	"github.com/hpungsan/santa/internal/wish"
)

// DocumentName is the JSON document used by the file store.
const DocumentName = "santa.json"

// document is the on-disk layout. Keys match the browser-storage names the
// board used before it had a server.
type document struct {
	Wishes        []wish.Wish    `json:"wishes"`
	Notifications []wish.Event   `json:"notifications"` // newest first
	Visitors      []wish.Visitor `json:"site_visitors"`
}

// File keeps every record in a single JSON document, rewritten on each change.
// Wish and event IDs are creation timestamps, bumped past the current maximum
// on collision.
type File struct {
	mu     sync.Mutex
	path   string
	retain int
	doc    document
}

// OpenFile loads the document at path, starting empty if it does not exist.
func OpenFile(path string, retain int) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	f := &File{path: path, retain: retain}

	file, err := openFileNoFollowRead(path)
	if stderrors.Is(err, os.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(&f.doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return f, nil
}

func (f *File) ListWishes(ctx context.Context) ([]wish.Wish, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	wishes := make([]wish.Wish, len(f.doc.Wishes))
	copy(wishes, f.doc.Wishes)
	sort.SliceStable(wishes, func(i, j int) bool {
		if wishes[i].Timestamp != wishes[j].Timestamp {
			return wishes[i].Timestamp > wishes[j].Timestamp
		}
		return wishes[i].ID > wishes[j].ID
	})
	return wishes, nil
}

func (f *File) GetWish(ctx context.Context, id int64) (*wish.Wish, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, w := range f.doc.Wishes {
		if w.ID == id {
			found := w
			return &found, nil
		}
	}
	return nil, errors.NewNotFound("wish", id)
}

func (f *File) InsertWish(ctx context.Context, w *wish.Wish) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if w.Timestamp == 0 {
		w.Timestamp = wish.NowMillis()
	}
	w.ID = w.Timestamp
	for _, existing := range f.doc.Wishes {
		if existing.ID >= w.ID {
			w.ID = existing.ID + 1
		}
	}

	f.doc.Wishes = append(f.doc.Wishes, *w)
	if err := f.save(); err != nil {
		f.doc.Wishes = f.doc.Wishes[:len(f.doc.Wishes)-1]
		return err
	}
	return nil
}

func (f *File) DeleteWish(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	idx := -1
	for i, w := range f.doc.Wishes {
		if w.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return errors.NewNotFound("wish", id)
	}

	prev := f.doc
	wishes := make([]wish.Wish, 0, len(f.doc.Wishes)-1)
	wishes = append(wishes, f.doc.Wishes[:idx]...)
	wishes = append(wishes, f.doc.Wishes[idx+1:]...)

	events := make([]wish.Event, 0, len(f.doc.Notifications))
	for _, e := range f.doc.Notifications {
		if e.WishID != id {
			events = append(events, e)
		}
	}

	f.doc.Wishes = wishes
	f.doc.Notifications = events
	if err := f.save(); err != nil {
		f.doc = prev
		return err
	}
	return nil
}

func (f *File) InsertEvent(ctx context.Context, e *wish.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if e.Timestamp == 0 {
		e.Timestamp = wish.NowMillis()
	}
	e.ID = e.Timestamp
	for _, existing := range f.doc.Notifications {
		if existing.ID >= e.ID {
			e.ID = existing.ID + 1
		}
	}

	prev := f.doc.Notifications
	events := make([]wish.Event, 0, len(prev)+1)
	events = append(events, *e)
	events = append(events, prev...)
	if f.retain > 0 && len(events) > f.retain {
		events = events[:f.retain]
	}

	f.doc.Notifications = events
	if err := f.save(); err != nil {
		f.doc.Notifications = prev
		return err
	}
	return nil
}

func (f *File) RecentEvents(ctx context.Context, limit int) ([]wish.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := len(f.doc.Notifications)
	if limit >= 0 && limit < n {
		n = limit
	}
	events := make([]wish.Event, n)
	copy(events, f.doc.Notifications[:n])
	return events, nil
}

func (f *File) TouchVisitor(ctx context.Context, v *wish.Visitor) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if v.LastVisit == 0 {
		v.LastVisit = wish.NowMillis()
	}

	prev := make([]wish.Visitor, len(f.doc.Visitors))
	copy(prev, f.doc.Visitors)

	found := false
	for i := range f.doc.Visitors {
		existing := &f.doc.Visitors[i]
		if existing.ID != v.ID {
			continue
		}
		existing.LastVisit = v.LastVisit
		if v.Country != "" {
			existing.Country = v.Country
		}
		*v = *existing
		found = true
		break
	}
	if !found {
		v.FirstVisit = v.LastVisit
		f.doc.Visitors = append(f.doc.Visitors, *v)
	}

	if err := f.save(); err != nil {
		f.doc.Visitors = prev
		return err
	}
	return nil
}

func (f *File) CountVisitors(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.doc.Visitors), nil
}

// Close is a no-op; every change is already on disk.
func (f *File) Close() error {
	return nil
}

// save writes the document to a temp file and renames it into place.
// Caller must hold f.mu.
func (f *File) save() error {
	data, err := json.MarshalIndent(f.doc, "", "  ")
	if err != nil {
		return errors.NewInternal(err)
	}

	tempPath := f.path + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return errors.NewInternal(err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tempPath)
		return errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return errors.NewInternal(err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return errors.NewInternal(err)
	}

	if err := os.Rename(tempPath, f.path); err != nil {
		os.Remove(tempPath)
		return errors.NewInternal(err)
	}
	return nil
}
