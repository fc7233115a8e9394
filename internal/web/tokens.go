package web

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// tokenStore maps opaque tokens to short-lived server-side state: admin
// sessions, pending wishes awaiting confirmation, open detail dialogs.
// Entries expire after ttl; when full, the entry closest to expiry is evicted.
type tokenStore[T any] struct {
	mu    sync.Mutex
	ttl   time.Duration
	max   int
	now   func() time.Time
	items map[string]tokenEntry[T]
}

type tokenEntry[T any] struct {
	value   T
	expires time.Time
}

func newTokenStore[T any](ttl time.Duration, max int) *tokenStore[T] {
	return &tokenStore[T]{
		ttl:   ttl,
		max:   max,
		now:   time.Now,
		items: make(map[string]tokenEntry[T]),
	}
}

// Put stores v under a new random token.
func (s *tokenStore[T]) Put(v T) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, e := range s.items {
		if now.After(e.expires) {
			delete(s.items, k)
		}
	}
	if s.max > 0 && len(s.items) >= s.max {
		var (
			oldest    string
			oldestExp time.Time
		)
		for k, e := range s.items {
			if oldest == "" || e.expires.Before(oldestExp) {
				oldest, oldestExp = k, e.expires
			}
		}
		delete(s.items, oldest)
	}

	token := uuid.NewString()
	s.items[token] = tokenEntry[T]{value: v, expires: now.Add(s.ttl)}
	return token
}

// Get returns the value for token, extending its lifetime.
func (s *tokenStore[T]) Get(token string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	if token == "" {
		return zero, false
	}
	e, ok := s.items[token]
	if !ok {
		return zero, false
	}
	now := s.now()
	if now.After(e.expires) {
		delete(s.items, token)
		return zero, false
	}
	e.expires = now.Add(s.ttl)
	s.items[token] = e
	return e.value, true
}

// Delete forgets token.
func (s *tokenStore[T]) Delete(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, token)
}

// Len returns the number of live entries.
func (s *tokenStore[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
