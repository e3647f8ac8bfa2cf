package memory

import (
	"context"
	"sync"
	"time"

	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/internal/cache"
)

type item struct {
	entry     cache.Entry
	expiresAt time.Time
}

// Store is an in-process cache.Store. A zero TTL keeps entries forever.
type Store struct {
	mu    sync.RWMutex
	items map[string]item
	ttl   time.Duration
	now   func() time.Time
}

// New creates an empty store.
func New(ttl time.Duration) *Store {
	return &Store{
		items: make(map[string]item),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Get returns a copy of the entry stored under key.
func (s *Store) Get(_ context.Context, key string) (cache.Entry, bool, error) {
	s.mu.RLock()
	it, ok := s.items[key]
	s.mu.RUnlock()
	if !ok {
		return cache.Entry{}, false, nil
	}
	if !it.expiresAt.IsZero() && !s.now().Before(it.expiresAt) {
		s.mu.Lock()
		if cur, ok := s.items[key]; ok && cur.expiresAt.Equal(it.expiresAt) {
			delete(s.items, key)
		}
		s.mu.Unlock()
		return cache.Entry{}, false, nil
	}
	return clone(it.entry), true, nil
}

// Put stores a copy of entry under key.
func (s *Store) Put(_ context.Context, key string, entry cache.Entry) error {
	now := s.now()
	if entry.StoredAt.IsZero() {
		entry.StoredAt = now
	}
	it := item{entry: clone(entry)}
	if s.ttl > 0 {
		it.expiresAt = now.Add(s.ttl)
	}
	s.mu.Lock()
	s.items[key] = it
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, including expired ones not yet
// evicted.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func clone(e cache.Entry) cache.Entry {
	e.Value = append([]byte(nil), e.Value...)
	return e
}
