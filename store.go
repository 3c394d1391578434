package swrcache

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// EntryStore maps keys to at most one Entry.
//
// Hard expiry is enforced lazily: Get evicts an entry the first time it is read past
// ExpiresAt. Sweep does the same for every key and is meant to be scheduled separately.
// Every operation holds one exclusive lock.
type EntryStore[T any] struct {
	items    *gocache.Cache
	clock    Clock
	observer Observer
	mu       sync.Mutex
}

// NewEntryStore creates an empty store that reads time from clock.
//
// Example: set and read back
//
//	s := swrcache.NewEntryStore[string](swrcache.SystemClock{})
//	_ = s.Set("k", "A", 30*time.Second)
//	v, ok := s.Get("k")
//	fmt.Println(v, ok) // A true
func NewEntryStore[T any](clock Clock) *EntryStore[T] {
	if clock == nil {
		clock = SystemClock{}
	}
	return &EntryStore[T]{
		// expiry is tracked on the entry against clock, never by go-cache itself
		items:    gocache.New(gocache.NoExpiration, 0),
		clock:    clock,
		observer: nopObserver{},
	}
}

func (s *EntryStore[T]) setObserver(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o == nil {
		o = nopObserver{}
	}
	s.observer = o
}

// Get returns the value for key, or false when the key is absent or hard-expired.
// A hard-expired entry is evicted.
func (s *EntryStore[T]) Get(key string) (T, bool) {
	entry, ok := s.lookup(key)
	if !ok {
		var zero T
		return zero, false
	}
	return entry.Value, true
}

// lookup is Get returning the whole entry, so the orchestrator reads value and staleness
// under the same lock.
func (s *EntryStore[T]) lookup(key string) (Entry[T], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.peekLocked(key)
	if !ok {
		return Entry[T]{}, false
	}
	if entry.Expired(s.clock.Now()) {
		s.items.Delete(key)
		s.observer.OnCacheOp(context.Background(), OpEvict, key, nil, 0)
		return Entry[T]{}, false
	}
	return entry, true
}

// Set overwrites key with value, stale after ttl and hard-expired after HardExpiryFactor*ttl.
func (s *EntryStore[T]) Set(key string, value T, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items.Set(key, newEntry(value, s.clock.Now(), ttl), gocache.NoExpiration)
	return nil
}

// IsStale reports whether key is absent or past its StaleAt.
// Absence counts as stale; telling it apart from hard expiry is left to Get.
func (s *EntryStore[T]) IsStale(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.peekLocked(key)
	if !ok {
		return true
	}
	return entry.Stale(s.clock.Now())
}

// Peek returns the entry for key with its timestamps, without enforcing expiry.
func (s *EntryStore[T]) Peek(key string) (Entry[T], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peekLocked(key)
}

// Delete removes key.
func (s *EntryStore[T]) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items.Delete(key)
}

// Flush removes every entry.
func (s *EntryStore[T]) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items.Flush()
}

// Len reports the number of entries, including hard-expired ones not yet evicted.
func (s *EntryStore[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.ItemCount()
}

// Sweep evicts every hard-expired entry and returns how many were removed.
func (s *EntryStore[T]) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	removed := 0
	for key, item := range s.items.Items() {
		entry, ok := item.Object.(Entry[T])
		if !ok || entry.Expired(now) {
			s.items.Delete(key)
			s.observer.OnCacheOp(context.Background(), OpEvict, key, nil, 0)
			removed++
		}
	}
	return removed
}

func (s *EntryStore[T]) peekLocked(key string) (Entry[T], bool) {
	item, ok := s.items.Get(key)
	if !ok {
		return Entry[T]{}, false
	}
	entry, ok := item.(Entry[T])
	if !ok {
		return Entry[T]{}, false
	}
	return entry, true
}
