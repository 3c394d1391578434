package swrcache

import "time"

// HardExpiryFactor multiplies the ttl to get the hard expiry of an entry.
// An entry written with ttl becomes stale after ttl and unservable after HardExpiryFactor*ttl.
const HardExpiryFactor = 5

// Entry is a cached value plus its staleness and hard-expiry instants.
// StaleAt never comes after ExpiresAt.
type Entry[T any] struct {
	Value     T
	StaleAt   time.Time
	ExpiresAt time.Time
}

func newEntry[T any](value T, now time.Time, ttl time.Duration) Entry[T] {
	return Entry[T]{
		Value:     value,
		StaleAt:   now.Add(ttl),
		ExpiresAt: now.Add(HardExpiryFactor * ttl),
	}
}

// Stale reports whether now is past StaleAt. A stale entry is still servable.
func (e Entry[T]) Stale(now time.Time) bool {
	return now.After(e.StaleAt)
}

// Expired reports whether now is past ExpiresAt.
func (e Entry[T]) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}
