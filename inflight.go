package swrcache

import "sync"

// RefreshCoordinator tracks keys with a background refresh in flight.
//
// TryAcquire is an atomic check-and-add, so at most one refresh per key can hold the
// key at a time. Release is unconditional and idempotent.
type RefreshCoordinator struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

// NewRefreshCoordinator creates an empty coordinator.
//
// Example: one refresh per key
//
//	rc := swrcache.NewRefreshCoordinator()
//	fmt.Println(rc.TryAcquire("k"), rc.TryAcquire("k")) // true false
//	rc.Release("k")
//	fmt.Println(rc.TryAcquire("k")) // true
func NewRefreshCoordinator() *RefreshCoordinator {
	return &RefreshCoordinator{keys: make(map[string]struct{})}
}

// TryAcquire marks key as in flight. It returns false when a refresh already holds key.
func (c *RefreshCoordinator) TryAcquire(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.keys[key]; busy {
		return false
	}
	c.keys[key] = struct{}{}
	return true
}

// Release clears key. Releasing a key that is not held is a no-op.
func (c *RefreshCoordinator) Release(key string) {
	c.mu.Lock()
	delete(c.keys, key)
	c.mu.Unlock()
}

// InFlight reports whether key currently has a refresh in flight.
func (c *RefreshCoordinator) InFlight(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, busy := c.keys[key]
	return busy
}

// Len reports how many keys are in flight.
func (c *RefreshCoordinator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.keys)
}
