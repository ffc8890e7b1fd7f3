package session

import (
	"sync"
	"time"
)

// Clock abstracts time.Now so expiry behaviour is deterministically
// testable without real timers.
type Clock interface {
	Now() time.Time
}

// systemClock is the production Clock.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Session is a short-lived, in-memory authentication state bound to one
// controller identity. A zero ExpiresAt means the session never expires
// (used by connection methods that hold no token, e.g. push).
type Session struct {
	ControllerID string
	Token        string
	ExpiresAt    time.Time

	// Data carries adapter-owned connection state (device ids, gateway
	// addresses, connection method). The cache never inspects it.
	Data any
}

// Cache maps controller ids to live sessions. One live session per
// controller id; storing again replaces the previous entry.
//
// Expiry is lazy: a lookup past ExpiresAt deletes the entry and reports a
// miss rather than serving stale state. Nothing is persisted; a process
// restart clears every session, which is accepted behaviour.
//
// All methods are safe for concurrent use.
type Cache struct {
	mu       sync.RWMutex
	sessions map[string]Session
	clock    Clock
}

// NewCache creates a session cache using the system clock.
func NewCache() *Cache {
	return NewCacheWithClock(systemClock{})
}

// NewCacheWithClock creates a session cache with an injected clock.
func NewCacheWithClock(clock Clock) *Cache {
	return &Cache{
		sessions: make(map[string]Session),
		clock:    clock,
	}
}

// Put stores a session, replacing any existing entry for the controller.
func (c *Cache) Put(s Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[s.ControllerID] = s
}

// Get returns the live session for a controller id.
//
// An entry past its ExpiresAt is deleted and reported as a miss, so an
// expired session is indistinguishable from "never connected".
func (c *Cache) Get(controllerID string) (Session, bool) {
	c.mu.RLock()
	s, ok := c.sessions[controllerID]
	c.mu.RUnlock()
	if !ok {
		return Session{}, false
	}

	if !s.ExpiresAt.IsZero() && !c.clock.Now().Before(s.ExpiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; a concurrent Put may have renewed it.
		if cur, still := c.sessions[controllerID]; still && cur.ExpiresAt.Equal(s.ExpiresAt) {
			delete(c.sessions, controllerID)
		}
		c.mu.Unlock()
		return Session{}, false
	}

	return s, true
}

// Extend pushes a live session's expiry forward. No-op on a miss.
func (c *Cache) Extend(controllerID string, until time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions[controllerID]
	if !ok {
		return false
	}
	s.ExpiresAt = until
	c.sessions[controllerID] = s
	return true
}

// Delete removes a session if present. Idempotent.
func (c *Cache) Delete(controllerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, controllerID)
}

// Len reports the number of stored sessions, including any not yet lazily
// expired.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sessions)
}
