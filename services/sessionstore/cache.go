package sessionstore

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// LivenessCache keeps recent HasActive results in memory so access-token
// validation stays cheap on hot paths. Only positive results are cached;
// a revocation in this process invalidates the pair immediately, so a
// logout takes effect on the very next Validate call.
type LivenessCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]time.Time
}

func NewLivenessCache(ttl time.Duration) *LivenessCache {
	return &LivenessCache{
		ttl:     ttl,
		entries: make(map[string]time.Time),
	}
}

func cacheKey(userID uuid.UUID, sessionID string) string {
	return userID.String() + "/" + sessionID
}

func (c *LivenessCache) Get(userID uuid.UUID, sessionID string) bool {
	if c == nil || c.ttl <= 0 {
		return false
	}

	key := cacheKey(userID, sessionID)

	c.mu.RLock()
	cachedAt, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return false
	}

	if time.Since(cachedAt) > c.ttl {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return false
	}

	return true
}

func (c *LivenessCache) Put(userID uuid.UUID, sessionID string) {
	if c == nil || c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	c.entries[cacheKey(userID, sessionID)] = time.Now()
	c.mu.Unlock()
}

func (c *LivenessCache) Invalidate(userID uuid.UUID, sessionID string) {
	if c == nil {
		return
	}

	c.mu.Lock()
	delete(c.entries, cacheKey(userID, sessionID))
	c.mu.Unlock()
}
