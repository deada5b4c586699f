// Package sessioncache implements the Session-Validation Cache: a small
// TTL cache of whether a session id was found recently. The OTP status
// handler consults it before a store lookup. Expiry is lazy on read
// and swept in batch by a janitor, mirroring the rest of the core's
// per-entry mutex, top-level-map ownership style.
package sessioncache

import (
	"context"
	"sync"
	"time"
)

const defaultTTL = 30 * time.Second

type entry struct {
	valid    bool
	cachedAt time.Time
	ttl      time.Duration
}

// Cache is the Session-Validation Cache. A read never refreshes an entry's
// TTL; only an explicit Set does.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewCache builds an empty Session-Validation Cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]entry)}
}

// Get returns the cached validity for id and whether the entry is present
// and unexpired. A lazily-expired entry is treated as absent but not
// removed here; the janitor reclaims it.
func (c *Cache) Get(id string) (valid bool, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, present := c.entries[id]
	if !present || time.Since(e.cachedAt) > e.ttl {
		return false, false
	}
	return e.valid, true
}

// Set records id's validity with the default TTL, overwriting any prior
// entry.
func (c *Cache) Set(id string, valid bool) {
	c.SetTTL(id, valid, defaultTTL)
}

// SetTTL records id's validity with an explicit TTL.
func (c *Cache) SetTTL(id string, valid bool, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = entry{valid: valid, cachedAt: time.Now(), ttl: ttl}
}

// Remove evicts id unconditionally.
func (c *Cache) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

// Stats summarizes the cache's current contents.
type Stats struct {
	Total   int
	Valid   int
	Invalid int
	Expired int
}

// Stats returns a snapshot of the cache's contents, classifying each entry
// as valid, invalid, or expired without removing anything.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var s Stats
	s.Total = len(c.entries)
	now := time.Now()
	for _, e := range c.entries {
		switch {
		case now.Sub(e.cachedAt) > e.ttl:
			s.Expired++
		case e.valid:
			s.Valid++
		default:
			s.Invalid++
		}
	}
	return s
}

// CleanupExpired removes every entry whose TTL has lapsed and returns the
// count removed. It takes the single top-level lock for the whole sweep:
// entries here have no per-entry mutex to contend on, unlike the other
// components' record types, so there is no benefit to a snapshot-then-
// remove split.
func (c *Cache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for id, e := range c.entries {
		if now.Sub(e.cachedAt) > e.ttl {
			delete(c.entries, id)
			removed++
		}
	}
	return removed
}

// RunJanitor sweeps expired entries every interval until ctx is canceled.
func (c *Cache) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.CleanupExpired()
		}
	}
}
