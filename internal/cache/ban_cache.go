package cache

import (
	"sync"
	"time"

	"forum-warden/internal/crash"
)

// Source answers the authoritative ban question. *store.Store satisfies it.
type Source interface {
	IsBanned(channelID, postID, userID string) bool
}

type key struct {
	channelID string
	postID    string
	userID    string
}

type entry struct {
	isBanned  bool
	fetchedAt time.Time
}

const cleanupInterval = 15 * time.Minute

// BanCache memoizes ban verdicts with a uniform TTL. Entries are refreshed
// lazily on miss or expiry and evicted eagerly on mutation, so a verdict is
// never observably stale relative to a mutation in the same process.
type BanCache struct {
	mu      sync.RWMutex
	entries map[key]entry

	source Source
	ttl    time.Duration
	now    func() time.Time

	done      chan struct{}
	closeOnce sync.Once
}

func NewBanCache(source Source, ttl time.Duration) *BanCache {
	c := &BanCache{
		entries: make(map[key]entry),
		source:  source,
		ttl:     ttl,
		now:     time.Now,
		done:    make(chan struct{}),
	}

	crash.SafeGoroutine("ban-cache-cleanup", c.cleanupExpired)

	return c
}

// Close stops the background cleanup sweeper. Safe to call more than once.
func (c *BanCache) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// Lookup returns the cached verdict while it is within TTL, otherwise queries
// the source and refreshes the entry.
func (c *BanCache) Lookup(channelID, postID, userID string) bool {
	k := key{channelID: channelID, postID: postID, userID: userID}
	now := c.now()

	c.mu.RLock()
	e, ok := c.entries[k]
	c.mu.RUnlock()
	if ok && now.Sub(e.fetchedAt) < c.ttl {
		return e.isBanned
	}

	isBanned := c.source.IsBanned(channelID, postID, userID)

	c.mu.Lock()
	c.entries[k] = entry{isBanned: isBanned, fetchedAt: now}
	c.mu.Unlock()

	return isBanned
}

// Invalidate unconditionally evicts the entry for the triple. Every ban-state
// mutator calls this after persisting.
func (c *BanCache) Invalidate(channelID, postID, userID string) {
	k := key{channelID: channelID, postID: postID, userID: userID}

	c.mu.Lock()
	delete(c.entries, k)
	c.mu.Unlock()
}

// Len reports the number of cached entries, expired or not.
func (c *BanCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// cleanupExpired periodically removes expired entries until Close.
func (c *BanCache) cleanupExpired() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *BanCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for k, e := range c.entries {
		if now.Sub(e.fetchedAt) >= c.ttl {
			delete(c.entries, k)
		}
	}
}
