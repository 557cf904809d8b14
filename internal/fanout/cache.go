package fanout

import (
	"strings"
	"sync"
	"time"

	"github.com/sells-group/enrich-cli/internal/model"
)

type cacheKey struct {
	subject  string
	region   string
	provider string
}

type cacheEntry struct {
	finding  *model.Finding
	cachedAt time.Time
}

// Cache holds recent lookup results keyed by (normalized subject id,
// region, provider) with a fixed TTL. Reads and writes never block lookups
// for a different key beyond the brief map access.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[cacheKey]cacheEntry
	nowFunc func() time.Time
}

// NewCache creates a lookup cache. A non-positive ttl disables caching.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: make(map[cacheKey]cacheEntry),
		nowFunc: time.Now,
	}
}

// WithNow sets the clock for testing.
func (c *Cache) WithNow(now func() time.Time) *Cache {
	c.nowFunc = now
	return c
}

func (c *Cache) key(subjectID, region, provider string) cacheKey {
	return cacheKey{
		subject:  strings.ToLower(strings.TrimSpace(subjectID)),
		region:   strings.ToLower(strings.TrimSpace(region)),
		provider: provider,
	}
}

// Get returns the cached finding for the key if present and not expired.
func (c *Cache) Get(subjectID, region, provider string) (*model.Finding, bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	k := c.key(subjectID, region, provider)

	c.mu.RLock()
	e, ok := c.entries[k]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.nowFunc().Sub(e.cachedAt) > c.ttl {
		c.mu.Lock()
		delete(c.entries, k)
		c.mu.Unlock()
		return nil, false
	}
	return e.finding, true
}

// Put stores the last finding for the key.
func (c *Cache) Put(subjectID, region, provider string, f *model.Finding) {
	if c.ttl <= 0 || f == nil {
		return
	}
	k := c.key(subjectID, region, provider)
	c.mu.Lock()
	c.entries[k] = cacheEntry{finding: f, cachedAt: c.nowFunc()}
	c.mu.Unlock()
}

// Len returns the number of cached entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
