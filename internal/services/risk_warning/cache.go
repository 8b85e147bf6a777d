package risk_warning

import (
	"sync"
	"time"
)

// DefaultCacheTTL is how long a fetched template is served before it is refetched.
const DefaultCacheTTL = 5 * time.Minute

type cacheEntry struct {
	template  string
	expiresAt time.Time
}

// TemplateCache is the in-process, time-bound memo of fetched templates, keyed
// by "<language>:<brokerType>". It is created by whoever wires the resolver and
// shared by every request the resolver serves.
type TemplateCache struct {
	mu         sync.RWMutex
	entries    map[string]cacheEntry
	generation uint64
	ttl        time.Duration
	now        func() time.Time
}

// NewTemplateCache creates an empty cache. A ttl <= 0 uses DefaultCacheTTL and a
// nil clock uses time.Now.
func NewTemplateCache(ttl time.Duration, now func() time.Time) *TemplateCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if now == nil {
		now = time.Now
	}
	return &TemplateCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     now,
	}
}

// TTL returns the configured entry lifetime.
func (c *TemplateCache) TTL() time.Duration {
	return c.ttl
}

// Get returns the template for key while its entry has not expired.
func (c *TemplateCache) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	if !ok || c.now().After(entry.expiresAt) {
		return "", false
	}
	return entry.template, true
}

// Set stores template under key, expiring one TTL from now. An existing entry is overwritten.
func (c *TemplateCache) Set(key, template string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(key, template)
}

// SetIfGeneration stores template only if the cache has not been cleared since
// gen was read. It reports whether the entry was written.
func (c *TemplateCache) SetIfGeneration(key, template string, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		return false
	}
	c.set(key, template)
	return true
}

func (c *TemplateCache) set(key, template string) {
	c.entries[key] = cacheEntry{
		template:  template,
		expiresAt: c.now().Add(c.ttl),
	}
}

// Replace rewrites the template of a live entry in place, keeping its expiry.
// Missing or expired entries are left alone.
func (c *TemplateCache) Replace(key, template string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok || c.now().After(entry.expiresAt) {
		return
	}
	entry.template = template
	c.entries[key] = entry
}

// Generation is incremented by every Clear.
func (c *TemplateCache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// Clear drops every entry. Fetches that started before the call cannot
// repopulate the cache afterwards.
func (c *TemplateCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
	c.generation++
}

// Len returns the number of entries, expired ones included.
func (c *TemplateCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
