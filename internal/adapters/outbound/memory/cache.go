// cache.go provides an in-memory implementation of SharedTemplateCache.
//
// It stands in for Redis in tests and in deployments that run a single
// instance. Entries do not expire.
//
// All operations are thread-safe. Data is lost on process restart.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/tradespotter/brokerhub/internal/domain/entity"
	"github.com/tradespotter/brokerhub/internal/ports/outbound"
)

// Compile-time check that TemplateCache implements outbound.SharedTemplateCache
var _ outbound.SharedTemplateCache = (*TemplateCache)(nil)

// TemplateCache is an in-memory implementation of the SharedTemplateCache port.
type TemplateCache struct {
	mu        sync.RWMutex
	templates map[string]string
	versions  map[string]uint64
	epoch     uint64
	closed    bool

	// getErr is returned by Get when set.
	getErr error
}

// NewTemplateCache creates a new in-memory shared template cache.
func NewTemplateCache() *TemplateCache {
	return &TemplateCache{
		templates: make(map[string]string),
		versions:  make(map[string]uint64),
	}
}

// Get returns the cached template text.
func (c *TemplateCache) Get(ctx context.Context, languageCode string, brokerType entity.BrokerType) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.getErr != nil {
		return "", false, c.getErr
	}
	tmpl, ok := c.templates[entity.TemplateCacheKey(languageCode, brokerType)]
	return tmpl, ok, nil
}

// Version returns the pair's invalidation token as "epoch:version".
func (c *TemplateCache) Version(ctx context.Context, languageCode string, brokerType entity.BrokerType) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.versionLocked(entity.TemplateCacheKey(languageCode, brokerType)), nil
}

func (c *TemplateCache) versionLocked(key string) string {
	return fmt.Sprintf("%d:%d", c.epoch, c.versions[key])
}

// SetIfVersion stores the template text unless the pair was invalidated
// after version was read.
func (c *TemplateCache) SetIfVersion(ctx context.Context, languageCode string, brokerType entity.BrokerType, template, version string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := entity.TemplateCacheKey(languageCode, brokerType)
	if c.versionLocked(key) != version {
		return false, nil
	}
	c.templates[key] = template
	return true, nil
}

// Delete removes a cached template.
func (c *TemplateCache) Delete(ctx context.Context, languageCode string, brokerType entity.BrokerType) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := entity.TemplateCacheKey(languageCode, brokerType)
	delete(c.templates, key)
	c.versions[key]++
	return nil
}

// Clear removes every cached template.
func (c *TemplateCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.templates = make(map[string]string)
	c.epoch++
	return nil
}

// Close marks the cache as closed.
func (c *TemplateCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Template returns the cached text for the pair, bypassing SetGetError.
func (c *TemplateCache) Template(languageCode string, brokerType entity.BrokerType) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tmpl, ok := c.templates[entity.TemplateCacheKey(languageCode, brokerType)]
	return tmpl, ok
}

// Len returns the number of cached templates.
func (c *TemplateCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.templates)
}

// SetGetError makes subsequent Get calls fail with err. Pass nil to reset.
func (c *TemplateCache) SetGetError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.getErr = err
}
