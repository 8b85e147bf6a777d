// Package memory provides in-memory implementations of the outbound ports.
// Useful for testing and development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tradespotter/brokerhub/internal/domain/entity"
	"github.com/tradespotter/brokerhub/internal/ports/outbound"
)

// Compile-time check that TemplateRepository implements outbound.TemplateRepository
var _ outbound.TemplateRepository = (*TemplateRepository)(nil)

// TemplateRepository is an in-memory implementation of the outbound.TemplateRepository port.
// It counts GetTemplate calls per key and can be told to fail, which the
// resolver tests use to observe caching and fallback behavior.
type TemplateRepository struct {
	mu        sync.RWMutex
	templates map[string]*entity.RiskTemplate
	getCalls  map[string]int
	getErrs   map[string]error
	getErr    error

	// onGet runs before every GetTemplate lookup, outside the lock.
	onGet func(ctx context.Context, key string)
}

// NewTemplateRepository creates a new in-memory template repository.
func NewTemplateRepository() *TemplateRepository {
	return &TemplateRepository{
		templates: make(map[string]*entity.RiskTemplate),
		getCalls:  make(map[string]int),
		getErrs:   make(map[string]error),
	}
}

// Put stores a template without validation. Tests use it to seed malformed rows.
func (r *TemplateRepository) Put(languageCode string, brokerType entity.BrokerType, template string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rt := &entity.RiskTemplate{LanguageCode: languageCode, BrokerType: brokerType, Template: template}
	r.templates[rt.CacheKey()] = rt
}

// GetTemplate returns the stored template for the pair.
func (r *TemplateRepository) GetTemplate(ctx context.Context, languageCode string, brokerType entity.BrokerType) (*entity.RiskTemplate, error) {
	key := entity.TemplateCacheKey(languageCode, brokerType)

	r.mu.Lock()
	r.getCalls[key]++
	hook := r.onGet
	r.mu.Unlock()

	if hook != nil {
		hook(ctx, key)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := r.getErrs[key]; err != nil {
		return nil, err
	}
	if r.getErr != nil {
		return nil, r.getErr
	}
	rt, ok := r.templates[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, outbound.ErrTemplateNotFound)
	}
	cp := *rt
	return &cp, nil
}

// ListTemplates returns all templates ordered by language and broker type.
func (r *TemplateRepository) ListTemplates(ctx context.Context) ([]*entity.RiskTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*entity.RiskTemplate, 0, len(r.templates))
	for _, rt := range r.templates {
		cp := *rt
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].LanguageCode != result[j].LanguageCode {
			return result[i].LanguageCode < result[j].LanguageCode
		}
		return result[i].BrokerType < result[j].BrokerType
	})
	return result, nil
}

// UpsertTemplate inserts or replaces a template.
func (r *TemplateRepository) UpsertTemplate(ctx context.Context, template *entity.RiskTemplate) error {
	if template == nil {
		return fmt.Errorf("template cannot be nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *template
	r.templates[cp.CacheKey()] = &cp
	return nil
}

// DeleteTemplate removes a template.
func (r *TemplateRepository) DeleteTemplate(ctx context.Context, languageCode string, brokerType entity.BrokerType) error {
	key := entity.TemplateCacheKey(languageCode, brokerType)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.templates[key]; !ok {
		return fmt.Errorf("%s: %w", key, outbound.ErrTemplateNotFound)
	}
	delete(r.templates, key)
	return nil
}

// GetCalls returns how often GetTemplate was called for the pair.
func (r *TemplateRepository) GetCalls(languageCode string, brokerType entity.BrokerType) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.getCalls[entity.TemplateCacheKey(languageCode, brokerType)]
}

// TotalGetCalls returns the number of GetTemplate calls across all keys.
func (r *TemplateRepository) TotalGetCalls() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := 0
	for _, n := range r.getCalls {
		total += n
	}
	return total
}

// SetGetError makes GetTemplate fail for every key. Pass nil to reset.
func (r *TemplateRepository) SetGetError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getErr = err
}

// SetKeyError makes GetTemplate fail for one pair. Pass nil to reset.
func (r *TemplateRepository) SetKeyError(languageCode string, brokerType entity.BrokerType, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := entity.TemplateCacheKey(languageCode, brokerType)
	if err == nil {
		delete(r.getErrs, key)
		return
	}
	r.getErrs[key] = err
}

// OnGet sets a callback run at the start of every GetTemplate call.
func (r *TemplateRepository) OnGet(fn func(ctx context.Context, key string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onGet = fn
}
