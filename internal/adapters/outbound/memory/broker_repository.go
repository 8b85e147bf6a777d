package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/tradespotter/brokerhub/internal/domain/entity"
	"github.com/tradespotter/brokerhub/internal/ports/outbound"
)

// Compile-time check that BrokerRepository implements outbound.BrokerRepository
var _ outbound.BrokerRepository = (*BrokerRepository)(nil)

// BrokerRepository is an in-memory implementation of the outbound.BrokerRepository port.
type BrokerRepository struct {
	mu      sync.RWMutex
	brokers map[int64]*entity.Broker
}

// NewBrokerRepository creates a new in-memory broker repository.
func NewBrokerRepository(brokers ...*entity.Broker) *BrokerRepository {
	r := &BrokerRepository{
		brokers: make(map[int64]*entity.Broker),
	}
	for _, b := range brokers {
		r.brokers[b.ID] = b
	}
	return r
}

// Add stores or replaces a broker.
func (r *BrokerRepository) Add(b *entity.Broker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.brokers[b.ID] = b
}

// ListBrokers returns active brokers matching the filter, highest rating first.
func (r *BrokerRepository) ListBrokers(ctx context.Context, filter entity.BrokerFilter) ([]*entity.Broker, error) {
	filter = filter.Normalize()
	query := strings.ToLower(filter.Query)

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*entity.Broker, 0)
	for _, b := range r.brokers {
		if !b.Active {
			continue
		}
		if filter.BrokerType != "" && b.BrokerType != filter.BrokerType {
			continue
		}
		if filter.FeaturedOnly && !b.IsFeatured {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(b.Name), query) {
			continue
		}
		result = append(result, b)
	}
	sortByRating(result)
	if len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// GetBrokerBySlug returns an active broker.
func (r *BrokerRepository) GetBrokerBySlug(ctx context.Context, slug string) (*entity.Broker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.brokers {
		if b.Active && b.Slug == slug {
			return b, nil
		}
	}
	return nil, fmt.Errorf("slug %q: %w", slug, outbound.ErrBrokerNotFound)
}

// ListRelatedBrokers returns the top rated active brokers of a type, excluding one broker.
func (r *BrokerRepository) ListRelatedBrokers(ctx context.Context, brokerType entity.BrokerType, excludeID int64, limit int) ([]*entity.Broker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*entity.Broker, 0)
	for _, b := range r.brokers {
		if b.Active && b.BrokerType == brokerType && b.ID != excludeID {
			result = append(result, b)
		}
	}
	sortByRating(result)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// sortByRating orders by rating descending, then ID for a stable result.
func sortByRating(brokers []*entity.Broker) {
	sort.Slice(brokers, func(i, j int) bool {
		if brokers[i].Rating != brokers[j].Rating {
			return brokers[i].Rating > brokers[j].Rating
		}
		return brokers[i].ID < brokers[j].ID
	})
}
