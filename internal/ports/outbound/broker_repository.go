package outbound

import (
	"context"
	"errors"

	"github.com/tradespotter/brokerhub/internal/domain/entity"
)

// ErrBrokerNotFound is returned when no active broker matches a lookup.
var ErrBrokerNotFound = errors.New("broker not found")

// BrokerRepository defines read access to the broker catalog.
// Only active brokers are ever returned.
type BrokerRepository interface {
	// ListBrokers returns active brokers matching the filter, highest rating first.
	ListBrokers(ctx context.Context, filter entity.BrokerFilter) ([]*entity.Broker, error)

	// GetBrokerBySlug returns an active broker with all its translations.
	// Returns ErrBrokerNotFound if no active broker has the slug.
	GetBrokerBySlug(ctx context.Context, slug string) (*entity.Broker, error)

	// ListRelatedBrokers returns the top rated active brokers of a type, excluding one broker.
	ListRelatedBrokers(ctx context.Context, brokerType entity.BrokerType, excludeID int64, limit int) ([]*entity.Broker, error)
}
