package outbound

import (
	"context"
	"errors"

	"github.com/tradespotter/brokerhub/internal/domain/entity"
)

// ErrTemplateNotFound is returned when no template exists for a (language, broker type) pair.
var ErrTemplateNotFound = errors.New("risk warning template not found")

// TemplateStore is the read side of the risk warning template table.
type TemplateStore interface {
	// GetTemplate returns the stored template for the pair.
	// Returns ErrTemplateNotFound (possibly wrapped) when the row does not exist.
	GetTemplate(ctx context.Context, languageCode string, brokerType entity.BrokerType) (*entity.RiskTemplate, error)
}

// TemplateRepository adds the administrative write operations.
type TemplateRepository interface {
	TemplateStore

	// ListTemplates returns all templates ordered by language and broker type.
	ListTemplates(ctx context.Context) ([]*entity.RiskTemplate, error)

	// UpsertTemplate inserts or replaces a template.
	// Conflict resolution: ON CONFLICT (language_code, broker_type) DO UPDATE
	UpsertTemplate(ctx context.Context, template *entity.RiskTemplate) error

	// DeleteTemplate removes a template. Returns ErrTemplateNotFound if absent.
	DeleteTemplate(ctx context.Context, languageCode string, brokerType entity.BrokerType) error
}

// SharedTemplateCache is a cache shared by all instances (e.g. Redis), sitting
// between the in-process cache and the template table.
type SharedTemplateCache interface {
	// Get returns the cached template text. Returns "", false, nil on a miss.
	Get(ctx context.Context, languageCode string, brokerType entity.BrokerType) (string, bool, error)

	// Version returns an opaque token for the pair's invalidation state. It
	// changes whenever Delete or Clear affects the pair.
	Version(ctx context.Context, languageCode string, brokerType entity.BrokerType) (string, error)

	// SetIfVersion stores the template text with the cache's TTL only if the
	// pair's version still equals version. It reports whether the write happened.
	SetIfVersion(ctx context.Context, languageCode string, brokerType entity.BrokerType, template, version string) (bool, error)

	// Delete removes a cached template and bumps the pair's version.
	Delete(ctx context.Context, languageCode string, brokerType entity.BrokerType) error

	// Clear removes every cached template and bumps every version.
	Clear(ctx context.Context) error

	// Close closes the cache connection.
	Close() error
}
