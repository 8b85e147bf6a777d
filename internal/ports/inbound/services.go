// Package inbound contains the primary/inbound ports.
// These interfaces define the use cases that the application exposes.
package inbound

import (
	"context"
	"errors"

	"github.com/tradespotter/brokerhub/internal/domain/entity"
)

// RiskWarningResolver resolves localized risk disclaimers.
// Inbound adapters (HTTP handlers, workers) call these methods.
type RiskWarningResolver interface {
	// Resolve returns the disclaimer for the given percentage, consulting the
	// template store through the in-process cache. It never fails; on any
	// lookup problem a less specific disclaimer is returned.
	Resolve(ctx context.Context, percentage any, brokerType, languageCode string) string

	// ResolveSync formats the disclaimer from the built-in table only.
	ResolveSync(percentage any, brokerType, languageCode string) string

	// ClearCache drops every cached template so the next Resolve refetches.
	ClearCache()
}

// ErrInvalidTemplate is returned by TemplateAdmin.UpsertTemplate for text that cannot be stored.
var ErrInvalidTemplate = errors.New("invalid risk warning template")

// TemplateAdmin defines the administrative use cases for risk warning templates.
type TemplateAdmin interface {
	ListTemplates(ctx context.Context) ([]*entity.RiskTemplate, error)
	UpsertTemplate(ctx context.Context, languageCode, brokerType, template string) (*entity.RiskTemplate, error)
	DeleteTemplate(ctx context.Context, languageCode, brokerType string) error
	ClearCache(ctx context.Context)
}

// BrokerCatalog defines the read use cases of the public broker listing.
type BrokerCatalog interface {
	ListBrokers(ctx context.Context, filter entity.BrokerFilter, languageCode string) ([]*BrokerView, error)
	GetBroker(ctx context.Context, slug, languageCode string) (*BrokerDetail, error)
}

// BrokerView is a broker decorated with its resolved risk warning and the
// translation for the requested language.
type BrokerView struct {
	Broker      *entity.Broker
	Translation *entity.BrokerTranslation
	RiskWarning string
}

// BrokerDetail is a BrokerView plus the brokers shown next to it.
type BrokerDetail struct {
	BrokerView
	Related []*entity.Broker
}

// HealthChecker defines the interface for services that can report readiness and liveness.
// This enables health checking during rolling deployments, ensuring new instances
// can reach their dependencies before old ones are terminated.
type HealthChecker interface {
	// IsReady returns true when the service is ready to handle traffic.
	IsReady() bool

	// IsHealthy returns true when the service is operating normally.
	IsHealthy() bool
}
