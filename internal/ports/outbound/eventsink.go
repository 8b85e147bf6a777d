package outbound

import (
	"context"
	"time"
)

// EventType represents the type of event.
type EventType string

// Event type constants.
const (
	EventTypeTemplateUpserted EventType = "risk_warning_template.upserted"
	EventTypeTemplateDeleted  EventType = "risk_warning_template.deleted"
	EventTypeCacheCleared     EventType = "risk_warning_cache.cleared"
)

// Event is the interface that all event types implement.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType
	// GetCacheKey returns the affected "<language>:<brokerType>" key, or "" for all keys.
	GetCacheKey() string
}

// TemplateEvent is published after an administrative change to the template
// table. Other instances use it to drop their in-process caches.
type TemplateEvent struct {
	// Type is the event type, repeated in the payload so SQS consumers can
	// dispatch without reading SNS message attributes.
	Type EventType `json:"type"`

	// LanguageCode of the affected template; empty for cache-wide events.
	LanguageCode string `json:"languageCode,omitempty"`

	// BrokerType of the affected template; empty for cache-wide events.
	BrokerType string `json:"brokerType,omitempty"`

	// OccurredAt is when the change was committed.
	OccurredAt time.Time `json:"occurredAt"`

	// Origin identifies the instance that made the change. Instances skip
	// their own events.
	Origin string `json:"origin,omitempty"`
}

func (e TemplateEvent) EventType() EventType { return e.Type }

func (e TemplateEvent) GetCacheKey() string {
	if e.LanguageCode == "" && e.BrokerType == "" {
		return ""
	}
	return e.LanguageCode + ":" + e.BrokerType
}

// EventSink defines the interface for publishing template change events.
type EventSink interface {
	// Publish publishes an event.
	Publish(ctx context.Context, event Event) error

	// Close closes the sink and releases any resources.
	Close() error
}
