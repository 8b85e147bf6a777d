package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/tradespotter/brokerhub/internal/ports/outbound"
)

// Compile-time check that EventSink implements outbound.EventSink
var _ outbound.EventSink = (*EventSink)(nil)

// EventSink records published template events in order. It replaces SNS in
// tests and in single-instance setups where nothing listens.
type EventSink struct {
	mu     sync.Mutex
	events []outbound.TemplateEvent
	err    error
	closed bool
}

// NewEventSink creates an empty sink.
func NewEventSink() *EventSink {
	return &EventSink{}
}

// Publish records the event. Events other than outbound.TemplateEvent are
// rejected. Publishing after Close is a no-op.
func (s *EventSink) Publish(ctx context.Context, event outbound.Event) error {
	te, ok := event.(outbound.TemplateEvent)
	if !ok {
		return fmt.Errorf("unsupported event %T", event)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, te)
	return nil
}

// Close stops recording.
func (s *EventSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Events returns a copy of everything recorded so far.
func (s *EventSink) Events() []outbound.TemplateEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]outbound.TemplateEvent(nil), s.events...)
}

// EventsOfType returns the recorded events of one type.
func (s *EventSink) EventsOfType(eventType outbound.EventType) []outbound.TemplateEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []outbound.TemplateEvent
	for _, e := range s.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of recorded events.
func (s *EventSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// FailWith makes Publish return err until reset with nil.
func (s *EventSink) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}
