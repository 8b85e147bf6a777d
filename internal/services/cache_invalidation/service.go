// Package cache_invalidation provides an SQS consumer that clears the local
// risk warning cache when another instance changes the template table.
//
// Template events are published to SNS by the admin API and fanned out to one
// queue per instance. Messages arrive either as the raw event JSON (raw message
// delivery) or wrapped in the SNS notification envelope; both are accepted.
package cache_invalidation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tradespotter/brokerhub/internal/ports/outbound"
)

// CacheClearer is the part of the resolver this worker needs.
type CacheClearer interface {
	ClearCache()
}

// Config holds configuration for the cache invalidation worker.
type Config struct {
	MaxMessages  int
	PollInterval time.Duration

	// Origin is this instance's identifier. Events it published itself are
	// acknowledged without clearing again.
	Origin string

	Logger *slog.Logger
}

func configDefaults() Config {
	return Config{
		MaxMessages:  10,
		PollInterval: time.Second,
		Logger:       slog.Default(),
	}
}

// Service processes template events from SQS.
type Service struct {
	config   Config
	consumer outbound.SQSConsumer
	cache    CacheClearer

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	logger *slog.Logger
}

// NewService creates a new cache invalidation worker.
func NewService(config Config, consumer outbound.SQSConsumer, cache CacheClearer) (*Service, error) {
	if consumer == nil {
		return nil, fmt.Errorf("consumer cannot be nil")
	}
	if cache == nil {
		return nil, fmt.Errorf("cache cannot be nil")
	}

	defaults := configDefaults()
	if config.MaxMessages == 0 {
		config.MaxMessages = defaults.MaxMessages
	}
	if config.PollInterval == 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.Logger == nil {
		config.Logger = defaults.Logger
	}

	return &Service{
		config:   config,
		consumer: consumer,
		cache:    cache,
		logger:   config.Logger.With("component", "cache-invalidation-worker"),
	}, nil
}

// Start begins polling the queue in the background.
func (s *Service) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.processLoop()

	s.logger.Info("cache invalidation worker started", "pollInterval", s.config.PollInterval)
	return nil
}

// Stop stops polling and waits for the current batch to finish.
func (s *Service) Stop() error {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	s.logger.Info("cache invalidation worker stopped")
	return nil
}

func (s *Service) processLoop() {
	defer close(s.done)

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if err := s.processMessages(s.ctx); err != nil {
				s.logger.Error("error processing messages", "error", err)
			}
		}
	}
}

func (s *Service) processMessages(ctx context.Context) error {
	messages, err := s.consumer.ReceiveMessages(ctx, s.config.MaxMessages)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("receiving messages: %w", err)
	}

	if len(messages) == 0 {
		return nil
	}

	s.logger.Debug("received messages", "count", len(messages))

	// One clear covers every event in the batch.
	invalidate := false
	var errs []error
	for _, msg := range messages {
		apply, err := s.processMessage(msg)
		if err != nil {
			// Malformed messages can never succeed, so they are dropped
			// instead of being redelivered.
			s.logger.Warn("discarding malformed message",
				"messageId", msg.MessageID,
				"receiveCount", msg.ReceiveCount,
				"error", err)
		}
		invalidate = invalidate || apply

		if deleteErr := s.consumer.DeleteMessage(ctx, msg.ReceiptHandle); deleteErr != nil {
			s.logger.Error("failed to delete message", "messageId", msg.MessageID, "error", deleteErr)
			errs = append(errs, deleteErr)
		}
	}

	if invalidate {
		s.cache.ClearCache()
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// snsEnvelope is the subset of an SNS notification delivered without raw
// message delivery.
type snsEnvelope struct {
	Type    string `json:"Type"`
	Message string `json:"Message"`
}

// processMessage reports whether msg requires the local cache to be cleared.
func (s *Service) processMessage(msg outbound.SQSMessage) (bool, error) {
	event, err := decodeEvent(msg.Body)
	if err != nil {
		return false, err
	}

	switch event.Type {
	case outbound.EventTypeTemplateUpserted, outbound.EventTypeTemplateDeleted, outbound.EventTypeCacheCleared:
	default:
		return false, fmt.Errorf("unknown event type %q", event.Type)
	}

	if s.config.Origin != "" && event.Origin == s.config.Origin {
		s.logger.Debug("skipping own event", "type", event.Type, "cacheKey", event.GetCacheKey())
		return false, nil
	}

	s.logger.Info("template change received",
		"type", event.Type,
		"cacheKey", event.GetCacheKey(),
		"origin", event.Origin)
	return true, nil
}

func decodeEvent(body string) (outbound.TemplateEvent, error) {
	var envelope snsEnvelope
	if err := json.Unmarshal([]byte(body), &envelope); err != nil {
		return outbound.TemplateEvent{}, fmt.Errorf("parsing message body: %w", err)
	}
	if envelope.Type == "Notification" {
		body = envelope.Message
	}

	var event outbound.TemplateEvent
	if err := json.Unmarshal([]byte(body), &event); err != nil {
		return outbound.TemplateEvent{}, fmt.Errorf("parsing template event: %w", err)
	}
	return event, nil
}
