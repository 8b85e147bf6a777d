// Package sns implements the EventSink interface using AWS SNS.
//
// This adapter publishes risk warning template events to a single SNS topic.
// Every API instance subscribes its own SQS queue to the topic and drops its
// in-process template cache when an event arrives.
//
// Message Attributes:
//   - eventType: "risk_warning_template.upserted", "risk_warning_template.deleted"
//     or "risk_warning_cache.cleared"
//   - cacheKey: the affected "<language>:<brokerType>" key, omitted for cache-wide events
//
// FIFO topics (ARN ending in ".fifo") get one message group, so every
// instance sees invalidations in publish order, and a content based
// deduplication ID.
//
// For testing, use the memory.EventSink adapter instead.
package sns

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/tradespotter/brokerhub/internal/pkg/retry"
	"github.com/tradespotter/brokerhub/internal/ports/outbound"
)

// fifoGroupID is the single message group used on FIFO topics.
const fifoGroupID = "risk-warning-templates"

// Compile-time check that EventSink implements outbound.EventSink
var _ outbound.EventSink = (*EventSink)(nil)

// SNSPublisher defines the subset of SNS client methods used by EventSink.
// This interface allows for easy mocking in tests.
type SNSPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Config holds configuration for the SNS event sink.
type Config struct {
	// TopicARN is the topic template events are published to.
	TopicARN string

	// MaxRetries is the maximum number of retry attempts for transient failures.
	MaxRetries int

	// InitialBackoff is the initial delay before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum delay between retries.
	MaxBackoff time.Duration

	// BackoffFactor is the multiplier applied to backoff after each retry.
	BackoffFactor float64

	// Logger is the structured logger for the sink.
	Logger *slog.Logger
}

// ConfigDefaults returns a config with default values.
func ConfigDefaults() Config {
	return Config{
		MaxRetries:     3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		BackoffFactor:  2.0,
		Logger:         slog.Default(),
	}
}

// EventSink publishes events to AWS SNS.
type EventSink struct {
	client    SNSPublisher
	config    Config
	logger    *slog.Logger
	closeOnce sync.Once
	closed    bool
	mu        sync.RWMutex
}

// NewEventSink creates a new SNS event sink.
func NewEventSink(client SNSPublisher, config Config) (*EventSink, error) {
	if client == nil {
		return nil, errors.New("sns client is required")
	}
	if config.TopicARN == "" {
		return nil, errors.New("topic ARN is required")
	}

	defaults := ConfigDefaults()
	if config.MaxRetries == 0 {
		config.MaxRetries = defaults.MaxRetries
	}
	if config.InitialBackoff == 0 {
		config.InitialBackoff = defaults.InitialBackoff
	}
	if config.MaxBackoff == 0 {
		config.MaxBackoff = defaults.MaxBackoff
	}
	if config.BackoffFactor == 0 {
		config.BackoffFactor = defaults.BackoffFactor
	}
	if config.Logger == nil {
		config.Logger = defaults.Logger
	}

	return &EventSink{
		client: client,
		config: config,
		logger: config.Logger.With("component", "sns-eventsink"),
	}, nil
}

// Publish publishes an event to SNS.
func (s *EventSink) Publish(ctx context.Context, event outbound.Event) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return errors.New("event sink is closed")
	}
	s.mu.RUnlock()

	messageBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	attributes := map[string]types.MessageAttributeValue{
		"eventType": {
			DataType:    aws.String("String"),
			StringValue: aws.String(string(event.EventType())),
		},
	}
	if key := event.GetCacheKey(); key != "" {
		attributes["cacheKey"] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(key),
		}
	}

	input := &sns.PublishInput{
		TopicArn:          aws.String(s.config.TopicARN),
		Message:           aws.String(string(messageBytes)),
		MessageAttributes: attributes,
	}
	if isFIFOTopic(s.config.TopicARN) {
		sum := sha256.Sum256(messageBytes)
		input.MessageGroupId = aws.String(fifoGroupID)
		input.MessageDeduplicationId = aws.String(hex.EncodeToString(sum[:]))
	}

	return s.publishWithRetry(ctx, input, event)
}

// publishWithRetry attempts to publish with exponential backoff on transient failures.
func (s *EventSink) publishWithRetry(ctx context.Context, input *sns.PublishInput, event outbound.Event) error {
	cfg := retry.Config{
		MaxRetries:     s.config.MaxRetries,
		InitialBackoff: s.config.InitialBackoff,
		MaxBackoff:     s.config.MaxBackoff,
		BackoffFactor:  s.config.BackoffFactor,
	}

	onRetry := func(attempt int, err error, backoff time.Duration) {
		s.logger.Warn("request failed, retrying",
			"attempt", attempt,
			"maxRetries", s.config.MaxRetries,
			"backoff", backoff,
			"error", err,
			"eventType", event.EventType(),
			"cacheKey", event.GetCacheKey(),
		)
	}

	err := retry.DoVoid(ctx, cfg, isRetryableError, onRetry, func() error {
		_, err := s.client.Publish(ctx, input)
		return err
	})
	if err != nil {
		s.logger.Error("failed to publish event",
			"error", err,
			"eventType", event.EventType(),
			"cacheKey", event.GetCacheKey(),
		)
		return fmt.Errorf("failed to publish to SNS: %w", err)
	}
	return nil
}

func isFIFOTopic(arn string) bool {
	return strings.HasSuffix(arn, ".fifo")
}

// isRetryableError determines if an error should trigger a retry.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// Context errors are not retryable
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	// Permanent request errors
	var notFoundErr *types.NotFoundException
	if errors.As(err, &notFoundErr) {
		return false
	}
	var authErr *types.AuthorizationErrorException
	if errors.As(err, &authErr) {
		return false
	}
	var paramErr *types.InvalidParameterException
	if errors.As(err, &paramErr) {
		return false
	}

	// Throttling, internal errors and unknown errors (network issues, etc.) are retried
	return true
}

// Close marks the sink as closed and prevents further publishing.
func (s *EventSink) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		s.logger.Info("SNS event sink closed")
	})
	return nil
}
