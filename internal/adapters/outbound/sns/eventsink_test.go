package sns

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/tradespotter/brokerhub/internal/ports/outbound"
)

// mockSNSClient implements SNSPublisher for testing.
type mockSNSClient struct {
	mu          sync.Mutex
	publishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
	calls       []*sns.PublishInput
}

func (m *mockSNSClient) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	m.mu.Lock()
	m.calls = append(m.calls, params)
	m.mu.Unlock()
	if m.publishFunc != nil {
		return m.publishFunc(ctx, params, optFns...)
	}
	return &sns.PublishOutput{
		MessageId: aws.String("test-message-id"),
	}, nil
}

func (m *mockSNSClient) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

const testTopicARN = "arn:aws:sns:eu-central-1:123456789:risk-warning-templates"

func fastConfig() Config {
	return Config{
		TopicARN:       testTopicARN,
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		BackoffFactor:  2.0,
	}
}

func upsertEvent() outbound.TemplateEvent {
	return outbound.TemplateEvent{
		Type:         outbound.EventTypeTemplateUpserted,
		LanguageCode: "de",
		BrokerType:   "forex",
		OccurredAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Origin:       "api-1",
	}
}

// --- Test: NewEventSink ---

func TestNewEventSink_RequiresClient(t *testing.T) {
	_, err := NewEventSink(nil, Config{TopicARN: testTopicARN})
	if err == nil {
		t.Fatal("expected error for nil client")
	}
	if err.Error() != "sns client is required" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewEventSink_RequiresTopicARN(t *testing.T) {
	_, err := NewEventSink(&mockSNSClient{}, Config{})
	if err == nil {
		t.Fatal("expected error for missing topic ARN")
	}
	if err.Error() != "topic ARN is required" {
		t.Errorf("expected error %q, got %q", "topic ARN is required", err.Error())
	}
}

func TestNewEventSink_AppliesDefaults(t *testing.T) {
	sink, err := NewEventSink(&mockSNSClient{}, Config{TopicARN: testTopicARN})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sink.config.MaxRetries != 3 {
		t.Errorf("expected MaxRetries=3, got %d", sink.config.MaxRetries)
	}
	if sink.config.InitialBackoff != 100*time.Millisecond {
		t.Errorf("expected InitialBackoff=100ms, got %v", sink.config.InitialBackoff)
	}
	if sink.config.MaxBackoff != 5*time.Second {
		t.Errorf("expected MaxBackoff=5s, got %v", sink.config.MaxBackoff)
	}
	if sink.config.BackoffFactor != 2.0 {
		t.Errorf("expected BackoffFactor=2.0, got %v", sink.config.BackoffFactor)
	}
	if sink.logger == nil {
		t.Error("expected logger to be set")
	}
}

// --- Test: Publish ---

func TestPublish_Success(t *testing.T) {
	client := &mockSNSClient{}
	sink, err := NewEventSink(client, fastConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := sink.Publish(context.Background(), upsertEvent()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if client.callCount() != 1 {
		t.Fatalf("expected 1 call, got %d", client.callCount())
	}
	call := client.calls[0]
	if *call.TopicArn != testTopicARN {
		t.Errorf("unexpected topic ARN: %s", *call.TopicArn)
	}

	var decoded outbound.TemplateEvent
	if err := json.Unmarshal([]byte(*call.Message), &decoded); err != nil {
		t.Fatalf("failed to unmarshal message: %v", err)
	}
	if decoded.Type != outbound.EventTypeTemplateUpserted {
		t.Errorf("expected type upserted, got %s", decoded.Type)
	}
	if decoded.LanguageCode != "de" || decoded.BrokerType != "forex" || decoded.Origin != "api-1" {
		t.Errorf("unexpected payload %+v", decoded)
	}

	if v := call.MessageAttributes["eventType"].StringValue; v == nil || *v != "risk_warning_template.upserted" {
		t.Error("missing or incorrect eventType attribute")
	}
	if v := call.MessageAttributes["cacheKey"].StringValue; v == nil || *v != "de:forex" {
		t.Error("missing or incorrect cacheKey attribute")
	}
}

func TestPublish_FIFOTopic(t *testing.T) {
	client := &mockSNSClient{}
	cfg := fastConfig()
	cfg.TopicARN = testTopicARN + ".fifo"
	sink, err := NewEventSink(client, cfg)
	if err != nil {
		t.Fatalf("NewEventSink: %v", err)
	}

	if err := sink.Publish(context.Background(), upsertEvent()); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := sink.Publish(context.Background(), upsertEvent()); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	first, second := client.calls[0], client.calls[1]
	if aws.ToString(first.MessageGroupId) != fifoGroupID {
		t.Errorf("expected group %q, got %q", fifoGroupID, aws.ToString(first.MessageGroupId))
	}
	if len(aws.ToString(first.MessageDeduplicationId)) != 64 {
		t.Errorf("expected sha256 dedup ID, got %q", aws.ToString(first.MessageDeduplicationId))
	}
	if aws.ToString(first.MessageDeduplicationId) != aws.ToString(second.MessageDeduplicationId) {
		t.Error("expected identical events to share a dedup ID")
	}
}

func TestPublish_StandardTopicHasNoGroup(t *testing.T) {
	client := &mockSNSClient{}
	sink, err := NewEventSink(client, fastConfig())
	if err != nil {
		t.Fatalf("NewEventSink: %v", err)
	}
	if err := sink.Publish(context.Background(), upsertEvent()); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if client.calls[0].MessageGroupId != nil || client.calls[0].MessageDeduplicationId != nil {
		t.Error("expected no FIFO fields on a standard topic")
	}
}

func TestPublish_CacheClearedHasNoCacheKeyAttribute(t *testing.T) {
	client := &mockSNSClient{}
	sink, err := NewEventSink(client, fastConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	event := outbound.TemplateEvent{Type: outbound.EventTypeCacheCleared, OccurredAt: time.Now()}
	if err := sink.Publish(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := client.calls[0].MessageAttributes["cacheKey"]; ok {
		t.Error("expected no cacheKey attribute for cache-wide event")
	}
	if v := client.calls[0].MessageAttributes["eventType"].StringValue; v == nil || *v != "risk_warning_cache.cleared" {
		t.Error("missing or incorrect eventType attribute")
	}
}

func TestPublish_RetryOnThrottling(t *testing.T) {
	var attempts int
	client := &mockSNSClient{
		publishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			attempts++
			if attempts < 3 {
				return nil, &types.ThrottledException{Message: aws.String("throttled")}
			}
			return &sns.PublishOutput{MessageId: aws.String("success")}, nil
		},
	}
	sink, err := NewEventSink(client, fastConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := sink.Publish(context.Background(), upsertEvent()); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestPublish_RetriesExhausted(t *testing.T) {
	client := &mockSNSClient{
		publishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			return nil, &types.InternalErrorException{Message: aws.String("internal")}
		},
	}
	sink, err := NewEventSink(client, fastConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = sink.Publish(context.Background(), upsertEvent())
	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}
	var internalErr *types.InternalErrorException
	if !errors.As(err, &internalErr) {
		t.Errorf("expected wrapped InternalErrorException, got %v", err)
	}
	if client.callCount() != 4 {
		t.Errorf("expected 4 attempts (1 + 3 retries), got %d", client.callCount())
	}
}

func TestPublish_NonRetryableError(t *testing.T) {
	client := &mockSNSClient{
		publishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			return nil, &types.NotFoundException{Message: aws.String("no such topic")}
		},
	}
	sink, err := NewEventSink(client, fastConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := sink.Publish(context.Background(), upsertEvent()); err == nil {
		t.Fatal("expected error")
	}
	if client.callCount() != 1 {
		t.Errorf("expected 1 attempt, got %d", client.callCount())
	}
}

func TestPublish_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &mockSNSClient{
		publishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			cancel()
			return nil, &types.ThrottledException{Message: aws.String("throttled")}
		},
	}
	cfg := fastConfig()
	cfg.InitialBackoff = time.Second
	sink, err := NewEventSink(client, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = sink.Publish(ctx, upsertEvent())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if client.callCount() != 1 {
		t.Errorf("expected 1 attempt, got %d", client.callCount())
	}
}

func TestPublish_AfterClose(t *testing.T) {
	client := &mockSNSClient{}
	sink, err := NewEventSink(client, fastConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := sink.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	if err := sink.Publish(context.Background(), upsertEvent()); err == nil {
		t.Error("expected error publishing after close")
	}
	if client.callCount() != 0 {
		t.Errorf("expected no publish calls, got %d", client.callCount())
	}
}

func TestClose_Idempotent(t *testing.T) {
	sink, err := NewEventSink(&mockSNSClient{}, fastConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := sink.Close(); err != nil {
			t.Errorf("close %d: unexpected error: %v", i, err)
		}
	}
}

// --- Test: isRetryableError ---

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"context canceled", context.Canceled, false},
		{"deadline exceeded", context.DeadlineExceeded, false},
		{"throttled", &types.ThrottledException{}, true},
		{"internal", &types.InternalErrorException{}, true},
		{"kms throttling", &types.KMSThrottlingException{}, true},
		{"not found", &types.NotFoundException{}, false},
		{"authorization", &types.AuthorizationErrorException{}, false},
		{"invalid parameter", &types.InvalidParameterException{}, false},
		{"unknown", errors.New("connection reset"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryableError(tt.err); got != tt.want {
				t.Errorf("isRetryableError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
