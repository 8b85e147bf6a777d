package sqs

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

type mockSQSAPI struct {
	receiveFunc func(ctx context.Context, params *sqs.ReceiveMessageInput) (*sqs.ReceiveMessageOutput, error)
	deleteFunc  func(ctx context.Context, params *sqs.DeleteMessageInput) (*sqs.DeleteMessageOutput, error)

	receiveInputs []*sqs.ReceiveMessageInput
	deleteInputs  []*sqs.DeleteMessageInput
}

func (m *mockSQSAPI) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	m.receiveInputs = append(m.receiveInputs, params)
	if m.receiveFunc != nil {
		return m.receiveFunc(ctx, params)
	}
	return &sqs.ReceiveMessageOutput{}, nil
}

func (m *mockSQSAPI) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	m.deleteInputs = append(m.deleteInputs, params)
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, params)
	}
	return &sqs.DeleteMessageOutput{}, nil
}

const testQueueURL = "https://sqs.eu-central-1.amazonaws.com/123456789/brokerhub-api-1"

func newTestConsumer(api sqsAPI) *Consumer {
	return &Consumer{
		client:   api,
		queueURL: testQueueURL,
		config:   Config{QueueURL: testQueueURL, WaitTimeSeconds: 5},
		logger:   discardLogger(),
	}
}

// --- Test: NewConsumer ---

func TestNewConsumer_RequiresQueueURL(t *testing.T) {
	_, err := NewConsumer(aws.Config{Region: "eu-central-1"}, Config{}, nil)
	if err == nil {
		t.Fatal("expected error for empty queue URL")
	}
}

func TestNewConsumer_AppliesDefaults(t *testing.T) {
	c, err := NewConsumer(aws.Config{Region: "eu-central-1"}, Config{QueueURL: testQueueURL}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.config.WaitTimeSeconds != 20 {
		t.Errorf("expected WaitTimeSeconds=20, got %d", c.config.WaitTimeSeconds)
	}
	if c.Close() != nil {
		t.Error("expected Close to succeed")
	}
}

func TestNewConsumer_RejectsInvalidWaitTime(t *testing.T) {
	_, err := NewConsumer(aws.Config{Region: "eu-central-1"}, Config{QueueURL: testQueueURL, WaitTimeSeconds: 30}, nil)
	if err == nil {
		t.Fatal("expected error for wait time above 20s")
	}
}

func TestReceiveCount(t *testing.T) {
	tests := []struct {
		attrs map[string]string
		want  int
	}{
		{nil, 0},
		{map[string]string{"ApproximateReceiveCount": "5"}, 5},
		{map[string]string{"ApproximateReceiveCount": "many"}, 0},
	}
	for _, tt := range tests {
		if got := receiveCount(tt.attrs); got != tt.want {
			t.Errorf("receiveCount(%v) = %d, want %d", tt.attrs, got, tt.want)
		}
	}
}

// --- Test: ReceiveMessages ---

func TestReceiveMessages_MapsAndSkipsIncomplete(t *testing.T) {
	api := &mockSQSAPI{
		receiveFunc: func(ctx context.Context, params *sqs.ReceiveMessageInput) (*sqs.ReceiveMessageOutput, error) {
			return &sqs.ReceiveMessageOutput{Messages: []types.Message{
				{
					MessageId:     aws.String("m1"),
					ReceiptHandle: aws.String("r1"),
					Body:          aws.String(`{"type":"risk_warning_cache.cleared"}`),
					Attributes:    map[string]string{"ApproximateReceiveCount": "3"},
				},
				{MessageId: aws.String("m2"), ReceiptHandle: nil, Body: aws.String("{}")},
			}}, nil
		},
	}
	c := newTestConsumer(api)

	msgs, err := c.ReceiveMessages(context.Background(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].MessageID != "m1" || msgs[0].ReceiptHandle != "r1" || msgs[0].ReceiveCount != 3 {
		t.Errorf("unexpected message %+v", msgs[0])
	}
	in := api.receiveInputs[0]
	if *in.QueueUrl != testQueueURL || in.MaxNumberOfMessages != 5 || in.WaitTimeSeconds != 5 {
		t.Errorf("unexpected input %+v", in)
	}
	if len(in.MessageSystemAttributeNames) != 1 || in.MessageSystemAttributeNames[0] != types.MessageSystemAttributeNameApproximateReceiveCount {
		t.Errorf("expected receive count attribute to be requested, got %v", in.MessageSystemAttributeNames)
	}
}

func TestReceiveMessages_ClampsMaxMessages(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int32
	}{
		{"below minimum", 0, 1},
		{"above maximum", 25, 10},
		{"in range", 7, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &mockSQSAPI{}
			c := newTestConsumer(api)
			if _, err := c.ReceiveMessages(context.Background(), tt.in); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := api.receiveInputs[0].MaxNumberOfMessages; got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestReceiveMessages_Error(t *testing.T) {
	api := &mockSQSAPI{
		receiveFunc: func(ctx context.Context, params *sqs.ReceiveMessageInput) (*sqs.ReceiveMessageOutput, error) {
			return nil, errors.New("boom")
		},
	}
	if _, err := newTestConsumer(api).ReceiveMessages(context.Background(), 1); err == nil {
		t.Fatal("expected error")
	}
}

// --- Test: DeleteMessage ---

func TestDeleteMessage(t *testing.T) {
	api := &mockSQSAPI{}
	c := newTestConsumer(api)
	if err := c.DeleteMessage(context.Background(), "r1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *api.deleteInputs[0].ReceiptHandle != "r1" {
		t.Errorf("unexpected receipt handle %s", *api.deleteInputs[0].ReceiptHandle)
	}

	api.deleteFunc = func(ctx context.Context, params *sqs.DeleteMessageInput) (*sqs.DeleteMessageOutput, error) {
		return nil, errors.New("gone")
	}
	if err := c.DeleteMessage(context.Background(), "r2"); err == nil {
		t.Fatal("expected error")
	}
}
