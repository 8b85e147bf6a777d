package outbound

import "context"

// SQSMessage is a single queue message handed to a worker.
type SQSMessage struct {
	MessageID string

	// ReceiptHandle must be passed back to DeleteMessage once the message is handled.
	ReceiptHandle string

	// Body is the raw JSON body. For SNS fan-out queues without raw delivery it
	// is the SNS envelope.
	Body string

	// ReceiveCount is how often SQS has delivered the message, including this
	// delivery. Zero when the queue did not report it.
	ReceiveCount int
}

// SQSConsumer defines the interface for consuming messages from an SQS queue.
type SQSConsumer interface {
	// ReceiveMessages long-polls for up to maxMessages messages.
	// Returns an empty slice if no messages are available.
	ReceiveMessages(ctx context.Context, maxMessages int) ([]SQSMessage, error)

	// DeleteMessage acknowledges a handled message.
	DeleteMessage(ctx context.Context, receiptHandle string) error

	// Close closes the consumer and releases resources.
	Close() error
}
