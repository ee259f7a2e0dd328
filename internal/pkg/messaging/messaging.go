package messaging

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrUnsupported is returned when a feature is not supported by the selected broker.
var ErrUnsupported = errors.New("messaging: unsupported operation")

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("messaging: publisher is closed")

// ErrTopicRequired is returned when the destination is empty.
var ErrTopicRequired = errors.New("messaging: topic is required")

// Publisher sends messages to a destination (topic or subject).
type Publisher interface {
	io.Closer

	Publish(ctx context.Context, topic string, msg Message) (PublishResult, error)
}

// Message is a broker-agnostic outgoing message.
type Message struct {
	// Body is the message payload.
	Body []byte
	// Key is used by Kafka for partitioning and by Pub/Sub as ordering key.
	Key []byte
	// Headers are carried as broker headers or attributes.
	Headers map[string]string
	// Delay asks for deferred delivery; only NSQ supports it.
	Delay time.Duration
}

// PublishResult carries optional broker-specific publish metadata.
type PublishResult struct {
	// MessageID is the broker-assigned id, when the broker returns one.
	MessageID string
	// Topic is where the message went.
	Topic string
	// Timestamp is when the broker accepted the message.
	Timestamp time.Time
}

func validate(ctx context.Context, topic string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if topic == "" {
		return ErrTopicRequired
	}
	return nil
}
