package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	nsq "github.com/nsqio/go-nsq"
)

// ErrNSQProducerAddrRequired is returned when the producer address is missing.
var ErrNSQProducerAddrRequired = errors.New("messaging: nsq producer address is required")

// NSQConfig configures the NSQ implementation.
type NSQConfig struct {
	// ProducerAddr is the nsqd TCP address.
	ProducerAddr string
	// Config overrides the default producer config.
	Config *nsq.Config
}

// NSQ publishes to nsqd. NSQ has no headers, so they travel in an envelope
// next to the body when present.
type NSQ struct {
	producer *nsq.Producer

	mu     sync.Mutex
	closed bool
}

type nsqEnvelope struct {
	Headers map[string]string `json:"headers"`
	Body    []byte            `json:"body"`
}

// NewNSQ constructs an NSQ publisher.
func NewNSQ(cfg NSQConfig) (*NSQ, error) {
	if cfg.ProducerAddr == "" {
		return nil, ErrNSQProducerAddrRequired
	}

	pcfg := cfg.Config
	if pcfg == nil {
		pcfg = nsq.NewConfig()
	}

	p, err := nsq.NewProducer(cfg.ProducerAddr, pcfg)
	if err != nil {
		return nil, fmt.Errorf("messaging: nsq new producer: %w", err)
	}
	p.SetLoggerLevel(nsq.LogLevelError)

	return &NSQ{producer: p}, nil
}

// Close stops the producer.
func (n *NSQ) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.closed {
		n.closed = true
		n.producer.Stop()
	}
	return nil
}

// Publish sends msg to the topic, deferred by msg.Delay when set.
func (n *NSQ) Publish(ctx context.Context, topic string, msg Message) (PublishResult, error) {
	if err := validate(ctx, topic); err != nil {
		return PublishResult{}, err
	}

	n.mu.Lock()
	closed := n.closed
	n.mu.Unlock()
	if closed {
		return PublishResult{}, ErrClosed
	}

	body := msg.Body
	if len(msg.Headers) > 0 {
		wrapped, err := json.Marshal(nsqEnvelope{Headers: msg.Headers, Body: msg.Body})
		if err != nil {
			return PublishResult{}, fmt.Errorf("messaging: nsq envelope: %w", err)
		}
		body = wrapped
	}

	var err error
	if msg.Delay > 0 {
		err = n.producer.DeferredPublish(topic, msg.Delay, body)
	} else {
		err = n.producer.Publish(topic, body)
	}
	if err != nil {
		return PublishResult{}, fmt.Errorf("messaging: nsq publish: %w", err)
	}

	return PublishResult{Topic: topic, Timestamp: time.Now()}, nil
}
