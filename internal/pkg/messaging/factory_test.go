package messaging

import (
	"context"
	"errors"
	"testing"
)

func TestNewFromDriver(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		driver  string
		opts    FactoryOptions
		wantErr error
	}{
		{name: "EmptyIsDiscard", driver: ""},
		{name: "None", driver: "none"},
		{name: "Unknown", driver: "rabbit", wantErr: ErrUnknownDriver},
		{name: "NATSWithoutURL", driver: DriverNATS, wantErr: ErrNATSURLRequired},
		{name: "KafkaWithoutBrokers", driver: DriverKafka, wantErr: ErrKafkaBrokersRequired},
		{name: "NSQWithoutAddr", driver: DriverNSQ, wantErr: ErrNSQProducerAddrRequired},
		{name: "PubSubWithoutProject", driver: DriverGooglePubSub, wantErr: ErrPubSubProjectIDRequired},
		{name: "KafkaLazy", driver: " Kafka ", opts: FactoryOptions{Kafka: KafkaConfig{Brokers: []string{"127.0.0.1:9092"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub, err := NewFromDriver(ctx, tt.driver, tt.opts)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("NewFromDriver() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewFromDriver() error = %v", err)
			}
			if err := pub.Close(); err != nil {
				t.Fatalf("Close() = %v", err)
			}
		})
	}
}

func TestDiscard(t *testing.T) {
	t.Run("RequiresTopic", func(t *testing.T) {
		if _, err := (Discard{}).Publish(context.Background(), "", Message{}); !errors.Is(err, ErrTopicRequired) {
			t.Fatalf("Publish() = %v, want ErrTopicRequired", err)
		}
	})

	t.Run("HonoursCancelledContext", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := (Discard{}).Publish(ctx, "selfieauth_phone_verified", Message{}); !errors.Is(err, context.Canceled) {
			t.Fatalf("Publish() = %v, want context.Canceled", err)
		}
	})

	t.Run("EchoesTopic", func(t *testing.T) {
		res, err := (Discard{}).Publish(context.Background(), "selfieauth_selfie_uploaded", Message{Body: []byte("{}")})
		if err != nil || res.Topic != "selfieauth_selfie_uploaded" {
			t.Fatalf("Publish() = %+v, %v", res, err)
		}
	})
}

func TestKafkaClosed(t *testing.T) {
	k, err := NewKafka(KafkaConfig{Brokers: []string{"127.0.0.1:9092"}})
	if err != nil {
		t.Fatalf("NewKafka: %v", err)
	}
	if err := k.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := k.Publish(context.Background(), "t", Message{}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Publish after Close = %v, want ErrClosed", err)
	}
}
