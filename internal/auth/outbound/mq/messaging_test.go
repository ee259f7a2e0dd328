package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shandysiswandi/selfieauth/internal/auth/usecase"
	"github.com/shandysiswandi/selfieauth/internal/pkg/instrument"
	"github.com/shandysiswandi/selfieauth/internal/pkg/messaging"
	"github.com/shandysiswandi/selfieauth/internal/shared/event"
)

type recordingPublisher struct {
	topic string
	msg   messaging.Message
	err   error
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, msg messaging.Message) (messaging.PublishResult, error) {
	p.topic, p.msg = topic, msg
	return messaging.PublishResult{Topic: topic}, p.err
}

func (p *recordingPublisher) Close() error { return nil }

func TestMessaging_PublishPhoneVerified(t *testing.T) {
	// Arrange
	pub := &recordingPublisher{}
	m := NewMessaging(pub, instrument.NewNoop())
	ctx := instrument.SetCorrelationID(context.Background(), "cid-9")
	at := time.UnixMilli(1767225600000)

	// Act
	err := m.PublishPhoneVerified(ctx, usecase.PhoneVerifiedEvent{FlowID: "f1", PhoneNumber: "+15551234567", VerifiedAt: at})

	// Assert
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if pub.topic != event.PhoneVerifiedDestination || string(pub.msg.Key) != "f1" || pub.msg.Headers[keyOfCorrelationID] != "cid-9" {
		t.Fatalf("published %s %+v", pub.topic, pub.msg)
	}
	var body event.PhoneVerifiedMessage
	if err := json.Unmarshal(pub.msg.Body, &body); err != nil {
		t.Fatalf("body: %v", err)
	}
	if body.PhoneNumber != "+15551234567" || body.VerifiedAt != at.UnixMilli() {
		t.Fatalf("body = %+v", body)
	}
}

func TestMessaging_PublishSelfieUploaded(t *testing.T) {
	t.Run("Published", func(t *testing.T) {
		// Arrange
		pub := &recordingPublisher{}
		m := NewMessaging(pub, instrument.NewNoop())

		// Act
		err := m.PublishSelfieUploaded(context.Background(), usecase.SelfieUploadedEvent{
			FlowID:   "f1",
			ImageURL: "https://cdn.example/1.png",
		})

		// Assert
		if err != nil || pub.topic != event.SelfieUploadedDestination {
			t.Fatalf("topic = %s, err = %v", pub.topic, err)
		}
	})

	t.Run("BrokerFailure", func(t *testing.T) {
		// Arrange
		pub := &recordingPublisher{err: messaging.ErrClosed}
		m := NewMessaging(pub, instrument.NewNoop())

		// Act
		err := m.PublishSelfieUploaded(context.Background(), usecase.SelfieUploadedEvent{FlowID: "f1"})

		// Assert
		if !errors.Is(err, messaging.ErrClosed) {
			t.Fatalf("err = %v", err)
		}
	})
}
