package mq

import (
	"context"
	"encoding/json"

	"github.com/shandysiswandi/selfieauth/internal/auth/usecase"
	"github.com/shandysiswandi/selfieauth/internal/pkg/instrument"
	"github.com/shandysiswandi/selfieauth/internal/pkg/messaging"
	"github.com/shandysiswandi/selfieauth/internal/shared/event"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const keyOfCorrelationID string = "cID"

type Messaging struct {
	client messaging.Publisher
	ins    instrument.Instrumentation
}

func NewMessaging(client messaging.Publisher, ins instrument.Instrumentation) *Messaging {
	return &Messaging{client: client, ins: ins}
}

func (m *Messaging) PublishPhoneVerified(ctx context.Context, msg usecase.PhoneVerifiedEvent) error {
	ctx, span := m.ins.Tracer("auth.outbound.mq").Start(ctx, "PublishPhoneVerified")
	defer span.End()

	body, err := json.Marshal(event.PhoneVerifiedMessage{
		FlowID:      msg.FlowID,
		PhoneNumber: msg.PhoneNumber,
		VerifiedAt:  msg.VerifiedAt.UnixMilli(),
	})
	if err != nil {
		return fail(span, err)
	}

	return m.publish(ctx, span, event.PhoneVerifiedDestination, msg.FlowID, body)
}

func (m *Messaging) PublishSelfieUploaded(ctx context.Context, msg usecase.SelfieUploadedEvent) error {
	ctx, span := m.ins.Tracer("auth.outbound.mq").Start(ctx, "PublishSelfieUploaded")
	defer span.End()

	body, err := json.Marshal(event.SelfieUploadedMessage{
		FlowID:      msg.FlowID,
		PhoneNumber: msg.PhoneNumber,
		ImageURL:    msg.ImageURL,
		UploadedAt:  msg.UploadedAt.UnixMilli(),
	})
	if err != nil {
		return fail(span, err)
	}

	return m.publish(ctx, span, event.SelfieUploadedDestination, msg.FlowID, body)
}

// publish keys every message by flow id so events of one flow stay ordered.
func (m *Messaging) publish(ctx context.Context, span trace.Span, topic, flowID string, body []byte) error {
	cID := instrument.GetCorrelationID(ctx)
	if _, err := m.client.Publish(ctx, topic, messaging.Message{
		Body:    body,
		Key:     []byte(flowID),
		Headers: map[string]string{keyOfCorrelationID: cID},
	}); err != nil {
		return fail(span, err)
	}

	return nil
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
