package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/selfieauth/internal/auth/entity"
	"github.com/shandysiswandi/selfieauth/internal/pkg/goerror"
)

type SendOTPInput struct {
	FlowID      string `validate:"required"`
	PhoneNumber string `validate:"required,phone"`
}

type SendOTPOutput struct {
	Message string
	Step    entity.Step
}

func (s *Usecase) SendOTP(ctx context.Context, in SendOTPInput) (*SendOTPOutput, error) {
	ctx, span := s.startSpan(ctx, "SendOTP")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	flow, err := s.loadFlow(ctx, in.FlowID)
	if err != nil {
		return nil, err
	}

	if err := s.requireStep(ctx, flow, entity.StepPhone); err != nil {
		return nil, err
	}

	var out *SendOTPOutput
	err = s.inFlight(ctx, flow, func(ctx context.Context, flow *entity.Flow) error {
		reply, err := s.repoBackend.SendOTP(ctx, in.PhoneNumber)
		if err != nil {
			slog.ErrorContext(ctx, "failed to call backend send otp", "flow_id", flow.ID, "error", err)
			return goerror.NewUnavailable(err, msgUnreachable)
		}

		if !reply.OK() {
			slog.WarnContext(ctx, "backend rejected send otp", "flow_id", flow.ID, "status", reply.StatusCode)
			return goerror.NewRejected(reply.MessageOr("Failed to send OTP. Please try again."))
		}

		flow.PhoneNumber = in.PhoneNumber
		if err := flow.Apply(entity.EventOTPSent); err != nil {
			return goerror.NewConflict(msgWrongStep)
		}

		if err := s.saveFlow(ctx, flow); err != nil {
			return err
		}

		out = &SendOTPOutput{
			Message: reply.MessageOr("OTP has been sent to your WhatsApp."),
			Step:    flow.Step,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}
