package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/selfieauth/internal/auth/entity"
	"github.com/shandysiswandi/selfieauth/internal/pkg/goerror"
	"github.com/shandysiswandi/selfieauth/internal/pkg/validator"
)

type VerifyOTPInput struct {
	FlowID string            `validate:"required"`
	OTP    string            `validate:"required,otp"`
	Tokens entity.TokenStore `validate:"required"`
}

type VerifyOTPOutput struct {
	Message string
	Step    entity.Step
}

func (s *Usecase) VerifyOTP(ctx context.Context, in VerifyOTPInput) (*VerifyOTPOutput, error) {
	ctx, span := s.startSpan(ctx, "VerifyOTP")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	flow, err := s.loadFlow(ctx, in.FlowID)
	if err != nil {
		return nil, err
	}

	if err := s.requireStep(ctx, flow, entity.StepOTP); err != nil {
		return nil, err
	}
	var out *VerifyOTPOutput
	var event PhoneVerifiedEvent
	err = s.inFlight(ctx, flow, func(ctx context.Context, flow *entity.Flow) error {
		if !validator.ValidPhoneNumber(flow.PhoneNumber) {
			slog.WarnContext(ctx, "flow at otp step without a phone number", "flow_id", flow.ID)
			return goerror.NewConflict(msgWrongStep)
		}

		reply, err := s.repoBackend.VerifyOTP(ctx, flow.PhoneNumber, in.OTP)
		if err != nil {
			slog.ErrorContext(ctx, "failed to call backend verify otp", "flow_id", flow.ID, "error", err)
			return goerror.NewUnavailable(err, msgUnreachable)
		}

		if !reply.OK() || reply.Token == "" {
			slog.WarnContext(ctx, "backend rejected otp", "flow_id", flow.ID, "status", reply.StatusCode, "has_token", reply.Token != "")
			return goerror.NewRejected(reply.MessageOr("Invalid or expired OTP. Please try again."))
		}

		if err := flow.Apply(entity.EventOTPVerified); err != nil {
			return goerror.NewConflict(msgWrongStep)
		}
		flow.Liveness = &entity.Liveness{Status: entity.LivenessIdle}

		if err := s.saveFlow(ctx, flow); err != nil {
			return err
		}

		// zero when the token is opaque: the cookie then lives for the browser session
		exp, _ := s.jwt.ExpiresAt(reply.Token)
		in.Tokens.SetToken(reply.Token, exp)

		out = &VerifyOTPOutput{
			Message: reply.MessageOr("OTP verified successfully!"),
			Step:    flow.Step,
		}
		event = PhoneVerifiedEvent{
			FlowID:      flow.ID,
			PhoneNumber: flow.PhoneNumber,
			VerifiedAt:  s.clock.Now(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.goroutine.Go(ctx, func(ctx context.Context) error {
		if err := s.repoMessaging.PublishPhoneVerified(ctx, event); err != nil {
			slog.ErrorContext(ctx, "failed to publish phone verified", "flow_id", event.FlowID, "error", err)
			return err
		}
		return nil
	})

	return out, nil
}
