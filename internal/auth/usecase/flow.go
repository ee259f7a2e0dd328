package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/selfieauth/internal/auth/entity"
	"github.com/shandysiswandi/selfieauth/internal/auth/liveness"
	"github.com/shandysiswandi/selfieauth/internal/pkg/goerror"
)

type FlowInput struct {
	FlowID string
}

type FlowOutput struct {
	Step        entity.Step
	Title       string
	PhoneNumber string
	Liveness    *liveness.View
}

// Flow tells the client which step to render.
func (s *Usecase) Flow(ctx context.Context, in FlowInput) (*FlowOutput, error) {
	ctx, span := s.startSpan(ctx, "Flow")
	defer span.End()

	flow, err := s.loadFlow(ctx, in.FlowID)
	if err != nil {
		return nil, err
	}

	out := &FlowOutput{
		Step:        flow.Step,
		Title:       flow.Step.Title(),
		PhoneNumber: flow.PhoneNumber,
	}

	if flow.Step == entity.StepLiveness {
		chk := s.newChecker(nil)
		restoreChecker(ctx, chk, flow)
		view := chk.View()
		out.Liveness = &view
	}

	return out, nil
}

type HomeInput struct {
	FlowID string
	Tokens entity.TokenStore
}

type HomeOutput struct {
	Message     string
	PhoneNumber string
	SelfieImage string
}

func (s *Usecase) Home(ctx context.Context, in HomeInput) (*HomeOutput, error) {
	ctx, span := s.startSpan(ctx, "Home")
	defer span.End()

	flow, err := s.loadFlow(ctx, in.FlowID)
	if err != nil {
		return nil, err
	}

	if err := s.requireStep(ctx, flow, entity.StepHome); err != nil {
		return nil, err
	}

	if in.Tokens == nil {
		return nil, goerror.NewRequiresLogin(msgNoToken)
	}
	if _, ok := in.Tokens.Token(); !ok {
		slog.WarnContext(ctx, "home requested without session token", "flow_id", flow.ID)
		return nil, goerror.NewRequiresLogin(msgNoToken)
	}

	return &HomeOutput{
		Message:     "Authentication Complete!",
		PhoneNumber: flow.PhoneNumber,
		SelfieImage: flow.Selfie,
	}, nil
}

type LogoutInput struct {
	FlowID string
	Tokens entity.TokenStore
}

// Logout forgets the session token and sends the flow back to the phone step.
func (s *Usecase) Logout(ctx context.Context, in LogoutInput) error {
	ctx, span := s.startSpan(ctx, "Logout")
	defer span.End()

	if in.Tokens != nil {
		in.Tokens.ClearToken()
	}

	flow, err := s.loadFlow(ctx, in.FlowID)
	if err != nil {
		return err
	}

	if err := flow.Apply(entity.EventLogout); err != nil {
		return goerror.NewServer(err)
	}

	return s.saveFlow(ctx, flow)
}
