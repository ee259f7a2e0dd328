package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/selfieauth/internal/auth/entity"
	"github.com/shandysiswandi/selfieauth/internal/pkg/goerror"
)

type UploadSelfieInput struct {
	FlowID string
	Tokens entity.TokenStore
}

type UploadSelfieOutput struct {
	Message  string
	ImageURL string
	Step     entity.Step
}

func (s *Usecase) UploadSelfie(ctx context.Context, in UploadSelfieInput) (*UploadSelfieOutput, error) {
	ctx, span := s.startSpan(ctx, "UploadSelfie")
	defer span.End()

	if in.Tokens == nil {
		return nil, goerror.NewRequiresLogin(msgNoToken)
	}

	token, ok := in.Tokens.Token()
	if !ok || token == "" {
		slog.WarnContext(ctx, "upload without session token", "flow_id", in.FlowID)
		return nil, goerror.NewRequiresLogin(msgNoToken)
	}
	if s.jwt.Expired(token) {
		slog.WarnContext(ctx, "upload with expired session token", "flow_id", in.FlowID)
		return nil, goerror.NewRequiresLogin(msgSessionExpired)
	}

	flow, err := s.loadFlow(ctx, in.FlowID)
	if err != nil {
		return nil, err
	}

	if err := s.requireStep(ctx, flow, entity.StepLiveness); err != nil {
		return nil, err
	}

	var out *UploadSelfieOutput
	var phoneNumber string
	err = s.inFlight(ctx, flow, func(ctx context.Context, flow *entity.Flow) error {
		chk := s.newChecker(nil)
		restoreChecker(ctx, chk, flow)
		captured, err := chk.Confirm()
		if err != nil {
			return goerror.NewConflict("Please capture your selfie before uploading.")
		}
		if flow.PhoneNumber == "" {
			return goerror.NewInvalidInput(nil, "username", "Missing image or username.")
		}

		img, err := s.normalizeSelfie(captured)
		if err != nil {
			return err
		}

		reply, err := s.repoBackend.UploadPortrait(ctx, entity.Portrait{
			Image:    img,
			Username: flow.PhoneNumber,
			Token:    token,
		})
		if err != nil {
			slog.ErrorContext(ctx, "failed to call backend upload portrait", "flow_id", flow.ID, "error", err)
			return goerror.NewUnavailable(err, msgUnreachable)
		}

		if reply.Unauthorized() {
			slog.WarnContext(ctx, "backend rejected session token", "flow_id", flow.ID)
			in.Tokens.ClearToken()
			if err := flow.Apply(entity.EventSessionExpired); err != nil {
				return goerror.NewServer(err)
			}
			if err := s.saveFlow(ctx, flow); err != nil {
				return err
			}
			return goerror.NewRequiresLogin(msgSessionExpired)
		}

		if !reply.OK() {
			slog.WarnContext(ctx, "backend rejected selfie", "flow_id", flow.ID, "status", reply.StatusCode)
			return goerror.NewRejected(reply.MessageOr("Failed to upload selfie. Please try again."))
		}

		display := reply.ImageURL
		if display == "" {
			display = img.DataURI()
		}

		if err := flow.Apply(entity.EventSelfieUploaded); err != nil {
			return goerror.NewConflict(msgWrongStep)
		}
		flow.Selfie = display
		flow.Liveness = nil

		if err := s.saveFlow(ctx, flow); err != nil {
			return err
		}

		out = &UploadSelfieOutput{
			Message:  reply.MessageOr("Selfie uploaded successfully!"),
			ImageURL: display,
			Step:     flow.Step,
		}
		phoneNumber = flow.PhoneNumber
		return nil
	})
	if err != nil {
		return nil, err
	}

	event := SelfieUploadedEvent{
		FlowID:      flow.ID,
		PhoneNumber: phoneNumber,
		ImageURL:    publicImageURL(out.ImageURL),
		UploadedAt:  s.clock.Now(),
	}
	s.goroutine.Go(ctx, func(ctx context.Context) error {
		if err := s.repoMessaging.PublishSelfieUploaded(ctx, event); err != nil {
			slog.ErrorContext(ctx, "failed to publish selfie uploaded", "flow_id", event.FlowID, "error", err)
			return err
		}
		return nil
	})

	return out, nil
}

// publicImageURL keeps data URIs out of events; only backend URLs travel.
func publicImageURL(display string) string {
	if strings.HasPrefix(display, "data:") {
		return ""
	}
	return display
}
