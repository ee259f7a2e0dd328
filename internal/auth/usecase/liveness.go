package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/selfieauth/internal/auth/entity"
	"github.com/shandysiswandi/selfieauth/internal/auth/liveness"
	"github.com/shandysiswandi/selfieauth/internal/pkg/goerror"
)

type LivenessInput struct {
	FlowID string
	// Camera is the browser camera as reported on this request. Nil when
	// the request says nothing about it.
	Camera liveness.Camera
}

type LivenessOutput struct {
	View liveness.View
}

// LivenessStart opens the camera. A denied or missing camera is not an error
// of the request: it is recorded on the checker and shown in the view.
func (s *Usecase) LivenessStart(ctx context.Context, in LivenessInput) (*LivenessOutput, error) {
	ctx, span := s.startSpan(ctx, "LivenessStart")
	defer span.End()

	return s.withChecker(ctx, in.FlowID, in.Camera, func(ctx context.Context, chk *liveness.Checker) error {
		err := chk.Start(ctx)
		if errors.Is(err, liveness.ErrIllegalState) {
			return goerror.NewConflict("The camera is already running.")
		}
		if err != nil {
			slog.WarnContext(ctx, "camera could not be opened", "flow_id", in.FlowID, "error", err)
		}
		return nil
	})
}

// LivenessReady starts the prompt script.
func (s *Usecase) LivenessReady(ctx context.Context, in LivenessInput) (*LivenessOutput, error) {
	ctx, span := s.startSpan(ctx, "LivenessReady")
	defer span.End()

	return s.withChecker(ctx, in.FlowID, nil, func(_ context.Context, chk *liveness.Checker) error {
		if err := chk.Begin(); err != nil {
			return goerror.NewConflict("Start the camera before the liveness check.")
		}
		return nil
	})
}

// LivenessStatus renders the checker without changing it.
func (s *Usecase) LivenessStatus(ctx context.Context, in LivenessInput) (*LivenessOutput, error) {
	ctx, span := s.startSpan(ctx, "LivenessStatus")
	defer span.End()

	flow, err := s.loadFlow(ctx, in.FlowID)
	if err != nil {
		return nil, err
	}

	if err := s.requireStep(ctx, flow, entity.StepLiveness); err != nil {
		return nil, err
	}

	chk := s.newChecker(nil)
	restoreChecker(ctx, chk, flow)

	return &LivenessOutput{View: chk.View()}, nil
}

// LivenessCapture takes the still sent by the browser once the script is done.
func (s *Usecase) LivenessCapture(ctx context.Context, in LivenessInput) (*LivenessOutput, error) {
	ctx, span := s.startSpan(ctx, "LivenessCapture")
	defer span.End()

	var cam liveness.Camera
	if in.Camera != nil {
		cam = normalizingCamera{cam: in.Camera, normalize: s.normalizeSelfie}
	}

	return s.withChecker(ctx, in.FlowID, cam, func(ctx context.Context, chk *liveness.Checker) error {
		img, err := chk.Capture(ctx)
		if errors.Is(err, liveness.ErrIllegalState) {
			return goerror.NewConflict("The liveness check has not passed yet.")
		}
		if errors.Is(err, liveness.ErrNoFrame) {
			return goerror.NewInvalidInput(nil, "image", "image is required")
		}

		var gerr *goerror.Error
		if errors.As(err, &gerr) {
			return err
		}
		if err != nil {
			slog.ErrorContext(ctx, "failed to capture selfie", "flow_id", in.FlowID, "error", err)
			return goerror.NewServer(err)
		}

		slog.InfoContext(ctx, "selfie captured", "flow_id", in.FlowID, "content_type", img.ContentType, "size", img.Size())
		return nil
	})
}

// LivenessRetake drops the captured selfie and reopens the camera.
func (s *Usecase) LivenessRetake(ctx context.Context, in LivenessInput) (*LivenessOutput, error) {
	ctx, span := s.startSpan(ctx, "LivenessRetake")
	defer span.End()

	return s.withChecker(ctx, in.FlowID, in.Camera, func(ctx context.Context, chk *liveness.Checker) error {
		err := chk.Retake(ctx)
		if errors.Is(err, liveness.ErrIllegalState) {
			return goerror.NewConflict("There is no selfie to retake.")
		}
		if err != nil {
			slog.WarnContext(ctx, "camera could not be reopened", "flow_id", in.FlowID, "error", err)
		}
		return nil
	})
}

// withChecker restores the checker of the flow, runs fn and stores the
// result. Nothing is stored when fn fails.
func (s *Usecase) withChecker(
	ctx context.Context,
	flowID string,
	cam liveness.Camera,
	fn func(ctx context.Context, chk *liveness.Checker) error,
) (*LivenessOutput, error) {
	flow, err := s.loadFlow(ctx, flowID)
	if err != nil {
		return nil, err
	}

	if err := s.requireStep(ctx, flow, entity.StepLiveness); err != nil {
		return nil, err
	}

	chk := s.newChecker(cam)
	defer chk.Close()

	restoreChecker(ctx, chk, flow)

	if err := fn(ctx, chk); err != nil {
		return nil, err
	}

	snap := chk.Snapshot()
	flow.Liveness = &snap
	if err := s.saveFlow(ctx, flow); err != nil {
		return nil, err
	}

	return &LivenessOutput{View: chk.View()}, nil
}

// normalizingCamera checks every frame before the checker accepts it.
type normalizingCamera struct {
	cam       liveness.Camera
	normalize func(entity.SelfieImage) (entity.SelfieImage, error)
}

func (c normalizingCamera) Open(ctx context.Context) (liveness.Stream, error) {
	st, err := c.cam.Open(ctx)
	if err != nil {
		return nil, err
	}
	return normalizingStream{Stream: st, normalize: c.normalize}, nil
}

type normalizingStream struct {
	liveness.Stream
	normalize func(entity.SelfieImage) (entity.SelfieImage, error)
}

func (s normalizingStream) Frame(ctx context.Context) (entity.SelfieImage, error) {
	img, err := s.Stream.Frame(ctx)
	if err != nil {
		return entity.SelfieImage{}, err
	}
	return s.normalize(img)
}
