package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shandysiswandi/selfieauth/internal/auth/entity"
	"github.com/shandysiswandi/selfieauth/internal/auth/liveness"
	"github.com/shandysiswandi/selfieauth/internal/pkg/clock"
	"github.com/shandysiswandi/selfieauth/internal/pkg/config"
	"github.com/shandysiswandi/selfieauth/internal/pkg/goerror"
	"github.com/shandysiswandi/selfieauth/internal/pkg/goroutine"
	"github.com/shandysiswandi/selfieauth/internal/pkg/idempotency"
	"github.com/shandysiswandi/selfieauth/internal/pkg/instrument"
	"github.com/shandysiswandi/selfieauth/internal/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

const (
	msgUnreachable    = "Unable to reach the authentication service. Please try again later."
	msgInFlight       = "A request for this step is already in progress."
	msgWrongStep      = "This action is not available at the current step."
	msgSessionExpired = "Your session has expired. Please log in again."
	msgNoToken        = "No authentication token found. Please verify your phone number again."

	defaultSelfieMaxSize int64 = 5 << 20
	defaultInflightLock        = 30 * time.Second
)

type PhoneVerifiedEvent struct {
	FlowID      string
	PhoneNumber string
	VerifiedAt  time.Time
}

type SelfieUploadedEvent struct {
	FlowID      string
	PhoneNumber string
	ImageURL    string
	UploadedAt  time.Time
}

type repoMessaging interface {
	PublishPhoneVerified(ctx context.Context, msg PhoneVerifiedEvent) error
	PublishSelfieUploaded(ctx context.Context, msg SelfieUploadedEvent) error
}

type repoFlow interface {
	GetFlow(ctx context.Context, id string) (*entity.Flow, error)
	SaveFlow(ctx context.Context, flow *entity.Flow) error
}

// repoBackend returns an error only when the backend could not be reached or
// its answer could not be read. Everything the backend says is in the reply.
type repoBackend interface {
	SendOTP(ctx context.Context, phoneNumber string) (*entity.BackendReply, error)
	VerifyOTP(ctx context.Context, phoneNumber, otp string) (*entity.BackendReply, error)
	UploadPortrait(ctx context.Context, in entity.Portrait) (*entity.BackendReply, error)
}

type tokenInspector interface {
	ExpiresAt(token string) (time.Time, bool)
	Expired(token string) bool
}

type Usecase struct {
	repoFlow      repoFlow
	repoBackend   repoBackend
	repoMessaging repoMessaging
	idemp         idempotency.Idempotency
	validator     validator.Validator
	cfg           config.Config
	clock         clock.Clocker
	jwt           tokenInspector
	ins           instrument.Instrumentation
	goroutine     *goroutine.Manager
}

type Dependency struct {
	RepoFlow      repoFlow
	RepoBackend   repoBackend
	RepoMessaging repoMessaging
	Idempotency   idempotency.Idempotency
	Validator     validator.Validator
	Config        config.Config
	Clock         clock.Clocker
	JWT           tokenInspector
	Instrument    instrument.Instrumentation
	Goroutine     *goroutine.Manager
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		repoFlow:      dep.RepoFlow,
		repoBackend:   dep.RepoBackend,
		repoMessaging: dep.RepoMessaging,
		idemp:         dep.Idempotency,
		validator:     dep.Validator,
		cfg:           dep.Config,
		clock:         dep.Clock,
		jwt:           dep.JWT,
		ins:           dep.Instrument,
		goroutine:     dep.Goroutine,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("auth.usecase").Start(ctx, name)
}

// loadFlow returns the stored flow, or a fresh one at the phone step.
func (s *Usecase) loadFlow(ctx context.Context, id string) (*entity.Flow, error) {
	if id == "" {
		return nil, goerror.NewBusiness("Missing authentication flow", goerror.CodeUnauthorized)
	}

	flow, err := s.repoFlow.GetFlow(ctx, id)
	if errors.Is(err, goerror.ErrNotFound) {
		return entity.NewFlow(id, s.clock.Now()), nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get flow", "flow_id", id, "error", err)
		return nil, goerror.NewServer(err)
	}

	return flow, nil
}

func (s *Usecase) saveFlow(ctx context.Context, flow *entity.Flow) error {
	flow.UpdatedAt = s.clock.Now()
	if err := s.repoFlow.SaveFlow(ctx, flow); err != nil {
		slog.ErrorContext(ctx, "failed to repo save flow", "flow_id", flow.ID, "step", flow.Step.String(), "error", err)
		return goerror.NewServer(err)
	}
	return nil
}

func (s *Usecase) requireStep(ctx context.Context, flow *entity.Flow, step entity.Step) error {
	if flow.Step != step {
		slog.WarnContext(ctx, "request does not match flow step", "flow_id", flow.ID, "step", flow.Step.String(), "want", step.String())
		return goerror.NewConflict(msgWrongStep)
	}
	return nil
}

// inFlight runs fn while no other request for the same flow step is running.
// fn receives the flow as stored once the guard is held, so a submission
// that waited on an earlier one sees its outcome and fails the step check.
func (s *Usecase) inFlight(ctx context.Context, flow *entity.Flow, fn func(ctx context.Context, flow *entity.Flow) error) error {
	lockFor := s.cfg.GetSecond("modules.auth.inflight_lock_seconds")
	if lockFor <= 0 {
		lockFor = defaultInflightLock
	}

	step := flow.Step
	key := flow.ID + ":" + step.String()
	err := s.idemp.Exec(ctx, key, func(ctx context.Context) error {
		current, err := s.loadFlow(ctx, flow.ID)
		if err != nil {
			return err
		}
		if err := s.requireStep(ctx, current, step); err != nil {
			return err
		}
		return fn(ctx, current)
	}, idempotency.WithLockDuration(lockFor))
	if errors.Is(err, idempotency.ErrAlreadyInProgress) {
		slog.WarnContext(ctx, "submission already in flight", "flow_id", flow.ID, "step", step.String())
		return goerror.NewConflict(msgInFlight)
	}

	var gerr *goerror.Error
	if err != nil && !errors.As(err, &gerr) {
		slog.ErrorContext(ctx, "failed to guard submission", "flow_id", flow.ID, "error", err)
		return goerror.NewServer(err)
	}

	return err
}

func (s *Usecase) selfieMaxSize() int64 {
	if n := s.cfg.GetInt64("modules.auth.selfie_max_size_bytes"); n > 0 {
		return n
	}
	return defaultSelfieMaxSize
}

func (s *Usecase) newChecker(cam liveness.Camera) *liveness.Checker {
	return liveness.NewChecker(cam, s.clock,
		liveness.WithPrompts(s.cfg.GetArray("modules.auth.liveness.prompts")),
		liveness.WithDwell(s.cfg.GetSecond("modules.auth.liveness.dwell_seconds")),
	)
}

func restoreChecker(ctx context.Context, chk *liveness.Checker, flow *entity.Flow) {
	snap := entity.Liveness{Status: entity.LivenessIdle}
	if flow.Liveness != nil {
		snap = *flow.Liveness
	}
	chk.Restore(ctx, snap)
}
