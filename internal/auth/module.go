package auth

import (
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/selfieauth/internal/auth/inbound"
	"github.com/shandysiswandi/selfieauth/internal/auth/outbound/backend"
	"github.com/shandysiswandi/selfieauth/internal/auth/outbound/cache"
	"github.com/shandysiswandi/selfieauth/internal/auth/outbound/mq"
	"github.com/shandysiswandi/selfieauth/internal/auth/usecase"
	"github.com/shandysiswandi/selfieauth/internal/pkg/clock"
	"github.com/shandysiswandi/selfieauth/internal/pkg/config"
	"github.com/shandysiswandi/selfieauth/internal/pkg/goroutine"
	"github.com/shandysiswandi/selfieauth/internal/pkg/idempotency"
	"github.com/shandysiswandi/selfieauth/internal/pkg/instrument"
	"github.com/shandysiswandi/selfieauth/internal/pkg/jwt"
	"github.com/shandysiswandi/selfieauth/internal/pkg/messaging"
	"github.com/shandysiswandi/selfieauth/internal/pkg/router"
	"github.com/shandysiswandi/selfieauth/internal/pkg/validator"
)

type Dependency struct {
	CacheConn   redis.UniversalClient      `validate:"required"`
	Goroutine   *goroutine.Manager         `validate:"required"`
	Router      *router.Router             `validate:"required"`
	Idempotency idempotency.Idempotency    `validate:"required"`
	Messaging   messaging.Publisher        `validate:"required"`
	Config      config.Config              `validate:"required"`
	Instrument  instrument.Instrumentation `validate:"required"`
	Clock       clock.Clocker              `validate:"required"`
	Validator   validator.Validator        `validate:"required"`
	JWT         *jwt.Inspector             `validate:"required"`

	// BackendTransport overrides the transport used to reach the backend.
	// Nil uses http.DefaultTransport.
	BackendTransport http.RoundTripper
	SecureCookies    bool
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	cfg := dep.Config

	repoBackend := backend.NewClient(backend.Config{
		BaseURL:            cfg.GetString("modules.auth.backend.base_url"),
		SendOTPPath:        cfg.GetString("modules.auth.backend.send_otp_path"),
		VerifyOTPPath:      cfg.GetString("modules.auth.backend.verify_otp_path"),
		UploadPortraitPath: cfg.GetString("modules.auth.backend.upload_portrait_path"),
		LoginPlatform:      cfg.GetString("modules.auth.backend.login_platform"),
		Timeout:            cfg.GetSecond("modules.auth.backend.timeout_seconds"),
	}, dep.BackendTransport, dep.Instrument)

	repoFlow := cache.NewFlow(dep.CacheConn, FlowTTL(cfg), dep.Instrument)
	repoMsg := mq.NewMessaging(dep.Messaging, dep.Instrument)

	uc := usecase.New(usecase.Dependency{
		RepoFlow:      repoFlow,
		RepoBackend:   repoBackend,
		RepoMessaging: repoMsg,
		Idempotency:   dep.Idempotency,
		Validator:     dep.Validator,
		Config:        dep.Config,
		Clock:         dep.Clock,
		JWT:           dep.JWT,
		Instrument:    dep.Instrument,
		Goroutine:     dep.Goroutine,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc, dep.SecureCookies)

	return nil
}

// FlowTTL is how long an idle flow and its cookie survive.
func FlowTTL(cfg config.Config) time.Duration {
	if ttl := cfg.GetMinute("modules.auth.flow_ttl_minutes"); ttl > 0 {
		return ttl
	}
	return 30 * time.Minute
}
