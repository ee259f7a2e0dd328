package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/shandysiswandi/selfieauth/internal/auth/entity"
	"github.com/shandysiswandi/selfieauth/internal/pkg/clock"
	"github.com/shandysiswandi/selfieauth/internal/pkg/config"
	"github.com/shandysiswandi/selfieauth/internal/pkg/goerror"
	"github.com/shandysiswandi/selfieauth/internal/pkg/goroutine"
	"github.com/shandysiswandi/selfieauth/internal/pkg/idempotency"
	"github.com/shandysiswandi/selfieauth/internal/pkg/instrument"
	"github.com/shandysiswandi/selfieauth/internal/pkg/jwt"
	"github.com/shandysiswandi/selfieauth/internal/pkg/validator"
)

const testConfig = `
modules:
  auth:
    inflight_lock_seconds: 30
    selfie_max_size_bytes: 5242880
    liveness:
      dwell_seconds: 2
`

//nolint:gochecknoglobals // test fixtures
var (
	testPNG  = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 24)...)
	testJPEG = append([]byte("\xff\xd8\xff\xe0"), make([]byte, 24)...)
	testWEBP = append([]byte("RIFF\x00\x00\x00\x00WEBPVP8 "), make([]byte, 16)...)
)

type fakeFlowRepo struct {
	mu      sync.Mutex
	flows   map[string]entity.Flow
	saves   int
	reads   int
	getErr  error
	saveErr error

	// onRead runs after the nth read has been taken, outside the lock.
	onRead func(n int)
}

func newFakeFlowRepo() *fakeFlowRepo {
	return &fakeFlowRepo{flows: map[string]entity.Flow{}}
}

func (f *fakeFlowRepo) GetFlow(_ context.Context, id string) (*entity.Flow, error) {
	flow, n, err := f.read(id)
	if f.onRead != nil {
		f.onRead(n)
	}
	return flow, err
}

func (f *fakeFlowRepo) read(id string) (*entity.Flow, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.reads++
	if f.getErr != nil {
		return nil, f.reads, f.getErr
	}
	flow, ok := f.flows[id]
	if !ok {
		return nil, f.reads, goerror.ErrNotFound
	}
	return &flow, f.reads, nil
}

func (f *fakeFlowRepo) SaveFlow(_ context.Context, flow *entity.Flow) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	f.flows[flow.ID] = *flow
	return nil
}

func (f *fakeFlowRepo) put(flow entity.Flow) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flows[flow.ID] = flow
}

func (f *fakeFlowRepo) get(t *testing.T, id string) entity.Flow {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	flow, ok := f.flows[id]
	if !ok {
		t.Fatalf("flow %s not stored", id)
	}
	return flow
}

type fakeBackend struct {
	mu       sync.Mutex
	reply    *entity.BackendReply
	err      error
	calls    int
	phone    string
	otp      string
	portrait entity.Portrait
}

func (f *fakeBackend) answer() (*entity.BackendReply, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	r := *f.reply
	return &r, nil
}

func (f *fakeBackend) SendOTP(_ context.Context, phoneNumber string) (*entity.BackendReply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.phone = phoneNumber
	return f.answer()
}

func (f *fakeBackend) VerifyOTP(_ context.Context, phoneNumber, otp string) (*entity.BackendReply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.phone, f.otp = phoneNumber, otp
	return f.answer()
}

func (f *fakeBackend) UploadPortrait(_ context.Context, in entity.Portrait) (*entity.BackendReply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.portrait = in
	return f.answer()
}

type fakeMessaging struct {
	mu       sync.Mutex
	verified []PhoneVerifiedEvent
	uploaded []SelfieUploadedEvent
}

func (f *fakeMessaging) PublishPhoneVerified(_ context.Context, msg PhoneVerifiedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verified = append(f.verified, msg)
	return nil
}

func (f *fakeMessaging) PublishSelfieUploaded(_ context.Context, msg SelfieUploadedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploaded = append(f.uploaded, msg)
	return nil
}

// fakeIdempotency refuses every key in busy.
type fakeIdempotency struct {
	mu   sync.Mutex
	busy map[string]bool
	keys []string
}

func (f *fakeIdempotency) Exec(ctx context.Context, key string, fn func(context.Context) error, _ ...idempotency.Option) error {
	f.mu.Lock()
	f.keys = append(f.keys, key)
	busy := f.busy[key]
	f.mu.Unlock()

	if busy {
		return idempotency.ErrAlreadyInProgress
	}
	return fn(ctx)
}

type fakeTokens struct {
	token   string
	exp     time.Time
	has     bool
	cleared int
}

func (f *fakeTokens) Token() (string, bool) { return f.token, f.has }

func (f *fakeTokens) SetToken(token string, exp time.Time) {
	f.token, f.exp, f.has = token, exp, true
}

func (f *fakeTokens) ClearToken() {
	f.token, f.exp, f.has = "", time.Time{}, false
	f.cleared++
}

type harness struct {
	uc      *Usecase
	flows   *fakeFlowRepo
	backend *fakeBackend
	msg     *fakeMessaging
	idemp   *fakeIdempotency
	clock   *clock.Manual
	workers *goroutine.Manager
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(testConfig))
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	v, err := validator.NewV10Validator()
	if err != nil {
		t.Fatalf("validator: %v", err)
	}

	h := &harness{
		flows:   newFakeFlowRepo(),
		backend: &fakeBackend{reply: &entity.BackendReply{StatusCode: 200, Success: true}},
		msg:     &fakeMessaging{},
		idemp:   &fakeIdempotency{busy: map[string]bool{}},
		clock:   clock.NewManual(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)),
		workers: goroutine.NewManager(4),
	}

	h.uc = New(Dependency{
		RepoFlow:      h.flows,
		RepoBackend:   h.backend,
		RepoMessaging: h.msg,
		Idempotency:   h.idemp,
		Validator:     v,
		Config:        cfg,
		Clock:         h.clock,
		JWT:           jwt.NewInspector(h.clock, 0),
		Instrument:    instrument.NewNoop(),
		Goroutine:     h.workers,
	})

	return h
}

func (h *harness) drain(t *testing.T) {
	t.Helper()
	if err := h.workers.Wait(); err != nil {
		t.Fatalf("workers: %v", err)
	}
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, gojwt.RegisteredClaims{
		Subject:   "+15551234567",
		ExpiresAt: gojwt.NewNumericDate(exp),
	}).SignedString([]byte("backend-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func assertCode(t *testing.T, err error, code goerror.Code) {
	t.Helper()
	if !goerror.IsCode(err, code) {
		t.Fatalf("err = %v, want code %s", err, code)
	}
}

func assertMsg(t *testing.T, err error, msg string) {
	t.Helper()
	ge, ok := err.(*goerror.Error)
	if !ok {
		t.Fatalf("err = %T %v, want *goerror.Error", err, err)
	}
	if ge.Msg() != msg {
		t.Fatalf("msg = %q, want %q", ge.Msg(), msg)
	}
}
