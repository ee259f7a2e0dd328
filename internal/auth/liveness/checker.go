// Package liveness implements the scripted liveness check: a fixed list of
// prompts shown one after another while the camera streams, followed by the
// capture of a still frame. No frame is analysed.
package liveness

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shandysiswandi/selfieauth/internal/auth/entity"
	"github.com/shandysiswandi/selfieauth/internal/pkg/clock"
)

// ErrIllegalState is returned when an action does not fit the current status.
var ErrIllegalState = errors.New("liveness: action not allowed in current state")

// DefaultDwell is how long each prompt stays on screen.
const DefaultDwell = 2 * time.Second

//nolint:gochecknoglobals // read-only
var defaultPrompts = []string{
	"Look straight into the camera",
	"Smile!",
	"Turn your head to the left",
	"Turn your head to the right",
}

// DefaultPrompts returns a copy of the built-in prompt script.
func DefaultPrompts() []string {
	return append([]string(nil), defaultPrompts...)
}

// Option configures a Checker.
type Option func(*Checker)

// WithPrompts replaces the prompt script. An empty list is ignored.
func WithPrompts(prompts []string) Option {
	return func(c *Checker) {
		if len(prompts) > 0 {
			c.prompts = append([]string(nil), prompts...)
		}
	}
}

// WithDwell sets how long each prompt is shown. Non-positive values are ignored.
func WithDwell(d time.Duration) Option {
	return func(c *Checker) {
		if d > 0 {
			c.dwell = d
		}
	}
}

// Checker drives one liveness attempt. It is safe for concurrent use.
type Checker struct {
	mu sync.Mutex

	camera  Camera
	clock   clock.Clocker
	prompts []string
	dwell   time.Duration

	status    entity.LivenessStatus
	startedAt time.Time
	stream    Stream
	// streamOpen tracks the device stream across Snapshot/Restore; stream is
	// only the handle held by this instance.
	streamOpen bool
	image      *entity.SelfieImage
	errMsg     string
}

// NewChecker builds an idle checker. camera may be nil for read-only use, in
// which case every attempt to open it fails as unsupported.
func NewChecker(camera Camera, clk clock.Clocker, opts ...Option) *Checker {
	c := &Checker{
		camera:  camera,
		clock:   clk,
		prompts: DefaultPrompts(),
		dwell:   DefaultDwell,
		status:  entity.LivenessIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start opens the camera. It is allowed from idle and after a camera error.
// A camera failure moves the checker to error and is returned as well.
func (c *Checker) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != entity.LivenessIdle && c.status != entity.LivenessError {
		return c.illegal("start")
	}

	return c.open(ctx)
}

// Begin starts the prompt script.
func (c *Checker) Begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != entity.LivenessStreaming {
		return c.illegal("begin")
	}

	c.status = entity.LivenessChecking
	c.startedAt = c.clock.Now()
	return nil
}

// Status returns the current status, completing the script when its full
// duration has elapsed.
func (c *Checker) Status() entity.LivenessStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.advance()
}

// Prompt returns the prompt on screen and its zero-based index. ok is false
// outside the checking status.
func (c *Checker) Prompt() (prompt string, index int, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.advance() != entity.LivenessChecking {
		return "", 0, false
	}

	index = c.promptIndex()
	return c.prompts[index], index, true
}

// Capture grabs a still from the stream and releases the camera. On a frame
// error the checker keeps streaming so the capture can be repeated.
func (c *Checker) Capture(ctx context.Context) (entity.SelfieImage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.advance() != entity.LivenessSuccess {
		return entity.SelfieImage{}, c.illegal("capture")
	}
	if c.stream == nil {
		return entity.SelfieImage{}, ErrNoFrame
	}

	img, err := c.stream.Frame(ctx)
	if err != nil {
		return entity.SelfieImage{}, err
	}

	c.release()
	c.image = &img
	c.status = entity.LivenessCaptured
	return img, nil
}

// Retake drops the captured image and reacquires the camera.
func (c *Checker) Retake(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != entity.LivenessCaptured {
		return c.illegal("retake")
	}

	c.image = nil
	return c.open(ctx)
}

// Confirm returns the captured image for upload. The status is unchanged.
func (c *Checker) Confirm() (entity.SelfieImage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != entity.LivenessCaptured || c.image == nil {
		return entity.SelfieImage{}, c.illegal("confirm")
	}
	return *c.image, nil
}

// Close releases the stream handle held by this instance.
func (c *Checker) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream != nil {
		c.stream.Stop()
		c.stream = nil
	}
}

// Snapshot captures the persisted part of the checker.
func (c *Checker) Snapshot() entity.Liveness {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.advance()

	snap := entity.Liveness{
		Status:     c.status,
		StartedAt:  c.startedAt,
		Error:      c.errMsg,
		StreamOpen: c.streamOpen,
	}
	if c.image != nil {
		img := *c.image
		snap.Image = &img
	}
	return snap
}

// Restore loads snap. When the snapshot had an open stream the camera is
// reattached; if that fails the checker lands in error.
func (c *Checker) Restore(ctx context.Context, snap entity.Liveness) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.release()
	c.status = snap.Status
	if c.status == "" {
		c.status = entity.LivenessIdle
	}
	c.startedAt = snap.StartedAt
	c.errMsg = snap.Error
	c.image = nil
	if snap.Image != nil {
		img := *snap.Image
		c.image = &img
	}

	if !snap.StreamOpen || c.camera == nil {
		c.streamOpen = snap.StreamOpen
		return
	}

	stream, err := c.camera.Open(ctx)
	if err != nil {
		c.fail(err)
		return
	}
	c.stream = stream
	c.streamOpen = true
}

// View is a read-only rendering of the checker.
type View struct {
	Status      entity.LivenessStatus `json:"status"`
	Prompt      string                `json:"prompt,omitempty"`
	PromptIndex int                   `json:"prompt_index"`
	PromptCount int                   `json:"prompt_count"`
	Error       string                `json:"error,omitempty"`
	Image       string                `json:"image,omitempty"`
}

// View renders the checker. A captured image is returned as a data URI.
func (c *Checker) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		Status:      c.advance(),
		PromptCount: len(c.prompts),
		Error:       c.errMsg,
	}
	if v.Status == entity.LivenessChecking {
		v.PromptIndex = c.promptIndex()
		v.Prompt = c.prompts[v.PromptIndex]
	}
	if v.Status == entity.LivenessCaptured && c.image != nil {
		v.Image = c.image.DataURI()
	}
	return v
}

// open must be called with mu held.
func (c *Checker) open(ctx context.Context) error {
	c.release()
	c.status = entity.LivenessInitializing
	c.errMsg = ""

	if c.camera == nil {
		c.fail(ErrUnsupported)
		return ErrUnsupported
	}

	stream, err := c.camera.Open(ctx)
	if err != nil {
		c.fail(err)
		return err
	}

	c.stream = stream
	c.streamOpen = true
	c.status = entity.LivenessStreaming
	return nil
}

func (c *Checker) fail(err error) {
	c.status = entity.LivenessError
	c.errMsg = cameraMessage(err)
	c.streamOpen = false
}

func (c *Checker) release() {
	if c.stream != nil {
		c.stream.Stop()
		c.stream = nil
	}
	c.streamOpen = false
}

func (c *Checker) advance() entity.LivenessStatus {
	if c.status == entity.LivenessChecking && c.elapsed() >= c.total() {
		c.status = entity.LivenessSuccess
	}
	return c.status
}

func (c *Checker) elapsed() time.Duration {
	d := c.clock.Now().Sub(c.startedAt)
	if d < 0 {
		return 0
	}
	return d
}

func (c *Checker) total() time.Duration {
	return time.Duration(len(c.prompts)) * c.dwell
}

func (c *Checker) promptIndex() int {
	i := int(c.elapsed() / c.dwell)
	if i >= len(c.prompts) {
		i = len(c.prompts) - 1
	}
	return i
}

func (c *Checker) illegal(action string) error {
	return fmt.Errorf("%w: %s while %s", ErrIllegalState, action, c.status)
}
