package liveness

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shandysiswandi/selfieauth/internal/auth/entity"
	"github.com/shandysiswandi/selfieauth/internal/pkg/clock"
)

type fakeCamera struct {
	openErr   error
	frame     entity.SelfieImage
	opens     int
	active    int
	maxActive int
}

func (f *fakeCamera) Open(context.Context) (Stream, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.opens++
	f.active++
	if f.active > f.maxActive {
		f.maxActive = f.active
	}
	return &fakeStream{cam: f}, nil
}

type fakeStream struct {
	cam     *fakeCamera
	stopped bool
}

func (s *fakeStream) Frame(context.Context) (entity.SelfieImage, error) {
	if s.stopped {
		return entity.SelfieImage{}, ErrNoFrame
	}
	return s.cam.frame, nil
}

func (s *fakeStream) Stop() {
	if !s.stopped {
		s.stopped = true
		s.cam.active--
	}
}

func newTestChecker(cam Camera) (*Checker, *clock.Manual) {
	clk := clock.NewManual(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	return NewChecker(cam, clk), clk
}

func toSuccess(t *testing.T, c *Checker, clk *clock.Manual) {
	t.Helper()
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := c.Begin(); err != nil {
		t.Fatalf("begin: %v", err)
	}
	clk.Advance(8 * time.Second)
	if got := c.Status(); got != entity.LivenessSuccess {
		t.Fatalf("status = %s, want success", got)
	}
}

func TestChecker_Start(t *testing.T) {
	t.Run("CameraOpens", func(t *testing.T) {
		cam := &fakeCamera{}
		c, _ := newTestChecker(cam)

		err := c.Start(context.Background())

		if err != nil {
			t.Fatalf("start: %v", err)
		}
		if got := c.Status(); got != entity.LivenessStreaming {
			t.Fatalf("status = %s", got)
		}
		if cam.active != 1 {
			t.Fatalf("active = %d", cam.active)
		}
	})

	t.Run("PermissionDenied", func(t *testing.T) {
		c, _ := newTestChecker(&fakeCamera{openErr: ErrPermissionDenied})

		err := c.Start(context.Background())

		if !errors.Is(err, ErrPermissionDenied) {
			t.Fatalf("err = %v", err)
		}
		v := c.View()
		if v.Status != entity.LivenessError {
			t.Fatalf("status = %s", v.Status)
		}
		if v.Error != "Could not access camera. Please allow camera permissions and try again." {
			t.Fatalf("error = %q", v.Error)
		}
	})

	t.Run("UnsupportedBrowser", func(t *testing.T) {
		c, _ := newTestChecker(DeviceReport{})

		_ = c.Start(context.Background())

		if got := c.View().Error; got != "Your browser does not support camera access." {
			t.Fatalf("error = %q", got)
		}
	})

	t.Run("RetryAfterError", func(t *testing.T) {
		cam := &fakeCamera{openErr: ErrPermissionDenied}
		c, _ := newTestChecker(cam)
		_ = c.Start(context.Background())

		cam.openErr = nil
		err := c.Start(context.Background())

		if err != nil {
			t.Fatalf("start: %v", err)
		}
		if v := c.View(); v.Status != entity.LivenessStreaming || v.Error != "" {
			t.Fatalf("view = %+v", v)
		}
	})

	t.Run("NotAllowedWhileStreaming", func(t *testing.T) {
		c, _ := newTestChecker(&fakeCamera{})
		_ = c.Start(context.Background())

		if err := c.Start(context.Background()); !errors.Is(err, ErrIllegalState) {
			t.Fatalf("err = %v", err)
		}
	})
}

func TestChecker_Prompts(t *testing.T) {
	c, clk := newTestChecker(&fakeCamera{})
	_ = c.Start(context.Background())
	if err := c.Begin(); err != nil {
		t.Fatalf("begin: %v", err)
	}

	steps := []struct {
		at   time.Duration
		want string
		idx  int
	}{
		{at: 0, want: "Look straight into the camera", idx: 0},
		{at: 1999 * time.Millisecond, want: "Look straight into the camera", idx: 0},
		{at: 2 * time.Second, want: "Smile!", idx: 1},
		{at: 4 * time.Second, want: "Turn your head to the left", idx: 2},
		{at: 7999 * time.Millisecond, want: "Turn your head to the right", idx: 3},
	}

	start := clk.Now()
	for _, st := range steps {
		clk.Set(start.Add(st.at))
		got, idx, ok := c.Prompt()
		if !ok || got != st.want || idx != st.idx {
			t.Fatalf("at %s prompt = %q/%d/%v, want %q/%d", st.at, got, idx, ok, st.want, st.idx)
		}
	}

	clk.Set(start.Add(8 * time.Second))
	if got := c.Status(); got != entity.LivenessSuccess {
		t.Fatalf("status after 8s = %s", got)
	}
	if _, _, ok := c.Prompt(); ok {
		t.Fatal("no prompt expected after success")
	}
}

func TestChecker_CustomScript(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))
	c := NewChecker(&fakeCamera{}, clk, WithPrompts([]string{"Blink"}), WithDwell(time.Second))
	_ = c.Start(context.Background())
	_ = c.Begin()

	clk.Advance(999 * time.Millisecond)
	if got := c.Status(); got != entity.LivenessChecking {
		t.Fatalf("status = %s", got)
	}
	clk.Advance(time.Millisecond)
	if got := c.Status(); got != entity.LivenessSuccess {
		t.Fatalf("status = %s", got)
	}
}

func TestChecker_CaptureRetake(t *testing.T) {
	t.Run("NeverMoreThanOneActiveStream", func(t *testing.T) {
		cam := &fakeCamera{frame: entity.SelfieImage{Data: []byte{1}, ContentType: "image/png"}}
		c, clk := newTestChecker(cam)
		toSuccess(t, c, clk)

		if _, err := c.Capture(context.Background()); err != nil {
			t.Fatalf("capture: %v", err)
		}
		if cam.active != 0 {
			t.Fatalf("stream not released on capture, active = %d", cam.active)
		}

		if err := c.Retake(context.Background()); err != nil {
			t.Fatalf("retake: %v", err)
		}
		if got := c.Status(); got != entity.LivenessStreaming {
			t.Fatalf("status after retake = %s", got)
		}
		if _, err := c.Confirm(); !errors.Is(err, ErrIllegalState) {
			t.Fatalf("image kept after retake: %v", err)
		}

		_ = c.Begin()
		clk.Advance(8 * time.Second)
		img, err := c.Capture(context.Background())
		if err != nil {
			t.Fatalf("second capture: %v", err)
		}
		c.Close()

		if cam.maxActive != 1 {
			t.Fatalf("max active streams = %d", cam.maxActive)
		}
		if cam.active != 0 {
			t.Fatalf("active after close = %d", cam.active)
		}
		if cam.opens != 2 {
			t.Fatalf("opens = %d", cam.opens)
		}
		if img.ContentType != "image/png" {
			t.Fatalf("image = %+v", img)
		}
	})

	t.Run("CaptureBeforeSuccess", func(t *testing.T) {
		c, _ := newTestChecker(&fakeCamera{})
		_ = c.Start(context.Background())

		if _, err := c.Capture(context.Background()); !errors.Is(err, ErrIllegalState) {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("ConfirmReturnsTheCapture", func(t *testing.T) {
		cam := &fakeCamera{frame: entity.SelfieImage{Data: []byte("x"), ContentType: "image/jpeg"}}
		c, clk := newTestChecker(cam)
		toSuccess(t, c, clk)
		_, _ = c.Capture(context.Background())

		img, err := c.Confirm()

		if err != nil || string(img.Data) != "x" {
			t.Fatalf("confirm = %+v, %v", img, err)
		}
		if got := c.Status(); got != entity.LivenessCaptured {
			t.Fatalf("status = %s", got)
		}
	})
}

func TestChecker_SnapshotRestore(t *testing.T) {
	t.Run("CheckingSurvivesARoundTrip", func(t *testing.T) {
		cam := &fakeCamera{}
		c, clk := newTestChecker(cam)
		_ = c.Start(context.Background())
		_ = c.Begin()
		clk.Advance(3 * time.Second)
		snap := c.Snapshot()
		c.Close()

		restored := NewChecker(nil, clk)
		restored.Restore(context.Background(), snap)

		got, idx, ok := restored.Prompt()
		if !ok || idx != 1 || got != "Smile!" {
			t.Fatalf("prompt = %q/%d/%v", got, idx, ok)
		}
		if !restored.Snapshot().StreamOpen {
			t.Fatal("stream flag lost")
		}
	})

	t.Run("OpenStreamIsReattached", func(t *testing.T) {
		cam := &fakeCamera{frame: entity.SelfieImage{Data: []byte{9}, ContentType: "image/webp"}}
		c, clk := newTestChecker(cam)
		toSuccess(t, c, clk)
		snap := c.Snapshot()
		c.Close()

		restored := NewChecker(cam, clk)
		restored.Restore(context.Background(), snap)
		img, err := restored.Capture(context.Background())

		if err != nil || img.ContentType != "image/webp" {
			t.Fatalf("capture = %+v, %v", img, err)
		}
		if cam.active != 0 {
			t.Fatalf("active = %d", cam.active)
		}
	})

	t.Run("ReattachFailureLandsInError", func(t *testing.T) {
		c, clk := newTestChecker(&fakeCamera{})
		toSuccess(t, c, clk)
		snap := c.Snapshot()

		restored := NewChecker(DeviceReport{Supported: true}, clk)
		restored.Restore(context.Background(), snap)

		if got := restored.Status(); got != entity.LivenessError {
			t.Fatalf("status = %s", got)
		}
	})
}

func TestDeviceReport(t *testing.T) {
	frame := entity.SelfieImage{Data: []byte{1}, ContentType: "image/png"}
	s, err := DeviceReport{Supported: true, Granted: true, Frame: &frame}.Open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	got, err := s.Frame(context.Background())
	if err != nil || got.ContentType != "image/png" {
		t.Fatalf("frame = %+v, %v", got, err)
	}

	s.Stop()
	if _, err := s.Frame(context.Background()); !errors.Is(err, ErrNoFrame) {
		t.Fatalf("frame after stop: %v", err)
	}

	if _, err := (DeviceReport{Supported: true}).Open(context.Background()); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("err = %v", err)
	}
}
