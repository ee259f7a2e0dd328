package liveness

import (
	"context"
	"errors"

	"github.com/shandysiswandi/selfieauth/internal/auth/entity"
)

var (
	ErrPermissionDenied = errors.New("liveness: camera permission denied")
	ErrUnsupported      = errors.New("liveness: camera not supported")
	ErrNoFrame          = errors.New("liveness: no frame available")
)

// Camera hands out a video stream of the user.
type Camera interface {
	Open(ctx context.Context) (Stream, error)
}

// Stream is an open camera. Stop releases every track and is idempotent.
type Stream interface {
	Frame(ctx context.Context) (entity.SelfieImage, error)
	Stop()
}

func cameraMessage(err error) string {
	if errors.Is(err, ErrUnsupported) {
		return "Your browser does not support camera access."
	}
	return "Could not access camera. Please allow camera permissions and try again."
}

// DeviceReport is what the browser tells the service about its camera on a
// given request. Frame is only set when the request carries a still.
type DeviceReport struct {
	Supported bool
	Granted   bool
	Frame     *entity.SelfieImage
}

// Open implements Camera for the camera living in the browser.
func (d DeviceReport) Open(context.Context) (Stream, error) {
	if !d.Supported {
		return nil, ErrUnsupported
	}
	if !d.Granted {
		return nil, ErrPermissionDenied
	}
	return &deviceStream{frame: d.Frame}, nil
}

type deviceStream struct {
	frame   *entity.SelfieImage
	stopped bool
}

func (s *deviceStream) Frame(context.Context) (entity.SelfieImage, error) {
	if s.stopped || s.frame == nil {
		return entity.SelfieImage{}, ErrNoFrame
	}
	return *s.frame, nil
}

func (s *deviceStream) Stop() {
	s.stopped = true
}
