package inbound

import (
	"io"

	"github.com/shandysiswandi/selfieauth/internal/auth/entity"
	"github.com/shandysiswandi/selfieauth/internal/auth/liveness"
	"github.com/shandysiswandi/selfieauth/internal/auth/usecase"
	"github.com/shandysiswandi/selfieauth/internal/pkg/goerror"
	"github.com/shandysiswandi/selfieauth/internal/pkg/router"
)

// maxFrameBytes bounds how much of an uploaded still is read; the usecase
// applies the configured selfie limit on top.
const maxFrameBytes = 16 << 20

// HTTPEndpoint exposes the authentication flow to the browser.
type HTTPEndpoint struct {
	uc            uc
	secureCookies bool
}

// Flow returns the step the browser should render.
// @Summary Current flow step
// @Tags Auth
// @Produce json
// @Success 200 {object} router.successResponse{data=FlowResponse}
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/auth/flow [get]
func (h *HTTPEndpoint) Flow(r *router.Request) (any, error) {
	resp, err := h.uc.Flow(r.Context(), usecase.FlowInput{FlowID: r.FlowID()})
	if err != nil {
		return nil, err
	}

	out := FlowResponse{
		Step:        resp.Step.String(),
		Title:       resp.Title,
		PhoneNumber: resp.PhoneNumber,
	}
	if resp.Liveness != nil {
		out.Liveness = &LivenessResponse{View: *resp.Liveness}
	}

	return out, nil
}

// SendOTP validates the phone number and asks the backend to send an OTP.
// @Summary Send OTP
// @Description Validates the phone number locally (E.164) and requests an OTP from the authentication backend.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body SendOTPRequest true "Phone payload"
// @Success 200 {object} router.successResponse{data=StepResponse}
// @Failure 400 {object} router.errorResponse "Rejected by backend"
// @Failure 409 {object} router.errorResponse "Wrong step or already in progress"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 503 {object} router.errorResponse "Backend unreachable"
// @Router /api/v1/auth/phone [post]
func (h *HTTPEndpoint) SendOTP(r *router.Request) (any, error) {
	var req SendOTPRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.SendOTP(r.Context(), usecase.SendOTPInput{
		FlowID:      r.FlowID(),
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		return nil, err
	}

	return newStepResponse(resp.Step, resp.Message), nil
}

// VerifyOTP checks the code and stores the session token as an http-only cookie.
// @Summary Verify OTP
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body VerifyOTPRequest true "OTP payload"
// @Success 200 {object} router.successResponse{data=StepResponse}
// @Failure 400 {object} router.errorResponse "Rejected by backend"
// @Failure 409 {object} router.errorResponse "Wrong step or already in progress"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 503 {object} router.errorResponse "Backend unreachable"
// @Router /api/v1/auth/otp [post]
func (h *HTTPEndpoint) VerifyOTP(r *router.Request) (any, error) {
	var req VerifyOTPRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.VerifyOTP(r.Context(), usecase.VerifyOTPInput{
		FlowID: r.FlowID(),
		OTP:    req.OTP,
		Tokens: newCookieTokens(r, h.secureCookies),
	})
	if err != nil {
		return nil, err
	}

	return newStepResponse(resp.Step, resp.Message), nil
}

// LivenessCamera reports whether the browser could open the camera.
// @Summary Report camera access
// @Tags Auth, Liveness
// @Accept json
// @Produce json
// @Param request body CameraRequest true "Camera outcome"
// @Success 200 {object} router.successResponse{data=LivenessResponse}
// @Failure 409 {object} router.errorResponse "Wrong step"
// @Router /api/v1/auth/liveness/camera [post]
func (h *HTTPEndpoint) LivenessCamera(r *router.Request) (any, error) {
	var req CameraRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	return livenessResponse(h.uc.LivenessStart(r.Context(), usecase.LivenessInput{
		FlowID: r.FlowID(),
		Camera: liveness.DeviceReport{Supported: req.Supported, Granted: req.Granted},
	}))
}

// LivenessReady starts the prompt script.
// @Summary Start liveness prompts
// @Tags Auth, Liveness
// @Produce json
// @Success 200 {object} router.successResponse{data=LivenessResponse}
// @Failure 409 {object} router.errorResponse "Camera not streaming"
// @Router /api/v1/auth/liveness/ready [post]
func (h *HTTPEndpoint) LivenessReady(r *router.Request) (any, error) {
	return livenessResponse(h.uc.LivenessReady(r.Context(), usecase.LivenessInput{FlowID: r.FlowID()}))
}

// LivenessStatus is polled while the prompts run.
// @Summary Liveness status
// @Tags Auth, Liveness
// @Produce json
// @Success 200 {object} router.successResponse{data=LivenessResponse}
// @Router /api/v1/auth/liveness [get]
func (h *HTTPEndpoint) LivenessStatus(r *router.Request) (any, error) {
	return livenessResponse(h.uc.LivenessStatus(r.Context(), usecase.LivenessInput{FlowID: r.FlowID()}))
}

// LivenessCapture receives the still frame, either as a multipart "image"
// file or as a JSON data URI.
// @Summary Capture selfie
// @Tags Auth, Liveness
// @Accept multipart/form-data
// @Accept json
// @Produce json
// @Param image formData file false "Captured frame"
// @Success 200 {object} router.successResponse{data=LivenessResponse}
// @Failure 409 {object} router.errorResponse "Liveness check not passed"
// @Failure 413 {object} router.errorResponse "Image too large"
// @Failure 422 {object} router.errorResponse "Unsupported image"
// @Router /api/v1/auth/liveness/capture [post]
func (h *HTTPEndpoint) LivenessCapture(r *router.Request) (any, error) {
	frame, err := readFrame(r)
	if err != nil {
		return nil, err
	}

	return livenessResponse(h.uc.LivenessCapture(r.Context(), usecase.LivenessInput{
		FlowID: r.FlowID(),
		Camera: liveness.DeviceReport{Supported: true, Granted: true, Frame: frame},
	}))
}

// LivenessRetake discards the capture and reopens the camera.
// @Summary Retake selfie
// @Tags Auth, Liveness
// @Accept json
// @Produce json
// @Param request body CameraRequest true "Camera outcome"
// @Success 200 {object} router.successResponse{data=LivenessResponse}
// @Failure 409 {object} router.errorResponse "Nothing to retake"
// @Router /api/v1/auth/liveness/retake [post]
func (h *HTTPEndpoint) LivenessRetake(r *router.Request) (any, error) {
	var req CameraRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	return livenessResponse(h.uc.LivenessRetake(r.Context(), usecase.LivenessInput{
		FlowID: r.FlowID(),
		Camera: liveness.DeviceReport{Supported: req.Supported, Granted: req.Granted},
	}))
}

// UploadSelfie sends the captured selfie to the backend.
// @Summary Upload selfie
// @Description Uploads the captured selfie with the session token. A 401 from the backend clears the session and sets requires_login.
// @Tags Auth
// @Produce json
// @Success 200 {object} router.successResponse{data=UploadSelfieResponse}
// @Failure 400 {object} router.errorResponse "Rejected by backend"
// @Failure 401 {object} router.errorResponse "Session expired, requires_login is true"
// @Failure 409 {object} router.errorResponse "Nothing captured or already in progress"
// @Failure 413 {object} router.errorResponse "Image too large"
// @Failure 503 {object} router.errorResponse "Backend unreachable"
// @Router /api/v1/auth/selfie [post]
func (h *HTTPEndpoint) UploadSelfie(r *router.Request) (any, error) {
	resp, err := h.uc.UploadSelfie(r.Context(), usecase.UploadSelfieInput{
		FlowID: r.FlowID(),
		Tokens: newCookieTokens(r, h.secureCookies),
	})
	if err != nil {
		return nil, err
	}

	return UploadSelfieResponse{
		Step:     resp.Step.String(),
		Title:    resp.Step.Title(),
		ImageURL: resp.ImageURL,
		msg:      resp.Message,
	}, nil
}

// Home renders the authenticated view.
// @Summary Home
// @Tags Auth
// @Produce json
// @Success 200 {object} router.successResponse{data=HomeResponse}
// @Failure 401 {object} router.errorResponse "Session missing"
// @Failure 409 {object} router.errorResponse "Flow not finished"
// @Router /api/v1/auth/home [get]
func (h *HTTPEndpoint) Home(r *router.Request) (any, error) {
	resp, err := h.uc.Home(r.Context(), usecase.HomeInput{
		FlowID: r.FlowID(),
		Tokens: newCookieTokens(r, h.secureCookies),
	})
	if err != nil {
		return nil, err
	}

	return HomeResponse{
		PhoneNumber: resp.PhoneNumber,
		SelfieImage: resp.SelfieImage,
		msg:         resp.Message,
	}, nil
}

// Logout clears the session cookie and restarts the flow.
// @Summary Logout
// @Tags Auth
// @Produce json
// @Success 200 {object} router.successResponse{data=LogoutResponse}
// @Router /api/v1/auth/logout [post]
func (h *HTTPEndpoint) Logout(r *router.Request) (any, error) {
	if err := h.uc.Logout(r.Context(), usecase.LogoutInput{
		FlowID: r.FlowID(),
		Tokens: newCookieTokens(r, h.secureCookies),
	}); err != nil {
		return nil, err
	}

	return LogoutResponse{}, nil
}

func livenessResponse(out *usecase.LivenessOutput, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return LivenessResponse{View: out.View}, nil
}

func readFrame(r *router.Request) (*entity.SelfieImage, error) {
	if !r.IsMultipart() {
		var req CaptureRequest
		if err := r.DecodeBody(&req); err != nil {
			return nil, err
		}
		if req.Image == "" {
			return nil, goerror.NewInvalidInput(nil, "image", "image is required")
		}
		return &entity.SelfieImage{Data: []byte(req.Image)}, nil
	}

	file, contentType, err := r.StreamSingleFile("image")
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxFrameBytes+1))
	if err != nil {
		return nil, goerror.NewInvalidFormat("Failed to read image")
	}
	if len(data) > maxFrameBytes {
		return nil, goerror.NewTooLarge("Image is too large.")
	}

	return &entity.SelfieImage{Data: data, ContentType: contentType}, nil
}
