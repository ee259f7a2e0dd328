package inbound

import (
	"github.com/shandysiswandi/selfieauth/internal/auth/entity"
	"github.com/shandysiswandi/selfieauth/internal/auth/liveness"
)

type FlowResponse struct {
	Step        string            `json:"step"`
	Title       string            `json:"title"`
	PhoneNumber string            `json:"phone_number,omitempty"`
	Liveness    *LivenessResponse `json:"liveness,omitempty"`
}

type SendOTPRequest struct {
	PhoneNumber string `json:"phone_number"`
}

// StepResponse answers a submission that may move the flow.
type StepResponse struct {
	Step  string `json:"step"`
	Title string `json:"title"`

	msg string
}

func newStepResponse(step entity.Step, msg string) StepResponse {
	return StepResponse{Step: step.String(), Title: step.Title(), msg: msg}
}

func (r StepResponse) Message() string {
	return r.msg
}

type VerifyOTPRequest struct {
	OTP string `json:"otp"`
}

type CameraRequest struct {
	Supported bool `json:"supported"`
	Granted   bool `json:"granted"`
}

type CaptureRequest struct {
	// Image is a data URI as produced by canvas.toDataURL, or plain base64.
	Image string `json:"image"`
}

type LivenessResponse struct {
	liveness.View
}

// Message mirrors what the liveness screen shows for the status.
func (r LivenessResponse) Message() string {
	switch r.Status {
	case entity.LivenessIdle:
		return "The app needs to verify you are a real person."
	case entity.LivenessInitializing:
		return "Initializing Camera..."
	case entity.LivenessStreaming:
		return "Position your face inside the circle."
	case entity.LivenessChecking:
		return r.Prompt
	case entity.LivenessSuccess:
		return "Liveness Check Passed!"
	case entity.LivenessCaptured:
		return "Confirm Your Selfie"
	case entity.LivenessError:
		return r.Error
	default:
		return ""
	}
}

type UploadSelfieResponse struct {
	Step     string `json:"step"`
	Title    string `json:"title"`
	ImageURL string `json:"image_url"`

	msg string
}

func (r UploadSelfieResponse) Message() string {
	return r.msg
}

type HomeResponse struct {
	PhoneNumber string `json:"phone_number"`
	SelfieImage string `json:"selfie_image"`

	msg string
}

func (r HomeResponse) Message() string {
	return r.msg
}

type LogoutResponse struct{}

func (LogoutResponse) Message() string {
	return "You have been logged out."
}
