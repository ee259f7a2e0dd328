package inbound

import (
	"context"

	"github.com/shandysiswandi/selfieauth/internal/auth/usecase"
	"github.com/shandysiswandi/selfieauth/internal/pkg/router"
)

type uc interface {
	Flow(ctx context.Context, in usecase.FlowInput) (*usecase.FlowOutput, error)

	SendOTP(ctx context.Context, in usecase.SendOTPInput) (*usecase.SendOTPOutput, error)
	VerifyOTP(ctx context.Context, in usecase.VerifyOTPInput) (*usecase.VerifyOTPOutput, error)

	LivenessStart(ctx context.Context, in usecase.LivenessInput) (*usecase.LivenessOutput, error)
	LivenessReady(ctx context.Context, in usecase.LivenessInput) (*usecase.LivenessOutput, error)
	LivenessStatus(ctx context.Context, in usecase.LivenessInput) (*usecase.LivenessOutput, error)
	LivenessCapture(ctx context.Context, in usecase.LivenessInput) (*usecase.LivenessOutput, error)
	LivenessRetake(ctx context.Context, in usecase.LivenessInput) (*usecase.LivenessOutput, error)

	UploadSelfie(ctx context.Context, in usecase.UploadSelfieInput) (*usecase.UploadSelfieOutput, error)
	Home(ctx context.Context, in usecase.HomeInput) (*usecase.HomeOutput, error)
	Logout(ctx context.Context, in usecase.LogoutInput) error
}

// RegisterHTTPEndpoint mounts the authentication flow. secureCookies sets the
// Secure attribute on the session cookie.
func RegisterHTTPEndpoint(r *router.Router, uc uc, secureCookies bool) {
	end := &HTTPEndpoint{uc: uc, secureCookies: secureCookies}

	r.GET("/api/v1/auth/flow", end.Flow)

	// Phone & OTP
	r.POST("/api/v1/auth/phone", end.SendOTP)
	r.POST("/api/v1/auth/otp", end.VerifyOTP)

	// Liveness
	r.POST("/api/v1/auth/liveness/camera", end.LivenessCamera)
	r.POST("/api/v1/auth/liveness/ready", end.LivenessReady)
	r.GET("/api/v1/auth/liveness", end.LivenessStatus)
	r.POST("/api/v1/auth/liveness/capture", end.LivenessCapture)
	r.POST("/api/v1/auth/liveness/retake", end.LivenessRetake)

	// Upload & session (need session cookie)
	r.POST("/api/v1/auth/selfie", end.UploadSelfie)
	r.GET("/api/v1/auth/home", end.Home)
	r.POST("/api/v1/auth/logout", end.Logout)
}
