package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/shandysiswandi/selfieauth/internal/auth/entity"
	"github.com/shandysiswandi/selfieauth/internal/pkg/goerror"
)

func TestSendOTP(t *testing.T) {
	t.Run("InvalidPhoneNeverCallsBackend", func(t *testing.T) {
		for _, phone := range []string{"", "15551234567", "+0551234567", "+1555abc4567", "+1555", "+1234567890123456", " +15551234567", "+15551234567 ", " +15551234567 "} {
			// Arrange
			h := newHarness(t)

			// Act
			_, err := h.uc.SendOTP(context.Background(), SendOTPInput{FlowID: "f1", PhoneNumber: phone})

			// Assert
			assertCode(t, err, goerror.CodeInvalidInput)
			if h.backend.calls != 0 {
				t.Fatalf("%q: backend called %d times", phone, h.backend.calls)
			}
		}
	})

	t.Run("SuccessAdvancesToOTP", func(t *testing.T) {
		// Arrange
		h := newHarness(t)
		h.backend.reply = &entity.BackendReply{StatusCode: 200, Success: true, Message: "OTP has been sent to your WhatsApp."}

		// Act
		out, err := h.uc.SendOTP(context.Background(), SendOTPInput{FlowID: "f1", PhoneNumber: "+15551234567"})

		// Assert
		if err != nil {
			t.Fatalf("send otp: %v", err)
		}
		if out.Step != entity.StepOTP || out.Message != "OTP has been sent to your WhatsApp." {
			t.Fatalf("out = %+v", out)
		}
		flow := h.flows.get(t, "f1")
		if flow.Step != entity.StepOTP || flow.PhoneNumber != "+15551234567" {
			t.Fatalf("flow = %+v", flow)
		}
		if h.backend.phone != "+15551234567" {
			t.Fatalf("backend phone = %q", h.backend.phone)
		}
		if len(h.idemp.keys) != 1 || h.idemp.keys[0] != "f1:phone" {
			t.Fatalf("guard keys = %v", h.idemp.keys)
		}
	})

	t.Run("FallbackMessage", func(t *testing.T) {
		// Arrange
		h := newHarness(t)

		// Act
		out, err := h.uc.SendOTP(context.Background(), SendOTPInput{FlowID: "f1", PhoneNumber: " +15551234567 "})

		// Assert
		if err != nil {
			t.Fatalf("send otp: %v", err)
		}
		if out.Message != "OTP has been sent to your WhatsApp." {
			t.Fatalf("message = %q", out.Message)
		}
	})

	t.Run("BackendRejection", func(t *testing.T) {
		// Arrange
		h := newHarness(t)
		h.backend.reply = &entity.BackendReply{
			StatusCode: 429,
			Message:    "This phone number has been rate-limited. Please try again later.",
		}

		// Act
		_, err := h.uc.SendOTP(context.Background(), SendOTPInput{FlowID: "f1", PhoneNumber: "+15555550000"})

		// Assert
		assertCode(t, err, goerror.CodeRejected)
		assertMsg(t, err, "This phone number has been rate-limited. Please try again later.")
		if h.flows.saves != 0 {
			t.Fatalf("flow saved on failure")
		}
	})

	t.Run("ExplicitFailureWithoutMessage", func(t *testing.T) {
		// Arrange
		h := newHarness(t)
		h.backend.reply = &entity.BackendReply{StatusCode: 200, Success: false}

		// Act
		_, err := h.uc.SendOTP(context.Background(), SendOTPInput{FlowID: "f1", PhoneNumber: "+15551234567"})

		// Assert
		assertMsg(t, err, "Failed to send OTP. Please try again.")
	})

	t.Run("TransportFailure", func(t *testing.T) {
		// Arrange
		h := newHarness(t)
		h.backend.err = errors.New("dial tcp: connection refused")

		// Act
		_, err := h.uc.SendOTP(context.Background(), SendOTPInput{FlowID: "f1", PhoneNumber: "+15551234567"})

		// Assert
		assertCode(t, err, goerror.CodeUnavailable)
		assertMsg(t, err, msgUnreachable)
	})

	t.Run("InFlightSubmissionRejected", func(t *testing.T) {
		// Arrange
		h := newHarness(t)
		h.idemp.busy["f1:phone"] = true

		// Act
		_, err := h.uc.SendOTP(context.Background(), SendOTPInput{FlowID: "f1", PhoneNumber: "+15551234567"})

		// Assert
		assertCode(t, err, goerror.CodeConflict)
		if h.backend.calls != 0 {
			t.Fatalf("backend called while in flight")
		}
	})

	t.Run("QueuedSubmissionSeesEarlierResult", func(t *testing.T) {
		// Arrange
		h := newHarness(t)
		h.flows.put(entity.Flow{ID: "f1", Step: entity.StepPhone})
		h.flows.onRead = func(n int) {
			if n != 1 {
				return
			}
			// the first submission completes between the second one's read and its guard
			if _, err := h.uc.SendOTP(context.Background(), SendOTPInput{FlowID: "f1", PhoneNumber: "+15551234567"}); err != nil {
				t.Errorf("first send otp: %v", err)
			}
		}

		// Act
		_, err := h.uc.SendOTP(context.Background(), SendOTPInput{FlowID: "f1", PhoneNumber: "+15559876543"})

		// Assert
		assertCode(t, err, goerror.CodeConflict)
		if h.backend.calls != 1 {
			t.Fatalf("backend calls = %d, want 1", h.backend.calls)
		}
		flow := h.flows.get(t, "f1")
		if flow.Step != entity.StepOTP || flow.PhoneNumber != "+15551234567" {
			t.Fatalf("flow = %+v", flow)
		}
	})

	t.Run("WrongStep", func(t *testing.T) {
		// Arrange
		h := newHarness(t)
		h.flows.put(entity.Flow{ID: "f1", Step: entity.StepOTP, PhoneNumber: "+15551234567"})

		// Act
		_, err := h.uc.SendOTP(context.Background(), SendOTPInput{FlowID: "f1", PhoneNumber: "+15551234567"})

		// Assert
		assertCode(t, err, goerror.CodeConflict)
		if h.backend.calls != 0 {
			t.Fatalf("backend called on wrong step")
		}
	})

	t.Run("StoreFailure", func(t *testing.T) {
		// Arrange
		h := newHarness(t)
		h.flows.getErr = errors.New("redis down")

		// Act
		_, err := h.uc.SendOTP(context.Background(), SendOTPInput{FlowID: "f1", PhoneNumber: "+15551234567"})

		// Assert
		assertCode(t, err, goerror.CodeInternal)
	})
}
