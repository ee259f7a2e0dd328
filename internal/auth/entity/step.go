package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrIllegalTransition is returned when an event does not apply to the current step.
	ErrIllegalTransition = errors.New("auth: illegal step transition")

	ErrUnknownStep = errors.New("auth: unknown step")
)

// Step is the position of a flow in the phone -> otp -> liveness -> home sequence.
type Step int8

const (
	StepPhone Step = iota
	StepOTP
	StepLiveness
	StepHome
)

func (s Step) String() string {
	switch s {
	case StepPhone:
		return "phone"
	case StepOTP:
		return "otp"
	case StepLiveness:
		return "liveness"
	case StepHome:
		return "home"
	default:
		return "unknown"
	}
}

// Title is the heading shown to the user on the step.
func (s Step) Title() string {
	switch s {
	case StepOTP:
		return "Verify OTP"
	case StepLiveness:
		return "Liveness Check"
	case StepHome:
		return "Welcome!"
	default:
		return "Enter Your Phone Number"
	}
}

func (s Step) MarshalText() ([]byte, error) {
	if s < StepPhone || s > StepHome {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStep, s)
	}
	return []byte(s.String()), nil
}

func (s *Step) UnmarshalText(b []byte) error {
	switch string(b) {
	case "phone":
		*s = StepPhone
	case "otp":
		*s = StepOTP
	case "liveness":
		*s = StepLiveness
	case "home":
		*s = StepHome
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStep, b)
	}
	return nil
}

// Event moves a flow from one step to another.
type Event int8

const (
	EventOTPSent Event = iota + 1
	EventOTPVerified
	EventSelfieUploaded
	EventLogout
	EventSessionExpired
)

func (e Event) String() string {
	switch e {
	case EventOTPSent:
		return "otp_sent"
	case EventOTPVerified:
		return "otp_verified"
	case EventSelfieUploaded:
		return "selfie_uploaded"
	case EventLogout:
		return "logout"
	case EventSessionExpired:
		return "session_expired"
	default:
		return "unknown"
	}
}

// Next is the single reducer of the flow. Logout and SessionExpired are
// accepted from every step; every other event only from its own step.
func (s Step) Next(e Event) (Step, error) {
	switch {
	case e == EventLogout, e == EventSessionExpired:
		return StepPhone, nil
	case s == StepPhone && e == EventOTPSent:
		return StepOTP, nil
	case s == StepOTP && e == EventOTPVerified:
		return StepLiveness, nil
	case s == StepLiveness && e == EventSelfieUploaded:
		return StepHome, nil
	default:
		return s, fmt.Errorf("%w: %s on %s", ErrIllegalTransition, e, s)
	}
}
