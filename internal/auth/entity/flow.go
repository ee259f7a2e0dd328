package entity

import (
	"encoding/base64"
	"time"
)

// Flow is the per-browser authentication state.
type Flow struct {
	ID          string    `json:"id"`
	Step        Step      `json:"step"`
	PhoneNumber string    `json:"phone_number,omitempty"`
	Selfie      string    `json:"selfie,omitempty"` // display URL or data URI
	Liveness    *Liveness `json:"liveness,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewFlow starts a flow at the phone step.
func NewFlow(id string, now time.Time) *Flow {
	return &Flow{ID: id, Step: StepPhone, UpdatedAt: now}
}

// Reset returns the flow to the phone step and forgets everything collected.
func (f *Flow) Reset() {
	f.Step = StepPhone
	f.PhoneNumber = ""
	f.Selfie = ""
	f.Liveness = nil
}

// Apply runs e through Step.Next. Events that lead back to the phone step
// also reset the flow.
func (f *Flow) Apply(e Event) error {
	next, err := f.Step.Next(e)
	if err != nil {
		return err
	}

	if next == StepPhone {
		f.Reset()
		return nil
	}

	f.Step = next
	return nil
}

// LivenessStatus is the state of the liveness checker.
type LivenessStatus string

const (
	LivenessIdle         LivenessStatus = "idle"
	LivenessInitializing LivenessStatus = "initializing"
	LivenessStreaming    LivenessStatus = "streaming"
	LivenessChecking     LivenessStatus = "checking"
	LivenessSuccess      LivenessStatus = "success"
	LivenessCaptured     LivenessStatus = "captured"
	LivenessError        LivenessStatus = "error"
)

// Liveness is the persisted snapshot of a liveness checker.
type Liveness struct {
	Status     LivenessStatus `json:"status"`
	StartedAt  time.Time      `json:"started_at,omitzero"`
	Image      *SelfieImage   `json:"image,omitempty"`
	Error      string         `json:"error,omitempty"`
	StreamOpen bool           `json:"stream_open,omitempty"`
}

// SelfieImage is a captured still frame.
type SelfieImage struct {
	Data        []byte `json:"data"`
	ContentType string `json:"content_type"`
}

// DataURI renders the image as a data: URI for display.
func (i SelfieImage) DataURI() string {
	return "data:" + i.ContentType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// Size is the image length in bytes.
func (i SelfieImage) Size() int {
	return len(i.Data)
}
